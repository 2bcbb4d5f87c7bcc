package facetservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/propindex/internal/apperr"
	"github.com/starford/propindex/internal/facet"
	"github.com/starford/propindex/internal/state"
)

// Selection returns the persisted selection reconciled against the visible
// tree. A missing or unreadable record selects the root.
func (s *Service) Selection(ctx context.Context) (string, error) {
	raw, ok, err := s.store.Get(ctx, state.SelectionKey)
	if err != nil {
		return facet.RootID, err
	}
	if !ok {
		return facet.RootID, nil
	}
	id, ok := facet.ParseStoredSelection([]byte(raw))
	if !ok {
		s.logger.Debug("facets: ignoring unreadable selection", slog.String("raw", raw))
		return facet.RootID, nil
	}
	return facet.ResolveSelection(s.Tree(), id), nil
}

// SetSelection accepts a bare id, a JSON string id or a legacy JSON record,
// persists it in the current id format and returns the node it resolves to
// in the visible tree.
func (s *Service) SetSelection(ctx context.Context, raw []byte) (string, error) {
	id, ok := facet.ParseStoredSelection(raw)
	if !ok {
		return "", fmt.Errorf("facetservice: selection %q: %w", raw, apperr.ErrInvalidSelection)
	}
	if err := s.store.Put(ctx, state.SelectionKey, id); err != nil {
		return "", err
	}
	return facet.ResolveSelection(s.Tree(), id), nil
}

// Reveal picks the node to highlight for the note at path, continuing from
// the current selection. ok is false when the note is missing, excluded or
// carries no configured property.
func (s *Service) Reveal(ctx context.Context, path string, includeDescendants bool) (string, bool, error) {
	keys := s.KeySet()
	if !keys.Enabled() {
		return "", false, nil
	}
	if !facet.NewBuilder(facet.BuildOptions{ExcludedFolders: s.excluded}).Accepts(path) {
		return "", false, nil
	}
	props, err := s.src.Properties(path)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	current, err := s.Selection(ctx)
	if err != nil {
		return "", false, err
	}
	target, ok := facet.DetermineRevealTarget(props, current, keys, includeDescendants)
	if !ok {
		return "", false, nil
	}
	if target == facet.RootID {
		return target, true, nil
	}
	// The note may have changed since the last rebuild.
	return facet.ResolveSelection(s.Tree(), target), true, nil
}
