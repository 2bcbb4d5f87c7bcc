package api

import (
	"context"
	"time"

	"github.com/starford/propindex/internal/facet"
	"github.com/starford/propindex/internal/facetservice"
	"github.com/starford/propindex/internal/state"
)

// FacetService is the part of the facet service the API needs.
type FacetService interface {
	Overview() facetservice.Overview
	NodeNotes(id string, includeDescendants bool) (*facetservice.NodeView, error)
	IncludeDescendants() bool
	Selection(ctx context.Context) (string, error)
	SetSelection(ctx context.Context, raw []byte) (string, error)
	Reveal(ctx context.Context, path string, includeDescendants bool) (string, bool, error)
	Rebuild(ctx context.Context) (facetservice.Summary, error)
	SetKeys(raw string) bool
	KeySet() *facet.KeySet
	LastRebuild(ctx context.Context) (*state.Rebuild, error)
}

var _ FacetService = (*facetservice.Service)(nil)

// RebuildInfo describes the most recent rebuild attempt.
type RebuildInfo struct {
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms" example:"12"`
	Result     string    `json:"result" example:"ok" validate:"required"`
	Error      string    `json:"error,omitempty"`
}

// FacetsResponse is the facet tree with counts.
type FacetsResponse struct {
	facetservice.Overview
	LastRebuild *RebuildInfo `json:"last_rebuild,omitempty"`
}

// NodeResponse is a node together with its notes (aliased from the domain layer).
type NodeResponse = facetservice.NodeView

// SelectionResponse carries a node id.
type SelectionResponse struct {
	ID string `json:"id" example:"key:status=draft" validate:"required"`
}

// RebuildResponse summarises a forced rebuild.
type RebuildResponse struct {
	Generation uint64 `json:"generation" example:"3"`
	Keys       int    `json:"keys" example:"2"`
	Values     int    `json:"values" example:"14"`
	Files      int    `json:"files" example:"120"`
	DurationMS int64  `json:"duration_ms" example:"8"`
}

func rebuildInfo(r *state.Rebuild) *RebuildInfo {
	if r == nil {
		return nil
	}
	return &RebuildInfo{
		FinishedAt: r.FinishedAt,
		DurationMS: r.Duration.Milliseconds(),
		Result:     r.Result,
		Error:      r.Error,
	}
}

// KeysRequest replaces the indexed property keys.
type KeysRequest struct {
	Keys string `json:"keys" example:"status,area"`
}

// KeysResponse lists the indexed keys after an update.
type KeysResponse struct {
	Keys    []string         `json:"keys"`
	Changed bool             `json:"changed"`
	Rebuild *RebuildResponse `json:"rebuild,omitempty"`
}

func rebuildResponse(sum facetservice.Summary) *RebuildResponse {
	return &RebuildResponse{
		Generation: sum.Generation,
		Keys:       sum.Keys,
		Values:     sum.Values,
		Files:      sum.Files,
		DurationMS: sum.Duration.Milliseconds(),
	}
}
