package facetservice

import (
	"fmt"

	"github.com/starford/propindex/internal/apperr"
	"github.com/starford/propindex/internal/facet"
)

// ValueView is one value node with its counts.
type ValueView struct {
	ID          string `json:"id"`
	ValuePath   string `json:"value_path"`
	DisplayPath string `json:"display_path"`
	Depth       int    `json:"depth"`
	Notes       int    `json:"notes"`
	Total       int    `json:"total"`
}

// KeyView is one key node with its counts and values.
type KeyView struct {
	ID          string      `json:"id"`
	Key         string      `json:"key"`
	DisplayName string      `json:"display_name"`
	Notes       int         `json:"notes"`
	Direct      int         `json:"direct"`
	Values      []ValueView `json:"values"`
}

// Overview is a serializable snapshot of the visible tree.
type Overview struct {
	Enabled    bool      `json:"enabled"`
	Generation uint64    `json:"generation"`
	Files      int       `json:"files"`
	Keys       []KeyView `json:"keys"`
}

// NodeView is one node together with the notes behind it.
type NodeView struct {
	ID                 string   `json:"id"`
	Key                string   `json:"key"`
	ValuePath          string   `json:"value_path,omitempty"`
	DisplayName        string   `json:"display_name"`
	IncludeDescendants bool     `json:"include_descendants"`
	Count              int      `json:"count"`
	Notes              []string `json:"notes"`
}

// Overview snapshots the visible tree with every count resolved.
func (s *Service) Overview() Overview {
	tree := s.Tree()
	counts := tree.Counts()
	out := Overview{
		Enabled:    s.Enabled(),
		Generation: s.Generation(),
		Files:      tree.FileCount(),
		Keys:       make([]KeyView, 0, tree.Len()),
	}
	for _, k := range tree.Keys() {
		kv := KeyView{
			ID:          k.ID,
			Key:         k.Key,
			DisplayName: k.DisplayName,
			Notes:       k.NoteCount(),
			Direct:      counts.DirectKeyCount(k),
		}
		for _, v := range k.Children() {
			kv.Values = append(kv.Values, ValueView{
				ID:          v.ID,
				ValuePath:   v.ValuePath,
				DisplayPath: v.DisplayPath,
				Depth:       v.Depth(),
				Notes:       v.NoteCount(),
				Total:       counts.TotalValueCount(k, v.ValuePath),
			})
		}
		out.Keys = append(out.Keys, kv)
	}
	return out
}

// NodeNotes lists the notes behind a node of the visible tree. For a key
// without descendants these are the notes that carry no value for it; for
// a value without descendants, the notes with that exact value. The root id
// lists every indexed note.
func (s *Service) NodeNotes(id string, includeDescendants bool) (*NodeView, error) {
	tree := s.Tree()
	if id == facet.RootID {
		files := tree.Files()
		return &NodeView{ID: facet.RootID, IncludeDescendants: true, Count: len(files), Notes: files}, nil
	}
	if !facet.IsValidID(id) {
		return nil, fmt.Errorf("facetservice: node %q: %w", id, apperr.ErrInvalidArgument)
	}
	key, value, ok := tree.Lookup(id)
	if !ok {
		return nil, fmt.Errorf("facetservice: node %q: %w", id, apperr.ErrNotFound)
	}

	view := &NodeView{
		ID:                 key.ID,
		Key:                key.Key,
		DisplayName:        key.DisplayName,
		IncludeDescendants: includeDescendants,
	}
	counts := tree.Counts()
	switch {
	case value == nil && includeDescendants:
		view.Notes = key.NotesWithKey()
	case value == nil:
		view.Notes = counts.DirectNotes(key)
	case includeDescendants:
		view.Notes = counts.ValueNotes(key, value.ValuePath)
	default:
		view.Notes = value.NotesWithValue()
	}
	if value != nil {
		view.ID = value.ID
		view.ValuePath = value.ValuePath
		view.DisplayName = value.DisplayPath
	}
	if view.Notes == nil {
		view.Notes = []string{}
	}
	view.Count = len(view.Notes)
	return view, nil
}
