package facet

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ResolveSelection maps a stored selection id onto the live tree: the exact
// node if it still exists, else its key node, else RootID. It never fails.
func ResolveSelection(t *Tree, storedID string) string {
	if storedID == RootID {
		return RootID
	}
	ref, err := Decode(storedID)
	if err != nil {
		return RootID
	}
	key, ok := t.Key(ref.Key)
	if !ok {
		return RootID
	}
	if ref.IsKey() {
		return key.ID
	}
	if v, ok := key.Child(ref.ValuePath); ok {
		return v.ID
	}
	return key.ID
}

// StoredSelection is a persisted selection in one of the shapes written over
// time. The variants are CurrentSelection and LegacySelection.
type StoredSelection interface {
	storedSelection()
}

// CurrentSelection is a selection persisted as a node id (or RootID).
type CurrentSelection struct {
	ID string
}

// LegacySelection is the structured record older clients persisted.
type LegacySelection struct {
	Key              string  `json:"key"`
	Value            *string `json:"value"`
	DisplayKey       string  `json:"displayKey,omitempty"`
	DisplayValuePath string  `json:"displayValuePath,omitempty"`
}

func (CurrentSelection) storedSelection() {}
func (LegacySelection) storedSelection()  {}

// DecodeStoredSelection recognises a persisted selection. It accepts a bare
// id, a JSON string holding an id, or a JSON legacy record. Anything else is
// reported as not ok.
func DecodeStoredSelection(raw []byte) (StoredSelection, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, false
	}
	switch trimmed[0] {
	case '"':
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return nil, false
		}
		return CurrentSelection{ID: strings.TrimSpace(id)}, true
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return nil, false
		}
		if _, ok := probe["key"]; !ok {
			return nil, false
		}
		var legacy LegacySelection
		if err := json.Unmarshal(trimmed, &legacy); err != nil {
			return nil, false
		}
		return legacy, true
	case '[', 'n', 't', 'f':
		// JSON arrays, null and booleans are never selections.
		if json.Valid(trimmed) {
			return nil, false
		}
	}
	return CurrentSelection{ID: string(trimmed)}, true
}

// CanonicalID converts a stored selection into a normalized current-format
// id. Unusable selections report not ok.
func CanonicalID(sel StoredSelection) (string, bool) {
	switch s := sel.(type) {
	case CurrentSelection:
		id, err := NormalizeID(s.ID)
		if err != nil {
			return "", false
		}
		return id, true
	case LegacySelection:
		key := NormalizeKey(s.Key)
		if key == "" {
			return "", false
		}
		if s.Value == nil {
			return EncodeKey(key), true
		}
		value := NormalizeValuePath(*s.Value)
		if value == "" {
			return EncodeKey(key), true
		}
		return EncodeValue(key, value), true
	default:
		return "", false
	}
}

// ParseStoredSelection decodes either persisted shape into a normalized id.
func ParseStoredSelection(raw []byte) (string, bool) {
	sel, ok := DecodeStoredSelection(raw)
	if !ok {
		return "", false
	}
	return CanonicalID(sel)
}
