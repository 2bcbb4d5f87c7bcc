package facet

import "github.com/starford/propindex/internal/models"

// revealGroup collects one key's candidates for a single file.
type revealGroup struct {
	key     string
	keyID   string
	keyOnly bool
	values  []string
	seen    map[string]struct{}
}

// DetermineRevealTarget picks the node a navigator should highlight for a
// file with the given properties, preferring continuity with currentID.
// It reports false when the file has no configured properties.
func DetermineRevealTarget(props []models.Property, currentID string, keys *KeySet, includeDescendants bool) (string, bool) {
	groups, candidates := revealCandidates(props, keys)
	if len(candidates) == 0 {
		return "", false
	}

	if currentID == RootID {
		if includeDescendants {
			return RootID, true
		}
		return candidates[0], true
	}

	if ref, err := Decode(currentID); err == nil {
		current := NormalizeKey(ref.Key)
		for _, g := range groups {
			if g.key != current {
				continue
			}
			if includeDescendants || g.keyOnly {
				return g.keyID, true
			}
			if normalized, err := NormalizeID(currentID); err == nil {
				if _, ok := g.seen[normalized]; ok {
					return normalized, true
				}
			}
			return g.values[0], true
		}
	}

	return candidates[0], true
}

// revealCandidates builds the ordered, de-duplicated candidate ids for a
// file, grouped by key in order of first appearance.
func revealCandidates(props []models.Property, keys *KeySet) ([]*revealGroup, []string) {
	var groups []*revealGroup
	byKey := make(map[string]*revealGroup)
	for _, p := range props {
		key := NormalizeKey(p.Key)
		if key == "" || !keys.Has(key) {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &revealGroup{key: key, keyID: EncodeKey(key), seen: make(map[string]struct{})}
			byKey[key] = g
			groups = append(groups, g)
		}
		value := NormalizeValuePath(p.Value)
		if isKeyOnly(value, p.Kind) {
			g.keyOnly = true
			continue
		}
		id := EncodeValue(key, value)
		if _, dup := g.seen[id]; dup {
			continue
		}
		g.seen[id] = struct{}{}
		g.values = append(g.values, id)
	}

	var candidates []string
	for _, g := range groups {
		if g.keyOnly {
			candidates = append(candidates, g.keyID)
		}
		candidates = append(candidates, g.values...)
	}
	return groups, candidates
}
