package facet

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultKeyCacheSize bounds the number of distinct raw key lists a
// KeyResolver remembers.
const DefaultKeyCacheSize = 64

// KeySet is the resolved, normalized set of property keys to index.
// Resolvers hand out shared instances, so callers may compare *KeySet
// pointers to detect a configuration change.
type KeySet struct {
	ordered []string
	members map[string]struct{}
}

// NewKeySet builds a set from already split keys, normalizing each one.
func NewKeySet(keys ...string) *KeySet {
	s := &KeySet{members: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		k = NormalizeKey(k)
		if k == "" {
			continue
		}
		if _, dup := s.members[k]; dup {
			continue
		}
		s.members[k] = struct{}{}
		s.ordered = append(s.ordered, k)
	}
	return s
}

// Has reports whether the normalized key is in the set.
func (s *KeySet) Has(normalizedKey string) bool {
	if s == nil {
		return false
	}
	_, ok := s.members[normalizedKey]
	return ok
}

// Enabled reports whether any key is configured. The facet feature is off
// for an empty set.
func (s *KeySet) Enabled() bool {
	return s != nil && len(s.ordered) > 0
}

// Len returns the number of keys.
func (s *KeySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ordered)
}

// Keys returns the keys in configuration order.
func (s *KeySet) Keys() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// KeyResolver turns raw comma-separated key lists into KeySets, caching the
// result per exact raw string. It is meant to be owned by one indexing
// service and passed down explicitly.
type KeyResolver struct {
	mu    sync.Mutex
	cache *lru.Cache[string, *KeySet]
}

// NewKeyResolver creates a resolver remembering up to size raw strings.
func NewKeyResolver(size int) *KeyResolver {
	if size <= 0 {
		size = DefaultKeyCacheSize
	}
	cache, err := lru.New[string, *KeySet](size)
	if err != nil {
		// Only reachable with a non-positive size, which is handled above.
		panic(err)
	}
	return &KeyResolver{cache: cache}
}

// Resolve splits raw on commas, trims and case-folds every entry, and drops
// empties. Repeated calls with the identical raw string return the same
// *KeySet while it stays cached.
func (r *KeyResolver) Resolve(raw string) *KeySet {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.cache.Get(raw); ok {
		return s
	}
	s := NewKeySet(strings.Split(raw, ",")...)
	r.cache.Add(raw, s)
	return s
}
