package facet

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"
)

// CountCache memoizes direct and descendant-inclusive counts for the key
// nodes of one tree. Entries are keyed by node identity; a node from another
// tree is a programming error and panics.
type CountCache struct {
	tree *Tree

	mu      sync.Mutex
	entries map[*KeyNode]*keyCounts
}

type keyCounts struct {
	direct   *roaring.Bitmap
	prefixes map[string]*roaring.Bitmap
}

func newCountCache(t *Tree) *CountCache {
	return &CountCache{tree: t, entries: make(map[*KeyNode]*keyCounts)}
}

// DirectKeyCount returns the number of files that carry the key but none of
// its values.
func (c *CountCache) DirectKeyCount(k *KeyNode) int {
	return int(c.directBitmap(k).GetCardinality())
}

// DirectNotes returns the files counted by DirectKeyCount, sorted.
func (c *CountCache) DirectNotes(k *KeyNode) []string {
	return c.tree.pathsOf(c.directBitmap(k))
}

// TotalValueCount returns the number of files whose value path equals
// valuePath or lies beneath it. Unknown paths count 0.
func (c *CountCache) TotalValueCount(k *KeyNode, valuePath string) int {
	b := c.prefixBitmap(k, valuePath)
	if b == nil {
		return 0
	}
	return int(b.GetCardinality())
}

// ValueNotes returns the files counted by TotalValueCount, sorted.
func (c *CountCache) ValueNotes(k *KeyNode, valuePath string) []string {
	b := c.prefixBitmap(k, valuePath)
	if b == nil {
		return nil
	}
	return c.tree.pathsOf(b)
}

func (c *CountCache) directBitmap(k *KeyNode) *roaring.Bitmap {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(k)
	if e.direct == nil {
		valued := roaring.New()
		for _, v := range k.children {
			valued.Or(v.notes)
		}
		e.direct = roaring.AndNot(k.notes, valued)
	}
	return e.direct
}

func (c *CountCache) prefixBitmap(k *KeyNode, valuePath string) *roaring.Bitmap {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.entry(k)
	if e.prefixes == nil {
		e.prefixes = buildPrefixMap(k)
	}
	return e.prefixes[NormalizeValuePath(valuePath)]
}

// entry must be called with c.mu held.
func (c *CountCache) entry(k *KeyNode) *keyCounts {
	if k.tree != c.tree {
		panic("facet: key node " + k.ID + " belongs to a different tree")
	}
	e, ok := c.entries[k]
	if !ok {
		e = &keyCounts{}
		c.entries[k] = e
	}
	return e
}

// buildPrefixMap unions every value node's files into its own path and all
// of its ancestor prefixes.
func buildPrefixMap(k *KeyNode) map[string]*roaring.Bitmap {
	m := make(map[string]*roaring.Bitmap, len(k.children))
	add := func(p string, b *roaring.Bitmap) {
		if acc, ok := m[p]; ok {
			acc.Or(b)
			return
		}
		m[p] = b.Clone()
	}
	for _, v := range k.children {
		add(v.ValuePath, v.notes)
		for _, a := range ancestorPaths(v.ValuePath) {
			add(a, v.notes)
		}
	}
	return m
}
