// Package facet builds an immutable in-memory property index over a vault:
// files grouped by property key and by normalized, possibly hierarchical,
// property value. It also owns node identifiers, per-tree count caches and
// selection reconciliation across rebuilds.
package facet

import (
	"sort"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/maruel/natural"
)

// Tree is the result of one build. It is never mutated after Finish and is
// safe for concurrent readers.
type Tree struct {
	keys  []*KeyNode
	byKey map[string]*KeyNode

	// paths maps file ordinals, as stored in node bitmaps, back to paths.
	paths    []string
	ordinals map[string]uint32

	counts *CountCache
}

// KeyNode groups every file that carries a property key.
type KeyNode struct {
	ID          string
	Key         string
	DisplayName string

	children []*ValueNode
	byPath   map[string]*ValueNode

	notes   *roaring.Bitmap
	keyOnly *roaring.Bitmap

	tree *Tree
}

// ValueNode groups the files carrying one exact normalized value path.
type ValueNode struct {
	ID          string
	Key         string
	ValuePath   string
	DisplayPath string

	notes *roaring.Bitmap
	tree  *Tree
}

func newTree() *Tree {
	t := &Tree{
		byKey:    make(map[string]*KeyNode),
		ordinals: make(map[string]uint32),
	}
	t.counts = newCountCache(t)
	return t
}

// Keys returns the key nodes in sorted order.
func (t *Tree) Keys() []*KeyNode {
	out := make([]*KeyNode, len(t.keys))
	copy(out, t.keys)
	return out
}

// Len returns the number of key nodes.
func (t *Tree) Len() int { return len(t.keys) }

// IsEmpty reports whether the tree holds no keys.
func (t *Tree) IsEmpty() bool { return t == nil || len(t.keys) == 0 }

// FileCount returns the number of distinct files that contributed at least
// one indexed property.
func (t *Tree) FileCount() int { return len(t.paths) }

// ValueCount returns the total number of value nodes.
func (t *Tree) ValueCount() int {
	n := 0
	for _, k := range t.keys {
		n += len(k.children)
	}
	return n
}

// Key looks a key node up by key; the argument is normalized first.
func (t *Tree) Key(key string) (*KeyNode, bool) {
	if t == nil {
		return nil, false
	}
	k, ok := t.byKey[NormalizeKey(key)]
	return k, ok
}

// Lookup resolves an id to its nodes. For a value id both nodes are set;
// for a key id value is nil. ok is false if the id is invalid or either
// node is missing.
func (t *Tree) Lookup(id string) (key *KeyNode, value *ValueNode, ok bool) {
	ref, err := Decode(id)
	if err != nil {
		return nil, nil, false
	}
	key, ok = t.Key(ref.Key)
	if !ok {
		return nil, nil, false
	}
	if ref.IsKey() {
		return key, nil, true
	}
	value, ok = key.Child(ref.ValuePath)
	if !ok {
		return nil, nil, false
	}
	return key, value, true
}

// Counts returns the count cache owned by this tree. It is discarded with
// the tree.
func (t *Tree) Counts() *CountCache { return t.counts }

// HasFile reports whether path contributed to the tree.
func (t *Tree) HasFile(path string) bool {
	_, ok := t.ordinals[path]
	return ok
}

// Files returns every contributing path, sorted.
func (t *Tree) Files() []string {
	out := make([]string, len(t.paths))
	copy(out, t.paths)
	sort.Strings(out)
	return out
}

func (t *Tree) pathsOf(b *roaring.Bitmap) []string {
	out := make([]string, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, t.paths[it.Next()])
	}
	sort.Strings(out)
	return out
}

func (t *Tree) contains(b *roaring.Bitmap, path string) bool {
	ord, ok := t.ordinals[path]
	return ok && b.Contains(ord)
}

// Children returns the value nodes in sorted order.
func (k *KeyNode) Children() []*ValueNode {
	out := make([]*ValueNode, len(k.children))
	copy(out, k.children)
	return out
}

// Child looks up a value node; the path is normalized first.
func (k *KeyNode) Child(valuePath string) (*ValueNode, bool) {
	v, ok := k.byPath[NormalizeValuePath(valuePath)]
	return v, ok
}

// NotesWithKey returns every file with any occurrence of the key, sorted.
func (k *KeyNode) NotesWithKey() []string { return k.tree.pathsOf(k.notes) }

// NoteCount returns |NotesWithKey|.
func (k *KeyNode) NoteCount() int { return int(k.notes.GetCardinality()) }

// HasNote reports whether path has any occurrence of the key.
func (k *KeyNode) HasNote(path string) bool { return k.tree.contains(k.notes, path) }

// KeyOnlyNotes returns the files with at least one key-only occurrence.
func (k *KeyNode) KeyOnlyNotes() []string { return k.tree.pathsOf(k.keyOnly) }

// NotesWithValue returns the files carrying exactly this value path, sorted.
func (v *ValueNode) NotesWithValue() []string { return v.tree.pathsOf(v.notes) }

// NoteCount returns |NotesWithValue|.
func (v *ValueNode) NoteCount() int { return int(v.notes.GetCardinality()) }

// HasNote reports whether path carries exactly this value path.
func (v *ValueNode) HasNote(path string) bool { return v.tree.contains(v.notes, path) }

// Depth returns the number of segments below the key, starting at 1.
func (v *ValueNode) Depth() int { return len(ancestorPaths(v.ValuePath)) + 1 }

// siblingLess orders siblings naturally by their normalized name, falling
// back to the full id so that iteration is deterministic.
func siblingLess(a, b, idA, idB string) bool {
	if natural.Less(a, b) {
		return true
	}
	if natural.Less(b, a) {
		return false
	}
	return idA < idB
}

func (t *Tree) sort() {
	sort.Slice(t.keys, func(i, j int) bool {
		a, b := t.keys[i], t.keys[j]
		return siblingLess(a.Key, b.Key, a.ID, b.ID)
	})
	for _, k := range t.keys {
		sort.Slice(k.children, func(i, j int) bool {
			a, b := k.children[i], k.children[j]
			return siblingLess(a.ValuePath, b.ValuePath, a.ID, b.ID)
		})
	}
}
