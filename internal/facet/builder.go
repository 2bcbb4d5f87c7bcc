package facet

import (
	"path"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/starford/propindex/internal/models"
)

// MetadataSource yields every file with its ordered property records. The
// callback runs synchronously; returning an error stops the iteration and
// is passed back to the caller.
type MetadataSource interface {
	ForEachFile(fn func(path string, props []models.Property) error) error
}

// StaticSource is an in-memory MetadataSource that yields files in slice order.
type StaticSource []models.NoteProperties

// ForEachFile implements MetadataSource.
func (s StaticSource) ForEachFile(fn func(path string, props []models.Property) error) error {
	for _, n := range s {
		if err := fn(n.Path, n.Properties); err != nil {
			return err
		}
	}
	return nil
}

// BuildOptions restricts what goes into a tree.
type BuildOptions struct {
	// ExcludedFolders are folder names or path.Match patterns; a file is
	// skipped when any of its ancestor folders matches.
	ExcludedFolders []string
	// IncludedPaths, when non-nil, is the only set of files considered.
	IncludedPaths map[string]struct{}
	// Keys restricts indexing to these keys. nil indexes every key; an
	// empty set indexes nothing.
	Keys *KeySet
}

// Builder accumulates files into a new Tree one file at a time, so callers
// can chunk a large build without changing its result.
type Builder struct {
	opts     BuildOptions
	excluded []string
	tree     *Tree
	done     bool
}

// NewBuilder starts a build.
func NewBuilder(opts BuildOptions) *Builder {
	b := &Builder{opts: opts, tree: newTree()}
	for _, p := range opts.ExcludedFolders {
		p = strings.ToLower(strings.Trim(strings.TrimSpace(p), "/"))
		if p != "" {
			b.excluded = append(b.excluded, p)
		}
	}
	return b
}

// Build drives src through a new Builder and returns the finished tree.
func Build(src MetadataSource, opts BuildOptions) (*Tree, error) {
	b := NewBuilder(opts)
	if err := src.ForEachFile(func(p string, props []models.Property) error {
		b.AddFile(p, props)
		return nil
	}); err != nil {
		return nil, err
	}
	return b.Finish(), nil
}

// Accepts reports whether the options admit path at all.
func (b *Builder) Accepts(p string) bool {
	if b.opts.IncludedPaths != nil {
		if _, ok := b.opts.IncludedPaths[p]; !ok {
			return false
		}
	}
	return !isExcluded(p, b.excluded)
}

// AddFile indexes one file. Records with blank keys are dropped.
func (b *Builder) AddFile(p string, props []models.Property) {
	if b.done {
		panic("facet: AddFile after Finish")
	}
	if len(props) == 0 || !b.Accepts(p) {
		return
	}
	if b.opts.Keys != nil && !b.opts.Keys.Enabled() {
		return
	}

	t := b.tree
	for _, prop := range props {
		key := NormalizeKey(prop.Key)
		if key == "" {
			continue
		}
		if b.opts.Keys != nil && !b.opts.Keys.Has(key) {
			continue
		}
		ord := b.ordinal(p)

		kn := b.keyNode(key, strings.TrimSpace(prop.Key))
		kn.notes.Add(ord)

		value := NormalizeValuePath(prop.Value)
		if isKeyOnly(value, prop.Kind) {
			kn.keyOnly.Add(ord)
			continue
		}

		vn, ok := kn.byPath[value]
		if !ok {
			vn = &ValueNode{
				ID:          EncodeValue(key, value),
				Key:         key,
				ValuePath:   value,
				DisplayPath: displayValuePath(prop.Value),
				notes:       roaring.New(),
				tree:        t,
			}
			kn.byPath[value] = vn
			kn.children = append(kn.children, vn)
		}
		vn.notes.Add(ord)
	}
}

// Finish sorts the tree and hands it over. The builder must not be used
// afterwards.
func (b *Builder) Finish() *Tree {
	b.done = true
	b.tree.sort()
	for _, k := range b.tree.keys {
		k.notes.RunOptimize()
		for _, v := range k.children {
			v.notes.RunOptimize()
		}
	}
	return b.tree
}

// ordinal assigns p its bitmap position on first use.
func (b *Builder) ordinal(p string) uint32 {
	t := b.tree
	if ord, ok := t.ordinals[p]; ok {
		return ord
	}
	ord := uint32(len(t.paths))
	t.paths = append(t.paths, p)
	t.ordinals[p] = ord
	return ord
}

// keyNode returns the node for key, creating it on first sight. The first
// spelling seen becomes the display name.
func (b *Builder) keyNode(key, display string) *KeyNode {
	t := b.tree
	if kn, ok := t.byKey[key]; ok {
		return kn
	}
	kn := &KeyNode{
		ID:          EncodeKey(key),
		Key:         key,
		DisplayName: display,
		byPath:      make(map[string]*ValueNode),
		notes:       roaring.New(),
		keyOnly:     roaring.New(),
		tree:        t,
	}
	t.byKey[key] = kn
	t.keys = append(t.keys, kn)
	return kn
}

// isExcluded matches each ancestor folder of p ("a", "a/b", ...) against the
// lower-cased patterns, by equality or path.Match.
func isExcluded(p string, patterns []string) bool {
	if len(patterns) == 0 {
		return false
	}
	dir := strings.TrimPrefix(path.Dir(strings.ToLower(p)), "/")
	if dir == "." || dir == "" {
		return false
	}
	folders := append(ancestorPaths(dir), dir)
	for _, pattern := range patterns {
		for _, f := range folders {
			if f == pattern {
				return true
			}
			if ok, err := path.Match(pattern, f); err == nil && ok {
				return true
			}
		}
	}
	return false
}
