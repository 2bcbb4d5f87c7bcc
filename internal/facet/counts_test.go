package facet

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/starford/propindex/internal/models"
)

func TestCounts_ScenarioB(t *testing.T) {
	src := StaticSource{
		note("F1.md", text("area", "work/project/2024")),
		note("F2.md", text("area", "work/project")),
		note("F3.md", text("area", "work")),
	}
	tree := mustBuild(t, src, BuildOptions{})
	area, ok := tree.Key("area")
	require.True(t, ok)

	c := tree.Counts()
	assert.Equal(t, 3, c.TotalValueCount(area, "work"))
	assert.Equal(t, 2, c.TotalValueCount(area, "work/project"))
	assert.Equal(t, 1, c.TotalValueCount(area, "work/project/2024"))
	assert.Equal(t, 0, c.DirectKeyCount(area))
	assert.Equal(t, []string{"F1.md", "F2.md"}, c.ValueNotes(area, "Work/Project"))
}

func TestCounts_UnknownPathIsZero(t *testing.T) {
	tree := mustBuild(t, StaticSource{note("a.md", text("area", "work"))}, BuildOptions{})
	area, _ := tree.Key("area")
	assert.Equal(t, 0, tree.Counts().TotalValueCount(area, "play"))
	assert.Equal(t, 0, tree.Counts().TotalValueCount(area, "wor"), "prefix must end on a segment boundary")
	assert.Nil(t, tree.Counts().ValueNotes(area, "play"))
}

func TestCounts_FileWithValueAndKeyOnlyIsNotDirect(t *testing.T) {
	src := StaticSource{
		note("a.md", flag("tags", "true"), text("tags", "go")),
		note("b.md", flag("tags", "")),
	}
	tree := mustBuild(t, src, BuildOptions{})
	tags, _ := tree.Key("tags")
	assert.Equal(t, 1, tree.Counts().DirectKeyCount(tags))
	assert.Equal(t, []string{"b.md"}, tree.Counts().DirectNotes(tags))
	assert.Equal(t, []string{"a.md", "b.md"}, tags.KeyOnlyNotes())
}

func TestCounts_SameNodeIsMemoized(t *testing.T) {
	tree := mustBuild(t, StaticSource{note("a.md", text("area", "x/y"))}, BuildOptions{})
	area, _ := tree.Key("area")
	c := tree.Counts()
	first := c.prefixBitmap(area, "x")
	second := c.prefixBitmap(area, "x")
	assert.Same(t, first, second)
}

func TestCounts_ForeignNodePanics(t *testing.T) {
	src := StaticSource{note("a.md", text("area", "x"))}
	old := mustBuild(t, src, BuildOptions{})
	fresh := mustBuild(t, src, BuildOptions{})
	oldArea, _ := old.Key("area")

	assert.Panics(t, func() { fresh.Counts().DirectKeyCount(oldArea) })
}

// Every file with the key is counted exactly once, either directly or
// under one of the values.
func TestCounts_DirectPlusValuedCoversKey(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		files := rapid.IntRange(1, 12).Draw(t, "files")
		var src StaticSource
		for i := 0; i < files; i++ {
			n := rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("props%d", i))
			var props []models.Property
			for j := 0; j < n; j++ {
				value := rapid.SampledFrom([]string{"", "true", "false", "a", "a/b", "b", "A/ b /c"}).Draw(t, "value")
				kind := rapid.SampledFrom([]models.ValueKind{models.KindUnknown, models.KindText, models.KindBoolean}).Draw(t, "kind")
				props = append(props, models.Property{Key: "k", Value: value, Kind: kind})
			}
			src = append(src, note(fmt.Sprintf("f%d.md", i), props...))
		}

		tree, err := Build(src, BuildOptions{})
		if err != nil {
			t.Fatal(err)
		}
		k, ok := tree.Key("k")
		if !ok {
			return
		}

		valued := make(map[string]struct{})
		for _, c := range k.Children() {
			for _, p := range c.NotesWithValue() {
				valued[p] = struct{}{}
			}
		}
		direct := tree.Counts().DirectKeyCount(k)
		if direct+len(valued) != k.NoteCount() {
			t.Fatalf("direct %d + valued %d != notes %d", direct, len(valued), k.NoteCount())
		}

		for _, c := range k.Children() {
			total := tree.Counts().TotalValueCount(k, c.ValuePath)
			if total < c.NoteCount() {
				t.Fatalf("total %d < exact %d for %q", total, c.NoteCount(), c.ValuePath)
			}
			for _, other := range k.Children() {
				if strings.HasPrefix(other.ValuePath, c.ValuePath+"/") {
					for _, p := range other.NotesWithValue() {
						found := false
						for _, q := range tree.Counts().ValueNotes(k, c.ValuePath) {
							found = found || q == p
						}
						if !found {
							t.Fatalf("descendant note %s missing under %q", p, c.ValuePath)
						}
					}
				}
			}
		}
	})
}
