package facetservice

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/propindex/internal/apperr"
	"github.com/starford/propindex/internal/facet"
	"github.com/starford/propindex/internal/models"
	"github.com/starford/propindex/internal/source"
	"github.com/starford/propindex/internal/state"
	"github.com/starford/propindex/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type env struct {
	root string
	db   *state.DB
	svc  *Service
}

func newEnv(t *testing.T, opts Options) *env {
	t.Helper()
	root, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	svc := New(source.NewVault(store, quietLogger()), db, opts, quietLogger())
	return &env{root: root, db: db, svc: svc}
}

func (e *env) write(t *testing.T, rel string, lines ...string) {
	t.Helper()
	testutil.WriteNote(t, e.root, rel, testutil.Frontmatter(lines...))
}

func (e *env) rebuild(t *testing.T) Summary {
	t.Helper()
	sum, err := e.svc.Rebuild(context.Background())
	require.NoError(t, err)
	return sum
}

func TestRebuild_PublishesTree(t *testing.T) {
	e := newEnv(t, Options{Keys: "Status, area"})
	e.write(t, "a.md", "status: Draft", "area: work/project", "title: ignored")
	e.write(t, "b.md", "status: draft")
	e.write(t, "c.md", "title: only")

	var seen []Summary
	e.svc.OnRebuilt(func(s Summary) { seen = append(seen, s) })

	assert.True(t, e.svc.Tree().IsEmpty(), "empty before the first rebuild")
	sum := e.rebuild(t)

	assert.Equal(t, uint64(1), sum.Generation)
	assert.Equal(t, 2, sum.Keys)
	assert.Equal(t, 2, sum.Values)
	assert.Equal(t, 2, sum.Files)
	require.Len(t, seen, 1)
	assert.Equal(t, sum, seen[0])

	last, err := e.svc.LastRebuild(context.Background())
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, "ok", last.Result)
	assert.Equal(t, 2, last.Files)
}

func TestRebuild_DisabledWithoutKeys(t *testing.T) {
	e := newEnv(t, Options{Keys: " , "})
	e.write(t, "a.md", "status: Draft")

	assert.False(t, e.svc.Enabled())
	sum := e.rebuild(t)
	assert.Zero(t, sum.Keys)
	assert.True(t, e.svc.Tree().IsEmpty())
}

func TestRebuild_ExcludedFolders(t *testing.T) {
	e := newEnv(t, Options{Keys: "status", ExcludedFolders: []string{"Templates"}})
	e.write(t, "templates/t.md", "status: template")
	e.write(t, "notes/n.md", "status: real")
	e.rebuild(t)

	status, ok := e.svc.Tree().Key("status")
	require.True(t, ok)
	assert.Equal(t, []string{"notes/n.md"}, status.NotesWithKey())
}

type failingSource struct{ err error }

func (f failingSource) ForEachFile(func(string, []models.Property) error) error { return f.err }
func (f failingSource) Properties(string) ([]models.Property, error)         { return nil, f.err }

func TestRebuild_FailureKeepsPreviousTree(t *testing.T) {
	e := newEnv(t, Options{Keys: "status"})
	e.write(t, "a.md", "status: Draft")
	e.rebuild(t)
	before := e.svc.Tree()

	boom := errors.New("disk gone")
	e.svc.src = failingSource{err: boom}
	_, err := e.svc.Rebuild(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Same(t, before, e.svc.Tree())
	assert.Equal(t, uint64(1), e.svc.Generation())

	last, err := e.svc.LastRebuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "error", last.Result)
}

func TestRebuild_Cancelled(t *testing.T) {
	e := newEnv(t, Options{Keys: "status", ChunkSize: 1})
	e.write(t, "a.md", "status: Draft")
	e.write(t, "b.md", "status: Final")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.svc.Rebuild(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, e.svc.Tree().IsEmpty())
}

func TestRebuild_ChunkedMatchesUnchunked(t *testing.T) {
	chunked := newEnv(t, Options{Keys: "area", ChunkSize: 2})
	whole := newEnv(t, Options{Keys: "area", ChunkSize: 1000})
	for _, e := range []*env{chunked, whole} {
		e.write(t, "1.md", "area: work/project")
		e.write(t, "2.md", "area: work")
		e.write(t, "3.md", "area: home")
		e.write(t, "4.md", "area: work/project/2024")
		e.write(t, "5.md", "area:")
		e.rebuild(t)
	}
	a, b := chunked.svc.Overview(), whole.svc.Overview()
	a.Generation, b.Generation = 0, 0
	assert.Equal(t, b, a)
}

func TestSetKeys(t *testing.T) {
	e := newEnv(t, Options{Keys: "status"})
	assert.False(t, e.svc.SetKeys("status"))
	assert.True(t, e.svc.SetKeys("status,area"))
	assert.Equal(t, []string{"status", "area"}, e.svc.KeySet().Keys())
}

func TestOverview_Counts(t *testing.T) {
	e := newEnv(t, Options{Keys: "area,archived"})
	e.write(t, "F1.md", "area: work/project/2024")
	e.write(t, "F2.md", "area: Work/Project")
	e.write(t, "F3.md", "area: work")
	e.write(t, "F4.md", "area:", "archived: true")
	e.rebuild(t)

	ov := e.svc.Overview()
	assert.True(t, ov.Enabled)
	assert.Equal(t, 4, ov.Files)
	require.Len(t, ov.Keys, 2)

	area := ov.Keys[1]
	assert.Equal(t, "key:area", area.ID)
	assert.Equal(t, 4, area.Notes)
	assert.Equal(t, 1, area.Direct)
	require.Len(t, area.Values, 3)
	assert.Equal(t, ValueView{ID: "key:area=work", ValuePath: "work", DisplayPath: "work", Depth: 1, Notes: 1, Total: 3}, area.Values[0])
	assert.Equal(t, 2, area.Values[1].Total)
	assert.Equal(t, "work/project/2024", area.Values[2].ValuePath)

	archived := ov.Keys[0]
	assert.Equal(t, 1, archived.Direct)
	assert.Empty(t, archived.Values)
}

func TestNodeNotes(t *testing.T) {
	e := newEnv(t, Options{Keys: "area"})
	e.write(t, "F1.md", "area: work/project")
	e.write(t, "F2.md", "area: work")
	e.write(t, "F3.md", "area:")
	e.rebuild(t)

	cases := []struct {
		id          string
		descendants bool
		want        []string
	}{
		{facet.RootID, false, []string{"F1.md", "F2.md", "F3.md"}},
		{"key:area", true, []string{"F1.md", "F2.md", "F3.md"}},
		{"key:area", false, []string{"F3.md"}},
		{"key:area=work", true, []string{"F1.md", "F2.md"}},
		{"key:area=work", false, []string{"F2.md"}},
		{"key:Area=WORK/project", false, []string{"F1.md"}},
	}
	for _, tc := range cases {
		view, err := e.svc.NodeNotes(tc.id, tc.descendants)
		require.NoError(t, err, tc.id)
		assert.Equal(t, tc.want, view.Notes, tc.id)
		assert.Equal(t, len(tc.want), view.Count, tc.id)
	}

	_, err := e.svc.NodeNotes("key:area=play", false)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = e.svc.NodeNotes("bogus", false)
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestSelection_RoundTripAndReconcile(t *testing.T) {
	e := newEnv(t, Options{Keys: "status"})
	e.write(t, "a.md", "status: Draft")
	e.write(t, "b.md", "status: Final")
	e.rebuild(t)
	ctx := context.Background()

	got, err := e.svc.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, facet.RootID, got)

	got, err = e.svc.SetSelection(ctx, []byte(`"key:Status=Final"`))
	require.NoError(t, err)
	assert.Equal(t, "key:status=final", got)

	raw, _, err := e.db.Get(ctx, state.SelectionKey)
	require.NoError(t, err)
	assert.Equal(t, "key:status=final", raw)

	// Every Final note goes away.
	require.NoError(t, os.Remove(filepath.Join(e.root, "b.md")))
	e.rebuild(t)
	got, err = e.svc.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key:status", got)

	// The intent survives: Final comes back.
	e.write(t, "c.md", "status: final")
	e.rebuild(t)
	got, _ = e.svc.Selection(ctx)
	assert.Equal(t, "key:status=final", got)
}

func TestSelection_LegacyRecord(t *testing.T) {
	e := newEnv(t, Options{Keys: "status"})
	e.write(t, "a.md", "status: Draft")
	e.rebuild(t)
	ctx := context.Background()

	require.NoError(t, e.db.Put(ctx, state.SelectionKey, `{"key":"Status","value":"Draft","displayKey":"Status"}`))
	got, err := e.svc.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, "key:status=draft", got)

	require.NoError(t, e.db.Put(ctx, state.SelectionKey, `[not a selection`))
	got, err = e.svc.Selection(ctx)
	require.NoError(t, err)
	assert.Equal(t, facet.RootID, got)
}

func TestSetSelection_Invalid(t *testing.T) {
	e := newEnv(t, Options{Keys: "status"})
	_, err := e.svc.SetSelection(context.Background(), []byte(`{"value":"x"}`))
	assert.ErrorIs(t, err, apperr.ErrInvalidSelection)
}

func TestReveal(t *testing.T) {
	e := newEnv(t, Options{Keys: "status,area", ExcludedFolders: []string{"archive"}})
	e.write(t, "a.md", "area: work/project", "status: Draft")
	e.write(t, "archive/old.md", "status: Draft")
	e.write(t, "none.md", "title: x")
	e.rebuild(t)
	ctx := context.Background()

	id, ok, err := e.svc.Reveal(ctx, "a.md", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "key:area=work/project", id)

	id, ok, err = e.svc.Reveal(ctx, "a.md", true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, facet.RootID, id)

	_, err = e.svc.SetSelection(ctx, []byte("key:status=final"))
	require.NoError(t, err)
	id, ok, _ = e.svc.Reveal(ctx, "a.md", false)
	assert.True(t, ok)
	assert.Equal(t, "key:status=draft", id)

	for _, p := range []string{"archive/old.md", "none.md", "missing.md"} {
		_, ok, err = e.svc.Reveal(ctx, p, false)
		require.NoError(t, err, p)
		assert.False(t, ok, p)
	}
}
