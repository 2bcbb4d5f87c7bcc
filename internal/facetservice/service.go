// Package facetservice owns the live facet tree of a vault: it rebuilds it,
// publishes it atomically and answers selection and reveal queries.
package facetservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/starford/propindex/internal/facet"
	"github.com/starford/propindex/internal/metrics"
	"github.com/starford/propindex/internal/models"
	"github.com/starford/propindex/internal/state"
)

// DefaultChunkSize is the number of files indexed between cancellation checks.
const DefaultChunkSize = 500

// Source is the metadata collaborator: every file for a rebuild, plus a
// single file for reveal.
type Source interface {
	facet.MetadataSource
	Properties(path string) ([]models.Property, error)
}

// Options configures a Service.
type Options struct {
	// Keys is the raw comma-separated list of property keys to index.
	Keys               string
	ExcludedFolders    []string
	IncludeDescendants bool
	ChunkSize          int
	KeyCacheSize       int
}

// Summary describes one successful rebuild.
type Summary struct {
	Generation uint64        `json:"generation"`
	Keys       int           `json:"keys"`
	Values     int           `json:"values"`
	Files      int           `json:"files"`
	Duration   time.Duration `json:"duration_ns"`
}

// Service coordinates the source, the persisted state and the visible tree.
type Service struct {
	src    Source
	store  state.Store
	logger *slog.Logger

	resolver           *facet.KeyResolver
	excluded           []string
	includeDescendants bool
	chunkSize          int

	keys atomic.Pointer[facet.KeySet]
	tree atomic.Pointer[facet.Tree]
	gen  atomic.Uint64

	rebuildMu sync.Mutex
	onRebuilt func(Summary)
}

// New creates a service. The visible tree is empty until the first Rebuild.
func New(src Source, store state.Store, opts Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	s := &Service{
		src:                src,
		store:              store,
		logger:             logger,
		resolver:           facet.NewKeyResolver(opts.KeyCacheSize),
		excluded:           opts.ExcludedFolders,
		includeDescendants: opts.IncludeDescendants,
		chunkSize:          opts.ChunkSize,
	}
	s.keys.Store(s.resolver.Resolve(opts.Keys))
	s.tree.Store(facet.NewBuilder(facet.BuildOptions{Keys: facet.NewKeySet()}).Finish())
	return s
}

// OnRebuilt registers fn to run after every successful rebuild.
func (s *Service) OnRebuilt(fn func(Summary)) { s.onRebuilt = fn }

// Tree returns the currently visible tree. It is never nil.
func (s *Service) Tree() *facet.Tree { return s.tree.Load() }

// Generation counts successful rebuilds.
func (s *Service) Generation() uint64 { return s.gen.Load() }

// KeySet returns the configured keys.
func (s *Service) KeySet() *facet.KeySet { return s.keys.Load() }

// Enabled reports whether any key is configured.
func (s *Service) Enabled() bool { return s.KeySet().Enabled() }

// IncludeDescendants is the configured default for descendant counting.
func (s *Service) IncludeDescendants() bool { return s.includeDescendants }

// SetKeys replaces the configured key list. It reports whether the
// resolved set changed, in which case the caller should rebuild.
func (s *Service) SetKeys(raw string) bool {
	next := s.resolver.Resolve(raw)
	return s.keys.Swap(next) != next
}

// Rebuild indexes the whole source into a new tree and publishes it. On
// failure the previous tree stays visible. Concurrent calls run one at a time.
func (s *Service) Rebuild(ctx context.Context) (Summary, error) {
	s.rebuildMu.Lock()
	defer s.rebuildMu.Unlock()

	start := time.Now()
	keys := s.KeySet()
	b := facet.NewBuilder(facet.BuildOptions{ExcludedFolders: s.excluded, Keys: keys})

	var err error
	if keys.Enabled() {
		n := 0
		err = s.src.ForEachFile(func(path string, props []models.Property) error {
			b.AddFile(path, props)
			n++
			if n%s.chunkSize == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
				runtime.Gosched()
			}
			return nil
		})
		if err == nil {
			err = ctx.Err()
		}
	}
	elapsed := time.Since(start)

	if err != nil {
		result := metrics.ResultError
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result = metrics.ResultCanceled
		}
		metrics.ObserveRebuild(result, elapsed)
		s.record(state.Rebuild{FinishedAt: time.Now(), Duration: elapsed, Result: result, Error: err.Error()})
		s.logger.Error("facets: rebuild failed", slog.String("error", err.Error()), slog.Duration("elapsed", elapsed))
		return Summary{}, fmt.Errorf("facetservice: rebuild: %w", err)
	}

	tree := b.Finish()
	s.tree.Store(tree)
	sum := Summary{
		Generation: s.gen.Add(1),
		Keys:       tree.Len(),
		Values:     tree.ValueCount(),
		Files:      tree.FileCount(),
		Duration:   elapsed,
	}

	metrics.ObserveRebuild(metrics.ResultOK, elapsed)
	metrics.SetTreeSize(sum.Keys, sum.Values, sum.Files)
	s.record(state.Rebuild{
		FinishedAt: time.Now(),
		Duration:   elapsed,
		Files:      sum.Files,
		Keys:       sum.Keys,
		Values:     sum.Values,
		Result:     metrics.ResultOK,
	})
	s.logger.Info("facets: rebuilt",
		slog.Uint64("generation", sum.Generation),
		slog.Int("keys", sum.Keys),
		slog.Int("values", sum.Values),
		slog.Int("files", sum.Files),
		slog.Duration("elapsed", elapsed),
	)
	if s.onRebuilt != nil {
		s.onRebuilt(sum)
	}
	return sum, nil
}

// LastRebuild returns the most recent persisted rebuild, or nil.
func (s *Service) LastRebuild(ctx context.Context) (*state.Rebuild, error) {
	return s.store.LastRebuild(ctx)
}

func (s *Service) record(r state.Rebuild) {
	// The request context may already be cancelled.
	if _, err := s.store.RecordRebuild(context.Background(), r); err != nil {
		s.logger.Warn("facets: record rebuild failed", slog.String("error", err.Error()))
	}
}
