// Package source adapts a Markdown vault into a facet.MetadataSource.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/starford/propindex/internal/apperr"
	"github.com/starford/propindex/internal/models"
	"github.com/starford/propindex/internal/parser"
	"github.com/starford/propindex/internal/storage"
)

type cached struct {
	checksum string
	props    []models.Property
}

// Vault reads frontmatter properties from every note of a storage.Provider.
// Parsed properties are reused while a file's checksum is unchanged.
type Vault struct {
	store  storage.Provider
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cached
}

// NewVault creates a Vault over store.
func NewVault(store storage.Provider, logger *slog.Logger) *Vault {
	if logger == nil {
		logger = slog.Default()
	}
	return &Vault{store: store, logger: logger, cache: make(map[string]cached)}
}

// ForEachFile implements facet.MetadataSource. Files are visited in path
// order; cache entries of files that no longer exist are dropped.
func (v *Vault) ForEachFile(fn func(path string, props []models.Property) error) error {
	metas, err := v.store.List("")
	if err != nil {
		return fmt.Errorf("source: list: %w", err)
	}

	seen := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		seen[m.Path] = struct{}{}
		props, ok := v.load(m)
		if !ok {
			continue
		}
		if err := fn(m.Path, props); err != nil {
			return err
		}
	}
	v.prune(seen)
	return nil
}

// Properties returns the current properties of one note, read from disk.
func (v *Vault) Properties(path string) ([]models.Property, error) {
	data, err := v.store.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("source: %s: %w", path, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("source: %w", err)
	}
	return v.parse(path, storage.Checksum(data), data), nil
}

// CachedFiles returns the number of notes with parsed properties in memory.
func (v *Vault) CachedFiles() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.cache)
}

func (v *Vault) load(m models.NoteMetadata) ([]models.Property, bool) {
	v.mu.Lock()
	c, ok := v.cache[m.Path]
	v.mu.Unlock()
	if ok && c.checksum == m.Checksum {
		return c.props, true
	}

	data, err := v.store.Read(m.Path)
	if err != nil {
		// Removed between List and Read; the next pass will not see it.
		v.logger.Warn("source: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		return nil, false
	}
	return v.parse(m.Path, storage.Checksum(data), data), true
}

func (v *Vault) parse(path, sum string, data []byte) []models.Property {
	v.mu.Lock()
	if c, ok := v.cache[path]; ok && c.checksum == sum {
		v.mu.Unlock()
		return c.props
	}
	v.mu.Unlock()

	res, err := parser.Parse(data)
	if err != nil {
		v.logger.Debug("source: parse failed", slog.String("path", path), slog.String("error", err.Error()))
		return nil
	}
	v.logger.Debug("source: parsed", slog.String("path", path), slog.Int("properties", len(res.Properties)))

	v.mu.Lock()
	v.cache[path] = cached{checksum: sum, props: res.Properties}
	v.mu.Unlock()
	return res.Properties
}

func (v *Vault) prune(seen map[string]struct{}) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for p := range v.cache {
		if _, ok := seen[p]; !ok {
			delete(v.cache, p)
		}
	}
}
