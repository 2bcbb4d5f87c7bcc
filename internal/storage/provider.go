// Package storage defines the read-only vault file-system abstraction.
package storage

import "github.com/starford/propindex/internal/models"

// Provider is the interface for vault file access. Paths are vault-relative
// and always use forward slashes.
type Provider interface {
	// List returns metadata for every .md file under dir, sorted by path.
	List(dir string) ([]models.NoteMetadata, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
}
