// Package storage defines the tutorial content file-system abstraction.
package storage

import "github.com/theaibuilders/ai-builders-tutorial/internal/models"

// Source is a read-only view of the tutorial content tree.
type Source interface {
	// List returns metadata for every .md and .ipynb file under dir
	// (relative to the content root), sorted by path.
	List(dir string) ([]models.FileMeta, error)
	// Read returns the raw bytes of the file at path (relative to the content root).
	Read(path string) ([]byte, error)
}

// Provider is a Source that can also be written to.
type Provider interface {
	Source
	// Write atomically writes content to path (relative to the content root).
	Write(path string, content []byte) error
	// Delete removes the file at path (relative to the content root).
	Delete(path string) error
}
