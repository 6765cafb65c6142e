// Package storage defines the diary folder abstraction.
package storage

import "github.com/starford/diarysum/internal/models"

// Provider is the interface for diary folder operations. Names are file
// names directly inside the folder; subdirectories are never visited.
type Provider interface {
	// Root returns the absolute folder path.
	Root() string
	// List returns metadata for every .md file in the folder, sorted by name.
	List() ([]models.DiaryFile, error)
	// Stat returns metadata for one file.
	Stat(name string) (models.DiaryFile, error)
	// Read returns the raw bytes of the named file.
	Read(name string) ([]byte, error)
	// Write atomically replaces the named file.
	Write(name string, content []byte) error
}
