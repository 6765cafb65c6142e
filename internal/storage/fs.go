package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/diarysum/internal/apperr"
	"github.com/starford/diarysum/internal/checksum"
	"github.com/starford/diarysum/internal/models"
)

const tempPrefix = ".diarysum-tmp-"

// FS implements Provider backed by one local directory.
type FS struct {
	root string // absolute path to the diary folder
}

// NewFS creates a provider rooted at dir. A missing directory or a path
// that is not a directory yields apperr.ErrFolderNotFound.
func NewFS(dir string) (*FS, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("storage: %w: empty folder path", apperr.ErrFolderNotFound)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: %w: %s", apperr.ErrFolderNotFound, abs)
		}
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: %w: not a directory: %s", apperr.ErrFolderNotFound, abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute folder path.
func (f *FS) Root() string { return f.root }

// safePath resolves name against the root and rejects anything that is
// not a plain file name inside it.
func (f *FS) safePath(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("storage: %w: invalid file name %q", apperr.ErrInvalidInput, name)
	}
	if filepath.IsAbs(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("storage: %w: path outside folder: %s", apperr.ErrInvalidInput, name)
	}
	return filepath.Join(f.root, name), nil
}

// List returns metadata for every .md file directly inside the folder.
func (f *FS) List() ([]models.DiaryFile, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	var out []models.DiaryFile
	for _, e := range entries {
		if e.IsDir() || !IsDiary(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("storage: list: %w", err)
		}
		out = append(out, f.describe(info))
	}
	return out, nil
}

// Stat returns metadata for one file, including its checksum.
func (f *FS) Stat(name string) (models.DiaryFile, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return models.DiaryFile{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.DiaryFile{}, wrapNotExist("stat", name, err)
	}
	if info.IsDir() {
		return models.DiaryFile{}, fmt.Errorf("storage: %w: %s is a directory", apperr.ErrInvalidInput, name)
	}
	df := f.describe(info)
	data, err := os.ReadFile(abs)
	if err != nil {
		return models.DiaryFile{}, wrapNotExist("read", name, err)
	}
	df.Checksum = checksum.Sum(data)
	return df, nil
}

// Read returns the raw bytes of a diary file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, wrapNotExist("read", name, err)
	}
	return data, nil
}

// Write atomically writes content: tmp file → fsync → rename. An existing
// file keeps its permission bits.
func (f *FS) Write(name string, content []byte) error {
	abs, err := f.safePath(name)
	if err != nil {
		return err
	}
	mode := fs.FileMode(0o644)
	if info, err := os.Stat(abs); err == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := os.CreateTemp(f.root, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		return fmt.Errorf("storage: chmod temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// IsDiary reports whether a file name is a candidate diary: a visible .md
// file that is not one of our temp files.
func IsDiary(name string) bool {
	return strings.HasSuffix(name, ".md") &&
		!strings.HasPrefix(name, tempPrefix) &&
		!strings.HasPrefix(name, ".")
}

func (f *FS) describe(info fs.FileInfo) models.DiaryFile {
	return models.DiaryFile{
		Name:       info.Name(),
		Path:       filepath.Join(f.root, info.Name()),
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
	}
}

func wrapNotExist(op, name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: %s %s: %w", op, name, apperr.ErrNotFound)
	}
	return fmt.Errorf("storage: %s %s: %w", op, name, err)
}
