package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/diarysum/internal/apperr"
	"github.com/starford/diarysum/internal/checksum"
)

func tempFolder(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	fs, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return fs
}

func TestWriteAndRead(t *testing.T) {
	s := tempFolder(t)
	content := []byte("# Hello\nWorld\n")
	if err := s.Write("diary.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := s.Read("diary.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(got) != string(content) {
		t.Errorf("content mismatch: got %q", got)
	}
}

func TestWritePreservesMode(t *testing.T) {
	s := tempFolder(t)
	path := filepath.Join(s.Root(), "mode.md")
	if err := os.WriteFile(path, []byte("a"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := s.Write("mode.md", []byte("b")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o640 {
		t.Errorf("mode = %v, want 0640", info.Mode().Perm())
	}
}

func TestList_NonRecursive(t *testing.T) {
	s := tempFolder(t)
	_ = s.Write("b.md", []byte("b"))
	_ = s.Write("a.md", []byte("a"))
	_ = s.Write("readme.txt", []byte("not md"))
	_ = s.Write(".hidden.md", []byte("hidden"))
	if err := os.MkdirAll(filepath.Join(s.Root(), "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(s.Root(), "sub", "c.md"), []byte("c"), 0o644); err != nil {
		t.Fatal(err)
	}

	items, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len = %d, want 2: %+v", len(items), items)
	}
	if items[0].Name != "a.md" || items[1].Name != "b.md" {
		t.Errorf("order = %s, %s", items[0].Name, items[1].Name)
	}
	if items[0].Path != filepath.Join(s.Root(), "a.md") {
		t.Errorf("path = %s", items[0].Path)
	}
}

func TestStat(t *testing.T) {
	s := tempFolder(t)
	_ = s.Write("x.md", []byte("hello"))
	df, err := s.Stat("x.md")
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if df.Size != 5 || df.Checksum != checksum.Sum([]byte("hello")) {
		t.Errorf("stat = %+v", df)
	}
	if _, err := s.Stat("missing.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestTraversalBlocked(t *testing.T) {
	s := tempFolder(t)

	cases := []string{
		"../../etc/passwd",
		"../outside.md",
		"/etc/shadow",
		"sub/inner.md",
		"..",
		"",
	}
	for _, p := range cases {
		if _, err := s.Read(p); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Read(%q) err = %v, want ErrInvalidInput", p, err)
		}
		if err := s.Write(p, []byte("x")); err == nil {
			t.Errorf("expected error for write to %q", p)
		}
	}
}

func TestAtomicWriteNoLeftovers(t *testing.T) {
	s := tempFolder(t)
	_ = s.Write("atomic.md", []byte("original content"))

	updated := []byte("updated content")
	if err := s.Write("atomic.md", updated); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, _ := s.Read("atomic.md")
	if string(got) != string(updated) {
		t.Errorf("expected updated content, got %q", got)
	}

	matches, _ := filepath.Glob(filepath.Join(s.root, tempPrefix+"*"))
	if len(matches) != 0 {
		t.Errorf("leftover temp files: %v", matches)
	}
}

func TestNewFS_NonExistentDir(t *testing.T) {
	_, err := NewFS(filepath.Join(t.TempDir(), "does-not-exist"))
	if !errors.Is(err, apperr.ErrFolderNotFound) {
		t.Errorf("err = %v, want ErrFolderNotFound", err)
	}
}

func TestNewFS_FileNotDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.md")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFS(path); !errors.Is(err, apperr.ErrFolderNotFound) {
		t.Errorf("err = %v, want ErrFolderNotFound", err)
	}
}

func TestIsDiary(t *testing.T) {
	cases := map[string]bool{
		"2024-12-20.md":        true,
		"notes.txt":            false,
		".diarysum-tmp-123.md": false,
		".obsidian.md":         false,
		"md":                   false,
	}
	for name, want := range cases {
		if got := IsDiary(name); got != want {
			t.Errorf("IsDiary(%q) = %v, want %v", name, got, want)
		}
	}
}
