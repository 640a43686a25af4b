package fsutil

import (
	"errors"
	"io/fs"
	"testing"
)

func TestMemoryFileSystemReadWrite(t *testing.T) {
	m := NewMemoryFileSystem()

	if err := m.WriteFile("clouds/scene.bin", []byte{1, 2, 3}, 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := m.ReadFile("clouds/scene.bin")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(data) != 3 || data[0] != 1 {
		t.Errorf("unexpected data: %v", data)
	}

	// Mutating the returned slice must not change the stored copy.
	data[0] = 9
	again, _ := m.ReadFile("clouds/scene.bin")
	if again[0] != 1 {
		t.Error("ReadFile returned aliased storage")
	}
}

func TestMemoryFileSystemMissing(t *testing.T) {
	m := NewMemoryFileSystem()
	_, err := m.ReadFile("absent.bin")
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected fs.ErrNotExist, got %v", err)
	}
	if m.Exists("absent.bin") {
		t.Error("Exists should be false for missing file")
	}
}

func TestMemoryFileSystemMkdirAll(t *testing.T) {
	m := NewMemoryFileSystem()
	if err := m.MkdirAll("a/b/c", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	for _, p := range []string{"a", "a/b", "a/b/c"} {
		if !m.Exists(p) {
			t.Errorf("expected directory %q to exist", p)
		}
	}
}
