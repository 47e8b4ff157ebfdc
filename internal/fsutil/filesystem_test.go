package fsutil

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestOSFileSystem_Sub(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "logs"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "logs", "a.log"), []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	var osfs OSFileSystem
	sub, err := osfs.Sub(filepath.Join(dir, "logs"))
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	data, err := fs.ReadFile(sub, "a.log")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("expected %q, got %q", "hello", data)
	}

	if _, err := osfs.Sub(filepath.Join(dir, "missing")); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if _, err := osfs.Sub(filepath.Join(dir, "logs", "a.log")); !errors.Is(err, fs.ErrInvalid) {
		t.Errorf("expected ErrInvalid for a file, got %v", err)
	}
}

func TestOSFileSystem_RealPathResolvesSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "a.log")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(dir, "link.log")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	sub, err := OSFileSystem{}.Sub(dir)
	if err != nil {
		t.Fatal(err)
	}
	r, ok := sub.(interface {
		RealPath(string) (string, error)
	})
	if !ok {
		t.Fatal("OS sub filesystem should resolve real paths")
	}
	a, err := r.RealPath("a.log")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.RealPath("link.log")
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("expected same real path, got %q and %q", a, b)
	}
}

func TestOSFileSystem_CreateAndStat(t *testing.T) {
	dir := t.TempDir()
	var osfs OSFileSystem

	out := filepath.Join(dir, "out", "nested")
	if err := osfs.MkdirAll(out, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	w, err := osfs.Create(filepath.Join(out, "f.txt"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("abc")); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	info, err := osfs.Stat(filepath.Join(out, "f.txt"))
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 3 {
		t.Errorf("expected size 3, got %d", info.Size())
	}
}

func TestMemoryFileSystem_SubSnapshot(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("/root/logs/a.log", []byte("a"))
	mfs.AddFile("root/logs/sub/b.log", []byte("b"))
	mfs.AddFile("root/map/m.pcd", []byte("m"))

	sub, err := mfs.Sub("root/logs")
	if err != nil {
		t.Fatalf("Sub failed: %v", err)
	}
	var names []string
	err = fs.WalkDir(sub, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir failed: %v", err)
	}
	if len(names) != 2 || names[0] != "a.log" || names[1] != "sub/b.log" {
		t.Errorf("unexpected files %v", names)
	}

	// Later writes do not leak into an existing snapshot.
	mfs.AddFile("root/logs/c.log", []byte("c"))
	if _, err := fs.Stat(sub, "c.log"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected snapshot isolation, got %v", err)
	}
}

func TestMemoryFileSystem_SubErrors(t *testing.T) {
	mfs := NewMemoryFileSystem()
	mfs.AddFile("logs/a.log", nil)

	if _, err := mfs.Sub("nope"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if _, err := mfs.Sub("logs/a.log"); !errors.Is(err, fs.ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
	if _, err := mfs.Sub("."); err != nil {
		t.Errorf("root Sub failed: %v", err)
	}
}

func TestMemoryFileSystem_CreateCommitsOnClose(t *testing.T) {
	mfs := NewMemoryFileSystem()

	w, err := mfs.Create("/out/created.txt")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := w.Write([]byte("created content")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if data, _ := mfs.ReadFile("out/created.txt"); len(data) != 0 {
		t.Errorf("content visible before Close: %q", data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	data, err := mfs.ReadFile("out/created.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "created content" {
		t.Errorf("expected 'created content', got %q", data)
	}
	if info, err := mfs.Stat("out"); err != nil || !info.IsDir() {
		t.Errorf("expected parent dir, got %v %v", info, err)
	}
}

func TestMemoryFileSystem_MkdirAllAndStat(t *testing.T) {
	mfs := NewMemoryFileSystem()
	if err := mfs.MkdirAll("a/b/c", 0o755); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{"a", "a/b", "a/b/c"} {
		info, err := mfs.Stat(d)
		if err != nil || !info.IsDir() {
			t.Errorf("Stat(%q) = %v, %v", d, info, err)
		}
	}
	mfs.AddFile("f", []byte("1"))
	if err := mfs.MkdirAll("f", 0o755); !errors.Is(err, fs.ErrExist) {
		t.Errorf("expected ErrExist, got %v", err)
	}
	if _, err := mfs.Create("a/b"); !errors.Is(err, fs.ErrExist) {
		t.Errorf("expected ErrExist creating over a dir, got %v", err)
	}
	if _, err := mfs.Stat("missing"); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
	if got := mfs.Files(); len(got) != 1 || got[0] != "f" {
		t.Errorf("Files() = %v", got)
	}
}
