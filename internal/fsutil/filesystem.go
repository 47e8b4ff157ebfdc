// Package fsutil provides the filesystem seam between the analyzer and disk.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// FileSystem is the set of filesystem operations the analyzer needs.
// Use OSFileSystem for production; MemoryFileSystem for testing.
type FileSystem interface {
	// Sub returns a read-only view rooted at dir, suitable for fs.WalkDir.
	Sub(dir string) (fs.FS, error)

	// Create creates or truncates the named file.
	Create(name string) (io.WriteCloser, error)

	// Stat returns a FileInfo describing the named file or directory.
	Stat(name string) (fs.FileInfo, error)

	// MkdirAll creates a directory and all necessary parents.
	MkdirAll(path string, perm os.FileMode) error
}

// OSFileSystem implements FileSystem using the os package.
type OSFileSystem struct{}

// Sub returns an os.DirFS view of dir that can also resolve symlinks.
func (OSFileSystem) Sub(dir string) (fs.FS, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, &fs.PathError{Op: "sub", Path: dir, Err: fs.ErrInvalid}
	}
	return &dirFS{FS: os.DirFS(dir), root: dir}, nil
}

// Create creates the named file.
func (OSFileSystem) Create(name string) (io.WriteCloser, error) {
	return os.Create(name)
}

// Stat returns file info for the named file.
func (OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	return os.Stat(name)
}

// MkdirAll creates a directory path.
func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// dirFS is an os.DirFS that knows its root on disk.
type dirFS struct {
	fs.FS
	root string
}

// RealPath resolves name, relative to the root, to an absolute path with
// symlinks evaluated. Two names that reach the same file resolve equally.
func (d *dirFS) RealPath(name string) (string, error) {
	p, err := filepath.EvalSymlinks(filepath.Join(d.root, filepath.FromSlash(name)))
	if err != nil {
		return "", err
	}
	return filepath.Abs(p)
}

// MemoryFileSystem provides an in-memory filesystem for testing.
// Names are slash-separated; a leading "/" is ignored.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool
}

// NewMemoryFileSystem creates a new in-memory filesystem.
func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{
		files: make(map[string][]byte),
		dirs:  map[string]bool{".": true},
	}
}

func clean(name string) string {
	name = path.Clean(filepath.ToSlash(name))
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return "."
	}
	return name
}

// AddFile stores data under name and creates its parent directories.
func (m *MemoryFileSystem) AddFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.putLocked(clean(name), data)
}

func (m *MemoryFileSystem) putLocked(name string, data []byte) {
	m.files[name] = append([]byte(nil), data...)
	m.markParentsLocked(path.Dir(name))
}

func (m *MemoryFileSystem) markParentsLocked(dir string) {
	for ; dir != "." && dir != "/"; dir = path.Dir(dir) {
		m.dirs[dir] = true
	}
}

// ReadFile returns a copy of the named file's contents.
func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.files[clean(name)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), data...), nil
}

// Files returns the sorted names of every stored file.
func (m *MemoryFileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Sub snapshots the files under dir into an fstest.MapFS. Later writes are
// not visible through the returned view.
func (m *MemoryFileSystem) Sub(dir string) (fs.FS, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	dir = clean(dir)
	if !m.dirs[dir] {
		if _, isFile := m.files[dir]; isFile {
			return nil, &fs.PathError{Op: "sub", Path: dir, Err: fs.ErrInvalid}
		}
		return nil, &fs.PathError{Op: "sub", Path: dir, Err: fs.ErrNotExist}
	}

	prefix := dir + "/"
	if dir == "." {
		prefix = ""
	}
	snap := fstest.MapFS{}
	for name, data := range m.files {
		if rel, ok := strings.CutPrefix(name, prefix); ok {
			snap[rel] = &fstest.MapFile{Data: append([]byte(nil), data...), Mode: 0o644}
		}
	}
	for d := range m.dirs {
		if rel, ok := strings.CutPrefix(d, prefix); ok && rel != "" && d != "." {
			if _, exists := snap[rel]; !exists {
				snap[rel] = &fstest.MapFile{Mode: fs.ModeDir | 0o755}
			}
		}
	}
	return snap, nil
}

// Create creates or truncates a file. Contents become visible on Close.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name = clean(name)
	if m.dirs[name] {
		return nil, &fs.PathError{Op: "create", Path: name, Err: fs.ErrExist}
	}
	m.putLocked(name, nil)
	return &memFileWriter{fs: m, name: name}, nil
}

// Stat returns file info.
func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	name = clean(name)
	if m.dirs[name] {
		return &memFileInfo{name: path.Base(name), isDir: true}, nil
	}
	data, ok := m.files[name]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return &memFileInfo{name: path.Base(name), size: int64(len(data))}, nil
}

// MkdirAll creates directories.
func (m *MemoryFileSystem) MkdirAll(p string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = clean(p)
	if _, isFile := m.files[p]; isFile {
		return &fs.PathError{Op: "mkdir", Path: p, Err: fs.ErrExist}
	}
	m.markParentsLocked(p)
	return nil
}

// memFileWriter buffers writes until Close.
type memFileWriter struct {
	fs   *MemoryFileSystem
	name string
	buf  bytes.Buffer
}

func (f *memFileWriter) Write(p []byte) (int, error) {
	return f.buf.Write(p)
}

func (f *memFileWriter) Close() error {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	f.fs.putLocked(f.name, f.buf.Bytes())
	return nil
}

// memFileInfo implements fs.FileInfo.
type memFileInfo struct {
	name  string
	size  int64
	isDir bool
}

func (i *memFileInfo) Name() string { return i.name }
func (i *memFileInfo) Size() int64  { return i.size }
func (i *memFileInfo) Mode() os.FileMode {
	if i.isDir {
		return fs.ModeDir | 0o755
	}
	return 0o644
}
func (i *memFileInfo) ModTime() time.Time { return time.Time{} }
func (i *memFileInfo) IsDir() bool        { return i.isDir }
func (i *memFileInfo) Sys() any           { return nil }
