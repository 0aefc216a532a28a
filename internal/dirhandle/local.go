package dirhandle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ytget/stremio-downloads/internal/model"
	"github.com/ytget/stremio-downloads/internal/platform"
)

// LocalHandle is a Handle backed by an OS directory.
type LocalHandle struct {
	name string
	path string
}

// NewLocalHandle returns a handle for dir. The directory does not need to
// exist yet; RequestPermission creates it.
func NewLocalHandle(dir string) (*LocalHandle, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: empty directory path", ErrInvalidName)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", dir, err)
	}
	return &LocalHandle{name: filepath.Base(abs), path: abs}, nil
}

// OpenRef re-opens a persisted or transferred directory reference.
func OpenRef(ref model.DirectoryRef) (Handle, error) {
	h, err := NewLocalHandle(ref.Path)
	if err != nil {
		return nil, err
	}
	if ref.Name != "" {
		h.name = ref.Name
	}
	return h, nil
}

// RefOf returns the serializable reference of a handle.
func RefOf(h Handle) model.DirectoryRef {
	return model.DirectoryRef{Name: h.Name(), Path: h.Path()}
}

func (h *LocalHandle) Name() string { return h.name }
func (h *LocalHandle) Path() string { return h.path }

func (h *LocalHandle) QueryPermission(ctx context.Context, mode Mode) (PermissionState, error) {
	if err := ctx.Err(); err != nil {
		return PermissionDenied, err
	}
	info, err := os.Stat(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		return PermissionPrompt, nil
	}
	if err != nil || !info.IsDir() {
		return PermissionDenied, nil
	}
	if checkAccess(h.path, mode) != nil {
		return PermissionDenied, nil
	}
	return PermissionGranted, nil
}

// RequestPermission creates a missing directory, then reports the resulting state.
func (h *LocalHandle) RequestPermission(ctx context.Context, mode Mode) (PermissionState, error) {
	state, err := h.QueryPermission(ctx, mode)
	if err != nil || state != PermissionPrompt {
		return state, err
	}
	if err := platform.CreateDirectoryIfNotExists(h.path); err != nil {
		return PermissionDenied, nil
	}
	return h.QueryPermission(ctx, mode)
}

// Entries lists regular files and subdirectories, skipping partial downloads.
func (h *LocalHandle) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dirEntries, err := os.ReadDir(h.path)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", h.name, err)
	}

	out := make([]Entry, 0, len(dirEntries))
	for _, de := range dirEntries {
		if platform.IsTemporaryFile(de.Name()) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		e := Entry{Name: de.Name(), ModTime: info.ModTime()}
		switch {
		case info.IsDir():
			e.Kind = KindDirectory
		case info.Mode().IsRegular():
			e.Kind = KindFile
			e.Size = info.Size()
		default:
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetFileHandle returns a handle to name. With create set a missing file is
// not an error, but nothing is written until a writable is committed.
func (h *LocalHandle) GetFileHandle(ctx context.Context, name string, create bool) (FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := h.child(name)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	switch {
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("%s is a directory: %w", name, ErrInvalidName)
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && create:
	default:
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &localFile{name: name, path: p}, nil
}

// RemoveEntry deletes a file. A missing file yields an error matching fs.ErrNotExist.
func (h *LocalHandle) RemoveEntry(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := h.child(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

// child resolves name inside the directory, rejecting anything that is not a
// plain entry name.
func (h *LocalHandle) child(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	p := filepath.Join(h.path, name)
	rel, err := filepath.Rel(h.path, p)
	if err != nil || rel != name {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return p, nil
}

type localFile struct {
	name string
	path string
}

func (f *localFile) Name() string { return f.name }

func (f *localFile) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (f *localFile) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.Open(f.path)
}

func (f *localFile) CreateWritable(ctx context.Context) (Writable, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+f.name+".*.crdownload")
	if err != nil {
		return nil, fmt.Errorf("create writable for %s: %w", f.name, err)
	}
	return &localWritable{tmp: tmp, final: f.path}, nil
}

type localWritable struct {
	tmp   *os.File
	final string
	done  bool
}

func (w *localWritable) Write(p []byte) (int, error) {
	return w.tmp.Write(p)
}

// Close commits the written content atomically.
func (w *localWritable) Close() error {
	if w.done {
		return nil
	}
	w.done = true
	if err := w.tmp.Sync(); err != nil {
		w.tmp.Close()
		os.Remove(w.tmp.Name())
		return err
	}
	if err := w.tmp.Close(); err != nil {
		os.Remove(w.tmp.Name())
		return err
	}
	if err := os.Chmod(w.tmp.Name(), 0644); err != nil {
		os.Remove(w.tmp.Name())
		return err
	}
	if err := os.Rename(w.tmp.Name(), w.final); err != nil {
		os.Remove(w.tmp.Name())
		return err
	}
	return nil
}

func (w *localWritable) Abort() error {
	if w.done {
		return nil
	}
	w.done = true
	w.tmp.Close()
	return os.Remove(w.tmp.Name())
}
