// Package dirhandle models a user-granted, revocable reference to a writable
// download directory and persists the user's choice.
package dirhandle

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrAborted is returned when the user dismisses the directory picker.
	ErrAborted = errors.New("directory selection aborted")

	// ErrPermissionDenied is returned when read-write access is not granted.
	ErrPermissionDenied = errors.New("directory permission denied")

	// ErrInvalidName is returned for entry names that are empty or escape the directory.
	ErrInvalidName = errors.New("invalid entry name")

	// ErrNoPicker is returned by Select when no picker is configured.
	ErrNoPicker = errors.New("no directory picker available")
)

// PermissionState is the result of a permission query.
type PermissionState string

const (
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
	PermissionPrompt  PermissionState = "prompt"
)

// Mode is the access level being asked for.
type Mode string

const (
	ModeRead      Mode = "read"
	ModeReadWrite Mode = "readwrite"
)

// Kind distinguishes files from subdirectories in a listing.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Entry is one item of a directory listing.
type Entry struct {
	Name    string
	Kind    Kind
	Size    int64
	ModTime time.Time
}

// Handle is a capability to a directory. Permission may be revoked at any
// time outside the app, so holders re-query it instead of caching the answer.
type Handle interface {
	Name() string
	Path() string
	QueryPermission(ctx context.Context, mode Mode) (PermissionState, error)
	RequestPermission(ctx context.Context, mode Mode) (PermissionState, error)
	Entries(ctx context.Context) ([]Entry, error)
	GetFileHandle(ctx context.Context, name string, create bool) (FileHandle, error)
	RemoveEntry(ctx context.Context, name string) error
}

// FileHandle is a file inside a directory handle.
type FileHandle interface {
	Name() string
	Size() (int64, error)
	// CreateWritable starts a new version of the file. The content replaces
	// the file only when the writer is closed; Abort discards it.
	CreateWritable(ctx context.Context) (Writable, error)
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Writable is a pending file write.
type Writable interface {
	io.Writer
	Close() error
	Abort() error
}

// Picker shows the platform directory chooser.
type Picker interface {
	// PickDirectory returns ErrAborted when the user dismisses the dialog.
	PickDirectory(ctx context.Context) (Handle, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context) (Handle, error)

func (f PickerFunc) PickDirectory(ctx context.Context) (Handle, error) {
	return f(ctx)
}
