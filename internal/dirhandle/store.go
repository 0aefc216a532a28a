package dirhandle

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ytget/stremio-downloads/internal/kvstore"
	"github.com/ytget/stremio-downloads/internal/logging"
	"github.com/ytget/stremio-downloads/internal/model"
)

// Persistence location of the chosen directory.
const (
	HandleStore = "fileSystemHandles"
	HandleKey   = "download_directory_handle"
)

// Opener turns a persisted reference back into a Handle.
type Opener func(ref model.DirectoryRef) (Handle, error)

// Store owns the persisted download directory. It is the only writer of the
// persisted handle; everyone else goes through Load or Current.
type Store struct {
	kv     *kvstore.Store
	picker Picker
	open   Opener
	log    *zap.Logger

	mu        sync.RWMutex
	current   Handle
	listeners []func(Handle)
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithOpener overrides how persisted references are re-opened.
func WithOpener(open Opener) StoreOption {
	return func(s *Store) {
		s.open = open
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) StoreOption {
	return func(s *Store) {
		s.log = l
	}
}

// NewStore returns a Store. picker may be nil when no chooser is available.
func NewStore(kv *kvstore.Store, picker Picker, opts ...StoreOption) *Store {
	s := &Store{
		kv:     kv,
		picker: picker,
		open:   OpenRef,
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("dirhandle")
	return s
}

// Load reads the persisted handle and re-validates read-write permission.
// A handle that is not granted is cleared and nil is returned; it is never
// handed out again.
func (s *Store) Load(ctx context.Context) (Handle, error) {
	ref, ok, err := kvstore.Get[model.DirectoryRef](ctx, s.kv, HandleStore, HandleKey)
	if err != nil {
		return nil, err
	}
	if !ok || ref.Path == "" {
		s.setCurrent(nil)
		return nil, nil
	}

	h, err := s.open(ref)
	if err != nil {
		s.log.Warn("persisted directory cannot be opened, clearing",
			zap.String("path", ref.Path), zap.Error(err))
		return nil, s.Clear(ctx)
	}

	state, err := h.QueryPermission(ctx, ModeReadWrite)
	if err != nil || state != PermissionGranted {
		s.log.Info("directory permission no longer granted, clearing",
			zap.String("path", ref.Path), zap.String("state", string(state)), zap.Error(err))
		if cerr := s.Clear(ctx); cerr != nil {
			return nil, cerr
		}
		return nil, nil
	}

	s.setCurrent(h)
	return h, nil
}

// Select shows the picker, asks for read-write access and persists the result.
func (s *Store) Select(ctx context.Context) (Handle, error) {
	if s.picker == nil {
		return nil, ErrNoPicker
	}
	h, err := s.picker.PickDirectory(ctx)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, ErrAborted
	}
	return s.grant(ctx, h)
}

// Adopt persists a handle obtained without the picker, such as the default
// Downloads directory.
func (s *Store) Adopt(ctx context.Context, h Handle) (Handle, error) {
	return s.grant(ctx, h)
}

func (s *Store) grant(ctx context.Context, h Handle) (Handle, error) {
	state, err := h.RequestPermission(ctx, ModeReadWrite)
	if err != nil {
		return nil, fmt.Errorf("request permission for %s: %w", h.Name(), err)
	}
	if state != PermissionGranted {
		return nil, fmt.Errorf("%w: %s is %s", ErrPermissionDenied, h.Name(), state)
	}
	if err := kvstore.Set(ctx, s.kv, HandleStore, RefOf(h), HandleKey); err != nil {
		return nil, err
	}
	s.log.Info("download directory selected", zap.String("path", h.Path()))
	s.setCurrent(h)
	return h, nil
}

// Current returns the last validated handle without touching storage, or nil.
func (s *Store) Current() Handle {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Clear forgets the persisted handle.
func (s *Store) Clear(ctx context.Context) error {
	if err := kvstore.Remove(ctx, s.kv, HandleStore, HandleKey); err != nil {
		return err
	}
	s.setCurrent(nil)
	return nil
}

// OnChange registers fn to be called whenever the current handle changes.
// fn receives nil when the handle is cleared.
func (s *Store) OnChange(fn func(Handle)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *Store) setCurrent(h Handle) {
	s.mu.Lock()
	prev := s.current
	s.current = h
	listeners := append([]func(Handle){}, s.listeners...)
	s.mu.Unlock()

	if sameHandle(prev, h) {
		return
	}
	for _, fn := range listeners {
		fn(h)
	}
}

func sameHandle(a, b Handle) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Path() == b.Path()
}
