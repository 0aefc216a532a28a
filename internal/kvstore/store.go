package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/ytget/stremio-downloads/internal/logging"
)

const (
	metaBucket = "__meta"
	metaKey    = "schema"

	// DefaultTimeout bounds how long Open waits for the file lock.
	DefaultTimeout = 5 * time.Second

	fileMode = 0600
)

// StoreSpec declares one object store. An empty KeyPath means keys are
// supplied out-of-line by the caller.
type StoreSpec struct {
	Name    string
	KeyPath string
}

// Schema is the versioned set of object stores.
type Schema struct {
	Version int
	Stores  []StoreSpec
}

func (s Schema) keyPaths() map[string]string {
	m := make(map[string]string, len(s.Stores))
	for _, st := range s.Stores {
		m[st.Name] = st.KeyPath
	}
	return m
}

// Options configures a Store.
type Options struct {
	Timeout time.Duration
	Logger  *zap.Logger
}

type schemaRecord struct {
	Version  int               `json:"version"`
	KeyPaths map[string]string `json:"keyPaths"`
}

// Store is a lazily opened database. All callers share one bbolt handle.
type Store struct {
	path     string
	schema   Schema
	keyPaths map[string]string
	timeout  time.Duration
	log      *zap.Logger

	once sync.Once
	db   *bolt.DB
	err  error

	closeMu sync.Mutex
	closed  bool
}

// New returns a Store that opens path on first use.
func New(path string, schema Schema, opts Options) *Store {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Store{
		path:     path,
		schema:   schema,
		keyPaths: schema.keyPaths(),
		timeout:  opts.Timeout,
		log:      opts.Logger.Named("kvstore"),
	}
}

// Open creates a Store and opens it immediately, running any schema upgrade.
func Open(ctx context.Context, path string, schema Schema, opts Options) (*Store, error) {
	s := New(path, schema, opts)
	if _, err := s.DB(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// DB returns the underlying database, opening and upgrading it on the first
// call. Concurrent callers wait for the same open and share its result.
func (s *Store) DB(ctx context.Context) (*bolt.DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, &TxError{Op: "open", Err: err}
	}
	s.once.Do(func() {
		s.db, s.err = s.open()
	})
	return s.db, s.err
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) open() (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return nil, &TxError{Op: "open", Err: err}
	}

	db, err := bolt.Open(s.path, fileMode, &bolt.Options{Timeout: s.timeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, &TxError{Op: "open", Err: fmt.Errorf("%w: %s", ErrBlocked, s.path)}
		}
		return nil, &TxError{Op: "open", Err: err}
	}

	if err := db.Update(s.upgrade); err != nil {
		_ = db.Close()
		return nil, &TxError{Op: "upgrade", Err: err}
	}
	return db, nil
}

func (s *Store) upgrade(tx *bolt.Tx) error {
	meta, err := tx.CreateBucketIfNotExists([]byte(metaBucket))
	if err != nil {
		return err
	}

	var rec schemaRecord
	if raw := meta.Get([]byte(metaKey)); raw != nil {
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("decode schema record: %w", err)
		}
	}
	if rec.Version > s.schema.Version {
		return fmt.Errorf("%w: have %d, want %d", ErrVersionDowngrade, rec.Version, s.schema.Version)
	}

	if rec.Version < s.schema.Version {
		s.log.Info("upgrading schema",
			zap.String("path", s.path),
			zap.Int("from", rec.Version),
			zap.Int("to", s.schema.Version))

		for _, spec := range s.schema.Stores {
			b := tx.Bucket([]byte(spec.Name))
			if b == nil {
				continue
			}
			if recorded := rec.KeyPaths[spec.Name]; recorded != spec.KeyPath {
				dropped := b.Stats().KeyN
				if err := tx.DeleteBucket([]byte(spec.Name)); err != nil {
					return fmt.Errorf("drop %s: %w", spec.Name, err)
				}
				s.log.Warn("key path changed, object store recreated",
					zap.String("store", spec.Name),
					zap.String("old_key_path", recorded),
					zap.String("new_key_path", spec.KeyPath),
					zap.Int("dropped_entries", dropped))
			}
		}
	}

	for _, spec := range s.schema.Stores {
		if _, err := tx.CreateBucketIfNotExists([]byte(spec.Name)); err != nil {
			return fmt.Errorf("create %s: %w", spec.Name, err)
		}
	}

	raw, err := json.Marshal(schemaRecord{Version: s.schema.Version, KeyPaths: s.keyPaths})
	if err != nil {
		return err
	}
	return meta.Put([]byte(metaKey), raw)
}

// Close closes the database if it was opened.
func (s *Store) Close() error {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	// Prevent a later lazy open after Close.
	s.once.Do(func() {
		s.err = &TxError{Op: "open", Err: bolt.ErrDatabaseNotOpen}
	})
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) bucket(tx *bolt.Tx, store string) (*bolt.Bucket, error) {
	if _, ok := s.keyPaths[store]; !ok {
		return nil, ErrNoSuchStore
	}
	b := tx.Bucket([]byte(store))
	if b == nil {
		return nil, ErrNoSuchStore
	}
	return b, nil
}

func (s *Store) view(ctx context.Context, op, store, key string, fn func(b *bolt.Bucket) error) error {
	db, err := s.DB(ctx)
	if err != nil {
		return err
	}
	err = db.View(func(tx *bolt.Tx) error {
		b, err := s.bucket(tx, store)
		if err != nil {
			return err
		}
		return fn(b)
	})
	if err != nil {
		return &TxError{Op: op, Store: store, Key: key, Err: err}
	}
	return nil
}

func (s *Store) update(ctx context.Context, op, store, key string, fn func(b *bolt.Bucket) error) error {
	db, err := s.DB(ctx)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return &TxError{Op: op, Store: store, Key: key, Err: err}
	}
	err = db.Update(func(tx *bolt.Tx) error {
		b, err := s.bucket(tx, store)
		if err != nil {
			return err
		}
		return fn(b)
	})
	if err != nil {
		return &TxError{Op: op, Store: store, Key: key, Err: err}
	}
	return nil
}
