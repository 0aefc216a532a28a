package kvstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/ytget/stremio-downloads/internal/metrics"
)

// Get reads one document. The boolean is false when the key is absent.
func Get[T any](ctx context.Context, s *Store, store, key string) (T, bool, error) {
	defer metrics.ObserveKV("get", time.Now())

	var (
		out   T
		found bool
	)
	err := s.view(ctx, "get", store, key, func(b *bolt.Bucket) error {
		raw := b.Get([]byte(key))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &out)
	})
	return out, found, err
}

// GetAll reads every document of an object store in key order.
func GetAll[T any](ctx context.Context, s *Store, store string) ([]T, error) {
	defer metrics.ObserveKV("get_all", time.Now())

	var out []T
	err := s.view(ctx, "get_all", store, "", func(b *bolt.Bucket) error {
		return b.ForEach(func(k, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return fmt.Errorf("decode %q: %w", k, err)
			}
			out = append(out, item)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set writes value. For an in-line store the key is read from the document
// and key must be omitted; for an out-of-line store exactly one key is required.
func Set(ctx context.Context, s *Store, store string, value any, key ...string) error {
	defer metrics.ObserveKV("set", time.Now())

	raw, err := json.Marshal(value)
	if err != nil {
		return &TxError{Op: "set", Store: store, Err: err}
	}

	keyPath, ok := s.keyPaths[store]
	if !ok {
		return &TxError{Op: "set", Store: store, Err: ErrNoSuchStore}
	}

	var k string
	switch {
	case keyPath != "" && len(key) > 0:
		return &TxError{Op: "set", Store: store, Key: key[0], Err: ErrKeyNotAllowed}
	case keyPath != "":
		k, err = extractKey(raw, keyPath)
		if err != nil {
			return &TxError{Op: "set", Store: store, Err: err}
		}
	case len(key) != 1 || key[0] == "":
		return &TxError{Op: "set", Store: store, Err: ErrKeyRequired}
	default:
		k = key[0]
	}

	return s.update(ctx, "set", store, k, func(b *bolt.Bucket) error {
		return b.Put([]byte(k), raw)
	})
}

// Remove deletes one key. Removing an absent key is not an error.
func Remove(ctx context.Context, s *Store, store, key string) error {
	defer metrics.ObserveKV("remove", time.Now())

	return s.update(ctx, "remove", store, key, func(b *bolt.Bucket) error {
		return b.Delete([]byte(key))
	})
}

// Clear deletes every document of an object store.
func Clear(ctx context.Context, s *Store, store string) error {
	defer metrics.ObserveKV("clear", time.Now())

	return s.update(ctx, "clear", store, "", func(b *bolt.Bucket) error {
		var keys [][]byte
		if err := b.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		}); err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of documents in an object store.
func Count(ctx context.Context, s *Store, store string) (int, error) {
	var n int
	err := s.view(ctx, "count", store, "", func(b *bolt.Bucket) error {
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

func extractKey(doc []byte, keyPath string) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(doc, &fields); err != nil {
		return "", fmt.Errorf("%w: document is not an object", ErrMissingKey)
	}
	raw, ok := fields[keyPath]
	if !ok {
		return "", fmt.Errorf("%w %q", ErrMissingKey, keyPath)
	}

	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		if str == "" {
			return "", fmt.Errorf("%w %q", ErrMissingKey, keyPath)
		}
		return str, nil
	}
	var num json.Number
	if err := json.Unmarshal(raw, &num); err == nil {
		if _, err := strconv.ParseFloat(num.String(), 64); err == nil {
			return num.String(), nil
		}
	}
	return "", fmt.Errorf("%w %q: unsupported key type", ErrMissingKey, keyPath)
}
