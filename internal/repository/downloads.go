// Package repository provides typed access to download records and playback
// progress kept in the embedded store.
package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ytget/stremio-downloads/internal/kvstore"
	"github.com/ytget/stremio-downloads/internal/model"
)

var (
	// ErrNotFound is returned when an update targets a record that does not exist.
	ErrNotFound = errors.New("download not found")

	// ErrInvalidDownload is returned for an empty file name or stream URL.
	ErrInvalidDownload = errors.New("invalid download")
)

// Patch holds the fields to change on a record. Nil fields are left alone.
type Patch struct {
	FileName   *string
	Total      *int64
	Downloaded *int64
	Status     *model.Status
	Error      *string
}

// Downloads is the single write path for download records.
type Downloads struct {
	store *kvstore.Store
	now   func() time.Time

	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sync.Mutex
	refs int
}

// Option configures Downloads.
type Option func(*Downloads)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Downloads) {
		d.now = now
	}
}

// NewDownloads returns a repository over store.
func NewDownloads(store *kvstore.Store, opts ...Option) *Downloads {
	d := &Downloads{
		store: store,
		now:   time.Now,
		locks: make(map[string]*keyLock),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// lock serializes read-merge-write cycles for one id.
func (d *Downloads) lock(id string) func() {
	d.mu.Lock()
	l, ok := d.locks[id]
	if !ok {
		l = &keyLock{}
		d.locks[id] = l
	}
	l.refs++
	d.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		d.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(d.locks, id)
		}
		d.mu.Unlock()
	}
}

// AddDownload creates a queued record for streamURL, or returns the existing
// record for that URL unchanged.
func (d *Downloads) AddDownload(ctx context.Context, fileName, streamURL string) (model.DownloadRecord, error) {
	if fileName == "" || streamURL == "" {
		return model.DownloadRecord{}, fmt.Errorf("%w: file name and stream url are required", ErrInvalidDownload)
	}

	id := model.DownloadID(streamURL)
	unlock := d.lock(id)
	defer unlock()

	existing, ok, err := kvstore.Get[model.DownloadRecord](ctx, d.store, StoreDownloads, id)
	if err != nil {
		return model.DownloadRecord{}, err
	}
	if ok {
		return existing, nil
	}

	now := d.now()
	rec := model.DownloadRecord{
		ID:        id,
		FileName:  fileName,
		StreamURL: streamURL,
		Status:    model.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := kvstore.Set(ctx, d.store, StoreDownloads, rec); err != nil {
		return model.DownloadRecord{}, err
	}
	return rec, nil
}

// UpdateDownload merges patch into the record with the given id.
//
// While a record stays in the downloading state its Downloaded counter never
// goes down; a smaller value is ignored. Error is cleared unless the
// resulting status is failed.
func (d *Downloads) UpdateDownload(ctx context.Context, id string, patch Patch) (model.DownloadRecord, error) {
	unlock := d.lock(id)
	defer unlock()

	rec, ok, err := kvstore.Get[model.DownloadRecord](ctx, d.store, StoreDownloads, id)
	if err != nil {
		return model.DownloadRecord{}, err
	}
	if !ok {
		return model.DownloadRecord{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	merged := merge(rec, patch)
	merged.UpdatedAt = d.now()
	if err := kvstore.Set(ctx, d.store, StoreDownloads, merged); err != nil {
		return model.DownloadRecord{}, err
	}
	return merged, nil
}

func merge(rec model.DownloadRecord, p Patch) model.DownloadRecord {
	prev := rec.Status

	if p.FileName != nil && *p.FileName != "" {
		rec.FileName = *p.FileName
	}
	if p.Status != nil {
		rec.Status = *p.Status
	}
	if p.Total != nil {
		rec.Total = *p.Total
	}
	if p.Downloaded != nil {
		n := *p.Downloaded
		if prev == model.StatusDownloading && rec.Status == model.StatusDownloading && n < rec.Downloaded {
			n = rec.Downloaded
		}
		rec.Downloaded = n
	}
	if p.Error != nil {
		rec.Error = *p.Error
	}
	if rec.Status != model.StatusFailed {
		rec.Error = ""
	}
	return rec
}

// GetDownload returns one record.
func (d *Downloads) GetDownload(ctx context.Context, id string) (model.DownloadRecord, bool, error) {
	return kvstore.Get[model.DownloadRecord](ctx, d.store, StoreDownloads, id)
}

// GetAllDownloads returns every record, oldest first.
func (d *Downloads) GetAllDownloads(ctx context.Context) ([]model.DownloadRecord, error) {
	recs, err := kvstore.GetAll[model.DownloadRecord](ctx, d.store, StoreDownloads)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

// DeleteDownload removes a record. Deleting a missing id is not an error.
func (d *Downloads) DeleteDownload(ctx context.Context, id string) error {
	unlock := d.lock(id)
	defer unlock()
	return kvstore.Remove(ctx, d.store, StoreDownloads, id)
}

// Ptr is a convenience for building patches.
func Ptr[T any](v T) *T {
	return &v
}
