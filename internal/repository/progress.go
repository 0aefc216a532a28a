package repository

import (
	"context"

	"github.com/ytget/stremio-downloads/internal/kvstore"
)

// PlaybackProgress is the last playback position of a stream, written by the
// player and keyed by stream URL.
type PlaybackProgress struct {
	ID          string  `json:"id"`
	CurrentTime float64 `json:"currentTime"`
}

// Progress reads playback markers.
type Progress struct {
	store *kvstore.Store
}

// NewProgress returns a Progress accessor over store.
func NewProgress(store *kvstore.Store) *Progress {
	return &Progress{store: store}
}

// Get returns the marker for streamURL.
func (p *Progress) Get(ctx context.Context, streamURL string) (PlaybackProgress, bool, error) {
	return kvstore.Get[PlaybackProgress](ctx, p.store, StoreProgress, streamURL)
}

// All returns every marker keyed by stream URL.
func (p *Progress) All(ctx context.Context) (map[string]float64, error) {
	items, err := kvstore.GetAll[PlaybackProgress](ctx, p.store, StoreProgress)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(items))
	for _, it := range items {
		out[it.ID] = it.CurrentTime
	}
	return out, nil
}

// Set stores a marker. The player owns these; the download manager only
// writes them in tests and imports.
func (p *Progress) Set(ctx context.Context, streamURL string, seconds float64) error {
	return kvstore.Set(ctx, p.store, StoreProgress, PlaybackProgress{ID: streamURL, CurrentTime: seconds})
}

// Remove deletes the marker for streamURL.
func (p *Progress) Remove(ctx context.Context, streamURL string) error {
	return kvstore.Remove(ctx, p.store, StoreProgress, streamURL)
}
