package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ytget/stremio-downloads/internal/dirhandle"
	"github.com/ytget/stremio-downloads/internal/logging"
	"github.com/ytget/stremio-downloads/internal/metrics"
	"github.com/ytget/stremio-downloads/internal/model"
	"github.com/ytget/stremio-downloads/internal/repository"
)

var (
	// ErrFileRemoval wraps failures of the best-effort cleanup after a record
	// was deleted. The record itself is gone when this is returned.
	ErrFileRemoval = errors.New("file removal failed")

	// ErrNoPlaylists is returned by AddPlaylist when no expander is configured.
	ErrNoPlaylists = errors.New("playlists are not supported")

	// ErrNoDirectory is returned by operations that need a download directory.
	ErrNoDirectory = errors.New("no download directory selected")
)

// Service coordinates records, the worker and the download directory
type Service struct {
	downloads  *repository.Downloads
	progress   *repository.Progress
	dirs       *dirhandle.Store
	dispatcher Dispatcher
	separator  string
	subDLKey   func() string
	playlists  PlaylistExpander
	log        *zap.Logger

	mu       sync.RWMutex
	files    []model.DisplayFile
	inList   map[string]struct{}
	onUpdate func([]model.DisplayFile) // callback for UI updates

	refresh chan struct{}
}

// Option configures a Service
type Option func(*Service)

// WithGroupSeparator sets the series separator used by GroupedDownloads
func WithGroupSeparator(sep string) Option {
	return func(s *Service) {
		if sep != "" {
			s.separator = sep
		}
	}
}

// WithSubDLKey sets the source of the subtitle API key sent with each dispatch
func WithSubDLKey(key func() string) Option {
	return func(s *Service) {
		s.subDLKey = key
	}
}

// WithPlaylistExpander enables AddPlaylist
func WithPlaylistExpander(e PlaylistExpander) Option {
	return func(s *Service) {
		s.playlists = e
	}
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		s.log = l
	}
}

// NewService creates a new download service
func NewService(downloads *repository.Downloads, progress *repository.Progress, dirs *dirhandle.Store, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		downloads:  downloads,
		progress:   progress,
		dirs:       dirs,
		dispatcher: dispatcher,
		separator:  model.DefaultGroupSeparator,
		subDLKey:   func() string { return "" },
		log:        logging.Nop(),
		inList:     make(map[string]struct{}),
		refresh:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("download")
	return s
}

// SetUpdateCallback sets the callback invoked with the new list after every change
func (s *Service) SetUpdateCallback(callback func([]model.DisplayFile)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUpdate = callback
}

// AddDownload creates or reuses the record for streamURL and dispatches it to
// the worker when it is not in the current list yet. A failed record is
// queued again and re-dispatched.
func (s *Service) AddDownload(ctx context.Context, fileName, streamURL string) (model.DownloadRecord, error) {
	rec, err := s.downloads.AddDownload(ctx, fileName, streamURL)
	if err != nil {
		return model.DownloadRecord{}, err
	}

	outcome := "existing"
	dispatch := false
	if rec.Status == model.StatusFailed {
		zero := int64(0)
		rec, err = s.downloads.UpdateDownload(ctx, rec.ID, repository.Patch{
			Status:     repository.Ptr(model.StatusQueued),
			Downloaded: &zero,
		})
		if err != nil {
			return model.DownloadRecord{}, err
		}
		outcome = "retried"
		dispatch = true
	}

	s.mu.Lock()
	if _, ok := s.inList[rec.ID]; !ok {
		s.inList[rec.ID] = struct{}{}
		s.files = append(s.files, model.FromRecord(rec))
		outcome = "new"
		dispatch = true
	} else if outcome == "retried" {
		s.replaceLocked(model.FromRecord(rec))
	}
	s.mu.Unlock()
	metrics.RecordAdd(outcome)

	if dispatch {
		if err := s.dispatcher.Post(ctx, model.DownloadVideo{Download: rec, SubDLAPIKey: s.subDLKey()}); err != nil {
			return rec, fmt.Errorf("dispatch %s: %w", rec.ID, err)
		}
		metrics.RecordDispatch()
		s.log.Info("download dispatched", zap.String("id", rec.ID), zap.String("file", rec.FileName), zap.String("outcome", outcome))
	}

	s.notifyUpdate()
	return rec, nil
}

func (s *Service) replaceLocked(f model.DisplayFile) {
	for i := range s.files {
		if s.files[i].ID == f.ID {
			s.files[i] = f
			return
		}
	}
}

// AddPlaylist expands a playlist URL and adds every entry in playlist order.
// Entries added before a failure stay added and are returned with the error.
func (s *Service) AddPlaylist(ctx context.Context, series, url string) ([]model.DownloadRecord, error) {
	if s.playlists == nil {
		return nil, ErrNoPlaylists
	}
	entries, err := s.playlists.Expand(ctx, series, url)
	if err != nil {
		return nil, err
	}

	recs := make([]model.DownloadRecord, 0, len(entries))
	for _, e := range entries {
		rec, err := s.AddDownload(ctx, e.FileName, e.StreamURL)
		if err != nil {
			return recs, fmt.Errorf("add %s: %w", e.FileName, err)
		}
		recs = append(recs, rec)
	}
	s.log.Info("playlist added", zap.String("url", url), zap.Int("entries", len(recs)))
	return recs, nil
}

// LoadDownloads re-derives the display list from the repository, the
// directory and playback progress. Concurrent calls are allowed; the last
// one to finish wins.
func (s *Service) LoadDownloads(ctx context.Context) ([]model.DisplayFile, error) {
	start := time.Now()

	var (
		records  []model.DownloadRecord
		scan     []model.DirEntry
		progress map[string]float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.downloads.GetAllDownloads(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		progress, err = s.progress.All(gctx)
		return err
	})
	g.Go(func() error {
		scan = s.scanDirectory(gctx)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	files := Reconcile(records, scan, progress)
	metrics.ObserveReconcile(time.Since(start))

	inList := make(map[string]struct{}, len(records))
	for _, r := range records {
		inList[r.ID] = struct{}{}
	}

	s.mu.Lock()
	s.files = files
	s.inList = inList
	s.mu.Unlock()

	s.notifyUpdate()
	return cloneFiles(files), nil
}

// scanDirectory lists the current directory. Failures are logged and yield
// no entries since the handle can be revoked at any time.
func (s *Service) scanDirectory(ctx context.Context) []model.DirEntry {
	h := s.dirs.Current()
	if h == nil {
		return nil
	}
	entries, err := h.Entries(ctx)
	if err != nil {
		metrics.RecordScanError()
		s.log.Warn("scan download directory", zap.String("dir", h.Name()), zap.Error(err))
		return nil
	}
	out := make([]model.DirEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind != dirhandle.KindFile {
			continue
		}
		out = append(out, model.DirEntry{Name: e.Name, Size: e.Size, ModTime: e.ModTime})
	}
	return out
}

// DeleteDownload deletes the record, then removes its file, companion
// subtitle and playback marker. Cleanup failures are returned wrapped in
// ErrFileRemoval; the record is deleted regardless. A file that is already
// gone is not a failure.
func (s *Service) DeleteDownload(ctx context.Context, id string) error {
	rec, found, err := s.downloads.GetDownload(ctx, id)
	if err != nil {
		return err
	}
	if err := s.downloads.DeleteDownload(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.inList, id)
	s.files = removeFile(s.files, func(f model.DisplayFile) bool { return f.ID == id })
	s.mu.Unlock()

	var errs []error
	if found {
		if err := s.removeFiles(ctx, rec.FileName); err != nil {
			errs = append(errs, err)
		}
		if err := s.progress.Remove(ctx, rec.StreamURL); err != nil {
			errs = append(errs, fmt.Errorf("remove playback progress: %w", err))
		}
	}

	s.notifyUpdate()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrFileRemoval, errors.Join(errs...))
	}
	s.log.Info("download deleted", zap.String("id", id))
	return nil
}

// DeleteFile removes a file that has no record, such as one left by an
// earlier session.
func (s *Service) DeleteFile(ctx context.Context, name string) error {
	if s.dirs.Current() == nil {
		return ErrNoDirectory
	}
	err := s.removeFiles(ctx, name)

	s.mu.Lock()
	s.files = removeFile(s.files, func(f model.DisplayFile) bool {
		return f.Source == model.SourceDirectory && f.Name == name
	})
	s.mu.Unlock()
	s.notifyUpdate()

	if err != nil {
		return fmt.Errorf("%w: %w", ErrFileRemoval, err)
	}
	return nil
}

func (s *Service) removeFiles(ctx context.Context, name string) error {
	h := s.dirs.Current()
	if h == nil {
		return nil
	}
	var errs []error
	for _, n := range []string{name, model.SubtitleFileName(name)} {
		err := h.RemoveEntry(ctx, n)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		metrics.RecordFileRemovalError()
		s.log.Warn("remove file", zap.String("file", n), zap.Error(err))
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func removeFile(files []model.DisplayFile, match func(model.DisplayFile) bool) []model.DisplayFile {
	out := files[:0:0]
	for _, f := range files {
		if !match(f) {
			out = append(out, f)
		}
	}
	return out
}

// Downloads returns a snapshot of the current list
func (s *Service) Downloads() []model.DisplayFile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneFiles(s.files)
}

// GroupedDownloads returns the current list grouped by series
func (s *Service) GroupedDownloads() []model.SeriesGroup {
	s.mu.RLock()
	sep := s.separator
	s.mu.RUnlock()
	return GroupDownloads(s.Downloads(), sep)
}

// SetGroupSeparator changes the series separator. Empty restores the default.
func (s *Service) SetGroupSeparator(sep string) {
	if sep == "" {
		sep = model.DefaultGroupSeparator
	}
	s.mu.Lock()
	s.separator = sep
	s.mu.Unlock()
	s.notifyUpdate()
}

// SelectDirectory asks the user for a download directory. ErrAborted and
// ErrPermissionDenied from dirhandle are expected outcomes.
func (s *Service) SelectDirectory(ctx context.Context) (string, error) {
	h, err := s.dirs.Select(ctx)
	if err != nil {
		return "", err
	}
	s.Refresh()
	return h.Name(), nil
}

// DirectoryName returns the current directory name, empty if none
func (s *Service) DirectoryName() string {
	if h := s.dirs.Current(); h != nil {
		return h.Name()
	}
	return ""
}

// FilePath returns the local path of name inside the download directory
func (s *Service) FilePath(name string) (string, bool) {
	h := s.dirs.Current()
	if h == nil || name == "" {
		return "", false
	}
	return filepath.Join(h.Path(), name), true
}

// Refresh schedules a LoadDownloads on the Run loop. It never blocks.
func (s *Service) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Run reloads the list on every worker event and every Refresh until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	events := s.dispatcher.Events()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			switch e := ev.(type) {
			case model.DownloadProgress:
				s.log.Debug("worker progress", zap.String("id", e.ID), zap.String("status", string(e.Status)))
			default:
				s.log.Warn("unknown worker event", zap.String("type", ev.Type()))
				continue
			}
			s.reload(ctx)
		case <-s.refresh:
			s.reload(ctx)
		}
	}
}

func (s *Service) reload(ctx context.Context) {
	if _, err := s.LoadDownloads(ctx); err != nil && ctx.Err() == nil {
		s.log.Error("reload downloads", zap.Error(err))
	}
}

// notifyUpdate calls the update callback if set
func (s *Service) notifyUpdate() {
	s.mu.RLock()
	cb := s.onUpdate
	files := cloneFiles(s.files)
	s.mu.RUnlock()
	if cb != nil {
		cb(files)
	}
}

func cloneFiles(files []model.DisplayFile) []model.DisplayFile {
	out := make([]model.DisplayFile, len(files))
	copy(out, files)
	return out
}
