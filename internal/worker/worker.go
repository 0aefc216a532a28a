package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ytget/stremio-downloads/internal/dirhandle"
	"github.com/ytget/stremio-downloads/internal/logging"
	"github.com/ytget/stremio-downloads/internal/metrics"
	"github.com/ytget/stremio-downloads/internal/model"
	"github.com/ytget/stremio-downloads/internal/repository"
)

const (
	defaultQueueSize  = 16
	defaultEventsSize = 64
)

// Failure messages persisted on records.
const (
	MsgNoDirectory      = "no download directory selected"
	MsgPermissionDenied = "download directory permission not granted"
)

// Options configures a Worker.
type Options struct {
	ProgressInterval time.Duration
	Subtitles        SubtitleFunc
	Opener           dirhandle.Opener
	Logger           *zap.Logger
}

// Worker processes download commands. Create it with New and start Run.
type Worker struct {
	downloads *repository.Downloads
	fetcher   Fetcher
	subtitles SubtitleFunc
	open      dirhandle.Opener
	interval  time.Duration
	log       *zap.Logger

	commands chan model.WorkerCommand
	events   chan model.WorkerEvent
	kick     chan struct{}

	mu     sync.RWMutex
	handle dirhandle.Handle
	subKey string
}

// New creates a worker writing records through downloads.
func New(downloads *repository.Downloads, fetcher Fetcher, opts Options) *Worker {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = time.Second
	}
	if opts.Opener == nil {
		opts.Opener = dirhandle.OpenRef
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Worker{
		downloads: downloads,
		fetcher:   fetcher,
		subtitles: opts.Subtitles,
		open:      opts.Opener,
		interval:  opts.ProgressInterval,
		log:       opts.Logger.Named("worker"),
		commands:  make(chan model.WorkerCommand, defaultQueueSize),
		events:    make(chan model.WorkerEvent, defaultEventsSize),
		kick:      make(chan struct{}, 1),
	}
}

// Post hands a command to the worker. It blocks only while the command
// queue is full.
func (w *Worker) Post(ctx context.Context, cmd model.WorkerCommand) error {
	select {
	case w.commands <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Events returns the worker's outbound messages.
func (w *Worker) Events() <-chan model.WorkerEvent {
	return w.events
}

// Run processes commands until ctx is done. Downloads run on a separate
// goroutine so directory changes are applied while a fetch is in flight.
func (w *Worker) Run(ctx context.Context) error {
	w.recoverInterrupted(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.processLoop(ctx)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd := <-w.commands:
			w.handleCommand(ctx, cmd)
		}
	}
}

func (w *Worker) handleCommand(ctx context.Context, cmd model.WorkerCommand) {
	switch c := cmd.(type) {
	case model.SetDirectoryHandle:
		if c.Handle.Path == "" {
			w.setHandle(nil)
			return
		}
		h, err := w.open(c.Handle)
		if err != nil {
			w.log.Warn("cannot open directory", zap.String("path", c.Handle.Path), zap.Error(err))
			w.setHandle(nil)
			return
		}
		w.setHandle(h)
		w.log.Info("download directory set", zap.String("path", h.Path()))
		// Resume anything left queued by a previous session.
		w.signal()
	case model.DownloadVideo:
		w.mu.Lock()
		w.subKey = c.SubDLAPIKey
		w.mu.Unlock()
		w.log.Debug("download requested", zap.String("id", c.Download.ID))
		w.signal()
	default:
		w.log.Warn("unknown command", zap.String("type", cmd.Type()))
	}
}

func (w *Worker) setHandle(h dirhandle.Handle) {
	w.mu.Lock()
	w.handle = h
	w.mu.Unlock()
}

func (w *Worker) state() (dirhandle.Handle, string) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.handle, w.subKey
}

func (w *Worker) signal() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

// emit never blocks. Events are triggers to re-read the repository, so a
// pending one already covers a dropped one.
func (w *Worker) emit(ev model.WorkerEvent) {
	select {
	case w.events <- ev:
	default:
	}
}

func (w *Worker) processLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
			w.drain(ctx)
		}
	}
}

// drain processes queued records oldest first until none is left.
func (w *Worker) drain(ctx context.Context) {
	for ctx.Err() == nil {
		rec, ok, err := w.nextQueued(ctx)
		if err != nil {
			w.log.Error("read queue", zap.Error(err))
			return
		}
		if !ok {
			return
		}
		if err := w.process(ctx, rec); err != nil {
			if !errors.Is(err, context.Canceled) {
				w.log.Error("process download", zap.String("id", rec.ID), zap.Error(err))
			}
			return
		}
	}
}

func (w *Worker) nextQueued(ctx context.Context) (model.DownloadRecord, bool, error) {
	recs, err := w.downloads.GetAllDownloads(ctx)
	if err != nil {
		return model.DownloadRecord{}, false, err
	}
	for _, r := range recs {
		if r.Status == model.StatusQueued {
			return r, true, nil
		}
	}
	return model.DownloadRecord{}, false, nil
}

// recoverInterrupted re-queues records a previous process left downloading.
func (w *Worker) recoverInterrupted(ctx context.Context) {
	recs, err := w.downloads.GetAllDownloads(ctx)
	if err != nil {
		w.log.Error("read records", zap.Error(err))
		return
	}
	for _, r := range recs {
		if r.Status != model.StatusDownloading {
			continue
		}
		if _, err := w.downloads.UpdateDownload(ctx, r.ID, repository.Patch{Status: repository.Ptr(model.StatusQueued)}); err != nil {
			w.log.Warn("requeue interrupted download", zap.String("id", r.ID), zap.Error(err))
			continue
		}
		w.log.Info("requeued interrupted download", zap.String("id", r.ID))
	}
}

// process runs one download to a terminal state. The returned error means
// the queue cannot make progress (store failure or shutdown).
func (w *Worker) process(ctx context.Context, rec model.DownloadRecord) error {
	job := uuid.NewString()
	log := w.log.With(
		zap.String("job", job),
		zap.String("id", rec.ID),
		zap.String("file", rec.FileName))

	h, apiKey := w.state()
	if h == nil {
		return w.fail(ctx, rec, errors.New(MsgNoDirectory))
	}
	if state, err := h.QueryPermission(ctx, dirhandle.ModeReadWrite); err != nil || state != dirhandle.PermissionGranted {
		return w.fail(ctx, rec, errors.New(MsgPermissionDenied))
	}

	zero := int64(0)
	if err := w.update(ctx, rec.ID, repository.Patch{
		Status:     repository.Ptr(model.StatusDownloading),
		Downloaded: &zero,
		Total:      &zero,
	}); err != nil {
		return err
	}
	log.Info("download started")

	fh, err := h.GetFileHandle(ctx, rec.FileName, true)
	if err != nil {
		return w.fail(ctx, rec, err)
	}

	reporter := newProgressReporter(ctx, w, rec.ID, w.interval)
	start := time.Now()
	err = w.fetcher.Fetch(ctx, Request{ID: rec.ID, Job: job, URL: rec.StreamURL, Dest: fh, Progress: reporter.report})
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown: leave it queued for the next session.
			_ = w.update(context.WithoutCancel(ctx), rec.ID, repository.Patch{Status: repository.Ptr(model.StatusQueued)})
			return ctx.Err()
		}
		log.Warn("download failed", zap.Error(err))
		return w.fail(ctx, rec, err)
	}

	size, err := fh.Size()
	if err != nil {
		return w.fail(ctx, rec, fmt.Errorf("stat %s: %w", rec.FileName, err))
	}
	if err := w.update(ctx, rec.ID, repository.Patch{
		Status:     repository.Ptr(model.StatusCompleted),
		Downloaded: &size,
		Total:      &size,
	}); err != nil {
		return err
	}
	metrics.RecordFinished(string(model.StatusCompleted))
	log.Info("download completed", zap.Int64("bytes", size), zap.Duration("took", time.Since(start)))

	if apiKey != "" && w.subtitles != nil {
		w.writeSubtitles(ctx, h, rec, apiKey, log)
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, rec model.DownloadRecord, cause error) error {
	msg := cause.Error()
	if err := w.update(ctx, rec.ID, repository.Patch{
		Status: repository.Ptr(model.StatusFailed),
		Error:  &msg,
	}); err != nil {
		return err
	}
	metrics.RecordFinished(string(model.StatusFailed))
	return nil
}

// update persists a patch and announces it. A record deleted meanwhile is
// not an error: the fetch result still lands in the directory.
func (w *Worker) update(ctx context.Context, id string, patch repository.Patch) error {
	rec, err := w.downloads.UpdateDownload(ctx, id, patch)
	if errors.Is(err, repository.ErrNotFound) {
		w.emit(model.DownloadProgress{ID: id})
		return nil
	}
	if err != nil {
		return err
	}
	w.emit(model.DownloadProgress{ID: id, Status: rec.Status})
	return nil
}

func (w *Worker) writeSubtitles(ctx context.Context, h dirhandle.Handle, rec model.DownloadRecord, apiKey string, log *zap.Logger) {
	name := model.SubtitleFileName(rec.FileName)
	data, err := w.subtitles(ctx, rec, apiKey)
	if err != nil {
		log.Info("no subtitles written", zap.Error(err))
		return
	}
	fh, err := h.GetFileHandle(ctx, name, true)
	if err != nil {
		log.Warn("open subtitle file", zap.Error(err))
		return
	}
	wr, err := fh.CreateWritable(ctx)
	if err != nil {
		log.Warn("open subtitle file", zap.Error(err))
		return
	}
	if _, err := wr.Write(data); err != nil {
		_ = wr.Abort()
		log.Warn("write subtitle file", zap.Error(err))
		return
	}
	if err := wr.Close(); err != nil {
		log.Warn("commit subtitle file", zap.Error(err))
		return
	}
	log.Info("subtitles written", zap.String("subtitle", name))
}

// progressReporter persists byte counters at most once per interval. A
// change of the total is persisted immediately.
type progressReporter struct {
	ctx     context.Context
	w       *Worker
	id      string
	limiter *rate.Limiter

	mu    sync.Mutex
	total int64
}

func newProgressReporter(ctx context.Context, w *Worker, id string, interval time.Duration) *progressReporter {
	return &progressReporter{
		ctx:     ctx,
		w:       w,
		id:      id,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (p *progressReporter) report(downloaded, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	allowed := p.limiter.Allow()
	patch := repository.Patch{Downloaded: &downloaded}
	if total != p.total {
		p.total = total
		patch.Total = &total
	} else if !allowed {
		return
	}

	if err := p.w.update(p.ctx, p.id, patch); err != nil && p.ctx.Err() == nil {
		p.w.log.Debug("persist progress", zap.String("id", p.id), zap.Error(err))
	}
}
