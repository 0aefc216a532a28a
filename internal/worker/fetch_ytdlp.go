package worker

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/lrstanley/go-ytdlp"
	"go.uber.org/zap"

	"github.com/ytget/stremio-downloads/internal/logging"
	"github.com/ytget/stremio-downloads/internal/metrics"
	"github.com/ytget/stremio-downloads/internal/platform"
)

// YtdlpFetcher resolves page URLs with yt-dlp. The media is fetched into a
// scratch directory and then copied into the destination handle.
type YtdlpFetcher struct {
	tempRoot string
	interval time.Duration
	log      *zap.Logger
}

// NewYtdlpFetcher returns a fetcher using tempRoot for scratch space
// (os.TempDir when empty).
func NewYtdlpFetcher(tempRoot string, interval time.Duration, log *zap.Logger) *YtdlpFetcher {
	if log == nil {
		log = logging.Nop()
	}
	return &YtdlpFetcher{tempRoot: tempRoot, interval: interval, log: log.Named("ytdlp")}
}

func (f *YtdlpFetcher) Fetch(ctx context.Context, req Request) error {
	tmp, err := os.MkdirTemp(f.tempRoot, "ytdlp-*")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	dl := ytdlp.New().
		ForceOverwrites().
		RestrictFilenames().
		Output(filepath.Join(tmp, "%(title)s.%(ext)s"))

	dl.ProgressFunc(f.interval, func(update ytdlp.ProgressUpdate) {
		req.report(int64(update.DownloadedBytes), int64(update.TotalBytes))
	})

	f.log.Debug("running yt-dlp", zap.String("job", req.Job), zap.String("id", req.ID))
	if _, err := dl.Run(ctx, req.URL); err != nil {
		return fmt.Errorf("yt-dlp: %w", err)
	}

	src, err := largestFile(tmp)
	if err != nil {
		return err
	}
	return copyInto(ctx, src, req)
}

// largestFile picks the media file out of the scratch dir, skipping
// leftovers such as .part files.
func largestFile(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var (
		best     string
		bestSize int64 = -1
	)
	for _, e := range entries {
		if e.IsDir() || platform.IsTemporaryFile(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.Size() > bestSize {
			best, bestSize = filepath.Join(dir, e.Name()), info.Size()
		}
	}
	if best == "" {
		return "", fmt.Errorf("yt-dlp produced no file")
	}
	return best, nil
}

func copyInto(ctx context.Context, src string, req Request) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	w, err := req.Dest.CreateWritable(ctx)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}
	n, err := io.Copy(w, in)
	if err != nil {
		_ = w.Abort()
		return fmt.Errorf("copy %s: %w", req.Dest.Name(), err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", req.Dest.Name(), err)
	}
	req.report(n, info.Size())
	metrics.AddBytesWritten(n)
	return nil
}
