package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"go.uber.org/zap"

	"github.com/ytget/stremio-downloads/internal/config"
	"github.com/ytget/stremio-downloads/internal/dirhandle"
	"github.com/ytget/stremio-downloads/internal/download"
	"github.com/ytget/stremio-downloads/internal/kvstore"
	"github.com/ytget/stremio-downloads/internal/logging"
	"github.com/ytget/stremio-downloads/internal/metrics"
	"github.com/ytget/stremio-downloads/internal/model"
	"github.com/ytget/stremio-downloads/internal/platform"
	"github.com/ytget/stremio-downloads/internal/repository"
	"github.com/ytget/stremio-downloads/internal/ui"
	"github.com/ytget/stremio-downloads/internal/worker"
)

// Version is set during build via -ldflags "-X main.version=X.Y.Z"
var version = "dev"

const (
	AppID   = "com.ytget.stremio-downloads"
	AppName = "Stremio Downloads"

	dbFileName = "downloads.db"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func run() error {
	env := config.LoadEnv()
	if err := logging.Init(logging.Config{
		Level:      env.LogLevel,
		Format:     env.LogFormat,
		OutputPath: env.LogOutput,
	}); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer logging.Sync()
	log := logging.L()
	log.Info("starting", zap.String("version", version))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	myApp := app.NewWithID(AppID)
	myApp.Settings().SetTheme(ui.NewCompactTheme())
	settings := config.NewSettings(myApp)

	dataDir, err := platform.DataDir(env.DataDir)
	if err != nil {
		return err
	}
	kv, err := kvstore.Open(ctx, filepath.Join(dataDir, dbFileName), repository.Schema(), kvstore.Options{Logger: log})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer kv.Close()

	downloads := repository.NewDownloads(kv)
	progress := repository.NewProgress(kv)

	workerOpts, err := config.LoadWorkerOptions(env.WorkerConfig)
	if err != nil {
		return err
	}
	workerOpts.SubtitleLanguage = settings.GetSubtitleLanguage()

	scratch := filepath.Join(dataDir, "tmp")
	if err := platform.CreateDirectoryIfNotExists(scratch); err != nil {
		return err
	}
	direct := worker.NewHTTPFetcher(workerOpts, log)
	ytdlp := worker.NewYtdlpFetcher(scratch, settings.GetProgressInterval(), log)
	subdl := worker.NewSubDLClient(direct.Client(), workerOpts)

	w := worker.New(downloads, worker.NewRouter(direct, ytdlp, workerOpts.YtdlpHosts), worker.Options{
		ProgressInterval: settings.GetProgressInterval(),
		Subtitles:        subdl.Fetch,
		Logger:           log,
	})
	go func() {
		if err := w.Run(ctx); err != nil {
			log.Error("worker stopped", zap.Error(err))
		}
	}()

	window := myApp.NewWindow(fmt.Sprintf("%s v%s", AppName, version))
	window.Resize(fyne.NewSize(ui.WindowWidth, ui.WindowHeight))

	dirs := dirhandle.NewStore(kv, ui.NewFolderPicker(window), dirhandle.WithLogger(log))
	svc := download.NewService(downloads, progress, dirs, w,
		download.WithGroupSeparator(settings.GetGroupSeparator()),
		download.WithSubDLKey(settings.GetSubDLAPIKey),
		download.WithPlaylistExpander(platform.NewPlaylistParser()),
		download.WithLogger(log),
	)

	watcher := &dirWatcher{enabled: env.WatchDir, refresh: svc.Refresh, log: log}
	dirs.OnChange(func(h dirhandle.Handle) {
		var ref model.DirectoryRef
		if h != nil {
			ref = dirhandle.RefOf(h)
		}
		if err := w.Post(ctx, model.SetDirectoryHandle{Handle: ref}); err != nil {
			log.Warn("post directory to worker", zap.Error(err))
		}
		watcher.restart(ctx, h)
		svc.Refresh()
	})

	if err := loadDirectory(ctx, dirs, settings, log); err != nil {
		log.Warn("load download directory", zap.Error(err))
	}

	go func() {
		if err := svc.Run(ctx); err != nil {
			log.Error("download service stopped", zap.Error(err))
		}
	}()

	if env.MetricsAddr != "" {
		go serveMetrics(ctx, env.MetricsAddr, log)
	}

	ui.NewRootUI(ctx, window, myApp, svc, settings)
	if _, err := svc.LoadDownloads(ctx); err != nil {
		log.Error("load downloads", zap.Error(err))
	}

	go func() {
		<-ctx.Done()
		fyne.Do(myApp.Quit)
	}()

	window.ShowAndRun()
	stop()
	return nil
}

// loadDirectory restores the persisted download directory. When the user does
// not want to pick one, the platform Downloads directory is used instead.
func loadDirectory(ctx context.Context, dirs *dirhandle.Store, settings *config.Settings, log *zap.Logger) error {
	h, err := dirs.Load(ctx)
	if err != nil {
		return err
	}
	if h != nil || settings.GetUseDirectoryHandle() {
		return nil
	}

	dir, err := platform.GetHomeDownloadsDir()
	if err != nil {
		return err
	}
	local, err := dirhandle.NewLocalHandle(dir)
	if err != nil {
		return err
	}
	if _, err := dirs.Adopt(ctx, local); err != nil {
		return err
	}
	log.Info("using default downloads directory", zap.String("dir", dir))
	return nil
}

func serveMetrics(ctx context.Context, addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server", zap.Error(err))
	}
}

// dirWatcher keeps one directory watch running for the current handle
type dirWatcher struct {
	enabled bool
	refresh func()
	log     *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (d *dirWatcher) restart(ctx context.Context, h dirhandle.Handle) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if !d.enabled || h == nil {
		return
	}

	watchCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	go func() {
		if err := dirhandle.Watch(watchCtx, h, dirhandle.DefaultDebounce, d.refresh); err != nil && watchCtx.Err() == nil {
			d.log.Warn("watch download directory", zap.String("dir", h.Path()), zap.Error(err))
		}
	}()
}
