package download

import (
	"context"

	"github.com/ytget/stremio-downloads/internal/model"
)

// Dispatcher is the channel to the background worker.
type Dispatcher interface {
	Post(ctx context.Context, cmd model.WorkerCommand) error
	Events() <-chan model.WorkerEvent
}

// PlaylistExpander lists the videos of a playlist URL as download entries.
type PlaylistExpander interface {
	Expand(ctx context.Context, series, url string) ([]model.PlaylistEntry, error)
}

// Downloader defines the interface the UI drives.
type Downloader interface {
	SetUpdateCallback(func([]model.DisplayFile))
	AddDownload(ctx context.Context, fileName, streamURL string) (model.DownloadRecord, error)
	AddPlaylist(ctx context.Context, series, url string) ([]model.DownloadRecord, error)
	LoadDownloads(ctx context.Context) ([]model.DisplayFile, error)
	DeleteDownload(ctx context.Context, id string) error
	DeleteFile(ctx context.Context, name string) error
	Downloads() []model.DisplayFile
	GroupedDownloads() []model.SeriesGroup
	SetGroupSeparator(sep string)

	// SelectDirectory shows the directory picker and returns the chosen name
	SelectDirectory(ctx context.Context) (string, error)

	// DirectoryName returns the current download directory name, empty if none
	DirectoryName() string

	// FilePath returns the local path of a file in the download directory
	FilePath(name string) (string, bool)
}

var _ Downloader = (*Service)(nil)
