package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// WorkerOptions tunes the background worker. Loaded from an optional YAML file.
type WorkerOptions struct {
	UserAgent        string        `yaml:"user_agent"`
	Proxy            string        `yaml:"proxy"`
	ConnectTimeout   time.Duration `yaml:"connect_timeout"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	Retries          int           `yaml:"retries"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	YtdlpHosts       []string      `yaml:"ytdlp_hosts"`
	SubtitleLanguage string        `yaml:"subtitle_language"`
	SubDLAPIURL      string        `yaml:"subdl_api_url"`
	SubDLDownloadURL string        `yaml:"subdl_download_url"`
}

// Worker defaults
const (
	DefaultUserAgent        = "stremio-downloads/1.0"
	DefaultConnectTimeout   = 15 * time.Second
	DefaultReadTimeout      = 60 * time.Second
	DefaultRetries          = 3
	DefaultSubDLAPIURL      = "https://api.subdl.com/api/v1/subtitles"
	DefaultSubDLDownloadURL = "https://dl.subdl.com"
	MaxRetries              = 10
)

// DefaultWorkerOptions returns the options used when no file is given.
func DefaultWorkerOptions() WorkerOptions {
	return WorkerOptions{
		UserAgent:        DefaultUserAgent,
		ConnectTimeout:   DefaultConnectTimeout,
		ReadTimeout:      DefaultReadTimeout,
		Retries:          DefaultRetries,
		ProgressInterval: DefaultProgressIntervalMs * time.Millisecond,
		YtdlpHosts:       []string{"youtube.com", "youtu.be", "vimeo.com"},
		SubtitleLanguage: DefaultSubtitleLanguage,
		SubDLAPIURL:      DefaultSubDLAPIURL,
		SubDLDownloadURL: DefaultSubDLDownloadURL,
	}
}

// LoadWorkerOptions reads path over the defaults. An empty path returns the
// defaults; a path that does not exist is an error.
func LoadWorkerOptions(path string) (WorkerOptions, error) {
	opts := DefaultWorkerOptions()
	if path == "" {
		return opts, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return opts, fmt.Errorf("worker config %s: %w", path, err)
		}
		return opts, fmt.Errorf("read worker config: %w", err)
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, fmt.Errorf("parse worker config %s: %w", path, err)
	}
	opts.normalize()
	return opts, nil
}

func (o *WorkerOptions) normalize() {
	d := DefaultWorkerOptions()
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.ConnectTimeout <= 0 {
		o.ConnectTimeout = d.ConnectTimeout
	}
	if o.ReadTimeout <= 0 {
		o.ReadTimeout = d.ReadTimeout
	}
	if o.Retries < 0 {
		o.Retries = 0
	}
	if o.Retries > MaxRetries {
		o.Retries = MaxRetries
	}
	if o.ProgressInterval <= 0 {
		o.ProgressInterval = d.ProgressInterval
	}
	ms := clampInterval(int(o.ProgressInterval / time.Millisecond))
	o.ProgressInterval = time.Duration(ms) * time.Millisecond
	if o.SubtitleLanguage == "" {
		o.SubtitleLanguage = d.SubtitleLanguage
	}
	if o.SubDLAPIURL == "" {
		o.SubDLAPIURL = d.SubDLAPIURL
	}
	if o.SubDLDownloadURL == "" {
		o.SubDLDownloadURL = d.SubDLDownloadURL
	}
	o.SubDLDownloadURL = strings.TrimSuffix(o.SubDLDownloadURL, "/")
	for i, h := range o.YtdlpHosts {
		o.YtdlpHosts[i] = strings.ToLower(strings.TrimSpace(h))
	}
}
