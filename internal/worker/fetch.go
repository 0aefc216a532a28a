package worker

import (
	"context"
	"net/url"
	"strings"

	"github.com/ytget/stremio-downloads/internal/dirhandle"
)

// ProgressFunc receives the bytes written so far and the expected total
// (0 while unknown). It may be called from any goroutine.
type ProgressFunc func(downloaded, total int64)

// Request describes one fetch.
type Request struct {
	ID       string
	// Job correlates log lines of one download attempt across fetch retries.
	Job      string
	URL      string
	Dest     dirhandle.FileHandle
	Progress ProgressFunc
}

func (r Request) report(downloaded, total int64) {
	if r.Progress != nil {
		r.Progress(downloaded, total)
	}
}

// Fetcher streams a URL into a file handle.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) error
}

// Router sends page URLs of known video sites to yt-dlp and everything else
// to the direct HTTP fetcher.
type Router struct {
	hosts  []string
	ytdlp  Fetcher
	direct Fetcher
}

// NewRouter returns a Router. ytdlp may be nil to disable page extraction.
func NewRouter(direct, ytdlp Fetcher, hosts []string) *Router {
	return &Router{hosts: hosts, ytdlp: ytdlp, direct: direct}
}

func (r *Router) Fetch(ctx context.Context, req Request) error {
	if r.ytdlp != nil && r.matches(req.URL) {
		return r.ytdlp.Fetch(ctx, req)
	}
	return r.direct.Fetch(ctx, req)
}

func (r *Router) matches(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, h := range r.hosts {
		if host == h || strings.HasSuffix(host, "."+h) {
			return true
		}
	}
	return false
}
