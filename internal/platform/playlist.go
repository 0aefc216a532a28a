package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ytget/ytdlp/v2"

	"github.com/ytget/stremio-downloads/internal/model"
)

// DefaultPlaylistTimeout bounds one playlist listing.
const DefaultPlaylistTimeout = 60 * time.Second

// URL parameters and separators
const (
	PlaylistParam  = "list="
	ParamSeparator = "&"
)

// YouTubeVideoURLTemplate builds the page URL of a playlist item
const YouTubeVideoURLTemplate = "https://www.youtube.com/watch?v=%s"

// ErrNotPlaylist is returned for URLs without a playlist id.
var ErrNotPlaylist = errors.New("not a playlist URL")

type playlistItem struct {
	VideoID string
	Title   string
}

type listFunc func(ctx context.Context, playlistID string) ([]playlistItem, error)

func listWithYtdlp(ctx context.Context, playlistID string) ([]playlistItem, error) {
	items, err := ytdlp.New().GetPlaylistItemsAll(ctx, playlistID, 0)
	if err != nil {
		return nil, err
	}
	out := make([]playlistItem, 0, len(items))
	for _, it := range items {
		out = append(out, playlistItem{VideoID: it.VideoID, Title: it.Title})
	}
	return out, nil
}

// PlaylistParser turns a YouTube playlist URL into one download entry per video
type PlaylistParser struct {
	timeout time.Duration
	list    listFunc
}

// NewPlaylistParser creates a parser backed by the ytdlp library
func NewPlaylistParser() *PlaylistParser {
	return &PlaylistParser{
		timeout: DefaultPlaylistTimeout,
		list:    listWithYtdlp,
	}
}

// SetTimeout sets the timeout for listing operations
func (p *PlaylistParser) SetTimeout(timeout time.Duration) {
	p.timeout = timeout
}

// IsPlaylistURL reports whether url carries a playlist id
func IsPlaylistURL(url string) bool {
	return ExtractPlaylistID(url) != ""
}

// ExtractPlaylistID returns the value of the list parameter, or "".
func ExtractPlaylistID(url string) string {
	_, rest, ok := strings.Cut(url, PlaylistParam)
	if !ok {
		return ""
	}
	id, _, _ := strings.Cut(rest, ParamSeparator)
	return id
}

// Expand lists the playlist behind url. Entries are named
// "<series> - NN <title>.mp4" so they group under series; an empty series
// falls back to the playlist id.
func (p *PlaylistParser) Expand(ctx context.Context, series, url string) ([]model.PlaylistEntry, error) {
	id := ExtractPlaylistID(url)
	if id == "" {
		return nil, fmt.Errorf("%s: %w", url, ErrNotPlaylist)
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	items, err := p.list(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list playlist %s: %w", id, err)
	}

	series = SanitizeFileName(series)
	if series == "" {
		series = id
	}
	width := len(fmt.Sprint(len(items)))
	if width < 2 {
		width = 2
	}

	entries := make([]model.PlaylistEntry, 0, len(items))
	for i, it := range items {
		if it.VideoID == "" {
			continue
		}
		title := SanitizeFileName(it.Title)
		if title == "" {
			title = it.VideoID
		}
		entries = append(entries, model.PlaylistEntry{
			FileName:  fmt.Sprintf("%s - %0*d %s.mp4", series, width, i+1, title),
			StreamURL: fmt.Sprintf(YouTubeVideoURLTemplate, it.VideoID),
		})
	}
	return entries, nil
}

// SanitizeFileName replaces characters that are invalid in file names on
// common file systems and trims surrounding spaces and dots.
func SanitizeFileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		if r < 0x20 {
			return -1
		}
		return r
	}, name)
	return strings.Trim(name, " .")
}
