package worker

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ytget/stremio-downloads/internal/dirhandle"
	"github.com/ytget/stremio-downloads/internal/model"
)

func destFile(t *testing.T, name string) (dirhandle.FileHandle, string) {
	t.Helper()
	h, err := dirhandle.NewLocalHandle(t.TempDir())
	require.NoError(t, err)
	fh, err := h.GetFileHandle(context.Background(), name, true)
	require.NoError(t, err)
	return fh, filepath.Join(h.Path(), name)
}

func TestHTTPFetcherRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Length", "5")
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.UserAgent = "test-agent"
	f := NewHTTPFetcher(opts, nil)
	f.initialBackoff = time.Millisecond

	fh, path := destFile(t, "a.mp4")
	var lastDownloaded, lastTotal int64
	err := f.Fetch(context.Background(), Request{ID: "a", URL: srv.URL, Dest: fh, Progress: func(d, total int64) {
		lastDownloaded, lastTotal = d, total
	}})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, int64(5), lastDownloaded)
	assert.Equal(t, int64(5), lastTotal)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestHTTPFetcherRetryLogsCarryJob(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	core, logs := observer.New(zap.WarnLevel)
	f := NewHTTPFetcher(testOptions(), zap.New(core))
	f.initialBackoff = time.Millisecond

	fh, _ := destFile(t, "a.mp4")
	require.NoError(t, f.Fetch(context.Background(), Request{ID: "a", Job: "job-1", URL: srv.URL, Dest: fh}))

	retries := logs.FilterMessage("fetch attempt failed, retrying").All()
	require.Len(t, retries, 1)
	assert.Equal(t, "job-1", retries[0].ContextMap()["job"])
	assert.Equal(t, "a", retries[0].ContextMap()["id"])
}

func TestHTTPFetcherGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testOptions(), nil)
	f.initialBackoff = time.Millisecond

	fh, _ := destFile(t, "a.mp4")
	err := f.Fetch(context.Background(), Request{ID: "a", URL: srv.URL, Dest: fh})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), calls.Load(), "one attempt plus two retries")
}

func TestHTTPFetcherDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testOptions(), nil)
	f.initialBackoff = time.Millisecond

	fh, path := destFile(t, "a.mp4")
	err := f.Fetch(context.Background(), Request{ID: "a", URL: srv.URL, Dest: fh})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())

	assert.NoFileExists(t, path, "failed fetch must not touch the destination")
}

func TestHTTPFetcherShortBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(100))
		_, _ = w.Write([]byte("short"))
	}))
	defer srv.Close()

	f := NewHTTPFetcher(testOptions(), nil)
	fh, _ := destFile(t, "a.mp4")
	err := f.Fetch(context.Background(), Request{ID: "a", URL: srv.URL, Dest: fh})
	require.Error(t, err)
}

type recordingFetcher struct {
	calls int
}

func (r *recordingFetcher) Fetch(context.Context, Request) error {
	r.calls++
	return nil
}

func TestRouter(t *testing.T) {
	tests := []struct {
		url       string
		wantYtdlp bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"https://cdn.example/video.mp4", false},
		{"https://notyoutube.com/x", false},
		{"::bad", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			direct, yt := &recordingFetcher{}, &recordingFetcher{}
			r := NewRouter(direct, yt, []string{"youtube.com", "youtu.be"})
			require.NoError(t, r.Fetch(context.Background(), Request{URL: tt.url}))
			if tt.wantYtdlp {
				assert.Equal(t, 1, yt.calls)
				assert.Zero(t, direct.calls)
			} else {
				assert.Equal(t, 1, direct.calls)
				assert.Zero(t, yt.calls)
			}
		})
	}

	direct := &recordingFetcher{}
	r := NewRouter(direct, nil, []string{"youtube.com"})
	require.NoError(t, r.Fetch(context.Background(), Request{URL: "https://youtube.com/watch"}))
	assert.Equal(t, 1, direct.calls, "without yt-dlp everything goes direct")
}

func TestLargestFileSkipsPartials(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video.mp4"), bytes.Repeat([]byte("x"), 10), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "video.mp4.part"), bytes.Repeat([]byte("x"), 100), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "thumb.jpg"), []byte("x"), 0644))

	got, err := largestFile(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "video.mp4"), got)

	_, err = largestFile(t.TempDir())
	assert.Error(t, err)
}

func TestFilmQuery(t *testing.T) {
	tests := []struct {
		file, name, year string
	}{
		{"Movie (2021).mp4", "Movie", "2021"},
		{"Show - S01E01.mkv", "Show - S01E01", ""},
		{"plain", "plain", ""},
	}
	for _, tt := range tests {
		name, year := filmQuery(tt.file)
		if name != tt.name || year != tt.year {
			t.Errorf("filmQuery(%q) = (%q, %q), expected (%q, %q)", tt.file, name, year, tt.name, tt.year)
		}
	}
}

func zipWith(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestSubDLClient(t *testing.T) {
	archive := zipWith(t, map[string]string{"readme.txt": "hi", "movie.srt": "1\nsub\n"})

	var languages []string
	mux := http.NewServeMux()
	mux.HandleFunc("/api", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "KEY", q.Get("api_key"))
		assert.Equal(t, "Movie", q.Get("film_name"))
		assert.Equal(t, "2021", q.Get("year"))
		languages = append(languages, q.Get("languages"))
		if q.Get("languages") != "EN" {
			_, _ = w.Write([]byte(`{"status":true,"subtitles":[]}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":true,"subtitles":[{"url":"/subtitle/1.zip"}]}`))
	})
	mux.HandleFunc("/dl/subtitle/1.zip", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	opts := testOptions()
	opts.SubDLAPIURL = srv.URL + "/api"
	opts.SubDLDownloadURL = srv.URL + "/dl"
	opts.SubtitleLanguage = "FR"
	c := NewSubDLClient(srv.Client(), opts)

	data, err := c.Fetch(context.Background(), model.DownloadRecord{FileName: "Movie (2021).mp4"}, "KEY")
	require.NoError(t, err)
	assert.Equal(t, "1\nsub\n", string(data))
	assert.Equal(t, []string{"FR", "EN"}, languages, "falls back to English")
}

func TestSubDLClientNoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":false}`))
	}))
	defer srv.Close()

	opts := testOptions()
	opts.SubDLAPIURL = srv.URL
	c := NewSubDLClient(srv.Client(), opts)

	_, err := c.Fetch(context.Background(), model.DownloadRecord{FileName: "x.mp4"}, "KEY")
	assert.True(t, errors.Is(err, ErrNoSubtitles))
}

func TestExtractSRT(t *testing.T) {
	raw := []byte("1\nplain srt\n")
	got, err := extractSRT(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, got)

	_, err = extractSRT(zipWith(t, map[string]string{"a.txt": "x"}))
	assert.ErrorIs(t, err, ErrNoSubtitles)
}
