package worker

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ytget/stremio-downloads/internal/config"
	"github.com/ytget/stremio-downloads/internal/model"
)

// SubtitleFunc returns subtitle content for a finished download.
type SubtitleFunc func(ctx context.Context, rec model.DownloadRecord, apiKey string) ([]byte, error)

// ErrNoSubtitles is returned when the provider has nothing for a title.
var ErrNoSubtitles = errors.New("no subtitles found")

const maxSubtitleSize = 10 << 20

var yearPattern = regexp.MustCompile(`\((\d{4})\)`)

// SubDLClient searches SubDL by film name and extracts the first .srt.
type SubDLClient struct {
	client      *http.Client
	apiURL      string
	downloadURL string
	language    string
}

// NewSubDLClient returns a client using the given HTTP client.
func NewSubDLClient(client *http.Client, opts config.WorkerOptions) *SubDLClient {
	return &SubDLClient{
		client:      client,
		apiURL:      opts.SubDLAPIURL,
		downloadURL: opts.SubDLDownloadURL,
		language:    opts.SubtitleLanguage,
	}
}

type subdlResponse struct {
	Status    bool `json:"status"`
	Subtitles []struct {
		URL string `json:"url"`
	} `json:"subtitles"`
}

// Fetch implements SubtitleFunc.
func (c *SubDLClient) Fetch(ctx context.Context, rec model.DownloadRecord, apiKey string) ([]byte, error) {
	name, year := filmQuery(rec.FileName)

	res, err := c.search(ctx, apiKey, name, year, c.language)
	if err != nil {
		return nil, err
	}
	if len(res.Subtitles) == 0 && !strings.EqualFold(c.language, "en") {
		if res, err = c.search(ctx, apiKey, name, year, "EN"); err != nil {
			return nil, err
		}
	}
	if !res.Status || len(res.Subtitles) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoSubtitles, name)
	}

	data, err := c.get(ctx, c.downloadURL+res.Subtitles[0].URL)
	if err != nil {
		return nil, err
	}
	return extractSRT(data)
}

func (c *SubDLClient) search(ctx context.Context, apiKey, name, year, lang string) (subdlResponse, error) {
	q := url.Values{}
	q.Set("api_key", apiKey)
	q.Set("film_name", name)
	if year != "" {
		q.Set("year", year)
	}
	q.Set("languages", lang)

	var out subdlResponse
	data, err := c.get(ctx, c.apiURL+"?"+q.Encode())
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode subtitle search: %w", err)
	}
	return out, nil
}

func (c *SubDLClient) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("subtitle request failed: %s", resp.Status)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxSubtitleSize))
}

// filmQuery turns "Movie (2021).mp4" into ("Movie", "2021").
func filmQuery(fileName string) (name, year string) {
	name = strings.TrimSuffix(fileName, filepath.Ext(fileName))
	if m := yearPattern.FindStringSubmatch(name); m != nil {
		year = m[1]
		name = strings.TrimSpace(name[:strings.Index(name, "(")])
	}
	return name, year
}

// extractSRT returns the first .srt of a zip archive, or data itself when it
// is not an archive.
func extractSRT(data []byte) ([]byte, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return data, nil
	}
	for _, f := range zr.File {
		if !strings.HasSuffix(strings.ToLower(f.Name), model.SubtitleExt) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(io.LimitReader(rc, maxSubtitleSize))
	}
	return nil, fmt.Errorf("%w: archive has no %s file", ErrNoSubtitles, model.SubtitleExt)
}
