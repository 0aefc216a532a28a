package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/ytget/stremio-downloads/internal/config"
	"github.com/ytget/stremio-downloads/internal/logging"
	"github.com/ytget/stremio-downloads/internal/metrics"
)

const (
	maxRedirects          = 10
	defaultInitialBackoff = 500 * time.Millisecond
)

// HTTPFetcher downloads direct stream URLs.
type HTTPFetcher struct {
	client         *http.Client
	userAgent      string
	retries        int
	initialBackoff time.Duration
	log            *zap.Logger
}

// NewHTTPFetcher builds a fetcher from worker options.
func NewHTTPFetcher(opts config.WorkerOptions, log *zap.Logger) *HTTPFetcher {
	if log == nil {
		log = logging.Nop()
	}
	return &HTTPFetcher{
		client:         NewHTTPClient(opts),
		userAgent:      opts.UserAgent,
		retries:        opts.Retries,
		initialBackoff: defaultInitialBackoff,
		log:            log.Named("http"),
	}
}

// NewHTTPClient returns a client honoring the proxy and timeouts of opts.
// There is no overall request timeout since bodies can be several gigabytes.
func NewHTTPClient(opts config.WorkerOptions) *http.Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.ConnectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.ConnectTimeout,
		ResponseHeaderTimeout: opts.ReadTimeout,
		IdleConnTimeout:       90 * time.Second,
	}
	if opts.Proxy != "" {
		if proxyURL, err := url.Parse(opts.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
	}

	return &http.Client{
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}
}

// Client returns the underlying HTTP client.
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// Fetch retries connection failures and 5xx/429 responses with exponential
// backoff. Once the body starts streaming a failure is final.
func (f *HTTPFetcher) Fetch(ctx context.Context, req Request) error {
	resp, err := f.open(ctx, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	req.report(0, total)

	w, err := req.Dest.CreateWritable(ctx)
	if err != nil {
		return fmt.Errorf("open destination: %w", err)
	}

	cw := &countingWriter{w: w, total: total, progress: req.report}
	if _, err := io.Copy(cw, resp.Body); err != nil {
		_ = w.Abort()
		return fmt.Errorf("stream %s: %w", req.Dest.Name(), err)
	}
	if total > 0 && cw.n != total {
		_ = w.Abort()
		return fmt.Errorf("stream %s: got %d of %d bytes: %w", req.Dest.Name(), cw.n, total, io.ErrUnexpectedEOF)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("commit %s: %w", req.Dest.Name(), err)
	}
	metrics.AddBytesWritten(cw.n)
	return nil
}

type statusError struct {
	status string
	code   int
}

func (e *statusError) Error() string {
	return "fetch failed: " + e.status
}

func retryable(code int) bool {
	return code >= http.StatusInternalServerError || code == http.StatusTooManyRequests
}

func (f *HTTPFetcher) open(ctx context.Context, req Request) (*http.Response, error) {
	var resp *http.Response
	attempt := 0

	op := func() error {
		attempt++
		r, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		if f.userAgent != "" {
			r.Header.Set("User-Agent", f.userAgent)
		}

		res, err := f.client.Do(r)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		if res.StatusCode != http.StatusOK {
			res.Body.Close()
			serr := &statusError{status: res.Status, code: res.StatusCode}
			if retryable(res.StatusCode) {
				return serr
			}
			return backoff.Permanent(serr)
		}
		resp = res
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.initialBackoff
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.retries)), ctx)

	notify := func(err error, wait time.Duration) {
		f.log.Warn("fetch attempt failed, retrying",
			zap.String("job", req.Job),
			zap.String("id", req.ID),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		var serr *statusError
		if errors.As(err, &serr) {
			return nil, serr
		}
		return nil, fmt.Errorf("fetch %s: %w", req.ID, err)
	}
	return resp, nil
}

type countingWriter struct {
	w        io.Writer
	n        int64
	total    int64
	progress ProgressFunc
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	if c.progress != nil {
		c.progress(c.n, c.total)
	}
	return n, err
}
