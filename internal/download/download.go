// Package download fetches remote files over HTTP with progress reporting.
package download

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"
)

// DefaultUserAgent is sent with every request unless overridden.
const DefaultUserAgent = "h5c"

// ProgressCallback is called during download with progress info.
// percentage is 0 while the total size is unknown.
type ProgressCallback func(bytesComplete, totalBytes int64, percentage int)

// Job names one file to fetch.
type Job struct {
	Name   string
	URL    string
	Path   string
	Header http.Header
}

// Result describes a finished download.
type Result struct {
	Name        string
	URL         string
	Path        string
	Bytes       int64
	ContentType string
	Elapsed     time.Duration
}

func (r Result) String() string {
	return fmt.Sprintf("Downloaded %s in %.1fs", humanize.Bytes(uint64(r.Bytes)), r.Elapsed.Seconds())
}

// Client wraps a grab client.
type Client struct {
	grab      *grab.Client
	userAgent string
	interval  time.Duration
}

// NewClient creates a client. A nil httpClient uses grab's default.
func NewClient(httpClient *http.Client) *Client {
	g := grab.NewClient()
	if httpClient != nil {
		g.HTTPClient = httpClient
	}
	g.UserAgent = DefaultUserAgent
	return &Client{grab: g, userAgent: DefaultUserAgent, interval: 100 * time.Millisecond}
}

// SetUserAgent overrides the User-Agent header.
func (c *Client) SetUserAgent(ua string) {
	c.userAgent = ua
	c.grab.UserAgent = ua
}

// Fetch downloads job.URL to job.Path. The body is written to a ".part"
// sibling first and renamed into place once complete, so an interrupted
// download never leaves a truncated file at job.Path.
func (c *Client) Fetch(ctx context.Context, job Job, callback ProgressCallback) (Result, error) {
	res := Result{Name: job.Name, URL: job.URL, Path: job.Path}
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(job.Path), 0o755); err != nil {
		return res, fmt.Errorf("failed to create download dir: %w", err)
	}

	part := job.Path + ".part"
	_ = os.Remove(part)

	req, err := grab.NewRequest(part, job.URL)
	if err != nil {
		return res, fmt.Errorf("failed to create request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true // Always overwrite, never resume
	for k, vs := range job.Header {
		for _, v := range vs {
			req.HTTPRequest.Header.Add(k, v)
		}
	}

	resp := c.grab.Do(req)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	lastPercentage := -1
loop:
	for {
		select {
		case <-ticker.C:
			if callback != nil {
				var percentage int
				if resp.Size() > 0 {
					percentage = int(resp.Progress() * 100)
				}
				if percentage != lastPercentage {
					callback(resp.BytesComplete(), resp.Size(), percentage)
					lastPercentage = percentage
				}
			}
		case <-resp.Done:
			break loop
		}
	}

	if err := resp.Err(); err != nil {
		_ = os.Remove(part)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return res, err
		}
		return res, fmt.Errorf("download failed: %w", err)
	}

	if callback != nil {
		callback(resp.BytesComplete(), resp.BytesComplete(), 100)
	}

	if err := os.Rename(part, job.Path); err != nil {
		_ = os.Remove(part)
		return res, fmt.Errorf("failed to move download into place: %w", err)
	}

	res.Bytes = resp.BytesComplete()
	res.Elapsed = time.Since(start)
	if resp.HTTPResponse != nil {
		res.ContentType = resp.HTTPResponse.Header.Get("Content-Type")
	}
	return res, nil
}

// BatchCallback reports progress for one job of a batch.
type BatchCallback func(job Job, bytesComplete, totalBytes int64, percentage int)

// Batch fetches jobs with at most limit downloads in flight. The first
// failure cancels the rest; results are in job order.
func (c *Client) Batch(ctx context.Context, jobs []Job, limit int, callback BatchCallback) ([]Result, error) {
	if limit < 1 {
		limit = 1
	}

	results := make([]Result, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, job := range jobs {
		g.Go(func() error {
			var cb ProgressCallback
			if callback != nil {
				cb = func(done, total int64, pct int) { callback(job, done, total, pct) }
			}
			res, err := c.Fetch(ctx, job, cb)
			if err != nil {
				return fmt.Errorf("%s: %w", job.Name, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

// IsStatusError reports whether err came from a non-2xx response.
func IsStatusError(err error) bool {
	var sc grab.StatusCodeError
	return errors.As(err, &sc)
}
