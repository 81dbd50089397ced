// Package source resolves named download sources to concrete URLs and
// fetches them.
package source

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/distantorigin/h5-companion/internal/download"
	"github.com/distantorigin/h5-companion/internal/github"
)

// Kind selects how a source is resolved.
type Kind string

const (
	KindHTTP   Kind = "http"
	KindGDrive Kind = "gdrive"
	KindGitHub Kind = "github"
)

// DefaultDriveBase serves Google Drive files without the virus-scan
// interstitial when confirm=t is passed.
const DefaultDriveBase = "https://drive.usercontent.google.com/download"

var (
	// ErrUnknownSource means no source has the requested name.
	ErrUnknownSource = errors.New("unknown source")
	// ErrInvalidSource means a source is missing fields its kind needs.
	ErrInvalidSource = errors.New("invalid source")
	// ErrNotZip means the downloaded file is not a zip archive.
	ErrNotZip = errors.New("downloaded file is not a zip archive")
)

// Source describes one downloadable package.
type Source struct {
	Name string `yaml:"name"`
	Kind Kind   `yaml:"kind"`

	URL string `yaml:"url,omitempty"` // http
	ID  string `yaml:"id,omitempty"`  // gdrive file id

	Repo  string `yaml:"repo,omitempty"`  // github owner/name
	Ref   string `yaml:"ref,omitempty"`   // github branch, tag or sha for Path
	Path  string `yaml:"path,omitempty"`  // github file path at Ref
	Tag   string `yaml:"tag,omitempty"`   // github release tag, "" = latest
	Asset string `yaml:"asset,omitempty"` // github release asset name
}

// Defaults returns the packages offered out of the box.
func Defaults() []Source {
	return []Source{
		{Name: "Universe_mod", Kind: KindGDrive, ID: "1Tu6QMzAxc05D4d5qYOhLoqO4YEtdwom_"},
		{Name: "H5AI_31", Kind: KindGDrive, ID: "1F2s-Ebm80JBj7OOsce3E-cqLJGyzpu2d"},
		{Name: "Tribes of the East", Kind: KindGDrive, ID: "1UMXa_c6k5AGReDUNXDh3p5toxHsWnizG"},
		{Name: "CheatEngine", Kind: KindGDrive, ID: "1b-stAqvS8NoqEf4wCD3EMKaYiJzLGfzm"},
	}
}

// FileName is the name the download is saved under.
func (s Source) FileName() string {
	return s.Name + ".zip"
}

// Validate checks that the fields the kind needs are present.
func (s Source) Validate() error {
	if strings.TrimSpace(s.Name) == "" || strings.ContainsAny(s.Name, `/\`) {
		return fmt.Errorf("%w: bad name %q", ErrInvalidSource, s.Name)
	}
	switch s.Kind {
	case KindHTTP:
		u, err := url.Parse(s.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%w: %s: url must be http(s)", ErrInvalidSource, s.Name)
		}
	case KindGDrive:
		if s.ID == "" {
			return fmt.Errorf("%w: %s: gdrive source needs id", ErrInvalidSource, s.Name)
		}
	case KindGitHub:
		if s.Repo == "" {
			return fmt.Errorf("%w: %s: github source needs repo", ErrInvalidSource, s.Name)
		}
		if (s.Path == "") == (s.Asset == "") {
			return fmt.Errorf("%w: %s: github source needs exactly one of path or asset", ErrInvalidSource, s.Name)
		}
	default:
		return fmt.Errorf("%w: %s: unknown kind %q", ErrInvalidSource, s.Name, s.Kind)
	}
	return nil
}

// Find looks a source up by name, ignoring case.
func Find(list []Source, name string) (Source, error) {
	for _, s := range list {
		if strings.EqualFold(s.Name, name) {
			return s, nil
		}
	}
	return Source{}, fmt.Errorf("%w: %q", ErrUnknownSource, name)
}

// Names lists source names in order.
func Names(list []Source) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = s.Name
	}
	return out
}

// Fetcher turns sources into download jobs.
type Fetcher struct {
	Client      *download.Client
	HTTPClient  *http.Client
	DriveBase   string
	GitHubToken string

	// GitHubAPIBase and GitHubRawBase override the GitHub hosts when set.
	GitHubAPIBase string
	GitHubRawBase string
}

// NewFetcher returns a Fetcher using client for transfers.
func NewFetcher(client *download.Client) *Fetcher {
	return &Fetcher{Client: client, DriveBase: DefaultDriveBase}
}

// Job resolves s to a download job writing into dir.
func (f *Fetcher) Job(ctx context.Context, s Source, dir string) (download.Job, error) {
	if err := s.Validate(); err != nil {
		return download.Job{}, err
	}
	job := download.Job{Name: s.Name, Path: filepath.Join(dir, s.FileName())}

	switch s.Kind {
	case KindHTTP:
		job.URL = s.URL
	case KindGDrive:
		base := f.DriveBase
		if base == "" {
			base = DefaultDriveBase
		}
		q := url.Values{"id": {s.ID}, "export": {"download"}, "confirm": {"t"}}
		job.URL = base + "?" + q.Encode()
	case KindGitHub:
		gh, err := github.NewClient(s.Repo, f.HTTPClient)
		if err != nil {
			return job, err
		}
		if f.GitHubAPIBase != "" || f.GitHubRawBase != "" {
			gh.SetBaseURLs(or(f.GitHubAPIBase, github.DefaultAPIBase), or(f.GitHubRawBase, github.DefaultRawBase))
		}
		gh.SetToken(f.GitHubToken)
		job.Header = gh.AuthHeader()

		if s.Path != "" {
			// Pin the ref so a push mid-download cannot mix versions.
			commit, err := gh.GetLatestCommit(ctx, or(s.Ref, "main"))
			if err != nil {
				return job, err
			}
			job.URL = gh.RawURL(commit.SHA, s.Path)
			break
		}

		var rel *github.Release
		if s.Tag != "" {
			rel, err = gh.ReleaseByTag(ctx, s.Tag)
		} else {
			rel, err = gh.LatestRelease(ctx)
		}
		if err != nil {
			return job, err
		}
		asset, ok := rel.Asset(s.Asset)
		if !ok {
			return job, fmt.Errorf("release %s has no asset %q", rel.TagName, s.Asset)
		}
		job.URL = asset.BrowserDownloadURL
	}
	return job, nil
}

// Fetch downloads s into dir and checks that the result is a zip.
func (f *Fetcher) Fetch(ctx context.Context, s Source, dir string, cb download.ProgressCallback) (download.Result, error) {
	job, err := f.Job(ctx, s, dir)
	if err != nil {
		return download.Result{}, err
	}
	res, err := f.Client.Fetch(ctx, job, cb)
	if err != nil {
		return res, err
	}
	return res, verify(res)
}

// FetchAll downloads every source with at most limit transfers in flight.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source, dir string, limit int, cb download.BatchCallback) ([]download.Result, error) {
	jobs := make([]download.Job, 0, len(sources))
	for _, s := range sources {
		job, err := f.Job(ctx, s, dir)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.Name, err)
		}
		jobs = append(jobs, job)
	}

	results, err := f.Client.Batch(ctx, jobs, limit, cb)
	if err != nil {
		return results, err
	}
	for _, res := range results {
		if err := verify(res); err != nil {
			return results, fmt.Errorf("%s: %w", res.Name, err)
		}
	}
	return results, nil
}

// verify rejects HTML pages served in place of the file and anything that
// does not open as a zip. The bad file is removed.
func verify(res download.Result) error {
	if mt, _, err := mime.ParseMediaType(res.ContentType); err == nil && mt == "text/html" {
		os.Remove(res.Path)
		return fmt.Errorf("%w: server returned a web page", ErrNotZip)
	}
	zr, err := zip.OpenReader(res.Path)
	if err != nil {
		os.Remove(res.Path)
		return fmt.Errorf("%w: %v", ErrNotZip, err)
	}
	return zr.Close()
}

func or(v, fallback string) string {
	if v != "" {
		return v
	}
	return fallback
}
