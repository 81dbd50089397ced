package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIBase = "https://api.github.com"
	DefaultRawBase = "https://raw.githubusercontent.com"
)

var (
	// ErrInvalidRepo means a repository was not given as owner/name.
	ErrInvalidRepo = errors.New("repository must be owner/name")
	// ErrNotFound means GitHub answered 404.
	ErrNotFound = errors.New("not found on GitHub")
)

// Release represents a GitHub release
type Release struct {
	TagName string  `json:"tag_name"`
	Name    string  `json:"name"`
	Assets  []Asset `json:"assets"`
}

// Asset represents a file attached to a release
type Asset struct {
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	ContentType        string `json:"content_type"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Asset finds an attached file by name, ignoring case.
func (r *Release) Asset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Asset{}, false
}

// Commit represents a GitHub commit
type Commit struct {
	SHA    string      `json:"sha"`
	Commit CommitInner `json:"commit"`
}

// CommitInner represents the commit details
type CommitInner struct {
	Author  CommitAuthor `json:"author"`
	Message string       `json:"message"`
}

// CommitAuthor represents commit author information
type CommitAuthor struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Client handles GitHub API requests for one repository
type Client struct {
	owner      string
	repo       string
	apiBase    string
	rawBase    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for repo given as "owner/name".
func NewClient(repo string, httpClient *http.Client) (*Client, error) {
	owner, name, ok := strings.Cut(strings.Trim(repo, "/"), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRepo, repo)
	}
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &Client{
		owner:      owner,
		repo:       name,
		apiBase:    DefaultAPIBase,
		rawBase:    DefaultRawBase,
		httpClient: httpClient,
	}, nil
}

// SetBaseURLs points the client at another API and raw content host.
func (c *Client) SetBaseURLs(api, raw string) {
	c.apiBase = strings.TrimRight(api, "/")
	c.rawBase = strings.TrimRight(raw, "/")
}

// SetToken sets the token sent as a bearer credential.
func (c *Client) SetToken(token string) {
	c.token = token
}

// AuthHeader returns the headers a download of repository content needs.
func (c *Client) AuthHeader() http.Header {
	h := http.Header{}
	if c.token != "" {
		h.Set("Authorization", "Bearer "+c.token)
	}
	return h
}

// LatestRelease fetches the newest published release.
func (c *Client) LatestRelease(ctx context.Context) (*Release, error) {
	var rel Release
	if err := c.get(ctx, "releases/latest", "latest release", &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// ReleaseByTag fetches the release for tag.
func (c *Client) ReleaseByTag(ctx context.Context, tag string) (*Release, error) {
	var rel Release
	if err := c.get(ctx, "releases/tags/"+url.PathEscape(tag), "release "+tag, &rel); err != nil {
		return nil, err
	}
	return &rel, nil
}

// GetLatestCommit fetches the latest commit for a given ref
func (c *Client) GetLatestCommit(ctx context.Context, ref string) (*Commit, error) {
	var commit Commit
	if err := c.get(ctx, "commits/"+url.PathEscape(ref), "commit", &commit); err != nil {
		return nil, err
	}
	return &commit, nil
}

// RawURL returns the raw URL for a file at a given ref
func (c *Client) RawURL(ref, path string) string {
	return fmt.Sprintf("%s/%s/%s/%s/%s", c.rawBase, c.owner, c.repo, ref, strings.TrimLeft(path, "/"))
}

func (c *Client) get(ctx context.Context, endpoint, what string, out any) error {
	u := fmt.Sprintf("%s/repos/%s/%s/%s", c.apiBase, c.owner, c.repo, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", what, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("failed to fetch %s: %w", what, ErrNotFound)
		}
		if apiErr.Message != "" {
			return fmt.Errorf("failed to fetch %s: HTTP %d: %s", what, resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("failed to fetch %s: HTTP %d", what, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", what, err)
	}
	return nil
}
