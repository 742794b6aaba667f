package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ochairo/piko/internal/domain/interfaces"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
)

const (
	// Max retries for transient errors
	maxRetries = 3
	// Initial backoff duration
	initialBackoff = 1 * time.Second
	// Max backoff duration
	maxBackoff = 32 * time.Second
	// Releases fetched per page
	releasesPerPage = 100
	// Upper bound on followed pages
	maxReleasePages = 20
)

// ErrReleaseNotFound is returned when a repository has no matching release
var ErrReleaseNotFound = errors.New("release not found")

// HTTPGitHubGateway implements GitHubGateway using standard HTTP client
type HTTPGitHubGateway struct {
	client         *http.Client
	token          string
	userAgent      string
	baseURL        string
	initialBackoff time.Duration
	logger         interfaces.Logger
}

// GitHubOption configures an HTTPGitHubGateway
type GitHubOption func(*HTTPGitHubGateway)

// WithGitHubBaseURL overrides the API base URL, primarily for test servers
func WithGitHubBaseURL(base string) GitHubOption {
	return func(g *HTTPGitHubGateway) {
		g.baseURL = strings.TrimRight(base, "/")
	}
}

// WithGitHubClient sets a custom HTTP client
func WithGitHubClient(c *http.Client) GitHubOption {
	return func(g *HTTPGitHubGateway) {
		g.client = c
	}
}

// WithGitHubLogger sets the logger used for rate limit warnings
func WithGitHubLogger(l interfaces.Logger) GitHubOption {
	return func(g *HTTPGitHubGateway) {
		g.logger = interfaces.OrNoOp(l)
	}
}

// WithRetryBackoff sets the first retry delay; later delays double
func WithRetryBackoff(d time.Duration) GitHubOption {
	return func(g *HTTPGitHubGateway) {
		g.initialBackoff = d
	}
}

// NewHTTPGitHubGateway creates a new GitHub gateway with HTTP client
func NewHTTPGitHubGateway(token string, opts ...GitHubOption) *HTTPGitHubGateway {
	g := &HTTPGitHubGateway{
		client: &http.Client{
			Timeout: 5 * time.Minute, // Increased for large artifact uploads
		},
		token:          token,
		userAgent:      defaultUserAgent,
		baseURL:        "https://api.github.com",
		initialBackoff: initialBackoff,
		logger:         &interfaces.NoOpLogger{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// checkRateLimit checks GitHub API rate limit headers and returns error if exhausted
func (g *HTTPGitHubGateway) checkRateLimit(resp *http.Response) error {
	remaining := resp.Header.Get("X-RateLimit-Remaining")
	if remaining == "" {
		return nil
	}

	remainingInt, err := strconv.Atoi(remaining)
	if err != nil {
		return nil //nolint:nilerr // Non-numeric header is non-fatal
	}

	// If exhausted, return error immediately (don't wait in CI)
	if remainingInt == 0 {
		resetTime := resp.Header.Get("X-RateLimit-Reset")
		if resetTime != "" {
			if resetUnix, err := strconv.ParseInt(resetTime, 10, 64); err == nil {
				resetAt := time.Unix(resetUnix, 0)
				return fmt.Errorf("GitHub API rate limit exceeded (0 remaining), resets at %s", resetAt.Format(time.RFC3339))
			}
		}
		return fmt.Errorf("GitHub API rate limit exceeded (0 remaining)")
	}

	if remainingInt <= 10 {
		g.logger.Warn("GitHub API rate limit low", interfaces.F("remaining", remainingInt))
	}

	return nil
}

// isRetryableError checks if an HTTP status code is retryable
func isRetryableError(statusCode int) bool {
	switch statusCode {
	case http.StatusForbidden, // 403 - secondary rate limit
		http.StatusTooManyRequests,     // 429
		http.StatusInternalServerError, // 500
		http.StatusBadGateway,          // 502
		http.StatusServiceUnavailable,  // 503
		http.StatusGatewayTimeout:      // 504
		return true
	default:
		return false
	}
}

// calculateBackoff returns the backoff duration for a retry attempt
func calculateBackoff(initial time.Duration, attempt int) time.Duration {
	backoff := float64(initial) * math.Pow(2, float64(attempt))
	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}

// do executes a request with exponential backoff on transient failures.
// body is replayed on every attempt.
func (g *HTTPGitHubGateway) do(ctx context.Context, method, reqURL, contentType string, body []byte) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(g.initialBackoff, attempt-1)):
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if g.token != "" {
			req.Header.Set("Authorization", "Bearer "+g.token)
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
		req.Header.Set("User-Agent", g.userAgent)
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}

		resp, err := g.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Network errors are retryable
			lastErr = err
			continue
		}

		if rateLimitErr := g.checkRateLimit(resp); rateLimitErr != nil {
			//nolint:errcheck,gosec // G104: Best effort close on rate limit error
			resp.Body.Close()
			return nil, rateLimitErr
		}

		if !isRetryableError(resp.StatusCode) || attempt == maxRetries {
			return resp, nil
		}

		//nolint:errcheck,gosec // G104: Best effort close before retry
		resp.Body.Close()
		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return nil, lastErr
}

// getJSON performs a GET and decodes a 200 response into out
func (g *HTTPGitHubGateway) getJSON(ctx context.Context, reqURL string, out interface{}) (http.Header, error) {
	resp, err := g.do(ctx, http.MethodGet, reqURL, "", nil)
	if err != nil {
		return nil, err
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrReleaseNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return resp.Header, nil
}

func statusError(resp *http.Response) error {
	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("HTTP %d: failed to read error response", resp.StatusCode)
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
}

// githubRelease represents the GitHub API release format
type githubRelease struct {
	ID          int64         `json:"id,omitempty"`
	TagName     string        `json:"tag_name"`
	Name        string        `json:"name"`
	Body        string        `json:"body"`
	Draft       bool          `json:"draft"`
	Prerelease  bool          `json:"prerelease"`
	CreatedAt   string        `json:"created_at,omitempty"`
	PublishedAt string        `json:"published_at,omitempty"`
	HTMLURL     string        `json:"html_url,omitempty"`
	UploadURL   string        `json:"upload_url,omitempty"`
	Assets      []githubAsset `json:"assets,omitempty"`
}

// githubAsset represents a GitHub release asset
type githubAsset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Label              string `json:"label"`
	State              string `json:"state"`
	Size               int64  `json:"size"`
	Digest             string `json:"digest,omitempty"`
	DownloadCount      int    `json:"download_count"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

func (r githubRelease) toDomain() *gateways.GitHubRelease {
	assets := make([]*gateways.GitHubAsset, len(r.Assets))
	for i, a := range r.Assets {
		assets[i] = a.toDomain()
	}

	return &gateways.GitHubRelease{
		ID:          r.ID,
		TagName:     r.TagName,
		Name:        r.Name,
		Body:        r.Body,
		Draft:       r.Draft,
		Prerelease:  r.Prerelease,
		CreatedAt:   r.CreatedAt,
		PublishedAt: r.PublishedAt,
		HTMLURL:     r.HTMLURL,
		UploadURL:   r.UploadURL,
		Assets:      assets,
	}
}

func (a githubAsset) toDomain() *gateways.GitHubAsset {
	return &gateways.GitHubAsset{
		ID:                 a.ID,
		Name:               a.Name,
		Label:              a.Label,
		State:              a.State,
		Size:               a.Size,
		Digest:             a.Digest,
		DownloadCount:      a.DownloadCount,
		BrowserDownloadURL: a.BrowserDownloadURL,
	}
}

// CreateRelease creates a new GitHub release
func (g *HTTPGitHubGateway) CreateRelease(ctx context.Context, owner, repo string, release *gateways.GitHubRelease) (*gateways.GitHubRelease, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/releases", g.baseURL, owner, repo)

	body, err := json.Marshal(githubRelease{
		TagName:    release.TagName,
		Name:       release.Name,
		Body:       release.Body,
		Draft:      release.Draft,
		Prerelease: release.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal release: %w", err)
	}

	resp, err := g.do(ctx, http.MethodPost, reqURL, "application/json", body)
	if err != nil {
		return nil, fmt.Errorf("failed to create release: %w", err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("failed to create release: %w", statusError(resp))
	}

	var result githubRelease
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.toDomain(), nil
}

// GetRelease retrieves a release by tag name
func (g *HTTPGitHubGateway) GetRelease(ctx context.Context, owner, repo, tag string) (*gateways.GitHubRelease, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/releases/tags/%s", g.baseURL, owner, repo, url.PathEscape(tag))

	var result githubRelease
	if _, err := g.getJSON(ctx, reqURL, &result); err != nil {
		return nil, fmt.Errorf("failed to get release %s: %w", tag, err)
	}

	return result.toDomain(), nil
}

// GetLatestRelease retrieves the most recent non-prerelease, non-draft release
func (g *HTTPGitHubGateway) GetLatestRelease(ctx context.Context, owner, repo string) (*gateways.GitHubRelease, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/releases/latest", g.baseURL, owner, repo)

	var result githubRelease
	if _, err := g.getJSON(ctx, reqURL, &result); err != nil {
		return nil, fmt.Errorf("failed to get latest release of %s/%s: %w", owner, repo, err)
	}

	return result.toDomain(), nil
}

// ListReleases lists all releases in a repository, newest first
func (g *HTTPGitHubGateway) ListReleases(ctx context.Context, owner, repo string) ([]*gateways.GitHubRelease, error) {
	pageURL := fmt.Sprintf("%s/repos/%s/%s/releases?per_page=%d", g.baseURL, owner, repo, releasesPerPage)

	var releases []*gateways.GitHubRelease
	for page := 0; page < maxReleasePages && pageURL != ""; page++ {
		var apiReleases []githubRelease
		header, err := g.getJSON(ctx, pageURL, &apiReleases)
		if err != nil {
			return nil, fmt.Errorf("failed to list releases of %s/%s: %w", owner, repo, err)
		}

		for _, r := range apiReleases {
			releases = append(releases, r.toDomain())
		}

		pageURL = parseNextLink(header.Get("Link"))
	}

	return releases, nil
}

// parseNextLink extracts the "next" page URL from a Link header
func parseNextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		start := strings.Index(part, "<")
		end := strings.Index(part, ">")
		if start >= 0 && end > start {
			return part[start+1 : end]
		}
	}
	return ""
}

// UploadAsset uploads a file to a release
func (g *HTTPGitHubGateway) UploadAsset(ctx context.Context, uploadURL, filename string, content io.Reader) (*gateways.GitHubAsset, error) {
	// GitHub returns URLs like: https://uploads.github.com/.../assets{?name,label}
	baseURL := strings.Split(uploadURL, "{")[0]

	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid upload URL: %q", uploadURL)
	}
	if parsed.Host == "api.github.com" {
		parsed.Host = "uploads.github.com"
	}

	query := parsed.Query()
	query.Set("name", filename)
	parsed.RawQuery = query.Encode()

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read content: %w", err)
	}

	resp, err := g.do(ctx, http.MethodPost, parsed.String(), "application/octet-stream", data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload asset %s: %w", filename, err)
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("failed to upload asset %s: %w", filename, statusError(resp))
	}

	var result githubAsset
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return result.toDomain(), nil
}

// ListReleaseAssets lists all assets for a release
func (g *HTTPGitHubGateway) ListReleaseAssets(ctx context.Context, owner, repo string, releaseID int64) ([]*gateways.GitHubAsset, error) {
	reqURL := fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?per_page=100", g.baseURL, owner, repo, releaseID)

	var results []githubAsset
	if _, err := g.getJSON(ctx, reqURL, &results); err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}

	assets := make([]*gateways.GitHubAsset, len(results))
	for i, a := range results {
		assets[i] = a.toDomain()
	}

	return assets, nil
}

// SplitRepo splits an "owner/name" identifier
func SplitRepo(repo string) (owner, name string, err error) {
	parts := strings.Split(repo, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, want owner/name", repo)
	}
	return parts[0], parts[1], nil
}
