package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
)

func newTestGateway(server *httptest.Server) *HTTPGitHubGateway {
	return NewHTTPGitHubGateway("test-token",
		WithGitHubBaseURL(server.URL),
		WithGitHubClient(server.Client()),
		WithRetryBackoff(time.Millisecond))
}

// Test creating a new GitHub gateway
func TestNewHTTPGitHubGateway(t *testing.T) {
	gateway := NewHTTPGitHubGateway("test-token")

	if gateway == nil {
		t.Fatal("NewHTTPGitHubGateway returned nil")
	}
	if gateway.token != "test-token" {
		t.Errorf("Token = %s, want test-token", gateway.token)
	}
	if gateway.baseURL != "https://api.github.com" {
		t.Errorf("baseURL = %s", gateway.baseURL)
	}
}

func TestGitHubGateway_CreateRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/repos/owner/piko/releases", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var body githubRelease
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "p_i_c_a", body.TagName)
		assert.True(t, body.Prerelease)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(githubRelease{
			ID:        7,
			TagName:   body.TagName,
			HTMLURL:   "https://github.com/owner/piko/releases/tag/p_i_c_a",
			UploadURL: "https://uploads.github.com/repos/owner/piko/releases/7/assets{?name,label}",
		})
	}))
	defer server.Close()

	release, err := newTestGateway(server).CreateRelease(context.Background(), "owner", "piko", &gateways.GitHubRelease{
		TagName:    "p_i_c_a",
		Prerelease: true,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), release.ID)
	assert.Contains(t, release.UploadURL, "uploads.github.com")
}

// Test create release with API error
func TestGitHubGateway_CreateRelease_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "Validation Failed"}`))
	}))
	defer server.Close()

	_, err := newTestGateway(server).CreateRelease(context.Background(), "test", "repo", &gateways.GitHubRelease{TagName: "v1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 422")
}

// Test get release not found
func TestGitHubGateway_GetRelease_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "Not Found"}`))
	}))
	defer server.Close()

	_, err := newTestGateway(server).GetRelease(context.Background(), "test", "repo", "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReleaseNotFound))
}

func TestGitHubGateway_GetLatestRelease(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/revanced/revanced-cli/releases/latest", r.URL.Path)
		_ = json.NewEncoder(w).Encode(githubRelease{
			TagName: "v4.6.0",
			Body:    "changes",
			Assets: []githubAsset{{
				Name:               "revanced-cli-4.6.0-all.jar",
				Digest:             "sha256:abc",
				BrowserDownloadURL: "https://example.com/cli.jar",
			}},
		})
	}))
	defer server.Close()

	release, err := newTestGateway(server).GetLatestRelease(context.Background(), "revanced", "revanced-cli")
	require.NoError(t, err)
	assert.Equal(t, "v4.6.0", release.TagName)
	require.Len(t, release.Assets, 1)
	assert.Equal(t, "sha256:abc", release.Assets[0].Digest)
}

func TestGitHubGateway_ListReleases_Pagination(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			_ = json.NewEncoder(w).Encode([]githubRelease{{TagName: "v1"}})
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s/repos/o/r/releases?per_page=100&page=2>; rel="next", <%s/x>; rel="last"`, server.URL, server.URL))
		_ = json.NewEncoder(w).Encode([]githubRelease{{TagName: "v3"}, {TagName: "v2"}})
	}))
	defer server.Close()

	releases, err := newTestGateway(server).ListReleases(context.Background(), "o", "r")
	require.NoError(t, err)
	require.Len(t, releases, 3)
	assert.Equal(t, "v3", releases[0].TagName)
	assert.Equal(t, "v1", releases[2].TagName)
}

func TestGitHubGateway_RetriesTransientErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode([]githubRelease{})
	}))
	defer server.Close()

	releases, err := newTestGateway(server).ListReleases(context.Background(), "o", "r")
	require.NoError(t, err)
	assert.Empty(t, releases)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGitHubGateway_RateLimitExhausted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "0")
		w.Header().Set("X-RateLimit-Reset", "1700000000")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := newTestGateway(server).ListReleases(context.Background(), "o", "r")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

// Test upload asset
func TestGitHubGateway_UploadAsset_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "twitter-piko-v1.apk", r.URL.Query().Get("name"))
		assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "apk-bytes", string(body))

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(githubAsset{ID: 456, Name: "twitter-piko-v1.apk", State: "uploaded", Size: 9})
	}))
	defer server.Close()

	asset, err := newTestGateway(server).UploadAsset(context.Background(),
		server.URL+"/repos/o/r/releases/1/assets{?name,label}", "twitter-piko-v1.apk", strings.NewReader("apk-bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(456), asset.ID)
}

func TestGitHubGateway_UploadAsset_InvalidURL(t *testing.T) {
	_, err := NewHTTPGitHubGateway("t").UploadAsset(context.Background(), "not a url", "f", strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid upload URL")
}

func TestGitHubGateway_UploadAsset_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"already_exists"}`))
	}))
	defer server.Close()

	_, err := newTestGateway(server).UploadAsset(context.Background(), server.URL+"/assets", "f.apk", strings.NewReader("x"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already_exists")
}

func TestGitHubGateway_ListReleaseAssets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/repos/o/r/releases/9/assets", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]githubAsset{{Name: "a.apk"}, {Name: "a.apk.sha256"}})
	}))
	defer server.Close()

	assets, err := newTestGateway(server).ListReleaseAssets(context.Background(), "o", "r", 9)
	require.NoError(t, err)
	assert.Len(t, assets, 2)
}

func TestGitHubGateway_ContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestGateway(server).GetLatestRelease(ctx, "o", "r")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSplitRepo(t *testing.T) {
	owner, name, err := SplitRepo("crimera/piko")
	require.NoError(t, err)
	assert.Equal(t, "crimera", owner)
	assert.Equal(t, "piko", name)

	for _, bad := range []string{"", "piko", "a/b/c", "/piko", "owner/"} {
		_, _, err := SplitRepo(bad)
		assert.Error(t, err, bad)
	}
}
