package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/piko/internal/domain/entities"
)

type toolServer struct {
	*httptest.Server
	downloads int32
}

func newToolServer(t *testing.T, content string) *toolServer {
	t.Helper()
	sum := sha256.Sum256([]byte(content))
	digest := "sha256:" + hex.EncodeToString(sum[:])

	ts := &toolServer{}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/revanced/revanced-cli/releases/latest":
			_ = json.NewEncoder(w).Encode(githubRelease{
				TagName: "v4.6.0",
				Assets: []githubAsset{
					{Name: "revanced-cli-4.6.0-all.jar.asc", BrowserDownloadURL: ts.URL + "/dl/cli.jar.asc"},
					{Name: "revanced-cli-4.6.0-all.jar", Digest: digest, BrowserDownloadURL: ts.URL + "/dl/cli.jar"},
				},
			})
		case "/repos/revanced/revanced-cli/releases":
			_ = json.NewEncoder(w).Encode([]githubRelease{
				{TagName: "v5.0.0-dev.1", Draft: true},
				{TagName: "v5.0.0-dev.0", Prerelease: true},
				{TagName: "v4.6.0"},
			})
		case "/dl/cli.jar":
			atomic.AddInt32(&ts.downloads, 1)
			_, _ = w.Write([]byte(content))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return ts
}

func newTestToolFetcher(ts *toolServer, sig *fakeSignatures) *GitHubToolFetcher {
	gh := NewHTTPGitHubGateway("", WithGitHubBaseURL(ts.URL), WithGitHubClient(ts.Client()), WithRetryBackoff(time.Millisecond))
	dl := NewDownloader(nil, WithDownloadClient(ts.Client()))
	if sig == nil {
		return NewGitHubToolFetcher(gh, dl, NewChecksumVerifier(), nil, nil)
	}
	return NewGitHubToolFetcher(gh, dl, NewChecksumVerifier(), sig, nil)
}

type fakeSignatures struct {
	calls int
	err   error
}

func (f *fakeSignatures) ImportKeysFromURL(context.Context, string) error { return nil }

func (f *fakeSignatures) ImportKeyFromFile(string) error { return nil }

func (f *fakeSignatures) VerifySignatureFromFile(string, string) error { return f.err }

func (f *fakeSignatures) VerifySignature(context.Context, string, string) error {
	f.calls++
	return f.err
}

var cliSource = entities.ToolSource{Kind: entities.ToolCLI, Repo: "revanced/revanced-cli", AssetPattern: `-all\.jar$`}

func TestGitHubToolFetcher_LatestRelease(t *testing.T) {
	ts := newToolServer(t, "jar")
	defer ts.Close()
	fetcher := newTestToolFetcher(ts, nil)

	stable, err := fetcher.LatestRelease(context.Background(), cliSource, false)
	require.NoError(t, err)
	assert.Equal(t, "v4.6.0", stable.Tag)
	assert.Equal(t, entities.ToolCLI, stable.Kind)
	assert.Len(t, stable.Assets, 2)

	pre, err := fetcher.LatestRelease(context.Background(), cliSource, true)
	require.NoError(t, err)
	assert.Equal(t, "v5.0.0-dev.0", pre.Tag, "drafts are skipped")
	assert.True(t, pre.Prerelease)
}

func TestGitHubToolFetcher_LatestRelease_BadRepo(t *testing.T) {
	fetcher := NewGitHubToolFetcher(NewHTTPGitHubGateway(""), NewDownloader(nil), nil, nil, nil)
	_, err := fetcher.LatestRelease(context.Background(), entities.ToolSource{Repo: "nope"}, false)
	assert.Error(t, err)
}

func TestGitHubToolFetcher_DownloadAndCache(t *testing.T) {
	ts := newToolServer(t, "cli-jar-bytes")
	defer ts.Close()
	sig := &fakeSignatures{}
	fetcher := newTestToolFetcher(ts, sig)
	dir := t.TempDir()

	release, err := fetcher.LatestRelease(context.Background(), cliSource, false)
	require.NoError(t, err)

	tool, err := fetcher.Download(context.Background(), cliSource, *release, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cli-v4.6.0.jar"), tool.Path)
	assert.Equal(t, 1, sig.calls)

	// Second call reuses the verified cache.
	again, err := fetcher.Download(context.Background(), cliSource, *release, dir)
	require.NoError(t, err)
	assert.Equal(t, tool.Path, again.Path)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ts.downloads))
}

func TestGitHubToolFetcher_CorruptCacheIsReplaced(t *testing.T) {
	ts := newToolServer(t, "cli-jar-bytes")
	defer ts.Close()
	fetcher := newTestToolFetcher(ts, nil)
	dir := t.TempDir()

	release, err := fetcher.LatestRelease(context.Background(), cliSource, false)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "cli-v4.6.0.jar"), []byte("stale"), 0600))

	tool, err := fetcher.Download(context.Background(), cliSource, *release, dir)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&ts.downloads))

	//nolint:gosec // G304: test output file
	data, err := os.ReadFile(tool.Path)
	require.NoError(t, err)
	assert.Equal(t, "cli-jar-bytes", string(data))
}

func TestGitHubToolFetcher_SignatureFailureRemovesDownload(t *testing.T) {
	ts := newToolServer(t, "cli-jar-bytes")
	defer ts.Close()
	fetcher := newTestToolFetcher(ts, &fakeSignatures{err: errors.New("bad signature")})
	dir := t.TempDir()

	release, err := fetcher.LatestRelease(context.Background(), cliSource, false)
	require.NoError(t, err)

	_, err = fetcher.Download(context.Background(), cliSource, *release, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "signature check")

	_, statErr := os.Stat(filepath.Join(dir, "cli-v4.6.0.jar"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestSelectAsset(t *testing.T) {
	release := entities.ToolRelease{
		Repo: "crimera/piko",
		Tag:  "v1.0.0",
		Assets: []entities.ToolAsset{
			{Name: "patches-1.0.0.rvp.asc"},
			{Name: "patches-1.0.0.rvp"},
			{Name: "patches-1.0.0.jar"},
		},
	}

	asset, err := SelectAsset(entities.ToolSource{AssetPattern: `\.(rvp|jar)$`}, release)
	require.NoError(t, err)
	assert.Equal(t, "patches-1.0.0.rvp", asset.Name)

	asset, err = SelectAsset(entities.ToolSource{}, release)
	require.NoError(t, err)
	assert.Equal(t, "patches-1.0.0.rvp", asset.Name, "signatures are never selected")

	_, err = SelectAsset(entities.ToolSource{AssetPattern: `\.apk$`}, release)
	assert.Error(t, err)
}
