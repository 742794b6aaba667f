package orchestrators

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
)

const catalogURL = "https://www.apkmirror.com/apk/x-corp/twitter/"

func testRecipe() *entities.Recipe {
	return &entities.Recipe{
		Name:        "twitter",
		DisplayName: "Twitter",
		CatalogURL:  catalogURL,
		Tools: map[entities.ToolKind]entities.ToolSource{
			entities.ToolPatches:      {Kind: entities.ToolPatches, Repo: "crimera/piko"},
			entities.ToolIntegrations: {Kind: entities.ToolIntegrations, Repo: "crimera/revanced-integrations"},
			entities.ToolCLI:          {Kind: entities.ToolCLI, Repo: "revanced/revanced-cli"},
			entities.ToolMerger:       {Kind: entities.ToolMerger, Repo: "REAndroid/APKEditor"},
		},
		Patch: entities.PatchConfig{Exclude: []string{"Hide FAB"}},
	}
}

type mockRegistry struct {
	versions      []entities.Version
	variants      []entities.Variant
	listErr       error
	listCalls     int
	variantsFor   []entities.Version
	fetchedBundle []entities.Variant
	skipWrite     bool
}

func (m *mockRegistry) ListVersions(_ context.Context, _ string) ([]entities.Version, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.versions, nil
}

func (m *mockRegistry) ListVariants(_ context.Context, v entities.Version) ([]entities.Variant, error) {
	m.variantsFor = append(m.variantsFor, v)
	return m.variants, nil
}

func (m *mockRegistry) FetchBundle(_ context.Context, variant entities.Variant, dest string) error {
	m.fetchedBundle = append(m.fetchedBundle, variant)
	if m.skipWrite {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte("bundle"), 0600)
}

type mockLedger struct {
	last       *entities.BuildRecord
	count      int
	lastErr    error
	countErr   error
	publishErr error
	published  []gateways.PublishRequest
}

func (m *mockLedger) LastBuild(_ context.Context, _ string) (*entities.BuildRecord, error) {
	if m.lastErr != nil {
		return nil, m.lastErr
	}
	if m.last == nil {
		return &entities.BuildRecord{}, nil
	}
	return m.last, nil
}

func (m *mockLedger) CountReleases(_ context.Context, _ string) (int, error) {
	return m.count, m.countErr
}

func (m *mockLedger) Publish(_ context.Context, repo string, req gateways.PublishRequest) (*gateways.GitHubRelease, error) {
	if m.publishErr != nil {
		return nil, m.publishErr
	}
	m.published = append(m.published, req)
	return &gateways.GitHubRelease{
		TagName:    req.Tag,
		Prerelease: req.Prerelease,
		HTMLURL:    "https://github.com/" + repo + "/releases/tag/" + req.Tag,
	}, nil
}

type mockToolFetcher struct {
	releases   map[entities.ToolKind]entities.ToolRelease
	latestErr  error
	allowed    map[entities.ToolKind]bool
	downloaded []entities.ToolKind
}

func newMockToolFetcher() *mockToolFetcher {
	return &mockToolFetcher{
		releases: map[entities.ToolKind]entities.ToolRelease{
			entities.ToolPatches:      {Kind: entities.ToolPatches, Repo: "crimera/piko", Tag: "p1", Body: "# Changes\n* fix"},
			entities.ToolIntegrations: {Kind: entities.ToolIntegrations, Repo: "crimera/revanced-integrations", Tag: "i1"},
			entities.ToolCLI:          {Kind: entities.ToolCLI, Repo: "revanced/revanced-cli", Tag: "c1"},
			entities.ToolMerger:       {Kind: entities.ToolMerger, Repo: "REAndroid/APKEditor", Tag: "m1"},
		},
		allowed: map[entities.ToolKind]bool{},
	}
}

func (m *mockToolFetcher) LatestRelease(_ context.Context, source entities.ToolSource, allowPrerelease bool) (*entities.ToolRelease, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	m.allowed[source.Kind] = allowPrerelease
	release := m.releases[source.Kind]
	return &release, nil
}

func (m *mockToolFetcher) Download(_ context.Context, source entities.ToolSource, release entities.ToolRelease, dir string) (*entities.FetchedTool, error) {
	m.downloaded = append(m.downloaded, source.Kind)
	return &entities.FetchedTool{Release: release, Path: filepath.Join(dir, string(source.Kind)+"-"+release.Tag+".jar")}, nil
}

type mockMerger struct {
	calls     int
	skipWrite bool
}

func (m *mockMerger) Merge(_ context.Context, _ entities.FetchedTool, _, outputPath string) error {
	m.calls++
	if m.skipWrite {
		return nil
	}
	return os.WriteFile(outputPath, []byte("merged"), 0600)
}

type mockPatcher struct {
	requests  []gateways.PatchRequest
	skipWrite bool
}

func (m *mockPatcher) Patch(_ context.Context, req gateways.PatchRequest) error {
	m.requests = append(m.requests, req)
	if m.skipWrite {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0750); err != nil {
		return err
	}
	return os.WriteFile(req.OutputPath, []byte("patched"), 0600)
}

type mockNotifier struct {
	sent []gateways.Announcement
	err  error
}

func (m *mockNotifier) Announce(_ context.Context, a gateways.Announcement) error {
	m.sent = append(m.sent, a)
	return m.err
}

type globFinder struct{}

func (globFinder) FindByGlob(outputDir, app, version string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(outputDir, app+"-piko-v"+version+".apk*"))
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range matches {
		if !strings.Contains(filepath.Base(m), ".part") {
			out = append(out, m)
		}
	}
	return out, nil
}

var errUnavailable = errors.New("service unavailable")
