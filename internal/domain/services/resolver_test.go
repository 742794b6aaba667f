package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/piko/internal/domain/entities"
)

const testCatalog = "https://www.apkmirror.com/apk/x-corp/twitter/"

func TestVersionResolver_Resolve(t *testing.T) {
	listing := []entities.Version{
		{Link: "/a", Version: "10.50.0-beta.1"},
		{Link: "/b", Version: "10.49.0-alpha.2"},
		{Link: "/c", Version: "10.48.0-release.0"},
		{Link: "/d", Version: "10.47.0-release.0"},
	}

	tests := []struct {
		name      string
		cfg       entities.RunConfig
		available []entities.Version
		want      string
		wantErr   bool
	}{
		{
			name:      "first release marker wins",
			available: listing,
			want:      "10.48.0-release.0",
		},
		{
			name:      "app prerelease takes the newest entry",
			cfg:       entities.RunConfig{Prerelease: entities.PrereleaseFlags{App: true}},
			available: listing,
			want:      "10.50.0-beta.1",
		},
		{
			name:      "tool prerelease flags do not affect the app",
			cfg:       entities.RunConfig{Prerelease: entities.PrereleaseFlags{CLI: true, Patches: true, Integrations: true}},
			available: listing,
			want:      "10.48.0-release.0",
		},
		{
			name:      "no release entry",
			available: listing[:2],
			wantErr:   true,
		},
		{
			name:    "empty listing",
			wantErr: true,
		},
	}

	resolver := NewVersionResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolver.Resolve(tt.cfg, testCatalog, tt.available)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrVersionNotFound)
				kind, ok := KindOf(err)
				assert.True(t, ok)
				assert.Equal(t, ResolutionFailure, kind)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Version)
		})
	}
}

func TestVersionResolver_ExplicitPin(t *testing.T) {
	resolver := NewVersionResolver()
	cfg := entities.RunConfig{VersionPin: "1.2.3"}

	// The listing is ignored entirely.
	got, err := resolver.Resolve(cfg, testCatalog, nil)
	require.NoError(t, err)

	assert.Equal(t, "1.2.3", got.Version)
	assert.Equal(t, "https://www.apkmirror.com/apk/x-corp/twitter/twitter-1-2-3-release/", got.Link)
	assert.True(t, strings.HasSuffix(strings.TrimSuffix(got.Link, "/"), "twitter-1-2-3-release"))
}

func TestExplicitVersion_Deterministic(t *testing.T) {
	pins := []string{"10.48.0", "1.2.3-release.0", "9"}
	for _, pin := range pins {
		a := ExplicitVersion(testCatalog, pin)
		b := ExplicitVersion(strings.TrimSuffix(testCatalog, "/"), pin)
		assert.Equal(t, a, b, pin)
		assert.NotContains(t, strings.TrimPrefix(a.Link, testCatalog), ".")
	}
}

func TestVersionResolver_Qualifies(t *testing.T) {
	resolver := NewVersionResolver()

	name, ok := resolver.Qualifies(entities.RunConfig{}, entities.Version{Version: "1.0-release.0"})
	assert.True(t, ok)
	assert.Equal(t, "release marker", name)

	_, ok = resolver.Qualifies(entities.RunConfig{}, entities.Version{Version: "1.0-beta.0"})
	assert.False(t, ok)

	name, ok = resolver.Qualifies(entities.RunConfig{Prerelease: entities.PrereleaseFlags{App: true}}, entities.Version{Version: "1.0-beta.0"})
	assert.True(t, ok)
	assert.Equal(t, "prerelease allowed", name)
}
