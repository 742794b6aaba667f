package orchestrators

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/services"
)

var releaseVersion = entities.Version{Version: "10.48.0-release.0", Link: catalogURL + "twitter-10-48-0-release-0-release/"}

func (f *fixture) pipeline(policy services.VariantPolicy) *ArtifactPipeline {
	return NewArtifactPipeline(testRecipe(), f.registry, f.tools, f.merger, f.patcher,
		PipelineConfig{WorkDir: f.workDir, OutputDir: f.outDir, Policy: policy}, nil)
}

func (f *fixture) toolSet() entities.ToolSet {
	r := f.tools.releases
	return entities.ToolSet{
		Patches:      r[entities.ToolPatches],
		Integrations: r[entities.ToolIntegrations],
		CLI:          r[entities.ToolCLI],
		Merger:       r[entities.ToolMerger],
	}
}

func TestArtifactPipeline_Run(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline(nil).Run(context.Background(), releaseVersion, f.toolSet())
	require.NoError(t, err)

	assert.Equal(t, "bundle", result.Variant.Name)
	assert.Equal(t, filepath.Join(f.workDir, "twitter-10.48.0-release.0.apkm"), result.BundlePath)
	assert.Equal(t, filepath.Join(f.workDir, "twitter-10.48.0-release.0-merged.apk"), result.MergedPath)
	assert.Equal(t, filepath.Join(f.outDir, "twitter-piko-v10.48.0-release.0.apk"), result.OutputPath)
	assert.False(t, result.MergeReused)
	assert.Equal(t, 1, f.merger.calls)

	require.Len(t, f.patcher.requests, 1)
	req := f.patcher.requests[0]
	assert.Equal(t, result.MergedPath, req.InputPath)
	assert.Equal(t, "p1", req.Patches.Release.Tag)
	assert.Equal(t, []string{"Hide FAB"}, req.Exclude)
}

func TestArtifactPipeline_Run_ReusesMergedPackage(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.workDir, 0750))
	merged := MergedPath(f.workDir, "twitter", releaseVersion.Version)
	require.NoError(t, os.WriteFile(merged, []byte("merged earlier"), 0600))

	result, err := f.pipeline(nil).Run(context.Background(), releaseVersion, f.toolSet())
	require.NoError(t, err)

	assert.True(t, result.MergeReused)
	assert.Zero(t, f.merger.calls)
	assert.NotContains(t, f.tools.downloaded, entities.ToolMerger)
}

func TestArtifactPipeline_Run_ReusesBundle(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.MkdirAll(f.workDir, 0750))
	require.NoError(t, os.WriteFile(BundlePath(f.workDir, "twitter", releaseVersion.Version), []byte("b"), 0600))

	result, err := f.pipeline(nil).Run(context.Background(), releaseVersion, f.toolSet())
	require.NoError(t, err)
	assert.True(t, result.BundleReused)
	assert.Empty(t, f.registry.fetchedBundle)
}

func TestArtifactPipeline_Run_FirstMatchingVariant(t *testing.T) {
	f := newFixture(t)
	f.registry.variants = []entities.Variant{
		{Name: "v7a", Architecture: "armeabi-v7a"},
		{Name: "arm64", IsBundle: true, Architecture: entities.ArchARM64},
		{Name: "universal", IsBundle: true, Architecture: entities.ArchUniversal},
	}

	result, err := f.pipeline(nil).Run(context.Background(), releaseVersion, f.toolSet())
	require.NoError(t, err)
	assert.Equal(t, "arm64", result.Variant.Name)
}

func TestArtifactPipeline_Run_NoVariant(t *testing.T) {
	f := newFixture(t)
	f.registry.variants = []entities.Variant{{Name: "x86", Architecture: "x86"}}

	_, err := f.pipeline(nil).Run(context.Background(), releaseVersion, f.toolSet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrNoVariant))
	assert.Empty(t, f.registry.fetchedBundle)
}

func TestArtifactPipeline_Run_BundleMissing(t *testing.T) {
	f := newFixture(t)
	f.registry.skipWrite = true

	_, err := f.pipeline(nil).Run(context.Background(), releaseVersion, f.toolSet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrBundleMissing))

	kind, _ := services.KindOf(err)
	assert.Equal(t, services.DownloadFailure, kind)
}

func TestArtifactPipeline_Run_MergeOutputMissing(t *testing.T) {
	f := newFixture(t)
	f.merger.skipWrite = true

	_, err := f.pipeline(nil).Run(context.Background(), releaseVersion, f.toolSet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrMergeOutputMissing))

	kind, _ := services.KindOf(err)
	assert.Equal(t, services.DownloadFailure, kind)
	assert.Equal(t, 1, f.merger.calls)
	assert.Empty(t, f.patcher.requests)
}

func TestArtifactPipeline_Run_PatchOutputMissing(t *testing.T) {
	f := newFixture(t)
	f.patcher.skipWrite = true

	_, err := f.pipeline(nil).Run(context.Background(), releaseVersion, f.toolSet())
	require.Error(t, err)
	assert.True(t, errors.Is(err, services.ErrPatchOutputMissing))
}

type namePolicy string

func (p namePolicy) Name() string { return string(p) }

func (p namePolicy) Match(v entities.Variant) (bool, error) { return v.Name == string(p), nil }

func TestArtifactPipeline_Run_CustomPolicy(t *testing.T) {
	f := newFixture(t)

	result, err := f.pipeline(namePolicy("apk")).Run(context.Background(), releaseVersion, f.toolSet())
	require.NoError(t, err)
	assert.Equal(t, "armeabi-v7a", result.Variant.Architecture)
}
