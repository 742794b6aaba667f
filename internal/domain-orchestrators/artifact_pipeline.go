package orchestrators

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
	"github.com/ochairo/piko/internal/domain/services"
)

// PipelineConfig holds the directories and policy used by an ArtifactPipeline
type PipelineConfig struct {
	WorkDir   string                 // Bundles, merged packages and tools
	OutputDir string                 // Patched packages and their sidecars
	Policy    services.VariantPolicy // nil selects the default policy
}

// ArtifactPipeline turns a resolved version into a patched package
type ArtifactPipeline struct {
	recipe   *entities.Recipe
	registry gateways.SourceRegistry
	tools    gateways.ToolFetcher
	merger   gateways.Merger
	patcher  gateways.Patcher
	policy   services.VariantPolicy
	workDir  string
	outDir   string
	logger   interfaces.Logger
}

// NewArtifactPipeline creates a pipeline for recipe
func NewArtifactPipeline(
	recipe *entities.Recipe,
	registry gateways.SourceRegistry,
	tools gateways.ToolFetcher,
	merger gateways.Merger,
	patcher gateways.Patcher,
	config PipelineConfig,
	logger interfaces.Logger,
) *ArtifactPipeline {
	policy := config.Policy
	if policy == nil {
		policy = services.NewDefaultVariantPolicy()
	}
	workDir := config.WorkDir
	if workDir == "" {
		workDir = "work"
	}
	outDir := config.OutputDir
	if outDir == "" {
		outDir = "dist"
	}

	return &ArtifactPipeline{
		recipe:   recipe,
		registry: registry,
		tools:    tools,
		merger:   merger,
		patcher:  patcher,
		policy:   policy,
		workDir:  workDir,
		outDir:   outDir,
		logger:   interfaces.OrNoOp(logger),
	}
}

// PipelineResult describes what one pipeline run produced
type PipelineResult struct {
	Variant      entities.Variant
	BundlePath   string
	BundleReused bool
	MergedPath   string
	MergeReused  bool
	OutputPath   string
	Tools        entities.ToolSet
	Duration     time.Duration
}

// BundlePath returns the cache location of the downloaded bundle
func BundlePath(workDir, app, version string) string {
	return filepath.Join(workDir, fmt.Sprintf("%s-%s.apkm", app, version))
}

// MergedPath returns the cache location of the merged package
func MergedPath(workDir, app, version string) string {
	return filepath.Join(workDir, fmt.Sprintf("%s-%s-merged.apk", app, version))
}

// OutputPath returns the location of the patched package
func (p *ArtifactPipeline) OutputPath(version string) string {
	return filepath.Join(p.outDir, services.PatchedFileName(p.recipe.Name, version))
}

// Run downloads, merges and patches version using the given tool releases.
// Stages run in order and nothing is retried.
func (p *ArtifactPipeline) Run(ctx context.Context, version entities.Version, tools entities.ToolSet) (*PipelineResult, error) {
	start := time.Now()
	result := &PipelineResult{Tools: tools}

	variant, err := p.selectVariant(ctx, version)
	if err != nil {
		return nil, err
	}
	result.Variant = variant

	result.BundlePath = BundlePath(p.workDir, p.recipe.Name, version.Version)
	result.BundleReused, err = p.fetchBundle(ctx, variant, result.BundlePath)
	if err != nil {
		return nil, err
	}

	result.MergedPath = MergedPath(p.workDir, p.recipe.Name, version.Version)
	result.MergeReused, err = p.merge(ctx, tools.Merger, result.BundlePath, result.MergedPath)
	if err != nil {
		return nil, err
	}

	result.OutputPath = p.OutputPath(version.Version)
	if err := p.patch(ctx, tools, result.MergedPath, result.OutputPath); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (p *ArtifactPipeline) selectVariant(ctx context.Context, version entities.Version) (entities.Variant, error) {
	variants, err := p.registry.ListVariants(ctx, version)
	if err != nil {
		return entities.Variant{}, services.NewPipelineError(services.FetchFailure, version.Link, err)
	}

	variant, err := services.SelectVariant(p.policy, variants)
	if err != nil {
		return entities.Variant{}, err
	}

	p.logger.Info("Selected variant",
		interfaces.F("variant", variant.Name),
		interfaces.F("architecture", variant.Architecture),
		interfaces.F("bundle", variant.IsBundle))

	return variant, nil
}

func (p *ArtifactPipeline) fetchBundle(ctx context.Context, variant entities.Variant, dest string) (bool, error) {
	if fileExists(dest) {
		p.logger.Info("Reusing downloaded bundle", interfaces.F("path", dest))
		return true, nil
	}

	if err := p.registry.FetchBundle(ctx, variant, dest); err != nil {
		return false, services.NewPipelineError(services.DownloadFailure, variant.DownloadURL, err)
	}
	if !fileExists(dest) {
		return false, services.NewPipelineError(services.DownloadFailure, dest, services.ErrBundleMissing)
	}

	return false, nil
}

func (p *ArtifactPipeline) merge(ctx context.Context, release entities.ToolRelease, bundlePath, mergedPath string) (bool, error) {
	if fileExists(mergedPath) {
		p.logger.Info("Reusing merged package", interfaces.F("path", mergedPath))
		return true, nil
	}

	tool, err := p.acquire(ctx, entities.ToolMerger, release)
	if err != nil {
		return false, err
	}

	if err := p.merger.Merge(ctx, *tool, bundlePath, mergedPath); err != nil {
		return false, services.NewPipelineError(services.DownloadFailure, "merger", err)
	}
	if !fileExists(mergedPath) {
		return false, services.NewPipelineError(services.DownloadFailure, mergedPath, services.ErrMergeOutputMissing)
	}
	return false, nil
}

func (p *ArtifactPipeline) patch(ctx context.Context, tools entities.ToolSet, mergedPath, outputPath string) error {
	cli, err := p.acquire(ctx, entities.ToolCLI, tools.CLI)
	if err != nil {
		return err
	}
	patches, err := p.acquire(ctx, entities.ToolPatches, tools.Patches)
	if err != nil {
		return err
	}
	integrations, err := p.acquire(ctx, entities.ToolIntegrations, tools.Integrations)
	if err != nil {
		return err
	}

	err = p.patcher.Patch(ctx, gateways.PatchRequest{
		InputPath:    mergedPath,
		OutputPath:   outputPath,
		CLI:          *cli,
		Patches:      *patches,
		Integrations: *integrations,
		Include:      p.recipe.Patch.Include,
		Exclude:      p.recipe.Patch.Exclude,
		Options:      p.recipe.Patch.Options,
	})
	if err != nil {
		return services.NewPipelineError(services.DownloadFailure, "patcher", err)
	}

	if !fileExists(outputPath) {
		return services.NewPipelineError(services.DownloadFailure, outputPath, services.ErrPatchOutputMissing)
	}
	return nil
}

func (p *ArtifactPipeline) acquire(ctx context.Context, kind entities.ToolKind, release entities.ToolRelease) (*entities.FetchedTool, error) {
	source, ok := p.recipe.Tool(kind)
	if !ok {
		return nil, services.NewPipelineError(services.ConfigFailure, string(kind),
			fmt.Errorf("recipe %s has no %s tool", p.recipe.Name, kind))
	}

	tool, err := p.tools.Download(ctx, source, release, filepath.Join(p.workDir, "tools"))
	if err != nil {
		return nil, services.NewPipelineError(services.DownloadFailure, source.Repo, err)
	}
	return tool, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
