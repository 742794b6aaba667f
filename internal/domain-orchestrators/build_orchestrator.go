// Package orchestrators coordinates complex workflows across multiple domain services.
package orchestrators

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
	"github.com/ochairo/piko/internal/domain/services"
)

// ArtifactLocator lists the release assets present in an output directory
type ArtifactLocator interface {
	FindByGlob(outputDir, app, version string) ([]string, error)
}

// BuildOrchestratorConfig holds configuration for the orchestrator
type BuildOrchestratorConfig struct {
	Repository string // owner/repo receiving the releases
	OutputDir  string
	BuildID    string // Defaults to a random UUID
}

// BuildOrchestrator coordinates the complete build workflow of one recipe
type BuildOrchestrator struct {
	recipe    *entities.Recipe
	registry  gateways.SourceRegistry
	ledger    gateways.ReleaseLedger
	tools     gateways.ToolFetcher
	pipeline  *ArtifactPipeline
	publisher *ReleasePublisher
	sidecars  *services.SidecarService
	finder    ArtifactLocator
	resolver  *services.VersionResolver
	detector  *services.StalenessDetector
	releases  *services.ReleaseService
	config    BuildOrchestratorConfig
	logger    interfaces.Logger
}

// NewBuildOrchestrator creates a new build orchestrator
func NewBuildOrchestrator(
	recipe *entities.Recipe,
	registry gateways.SourceRegistry,
	ledger gateways.ReleaseLedger,
	tools gateways.ToolFetcher,
	pipeline *ArtifactPipeline,
	publisher *ReleasePublisher,
	finder ArtifactLocator,
	config BuildOrchestratorConfig,
	logger interfaces.Logger,
) *BuildOrchestrator {
	if config.OutputDir == "" {
		config.OutputDir = "dist"
	}
	if config.BuildID == "" {
		config.BuildID = uuid.NewString()
	}
	logger = interfaces.OrNoOp(logger)

	return &BuildOrchestrator{
		recipe:    recipe,
		registry:  registry,
		ledger:    ledger,
		tools:     tools,
		pipeline:  pipeline,
		publisher: publisher,
		sidecars:  services.NewSidecarService(logger),
		finder:    finder,
		resolver:  services.NewVersionResolver(),
		detector:  services.NewStalenessDetector(),
		releases:  services.NewReleaseService(),
		config:    config,
		logger:    logger,
	}
}

// CheckResult is the outcome of resolution and staleness detection
type CheckResult struct {
	Version   entities.Version
	Tools     entities.ToolSet
	LastBuild *entities.BuildRecord
	Decision  entities.Decision
}

// BuildResult contains the result of a build operation
type BuildResult struct {
	Check         *CheckResult
	Pipeline      *PipelineResult
	Plan          *ReleasePlan
	Release       *gateways.GitHubRelease
	Artifacts     []entities.Artifact
	AssetPaths    []string
	BuildID       string
	TotalDuration time.Duration
}

// Built reports whether the run produced a package
func (r *BuildResult) Built() bool {
	return r.Pipeline != nil
}

// VersionStatus is a catalog version annotated with its qualification
type VersionStatus struct {
	Version   entities.Version
	Qualifies bool
	Predicate string // Name of the first matching predicate
}

// ListVersions returns the catalog listing, marking versions that would qualify under cfg
func (o *BuildOrchestrator) ListVersions(ctx context.Context, cfg entities.RunConfig) ([]VersionStatus, error) {
	versions, err := o.registry.ListVersions(ctx, o.recipe.CatalogURL)
	if err != nil {
		return nil, services.NewPipelineError(services.FetchFailure, o.recipe.CatalogURL, err)
	}

	statuses := make([]VersionStatus, len(versions))
	for i, v := range versions {
		name, ok := o.resolver.Qualifies(cfg, v)
		statuses[i] = VersionStatus{Version: v, Qualifies: ok, Predicate: name}
	}
	return statuses, nil
}

// Check resolves the target version and tools and decides whether to build
func (o *BuildOrchestrator) Check(ctx context.Context, cfg entities.RunConfig) (*CheckResult, error) {
	version, err := o.resolve(ctx, cfg)
	if err != nil {
		return nil, err
	}
	o.logger.Info("Resolved application version", interfaces.F("version", version.Version))

	tools, err := o.fetchToolReleases(ctx, cfg.Prerelease)
	if err != nil {
		return nil, err
	}

	lastBuild, count := o.readLedger(ctx, cfg)

	decision, err := o.detector.ShouldBuild(services.StalenessInput{
		LastBuild:    lastBuild,
		ReleaseCount: count,
		Resolved:     version,
		Patches:      tools.Patches,
		Integrations: tools.Integrations,
		Config:       cfg,
	})
	if err != nil {
		return nil, err
	}

	o.logger.Info("Staleness decision",
		interfaces.F("proceed", decision.Proceed),
		interfaces.F("reason", string(decision.Reason)))

	return &CheckResult{
		Version:   version,
		Tools:     tools,
		LastBuild: lastBuild,
		Decision:  decision,
	}, nil
}

// Build runs the whole workflow: check, pipeline, sidecars, validation and publication.
// An up-to-date result is returned without error and without a pipeline result.
func (o *BuildOrchestrator) Build(ctx context.Context, cfg entities.RunConfig) (*BuildResult, error) {
	startTime := time.Now()
	result := &BuildResult{BuildID: o.config.BuildID}

	check, err := o.Check(ctx, cfg)
	if err != nil {
		return nil, err
	}
	result.Check = check
	if !check.Decision.Proceed {
		result.TotalDuration = time.Since(startTime)
		return result, nil
	}

	pipeline, err := o.pipeline.Run(ctx, check.Version, check.Tools)
	if err != nil {
		return nil, err
	}
	result.Pipeline = pipeline

	sidecars, err := o.sidecars.GenerateAll(pipeline.OutputPath, services.ProvenanceInput{
		BuildID:    o.config.BuildID,
		Repository: o.config.Repository,
		AppVersion: check.Version.Version,
		Tools:      check.Tools,
		StartedAt:  startTime,
	})
	if err != nil {
		return nil, services.NewPipelineError(services.DownloadFailure, pipeline.OutputPath, err)
	}
	result.Artifacts = pipelineArtifacts(check.Version.Version, pipeline, sidecars)

	assets, err := o.collectAssets(check.Version.Version)
	if err != nil {
		return nil, err
	}
	result.AssetPaths = assets

	input := PublishInput{
		Repository: o.config.Repository,
		Recipe:     o.recipe,
		Version:    check.Version,
		Tools:      check.Tools,
		AssetPaths: assets,
		Checksums:  map[string]string{pipeline.OutputPath: sidecars.SHA256},
		Notify:     cfg.Notify,
	}
	plan := PlanRelease(input)
	result.Plan = &plan

	if cfg.DryRun {
		o.logger.Info("Dry run, skipping publication", interfaces.F("tag", plan.Tag))
		result.TotalDuration = time.Since(startTime)
		return result, nil
	}

	release, err := o.publisher.Publish(ctx, input)
	if err != nil {
		return nil, err
	}
	result.Release = release
	result.TotalDuration = time.Since(startTime)

	return result, nil
}

func (o *BuildOrchestrator) resolve(ctx context.Context, cfg entities.RunConfig) (entities.Version, error) {
	if cfg.VersionPin != "" {
		return o.resolver.Resolve(cfg, o.recipe.CatalogURL, nil)
	}

	available, err := o.registry.ListVersions(ctx, o.recipe.CatalogURL)
	if err != nil {
		return entities.Version{}, services.NewPipelineError(services.FetchFailure, o.recipe.CatalogURL, err)
	}
	return o.resolver.Resolve(cfg, o.recipe.CatalogURL, available)
}

func (o *BuildOrchestrator) fetchToolReleases(ctx context.Context, flags entities.PrereleaseFlags) (entities.ToolSet, error) {
	fetch := func(kind entities.ToolKind, allowPrerelease bool) (entities.ToolRelease, error) {
		source, ok := o.recipe.Tool(kind)
		if !ok {
			return entities.ToolRelease{}, services.NewPipelineError(services.ConfigFailure, string(kind),
				fmt.Errorf("recipe %s has no %s tool", o.recipe.Name, kind))
		}
		release, err := o.tools.LatestRelease(ctx, source, allowPrerelease)
		if err != nil {
			return entities.ToolRelease{}, services.NewPipelineError(services.FetchFailure, source.Repo, err)
		}
		return *release, nil
	}

	var (
		tools entities.ToolSet
		err   error
	)
	if tools.Patches, err = fetch(entities.ToolPatches, flags.Patches); err != nil {
		return tools, err
	}
	if tools.Integrations, err = fetch(entities.ToolIntegrations, flags.Integrations); err != nil {
		return tools, err
	}
	if tools.CLI, err = fetch(entities.ToolCLI, flags.CLI); err != nil {
		return tools, err
	}
	if tools.Merger, err = fetch(entities.ToolMerger, false); err != nil {
		return tools, err
	}

	return tools, nil
}

// readLedger returns nil for each value the ledger could not provide.
// A dry run without a repository has nothing to compare against and counts as a first build.
func (o *BuildOrchestrator) readLedger(ctx context.Context, cfg entities.RunConfig) (*entities.BuildRecord, *int) {
	if o.config.Repository == "" {
		if cfg.DryRun {
			o.logger.Warn("No release repository configured, dry run treated as a first build")
			zero := 0
			return nil, &zero
		}
		o.logger.Warn("No release repository configured")
		return nil, nil
	}

	lastBuild, err := o.ledger.LastBuild(ctx, o.config.Repository)
	if err != nil {
		o.logger.Warn("Failed to read last build", interfaces.F("error", err.Error()))
		lastBuild = nil
	}

	var count *int
	n, err := o.ledger.CountReleases(ctx, o.config.Repository)
	if err != nil {
		o.logger.Warn("Failed to count releases", interfaces.F("error", err.Error()))
	} else {
		count = &n
	}

	return lastBuild, count
}

func (o *BuildOrchestrator) collectAssets(version string) ([]string, error) {
	assets, err := o.finder.FindByGlob(o.config.OutputDir, o.recipe.Name, version)
	if err != nil {
		return nil, services.NewPipelineError(services.DownloadFailure, o.config.OutputDir, err)
	}

	validation := o.releases.ValidateRelease(o.recipe, version, assets, true)
	if !validation.IsReady() {
		return nil, services.NewPipelineError(services.DownloadFailure, o.config.OutputDir,
			errors.New(validation.ErrorMessage()))
	}

	o.logger.Debug("Collected release assets", interfaces.F("count", len(assets)), interfaces.F("dir", filepath.Clean(o.config.OutputDir)))
	return assets, nil
}

// pipelineArtifacts lists the files a run produced or reused, in pipeline order
func pipelineArtifacts(version string, p *PipelineResult, s *services.Sidecars) []entities.Artifact {
	files := []struct {
		path string
		kind string
	}{
		{p.BundlePath, entities.ArtifactBundle},
		{p.MergedPath, entities.ArtifactMerged},
		{p.OutputPath, entities.ArtifactPatched},
		{s.SHA256Path, entities.ArtifactChecksum},
		{s.ProvenancePath, entities.ArtifactProvenance},
	}

	artifacts := make([]entities.Artifact, len(files))
	for i, f := range files {
		artifacts[i] = entities.Artifact{
			Name:         filepath.Base(f.path),
			Version:      version,
			Architecture: p.Variant.Architecture,
			Path:         f.path,
			Type:         f.kind,
		}
	}
	return artifacts
}
