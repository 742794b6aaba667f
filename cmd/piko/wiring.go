package main

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ochairo/piko/internal/domain-adapters/gateways"
	orchestrators "github.com/ochairo/piko/internal/domain-orchestrators"
	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
	ports "github.com/ochairo/piko/internal/domain/interfaces/gateways"
	"github.com/ochairo/piko/internal/domain/interfaces/repositories"
	"github.com/ochairo/piko/internal/domain/services"
	"github.com/ochairo/piko/internal/external-adapters/cel"
	"github.com/ochairo/piko/internal/external-adapters/charmlog"
	"github.com/ochairo/piko/internal/external-adapters/gpg"
	"github.com/ochairo/piko/internal/external-adapters/yaml"
)

// app holds the collaborators of one invocation
type app struct {
	config       Config
	recipe       *entities.Recipe
	runID        string
	logger       *charmlog.Logger
	orchestrator *orchestrators.BuildOrchestrator
}

func newLogger(cfg Config) (*charmlog.Logger, string) {
	runID := uuid.NewString()
	return charmlog.New(os.Stderr, "piko", cfg.LogLevel).With(interfaces.F("run_id", runID)), runID
}

// newApp loads the recipe and wires every adapter behind the orchestrator
func newApp(ctx context.Context, cfg Config) (*app, error) {
	logger, runID := newLogger(cfg)

	var recipes repositories.RecipeRepository = yaml.NewRecipeRepository(cfg.RecipesDir, logger)
	recipe, err := recipes.GetRecipe(ctx, cfg.Recipe)
	if err != nil {
		return nil, services.NewPipelineError(services.ConfigFailure, "recipe "+cfg.Recipe, err)
	}

	github := gateways.NewHTTPGitHubGateway(cfg.GitHubToken, gateways.WithGitHubLogger(logger))
	downloader := gateways.NewDownloader(logger)

	signatures, err := newSignatureVerifier(ctx, recipe)
	if err != nil {
		return nil, err
	}
	tools := gateways.NewGitHubToolFetcher(github, downloader, gateways.NewChecksumVerifier(), signatures, logger)

	registry := gateways.NewAPKMirrorGateway(nil, downloader, logger)
	runner := gateways.NewExecRunner(logger)
	merger := gateways.NewAPKEditorMerger(runner, cfg.Java, logger)
	patcher := gateways.NewReVancedPatcher(runner, cfg.Java, time.Duration(recipe.Patch.TimeoutMinutes)*time.Minute, logger)

	var policy services.VariantPolicy
	if recipe.Variant.Policy != "" {
		p, err := cel.NewVariantPolicy(recipe.Variant.Policy)
		if err != nil {
			return nil, services.NewPipelineError(services.ConfigFailure, "variant policy", err)
		}
		policy = p
	}

	notifier, err := newNotifier(cfg, recipe, logger)
	if err != nil {
		return nil, err
	}

	ledger := gateways.NewGitHubLedger(github, logger)
	pipeline := orchestrators.NewArtifactPipeline(recipe, registry, tools, merger, patcher,
		orchestrators.PipelineConfig{WorkDir: cfg.WorkDir, OutputDir: cfg.OutputDir, Policy: policy}, logger)
	publisher := orchestrators.NewReleasePublisher(ledger, notifier, logger)

	orch := orchestrators.NewBuildOrchestrator(recipe, registry, ledger, tools, pipeline, publisher,
		gateways.NewArtifactFinder(),
		orchestrators.BuildOrchestratorConfig{
			Repository: cfg.Repository,
			OutputDir:  cfg.OutputDir,
			BuildID:    runID,
		}, logger)

	return &app{
		config:       cfg,
		recipe:       recipe,
		runID:        runID,
		logger:       logger,
		orchestrator: orch,
	}, nil
}

// newSignatureVerifier returns nil unless the recipe asks for signature checks
func newSignatureVerifier(ctx context.Context, recipe *entities.Recipe) (ports.SignatureVerifier, error) {
	if !recipe.Signatures.Verify {
		return nil, nil
	}

	v := gpg.NewVerifier()
	if recipe.Signatures.KeysURL != "" {
		if err := v.ImportKeysFromURL(ctx, recipe.Signatures.KeysURL); err != nil {
			return nil, services.NewPipelineError(services.FetchFailure, recipe.Signatures.KeysURL, err)
		}
	}
	if recipe.Signatures.KeyFile != "" {
		if err := v.ImportKeyFromFile(recipe.Signatures.KeyFile); err != nil {
			return nil, services.NewPipelineError(services.ConfigFailure, recipe.Signatures.KeyFile, err)
		}
	}
	return v, nil
}

// newNotifier returns nil when Telegram is not configured
func newNotifier(cfg Config, recipe *entities.Recipe, logger interfaces.Logger) (ports.Notifier, error) {
	if !cfg.notifierConfigured() {
		return nil, nil
	}

	n, err := gateways.NewTelegramNotifier(cfg.TelegramToken, cfg.TelegramChatID, recipe.Notify.Template,
		gateways.WithTelegramThread(cfg.TelegramThreadID),
		gateways.WithTelegramLogger(logger))
	if err != nil {
		return nil, services.NewPipelineError(services.ConfigFailure, "notify template", err)
	}
	return n, nil
}
