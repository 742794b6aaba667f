package orchestrators

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
	"github.com/ochairo/piko/internal/domain/services"
)

// PublishInput describes a finished build ready for publication
type PublishInput struct {
	Repository string // owner/repo of the release host
	Recipe     *entities.Recipe
	Version    entities.Version
	Tools      entities.ToolSet
	AssetPaths []string
	Checksums  map[string]string // asset path -> sha256 hex
	Notify     bool
}

// ReleasePlan is the release that Publish would create
type ReleasePlan struct {
	Tag        string
	Name       string
	Notes      string
	Prerelease bool
}

// ReleasePublisher records builds on the ledger and announces them
type ReleasePublisher struct {
	ledger   gateways.ReleaseLedger
	notifier gateways.Notifier
	logger   interfaces.Logger
}

// NewReleasePublisher creates a publisher. notifier may be nil.
func NewReleasePublisher(ledger gateways.ReleaseLedger, notifier gateways.Notifier, logger interfaces.Logger) *ReleasePublisher {
	return &ReleasePublisher{
		ledger:   ledger,
		notifier: notifier,
		logger:   interfaces.OrNoOp(logger),
	}
}

// PlanRelease computes tag, notes and prerelease flag without side effects
func PlanRelease(in PublishInput) ReleasePlan {
	checksums := make(map[string]string, len(in.Checksums))
	for path, sum := range in.Checksums {
		checksums[filepath.Base(path)] = sum
	}

	tag := services.EncodeBuildTag(entities.BuildTag{
		Patches:      in.Tools.Patches.Tag,
		Integrations: in.Tools.Integrations.Tag,
		CLI:          in.Tools.CLI.Tag,
		App:          in.Version.Version,
	})
	notes := services.ComposeReleaseNotes(services.NotesInput{
		AppName:      in.Recipe.DisplayName,
		AppVersion:   in.Version.Version,
		Patches:      in.Tools.Patches,
		Integrations: in.Tools.Integrations,
		CLI:          in.Tools.CLI,
		Checksums:    checksums,
	})

	return ReleasePlan{
		Tag:        tag,
		Name:       fmt.Sprintf("%s %s", in.Recipe.DisplayName, in.Version.Version),
		Notes:      notes,
		Prerelease: IsPrerelease(in.Version, in.Tools),
	}
}

// IsPrerelease reports whether a build must be published as a prerelease:
// any tool release is a prerelease, or the app version lacks the release marker.
func IsPrerelease(version entities.Version, tools entities.ToolSet) bool {
	for _, r := range []entities.ToolRelease{tools.Patches, tools.Integrations, tools.CLI, tools.Merger} {
		if r.Prerelease {
			return true
		}
	}
	return !services.HasReleaseMarker(version.Version)
}

// Publish creates the release with every asset, then announces it when requested.
// A failed announcement is logged; the release stands.
func (p *ReleasePublisher) Publish(ctx context.Context, in PublishInput) (*gateways.GitHubRelease, error) {
	plan := PlanRelease(in)

	release, err := p.ledger.Publish(ctx, in.Repository, gateways.PublishRequest{
		Tag:        plan.Tag,
		Name:       plan.Name,
		Notes:      plan.Notes,
		Prerelease: plan.Prerelease,
		AssetPaths: in.AssetPaths,
	})
	if err != nil {
		return nil, services.NewPipelineError(services.FetchFailure, "release ledger "+in.Repository,
			fmt.Errorf("failed to publish %s: %w", plan.Tag, err))
	}

	p.logger.Info("Published release",
		interfaces.F("tag", plan.Tag),
		interfaces.F("prerelease", plan.Prerelease),
		interfaces.F("url", release.HTMLURL))

	if in.Notify {
		p.announce(ctx, in, release)
	}

	return release, nil
}

func (p *ReleasePublisher) announce(ctx context.Context, in PublishInput, release *gateways.GitHubRelease) {
	if p.notifier == nil {
		p.logger.Warn("Notification requested but no notifier is configured")
		return
	}

	err := p.notifier.Announce(ctx, gateways.Announcement{
		AppName:            in.Recipe.DisplayName,
		AppVersion:         in.Version.Version,
		ReleaseURL:         release.HTMLURL,
		PatchesSource:      in.Tools.Patches.Repo,
		IntegrationsSource: in.Tools.Integrations.Repo,
		PatchesTag:         in.Tools.Patches.Tag,
		IntegrationsTag:    in.Tools.Integrations.Tag,
	})
	if err != nil {
		p.logger.Warn("Failed to send announcement", interfaces.F("error", err.Error()))
	}
}
