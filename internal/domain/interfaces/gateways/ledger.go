package gateways

import (
	"context"

	"github.com/ochairo/piko/internal/domain/entities"
)

// PublishRequest describes a release to create
type PublishRequest struct {
	Tag        string
	Name       string
	Notes      string
	Prerelease bool
	AssetPaths []string
}

// ReleaseLedger records published builds on a release host.
// repo is an "owner/name" identifier.
type ReleaseLedger interface {
	// LastBuild returns the latest published build; Exists is false when there is none
	LastBuild(ctx context.Context, repo string) (*entities.BuildRecord, error)

	// CountReleases returns the number of releases published so far
	CountReleases(ctx context.Context, repo string) (int, error)

	// Publish creates the release and uploads every asset
	Publish(ctx context.Context, repo string, req PublishRequest) (*GitHubRelease, error)
}
