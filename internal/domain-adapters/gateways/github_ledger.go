package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
)

// GitHubLedger keeps the build history as releases of a GitHub repository
type GitHubLedger struct {
	github gateways.GitHubGateway
	logger interfaces.Logger
}

// NewGitHubLedger creates a ledger backed by GitHub releases
func NewGitHubLedger(github gateways.GitHubGateway, logger interfaces.Logger) *GitHubLedger {
	return &GitHubLedger{
		github: github,
		logger: interfaces.OrNoOp(logger),
	}
}

// LastBuild returns the newest non-draft release
func (l *GitHubLedger) LastBuild(ctx context.Context, repo string) (*entities.BuildRecord, error) {
	releases, err := l.published(ctx, repo)
	if err != nil {
		return nil, err
	}
	if len(releases) == 0 {
		return &entities.BuildRecord{}, nil
	}

	return &entities.BuildRecord{
		Tag:    releases[0].TagName,
		Notes:  releases[0].Body,
		Exists: true,
	}, nil
}

// CountReleases returns the number of non-draft releases
func (l *GitHubLedger) CountReleases(ctx context.Context, repo string) (int, error) {
	releases, err := l.published(ctx, repo)
	if err != nil {
		return 0, err
	}
	return len(releases), nil
}

func (l *GitHubLedger) published(ctx context.Context, repo string) ([]*gateways.GitHubRelease, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	all, err := l.github.ListReleases(ctx, owner, name)
	if err != nil {
		return nil, err
	}

	releases := make([]*gateways.GitHubRelease, 0, len(all))
	for _, r := range all {
		if !r.Draft {
			releases = append(releases, r)
		}
	}
	return releases, nil
}

// Publish creates the release and uploads every asset.
// The first failed upload fails the publish; the release is left as is.
func (l *GitHubLedger) Publish(ctx context.Context, repo string, req gateways.PublishRequest) (*gateways.GitHubRelease, error) {
	owner, name, err := SplitRepo(repo)
	if err != nil {
		return nil, err
	}

	release, err := l.github.CreateRelease(ctx, owner, name, &gateways.GitHubRelease{
		TagName:    req.Tag,
		Name:       req.Name,
		Body:       req.Notes,
		Prerelease: req.Prerelease,
	})
	if err != nil {
		return nil, err
	}

	l.logger.Info("Created release",
		interfaces.F("tag", release.TagName),
		interfaces.F("prerelease", release.Prerelease))

	for _, path := range req.AssetPaths {
		asset, err := l.upload(ctx, release.UploadURL, path)
		if err != nil {
			return nil, err
		}
		release.Assets = append(release.Assets, asset)
		l.logger.Debug("Uploaded asset", interfaces.F("asset", asset.Name), interfaces.F("size", asset.Size))
	}

	return release, nil
}

func (l *GitHubLedger) upload(ctx context.Context, uploadURL, path string) (*gateways.GitHubAsset, error) {
	//nolint:gosec // G304: asset paths come from the build output directory
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset: %w", err)
	}
	//nolint:errcheck // Defer close on read-only file
	defer file.Close()

	return l.github.UploadAsset(ctx, uploadURL, filepath.Base(path), file)
}
