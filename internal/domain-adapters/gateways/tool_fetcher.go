package gateways

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
)

// GitHubToolFetcher resolves tool releases on GitHub and caches their assets
type GitHubToolFetcher struct {
	github     gateways.GitHubGateway
	downloader *Downloader
	checksums  gateways.ChecksumVerifier
	signatures gateways.SignatureVerifier
	logger     interfaces.Logger
}

// NewGitHubToolFetcher creates a tool fetcher.
// signatures may be nil, in which case detached signatures are not checked.
func NewGitHubToolFetcher(
	github gateways.GitHubGateway,
	downloader *Downloader,
	checksums gateways.ChecksumVerifier,
	signatures gateways.SignatureVerifier,
	logger interfaces.Logger,
) *GitHubToolFetcher {
	return &GitHubToolFetcher{
		github:     github,
		downloader: downloader,
		checksums:  checksums,
		signatures: signatures,
		logger:     interfaces.OrNoOp(logger),
	}
}

// LatestRelease returns the newest non-draft release of the tool.
// Without allowPrerelease it asks GitHub for the latest stable release.
func (f *GitHubToolFetcher) LatestRelease(ctx context.Context, source entities.ToolSource, allowPrerelease bool) (*entities.ToolRelease, error) {
	owner, repo, err := SplitRepo(source.Repo)
	if err != nil {
		return nil, err
	}

	var release *gateways.GitHubRelease
	if allowPrerelease {
		releases, err := f.github.ListReleases(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
		for _, r := range releases {
			if !r.Draft {
				release = r
				break
			}
		}
		if release == nil {
			return nil, fmt.Errorf("%s: %w", source.Repo, ErrReleaseNotFound)
		}
	} else {
		release, err = f.github.GetLatestRelease(ctx, owner, repo)
		if err != nil {
			return nil, err
		}
	}

	f.logger.Debug("Resolved tool release",
		interfaces.F("tool", source.Kind),
		interfaces.F("tag", release.TagName),
		interfaces.F("prerelease", release.Prerelease))

	return toToolRelease(source, release), nil
}

func toToolRelease(source entities.ToolSource, r *gateways.GitHubRelease) *entities.ToolRelease {
	assets := make([]entities.ToolAsset, 0, len(r.Assets))
	for _, a := range r.Assets {
		assets = append(assets, entities.ToolAsset{
			Name:        a.Name,
			DownloadURL: a.BrowserDownloadURL,
			Digest:      a.Digest,
			Size:        a.Size,
		})
	}

	return &entities.ToolRelease{
		Kind:       source.Kind,
		Repo:       source.Repo,
		Tag:        r.TagName,
		Name:       r.Name,
		Body:       r.Body,
		Prerelease: r.Prerelease,
		Assets:     assets,
	}
}

// SelectAsset returns the first asset whose name matches the source pattern.
// An empty pattern selects the first asset.
func SelectAsset(source entities.ToolSource, release entities.ToolRelease) (entities.ToolAsset, error) {
	pattern, err := regexp.Compile(source.AssetPattern)
	if err != nil {
		return entities.ToolAsset{}, fmt.Errorf("invalid asset pattern for %s: %w", source.Kind, err)
	}

	for _, a := range release.Assets {
		if pattern.MatchString(a.Name) && filepath.Ext(a.Name) != ".asc" {
			return a, nil
		}
	}

	return entities.ToolAsset{}, fmt.Errorf("no asset of %s %s matches %q", release.Repo, release.Tag, source.AssetPattern)
}

// ToolCachePath returns the cache location of a tool asset: <dir>/<kind>-<tag><ext>
func ToolCachePath(dir string, release entities.ToolRelease, asset entities.ToolAsset) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s%s", release.Kind, release.Tag, filepath.Ext(asset.Name)))
}

// Download fetches the release asset matching source into dir, reusing a verified cached copy
func (f *GitHubToolFetcher) Download(ctx context.Context, source entities.ToolSource, release entities.ToolRelease, dir string) (*entities.FetchedTool, error) {
	asset, err := SelectAsset(source, release)
	if err != nil {
		return nil, err
	}

	dest := ToolCachePath(dir, release, asset)
	if _, err := os.Stat(dest); err == nil {
		if verr := f.verify(ctx, dest, release, asset); verr == nil {
			f.logger.Info("Reusing cached tool", interfaces.F("tool", release.Kind), interfaces.F("path", dest))
			return &entities.FetchedTool{Release: release, Path: dest}, nil
		}
		f.logger.Warn("Cached tool failed verification, downloading again", interfaces.F("path", dest))
	}

	if _, err := f.downloader.DownloadFile(ctx, asset.DownloadURL, dest, nil); err != nil {
		return nil, fmt.Errorf("failed to download %s: %w", asset.Name, err)
	}

	if err := f.verify(ctx, dest, release, asset); err != nil {
		//nolint:errcheck,gosec // Best effort removal of an unverified download
		os.Remove(dest)
		return nil, err
	}

	f.logger.Info("Downloaded tool",
		interfaces.F("tool", release.Kind),
		interfaces.F("tag", release.Tag),
		interfaces.F("asset", asset.Name))

	return &entities.FetchedTool{Release: release, Path: dest}, nil
}

// errNoSignature marks assets published without a detached signature
var errNoSignature = errors.New("no signature published")

func (f *GitHubToolFetcher) verify(ctx context.Context, path string, release entities.ToolRelease, asset entities.ToolAsset) error {
	if asset.Digest != "" && f.checksums != nil {
		if err := f.checksums.VerifyChecksum(ctx, path, asset.Digest); err != nil {
			return fmt.Errorf("digest check of %s failed: %w", asset.Name, err)
		}
	}

	if f.signatures == nil {
		return nil
	}

	sigURL, err := signatureURL(release, asset)
	if errors.Is(err, errNoSignature) {
		f.logger.Debug("No detached signature for asset", interfaces.F("asset", asset.Name))
		return nil
	}
	if err := f.signatures.VerifySignature(ctx, path, sigURL); err != nil {
		return fmt.Errorf("signature check of %s failed: %w", asset.Name, err)
	}

	return nil
}

func signatureURL(release entities.ToolRelease, asset entities.ToolAsset) (string, error) {
	for _, a := range release.Assets {
		if a.Name == asset.Name+".asc" {
			return a.DownloadURL, nil
		}
	}
	return "", errNoSignature
}
