package gateways

import (
	"context"

	"github.com/ochairo/piko/internal/domain/entities"
)

// ToolFetcher resolves and downloads build tools
type ToolFetcher interface {
	// LatestRelease returns the newest release of the tool.
	// Prereleases are considered only when allowPrerelease is set.
	LatestRelease(ctx context.Context, source entities.ToolSource, allowPrerelease bool) (*entities.ToolRelease, error)

	// Download writes the release asset matching the source pattern into dir
	Download(ctx context.Context, source entities.ToolSource, release entities.ToolRelease, dir string) (*entities.FetchedTool, error)
}

// Merger turns a split-APK bundle into a single installable package
type Merger interface {
	Merge(ctx context.Context, tool entities.FetchedTool, bundlePath, outputPath string) error
}

// PatchRequest carries everything the patcher needs
type PatchRequest struct {
	InputPath    string
	OutputPath   string
	CLI          entities.FetchedTool
	Patches      entities.FetchedTool
	Integrations entities.FetchedTool
	Include      []string
	Exclude      []string
	Options      map[string]string
}

// Patcher applies patches to a merged package
type Patcher interface {
	Patch(ctx context.Context, req PatchRequest) error
}

// Announcement is the payload of a post-publish message
type Announcement struct {
	AppName            string
	AppVersion         string
	ReleaseURL         string
	PatchesSource      string
	IntegrationsSource string
	PatchesTag         string
	IntegrationsTag    string
}

// Notifier posts release announcements to a messaging channel
type Notifier interface {
	Announce(ctx context.Context, a Announcement) error
}
