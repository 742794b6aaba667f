package services

import (
	"github.com/ochairo/piko/internal/domain/entities"
)

// StalenessInput is everything the detector compares
type StalenessInput struct {
	LastBuild    *entities.BuildRecord // nil when the ledger could not provide it
	ReleaseCount *int                  // nil when the ledger could not provide it
	Resolved     entities.Version
	Patches      entities.ToolRelease
	Integrations entities.ToolRelease
	Config       entities.RunConfig
}

// StalenessDetector decides whether a new build is warranted
type StalenessDetector struct{}

// NewStalenessDetector creates a new staleness detector
func NewStalenessDetector() *StalenessDetector {
	return &StalenessDetector{}
}

// ShouldBuild applies the staleness rules in order; the first match wins.
// It never modifies in.LastBuild.
func (d *StalenessDetector) ShouldBuild(in StalenessInput) (entities.Decision, error) {
	if in.LastBuild == nil && in.ReleaseCount == nil {
		return entities.Decision{}, NewPipelineError(FetchFailure, "release ledger", ErrLedgerUnavailable)
	}

	if in.ReleaseCount != nil && *in.ReleaseCount == 0 {
		return proceed(entities.ReasonFirstBuild), nil
	}

	if in.Config.VersionPin != "" {
		return proceed(entities.ReasonManualVersion), nil
	}

	if in.Config.Prerelease.App {
		return proceed(entities.ReasonPrerelease), nil
	}

	if in.LastBuild == nil || !in.LastBuild.Exists {
		return proceed(entities.ReasonUnrecognizedBuild), nil
	}
	recorded, err := DecodeBuildTag(in.LastBuild.Tag)
	if err != nil {
		return proceed(entities.ReasonUnrecognizedBuild), nil
	}

	switch {
	case recorded.App != in.Resolved.Version:
		return proceed(entities.ReasonNewAppVersion), nil
	case recorded.Patches != in.Patches.Tag:
		return proceed(entities.ReasonNewPatches), nil
	case recorded.Integrations != in.Integrations.Tag:
		return proceed(entities.ReasonNewIntegrations), nil
	}

	return entities.Decision{Proceed: false, Reason: entities.ReasonUpToDate}, nil
}

func proceed(reason entities.Reason) entities.Decision {
	return entities.Decision{Proceed: true, Reason: reason}
}
