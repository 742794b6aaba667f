package services

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/ochairo/piko/internal/domain/entities"
)

// ReleaseMarker is the substring that marks a stable catalog version
const ReleaseMarker = "release"

// VersionPredicate reports whether a catalog version qualifies for a run
type VersionPredicate struct {
	Name  string
	Match func(cfg entities.RunConfig, v entities.Version) bool
}

// QualifyingPredicates are composed with OR; a version qualifies when any matches.
var QualifyingPredicates = []VersionPredicate{
	{Name: "prerelease allowed", Match: prereleaseAllowed},
	{Name: "release marker", Match: hasReleaseMarker},
}

func prereleaseAllowed(cfg entities.RunConfig, _ entities.Version) bool {
	return cfg.Prerelease.App
}

func hasReleaseMarker(_ entities.RunConfig, v entities.Version) bool {
	return HasReleaseMarker(v.Version)
}

// HasReleaseMarker reports whether a version string is marked as a release
func HasReleaseMarker(version string) bool {
	return strings.Contains(version, ReleaseMarker)
}

// VersionResolver picks the single target version of a run
type VersionResolver struct {
	predicates []VersionPredicate
}

// NewVersionResolver creates a resolver using QualifyingPredicates
func NewVersionResolver() *VersionResolver {
	return &VersionResolver{predicates: QualifyingPredicates}
}

// Qualifies reports whether v passes any predicate, and which one
func (r *VersionResolver) Qualifies(cfg entities.RunConfig, v entities.Version) (string, bool) {
	for _, p := range r.predicates {
		if p.Match(cfg, v) {
			return p.Name, true
		}
	}
	return "", false
}

// Resolve returns the pinned version or the first qualifying entry of available.
// available must be ordered newest first.
func (r *VersionResolver) Resolve(cfg entities.RunConfig, catalogURL string, available []entities.Version) (entities.Version, error) {
	if cfg.VersionPin != "" {
		return ExplicitVersion(catalogURL, cfg.VersionPin), nil
	}

	for _, v := range available {
		if _, ok := r.Qualifies(cfg, v); ok {
			return v, nil
		}
	}

	return entities.Version{}, NewPipelineError(ResolutionFailure, catalogURL,
		fmt.Errorf("%w among %d listed versions", ErrVersionNotFound, len(available)))
}

// ExplicitVersion synthesizes the locator of a pinned version without a network call.
// For catalog ".../twitter/" and pin "1.2.3" the locator ends in "twitter-1-2-3-release/".
func ExplicitVersion(catalogURL, pin string) entities.Version {
	base := strings.TrimRight(catalogURL, "/")
	slug := catalogSlug(base)
	normalized := strings.ReplaceAll(pin, ".", "-")

	return entities.Version{
		Link:    fmt.Sprintf("%s/%s-%s-%s/", base, slug, normalized, ReleaseMarker),
		Version: pin,
	}
}

func catalogSlug(base string) string {
	if u, err := url.Parse(base); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(base)
}
