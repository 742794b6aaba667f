package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ochairo/piko/internal/domain/entities"
)

// PatchedSuffix is inserted between app name and version in output names
const PatchedSuffix = "-piko-v"

// ReleaseStatus represents the readiness of produced artifacts for publication
type ReleaseStatus string

// Release validation statuses
const (
	StatusReady             ReleaseStatus = "ready"
	StatusNoArtifacts       ReleaseStatus = "no_artifacts"
	StatusPackageMissing    ReleaseStatus = "package_missing"
	StatusSidecarsMissing   ReleaseStatus = "sidecars_missing"
	StatusUnexpectedPackage ReleaseStatus = "unexpected_package"
)

// ReleaseValidation contains the validation result for a set of release assets
type ReleaseValidation struct {
	Status             ReleaseStatus
	ExpectedPackage    string
	MissingSidecars    []string
	UnexpectedPackages []string
	AvailableCount     int
}

// IsReady returns true if the assets may be published
func (rv *ReleaseValidation) IsReady() bool {
	return rv.Status == StatusReady
}

// ErrorMessage returns a human-readable error message if not ready
func (rv *ReleaseValidation) ErrorMessage() string {
	switch rv.Status {
	case StatusReady:
		return ""
	case StatusNoArtifacts:
		return fmt.Sprintf("No artifacts found (expected: %s)", rv.ExpectedPackage)
	case StatusPackageMissing:
		return fmt.Sprintf("Patched package %s not among %d artifacts", rv.ExpectedPackage, rv.AvailableCount)
	case StatusSidecarsMissing:
		return fmt.Sprintf("Missing sidecars: %s", strings.Join(rv.MissingSidecars, ", "))
	case StatusUnexpectedPackage:
		return fmt.Sprintf("Unexpected packages found: %s", strings.Join(rv.UnexpectedPackages, ", "))
	default:
		return "Unknown status"
	}
}

// PatchedFileName returns the conventional name of the patched package
func PatchedFileName(app, version string) string {
	return app + PatchedSuffix + version + ".apk"
}

// ReleaseService handles release validation logic
type ReleaseService struct{}

// NewReleaseService creates a new release service
func NewReleaseService() *ReleaseService {
	return &ReleaseService{}
}

// ValidateRelease checks that artifactPaths hold exactly the patched package for
// recipe at version. When requireSidecars is set its checksum and provenance
// files must be present too.
func (s *ReleaseService) ValidateRelease(recipe *entities.Recipe, version string, artifactPaths []string, requireSidecars bool) *ReleaseValidation {
	expected := PatchedFileName(recipe.Name, version)
	validation := &ReleaseValidation{
		ExpectedPackage: expected,
		AvailableCount:  len(artifactPaths),
	}

	names := make(map[string]bool, len(artifactPaths))
	for _, p := range artifactPaths {
		base := filepath.Base(p)
		names[base] = true
		if strings.HasSuffix(base, ".apk") && base != expected {
			validation.UnexpectedPackages = append(validation.UnexpectedPackages, base)
		}
	}

	if requireSidecars {
		for _, sidecar := range []string{expected + ".sha256", expected + ".provenance.json"} {
			if !names[sidecar] {
				validation.MissingSidecars = append(validation.MissingSidecars, sidecar)
			}
		}
	}

	switch {
	case len(artifactPaths) == 0:
		validation.Status = StatusNoArtifacts
	case !names[expected]:
		validation.Status = StatusPackageMissing
	case len(validation.UnexpectedPackages) > 0:
		validation.Status = StatusUnexpectedPackage
	case len(validation.MissingSidecars) > 0:
		validation.Status = StatusSidecarsMissing
	default:
		validation.Status = StatusReady
	}

	return validation
}
