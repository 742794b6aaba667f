// Package entities defines core domain models and data structures.
package entities

// Artifact represents a file produced or consumed by the pipeline
type Artifact struct {
	Name         string
	Version      string
	Architecture string
	Path         string
	Type         string // "bundle", "merged", "patched", "checksum", "provenance"
}

// Artifact types
const (
	ArtifactBundle     = "bundle"
	ArtifactMerged     = "merged"
	ArtifactPatched    = "patched"
	ArtifactChecksum   = "checksum"
	ArtifactProvenance = "provenance"
)
