package gateways

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ArtifactFinder provides utilities for locating build artifacts
type ArtifactFinder struct{}

// NewArtifactFinder creates a new artifact finder
func NewArtifactFinder() *ArtifactFinder {
	return &ArtifactFinder{}
}

// Artifact suffixes recognized as release assets
var releaseSuffixes = []string{".apk", ".apk.sha256", ".apk.provenance.json"}

// FindRecursive searches artifactsDir for patched packages of app and their sidecars.
// Files of other versions are returned too so that validation can flag them.
func (f *ArtifactFinder) FindRecursive(artifactsDir, app string) ([]string, error) {
	if _, err := os.Stat(artifactsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("artifacts directory does not exist: %s", artifactsDir)
	}

	prefix := app + "-piko-v"
	var artifacts []string

	err := filepath.Walk(artifactsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		basename := filepath.Base(path)
		if !strings.HasPrefix(basename, prefix) {
			return nil
		}
		for _, suffix := range releaseSuffixes {
			if strings.HasSuffix(basename, suffix) {
				artifacts = append(artifacts, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(artifacts)
	return artifacts, nil
}

// FindByGlob returns the patched package of app at version and whichever of its sidecars exist
func (f *ArtifactFinder) FindByGlob(outputDir, app, version string) ([]string, error) {
	var artifacts []string

	base := glob(app + "-piko-v" + version)
	for _, suffix := range releaseSuffixes {
		pattern := filepath.Join(outputDir, base+suffix)
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}
		artifacts = append(artifacts, matches...)
	}

	return artifacts, nil
}

// glob escapes pattern metacharacters in a literal file name
func glob(name string) string {
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "?", `\?`, "[", `\[`)
	return r.Replace(name)
}
