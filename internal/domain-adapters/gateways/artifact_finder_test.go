package gateways

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0750))
		require.NoError(t, os.WriteFile(path, []byte(name), 0600))
	}
}

func TestArtifactFinder_FindByGlob(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"twitter-piko-v10.48.0-release.0.apk",
		"twitter-piko-v10.48.0-release.0.apk.sha256",
		"twitter-piko-v10.47.0-release.0.apk",
		"twitter-10.48.0-release.0-merged.apk",
	)

	found, err := NewArtifactFinder().FindByGlob(dir, "twitter", "10.48.0-release.0")
	require.NoError(t, err)

	var names []string
	for _, p := range found {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{
		"twitter-piko-v10.48.0-release.0.apk",
		"twitter-piko-v10.48.0-release.0.apk.sha256",
	}, names)
}

func TestArtifactFinder_FindRecursive(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"twitter-piko-v1.apk",
		"nested/twitter-piko-v1.apk.provenance.json",
		"nested/twitter-piko-v2.apk",
		"twitter-1.apkm",
		"revanced-cli-v4.jar",
	)

	found, err := NewArtifactFinder().FindRecursive(dir, "twitter")
	require.NoError(t, err)
	assert.Len(t, found, 3)
}

func TestArtifactFinder_FindRecursive_MissingDir(t *testing.T) {
	_, err := NewArtifactFinder().FindRecursive(filepath.Join(t.TempDir(), "absent"), "twitter")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}
