package gateways

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
)

// recordingRunner records invocations and optionally creates a file
type recordingRunner struct {
	configs []CommandConfig
	create  string
	result  *CommandResult
}

func (r *recordingRunner) Run(_ context.Context, config CommandConfig) *CommandResult {
	r.configs = append(r.configs, config)
	if r.create != "" {
		_ = os.WriteFile(r.create, []byte("apk"), 0600)
	}
	if r.result != nil {
		return r.result
	}
	return &CommandResult{Success: true}
}

func TestAPKEditorMerger_Merge(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "twitter-1-merged.apk")
	runner := &recordingRunner{create: out}

	merger := NewAPKEditorMerger(runner, "", nil)
	err := merger.Merge(context.Background(), entities.FetchedTool{Path: "/tools/merger-v1.jar"}, "/work/twitter-1.apkm", out)
	require.NoError(t, err)

	require.Len(t, runner.configs, 1)
	assert.Equal(t, "java", runner.configs[0].Name)
	assert.Equal(t, []string{"-jar", "/tools/merger-v1.jar", "m", "-i", "/work/twitter-1.apkm", "-o", out}, runner.configs[0].Args)
}

func TestAPKEditorMerger_MissingOutput(t *testing.T) {
	dir := t.TempDir()
	merger := NewAPKEditorMerger(&recordingRunner{}, "/usr/bin/java", nil)

	err := merger.Merge(context.Background(), entities.FetchedTool{Path: "m.jar"}, "in.apkm", filepath.Join(dir, "out.apk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing")
}

func TestAPKEditorMerger_CommandFailure(t *testing.T) {
	runner := &recordingRunner{result: &CommandResult{ExitCode: 1, Error: errors.New("exit status 1"), Stderr: "bad zip"}}
	merger := NewAPKEditorMerger(runner, "", nil)

	err := merger.Merge(context.Background(), entities.FetchedTool{Path: "m.jar"}, "in.apkm", filepath.Join(t.TempDir(), "out.apk"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad zip")
}

func TestReVancedPatcher_Patch(t *testing.T) {
	dir := t.TempDir()
	runner := &recordingRunner{}
	patcher := NewReVancedPatcher(runner, "/opt/java/bin/java", 0, nil)

	req := gateways.PatchRequest{
		InputPath:    "/work/twitter-1-merged.apk",
		OutputPath:   filepath.Join(dir, "twitter-piko-v1.apk"),
		CLI:          entities.FetchedTool{Path: "/tools/cli.jar"},
		Patches:      entities.FetchedTool{Path: "/tools/patches.rvp"},
		Integrations: entities.FetchedTool{Path: "/tools/integrations.apk"},
		Exclude:      []string{"Hide FAB"},
		Include:      []string{"Bring back twitter"},
		Options:      map[string]string{"b": "2", "a": "1"},
	}
	require.NoError(t, patcher.Patch(context.Background(), req))

	require.Len(t, runner.configs, 1)
	cfg := runner.configs[0]
	assert.Equal(t, "/opt/java/bin/java", cfg.Name)
	assert.Equal(t, []string{
		"-jar", "/tools/cli.jar", "patch",
		"--patch-bundle", "/tools/patches.rvp",
		"--merge", "/tools/integrations.apk",
		"--out", req.OutputPath,
		"--purge",
		"--exclude", "Hide FAB",
		"--include", "Bring back twitter",
		"-Oa=1", "-Ob=2",
		"/work/twitter-1-merged.apk",
	}, cfg.Args)
}
