package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ochairo/piko/internal/domain/interfaces"
	"github.com/ochairo/piko/internal/domain/interfaces/gateways"
)

// ReVancedPatcher applies patch bundles through revanced-cli
type ReVancedPatcher struct {
	runner  CommandRunner
	java    string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewReVancedPatcher creates a patcher invoking java from the given path.
// timeout bounds a single patch run; zero means 30 minutes.
func NewReVancedPatcher(runner CommandRunner, java string, timeout time.Duration, logger interfaces.Logger) *ReVancedPatcher {
	if java == "" {
		java = "java"
	}
	if timeout == 0 {
		timeout = 30 * time.Minute
	}
	return &ReVancedPatcher{
		runner:  runner,
		java:    java,
		timeout: timeout,
		logger:  interfaces.OrNoOp(logger),
	}
}

// Patch runs `revanced-cli patch` on the merged package
func (p *ReVancedPatcher) Patch(ctx context.Context, req gateways.PatchRequest) error {
	if err := os.MkdirAll(filepath.Dir(req.OutputPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	result := p.runner.Run(ctx, CommandConfig{
		Name:        p.java,
		Args:        PatchArgs(req),
		WorkingDir:  filepath.Dir(req.OutputPath),
		Timeout:     p.timeout,
		Description: "patch",
	})
	if err := result.Err("revanced-cli patch"); err != nil {
		return err
	}

	p.logger.Info("Patched package",
		interfaces.F("output", filepath.Base(req.OutputPath)),
		interfaces.F("duration", result.Duration.Round(time.Second)))

	return nil
}

// PatchArgs builds the revanced-cli argument list for req
func PatchArgs(req gateways.PatchRequest) []string {
	args := []string{
		"-jar", req.CLI.Path,
		"patch",
		"--patch-bundle", req.Patches.Path,
		"--merge", req.Integrations.Path,
		"--out", req.OutputPath,
		"--purge",
	}

	for _, name := range req.Exclude {
		args = append(args, "--exclude", name)
	}
	for _, name := range req.Include {
		args = append(args, "--include", name)
	}

	keys := make([]string, 0, len(req.Options))
	for k := range req.Options {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, fmt.Sprintf("-O%s=%s", k, req.Options[k]))
	}

	return append(args, req.InputPath)
}
