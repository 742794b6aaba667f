package gateways

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
)

// APKEditorMerger merges split-APK bundles with APKEditor
type APKEditorMerger struct {
	runner  CommandRunner
	java    string
	timeout time.Duration
	logger  interfaces.Logger
}

// NewAPKEditorMerger creates a merger invoking java from the given path
func NewAPKEditorMerger(runner CommandRunner, java string, logger interfaces.Logger) *APKEditorMerger {
	if java == "" {
		java = "java"
	}
	return &APKEditorMerger{
		runner:  runner,
		java:    java,
		timeout: 15 * time.Minute,
		logger:  interfaces.OrNoOp(logger),
	}
}

// Merge runs `APKEditor m` on bundlePath and writes the single APK to outputPath
func (m *APKEditorMerger) Merge(ctx context.Context, tool entities.FetchedTool, bundlePath, outputPath string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0750); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	result := m.runner.Run(ctx, CommandConfig{
		Name:        m.java,
		Args:        []string{"-jar", tool.Path, "m", "-i", bundlePath, "-o", outputPath},
		WorkingDir:  filepath.Dir(outputPath),
		Timeout:     m.timeout,
		Description: "merge bundle",
	})
	if err := result.Err("APKEditor merge"); err != nil {
		return err
	}

	if _, err := os.Stat(outputPath); err != nil {
		return fmt.Errorf("APKEditor reported success but %s is missing: %w", filepath.Base(outputPath), err)
	}

	m.logger.Info("Merged bundle",
		interfaces.F("output", filepath.Base(outputPath)),
		interfaces.F("duration", result.Duration.Round(time.Second)))

	return nil
}
