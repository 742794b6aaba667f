package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is the semantic version (set via -ldflags)
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags)
	Commit = "unknown"
)

// newRootCmd builds the command tree around a shared viper instance
func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:   "piko",
		Short: "Build and publish patched Android packages",
		Long: TitleStyle.Render("piko") + SubtitleStyle.Render(" - patched-app release automation") + `

piko tracks an application on its download catalog, fetches the newest
patch tooling, merges and patches the package and publishes the result
as a GitHub release whose tag records every input version.

` + SubtitleStyle.Render("Environment:") + `
  CURRENT_REPOSITORY   owner/repo receiving releases
  GITHUB_TOKEN         API token (GH_TOKEN is accepted too)
  TELEGRAM_TOKEN       bot token for announcements
  TELEGRAM_CHAT_ID     announcement chat
  TELEGRAM_THREAD_ID   optional forum topic
  PIKO_WORK_DIR        bundle, merge and tool cache
  PIKO_OUTPUT_DIR      patched packages
  PIKO_JAVA            java executable
  PIKO_LOG_LEVEL       debug, info, warn or error`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.String("recipes-dir", "recipes", "directory holding recipe files")
	flags.String("recipe", "twitter", "recipe to run")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	_ = v.BindPFlag("recipes_dir", flags.Lookup("recipes-dir"))
	_ = v.BindPFlag("recipe", flags.Lookup("recipe"))
	_ = v.BindPFlag("log_level", flags.Lookup("log-level"))

	root.AddCommand(
		newBuildCmd(v),
		newCheckCmd(v),
		newVersionsCmd(v),
		newVerifyCmd(v),
	)

	return root
}

func versionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Execute runs the CLI and exits with the code carried by an ExitError
func Execute() {
	root := newRootCmd(newViper())

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(versionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
