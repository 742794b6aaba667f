package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestrators "github.com/ochairo/piko/internal/domain-orchestrators"
	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/interfaces"
)

// runFlags are the per-run switches shared by build, check and versions
type runFlags struct {
	version    string
	prerelease string
	dryRun     bool
	notify     bool
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.version, "version", "", "build this application version instead of the newest qualifying one")
	cmd.Flags().StringVar(&f.prerelease, "prerelease", defaultToggles, "allow prereleases for cli,patches,integrations,app")
}

// runConfig turns the flags into the immutable configuration of a run
func (f *runFlags) runConfig() (entities.RunConfig, error) {
	toggles, err := ParseToggles(f.prerelease)
	if err != nil {
		return entities.RunConfig{}, err
	}
	return entities.RunConfig{
		VersionPin: f.version,
		Prerelease: toggles,
		DryRun:     f.dryRun,
		Notify:     f.notify,
	}, nil
}

func newBuildCmd(v *viper.Viper) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build and publish a patched package when inputs changed",
		Example: `  piko build
  piko build --version 10.48.0-release.0
  piko build --prerelease "false,true,true,false" --notify
  piko build --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, loadConfig(v), flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "stop before publishing and print the planned release")
	cmd.Flags().BoolVar(&flags.notify, "notify", false, "announce the release on Telegram")

	return cmd
}

func runBuild(cmd *cobra.Command, cfg Config, flags *runFlags) error {
	runCfg, err := flags.runConfig()
	if err != nil {
		return fail(err)
	}
	if !runCfg.DryRun {
		if err := cfg.requireRepository(); err != nil {
			return fail(err)
		}
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return fail(err)
	}

	result, err := a.orchestrator.Build(cmd.Context(), runCfg)
	if err != nil {
		a.logger.Error("Build failed", interfaces.F("error", err.Error()))
		return fail(err)
	}

	printBuildSummary(cmd.OutOrStdout(), a.recipe, result)
	return nil
}

func printBuildSummary(w io.Writer, recipe *entities.Recipe, result *orchestrators.BuildResult) {
	check := result.Check

	if !result.Built() {
		fmt.Fprintln(w, WarningStyle.Render("Nothing to do: ")+string(check.Decision.Reason))
		fmt.Fprintln(w, field("Version", check.Version.Version))
		return
	}

	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("%s %s", recipe.DisplayName, check.Version.Version)))
	fmt.Fprintln(w, field("Reason", check.Decision.Reason))
	fmt.Fprintln(w, field("Variant", result.Pipeline.Variant.Name))
	for _, a := range result.Artifacts {
		fmt.Fprintln(w, field(a.Type, a.Name))
	}
	fmt.Fprintln(w, field("Assets", len(result.AssetPaths)))
	fmt.Fprintln(w, field("Build", result.BuildID))
	fmt.Fprintln(w, field("Duration", result.TotalDuration.Round(time.Second)))

	if result.Release == nil {
		fmt.Fprintln(w, field("Tag", result.Plan.Tag))
		fmt.Fprintln(w, field("Prerelease", result.Plan.Prerelease))
		fmt.Fprintln(w, SubtitleStyle.Render("Dry run, release not published. Notes:"))
		fmt.Fprintln(w, result.Plan.Notes)
		return
	}

	fmt.Fprintln(w, field("Tag", result.Release.TagName))
	fmt.Fprintln(w, field("Prerelease", result.Release.Prerelease))
	fmt.Fprintln(w, SuccessStyle.Render("Published ")+result.Release.HTMLURL)
}
