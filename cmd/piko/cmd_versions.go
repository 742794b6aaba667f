package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestrators "github.com/ochairo/piko/internal/domain-orchestrators"
)

func newVersionsCmd(v *viper.Viper) *cobra.Command {
	flags := &runFlags{}
	var limit int

	cmd := &cobra.Command{
		Use:   "versions",
		Short: "List catalog versions and mark the ones a build would accept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runCfg, err := flags.runConfig()
			if err != nil {
				return fail(err)
			}

			a, err := newApp(cmd.Context(), loadConfig(v))
			if err != nil {
				return fail(err)
			}

			statuses, err := a.orchestrator.ListVersions(cmd.Context(), runCfg)
			if err != nil {
				return fail(err)
			}

			printVersions(cmd.OutOrStdout(), a.recipe.DisplayName, statuses, limit)
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.prerelease, "prerelease", defaultToggles, "allow prereleases for cli,patches,integrations,app")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of versions to show (0 for all)")

	return cmd
}

func printVersions(w io.Writer, app string, statuses []orchestrators.VersionStatus, limit int) {
	fmt.Fprintln(w, TitleStyle.Render(app+" versions"))

	selected := false
	for i, s := range statuses {
		if limit > 0 && i >= limit {
			fmt.Fprintln(w, SubtitleStyle.Render(fmt.Sprintf("... %d more", len(statuses)-limit)))
			break
		}

		switch {
		case s.Qualifies && !selected:
			selected = true
			fmt.Fprintln(w, SuccessStyle.Render("> "+s.Version.Version)+SubtitleStyle.Render("  "+s.Predicate+", selected"))
		case s.Qualifies:
			fmt.Fprintln(w, "  "+s.Version.Version+SubtitleStyle.Render("  "+s.Predicate))
		default:
			fmt.Fprintln(w, SubtitleStyle.Render("  "+s.Version.Version))
		}
	}
}
