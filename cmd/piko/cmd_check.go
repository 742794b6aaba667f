package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	orchestrators "github.com/ochairo/piko/internal/domain-orchestrators"
	"github.com/ochairo/piko/internal/domain/services"
)

// UpdateInfo reports whether a new build is due
type UpdateInfo struct {
	Package         string `json:"package"`
	CurrentVersion  string `json:"current_version,omitempty"`
	LatestVersion   string `json:"latest_version"`
	PatchesTag      string `json:"patches_tag"`
	IntegrationsTag string `json:"integrations_tag"`
	CLITag          string `json:"cli_tag"`
	UpdateNeeded    bool   `json:"update_needed"`
	Reason          string `json:"reason"`
	Error           string `json:"error,omitempty"`
}

func newCheckCmd(v *viper.Viper) *cobra.Command {
	flags := &runFlags{}
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Report whether a new build is due without building",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := loadConfig(v)
			runCfg, err := flags.runConfig()
			if err != nil {
				return fail(err)
			}
			if err := cfg.requireRepository(); err != nil {
				return fail(err)
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return fail(err)
			}

			check, err := a.orchestrator.Check(cmd.Context(), runCfg)
			info := newUpdateInfo(cfg.Recipe, check, err)
			if jsonOutput {
				if encErr := writeJSON(cmd.OutOrStdout(), info); encErr != nil {
					return fail(encErr)
				}
			} else {
				printUpdateInfo(cmd.OutOrStdout(), info)
			}
			if err != nil {
				return fail(err)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the result as JSON")

	return cmd
}

func newUpdateInfo(pkg string, check *orchestrators.CheckResult, err error) UpdateInfo {
	info := UpdateInfo{Package: pkg}
	if err != nil {
		info.Error = err.Error()
		return info
	}

	if check.LastBuild != nil && check.LastBuild.Exists {
		if tag, decodeErr := services.DecodeBuildTag(check.LastBuild.Tag); decodeErr == nil {
			info.CurrentVersion = tag.App
		}
	}
	info.LatestVersion = check.Version.Version
	info.PatchesTag = check.Tools.Patches.Tag
	info.IntegrationsTag = check.Tools.Integrations.Tag
	info.CLITag = check.Tools.CLI.Tag
	info.UpdateNeeded = check.Decision.Proceed
	info.Reason = string(check.Decision.Reason)

	return info
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printUpdateInfo(w io.Writer, info UpdateInfo) {
	if info.Error != "" {
		fmt.Fprintln(w, ErrorStyle.Render("Check failed: ")+info.Error)
		return
	}

	status := SubtitleStyle.Render("up to date")
	if info.UpdateNeeded {
		status = SuccessStyle.Render("build due")
	}
	fmt.Fprintln(w, TitleStyle.Render(info.Package)+" "+status)
	fmt.Fprintln(w, field("Reason", info.Reason))
	fmt.Fprintln(w, field("Published", valueOr(info.CurrentVersion, "none")))
	fmt.Fprintln(w, field("Latest", info.LatestVersion))
	fmt.Fprintln(w, field("Patches", info.PatchesTag))
	fmt.Fprintln(w, field("Integrations", info.IntegrationsTag))
	fmt.Fprintln(w, field("CLI", info.CLITag))
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
