package entities

// PrereleaseFlags allow prerelease versions per tracked source
type PrereleaseFlags struct {
	CLI          bool
	Patches      bool
	Integrations bool
	App          bool
}

// Any reports whether at least one source allows prereleases
func (p PrereleaseFlags) Any() bool {
	return p.CLI || p.Patches || p.Integrations || p.App
}

// RunConfig is the resolved operator input for one run.
// It is built once at startup and passed by value.
type RunConfig struct {
	VersionPin string
	Prerelease PrereleaseFlags
	DryRun     bool
	Notify     bool
}
