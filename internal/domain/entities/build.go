package entities

// BuildRecord is the last published build as recorded on the release host
type BuildRecord struct {
	Tag    string
	Notes  string
	Exists bool
}

// BuildTag is the structured form of BuildRecord.Tag
type BuildTag struct {
	Patches      string
	Integrations string
	CLI          string
	App          string
}

// Reason explains a staleness decision
type Reason string

// Staleness reasons, in rule order
const (
	ReasonFirstBuild        Reason = "first build"
	ReasonManualVersion     Reason = "manual version build"
	ReasonPrerelease        Reason = "prerelease build"
	ReasonUnrecognizedBuild Reason = "unrecognized last build"
	ReasonNewAppVersion     Reason = "new application version"
	ReasonNewPatches        Reason = "new patches version"
	ReasonNewIntegrations   Reason = "new integrations version"
	ReasonUpToDate          Reason = "up to date"
)

// Decision is the outcome of a staleness check
type Decision struct {
	Proceed bool
	Reason  Reason
}
