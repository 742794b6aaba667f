package entities

// ToolKind names one of the external build tools
type ToolKind string

// Tool kinds
const (
	ToolPatches      ToolKind = "patches"
	ToolIntegrations ToolKind = "integrations"
	ToolCLI          ToolKind = "cli"
	ToolMerger       ToolKind = "merger"
)

// ToolSource describes where a tool is released
type ToolSource struct {
	Kind         ToolKind
	Repo         string // owner/repo on GitHub
	AssetPattern string // Regex selecting the release asset to download
}

// ToolRelease is a fetched version descriptor for a tool
type ToolRelease struct {
	Kind       ToolKind
	Repo       string
	Tag        string
	Name       string
	Body       string
	Prerelease bool
	Assets     []ToolAsset
}

// ToolAsset is a downloadable file attached to a ToolRelease
type ToolAsset struct {
	Name        string
	DownloadURL string
	Digest      string // "sha256:<hex>" when reported by the host
	Size        int64
}

// FetchedTool is a tool binary present on local disk
type FetchedTool struct {
	Release ToolRelease
	Path    string
}

// ToolSet holds the tool releases used by one run
type ToolSet struct {
	Patches      ToolRelease
	Integrations ToolRelease
	CLI          ToolRelease
	Merger       ToolRelease
}
