package entities

// Recipe describes the application tracked by the pipeline and its tools
type Recipe struct {
	Name        string // Short app name, used in artifact names ("twitter")
	DisplayName string // Human label used in release notes ("Twitter")
	Description string
	CatalogURL  string
	Tools       map[ToolKind]ToolSource
	Variant     VariantConfig
	Patch       PatchConfig
	Notify      NotifyConfig
	Signatures  SignatureConfig
}

// VariantConfig customizes variant selection
type VariantConfig struct {
	Policy string // Optional CEL expression over `variant`
}

// PatchConfig holds patcher options
type PatchConfig struct {
	Include        []string
	Exclude        []string
	Options        map[string]string
	TimeoutMinutes int
}

// NotifyConfig holds announcement settings
type NotifyConfig struct {
	Template string
}

// SignatureConfig enables GPG verification of tool assets
type SignatureConfig struct {
	Verify  bool
	KeysURL string
	KeyFile string
}

// Tool returns the configured source for kind
func (r *Recipe) Tool(kind ToolKind) (ToolSource, bool) {
	src, ok := r.Tools[kind]
	return src, ok
}
