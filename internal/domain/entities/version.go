package entities

// Version identifies an upstream application release on the catalog
type Version struct {
	Link    string // Locator of the version detail page
	Version string // Free-form, e.g. "10.48.0-release.0" or "10.49.0-beta.1"
}

// Variant is one downloadable form of a Version
type Variant struct {
	Name         string
	IsBundle     bool
	Architecture string // CPU ABI, or "universal"
	MinAndroid   string
	DPI          string
	DownloadURL  string
}

// Well-known architectures
const (
	ArchUniversal = "universal"
	ArchARM64     = "arm64-v8a"
)
