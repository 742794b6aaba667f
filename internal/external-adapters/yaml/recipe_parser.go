// Package yaml provides YAML-based recipe parsing and repository implementations.
package yaml

import (
	"fmt"
	"os"
	"regexp"

	"github.com/ochairo/piko/internal/domain/entities"
	"gopkg.in/yaml.v3"
)

// yamlRecipe represents the raw YAML structure
type yamlRecipe struct {
	Name        string                    `yaml:"name"`
	DisplayName string                    `yaml:"display_name"`
	Description string                    `yaml:"description"`
	CatalogURL  string                    `yaml:"catalog_url"`
	Tools       map[string]yamlToolSource `yaml:"tools"`
	Variant     yamlVariant               `yaml:"variant"`
	Patch       yamlPatch                 `yaml:"patch"`
	Notify      yamlNotify                `yaml:"notify"`
	Security    yamlSecurity              `yaml:"security"`
}

type yamlToolSource struct {
	Repo  string `yaml:"repo"`
	Asset string `yaml:"asset"`
}

type yamlVariant struct {
	Policy string `yaml:"policy"`
}

type yamlPatch struct {
	Include        []string          `yaml:"include"`
	Exclude        []string          `yaml:"exclude"`
	Options        map[string]string `yaml:"options"`
	TimeoutMinutes int               `yaml:"timeout_minutes"`
}

type yamlNotify struct {
	Template string `yaml:"template"`
}

type yamlSecurity struct {
	VerifySignature bool   `yaml:"verify_signature"`
	GPGKeysURL      string `yaml:"gpg_keys_url"`
	GPGKeyFile      string `yaml:"gpg_key_file"`
}

// requiredTools must be present in every recipe
var requiredTools = []entities.ToolKind{
	entities.ToolPatches,
	entities.ToolIntegrations,
	entities.ToolCLI,
	entities.ToolMerger,
}

// RecipeParser parses YAML recipe files
type RecipeParser struct{}

// NewRecipeParser creates a new YAML parser
func NewRecipeParser() *RecipeParser {
	return &RecipeParser{}
}

// ParseFile parses a YAML recipe file into a Recipe entity
func (p *RecipeParser) ParseFile(filePath string) (*entities.Recipe, error) {
	//nolint:gosec // G304: filePath is recipe definition path from repository
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return p.Parse(data)
}

// Parse parses YAML bytes into a Recipe entity
func (p *RecipeParser) Parse(data []byte) (*entities.Recipe, error) {
	var yamlDef yamlRecipe
	if err := yaml.Unmarshal(data, &yamlDef); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	// Validate required fields
	if yamlDef.Name == "" {
		return nil, fmt.Errorf("recipe must have a name")
	}
	if yamlDef.CatalogURL == "" {
		return nil, fmt.Errorf("recipe %s must have a catalog_url", yamlDef.Name)
	}

	tools, err := convertTools(yamlDef.Tools)
	if err != nil {
		return nil, fmt.Errorf("recipe %s: %w", yamlDef.Name, err)
	}

	displayName := yamlDef.DisplayName
	if displayName == "" {
		displayName = yamlDef.Name
	}

	// Convert to domain entity
	def := &entities.Recipe{
		Name:        yamlDef.Name,
		DisplayName: displayName,
		Description: yamlDef.Description,
		CatalogURL:  yamlDef.CatalogURL,
		Tools:       tools,
		Variant:     entities.VariantConfig{Policy: yamlDef.Variant.Policy},
		Patch:       convertPatch(yamlDef.Patch),
		Notify:      entities.NotifyConfig{Template: yamlDef.Notify.Template},
		Signatures: entities.SignatureConfig{
			Verify:  yamlDef.Security.VerifySignature,
			KeysURL: yamlDef.Security.GPGKeysURL,
			KeyFile: yamlDef.Security.GPGKeyFile,
		},
	}

	return def, nil
}

func convertTools(raw map[string]yamlToolSource) (map[entities.ToolKind]entities.ToolSource, error) {
	tools := make(map[entities.ToolKind]entities.ToolSource, len(raw))
	for name, src := range raw {
		kind := entities.ToolKind(name)
		if src.Repo == "" {
			return nil, fmt.Errorf("tool %s must have a repo", name)
		}
		if src.Asset != "" {
			if _, err := regexp.Compile(src.Asset); err != nil {
				return nil, fmt.Errorf("tool %s has invalid asset pattern: %w", name, err)
			}
		}
		tools[kind] = entities.ToolSource{Kind: kind, Repo: src.Repo, AssetPattern: src.Asset}
	}

	for _, kind := range requiredTools {
		if _, ok := tools[kind]; !ok {
			return nil, fmt.Errorf("missing tool %s", kind)
		}
	}

	return tools, nil
}

func convertPatch(yp yamlPatch) entities.PatchConfig {
	return entities.PatchConfig{
		Include:        yp.Include,
		Exclude:        yp.Exclude,
		Options:        yp.Options,
		TimeoutMinutes: yp.TimeoutMinutes,
	}
}
