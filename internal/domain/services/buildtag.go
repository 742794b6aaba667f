package services

import (
	"fmt"
	"strings"

	"github.com/ochairo/piko/internal/domain/entities"
)

// TagSeparator joins the fields of a release tag
const TagSeparator = "_"

const tagFieldCount = 4

// EncodeBuildTag joins the tag fields in the fixed order patches, integrations, cli, app
func EncodeBuildTag(tag entities.BuildTag) string {
	return strings.Join([]string{tag.Patches, tag.Integrations, tag.CLI, tag.App}, TagSeparator)
}

// DecodeBuildTag parses a tag written by EncodeBuildTag
func DecodeBuildTag(raw string) (entities.BuildTag, error) {
	parts := strings.Split(raw, TagSeparator)
	if len(parts) != tagFieldCount {
		return entities.BuildTag{}, fmt.Errorf("tag %q has %d fields, want %d", raw, len(parts), tagFieldCount)
	}

	return entities.BuildTag{
		Patches:      parts[0],
		Integrations: parts[1],
		CLI:          parts[2],
		App:          parts[3],
	}, nil
}
