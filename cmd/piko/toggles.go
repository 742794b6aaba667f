package main

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/cast"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/services"
)

// defaultToggles disables prereleases for every source
const defaultToggles = "false,false,false,false"

// ParseToggles reads the prerelease switches in the order cli, patches, integrations, app.
// Tokens are boolean-like ("true", "0", "T") and separated by commas or whitespace.
func ParseToggles(raw string) (entities.PrereleaseFlags, error) {
	tokens := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(tokens) != 4 {
		return entities.PrereleaseFlags{}, toggleError(fmt.Errorf("%w: want 4 values, got %d in %q",
			services.ErrMalformedToggles, len(tokens), raw))
	}

	values := make([]bool, len(tokens))
	for i, token := range tokens {
		v, err := cast.ToBoolE(token)
		if err != nil {
			return entities.PrereleaseFlags{}, toggleError(fmt.Errorf("%w: %q is not a boolean",
				services.ErrMalformedToggles, token))
		}
		values[i] = v
	}

	return entities.PrereleaseFlags{
		CLI:          values[0],
		Patches:      values[1],
		Integrations: values[2],
		App:          values[3],
	}, nil
}

func toggleError(err error) error {
	return services.NewPipelineError(services.ConfigFailure, "--prerelease", err)
}
