package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/piko/internal/domain/entities"
	"github.com/ochairo/piko/internal/domain/services"
)

func TestParseToggles(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want entities.PrereleaseFlags
	}{
		{"defaults", defaultToggles, entities.PrereleaseFlags{}},
		{"commas", "true,false,false,true", entities.PrereleaseFlags{CLI: true, App: true}},
		{"whitespace", "0 1 0 0", entities.PrereleaseFlags{Patches: true}},
		{"mixed separators", " false, false  true,false ", entities.PrereleaseFlags{Integrations: true}},
		{"case", "TRUE,True,t,F", entities.PrereleaseFlags{CLI: true, Patches: true, Integrations: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseToggles(tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseToggles_Malformed(t *testing.T) {
	for _, raw := range []string{"", "true,false,false", "true,false,false,false,true", "true,false,maybe,false"} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseToggles(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, services.ErrMalformedToggles))

			kind, ok := services.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, services.ConfigFailure, kind)
		})
	}
}
