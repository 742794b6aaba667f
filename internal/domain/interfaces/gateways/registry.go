package gateways

import (
	"context"

	"github.com/ochairo/piko/internal/domain/entities"
)

// SourceRegistry lists and downloads application versions from a catalog
type SourceRegistry interface {
	// ListVersions returns the catalog's versions, newest first
	ListVersions(ctx context.Context, catalogURL string) ([]entities.Version, error)

	// ListVariants returns the downloadable variants of a version in catalog order
	ListVariants(ctx context.Context, version entities.Version) ([]entities.Variant, error)

	// FetchBundle downloads the variant to dest
	FetchBundle(ctx context.Context, variant entities.Variant, dest string) error
}
