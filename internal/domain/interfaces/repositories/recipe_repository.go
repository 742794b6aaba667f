// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/piko/internal/domain/entities"
)

// RecipeRepository defines the interface for accessing pipeline recipes
type RecipeRepository interface {
	// GetRecipe retrieves a recipe by name
	GetRecipe(ctx context.Context, name string) (*entities.Recipe, error)

	// ListRecipes returns all available recipes
	ListRecipes(ctx context.Context) ([]*entities.Recipe, error)
}
