// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"
	"time"
)

// RecipeService defines the recipe use cases driven by the HTML page,
// the JSON API and the importer.
type RecipeService interface {
	// Select resolves a page request by id, then ingredients, then random,
	// and records the result as the current recipe.
	Select(ctx context.Context, query SelectQuery) (*Selection, error)

	// Read-only lookups for the JSON API. They never touch the current recipe.
	GetByID(ctx context.Context, id int64) (*RecipeDTO, error)
	GetByIngredients(ctx context.Context, ingredients []string) (*RecipeDTO, error)
	GetRandom(ctx context.Context) (*RecipeDTO, error)

	// AddRecipe validates and stores a new recipe atomically.
	AddRecipe(ctx context.Context, cmd AddRecipeCommand) (*RecipeDTO, error)

	// Current returns the most recently selected recipe, or nil.
	Current() *Selection
}

// Importer loads a batch of recipes, skipping rows that fail.
type Importer interface {
	Import(ctx context.Context, recipes []AddRecipeCommand) ImportReport
}

// SelectQuery carries the raw page parameters. An empty string means "not
// supplied", except that HasID marks an id parameter given with no value.
type SelectQuery struct {
	ID          string
	HasID       bool
	Ingredients string
}

// SelectionSource tells which branch produced a selection.
type SelectionSource string

const (
	SourceID          SelectionSource = "id"
	SourceIngredients SelectionSource = "ingredients"
	SourceRandom      SelectionSource = "random"
	SourceCache       SelectionSource = "cache"
)

// Selection is the outcome of Select.
type Selection struct {
	Recipe RecipeDTO
	Source SelectionSource
	// Fallback is set when the store could not serve the request and the
	// cached current recipe is returned instead.
	Fallback bool
}

// Redirect reports whether the page should redirect to the canonical id URL.
func (s *Selection) Redirect() bool {
	return !s.Fallback && s.Source != SourceID
}

// AddRecipeCommand contains data for adding a recipe.
// The JSON shape is shared with the import file format.
type AddRecipeCommand struct {
	ID               int64    `json:"id" validate:"required,gt=0"`
	Title            string   `json:"title" validate:"required"`
	Category         string   `json:"category" validate:"required"`
	IngredientAmount []string `json:"ingredient_amount" validate:"required,min=1,dive,required,max=200"`
	Preparation      string   `json:"preparation" validate:"required"`
}

// RecipeDTO is the rendered recipe shape.
type RecipeDTO struct {
	ID               int64    `json:"id"`
	Title            string   `json:"title"`
	Category         string   `json:"category"`
	IngredientAmount []string `json:"ingredient_amount"`
	Preparation      string   `json:"preparation"`
}

// ImportReport summarizes a batch import.
type ImportReport struct {
	Total    int
	Imported int
	Failures []ImportFailure
	Duration time.Duration
}

// ImportFailure describes one skipped row.
type ImportFailure struct {
	Index    int
	RecipeID int64
	Err      error
}
