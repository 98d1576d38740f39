package recipe

import (
	"errors"
	"fmt"
)

// Domain errors for recipe operations

var (
	// Lookup errors
	ErrRecipeNotFound  = errors.New("recipe not found")
	ErrDuplicateRecipe = errors.New("recipe already exists")

	// Infrastructure failures surfaced to the domain
	ErrStoreUnavailable = errors.New("recipe store unavailable")

	// Entity validation errors, all wrapping ErrInvalidRecipe
	ErrInvalidRecipe     = errors.New("invalid recipe")
	ErrInvalidID         = fmt.Errorf("%w: id must be positive", ErrInvalidRecipe)
	ErrEmptyTitle        = fmt.Errorf("%w: title is required", ErrInvalidRecipe)
	ErrEmptyCategory     = fmt.Errorf("%w: category is required", ErrInvalidRecipe)
	ErrEmptyPreparation  = fmt.Errorf("%w: preparation is required", ErrInvalidRecipe)
	ErrNoIngredients     = fmt.Errorf("%w: recipe must have at least one ingredient", ErrInvalidRecipe)
	ErrEmptyIngredient   = fmt.Errorf("%w: ingredient must not be empty", ErrInvalidRecipe)
	ErrIngredientTooLong = fmt.Errorf("%w: ingredient must not exceed %d characters", ErrInvalidRecipe, MaxIngredientLength)
)
