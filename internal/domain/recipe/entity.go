// Package recipe contains the core domain logic for recipes:
// the entity, its validation rules, and ingredient normalization.
package recipe

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alchemorsel/recipe-server/internal/domain/shared"
)

// MaxIngredientLength bounds a single ingredient_amount string.
const MaxIngredientLength = 200

// Recipe is a titled, categorized dish with free-text preparation and
// an ordered list of ingredient-with-amount strings. Recipes are never
// updated once stored.
type Recipe struct {
	shared.AggregateRoot

	id          int64
	title       string
	category    string
	preparation string
	ingredients []string
}

// NewRecipe creates a Recipe with validation and raises RecipeAddedEvent.
func NewRecipe(id int64, title, category string, ingredients []string, preparation string) (*Recipe, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}
	if strings.TrimSpace(category) == "" {
		return nil, ErrEmptyCategory
	}
	if strings.TrimSpace(preparation) == "" {
		return nil, ErrEmptyPreparation
	}
	if err := validateIngredients(ingredients); err != nil {
		return nil, err
	}

	r := &Recipe{
		id:          id,
		title:       title,
		category:    category,
		preparation: preparation,
		ingredients: append([]string(nil), ingredients...),
	}

	r.Record(RecipeAddedEvent{
		RecipeID:        id,
		Title:           title,
		IngredientCount: len(ingredients),
		AddedAt:         time.Now(),
	})

	return r, nil
}

// Rehydrate rebuilds a Recipe from persisted state without validation or events.
func Rehydrate(id int64, title, category, preparation string, ingredients []string) *Recipe {
	return &Recipe{
		id:          id,
		title:       title,
		category:    category,
		preparation: preparation,
		ingredients: ingredients,
	}
}

// ID returns the recipe's identifier
func (r *Recipe) ID() int64 {
	return r.id
}

// Title returns the recipe's title
func (r *Recipe) Title() string {
	return r.title
}

// Category returns the recipe's category
func (r *Recipe) Category() string {
	return r.category
}

// Preparation returns the free-text preparation instructions
func (r *Recipe) Preparation() string {
	return r.preparation
}

// Ingredients returns a copy of the ingredient strings in stored order.
func (r *Recipe) Ingredients() []string {
	return append([]string(nil), r.ingredients...)
}

// IngredientKeys returns the match key of each ingredient.
func (r *Recipe) IngredientKeys() []string {
	keys := make([]string, len(r.ingredients))
	for i, ingredient := range r.ingredients {
		keys[i] = IngredientKey(ingredient)
	}
	return keys
}

func validateIngredients(ingredients []string) error {
	if len(ingredients) == 0 {
		return ErrNoIngredients
	}
	for _, ingredient := range ingredients {
		if strings.TrimSpace(ingredient) == "" {
			return ErrEmptyIngredient
		}
		if utf8.RuneCountInString(ingredient) > MaxIngredientLength {
			return ErrIngredientTooLong
		}
	}
	return nil
}
