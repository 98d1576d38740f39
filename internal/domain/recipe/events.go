package recipe

import "time"

// RecipeAddedEvent is raised when a new recipe passes validation.
type RecipeAddedEvent struct {
	RecipeID        int64
	Title           string
	IngredientCount int
	AddedAt         time.Time
}

func (e RecipeAddedEvent) EventName() string {
	return "recipe.added"
}

func (e RecipeAddedEvent) OccurredAt() time.Time {
	return e.AddedAt
}
