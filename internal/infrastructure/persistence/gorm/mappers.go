package gorm

import (
	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
)

// RecipeToModel converts a domain recipe to its row models
func RecipeToModel(r *recipe.Recipe) *RecipeModel {
	ingredients := r.Ingredients()
	keys := r.IngredientKeys()

	model := &RecipeModel{
		ID:          r.ID(),
		Title:       r.Title(),
		Category:    r.Category(),
		Preparation: r.Preparation(),
		Ingredients: make([]IngredientModel, len(ingredients)),
	}
	for i, ingredient := range ingredients {
		model.Ingredients[i] = IngredientModel{
			RecipeID:         r.ID(),
			Position:         i,
			IngredientAmount: ingredient,
			IngredientKey:    keys[i],
		}
	}
	return model
}

// ModelToRecipe converts row models back to a domain recipe
func ModelToRecipe(model *RecipeModel) *recipe.Recipe {
	ingredients := make([]string, len(model.Ingredients))
	for i, ingredient := range model.Ingredients {
		ingredients[i] = ingredient.IngredientAmount
	}
	return recipe.Rehydrate(model.ID, model.Title, model.Category, model.Preparation, ingredients)
}
