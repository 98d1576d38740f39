// Package testutils provides test data factories and database helpers
package testutils

import (
	"fmt"
	"sync/atomic"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	"github.com/brianvoe/gofakeit/v6"
)

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker  *gofakeit.Faker
	nextID atomic.Int64
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// NextID returns a fresh positive recipe id.
func (f *RecipeFactory) NextID() int64 {
	return f.nextID.Add(1)
}

// Command builds an AddRecipeCommand with the given ingredients, or
// with three random ones when none are supplied.
func (f *RecipeFactory) Command(ingredients ...string) inbound.AddRecipeCommand {
	if len(ingredients) == 0 {
		ingredients = f.Ingredients(3)
	}
	return inbound.AddRecipeCommand{
		ID:               f.NextID(),
		Title:            f.faker.Sentence(3),
		Category:         f.faker.RandomString([]string{"Dessert", "Main", "Soup", "Salad", "Bread"}),
		IngredientAmount: ingredients,
		Preparation:      f.faker.Paragraph(1, 3, 8, " "),
	}
}

// Commands builds n commands with random ingredients.
func (f *RecipeFactory) Commands(n int) []inbound.AddRecipeCommand {
	cmds := make([]inbound.AddRecipeCommand, n)
	for i := range cmds {
		cmds[i] = f.Command()
	}
	return cmds
}

// Recipe builds a valid domain recipe.
func (f *RecipeFactory) Recipe(ingredients ...string) *recipe.Recipe {
	cmd := f.Command(ingredients...)
	r, err := recipe.NewRecipe(cmd.ID, cmd.Title, cmd.Category, cmd.IngredientAmount, cmd.Preparation)
	if err != nil {
		panic(fmt.Sprintf("factory built invalid recipe: %v", err))
	}
	return r
}

// Ingredients returns n "<amount> <unit> <food>" strings.
func (f *RecipeFactory) Ingredients(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%d %s %s",
			f.faker.Number(1, 12),
			f.faker.RandomString([]string{"cups", "tbsp", "tsp", "g", "oz"}),
			f.faker.Vegetable(),
		)
	}
	return out
}
