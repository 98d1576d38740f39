package recipe

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// RecipeTestSuite provides a test suite for Recipe entity
type RecipeTestSuite struct {
	suite.Suite
}

func (suite *RecipeTestSuite) TestRecipeCreation() {
	suite.Run("ValidRecipe_ShouldCreateSuccessfully", func() {
		// Arrange
		ingredients := []string{"2 cups flour", "1 egg", "1 cup milk"}

		// Act
		r, err := NewRecipe(7, "Pancakes", "Breakfast", ingredients, "Mix and fry.")

		// Assert
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), int64(7), r.ID())
		assert.Equal(suite.T(), "Pancakes", r.Title())
		assert.Equal(suite.T(), "Breakfast", r.Category())
		assert.Equal(suite.T(), "Mix and fry.", r.Preparation())
		assert.Equal(suite.T(), ingredients, r.Ingredients())

		events := r.PullEvents()
		require.Len(suite.T(), events, 1)
		added, ok := events[0].(RecipeAddedEvent)
		require.True(suite.T(), ok, "Should emit RecipeAddedEvent")
		assert.Equal(suite.T(), int64(7), added.RecipeID)
		assert.Equal(suite.T(), 3, added.IngredientCount)
		assert.Empty(suite.T(), r.PullEvents(), "events are drained")
	})

	suite.Run("IngredientsAreCopied_ShouldNotAlias", func() {
		ingredients := []string{"salt"}
		r, err := NewRecipe(1, "t", "c", ingredients, "p")
		require.NoError(suite.T(), err)

		ingredients[0] = "pepper"
		got := r.Ingredients()
		got[0] = "sugar"

		assert.Equal(suite.T(), []string{"salt"}, r.Ingredients())
	})
}

func (suite *RecipeTestSuite) TestRecipeValidation() {
	long := strings.Repeat("a", MaxIngredientLength+1)
	cases := []struct {
		name        string
		id          int64
		title       string
		category    string
		ingredients []string
		preparation string
		want        error
	}{
		{"ZeroID", 0, "t", "c", []string{"x"}, "p", ErrInvalidID},
		{"EmptyTitle", 1, "  ", "c", []string{"x"}, "p", ErrEmptyTitle},
		{"EmptyCategory", 1, "t", "", []string{"x"}, "p", ErrEmptyCategory},
		{"EmptyPreparation", 1, "t", "c", []string{"x"}, "", ErrEmptyPreparation},
		{"NoIngredients", 1, "t", "c", nil, "p", ErrNoIngredients},
		{"BlankIngredient", 1, "t", "c", []string{"x", " "}, "p", ErrEmptyIngredient},
		{"IngredientTooLong", 1, "t", "c", []string{long}, "p", ErrIngredientTooLong},
	}

	for _, tc := range cases {
		suite.Run(tc.name+"_ShouldReturnError", func() {
			r, err := NewRecipe(tc.id, tc.title, tc.category, tc.ingredients, tc.preparation)

			assert.Nil(suite.T(), r)
			assert.ErrorIs(suite.T(), err, tc.want)
			assert.ErrorIs(suite.T(), err, ErrInvalidRecipe)
		})
	}
}

func (suite *RecipeTestSuite) TestRehydrate() {
	r := Rehydrate(3, "Soup", "Starter", "Boil.", []string{"2 Leeks", "1 l Water"})

	assert.Empty(suite.T(), r.PullEvents())
	assert.Equal(suite.T(), []string{"leeks", "lwater"}, r.IngredientKeys())
}

func (suite *RecipeTestSuite) TestIngredientKeys_MatchListQueryTokens() {
	ingredients := []string{"Salt, to taste", "1 l Water"}
	r := Rehydrate(4, "Broth", "Starter", "Simmer.", ingredients)

	assert.Equal(suite.T(), IngredientQueryFromList(ingredients).Tokens(), r.IngredientKeys())
}

func TestRecipeTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeTestSuite))
}
