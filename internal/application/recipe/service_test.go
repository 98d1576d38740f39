package recipe

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/alchemorsel/recipe-server/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type recordedMetrics struct {
	mu        sync.Mutex
	selected  map[string]int
	fallbacks int
	added     int
	imported  int
	failed    int
}

func newRecordedMetrics() *recordedMetrics {
	return &recordedMetrics{selected: map[string]int{}}
}

func (m *recordedMetrics) RecipeSelected(source string, fallback bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.selected[source]++
	if fallback {
		m.fallbacks++
	}
}

func (m *recordedMetrics) RecipeAdded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added++
}

func (m *recordedMetrics) ImportFinished(imported, failed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.imported += imported
	m.failed += failed
}

func (m *recordedMetrics) TokenIssued() {}

// ServiceTestSuite drives the selector against a mocked repository
type ServiceTestSuite struct {
	suite.Suite
	repo    *testutils.MockRecipeRepository
	metrics *recordedMetrics
	service *Service
	factory *testutils.RecipeFactory
	ctx     context.Context
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.repo = new(testutils.MockRecipeRepository)
	suite.metrics = newRecordedMetrics()
	suite.service = NewService(suite.repo, NewState(), suite.metrics, zap.NewNop())
	suite.factory = testutils.NewRecipeFactory(99)
	suite.ctx = context.Background()
}

func (suite *ServiceTestSuite) TearDownTest() {
	suite.repo.AssertExpectations(suite.T())
}

func (suite *ServiceTestSuite) stored() *recipe.Recipe {
	return suite.factory.Recipe()
}

func (suite *ServiceTestSuite) TestSelectByID() {
	suite.Run("Found_ShouldCacheAndNotRedirect", func() {
		// Arrange
		r := suite.stored()
		suite.repo.On("Get", mock.Anything, r.ID()).Return(r, nil).Once()

		// Act
		sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{ID: fmt.Sprint(r.ID())})

		// Assert
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), inbound.SourceID, sel.Source)
		assert.False(suite.T(), sel.Redirect())
		assert.Equal(suite.T(), r.Title(), sel.Recipe.Title)
		require.NotNil(suite.T(), suite.service.Current())
		assert.Equal(suite.T(), r.ID(), suite.service.Current().Recipe.ID)
	})

	suite.Run("Unparseable_ShouldBeNotFoundWithoutStoreCall", func() {
		for _, raw := range []string{"abc", "-3", "0", "1.5"} {
			sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{ID: raw})

			assert.Nil(suite.T(), sel)
			assert.True(suite.T(), apperrors.Is(err, apperrors.CodeRecipeNotFound), raw)
			assert.ErrorIs(suite.T(), err, recipe.ErrRecipeNotFound)
		}
	})

	suite.Run("SuppliedButEmpty_ShouldBeNotFoundWithoutRandom", func() {
		sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{HasID: true, Ingredients: "flour"})

		assert.Nil(suite.T(), sel)
		assert.True(suite.T(), apperrors.Is(err, apperrors.CodeRecipeNotFound))
		suite.repo.AssertNotCalled(suite.T(), "RandomID", mock.Anything)
		suite.repo.AssertNotCalled(suite.T(), "ResolveByIngredients", mock.Anything, mock.Anything)
	})

	suite.Run("Missing_ShouldBeNotFoundWithoutFallback", func() {
		suite.repo.On("Get", mock.Anything, int64(4040)).Return(nil, recipe.ErrRecipeNotFound).Once()

		sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{ID: "4040", Ingredients: "flour"})

		assert.Nil(suite.T(), sel)
		assert.True(suite.T(), apperrors.Is(err, apperrors.CodeRecipeNotFound))
	})
}

func (suite *ServiceTestSuite) TestSelectByIngredients() {
	suite.Run("UniqueMatch_ShouldFetchByIDAndRedirect", func() {
		// Arrange
		r := suite.stored()
		suite.repo.On("ResolveByIngredients", mock.Anything, recipe.ParseIngredientQuery("Flour, 2 eggs")).
			Return(r.ID(), true, nil).Once()
		suite.repo.On("Get", mock.Anything, r.ID()).Return(r, nil).Once()

		// Act
		sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{Ingredients: "Flour, 2 eggs"})

		// Assert
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), inbound.SourceIngredients, sel.Source)
		assert.True(suite.T(), sel.Redirect())
		assert.Equal(suite.T(), r.ID(), suite.service.Current().Recipe.ID)
	})

	suite.Run("NoUniqueMatch_ShouldFallThroughToRandom", func() {
		// Arrange
		r := suite.stored()
		suite.repo.On("ResolveByIngredients", mock.Anything, recipe.ParseIngredientQuery("salt")).
			Return(int64(0), false, nil).Once()
		suite.repo.On("RandomID", mock.Anything).Return(r.ID(), nil).Once()
		suite.repo.On("Get", mock.Anything, r.ID()).Return(r, nil).Once()

		// Act
		sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{Ingredients: "salt"})

		// Assert
		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), inbound.SourceRandom, sel.Source)
		assert.True(suite.T(), sel.Redirect())
	})
}

func (suite *ServiceTestSuite) TestSelectRandom_EmptyStore() {
	suite.Run("NoCache_ShouldReturnNotFound", func() {
		suite.repo.On("RandomID", mock.Anything).Return(int64(0), recipe.ErrRecipeNotFound).Once()

		sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{})

		assert.Nil(suite.T(), sel)
		assert.True(suite.T(), apperrors.Is(err, apperrors.CodeRecipeNotFound))
	})

	suite.Run("WithCache_ShouldServeCachedRecipe", func() {
		// Arrange
		r := suite.stored()
		suite.repo.On("Get", mock.Anything, r.ID()).Return(r, nil).Once()
		_, err := suite.service.Select(suite.ctx, inbound.SelectQuery{ID: fmt.Sprint(r.ID())})
		require.NoError(suite.T(), err)
		suite.repo.On("RandomID", mock.Anything).Return(int64(0), recipe.ErrRecipeNotFound).Once()

		// Act
		sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{})

		// Assert
		require.NoError(suite.T(), err)
		assert.True(suite.T(), sel.Fallback)
		assert.Equal(suite.T(), inbound.SourceCache, sel.Source)
		assert.False(suite.T(), sel.Redirect())
		assert.Equal(suite.T(), r.ID(), sel.Recipe.ID)
		assert.Equal(suite.T(), 1, suite.metrics.fallbacks)
	})
}

func (suite *ServiceTestSuite) TestSelect_StoreUnavailable() {
	// Arrange
	r := suite.stored()
	unavailable := fmt.Errorf("%w: get: connection refused", recipe.ErrStoreUnavailable)
	suite.repo.On("Get", mock.Anything, int64(77)).Return(nil, unavailable).Once()

	// Act: nothing cached yet
	_, err := suite.service.Select(suite.ctx, inbound.SelectQuery{ID: "77"})

	// Assert
	assert.True(suite.T(), apperrors.Is(err, apperrors.CodeServiceUnavailable))
	assert.ErrorIs(suite.T(), err, recipe.ErrStoreUnavailable)

	// Arrange: cache a recipe, then fail again
	suite.repo.On("Get", mock.Anything, r.ID()).Return(r, nil).Once()
	_, err = suite.service.Select(suite.ctx, inbound.SelectQuery{ID: fmt.Sprint(r.ID())})
	require.NoError(suite.T(), err)
	suite.repo.On("Get", mock.Anything, int64(77)).Return(nil, unavailable).Once()

	// Act
	sel, err := suite.service.Select(suite.ctx, inbound.SelectQuery{ID: "77"})

	// Assert
	require.NoError(suite.T(), err)
	assert.True(suite.T(), sel.Fallback)
	assert.Equal(suite.T(), r.ID(), sel.Recipe.ID)
}

func (suite *ServiceTestSuite) TestReadOnlyLookups_DoNotTouchCache() {
	// Arrange
	r := suite.stored()
	suite.repo.On("Get", mock.Anything, r.ID()).Return(r, nil).Twice()
	suite.repo.On("RandomID", mock.Anything).Return(r.ID(), nil).Once()

	// Act
	byID, err := suite.service.GetByID(suite.ctx, r.ID())
	require.NoError(suite.T(), err)
	random, err := suite.service.GetRandom(suite.ctx)
	require.NoError(suite.T(), err)

	// Assert
	assert.Equal(suite.T(), r.ID(), byID.ID)
	assert.Equal(suite.T(), r.ID(), random.ID)
	assert.Nil(suite.T(), suite.service.Current())
}

func (suite *ServiceTestSuite) TestGetByIngredients() {
	suite.Run("EmptyList_ShouldBeNotFoundWithoutStoreCall", func() {
		_, err := suite.service.GetByIngredients(suite.ctx, []string{" ", "42"})
		assert.True(suite.T(), apperrors.Is(err, apperrors.CodeRecipeNotFound))
	})

	suite.Run("Ambiguous_ShouldBeNotFound", func() {
		suite.repo.On("ResolveByIngredients", mock.Anything, recipe.IngredientQueryFromList([]string{"salt"})).
			Return(int64(0), false, nil).Once()

		_, err := suite.service.GetByIngredients(suite.ctx, []string{"salt"})

		assert.True(suite.T(), apperrors.Is(err, apperrors.CodeRecipeNotFound))
	})

	suite.Run("Unique_ShouldReturnRecipe", func() {
		r := suite.stored()
		suite.repo.On("ResolveByIngredients", mock.Anything, recipe.IngredientQueryFromList([]string{"olive oil", "basil"})).
			Return(r.ID(), true, nil).Once()
		suite.repo.On("Get", mock.Anything, r.ID()).Return(r, nil).Once()

		dto, err := suite.service.GetByIngredients(suite.ctx, []string{"olive oil", "basil"})

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), r.ID(), dto.ID)
	})
}

func (suite *ServiceTestSuite) TestAddRecipe() {
	suite.Run("Valid_ShouldStore", func() {
		// Arrange
		cmd := suite.factory.Command("1 egg", "2 cups flour", "1 cup milk")
		suite.repo.On("Add", mock.Anything, mock.MatchedBy(func(r *recipe.Recipe) bool {
			return r.ID() == cmd.ID && len(r.Ingredients()) == 3
		})).Return(nil).Once()

		// Act
		dto, err := suite.service.AddRecipe(suite.ctx, cmd)

		// Assert
		require.NoError(suite.T(), err)
		testutils.NewRecipeAssertions(suite.T()).DTOMatchesCommand(dto, cmd)
		assert.Equal(suite.T(), 1, suite.metrics.added)
	})

	suite.Run("Invalid_ShouldFailValidationWithoutStoreCall", func() {
		cases := map[string]func(*inbound.AddRecipeCommand){
			"ZeroID":           func(c *inbound.AddRecipeCommand) { c.ID = 0 },
			"NoTitle":          func(c *inbound.AddRecipeCommand) { c.Title = "" },
			"NoIngredients":    func(c *inbound.AddRecipeCommand) { c.IngredientAmount = nil },
			"EmptyIngredient":  func(c *inbound.AddRecipeCommand) { c.IngredientAmount = []string{"salt", ""} },
			"BlankPreparation": func(c *inbound.AddRecipeCommand) { c.Preparation = "   " },
		}
		for name, mutate := range cases {
			cmd := suite.factory.Command()
			mutate(&cmd)

			_, err := suite.service.AddRecipe(suite.ctx, cmd)

			assert.True(suite.T(), apperrors.Is(err, apperrors.CodeValidationFailed), name)
			assert.ErrorIs(suite.T(), err, recipe.ErrInvalidRecipe, name)
		}
	})

	suite.Run("Duplicate_ShouldConflict", func() {
		cmd := suite.factory.Command()
		suite.repo.On("Add", mock.Anything, mock.Anything).Return(recipe.ErrDuplicateRecipe).Once()

		_, err := suite.service.AddRecipe(suite.ctx, cmd)

		assert.True(suite.T(), apperrors.Is(err, apperrors.CodeDuplicateRecipe))
		assert.ErrorIs(suite.T(), err, recipe.ErrDuplicateRecipe)
	})
}

func (suite *ServiceTestSuite) TestCurrent_ReturnsCopy() {
	r := suite.stored()
	suite.repo.On("Get", mock.Anything, r.ID()).Return(r, nil).Once()
	_, err := suite.service.Select(suite.ctx, inbound.SelectQuery{ID: fmt.Sprint(r.ID())})
	require.NoError(suite.T(), err)

	snapshot := suite.service.Current()
	snapshot.Recipe.IngredientAmount[0] = "changed"
	snapshot.Recipe.Title = "changed"

	assert.Equal(suite.T(), r.Title(), suite.service.Current().Recipe.Title)
	assert.Equal(suite.T(), r.Ingredients()[0], suite.service.Current().Recipe.IngredientAmount[0])
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
