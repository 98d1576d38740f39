package testutils

import (
	"context"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockRecipeRepository provides a mock implementation of RecipeRepository
type MockRecipeRepository struct {
	mock.Mock
}

var _ outbound.RecipeRepository = (*MockRecipeRepository)(nil)

// Get mocks RecipeRepository.Get
func (m *MockRecipeRepository) Get(ctx context.Context, id int64) (*recipe.Recipe, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*recipe.Recipe)
	return r, args.Error(1)
}

// RandomID mocks RecipeRepository.RandomID
func (m *MockRecipeRepository) RandomID(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// Add mocks RecipeRepository.Add
func (m *MockRecipeRepository) Add(ctx context.Context, r *recipe.Recipe) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// ResolveByIngredients mocks RecipeRepository.ResolveByIngredients
func (m *MockRecipeRepository) ResolveByIngredients(ctx context.Context, query recipe.IngredientQuery) (int64, bool, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

// Count mocks RecipeRepository.Count
func (m *MockRecipeRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}
