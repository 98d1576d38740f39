// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
)

// RecipeRepository defines the interface for recipe persistence.
// Implementations return recipe.ErrRecipeNotFound, recipe.ErrDuplicateRecipe
// and recipe.ErrStoreUnavailable (possibly wrapped).
type RecipeRepository interface {
	// Get returns the recipe and its ingredients read from one consistent snapshot.
	Get(ctx context.Context, id int64) (*recipe.Recipe, error)

	// RandomID picks one stored id uniformly.
	RandomID(ctx context.Context) (int64, error)

	// Add inserts the recipe and all its ingredients in one transaction.
	Add(ctx context.Context, r *recipe.Recipe) error

	// ResolveByIngredients returns the id of the single recipe matching every
	// token of the query. ok is false when zero or several recipes match.
	ResolveByIngredients(ctx context.Context, query recipe.IngredientQuery) (id int64, ok bool, err error)

	// Count returns the number of stored recipes.
	Count(ctx context.Context) (int64, error)
}

// ErrCacheMiss is returned by CacheRepository.Get for absent or expired keys.
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for key/value caching with TTL.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// ObjectSource opens import documents by location (a file path or an object URL).
type ObjectSource interface {
	Open(ctx context.Context, location string) (io.ReadCloser, error)
}

// MetricsRecorder receives business events for instrumentation.
type MetricsRecorder interface {
	RecipeSelected(source string, fallback bool)
	RecipeAdded()
	ImportFinished(imported, failed int)
	TokenIssued()
}

// NopMetrics discards every event.
type NopMetrics struct{}

func (NopMetrics) RecipeSelected(string, bool) {}
func (NopMetrics) RecipeAdded()                {}
func (NopMetrics) ImportFinished(int, int)     {}
func (NopMetrics) TokenIssued()                {}
