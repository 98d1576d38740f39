package gorm

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// scratchTablePrefix names the per-request temporary table used by
// ResolveByIngredients.
const scratchTablePrefix = "qingredients_"

// RecipeRepository implements the recipe repository interface using GORM
type RecipeRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	rng    *lockedRand
}

// Option configures a RecipeRepository
type Option func(*RecipeRepository)

// WithSeed makes random selection deterministic.
func WithSeed(seed uint64) Option {
	return func(r *RecipeRepository) {
		r.rng = newLockedRand(seed)
	}
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *gorm.DB, logger *zap.Logger, opts ...Option) *RecipeRepository {
	r := &RecipeRepository{
		db:     db,
		logger: logger.Named("recipe-repository"),
		rng:    newLockedRand(uint64(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ outbound.RecipeRepository = (*RecipeRepository)(nil)

// Get loads a recipe and its ingredients in one transaction so both
// reads observe the same snapshot.
func (r *RecipeRepository) Get(ctx context.Context, id int64) (*recipe.Recipe, error) {
	var model RecipeModel

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Take(&model, id).Error; err != nil {
			return err
		}
		return tx.Where("recipe_id = ?", id).Order("position").Find(&model.Ingredients).Error
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, r.fail("get", err, zap.Int64("recipe_id", id))
	}

	return ModelToRecipe(&model), nil
}

// RandomID picks a uniformly distributed offset into the id-ordered table.
func (r *RecipeRepository) RandomID(ctx context.Context) (int64, error) {
	var ids []int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&RecipeModel{}).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return recipe.ErrRecipeNotFound
		}

		offset := r.rng.Int64N(count)
		return tx.Model(&RecipeModel{}).
			Order("id").
			Offset(int(offset)).
			Limit(1).
			Pluck("id", &ids).Error
	})
	if err != nil {
		return 0, r.fail("random", err)
	}
	if len(ids) == 0 {
		return 0, recipe.ErrRecipeNotFound
	}

	return ids[0], nil
}

// Add inserts the recipe row and then every ingredient row. Any failure
// rolls the whole recipe back.
func (r *RecipeRepository) Add(ctx context.Context, rec *recipe.Recipe) error {
	model := RecipeToModel(rec)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&RecipeModel{}).Where("id = ?", model.ID).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return recipe.ErrDuplicateRecipe
		}

		if err := tx.Omit(clause.Associations).Create(model).Error; err != nil {
			return err
		}
		if len(model.Ingredients) == 0 {
			return nil
		}
		return tx.Create(&model.Ingredients).Error
	})
	if err != nil {
		return r.fail("add", err, zap.Int64("recipe_id", model.ID))
	}

	r.logger.Debug("Recipe stored",
		zap.Int64("recipe_id", model.ID),
		zap.Int("ingredients", len(model.Ingredients)),
	)
	return nil
}

// ResolveByIngredients finds the single recipe whose ingredients contain
// every query token as a substring of some normalized ingredient.
//
// Tokens are loaded into a temporary table whose name is unique to this
// call, so concurrent requests never see each other's rows. The table is
// created, joined and dropped inside one transaction.
func (r *RecipeRepository) ResolveByIngredients(ctx context.Context, query recipe.IngredientQuery) (int64, bool, error) {
	tokens := query.Tokens()
	if len(tokens) == 0 {
		return 0, false, nil
	}

	table := scratchTablePrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	var ids []int64

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("CREATE TEMPORARY TABLE %s (token TEXT NOT NULL)", table)).Error; err != nil {
			return err
		}

		placeholders := strings.TrimSuffix(strings.Repeat("(?),", len(tokens)), ",")
		args := make([]interface{}, len(tokens))
		for i, token := range tokens {
			args[i] = token
		}
		if err := tx.Exec(fmt.Sprintf("INSERT INTO %s (token) VALUES %s", table, placeholders), args...).Error; err != nil {
			return err
		}

		// LIMIT 2 is enough to tell one candidate from several.
		candidates := fmt.Sprintf(`SELECT i.recipe_id
			FROM ingredients i
			JOIN %s q ON i.ingredient_key LIKE '%%' || q.token || '%%'
			GROUP BY i.recipe_id
			HAVING COUNT(DISTINCT q.token) = ?
			ORDER BY i.recipe_id
			LIMIT 2`, table)
		if err := tx.Raw(candidates, len(tokens)).Scan(&ids).Error; err != nil {
			return err
		}

		return tx.Exec(fmt.Sprintf("DROP TABLE %s", table)).Error
	})
	if err != nil {
		return 0, false, r.fail("resolve by ingredients", err, zap.String("query", query.String()))
	}

	if len(ids) != 1 {
		r.logger.Debug("No unique ingredient match",
			zap.String("query", query.String()),
			zap.Int("candidates", len(ids)),
		)
		return 0, false, nil
	}

	return ids[0], true, nil
}

// Count returns the number of stored recipes
func (r *RecipeRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&RecipeModel{}).Count(&count).Error; err != nil {
		return 0, r.fail("count", err)
	}
	return count, nil
}

func (r *RecipeRepository) fail(op string, err error, fields ...zap.Field) error {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	r.logger.Debug("Store operation failed", fields...)
	return translateError(op, err)
}

// lockedRand is a seeded source safe for concurrent use.
type lockedRand struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newLockedRand(seed uint64) *lockedRand {
	return &lockedRand{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (l *lockedRand) Int64N(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rng.Int64N(n)
}
