package gorm

import (
	"errors"
	"fmt"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes
const (
	pgUniqueViolation  = "23505"
	pgCheckViolation   = "23514"
	pgNotNullViolation = "23502"
	pgStringRightTrunc = "22001"
)

// translateError maps driver and GORM errors onto domain errors.
// Anything unrecognized is a store failure.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, recipe.ErrRecipeNotFound),
		errors.Is(err, recipe.ErrDuplicateRecipe),
		errors.Is(err, recipe.ErrInvalidRecipe):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return recipe.ErrRecipeNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return recipe.ErrDuplicateRecipe
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return fmt.Errorf("%w: %s: %w", recipe.ErrInvalidRecipe, op, err)
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
		switch sqliteErr.ExtendedCode {
		case sqlite3.ErrConstraintPrimaryKey, sqlite3.ErrConstraintUnique:
			return recipe.ErrDuplicateRecipe
		case sqlite3.ErrConstraintCheck, sqlite3.ErrConstraintNotNull:
			return fmt.Errorf("%w: %s: %w", recipe.ErrInvalidRecipe, op, err)
		}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return recipe.ErrDuplicateRecipe
		case pgCheckViolation, pgNotNullViolation, pgStringRightTrunc:
			return fmt.Errorf("%w: %s: %w", recipe.ErrInvalidRecipe, op, err)
		}
	}

	return fmt.Errorf("%w: %s: %w", recipe.ErrStoreUnavailable, op, err)
}
