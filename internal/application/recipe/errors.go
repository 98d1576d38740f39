package recipe

import (
	"errors"
	"strconv"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/go-playground/validator/v10"
)

// toAppError maps domain sentinels onto the HTTP-facing error taxonomy.
// The domain error stays reachable through Unwrap.
func toAppError(err error, recipeID int64) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}

	idStr := ""
	if recipeID > 0 {
		idStr = strconv.FormatInt(recipeID, 10)
	}

	switch {
	case errors.Is(err, recipe.ErrRecipeNotFound):
		return apperrors.NewRecipeNotFoundError(idStr).WithCause(err)
	case errors.Is(err, recipe.ErrDuplicateRecipe):
		return apperrors.NewDuplicateRecipeError(recipeID).WithCause(err)
	case errors.Is(err, recipe.ErrInvalidRecipe):
		return apperrors.NewValidationError(err.Error()).WithCause(err)
	case errors.Is(err, recipe.ErrStoreUnavailable):
		return apperrors.NewServiceUnavailableError("recipe store", err)
	default:
		return apperrors.NewInternalError("").WithCause(err)
	}
}

func notFound(idStr string) error {
	return apperrors.NewRecipeNotFoundError(idStr).WithCause(recipe.ErrRecipeNotFound)
}

// fromValidator converts validator field errors into the API shape.
func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidationError(err.Error()).WithCause(recipe.ErrInvalidRecipe)
	}

	out := make([]apperrors.ValidationError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperrors.ValidationError{
			Field:   fe.Namespace(),
			Tag:     fe.Tag(),
			Message: validationMessage(fe),
		})
	}
	return apperrors.NewValidationErrors(out).WithCause(recipe.ErrInvalidRecipe)
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "gt":
		return fe.Field() + " must be greater than " + fe.Param()
	case "min":
		return fe.Field() + " must contain at least " + fe.Param() + " item(s)"
	case "max":
		return fe.Field() + " must be at most " + fe.Param() + " characters"
	default:
		return fe.Field() + " is invalid"
	}
}
