package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alchemorsel/recipe-server/internal/domain/recipe"
	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecipeAssertions provides recipe-specific assertion methods
type RecipeAssertions struct {
	t *testing.T
}

// NewRecipeAssertions creates a new recipe assertions helper
func NewRecipeAssertions(t *testing.T) *RecipeAssertions {
	return &RecipeAssertions{t: t}
}

// MatchesCommand asserts a stored recipe round-trips the command that created it.
// Ingredient order is not significant.
func (ra *RecipeAssertions) MatchesCommand(r *recipe.Recipe, cmd inbound.AddRecipeCommand, msgAndArgs ...interface{}) {
	require.NotNil(ra.t, r, "Recipe should not be nil")
	assert.Equal(ra.t, cmd.ID, r.ID(), msgAndArgs...)
	assert.Equal(ra.t, cmd.Title, r.Title(), msgAndArgs...)
	assert.Equal(ra.t, cmd.Category, r.Category(), msgAndArgs...)
	assert.Equal(ra.t, cmd.Preparation, r.Preparation(), msgAndArgs...)
	assert.ElementsMatch(ra.t, cmd.IngredientAmount, r.Ingredients(), msgAndArgs...)
}

// DTOMatchesCommand is MatchesCommand for rendered recipes.
func (ra *RecipeAssertions) DTOMatchesCommand(dto *inbound.RecipeDTO, cmd inbound.AddRecipeCommand, msgAndArgs ...interface{}) {
	require.NotNil(ra.t, dto, "Recipe should not be nil")
	assert.Equal(ra.t, cmd.ID, dto.ID, msgAndArgs...)
	assert.Equal(ra.t, cmd.Title, dto.Title, msgAndArgs...)
	assert.Equal(ra.t, cmd.Category, dto.Category, msgAndArgs...)
	assert.Equal(ra.t, cmd.Preparation, dto.Preparation, msgAndArgs...)
	assert.ElementsMatch(ra.t, cmd.IngredientAmount, dto.IngredientAmount, msgAndArgs...)
}

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(rec *httptest.ResponseRecorder, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, rec, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, rec.Code, msgAndArgs...)
}

// JSONResponse asserts that the response is valid JSON and unmarshals it
func (ha *HTTPAssertions) JSONResponse(rec *httptest.ResponseRecorder, target interface{}) {
	require.NotNil(ha.t, rec, "Response should not be nil")

	contentType := rec.Header().Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)
	require.NoError(ha.t, json.Unmarshal(rec.Body.Bytes(), target), "Response should be valid JSON")
}

// ErrorCode asserts the response is an error envelope with the given code
func (ha *HTTPAssertions) ErrorCode(rec *httptest.ResponseRecorder, expected apperrors.ErrorCode) {
	var resp apperrors.ErrorResponse
	ha.JSONResponse(rec, &resp)
	assert.Equal(ha.t, expected, resp.Error.Code)
}

// Redirect asserts a redirect to the given location
func (ha *HTTPAssertions) Redirect(rec *httptest.ResponseRecorder, location string) {
	assert.Equal(ha.t, http.StatusSeeOther, rec.Code)
	assert.Equal(ha.t, location, rec.Header().Get("Location"))
}
