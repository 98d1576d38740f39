package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/security"
	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIHandlers handles the JSON recipe API
type APIHandlers struct {
	recipeService inbound.RecipeService
	logger        *zap.Logger
}

// NewAPIHandlers creates a new API handlers instance
func NewAPIHandlers(recipeService inbound.RecipeService, logger *zap.Logger) *APIHandlers {
	return &APIHandlers{
		recipeService: recipeService,
		logger:        logger.Named("api"),
	}
}

// GetRecipe handles GET /recipe/:id
func (h *APIHandlers) GetRecipe(c *gin.Context) {
	idStr := c.Param("id")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		_ = c.Error(apperrors.NewRecipeNotFoundError(idStr))
		return
	}

	recipe, err := h.recipeService.GetByID(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// RecipeByIngredients handles GET and POST /recipe-by-ingredients.
// POST takes a JSON array of ingredients; GET takes ?ingredients=a,b.
func (h *APIHandlers) RecipeByIngredients(c *gin.Context) {
	var ingredients []string
	if c.Request.Method == http.MethodPost && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&ingredients); err != nil {
			_ = c.Error(apperrors.NewValidationError("body must be a JSON array of ingredient strings").WithCause(err))
			return
		}
	} else if raw := c.Query("ingredients"); raw != "" {
		ingredients = strings.Split(raw, ",")
	}

	h.logger.Debug("Recipe by ingredients",
		zap.String("request_id", c.GetString("request_id")),
		zap.Strings("ingredients", ingredients),
	)

	recipe, err := h.recipeService.GetByIngredients(c.Request.Context(), ingredients)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// RandomRecipe handles GET /random-recipe
func (h *APIHandlers) RandomRecipe(c *gin.Context) {
	recipe, err := h.recipeService.GetRandom(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, recipe)
}

// AddRecipe handles POST /add-recipe. Requires AuthMiddleware.
func (h *APIHandlers) AddRecipe(c *gin.Context) {
	var cmd inbound.AddRecipeCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid recipe JSON").WithCause(err))
		return
	}

	recipe, err := h.recipeService.AddRecipe(c.Request.Context(), cmd)
	if err != nil {
		_ = c.Error(err)
		return
	}

	subject := ""
	if claims, ok := security.ClaimsFromContext(c); ok {
		subject = claims.Subject
	}
	h.logger.Info("Recipe added",
		zap.String("request_id", c.GetString("request_id")),
		zap.Int64("recipe_id", recipe.ID),
		zap.String("subject", subject),
	)

	c.JSON(http.StatusCreated, recipe)
}
