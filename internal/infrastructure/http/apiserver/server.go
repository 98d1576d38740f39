// Package apiserver builds the gin engine that serves the JSON API
package apiserver

import (
	"net/http"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/http/middleware"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/monitoring"
	"github.com/alchemorsel/recipe-server/internal/infrastructure/security"
	"github.com/alchemorsel/recipe-server/internal/ports/inbound"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BasePath is where the API is mounted on the root router
const BasePath = "/api/v1"

// APIServer holds the JSON API engine
type APIServer struct {
	config         *config.Config
	logger         *zap.Logger
	engine         *gin.Engine
	recipeService  inbound.RecipeService
	authService    *security.AuthService
	metrics        *monitoring.MetricsCollector
	openAPIHandler *OpenAPIHandler
}

// NewAPIServer creates the API engine. metrics may be nil.
func NewAPIServer(
	cfg *config.Config,
	log *zap.Logger,
	recipeService inbound.RecipeService,
	authService *security.AuthService,
	metrics *monitoring.MetricsCollector,
) (*APIServer, error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	openAPI, err := NewOpenAPIHandler()
	if err != nil {
		return nil, err
	}

	s := &APIServer{
		config:         cfg,
		logger:         log.Named("apiserver"),
		recipeService:  recipeService,
		authService:    authService,
		metrics:        metrics,
		openAPIHandler: openAPI,
	}
	s.engine = s.setupRoutes()

	return s, nil
}

// setupRoutes configures the API routes
func (s *APIServer) setupRoutes() *gin.Engine {
	engine := gin.New()

	mw := middleware.New(s.config, s.logger)

	engine.Use(mw.RequestID())
	engine.Use(mw.Logger())
	engine.Use(mw.Recovery())
	engine.Use(mw.ErrorHandler())
	engine.Use(mw.Security())
	engine.Use(mw.CORS())
	if s.metrics != nil {
		engine.Use(s.metrics.HTTPMiddleware())
	}

	engine.NoRoute(func(c *gin.Context) {
		_ = c.Error(apperrors.NewNotFoundError("Route"))
	})

	h := handlers.NewAPIHandlers(s.recipeService, s.logger)
	authH := handlers.NewAuthAPIHandlers(s.authService, s.logger)

	v1 := engine.Group(BasePath)
	{
		v1.GET("/openapi.yaml", s.openAPIHandler.ServeOpenAPISpec)
		v1.GET("/openapi.json", s.openAPIHandler.ServeOpenAPIJSON)
		v1.GET("/docs", s.openAPIHandler.ServeSwaggerUI)

		v1.GET("/recipe/:id", h.GetRecipe)
		v1.GET("/recipe-by-ingredients", h.RecipeByIngredients)
		v1.POST("/recipe-by-ingredients", h.RecipeByIngredients)
		v1.GET("/random-recipe", h.RandomRecipe)

		writes := v1.Group("")
		writes.Use(mw.RateLimit())
		writes.POST("/register", authH.Register)
		writes.POST("/add-recipe", s.authService.AuthMiddleware(), h.AddRecipe)
	}

	return engine
}

// Handler returns the engine as an http.Handler
func (s *APIServer) Handler() http.Handler {
	return s.engine
}
