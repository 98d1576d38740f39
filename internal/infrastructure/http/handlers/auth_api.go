package handlers

import (
	"net/http"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/security"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthAPIHandlers handles token registration
type AuthAPIHandlers struct {
	authService *security.AuthService
	logger      *zap.Logger
}

// NewAuthAPIHandlers creates a new authentication API handlers instance
func NewAuthAPIHandlers(authService *security.AuthService, logger *zap.Logger) *AuthAPIHandlers {
	return &AuthAPIHandlers{
		authService: authService,
		logger:      logger.Named("auth_api"),
	}
}

// Register handles POST /register
func (h *AuthAPIHandlers) Register(c *gin.Context) {
	var req security.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(apperrors.NewValidationError("invalid registration JSON").WithCause(err))
		return
	}

	body, err := h.authService.Register(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, body)
}
