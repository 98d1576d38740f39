// Package security issues and verifies the JWTs that gate recipe insertion
package security

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/alchemorsel/recipe-server/internal/infrastructure/config"
	"github.com/alchemorsel/recipe-server/internal/ports/outbound"
	apperrors "github.com/alchemorsel/recipe-server/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// TokenTypeBearer is returned with every issued token
	TokenTypeBearer = "Bearer"

	audience       = "recipes-api"
	tokenKeyPrefix = "jti:"

	// ContextClaimsKey holds the verified *Claims on the gin context
	ContextClaimsKey = "auth_claims"
)

var (
	ErrRegistrationDisabled = errors.New("registration is disabled")
	ErrTokenNotRecognized   = errors.New("token is not recognized")
)

// Registration is the body of the register endpoint
type Registration struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthBody is returned on successful registration
type AuthBody struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Claims represents JWT claims structure
type Claims struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// AuthService provides registration and token verification
type AuthService struct {
	config   config.AuthConfig
	tokens   outbound.CacheRepository
	metrics  outbound.MetricsRecorder
	validate *validator.Validate
	logger   *zap.Logger
	secret   []byte
	now      func() time.Time
}

// NewAuthService creates a new authentication service. Issued token ids
// are tracked in tokens so they can be revoked.
func NewAuthService(cfg config.AuthConfig, tokens outbound.CacheRepository, metrics outbound.MetricsRecorder, logger *zap.Logger) *AuthService {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	return &AuthService{
		config:   cfg,
		tokens:   tokens,
		metrics:  metrics,
		validate: validator.New(),
		logger:   logger.Named("auth"),
		secret:   []byte(cfg.JWTSecret),
		now:      time.Now,
	}
}

// Register checks the registration password and issues an access token
// whose subject is "Full Name <email>".
func (a *AuthService) Register(ctx context.Context, reg Registration) (*AuthBody, error) {
	if err := a.validate.StructCtx(ctx, reg); err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	if a.config.RegistrationPasswordHash == "" {
		a.logger.Warn("Registration attempted while disabled", zap.String("email", reg.Email))
		return nil, apperrors.NewInvalidCredentialsError().WithCause(ErrRegistrationDisabled)
	}
	if err := VerifyPassword(a.config.RegistrationPasswordHash, reg.Password); err != nil {
		a.logger.Info("Registration rejected", zap.String("email", reg.Email))
		return nil, apperrors.NewInvalidCredentialsError().WithCause(err)
	}

	token, claims, err := a.issue(reg)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token").WithCause(err)
	}

	if err := a.tokens.Set(ctx, tokenKeyPrefix+claims.ID, []byte(claims.Subject), a.config.JWTExpiration); err != nil {
		a.logger.Error("Failed to record issued token", zap.String("jti", claims.ID), zap.Error(err))
		return nil, apperrors.NewServiceUnavailableError("token store", err)
	}

	a.metrics.TokenIssued()
	a.logger.Info("Token issued",
		zap.String("subject", claims.Subject),
		zap.String("jti", claims.ID),
		zap.Time("expires_at", claims.ExpiresAt.Time),
	)

	return &AuthBody{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

func (a *AuthService) issue(reg Registration) (string, *Claims, error) {
	now := a.now()
	claims := &Claims{
		FullName: reg.FullName,
		Email:    reg.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.config.Issuer,
			Subject:   Subject(reg.FullName, reg.Email),
			Audience:  jwt.ClaimStrings{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(a.config.JWTExpiration)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return token, claims, nil
}

// Subject formats the token subject as an RFC 5322 address.
func Subject(fullName, email string) string {
	return (&mail.Address{Name: strings.TrimSpace(fullName), Address: strings.TrimSpace(email)}).String()
}

// ValidateToken verifies signature, expiry, issuer and audience, then
// checks the token id is still tracked.
func (a *AuthService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return a.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(a.config.Issuer),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.now),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	tracked, err := a.tokens.Exists(ctx, tokenKeyPrefix+claims.ID)
	if err != nil {
		a.logger.Warn("Failed to check token tracking", zap.String("jti", claims.ID), zap.Error(err))
	} else if !tracked {
		return nil, ErrTokenNotRecognized
	}

	return claims, nil
}

// RevokeToken forgets a token id so it no longer authenticates.
func (a *AuthService) RevokeToken(ctx context.Context, tokenID string) error {
	return a.tokens.Delete(ctx, tokenKeyPrefix+tokenID)
}

// HashPassword hashes a registration password with bcrypt.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against its hash
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// AuthMiddleware requires a valid Bearer token and stores its claims on
// the context. Failures are reported through c.Error.
func (a *AuthService) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			_ = c.Error(apperrors.NewUnauthorizedError("Authorization header required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], TokenTypeBearer) {
			_ = c.Error(apperrors.NewUnauthorizedError("Invalid authorization header format"))
			c.Abort()
			return
		}

		claims, err := a.ValidateToken(c.Request.Context(), strings.TrimSpace(parts[1]))
		if err != nil {
			a.logger.Info("Token validation failed",
				zap.String("error", err.Error()),
				zap.String("ip", c.ClientIP()),
				zap.String("user_agent", c.Request.UserAgent()),
			)
			_ = c.Error(apperrors.NewUnauthorizedError("Invalid or expired token").WithCause(err))
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set("subject", claims.Subject)
		c.Next()
	}
}

// ClaimsFromContext returns the verified claims set by AuthMiddleware.
func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	v, ok := c.Get(ContextClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*Claims)
	return claims, ok
}
