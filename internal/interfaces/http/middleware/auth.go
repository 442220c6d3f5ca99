package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/infrastructure/logger"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auth context keys and headers
const (
	JWTClaimsKey    = "jwt_claims"
	ScopeKey        = logger.GinScopeKey
	AuthHeaderKey   = "Authorization"
	CompanyHeader   = "X-Company-ID"
	BearerPrefix    = "Bearer "
	healthCheckPath = "/health"
)

// JWTMiddlewareConfig holds configuration for JWT middleware
type JWTMiddlewareConfig struct {
	// JWTService is required for token validation
	JWTService *auth.JWTService
	// SkipPaths are paths that don't require authentication
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultJWTConfig returns default JWT middleware configuration
func DefaultJWTConfig(jwtService *auth.JWTService) JWTMiddlewareConfig {
	return JWTMiddlewareConfig{
		JWTService: jwtService,
		SkipPaths:  []string{healthCheckPath, "/api/v1/health"},
	}
}

// JWTAuthMiddleware verifies the bearer token and resolves the request scope
func JWTAuthMiddleware(jwtService *auth.JWTService) gin.HandlerFunc {
	return JWTAuthMiddlewareWithConfig(DefaultJWTConfig(jwtService))
}

// JWTAuthMiddlewareWithConfig verifies the bearer token, narrows the company
// with X-Company-ID when the token allows it, and stores both the claims and
// the resolved shared.RequestScope for handlers.
func JWTAuthMiddlewareWithConfig(cfg JWTMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		header := c.GetHeader(AuthHeaderKey)
		token, found := strings.CutPrefix(header, BearerPrefix)
		if !found || strings.TrimSpace(token) == "" {
			abortAuth(c, log, auth.ErrInvalidToken, "Missing or malformed authorization header")
			return
		}

		claims, err := cfg.JWTService.ValidateAccessToken(token)
		if err != nil {
			abortAuth(c, log, err, "Token validation failed")
			return
		}

		requested := uuid.Nil
		if raw := c.GetHeader(CompanyHeader); raw != "" {
			if requested, err = uuid.Parse(raw); err != nil {
				abortJSON(c, http.StatusBadRequest, dto.ErrCodeBadRequest, "Invalid X-Company-ID header")
				return
			}
		}
		scope, err := claims.Scope(requested)
		if err != nil {
			abortAuth(c, log, err, "Company not allowed")
			return
		}

		c.Set(JWTClaimsKey, claims)
		c.Set(ScopeKey, scope)

		ctx := auth.WithClaims(c.Request.Context(), claims)
		ctx, _ = logger.WithScope(ctx, logger.FromContext(ctx), scope)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

func abortAuth(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("JWT authentication failed",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	switch {
	case errors.Is(err, auth.ErrTokenExpired):
		abortJSON(c, http.StatusUnauthorized, dto.ErrCodeTokenExpired, "Token has expired")
	case errors.Is(err, auth.ErrCompanyForbidden):
		abortJSON(c, http.StatusForbidden, dto.ErrCodeCompanyDenied, "Token does not grant access to this company")
	case errors.Is(err, auth.ErrInvalidToken):
		abortJSON(c, http.StatusUnauthorized, dto.ErrCodeTokenInvalid, "Invalid token")
	default:
		abortJSON(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
	}
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, getRequestIDFromContext(c)))
}

// GetJWTClaims retrieves JWT claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}

// GetScope returns the request scope resolved by JWTAuthMiddleware
func GetScope(c *gin.Context) (shared.RequestScope, bool) {
	if v, exists := c.Get(ScopeKey); exists {
		if scope, ok := v.(shared.RequestScope); ok {
			return scope, true
		}
	}
	return shared.RequestScope{}, false
}
