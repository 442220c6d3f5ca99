package middleware

import (
	"net/http"

	"github.com/erp/backoffice/internal/domain/shared"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	Policy shared.Policy
	Logger *zap.Logger
}

// RequirePermission creates middleware that asks policy whether the request
// scope may perform action. It must run after JWTAuthMiddleware.
func RequirePermission(policy shared.Policy, action shared.Action) gin.HandlerFunc {
	return RequirePermissionWithConfig(PermissionConfig{Policy: policy}, action)
}

// RequirePermissionWithConfig creates permission middleware with custom config
func RequirePermissionWithConfig(cfg PermissionConfig, action shared.Action) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		scope, ok := GetScope(c)
		if !ok {
			abortJSON(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, "Authentication required")
			return
		}

		allowed, err := cfg.Policy.CanPerform(c.Request.Context(), scope, action, resourceOf(c))
		if err != nil {
			log.Error("Permission check failed",
				zap.String("action", string(action)),
				zap.String("actor_id", scope.ActorID.String()),
				zap.Error(err),
			)
			abortJSON(c, http.StatusInternalServerError, dto.ErrCodeInternal, "Permission check failed")
			return
		}
		if !allowed {
			log.Debug("Permission denied",
				zap.String("action", string(action)),
				zap.String("actor_id", scope.ActorID.String()),
				zap.String("path", c.FullPath()),
			)
			abortJSON(c, http.StatusForbidden, dto.ErrCodeForbidden, "Permission denied: "+string(action))
			return
		}

		c.Next()
	}
}

// resourceOf names the target of the request: the :id path parameter when
// the route has one, else the route pattern.
func resourceOf(c *gin.Context) string {
	if id := c.Param("id"); id != "" {
		return id
	}
	return c.FullPath()
}
