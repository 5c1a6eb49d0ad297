package v1

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/evlasenko/go-todo-app/internal/models"
	"github.com/evlasenko/go-todo-app/internal/services"
)

const principalCtxKey = "principal"

// HandleAuthMiddleware resolves the requesting principal from the
// Authorization bearer header and stores it on the context. Every
// protected route runs behind it.
func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Error().Msg("authorization header required")
		abort(c, newUnauthorizedError("authorization required"))
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix {
		h.logger.Error().Msg("invalid authorization header")
		abort(c, newUnauthorizedError("invalid authorization header"))
		return
	}

	principal, err := h.auth.Authenticate(c, parts[1])
	if err != nil {
		h.logger.Error().
			Err(err).
			Msg("failed to authenticate")
		// Only a bad token is the caller's fault; a storage failure
		// during principal resolution is not.
		if errors.Is(err, services.ErrInvalidToken) {
			abort(c, newUnauthorizedError(services.ErrInvalidToken.Error()))
		} else {
			abort(c, newStatusTextError(http.StatusInternalServerError))
		}
		return
	}

	c.Set(principalCtxKey, *principal)
	c.Next()
}

// RequireRoles gates a route group to the given roles. It runs after
// HandleAuthMiddleware and before any data is read or written.
func (h *handlerImpl) RequireRoles(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := principalFromContext(c)
		if !ok {
			h.logger.Error().Msg("no principal found in context")
			abort(c, newStatusTextError(http.StatusUnauthorized))
			return
		}

		if !services.RoleAllowed(principal, roles...) {
			h.logger.Warn().
				Str("user_id", principal.ID).
				Str("role", principal.Role).
				Msg("role not allowed")
			abort(c, newForbiddenError(services.ErrAccessDenied.Error()))
			return
		}

		c.Next()
	}
}

func principalFromContext(c *gin.Context) (models.Principal, bool) {
	value, exists := c.Get(principalCtxKey)
	if !exists {
		return models.Principal{}, false
	}
	principal, ok := value.(models.Principal)
	return principal, ok
}
