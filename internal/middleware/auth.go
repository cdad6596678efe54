package middleware

import (
	"crypto/subtle"

	"scanela-billing/internal/response"
	"scanela-billing/internal/services"
	"scanela-billing/pkg/logging"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// BearerAuthMiddleware validates the Authorization bearer token and stores
// the caller in the context. Every failure gets the same 401.
func BearerAuthMiddleware(auth services.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := services.BearerToken(c.GetHeader("Authorization"))
		if token == "" || auth == nil {
			response.Unauthorized(c)
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil || principal == nil {
			logging.Debugf("Bearer auth rejected: %v", err)
			response.Unauthorized(c)
			return
		}

		c.Set(principalKey, principal)
		c.Next()
	}
}

// CurrentPrincipal returns the caller stored by BearerAuthMiddleware.
func CurrentPrincipal(c *gin.Context) (*services.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*services.Principal)
	return p, ok && p != nil
}

// AdminKeyMiddleware guards admin routes with the X-Admin-Key header.
// An empty configured key disables the routes.
func AdminKeyMiddleware(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		given := c.GetHeader("X-Admin-Key")
		if adminKey == "" || given == "" ||
			subtle.ConstantTimeCompare([]byte(given), []byte(adminKey)) != 1 {
			response.Unauthorized(c)
			return
		}
		c.Next()
	}
}
