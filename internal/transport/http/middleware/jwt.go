package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/flisboa999/guiaturismo/internal/app"
	"github.com/flisboa999/guiaturismo/internal/transport/http/response"
)

const ContextIdentityKey = "identity"

// Identifier vouches for a bearer token.
type Identifier interface {
	Identify(token string) (*app.Identity, error)
}

func bearerToken(c *gin.Context) (string, bool) {
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if authHeader == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(authHeader, prefix) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(authHeader, prefix)), true
}

func AuthJWT(identifier Identifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "missing or malformed authorization header")
			c.Abort()
			return
		}

		identity, err := identifier.Identify(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "invalid or expired token")
			c.Abort()
			return
		}

		c.Set(ContextIdentityKey, identity)
		c.Next()
	}
}

// OptionalJWT attaches the identity when a valid token is present and lets
// anonymous requests through; the handler decides whether that is allowed.
func OptionalJWT(identifier Identifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token, ok := bearerToken(c); ok {
			if identity, err := identifier.Identify(token); err == nil {
				c.Set(ContextIdentityKey, identity)
			}
		}
		c.Next()
	}
}

func IdentityFrom(c *gin.Context) *app.Identity {
	v, ok := c.Get(ContextIdentityKey)
	if !ok {
		return nil
	}
	identity, _ := v.(*app.Identity)
	return identity
}
