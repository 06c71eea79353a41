package middlewares

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ncastellanos/eventgate/internal/auth"
)

const (
	ctxSessionKey = "auth.session"
	ctxTokenKey   = "auth.token"
)

// Session extracts the bearer token and a best-effort decoded session from
// the Authorization header. It never aborts: public routes run fine without
// one, and the upstream remains the sole authority on protected calls.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)

		if raw != "" {
			c.Set(ctxTokenKey, raw)

			if decoded := auth.FromToken(raw); decoded != nil {
				c.Set(ctxSessionKey, decoded)
			}
		}

		c.Next()
	}
}

func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFrom(c) == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Debes iniciar sesión para continuar",
				},
			})
			return
		}

		c.Next()
	}
}

func RequireRole(required string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFrom(c)

		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Debes iniciar sesión para continuar",
				},
			})
			return
		}

		if !session.HasRole(required) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "No tienes permiso para realizar esta acción",
				},
			})
			return
		}

		c.Next()
	}
}

// Helpers so handlers don't need to know the magic keys.

func SessionFrom(c *gin.Context) *auth.Session {
	v, ok := c.Get(ctxSessionKey)

	if !ok {
		return nil
	}

	s, ok := v.(*auth.Session)

	if !ok {
		return nil
	}

	return s
}

func TokenFrom(c *gin.Context) string {
	v, ok := c.Get(ctxTokenKey)

	if !ok {
		return ""
	}

	s, _ := v.(string)

	return s
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")

	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}

	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer"))
}
