package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"tareas_api/internal/domain"
	"tareas_api/internal/logger"

	"github.com/gin-gonic/gin"
)

const ctxUser = "user"

// TokenResolver maps a presented token key to its account.
type TokenResolver interface {
	ResolveToken(ctx context.Context, key string) (*domain.User, error)
}

// TokenAuth requires an "Authorization: Token <key>" (or Bearer) header and
// stores the resolved account in the gin context.
func TokenAuth(tokens TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		key, ok := ParseAuthorization(c.GetHeader("Authorization"))
		if !ok {
			AuthEvents.WithLabelValues("token", "missing").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}

		u, err := tokens.ResolveToken(c.Request.Context(), key)
		if err != nil {
			if !errors.Is(err, domain.ErrInvalidToken) {
				logger.WithContext(c.Request.Context()).Error("token resolution failed", "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
				return
			}
			AuthEvents.WithLabelValues("token", "invalid").Inc()
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ctxUser, u)
		c.Request = c.Request.WithContext(logger.NewContext(c.Request.Context(), "user_id", u.ID))
		c.Next()
	}
}

// ParseAuthorization extracts the key from "Token <key>" or "Bearer <key>".
// The scheme is case-insensitive.
func ParseAuthorization(header string) (string, bool) {
	fields := strings.Fields(header)
	if len(fields) != 2 {
		return "", false
	}
	switch strings.ToLower(fields[0]) {
	case "token", "bearer":
		return fields[1], true
	}
	return "", false
}

// CurrentUser returns the account stored by TokenAuth.
func CurrentUser(c *gin.Context) (*domain.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return nil, false
	}
	u, ok := v.(*domain.User)
	return u, ok && u != nil
}
