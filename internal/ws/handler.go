package ws

import (
	"net/http"
	"strings"

	"tareas_api/internal/http/middleware"
	"tareas_api/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// TokenResolver maps a token key to its account.
type TokenResolver = middleware.TokenResolver

// HandleWS upgrades authenticated requests to a task event feed. Browsers
// cannot set headers on a websocket handshake, so the token is read from
// the token query parameter, falling back to the Authorization header.
func HandleWS(hub *Hub, tokens TokenResolver, allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(c *gin.Context) {
		key := c.Query("token")
		if key == "" {
			key, _ = middleware.ParseAuthorization(c.GetHeader("Authorization"))
		}
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		u, err := tokens.ResolveToken(c.Request.Context(), key)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("ws upgrade error", "error", err, "user_id", u.ID)
			return
		}

		client := NewClient(u.ID, conn, hub)
		go client.Run()
	}
}

// originChecker allows requests without an Origin header (non-browser
// clients) and, when a list is configured, only the listed origins.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}
