package handlers

import (
	"errors"
	"net/http"

	"tareas_api/internal/domain"
	"tareas_api/internal/http/middleware"
	"tareas_api/internal/logger"
	"tareas_api/internal/service"

	"github.com/gin-gonic/gin"
)

type AuthResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// Register creates an account and returns a freshly minted token.
func (h *Handler) Register(c *gin.Context) {
	var req service.RegisterInput
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	u, tok, err := h.Accounts.Register(ctx, req)
	if err != nil {
		middleware.AuthEvents.WithLabelValues("register", "rejected").Inc()
		respondError(c, err)
		return
	}

	middleware.AuthEvents.WithLabelValues("register", "ok").Inc()
	h.Audit.LogAuth(ctx, u.ID, domain.AuditActionRegister, requestInfo(c), nil)
	logger.WithContext(ctx).Info("account registered", "user_id", u.ID)

	c.JSON(http.StatusCreated, AuthResponse{Token: tok.Key, User: userView(u)})
}

// Login returns the account's current token, creating one if needed.
func (h *Handler) Login(c *gin.Context) {
	var req service.LoginInput
	if !bindJSON(c, &req) {
		return
	}

	ctx := c.Request.Context()
	u, tok, err := h.Accounts.Login(ctx, req)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidPassword):
			middleware.AuthEvents.WithLabelValues("login", "invalid_password").Inc()
			h.Audit.LogAuth(ctx, u.ID, domain.AuditActionLoginFailed, requestInfo(c), map[string]any{"reason": "invalid password"})
		case errors.Is(err, domain.ErrNotFound):
			middleware.AuthEvents.WithLabelValues("login", "unknown_email").Inc()
			h.Audit.LogAuth(ctx, 0, domain.AuditActionLoginFailed, requestInfo(c), map[string]any{"reason": "unknown email"})
		}
		respondError(c, err)
		return
	}

	middleware.AuthEvents.WithLabelValues("login", "ok").Inc()
	h.Audit.LogAuth(ctx, u.ID, domain.AuditActionLogin, requestInfo(c), nil)

	c.JSON(http.StatusOK, AuthResponse{Token: tok.Key, User: userView(u)})
}

func (h *Handler) Profile(c *gin.Context, u *domain.User) {
	c.JSON(http.StatusOK, userView(u))
}

// Logout revokes the caller's token and closes their live connections. Any
// failure is reported as a plain 400.
func (h *Handler) Logout(c *gin.Context, u *domain.User) {
	ctx := c.Request.Context()
	if err := h.Credentials.RevokeToken(ctx, u); err != nil {
		if !errors.Is(err, domain.ErrNoActiveToken) {
			logger.WithContext(ctx).Error("logout failed", "error", err)
		}
		middleware.AuthEvents.WithLabelValues("logout", "failed").Inc()
		h.Audit.LogAuth(ctx, u.ID, domain.AuditActionLogoutFail, requestInfo(c), nil)
		c.JSON(http.StatusBadRequest, gin.H{"error": "logout failed"})
		return
	}

	closed := 0
	if h.Sessions != nil {
		closed = h.Sessions.DisconnectUser(u.ID)
	}

	middleware.AuthEvents.WithLabelValues("logout", "ok").Inc()
	h.Audit.LogAuth(ctx, u.ID, domain.AuditActionLogout, requestInfo(c), map[string]any{"closed_connections": closed})

	c.JSON(http.StatusOK, gin.H{"message": "logged out successfully"})
}
