package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"tareas_api/internal/domain"
	"tareas_api/internal/http/middleware"
	"tareas_api/internal/logger"
	"tareas_api/internal/service"

	"github.com/gin-gonic/gin"
)

// SessionCloser drops live connections of an account.
type SessionCloser interface {
	DisconnectUser(userID int64) int
}

type Handler struct {
	Accounts    *service.AccountService
	Credentials *service.CredentialService
	Tasks       *service.TaskService
	Audit       *service.AuditService
	Sessions    SessionCloser
}

func NewHandler(accounts *service.AccountService, creds *service.CredentialService, tasks *service.TaskService, audit *service.AuditService, sessions SessionCloser) *Handler {
	return &Handler{
		Accounts:    accounts,
		Credentials: creds,
		Tasks:       tasks,
		Audit:       audit,
		Sessions:    sessions,
	}
}

// UserView is the outward representation of an account.
type UserView struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

func userView(u *domain.User) UserView {
	return UserView{ID: u.ID, Username: u.Username, Email: u.Email}
}

// WithUser hands the account resolved by middleware.TokenAuth to fn.
func WithUser(fn func(c *gin.Context, u *domain.User)) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := middleware.CurrentUser(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication credentials were not provided"})
			return
		}
		fn(c, u)
	}
}

// bindJSON decodes the request body into dst. An empty body decodes as an
// empty object so that missing fields are reported by validation.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed JSON"})
		return false
	}
	return true
}

// taskID parses the :id path parameter. Anything that is not a positive
// integer is treated like an id that does not exist.
func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return 0, false
	}
	return id, true
}

func respondError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, ve.Fields)
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, domain.ErrInvalidToken):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
	case errors.Is(err, domain.ErrInvalidPassword):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid password"})
	default:
		logger.WithContext(c.Request.Context()).Error("request failed", "error", err, "route", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func requestInfo(c *gin.Context) service.RequestInfo {
	return service.RequestInfo{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
}
