package service

import (
	"context"

	"tareas_api/internal/domain"
	"tareas_api/internal/logger"
)

// AuditService handles audit logging. Write failures are logged and
// swallowed so that auditing never breaks a request.
type AuditService struct {
	repo AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(repo AuditStore) *AuditService {
	return &AuditService{repo: repo}
}

// RequestInfo identifies the client behind an audited action.
type RequestInfo struct {
	IP        string
	UserAgent string
}

// Log creates a new audit log entry
func (s *AuditService) Log(ctx context.Context, userID int64, action, category string, details map[string]any) {
	s.LogWithRequest(ctx, userID, action, category, RequestInfo{}, details)
}

// LogWithRequest creates an audit log with request info (IP, User-Agent)
func (s *AuditService) LogWithRequest(ctx context.Context, userID int64, action, category string, req RequestInfo, details map[string]any) {
	if s == nil || s.repo == nil {
		return
	}

	log := &domain.AuditLog{
		UserID:    userID,
		Action:    action,
		Category:  category,
		Details:   details,
		IP:        req.IP,
		UserAgent: req.UserAgent,
	}

	if err := s.repo.Create(ctx, log); err != nil {
		logger.WithContext(ctx).Error("failed to create audit log", "error", err, "action", action, "user_id", userID)
	}
}

// LogAuth records an authentication event.
func (s *AuditService) LogAuth(ctx context.Context, userID int64, action string, req RequestInfo, details map[string]any) {
	s.LogWithRequest(ctx, userID, action, domain.AuditCategoryAuth, req, details)
}
