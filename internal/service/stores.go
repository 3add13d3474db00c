package service

import (
	"context"

	"tareas_api/internal/domain"
)

// AccountStore persists accounts. Create must enforce email and username
// uniqueness atomically and report violations as domain.ErrDuplicateEmail
// or domain.ErrDuplicateUsername.
type AccountStore interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
}

// TokenStore persists at most one token per account.
type TokenStore interface {
	GetByKey(ctx context.Context, key string) (*domain.Token, error)
	GetOrCreate(ctx context.Context, userID int64, candidateKey string) (*domain.Token, bool, error)
	Replace(ctx context.Context, userID int64, newKey string) (fresh *domain.Token, old *domain.Token, err error)
	DeleteByUser(ctx context.Context, userID int64) (*domain.Token, error)
	DeleteByKey(ctx context.Context, key string) error
}

// TaskStore scopes every lookup by owner.
type TaskStore interface {
	List(ctx context.Context, ownerID int64) ([]*domain.Task, error)
	Create(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, id, ownerID int64) (*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, id, ownerID int64) error
}

type AuditStore interface {
	Create(ctx context.Context, log *domain.AuditLog) error
}

// TokenCache maps token keys to account ids.
type TokenCache interface {
	Get(ctx context.Context, key string) (int64, bool, error)
	Set(ctx context.Context, key string, userID int64) error
	Delete(ctx context.Context, key string) error
}

// TaskEvents receives task changes for delivery to the owner.
type TaskEvents interface {
	Publish(userID int64, ev domain.TaskEvent)
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (int64, bool, error) { return 0, false, nil }
func (nopCache) Set(context.Context, string, int64) error         { return nil }
func (nopCache) Delete(context.Context, string) error             { return nil }

type nopEvents struct{}

func (nopEvents) Publish(int64, domain.TaskEvent) {}
