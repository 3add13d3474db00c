// Package memory holds mutex-guarded, process local implementations of the
// repositories. They honour the same uniqueness and ownership rules as the
// Postgres tables and back STORAGE=memory and the tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"tareas_api/internal/domain"
)

type UserRepository struct {
	mu     sync.RWMutex
	seq    int64
	byID   map[int64]*domain.User
	emails map[string]int64
	names  map[string]int64
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:   make(map[int64]*domain.User),
		emails: make(map[string]int64),
		names:  make(map[string]int64),
	}
}

func (r *UserRepository) Create(_ context.Context, u *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.emails[u.Email]; ok {
		return domain.ErrDuplicateEmail
	}
	if _, ok := r.names[u.Username]; ok {
		return domain.ErrDuplicateUsername
	}

	r.seq++
	u.ID = r.seq
	u.CreatedAt = time.Now()

	stored := *u
	r.byID[u.ID] = &stored
	r.emails[u.Email] = u.ID
	r.names[u.Username] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.copyOf(id)
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.emails[email]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.copyOf(id)
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.names[username]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.copyOf(id)
}

// Count is used by tests to assert that no account slipped through.
func (r *UserRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

func (r *UserRepository) copyOf(id int64) (*domain.User, error) {
	u, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *u
	return &c, nil
}

type TokenRepository struct {
	mu     sync.Mutex
	byKey  map[string]*domain.Token
	byUser map[int64]string
	now    func() time.Time
}

func NewTokenRepository() *TokenRepository {
	return &TokenRepository{
		byKey:  make(map[string]*domain.Token),
		byUser: make(map[int64]string),
		now:    time.Now,
	}
}

// SetClock overrides the creation timestamp source.
func (r *TokenRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	r.now = now
	r.mu.Unlock()
}

func (r *TokenRepository) GetByKey(_ context.Context, key string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.byKey[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *TokenRepository) GetOrCreate(_ context.Context, userID int64, candidateKey string) (*domain.Token, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if key, ok := r.byUser[userID]; ok {
		c := *r.byKey[key]
		return &c, false, nil
	}
	t := r.insert(userID, candidateKey)
	return t, true, nil
}

func (r *TokenRepository) Replace(_ context.Context, userID int64, newKey string) (*domain.Token, *domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.remove(userID)
	return r.insert(userID, newKey), old, nil
}

func (r *TokenRepository) DeleteByUser(_ context.Context, userID int64) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	old := r.remove(userID)
	if old == nil {
		return nil, domain.ErrNotFound
	}
	return old, nil
}

func (r *TokenRepository) DeleteByKey(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.byKey[key]
	if !ok {
		return domain.ErrNotFound
	}
	delete(r.byKey, key)
	delete(r.byUser, t.UserID)
	return nil
}

func (r *TokenRepository) insert(userID int64, key string) *domain.Token {
	t := &domain.Token{Key: key, UserID: userID, CreatedAt: r.now()}
	r.byKey[key] = t
	r.byUser[userID] = key
	c := *t
	return &c
}

func (r *TokenRepository) remove(userID int64) *domain.Token {
	key, ok := r.byUser[userID]
	if !ok {
		return nil
	}
	t := r.byKey[key]
	delete(r.byKey, key)
	delete(r.byUser, userID)
	return t
}

type TaskRepository struct {
	mu    sync.RWMutex
	seq   int64
	tasks map[int64]*domain.Task
}

func NewTaskRepository() *TaskRepository {
	return &TaskRepository{tasks: make(map[int64]*domain.Task)}
}

func (r *TaskRepository) List(_ context.Context, ownerID int64) ([]*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res := make([]*domain.Task, 0)
	for _, t := range r.tasks {
		if t.UserID == ownerID {
			c := *t
			res = append(res, &c)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

func (r *TaskRepository) Create(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	t.ID = r.seq
	t.CreatedAt = time.Now()
	c := *t
	r.tasks[t.ID] = &c
	return nil
}

func (r *TaskRepository) Get(_ context.Context, id, ownerID int64) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != ownerID {
		return nil, domain.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (r *TaskRepository) Update(_ context.Context, t *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, ok := r.tasks[t.ID]
	if !ok || cur.UserID != t.UserID {
		return domain.ErrNotFound
	}
	t.CreatedAt = cur.CreatedAt
	c := *t
	r.tasks[t.ID] = &c
	return nil
}

func (r *TaskRepository) Delete(_ context.Context, id, ownerID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok || t.UserID != ownerID {
		return domain.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

type AuditRepository struct {
	mu   sync.Mutex
	seq  int64
	logs []*domain.AuditLog
}

func NewAuditRepository() *AuditRepository {
	return &AuditRepository{}
}

func (r *AuditRepository) Create(_ context.Context, log *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	log.ID = r.seq
	log.CreatedAt = time.Now()
	c := *log
	r.logs = append(r.logs, &c)
	return nil
}

func (r *AuditRepository) GetByUserID(_ context.Context, userID int64, limit int) ([]*domain.AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var res []*domain.AuditLog
	for i := len(r.logs) - 1; i >= 0 && len(res) < limit; i-- {
		if r.logs[i].UserID == userID {
			c := *r.logs[i]
			res = append(res, &c)
		}
	}
	return res, nil
}

// All returns every entry, oldest first.
func (r *AuditRepository) All() []*domain.AuditLog {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]*domain.AuditLog, len(r.logs))
	for i, l := range r.logs {
		c := *l
		res[i] = &c
	}
	return res
}
