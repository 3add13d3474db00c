package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"tareas_api/internal/domain"
	"tareas_api/internal/repository/memory"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	users  *memory.UserRepository
	tokens *memory.TokenRepository
	tasks  *memory.TaskRepository
	creds  *CredentialService
	accts  *AccountService
}

func newFixture(t *testing.T, opts ...CredentialOption) *fixture {
	t.Helper()
	f := &fixture{
		users:  memory.NewUserRepository(),
		tokens: memory.NewTokenRepository(),
		tasks:  memory.NewTaskRepository(),
	}
	f.creds = NewCredentialService(f.users, f.tokens, NewPasswordHasher(bcrypt.MinCost), opts...)
	f.accts = NewAccountService(f.users, f.creds)
	return f
}

func (f *fixture) register(t *testing.T, username, email, password string) (*domain.User, *domain.Token) {
	t.Helper()
	u, tok, err := f.accts.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	return u, tok
}

func patch(t *testing.T, body string) TaskPatch {
	t.Helper()
	var p TaskPatch
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

type fakeCache struct {
	mu      sync.Mutex
	entries map[string]int64
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]int64)}
}

func (c *fakeCache) Get(_ context.Context, key string) (int64, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.entries[key]
	return id, ok, nil
}

func (c *fakeCache) Set(_ context.Context, key string, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = userID
	return nil
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deleted = append(c.deleted, key)
	return nil
}

type recordedEvent struct {
	userID int64
	ev     domain.TaskEvent
}

type fakeEvents struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (e *fakeEvents) Publish(userID int64, ev domain.TaskEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, recordedEvent{userID: userID, ev: ev})
}
