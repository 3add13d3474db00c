package service

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"tareas_api/internal/domain"
	"tareas_api/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var tokenKeyRe = regexp.MustCompile(`^[0-9a-f]{40}$`)

func TestPasswordHashing(t *testing.T) {
	f := newFixture(t)

	hash, err := f.creds.HashPassword("p1")
	require.NoError(t, err)
	assert.NotContains(t, hash, "p1")
	assert.True(t, strings.HasPrefix(hash, "$2"))

	assert.True(t, f.creds.VerifyPassword("p1", hash))
	assert.False(t, f.creds.VerifyPassword("p2", hash))
	assert.False(t, f.creds.VerifyPassword("p1", "not-a-hash"))

	again, err := f.creds.HashPassword("p1")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes must be salted")
}

func TestGenerateTokenKey(t *testing.T) {
	a, err := GenerateTokenKey()
	require.NoError(t, err)
	b, err := GenerateTokenKey()
	require.NoError(t, err)

	assert.Regexp(t, tokenKeyRe, a)
	assert.NotEqual(t, a, b)
}

func TestIssueToken_ReusesExisting(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u := &domain.User{ID: 1}

	first, err := f.creds.IssueToken(ctx, u)
	require.NoError(t, err)
	second, err := f.creds.IssueToken(ctx, u)
	require.NoError(t, err)

	assert.Equal(t, first.Key, second.Key)
}

func TestMintToken_AlwaysFresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, regTok := f.register(t, "alice", "a@x.com", "p1")

	issued, err := f.creds.IssueToken(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, regTok.Key, issued.Key)

	minted, err := f.creds.MintToken(ctx, u)
	require.NoError(t, err)
	assert.NotEqual(t, regTok.Key, minted.Key)

	_, err = f.creds.ResolveToken(ctx, regTok.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidToken, "replaced key must stop working")

	got, err := f.creds.ResolveToken(ctx, minted.Key)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestResolveToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, tok := f.register(t, "alice", "a@x.com", "p1")

	got, err := f.creds.ResolveToken(ctx, tok.Key)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "alice", got.Username)

	for _, key := range []string{"", "nope", strings.Repeat("0", 40)} {
		_, err := f.creds.ResolveToken(ctx, key)
		assert.ErrorIs(t, err, domain.ErrInvalidToken, "key %q", key)
	}
}

func TestRevokeToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	u, tok := f.register(t, "alice", "a@x.com", "p1")

	require.NoError(t, f.creds.RevokeToken(ctx, u))

	_, err := f.creds.ResolveToken(ctx, tok.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	err = f.creds.RevokeToken(ctx, u)
	assert.ErrorIs(t, err, domain.ErrNoActiveToken)
}

func TestTokenCache_FilledAndEvicted(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	f := newFixture(t, WithTokenCache(cache))
	u, tok := f.register(t, "alice", "a@x.com", "p1")

	_, err := f.creds.ResolveToken(ctx, tok.Key)
	require.NoError(t, err)
	id, ok, _ := cache.Get(ctx, tok.Key)
	require.True(t, ok)
	assert.Equal(t, u.ID, id)

	minted, err := f.creds.MintToken(ctx, u)
	require.NoError(t, err)
	_, ok, _ = cache.Get(ctx, tok.Key)
	assert.False(t, ok, "old key must be evicted on mint")

	_, err = f.creds.ResolveToken(ctx, minted.Key)
	require.NoError(t, err)
	require.NoError(t, f.creds.RevokeToken(ctx, u))
	_, ok, _ = cache.Get(ctx, minted.Key)
	assert.False(t, ok, "revoked key must be evicted")

	_, err = f.creds.ResolveToken(ctx, minted.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
}

func TestTokenCache_StaleEntryForMissingAccount(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	f := newFixture(t, WithTokenCache(cache))
	require.NoError(t, cache.Set(ctx, "ghost-key", 999))

	_, err := f.creds.ResolveToken(ctx, "ghost-key")
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Contains(t, cache.deleted, "ghost-key")
}

func TestTokenMaxAge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	f := newFixture(t, WithTokenMaxAge(time.Hour), WithClock(clock))
	f.tokens.SetClock(clock)

	u, tok := f.register(t, "alice", "a@x.com", "p1")
	_, err := f.creds.ResolveToken(ctx, tok.Key)
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)

	_, err = f.creds.ResolveToken(ctx, tok.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	_, err = f.tokens.GetByKey(ctx, tok.Key)
	assert.ErrorIs(t, err, domain.ErrNotFound, "expired token is deleted on use")

	// an expired token that is still stored is rotated on login
	stale, err := f.creds.MintToken(ctx, u)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)

	issued, err := f.creds.IssueToken(ctx, u)
	require.NoError(t, err)
	assert.NotEqual(t, stale.Key, issued.Key)

	got, err := f.creds.ResolveToken(ctx, issued.Key)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

// hookedUsers runs onGetByID once, before the first account lookup.
type hookedUsers struct {
	*memory.UserRepository
	once      sync.Once
	onGetByID func()
}

func (h *hookedUsers) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	h.once.Do(h.onGetByID)
	return h.UserRepository.GetByID(ctx, id)
}

// hookedTokens runs onGetByKey once, after the first token lookup.
type hookedTokens struct {
	*memory.TokenRepository
	once       sync.Once
	onGetByKey func()
}

func (h *hookedTokens) GetByKey(ctx context.Context, key string) (*domain.Token, error) {
	tok, err := h.TokenRepository.GetByKey(ctx, key)
	h.once.Do(h.onGetByKey)
	return tok, err
}

func TestResolveToken_RevokeDuringCacheFill(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	tokens := memory.NewTokenRepository()
	users := &hookedUsers{UserRepository: memory.NewUserRepository(), onGetByID: func() {}}
	creds := NewCredentialService(users, tokens, NewPasswordHasher(bcrypt.MinCost), WithTokenCache(cache))

	u := &domain.User{Username: "alice", Email: "a@x.com", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, u))
	tok, err := creds.MintToken(ctx, u)
	require.NoError(t, err)

	// logout lands after the token row was read but before the cache is filled
	users.onGetByID = func() { require.NoError(t, creds.RevokeToken(ctx, u)) }

	_, err = creds.ResolveToken(ctx, tok.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	_, ok, _ := cache.Get(ctx, tok.Key)
	assert.False(t, ok, "revoked key must not stay cached")

	got, err := creds.ResolveToken(ctx, tok.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)
	assert.Nil(t, got)
}

func TestResolveToken_ExpiredCleanupKeepsReplacement(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	users := memory.NewUserRepository()
	tokens := &hookedTokens{TokenRepository: memory.NewTokenRepository(), onGetByKey: func() {}}
	tokens.SetClock(clock)
	creds := NewCredentialService(users, tokens, NewPasswordHasher(bcrypt.MinCost), WithTokenMaxAge(time.Hour), WithClock(clock))

	u := &domain.User{Username: "alice", Email: "a@x.com", PasswordHash: "x"}
	require.NoError(t, users.Create(ctx, u))
	stale, err := creds.MintToken(ctx, u)
	require.NoError(t, err)
	now = now.Add(2 * time.Hour)

	// a login replaces the expired token while it is being resolved
	var fresh *domain.Token
	tokens.onGetByKey = func() {
		fresh, err = creds.MintToken(ctx, u)
		require.NoError(t, err)
	}

	_, err = creds.ResolveToken(ctx, stale.Key)
	assert.ErrorIs(t, err, domain.ErrInvalidToken)

	require.NotNil(t, fresh)
	got, err := creds.ResolveToken(ctx, fresh.Key)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}
