package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"tareas_api/internal/domain"
	"tareas_api/internal/logger"
)

// tokenBytes yields 40 hex characters per key.
const tokenBytes = 20

// CredentialService hashes passwords and owns the token lifecycle.
// Login reuses an account's token (IssueToken); registration always mints
// a new one (MintToken).
type CredentialService struct {
	users  AccountStore
	tokens TokenStore
	hasher *PasswordHasher
	cache  TokenCache
	maxAge time.Duration
	now    func() time.Time
	newKey func() (string, error)
}

type CredentialOption func(*CredentialService)

// WithTokenCache puts a cache in front of token resolution.
func WithTokenCache(c TokenCache) CredentialOption {
	return func(s *CredentialService) {
		if c != nil {
			s.cache = c
		}
	}
}

// WithTokenMaxAge makes tokens older than d invalid. Zero disables expiry.
func WithTokenMaxAge(d time.Duration) CredentialOption {
	return func(s *CredentialService) { s.maxAge = d }
}

func WithClock(now func() time.Time) CredentialOption {
	return func(s *CredentialService) { s.now = now }
}

func NewCredentialService(users AccountStore, tokens TokenStore, hasher *PasswordHasher, opts ...CredentialOption) *CredentialService {
	s := &CredentialService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		cache:  nopCache{},
		now:    time.Now,
		newKey: GenerateTokenKey,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GenerateTokenKey returns a random 40 character hex key.
func GenerateTokenKey() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func (s *CredentialService) HashPassword(plaintext string) (string, error) {
	return s.hasher.Hash(plaintext)
}

func (s *CredentialService) VerifyPassword(plaintext, hash string) bool {
	return s.hasher.Verify(plaintext, hash)
}

// IssueToken returns the account's existing token or creates one. An
// expired token is replaced.
func (s *CredentialService) IssueToken(ctx context.Context, u *domain.User) (*domain.Token, error) {
	key, err := s.newKey()
	if err != nil {
		return nil, err
	}

	tok, created, err := s.tokens.GetOrCreate(ctx, u.ID, key)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	if !created && tok.Expired(s.maxAge, s.now()) {
		return s.MintToken(ctx, u)
	}
	return tok, nil
}

// MintToken always stores a fresh key, dropping whatever the account had.
func (s *CredentialService) MintToken(ctx context.Context, u *domain.User) (*domain.Token, error) {
	key, err := s.newKey()
	if err != nil {
		return nil, err
	}

	tok, old, err := s.tokens.Replace(ctx, u.ID, key)
	if err != nil {
		return nil, fmt.Errorf("mint token: %w", err)
	}
	if old != nil {
		s.evict(ctx, old.Key)
	}
	return tok, nil
}

// ResolveToken maps a presented key to its account.
func (s *CredentialService) ResolveToken(ctx context.Context, key string) (*domain.User, error) {
	if key == "" {
		return nil, domain.ErrInvalidToken
	}

	// Cached entries carry no creation time, so they are only trusted
	// while tokens never expire.
	if s.maxAge == 0 {
		if userID, ok, err := s.cache.Get(ctx, key); err != nil {
			logger.WithContext(ctx).Warn("token cache lookup failed", "error", err)
		} else if ok {
			u, err := s.users.GetByID(ctx, userID)
			if err == nil {
				return u, nil
			}
			s.evict(ctx, key)
			if !errors.Is(err, domain.ErrNotFound) {
				return nil, err
			}
			return nil, domain.ErrInvalidToken
		}
	}

	tok, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	if tok.Expired(s.maxAge, s.now()) {
		// By key: a concurrent login may already have replaced it.
		if err := s.tokens.DeleteByKey(ctx, key); err != nil && !errors.Is(err, domain.ErrNotFound) {
			logger.WithContext(ctx).Warn("failed to delete expired token", "error", err, "user_id", tok.UserID)
		}
		return nil, domain.ErrInvalidToken
	}

	u, err := s.users.GetByID(ctx, tok.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidToken
		}
		return nil, fmt.Errorf("resolve token owner: %w", err)
	}

	if s.maxAge == 0 {
		if err := s.fill(ctx, key, u.ID); err != nil {
			return nil, err
		}
	}
	return u, nil
}

// fill caches key and then confirms the token still exists. A revoke that
// ran after the lookup above evicted nothing, so the entry written here
// would otherwise outlive the logout.
func (s *CredentialService) fill(ctx context.Context, key string, userID int64) error {
	if err := s.cache.Set(ctx, key, userID); err != nil {
		logger.WithContext(ctx).Warn("token cache store failed", "error", err)
		return nil
	}

	_, err := s.tokens.GetByKey(ctx, key)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrNotFound):
		s.evict(ctx, key)
		return domain.ErrInvalidToken
	default:
		s.evict(ctx, key)
		return fmt.Errorf("recheck token: %w", err)
	}
}

// RevokeToken deletes the account's token. It fails with
// domain.ErrNoActiveToken when there is nothing to delete.
func (s *CredentialService) RevokeToken(ctx context.Context, u *domain.User) error {
	tok, err := s.tokens.DeleteByUser(ctx, u.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrNoActiveToken
		}
		return fmt.Errorf("revoke token: %w", err)
	}
	s.evict(ctx, tok.Key)
	return nil
}

func (s *CredentialService) evict(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		logger.WithContext(ctx).Warn("token cache eviction failed", "error", err)
	}
}
