package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tareas_api/internal/domain"
)

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
}

func (in RegisterInput) validate() *domain.ValidationError {
	v := &domain.ValidationError{}

	switch {
	case in.Username == "":
		v.Add("username", msgRequired)
	case tooLong(in.Username, maxUsernameLen):
		v.Add("username", maxLenMsg(maxUsernameLen))
	case !usernameRegex.MatchString(in.Username):
		v.Add("username", msgUsername)
	}

	switch {
	case in.Email == "":
		v.Add("email", msgRequired)
	case tooLong(in.Email, maxEmailLen):
		v.Add("email", maxLenMsg(maxEmailLen))
	case !isEmail(in.Email):
		v.Add("email", msgEmail)
	}

	switch {
	case in.Password == "":
		v.Add("password", msgRequired)
	case len(in.Password) > MaxPasswordBytes:
		v.Add("password", "ensure this field has no more than 72 bytes")
	}
	return v
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AccountService implements registration and login on top of the account
// store and the credential service.
type AccountService struct {
	users AccountStore
	creds *CredentialService
}

func NewAccountService(users AccountStore, creds *CredentialService) *AccountService {
	return &AccountService{users: users, creds: creds}
}

// Register creates an account and always mints a new token for it.
// Duplicate email or username come back as field errors.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.User, *domain.Token, error) {
	in.normalize()
	v := in.validate()

	if !v.Has("email") {
		if _, err := s.users.GetByEmail(ctx, in.Email); err == nil {
			v.Add("email", msgEmailTaken)
			v.Cause = domain.ErrDuplicateEmail
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("check email: %w", err)
		}
	}
	if !v.Has("username") {
		if _, err := s.users.GetByUsername(ctx, in.Username); err == nil {
			v.Add("username", msgNameTaken)
			if v.Cause == nil {
				v.Cause = domain.ErrDuplicateUsername
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			return nil, nil, fmt.Errorf("check username: %w", err)
		}
	}
	if err := v.Err(); err != nil {
		return nil, nil, err
	}

	hash, err := s.creds.HashPassword(in.Password)
	if err != nil {
		return nil, nil, err
	}

	u := &domain.User{Username: in.Username, Email: in.Email, PasswordHash: hash}
	if err := s.users.Create(ctx, u); err != nil {
		// The pre-checks above can lose a race; the store is authoritative.
		switch {
		case errors.Is(err, domain.ErrDuplicateEmail):
			fe := domain.FieldError("email", msgEmailTaken)
			fe.Cause = err
			return nil, nil, fe
		case errors.Is(err, domain.ErrDuplicateUsername):
			fe := domain.FieldError("username", msgNameTaken)
			fe.Cause = err
			return nil, nil, fe
		}
		return nil, nil, fmt.Errorf("create account: %w", err)
	}

	tok, err := s.creds.MintToken(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, tok, nil
}

// Login looks the account up by email. An unknown email is
// domain.ErrNotFound and a wrong password domain.ErrInvalidPassword; the two
// are deliberately reported differently. On a wrong password the account is
// still returned so the attempt can be audited against it.
func (s *AccountService) Login(ctx context.Context, in LoginInput) (*domain.User, *domain.Token, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, nil, domain.ErrNotFound
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, nil, domain.ErrNotFound
		}
		return nil, nil, fmt.Errorf("find account: %w", err)
	}

	if !s.creds.VerifyPassword(in.Password, u.PasswordHash) {
		return u, nil, domain.ErrInvalidPassword
	}

	tok, err := s.creds.IssueToken(ctx, u)
	if err != nil {
		return nil, nil, err
	}
	return u, tok, nil
}
