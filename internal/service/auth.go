package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/menti-activa/backend/internal/domain"
)

// bcryptCost is used for every stored credential. Passwords are always
// hashed server side; client-supplied values are never stored verbatim.
const bcryptCost = 12

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Register creates a new user account. The response never carries the credential.
func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return nil, domain.ErrInvalidRequest
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, req.Username, req.Email, hash)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and issues a signed, time-limited session token
func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	if !checkPassword(user.PasswordHash, req.Password) {
		return nil, domain.ErrInvalidCredentials
	}

	signed, expiresAt, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}

	return &domain.LoginResponse{
		UserID:    user.ID,
		Token:     signed,
		ExpiresAt: expiresAt,
	}, nil
}

// VerifyCredentials is a side-effect-free credential check
func (s *Service) VerifyCredentials(ctx context.Context, req domain.LoginRequest) (bool, error) {
	if req.Email == "" || req.Password == "" {
		return false, domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	return checkPassword(user.PasswordHash, req.Password), nil
}

// Profile returns the account behind a verified session token's email
func (s *Service) Profile(ctx context.Context, email string) (*domain.User, error) {
	return s.store.GetUserByEmail(ctx, email)
}

// ListUsers returns every registered user without credentials
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	return s.store.ListUsers(ctx)
}

// VerifyEmail reports whether an account exists for the given email
func (s *Service) VerifyEmail(ctx context.Context, email string) (bool, error) {
	if email == "" {
		return false, domain.ErrInvalidRequest
	}
	return s.store.EmailExists(ctx, email)
}

// UpdatePassword overwrites a user's credential. The submitted value is
// hashed server side regardless of what the client claims to have done.
// Returns a soft flag instead of a not-found error.
func (s *Service) UpdatePassword(ctx context.Context, req domain.PasswordUpdateRequest) (bool, error) {
	if req.Email == "" || req.Password == "" {
		return false, domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, err
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		return false, err
	}

	updated, err := s.store.UpdatePassword(ctx, user.Email, hash)
	if err != nil {
		return false, err
	}
	if updated {
		s.logger.Info("password updated", "user_id", user.ID)
	}
	return updated, nil
}
