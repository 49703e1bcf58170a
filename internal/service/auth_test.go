package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/menti-activa/backend/internal/config"
	"github.com/menti-activa/backend/internal/domain"
	"github.com/menti-activa/backend/internal/token"
)

func TestRegister(t *testing.T) {
	svc, store, _, _ := newTestService()

	user, err := registerTestUser(svc, "ana", "ana@example.com", "secreta123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.ID == 0 {
		t.Error("registered user should have an id")
	}
	if user.Username != "ana" {
		t.Errorf("Username = %q, want ana", user.Username)
	}

	// The stored credential must be a hash of the submitted password
	stored, err := store.GetUserByEmail(context.Background(), "ana@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail() error = %v", err)
	}
	if stored.PasswordHash == "secreta123" {
		t.Fatal("password stored in plaintext")
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secreta123")) != nil {
		t.Fatal("stored hash does not match the submitted password")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, store, _, _ := newTestService()

	tests := []domain.RegisterRequest{
		{Username: "", Email: "a@b.com", Password: "x"},
		{Username: "ana", Email: "", Password: "x"},
		{Username: "ana", Email: "a@b.com", Password: ""},
	}
	for _, req := range tests {
		if _, err := svc.Register(context.Background(), req); !errors.Is(err, domain.ErrInvalidRequest) {
			t.Errorf("Register(%+v) = %v, want ErrInvalidRequest", req, err)
		}
	}
	if store.callCount("CreateUser") != 0 {
		t.Error("invalid requests must not reach the store")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := registerTestUser(svc, "ana", "ana@example.com", "secreta123"); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	_, err := registerTestUser(svc, "otra", "ana@example.com", "otra456")
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("duplicate Register() = %v, want ErrEmailTaken", err)
	}
}

func TestLogin(t *testing.T) {
	svc, _, _, _ := newTestService()

	user, err := registerTestUser(svc, "ana", "ana@example.com", "secreta123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	resp, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "secreta123",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if resp.UserID != user.ID {
		t.Errorf("UserID = %d, want %d", resp.UserID, user.ID)
	}

	// The issued token must verify and carry the user's identity
	claims, err := svc.Tokens().Verify(resp.Token)
	if err != nil {
		t.Fatalf("Verify() on issued token error = %v", err)
	}
	if claims.UserID != user.ID || claims.Email != "ana@example.com" {
		t.Errorf("claims = %+v, want user %d", claims, user.ID)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := registerTestUser(svc, "ana", "ana@example.com", "secreta123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "equivocada",
	})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("Login() = %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Login(context.Background(), domain.LoginRequest{
		Email:    "nadie@example.com",
		Password: "algo",
	})
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("Login() = %v, want ErrUserNotFound", err)
	}
}

func TestLoginValidationBeforeStore(t *testing.T) {
	svc, store, _, _ := newTestService()

	_, err := svc.Login(context.Background(), domain.LoginRequest{Email: "", Password: ""})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("Login() = %v, want ErrInvalidRequest", err)
	}
	if store.callCount("GetUserByEmail") != 0 {
		t.Error("empty credentials must not reach the store")
	}
}

func TestVerifyCredentials(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := registerTestUser(svc, "ana", "ana@example.com", "secreta123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	valid, err := svc.VerifyCredentials(context.Background(), domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "secreta123",
	})
	if err != nil || !valid {
		t.Fatalf("VerifyCredentials() = %v, %v, want true, nil", valid, err)
	}

	valid, err = svc.VerifyCredentials(context.Background(), domain.LoginRequest{
		Email:    "ana@example.com",
		Password: "equivocada",
	})
	if err != nil || valid {
		t.Fatalf("VerifyCredentials() wrong password = %v, %v, want false, nil", valid, err)
	}

	// Unknown accounts probe as invalid, not as an error
	valid, err = svc.VerifyCredentials(context.Background(), domain.LoginRequest{
		Email:    "nadie@example.com",
		Password: "algo",
	})
	if err != nil || valid {
		t.Fatalf("VerifyCredentials() unknown email = %v, %v, want false, nil", valid, err)
	}
}

func TestVerifyEmail(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := registerTestUser(svc, "ana", "ana@example.com", "secreta123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	exists, err := svc.VerifyEmail(context.Background(), "ana@example.com")
	if err != nil || !exists {
		t.Fatalf("VerifyEmail() = %v, %v, want true, nil", exists, err)
	}

	exists, err = svc.VerifyEmail(context.Background(), "nadie@example.com")
	if err != nil || exists {
		t.Fatalf("VerifyEmail() unknown = %v, %v, want false, nil", exists, err)
	}

	if _, err := svc.VerifyEmail(context.Background(), ""); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("VerifyEmail(\"\") = %v, want ErrInvalidRequest", err)
	}
}

func TestUpdatePassword(t *testing.T) {
	svc, store, _, _ := newTestService()

	if _, err := registerTestUser(svc, "ana", "ana@example.com", "vieja123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	updated, err := svc.UpdatePassword(context.Background(), domain.PasswordUpdateRequest{
		Email:    "ana@example.com",
		Password: "nueva456",
	})
	if err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if !updated {
		t.Fatal("UpdatePassword() should report success for an existing user")
	}

	// Submitted value is hashed server side before storage
	stored, _ := store.GetUserByEmail(context.Background(), "ana@example.com")
	if bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("nueva456")) != nil {
		t.Fatal("stored hash does not match the new password")
	}

	// Old password no longer logs in
	if _, err := svc.Login(context.Background(), domain.LoginRequest{
		Email: "ana@example.com", Password: "vieja123",
	}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("Login() with old password = %v, want ErrInvalidCredentials", err)
	}
}

func TestUpdatePasswordLogsUserIDNotEmail(t *testing.T) {
	store := newFakeStore()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	cfg := config.DefaultConfig()
	svc := New(store, newFakeMirror(), &capturingMailer{}, token.NewManager(&cfg.Auth), cfg, logger)

	if _, err := registerTestUser(svc, "ana", "ana@example.com", "vieja123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	updated, err := svc.UpdatePassword(context.Background(), domain.PasswordUpdateRequest{
		Email:    "ana@example.com",
		Password: "nueva456",
	})
	if err != nil || !updated {
		t.Fatalf("UpdatePassword() = %v, %v", updated, err)
	}

	logs := buf.String()
	if strings.Contains(logs, "ana@example.com") {
		t.Errorf("logs carry the email address: %q", logs)
	}
	if !strings.Contains(logs, "user_id") {
		t.Errorf("success log missing the user id: %q", logs)
	}
}

func TestUpdatePasswordUnknownUser(t *testing.T) {
	svc, _, _, _ := newTestService()

	updated, err := svc.UpdatePassword(context.Background(), domain.PasswordUpdateRequest{
		Email:    "nadie@example.com",
		Password: "nueva456",
	})
	if err != nil {
		t.Fatalf("UpdatePassword() error = %v", err)
	}
	if updated {
		t.Fatal("UpdatePassword() for an unknown user should report a soft false, not an error")
	}
}
