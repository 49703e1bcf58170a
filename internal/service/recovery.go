package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/menti-activa/backend/internal/domain"
)

const provisionalPasswordBytes = 9

// randomPassword generates a provisional credential from the system CSPRNG
func randomPassword() (string, error) {
	buf := make([]byte, provisionalPasswordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating provisional password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// RequestPasswordReset overwrites the user's credential with a freshly
// generated provisional password and mails it in plaintext. An unknown
// email returns nil all the same: the caller's response must not reveal
// whether the account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Info("password reset requested for unknown email")
			return nil
		}
		return err
	}

	provisional, err := randomPassword()
	if err != nil {
		return err
	}

	hash, err := hashPassword(provisional)
	if err != nil {
		return err
	}

	if _, err := s.store.UpdatePassword(ctx, user.Email, hash); err != nil {
		return err
	}

	body := fmt.Sprintf(
		"Hola %s,\n\n"+
			"Tu nueva contrasena provisional es: %s\n\n"+
			"Inicia sesion con ella y cambiala cuanto antes.\n\n"+
			"Si no solicitaste este cambio, contacta con soporte.",
		user.Username, provisional,
	)
	if err := s.mailer.Send(user.Email, "Menti Activa - recuperacion de contrasena", body); err != nil {
		return fmt.Errorf("sending recovery mail: %w", err)
	}

	s.logger.Info("provisional password issued", "user_id", user.ID)
	return nil
}
