package service

import (
	"context"

	"github.com/menti-activa/backend/internal/domain"
)

// GetSettings returns stored settings, or the hardcoded defaults when the
// user has never written any. Defaults are not persisted.
func (s *Service) GetSettings(ctx context.Context, email string) (*domain.Settings, error) {
	if email == "" {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	settings, err := s.store.GetSettings(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		defaults := domain.DefaultSettings(user.ID)
		return &defaults, nil
	}
	return settings, nil
}

// UpdateSettings merges a partial update. Absent fields keep their stored
// values, or the defaults when this is the first write.
func (s *Service) UpdateSettings(ctx context.Context, update domain.SettingsUpdate) (*domain.Settings, error) {
	if update.Email == "" {
		return nil, domain.ErrInvalidRequest
	}
	if update.Difficulty != nil && !update.Difficulty.Valid() {
		return nil, domain.ErrInvalidDifficulty
	}

	user, err := s.store.GetUserByEmail(ctx, update.Email)
	if err != nil {
		return nil, err
	}

	return s.store.UpsertSettings(ctx, user.ID, update)
}
