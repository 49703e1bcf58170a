package service

import (
	"context"

	"github.com/menti-activa/backend/internal/domain"
)

// ListAchievements returns the full catalog flagged with the user's unlock
// state. Membership is computed from one query over the user's unlocks.
func (s *Service) ListAchievements(ctx context.Context, email string) ([]domain.AchievementStatus, error) {
	if email == "" {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	catalog, err := s.store.ListAchievements(ctx)
	if err != nil {
		return nil, err
	}

	unlocked, err := s.store.UnlockedAchievementIDs(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	statuses := make([]domain.AchievementStatus, len(catalog))
	for i, a := range catalog {
		statuses[i] = domain.AchievementStatus{
			ID:       a.ID,
			Name:     a.Name,
			Unlocked: unlocked[a.ID],
		}
	}
	return statuses, nil
}

// UnlockAchievement records a one-time unlock. The existence pre-check only
// buys a friendlier error; the store's unique index decides races.
func (s *Service) UnlockAchievement(ctx context.Context, req domain.UnlockRequest) (*domain.UserAchievement, error) {
	if req.Email == "" || req.AchievementID == nil {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.AchievementExists(ctx, *req.AchievementID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrAchievementNotFound
	}

	already, err := s.store.HasAchievement(ctx, user.ID, *req.AchievementID)
	if err != nil {
		return nil, err
	}
	if already {
		return nil, domain.ErrAchievementUnlocked
	}

	unlock, err := s.store.InsertUserAchievement(ctx, user.ID, *req.AchievementID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("achievement unlocked", "user_id", user.ID, "achievement_id", *req.AchievementID)
	return unlock, nil
}
