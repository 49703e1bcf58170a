package service

import (
	"context"

	"github.com/menti-activa/backend/internal/domain"
)

// AccumulateScore adds points to a (user, level) pair. The store performs
// the increment as one atomic upsert, so the previous total is derived
// from the returned value instead of a separate read.
func (s *Service) AccumulateScore(ctx context.Context, sub domain.ScoreSubmission) (*domain.ScoreResult, error) {
	if sub.Email == "" || sub.LevelID == nil || sub.Points == nil || *sub.Points < 0 {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, sub.Email)
	if err != nil {
		return nil, err
	}

	exists, err := s.store.LevelExists(ctx, *sub.LevelID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrLevelNotFound
	}

	total, err := s.store.AccumulateScore(ctx, user.ID, *sub.LevelID, *sub.Points)
	if err != nil {
		return nil, err
	}

	result := &domain.ScoreResult{
		Previous: total - *sub.Points,
		Added:    *sub.Points,
		Total:    total,
	}

	// Mirror to Redis and notify subscribers; failures here never fail
	// the request, the store already holds the truth.
	if s.ranking != nil {
		if _, err := s.ranking.IncrementTotal(ctx, user.ID, *sub.Points); err != nil {
			s.logger.Warn("failed to mirror score to ranking cache", "error", err)
		}
	}
	s.broadcastRanking(ctx)

	return result, nil
}

// AccumulateScoreBatch processes multiple submissions, continuing past
// individual failures (used by the Kafka ingestion path)
func (s *Service) AccumulateScoreBatch(ctx context.Context, batch domain.BatchScoreSubmission) error {
	for _, sub := range batch.Scores {
		if _, err := s.AccumulateScore(ctx, sub); err != nil {
			s.logger.Error("failed to accumulate score in batch",
				"email", sub.Email,
				"error", err,
			)
		}
	}
	return nil
}

// GetUserScore returns a user's identity and accumulated total. The
// ranking mirror serves the total when it has one; otherwise the store does.
func (s *Service) GetUserScore(ctx context.Context, email string) (*domain.UserScore, error) {
	if email == "" {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var total int64
	var mirrored bool
	if s.ranking != nil {
		total, mirrored, err = s.ranking.GetTotal(ctx, user.ID)
		if err != nil {
			s.logger.Warn("failed to read ranking cache", "error", err)
			mirrored = false
		}
	}
	if !mirrored {
		total, err = s.store.GetUserTotal(ctx, user.ID)
		if err != nil {
			return nil, err
		}
	}

	return &domain.UserScore{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Total:    total,
	}, nil
}

// broadcastRanking pushes the current top entries to websocket subscribers
func (s *Service) broadcastRanking(ctx context.Context) {
	if s.hub == nil || s.ranking == nil {
		return
	}

	n := s.cfg.Ranking.BroadcastTopN
	entries, err := s.ranking.GetTopN(ctx, n)
	if err != nil {
		s.logger.Warn("failed to read top ranking for broadcast", "error", err)
		return
	}
	if len(entries) == 0 {
		return
	}

	// The mirror only knows ids and totals; usernames come from the store.
	ids := make([]int64, len(entries))
	for i, e := range entries {
		ids[i] = e.UserID
	}
	names, err := s.store.GetUsernames(ctx, ids)
	if err != nil {
		s.logger.Warn("failed to resolve usernames for broadcast", "error", err)
	} else {
		for i := range entries {
			entries[i].Username = names[entries[i].UserID]
		}
	}

	count, err := s.ranking.GetCount(ctx)
	if err != nil {
		count = int64(len(entries))
	}

	s.hub.BroadcastRanking(entries, count)
}
