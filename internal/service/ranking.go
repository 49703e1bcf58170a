package service

import (
	"context"

	"github.com/menti-activa/backend/internal/domain"
)

// GetRanking returns the full global ranking from the store, highest
// total first. The store is authoritative; the mirror only feeds the
// realtime broadcast path.
func (s *Service) GetRanking(ctx context.Context) ([]domain.RankingEntry, error) {
	return s.store.GetRanking(ctx)
}

// GetBestScores returns the best recorded score per level
func (s *Service) GetBestScores(ctx context.Context) ([]domain.LevelBest, error) {
	return s.store.GetBestScoresByLevel(ctx)
}
