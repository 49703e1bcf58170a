package service

import (
	"context"
	"log/slog"

	"github.com/menti-activa/backend/internal/config"
	"github.com/menti-activa/backend/internal/domain"
	"github.com/menti-activa/backend/internal/mail"
	"github.com/menti-activa/backend/internal/token"
)

// Store is the persistence surface the service depends on,
// implemented by postgres.Repository.
type Store interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context) ([]domain.User, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	UpdatePassword(ctx context.Context, email, passwordHash string) (bool, error)

	LevelExists(ctx context.Context, levelID int64) (bool, error)
	AccumulateScore(ctx context.Context, userID, levelID, points int64) (int64, error)
	GetUserTotal(ctx context.Context, userID int64) (int64, error)
	GetRanking(ctx context.Context) ([]domain.RankingEntry, error)
	GetBestScoresByLevel(ctx context.Context) ([]domain.LevelBest, error)
	GetUsernames(ctx context.Context, userIDs []int64) (map[int64]string, error)

	ListAchievements(ctx context.Context) ([]domain.Achievement, error)
	AchievementExists(ctx context.Context, achievementID int64) (bool, error)
	UnlockedAchievementIDs(ctx context.Context, userID int64) (map[int64]bool, error)
	HasAchievement(ctx context.Context, userID, achievementID int64) (bool, error)
	InsertUserAchievement(ctx context.Context, userID, achievementID int64) (*domain.UserAchievement, error)

	GetSettings(ctx context.Context, userID int64) (*domain.Settings, error)
	UpsertSettings(ctx context.Context, userID int64, update domain.SettingsUpdate) (*domain.Settings, error)
}

// RankingMirror is the realtime ranking view, implemented by
// redis.RankingCache. All mirror operations are best-effort; the
// store stays authoritative.
type RankingMirror interface {
	IncrementTotal(ctx context.Context, userID, delta int64) (int64, error)
	GetTotal(ctx context.Context, userID int64) (int64, bool, error)
	GetTopN(ctx context.Context, n int) ([]domain.RankingEntry, error)
	GetCount(ctx context.Context) (int64, error)
}

// Broadcaster pushes ranking updates to connected clients,
// implemented by websocket.Hub.
type Broadcaster interface {
	BroadcastRanking(entries []domain.RankingEntry, totalUsers int64)
}

// Service provides the application's business logic
type Service struct {
	store   Store
	ranking RankingMirror
	mailer  mail.Sender
	tokens  *token.Manager
	cfg     *config.Config
	logger  *slog.Logger
	hub     Broadcaster
}

// New creates the application service
func New(
	store Store,
	ranking RankingMirror,
	mailer mail.Sender,
	tokens *token.Manager,
	cfg *config.Config,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:   store,
		ranking: ranking,
		mailer:  mailer,
		tokens:  tokens,
		cfg:     cfg,
		logger:  logger,
	}
}

// SetHub sets the broadcaster used for ranking updates
func (s *Service) SetHub(hub Broadcaster) {
	s.hub = hub
}

// Tokens returns the token manager (used by the auth middleware)
func (s *Service) Tokens() *token.Manager {
	return s.tokens
}
