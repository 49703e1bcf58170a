package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/menti-activa/backend/internal/config"
	"github.com/menti-activa/backend/internal/domain"
	"github.com/menti-activa/backend/internal/token"
)

type scoreKey struct {
	userID  int64
	levelID int64
}

// fakeStore is an in-memory Store with the same error semantics as the
// PostgreSQL repository.
type fakeStore struct {
	mu           sync.Mutex
	users        map[string]*domain.User
	nextID       int64
	levels       map[int64]string
	scores       map[scoreKey]int64
	achievements map[int64]string
	unlocks      map[scoreKey]time.Time
	settings     map[int64]*domain.Settings
	calls        map[string]int
}

func newFakeStore() *fakeStore {
	s := &fakeStore{
		users:        make(map[string]*domain.User),
		nextID:       1,
		levels:       make(map[int64]string),
		scores:       make(map[scoreKey]int64),
		achievements: make(map[int64]string),
		unlocks:      make(map[scoreKey]time.Time),
		settings:     make(map[int64]*domain.Settings),
		calls:        make(map[string]int),
	}
	for i := int64(1); i <= 10; i++ {
		s.levels[i] = "Nivel"
	}
	s.achievements[1] = "Primera partida"
	s.achievements[2] = "Cien puntos"
	s.achievements[3] = "Racha de cinco"
	return s
}

func (s *fakeStore) record(method string) {
	s.calls[method]++
}

func (s *fakeStore) callCount(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *fakeStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("CreateUser")

	if _, ok := s.users[email]; ok {
		return nil, domain.ErrEmailTaken
	}
	user := &domain.User{
		ID:           s.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		RegisteredAt: time.Now(),
	}
	s.nextID++
	s.users[email] = user
	return user, nil
}

func (s *fakeStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetUserByEmail")

	user, ok := s.users[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *fakeStore) ListUsers(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]domain.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, *u)
	}
	return users, nil
}

func (s *fakeStore) EmailExists(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[email]
	return ok, nil
}

func (s *fakeStore) UpdatePassword(ctx context.Context, email, passwordHash string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("UpdatePassword")

	user, ok := s.users[email]
	if !ok {
		return false, nil
	}
	user.PasswordHash = passwordHash
	return true, nil
}

func (s *fakeStore) LevelExists(ctx context.Context, levelID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.levels[levelID]
	return ok, nil
}

func (s *fakeStore) AccumulateScore(ctx context.Context, userID, levelID, points int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("AccumulateScore")

	key := scoreKey{userID, levelID}
	s.scores[key] += points
	return s.scores[key], nil
}

func (s *fakeStore) GetUserTotal(ctx context.Context, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("GetUserTotal")

	var total int64
	for key, points := range s.scores {
		if key.userID == userID {
			total += points
		}
	}
	return total, nil
}

func (s *fakeStore) GetRanking(ctx context.Context) ([]domain.RankingEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	totals := make(map[int64]int64)
	for key, points := range s.scores {
		totals[key.userID] += points
	}

	entries := make([]domain.RankingEntry, 0, len(s.users))
	for _, u := range s.users {
		entries = append(entries, domain.RankingEntry{
			UserID:   u.ID,
			Username: u.Username,
			Total:    totals[u.ID],
		})
	}
	// Highest total first, ties broken by user id
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			a, b := entries[i], entries[j]
			if b.Total > a.Total || (b.Total == a.Total && b.UserID < a.UserID) {
				entries[i], entries[j] = b, a
			}
		}
	}
	for i := range entries {
		entries[i].Rank = int64(i + 1)
	}
	return entries, nil
}

func (s *fakeStore) GetBestScoresByLevel(ctx context.Context) ([]domain.LevelBest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	best := make(map[int64]domain.LevelBest)
	for key, points := range s.scores {
		current, ok := best[key.levelID]
		if !ok || points > current.Points {
			best[key.levelID] = domain.LevelBest{
				LevelID: key.levelID,
				UserID:  key.userID,
				Points:  points,
			}
		}
	}

	bests := make([]domain.LevelBest, 0, len(best))
	for _, b := range best {
		bests = append(bests, b)
	}
	return bests, nil
}

func (s *fakeStore) GetUsernames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make(map[int64]string, len(userIDs))
	for _, u := range s.users {
		for _, id := range userIDs {
			if u.ID == id {
				names[id] = u.Username
			}
		}
	}
	return names, nil
}

func (s *fakeStore) ListAchievements(ctx context.Context) ([]domain.Achievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	catalog := make([]domain.Achievement, 0, len(s.achievements))
	for id := int64(1); id <= int64(len(s.achievements)); id++ {
		catalog = append(catalog, domain.Achievement{ID: id, Name: s.achievements[id]})
	}
	return catalog, nil
}

func (s *fakeStore) AchievementExists(ctx context.Context, achievementID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.achievements[achievementID]
	return ok, nil
}

func (s *fakeStore) UnlockedAchievementIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlocked := make(map[int64]bool)
	for key := range s.unlocks {
		if key.userID == userID {
			unlocked[key.levelID] = true
		}
	}
	return unlocked, nil
}

func (s *fakeStore) HasAchievement(ctx context.Context, userID, achievementID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.unlocks[scoreKey{userID, achievementID}]
	return ok, nil
}

func (s *fakeStore) InsertUserAchievement(ctx context.Context, userID, achievementID int64) (*domain.UserAchievement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.record("InsertUserAchievement")

	key := scoreKey{userID, achievementID}
	if _, ok := s.unlocks[key]; ok {
		return nil, domain.ErrAchievementUnlocked
	}
	now := time.Now()
	s.unlocks[key] = now
	return &domain.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
		UnlockedAt:    now,
	}, nil
}

func (s *fakeStore) GetSettings(ctx context.Context, userID int64) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, ok := s.settings[userID]
	if !ok {
		return nil, nil
	}
	copied := *settings
	return &copied, nil
}

func (s *fakeStore) UpsertSettings(ctx context.Context, userID int64, update domain.SettingsUpdate) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.settings[userID]
	if !ok {
		defaults := domain.DefaultSettings(userID)
		current = &defaults
		s.settings[userID] = current
	}
	if update.MusicVolume != nil {
		current.MusicVolume = *update.MusicVolume
	}
	if update.EffectsVolume != nil {
		current.EffectsVolume = *update.EffectsVolume
	}
	if update.Difficulty != nil {
		current.Difficulty = *update.Difficulty
	}
	copied := *current
	return &copied, nil
}

// fakeMirror is an in-memory RankingMirror
type fakeMirror struct {
	mu     sync.Mutex
	totals map[int64]int64
	failed bool
}

func newFakeMirror() *fakeMirror {
	return &fakeMirror{totals: make(map[int64]int64)}
}

func (m *fakeMirror) IncrementTotal(ctx context.Context, userID, delta int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.totals[userID] += delta
	return m.totals[userID], nil
}

func (m *fakeMirror) GetTotal(ctx context.Context, userID int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total, ok := m.totals[userID]
	return total, ok, nil
}

func (m *fakeMirror) GetTopN(ctx context.Context, n int) ([]domain.RankingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entries := make([]domain.RankingEntry, 0, len(m.totals))
	for id, total := range m.totals {
		entries = append(entries, domain.RankingEntry{UserID: id, Total: total})
	}
	for i := 0; i < len(entries); i++ {
		for j := i + 1; j < len(entries); j++ {
			if entries[j].Total > entries[i].Total {
				entries[i], entries[j] = entries[j], entries[i]
			}
		}
	}
	if len(entries) > n {
		entries = entries[:n]
	}
	for i := range entries {
		entries[i].Rank = int64(i + 1)
	}
	return entries, nil
}

func (m *fakeMirror) GetCount(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.totals)), nil
}

// capturingMailer records sent mail instead of delivering it
type capturingMailer struct {
	mu   sync.Mutex
	sent []sentMail
}

type sentMail struct {
	to      string
	subject string
	body    string
}

func (m *capturingMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

func (m *capturingMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

// capturingBroadcaster records ranking broadcasts
type capturingBroadcaster struct {
	mu         sync.Mutex
	broadcasts [][]domain.RankingEntry
}

func (b *capturingBroadcaster) BroadcastRanking(entries []domain.RankingEntry, totalUsers int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.broadcasts = append(b.broadcasts, entries)
}

func (b *capturingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.broadcasts)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService() (*Service, *fakeStore, *fakeMirror, *capturingMailer) {
	store := newFakeStore()
	mirror := newFakeMirror()
	mailer := &capturingMailer{}
	cfg := config.DefaultConfig()
	tokens := token.NewManager(&cfg.Auth)
	svc := New(store, mirror, mailer, tokens, cfg, discardLogger())
	return svc, store, mirror, mailer
}

func registerTestUser(svc *Service, username, email, password string) (*domain.User, error) {
	return svc.Register(context.Background(), domain.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
}

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }
