package service

import (
	"context"
	"testing"

	"github.com/menti-activa/backend/internal/domain"
)

func TestGetRanking(t *testing.T) {
	svc, _, _, _ := newTestService()

	for _, u := range []struct {
		name   string
		email  string
		points int64
	}{
		{"ana", "ana@example.com", 30},
		{"beto", "beto@example.com", 80},
		{"carla", "carla@example.com", 50},
	} {
		if _, err := registerTestUser(svc, u.name, u.email, "secreta123"); err != nil {
			t.Fatalf("Register(%s) error = %v", u.name, err)
		}
		if _, err := svc.AccumulateScore(context.Background(), domain.ScoreSubmission{
			Email:   u.email,
			LevelID: int64Ptr(1),
			Points:  int64Ptr(u.points),
		}); err != nil {
			t.Fatalf("AccumulateScore(%s) error = %v", u.name, err)
		}
	}

	entries, err := svc.GetRanking(context.Background())
	if err != nil {
		t.Fatalf("GetRanking() error = %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	wantOrder := []string{"beto", "carla", "ana"}
	for i, want := range wantOrder {
		if entries[i].Username != want {
			t.Errorf("position %d = %q, want %q", i+1, entries[i].Username, want)
		}
		if entries[i].Rank != int64(i+1) {
			t.Errorf("position %d rank = %d, want %d", i+1, entries[i].Rank, i+1)
		}
	}
}

func TestGetRankingTieBreaksByUserID(t *testing.T) {
	svc, _, _, _ := newTestService()

	first, err := registerTestUser(svc, "ana", "ana@example.com", "secreta123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := registerTestUser(svc, "beto", "beto@example.com", "secreta123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	for _, email := range []string{"ana@example.com", "beto@example.com"} {
		if _, err := svc.AccumulateScore(context.Background(), domain.ScoreSubmission{
			Email:   email,
			LevelID: int64Ptr(1),
			Points:  int64Ptr(40),
		}); err != nil {
			t.Fatalf("AccumulateScore(%s) error = %v", email, err)
		}
	}

	entries, err := svc.GetRanking(context.Background())
	if err != nil {
		t.Fatalf("GetRanking() error = %v", err)
	}
	if entries[0].UserID != first.ID {
		t.Errorf("tied ranking should order by user id, got %d first", entries[0].UserID)
	}
}

func TestGetBestScores(t *testing.T) {
	svc, _, _, _ := newTestService()

	if _, err := registerTestUser(svc, "ana", "ana@example.com", "secreta123"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	beto, err := registerTestUser(svc, "beto", "beto@example.com", "secreta123")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	submissions := []struct {
		email  string
		level  int64
		points int64
	}{
		{"ana@example.com", 1, 30},
		{"beto@example.com", 1, 90},
		{"ana@example.com", 2, 15},
	}
	for _, sub := range submissions {
		if _, err := svc.AccumulateScore(context.Background(), domain.ScoreSubmission{
			Email:   sub.email,
			LevelID: int64Ptr(sub.level),
			Points:  int64Ptr(sub.points),
		}); err != nil {
			t.Fatalf("AccumulateScore() error = %v", err)
		}
	}

	bests, err := svc.GetBestScores(context.Background())
	if err != nil {
		t.Fatalf("GetBestScores() error = %v", err)
	}
	if len(bests) != 2 {
		t.Fatalf("got %d level bests, want 2", len(bests))
	}

	for _, b := range bests {
		if b.LevelID == 1 {
			if b.UserID != beto.ID || b.Points != 90 {
				t.Errorf("level 1 best = %+v, want beto with 90", b)
			}
		}
	}
}
