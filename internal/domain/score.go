package domain

import "time"

// Level represents an entry of the static level catalog
type Level struct {
	ID   int64  `json:"id_nivel"`
	Name string `json:"nombre"`
}

// ScoreSubmission represents a request to add points to a (user, level) pair.
// Pointer fields distinguish an absent field from a zero value.
type ScoreSubmission struct {
	Email   string `json:"email"`
	LevelID *int64 `json:"id_nivel"`
	Points  *int64 `json:"puntos"`
}

// BatchScoreSubmission represents multiple score submissions
type BatchScoreSubmission struct {
	Scores []ScoreSubmission `json:"puntuaciones"`
}

// ScoreResult reports the outcome of a score accumulation
type ScoreResult struct {
	Previous int64 `json:"puntos_anteriores"`
	Added    int64 `json:"puntos_sumados"`
	Total    int64 `json:"puntos_totales"`
}

// Score represents a cumulative per-level score row
type Score struct {
	UserID    int64     `json:"id_usuario"`
	LevelID   int64     `json:"id_nivel"`
	Points    int64     `json:"puntos"`
	UpdatedAt time.Time `json:"fecha_actualizacion"`
}

// UserScore is a user's identity plus their accumulated total
type UserScore struct {
	UserID   int64  `json:"id_usuario"`
	Username string `json:"nombre_usuario"`
	Email    string `json:"email"`
	Total    int64  `json:"puntos_totales"`
}

// RankingEntry represents a row of the global ranking, highest total first
type RankingEntry struct {
	Rank     int64  `json:"posicion"`
	UserID   int64  `json:"id_usuario"`
	Username string `json:"nombre_usuario"`
	Total    int64  `json:"puntos_totales"`
}

// LevelBest is the best score recorded for a single level
type LevelBest struct {
	LevelID   int64  `json:"id_nivel"`
	LevelName string `json:"nombre_nivel"`
	UserID    int64  `json:"id_usuario"`
	Username  string `json:"nombre_usuario"`
	Points    int64  `json:"puntos"`
}
