package domain

import "time"

// Achievement represents an entry of the static achievement catalog
type Achievement struct {
	ID   int64  `json:"id_logro"`
	Name string `json:"nombre"`
}

// UserAchievement is the join record marking an achievement as unlocked.
// Rows are created once and never mutated.
type UserAchievement struct {
	UserID        int64     `json:"id_usuario"`
	AchievementID int64     `json:"id_logro"`
	UnlockedAt    time.Time `json:"fecha_desbloqueo"`
}

// AchievementStatus is a catalog achievement flagged with a user's unlock state
type AchievementStatus struct {
	ID       int64  `json:"id_logro"`
	Name     string `json:"nombre"`
	Unlocked bool   `json:"desbloqueado"`
}

// UnlockRequest represents a request to unlock an achievement for a user
type UnlockRequest struct {
	Email         string `json:"email"`
	AchievementID *int64 `json:"id_logro"`
}
