package domain

// Difficulty represents the game difficulty preference
type Difficulty string

const (
	DifficultyEasy   Difficulty = "facil"
	DifficultyMedium Difficulty = "medio"
	DifficultyHard   Difficulty = "dificil"
)

// Valid reports whether the difficulty is one of the accepted values
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Default user settings, served when no row has been written yet
const (
	DefaultMusicVolume   = 1.0
	DefaultEffectsVolume = 1.0
)

// Settings holds a user's persisted preferences
type Settings struct {
	UserID        int64      `json:"id_usuario"`
	MusicVolume   float64    `json:"volumen_musica"`
	EffectsVolume float64    `json:"volumen_efectos"`
	Difficulty    Difficulty `json:"dificultad"`
}

// DefaultSettings returns the settings served for a user with no stored row.
// No row is persisted until the user explicitly updates something.
func DefaultSettings(userID int64) Settings {
	return Settings{
		UserID:        userID,
		MusicVolume:   DefaultMusicVolume,
		EffectsVolume: DefaultEffectsVolume,
		Difficulty:    DifficultyEasy,
	}
}

// SettingsUpdate represents a partial settings update. Nil fields are
// left untouched on existing rows and defaulted on first write.
type SettingsUpdate struct {
	Email         string      `json:"email"`
	MusicVolume   *float64    `json:"volumen_musica"`
	EffectsVolume *float64    `json:"volumen_efectos"`
	Difficulty    *Difficulty `json:"dificultad"`
}
