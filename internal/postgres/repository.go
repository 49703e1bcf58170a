package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/menti-activa/backend/internal/config"
	"github.com/menti-activa/backend/internal/domain"
)

// Repository provides PostgreSQL-based data access
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// isUniqueViolation reports whether err is a unique-constraint violation.
// Unique indexes are the source of truth for duplicate emails and
// duplicate achievement unlocks; application-level checks are only a
// best-effort pre-check for a friendlier error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS usuario (
			id_usuario BIGSERIAL PRIMARY KEY,
			nombre_usuario VARCHAR(64) NOT NULL,
			email VARCHAR(255) NOT NULL UNIQUE,
			contrasena VARCHAR(255) NOT NULL,
			fecha_registro TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS nivel (
			id_nivel BIGINT PRIMARY KEY,
			nombre VARCHAR(64) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS puntuacion (
			id_usuario BIGINT NOT NULL REFERENCES usuario(id_usuario) ON DELETE CASCADE,
			id_nivel BIGINT NOT NULL REFERENCES nivel(id_nivel),
			puntos BIGINT NOT NULL DEFAULT 0,
			fecha_actualizacion TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(id_usuario, id_nivel)
		)`,
		`CREATE TABLE IF NOT EXISTS logro (
			id_logro BIGINT PRIMARY KEY,
			nombre VARCHAR(128) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS logro_usuario (
			id_usuario BIGINT NOT NULL REFERENCES usuario(id_usuario) ON DELETE CASCADE,
			id_logro BIGINT NOT NULL REFERENCES logro(id_logro),
			fecha_desbloqueo TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(id_usuario, id_logro)
		)`,
		`CREATE TABLE IF NOT EXISTS configuracion_usuario (
			id_usuario BIGINT PRIMARY KEY REFERENCES usuario(id_usuario) ON DELETE CASCADE,
			volumen_musica DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			volumen_efectos DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			dificultad VARCHAR(16) NOT NULL DEFAULT 'facil'
				CHECK (dificultad IN ('facil', 'medio', 'dificil'))
		)`,
		`CREATE INDEX IF NOT EXISTS idx_puntuacion_usuario ON puntuacion(id_usuario)`,
		`CREATE INDEX IF NOT EXISTS idx_puntuacion_nivel ON puntuacion(id_nivel, puntos DESC)`,
		`CREATE OR REPLACE VIEW ranking AS
			SELECT u.id_usuario, u.nombre_usuario, COALESCE(SUM(p.puntos), 0) AS puntos_totales
			FROM usuario u
			LEFT JOIN puntuacion p ON p.id_usuario = u.id_usuario
			GROUP BY u.id_usuario, u.nombre_usuario`,
		`CREATE OR REPLACE VIEW mejores_puntuaciones AS
			SELECT DISTINCT ON (p.id_nivel)
				p.id_nivel, n.nombre AS nombre_nivel, p.id_usuario, u.nombre_usuario, p.puntos
			FROM puntuacion p
			JOIN nivel n ON n.id_nivel = p.id_nivel
			JOIN usuario u ON u.id_usuario = p.id_usuario
			ORDER BY p.id_nivel, p.puntos DESC, p.id_usuario`,
		`INSERT INTO nivel (id_nivel, nombre) VALUES
			(1, 'Nivel 1'), (2, 'Nivel 2'), (3, 'Nivel 3'), (4, 'Nivel 4'), (5, 'Nivel 5'),
			(6, 'Nivel 6'), (7, 'Nivel 7'), (8, 'Nivel 8'), (9, 'Nivel 9'), (10, 'Nivel 10')
			ON CONFLICT (id_nivel) DO NOTHING`,
		`INSERT INTO logro (id_logro, nombre) VALUES
			(1, 'Primer paso'),
			(2, 'Aprendiz'),
			(3, 'Racha de tres'),
			(4, 'Cerebrito'),
			(5, 'Imparable'),
			(6, 'Maestro mental')
			ON CONFLICT (id_logro) DO NOTHING`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// CreateUser inserts a new user and returns the created row without the credential
func (r *Repository) CreateUser(ctx context.Context, username, email, passwordHash string) (*domain.User, error) {
	query := `
		INSERT INTO usuario (nombre_usuario, email, contrasena, fecha_registro)
		VALUES ($1, $2, $3, $4)
		RETURNING id_usuario, fecha_registro
	`
	user := domain.User{
		Username: username,
		Email:    email,
	}
	err := r.pool.QueryRow(ctx, query, username, email, passwordHash, time.Now()).Scan(
		&user.ID,
		&user.RegisteredAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrEmailTaken
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, credential hash included
func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `
		SELECT id_usuario, nombre_usuario, email, contrasena, fecha_registro
		FROM usuario
		WHERE email = $1
	`
	var user domain.User
	err := r.pool.QueryRow(ctx, query, email).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.RegisteredAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return &user, nil
}

// ListUsers retrieves every registered user without credentials
func (r *Repository) ListUsers(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT id_usuario, nombre_usuario, email, fecha_registro
		FROM usuario
		ORDER BY id_usuario
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.RegisteredAt)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, user)
	}
	return users, nil
}

// EmailExists checks whether a user is registered under the given email
func (r *Repository) EmailExists(ctx context.Context, email string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM usuario WHERE email = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, email).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking email existence: %w", err)
	}
	return exists, nil
}

// UpdatePassword overwrites the stored credential for the given email.
// Returns false without error when no user matches.
func (r *Repository) UpdatePassword(ctx context.Context, email, passwordHash string) (bool, error) {
	query := `UPDATE usuario SET contrasena = $2 WHERE email = $1`
	result, err := r.pool.Exec(ctx, query, email, passwordHash)
	if err != nil {
		return false, fmt.Errorf("updating password: %w", err)
	}
	return result.RowsAffected() > 0, nil
}

// LevelExists checks whether a level is part of the catalog
func (r *Repository) LevelExists(ctx context.Context, levelID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM nivel WHERE id_nivel = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, levelID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking level existence: %w", err)
	}
	return exists, nil
}

// AccumulateScore adds points to a (user, level) pair in a single atomic
// upsert and returns the new cumulative total. Concurrent requests for the
// same pair cannot lose an update.
func (r *Repository) AccumulateScore(ctx context.Context, userID, levelID, points int64) (int64, error) {
	query := `
		INSERT INTO puntuacion (id_usuario, id_nivel, puntos, fecha_actualizacion)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id_usuario, id_nivel)
		DO UPDATE SET puntos = puntuacion.puntos + $3, fecha_actualizacion = $4
		RETURNING puntos
	`
	var total int64
	err := r.pool.QueryRow(ctx, query, userID, levelID, points, time.Now()).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("accumulating score: %w", err)
	}
	return total, nil
}

// GetUserTotal returns a user's accumulated points across all levels
func (r *Repository) GetUserTotal(ctx context.Context, userID int64) (int64, error) {
	query := `SELECT COALESCE(SUM(puntos), 0) FROM puntuacion WHERE id_usuario = $1`
	var total int64
	err := r.pool.QueryRow(ctx, query, userID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("getting user total: %w", err)
	}
	return total, nil
}

// GetRanking retrieves the full ranking, highest total first.
// Ties break on user id so the order is deterministic.
func (r *Repository) GetRanking(ctx context.Context) ([]domain.RankingEntry, error) {
	query := `
		SELECT id_usuario, nombre_usuario, puntos_totales
		FROM ranking
		ORDER BY puntos_totales DESC, id_usuario
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting ranking: %w", err)
	}
	defer rows.Close()

	var entries []domain.RankingEntry
	rank := int64(0)
	for rows.Next() {
		var entry domain.RankingEntry
		err := rows.Scan(&entry.UserID, &entry.Username, &entry.Total)
		if err != nil {
			return nil, fmt.Errorf("scanning ranking entry: %w", err)
		}
		rank++
		entry.Rank = rank
		entries = append(entries, entry)
	}
	return entries, nil
}

// GetAllTotals retrieves every user's accumulated total (for ranking sync)
func (r *Repository) GetAllTotals(ctx context.Context) (map[int64]int64, error) {
	query := `SELECT id_usuario, puntos_totales FROM ranking`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[int64]int64)
	for rows.Next() {
		var userID, total int64
		if err := rows.Scan(&userID, &total); err != nil {
			return nil, fmt.Errorf("scanning total: %w", err)
		}
		totals[userID] = total
	}
	return totals, nil
}

// GetUsernames resolves usernames for a set of user ids
func (r *Repository) GetUsernames(ctx context.Context, userIDs []int64) (map[int64]string, error) {
	if len(userIDs) == 0 {
		return map[int64]string{}, nil
	}
	query := `SELECT id_usuario, nombre_usuario FROM usuario WHERE id_usuario = ANY($1)`
	rows, err := r.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("getting usernames: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string, len(userIDs))
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning username: %w", err)
		}
		names[id] = name
	}
	return names, nil
}

// GetBestScoresByLevel retrieves the best recorded score per level
func (r *Repository) GetBestScoresByLevel(ctx context.Context) ([]domain.LevelBest, error) {
	query := `
		SELECT id_nivel, nombre_nivel, id_usuario, nombre_usuario, puntos
		FROM mejores_puntuaciones
		ORDER BY id_nivel
	`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("getting best scores: %w", err)
	}
	defer rows.Close()

	var bests []domain.LevelBest
	for rows.Next() {
		var best domain.LevelBest
		err := rows.Scan(&best.LevelID, &best.LevelName, &best.UserID, &best.Username, &best.Points)
		if err != nil {
			return nil, fmt.Errorf("scanning best score: %w", err)
		}
		bests = append(bests, best)
	}
	return bests, nil
}

// ListAchievements retrieves the full achievement catalog
func (r *Repository) ListAchievements(ctx context.Context) ([]domain.Achievement, error) {
	query := `SELECT id_logro, nombre FROM logro ORDER BY id_logro`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing achievements: %w", err)
	}
	defer rows.Close()

	var achievements []domain.Achievement
	for rows.Next() {
		var a domain.Achievement
		if err := rows.Scan(&a.ID, &a.Name); err != nil {
			return nil, fmt.Errorf("scanning achievement: %w", err)
		}
		achievements = append(achievements, a)
	}
	return achievements, nil
}

// AchievementExists checks whether an achievement is part of the catalog
func (r *Repository) AchievementExists(ctx context.Context, achievementID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM logro WHERE id_logro = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, achievementID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking achievement existence: %w", err)
	}
	return exists, nil
}

// UnlockedAchievementIDs retrieves the set of achievement ids a user has unlocked
func (r *Repository) UnlockedAchievementIDs(ctx context.Context, userID int64) (map[int64]bool, error) {
	query := `SELECT id_logro FROM logro_usuario WHERE id_usuario = $1`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("getting unlocked achievements: %w", err)
	}
	defer rows.Close()

	unlocked := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning achievement id: %w", err)
		}
		unlocked[id] = true
	}
	return unlocked, nil
}

// HasAchievement checks whether a user has already unlocked an achievement
func (r *Repository) HasAchievement(ctx context.Context, userID, achievementID int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM logro_usuario WHERE id_usuario = $1 AND id_logro = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, userID, achievementID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking unlock state: %w", err)
	}
	return exists, nil
}

// InsertUserAchievement inserts the unlock join row. The unique index on
// (id_usuario, id_logro) is authoritative: a violation maps to
// ErrAchievementUnlocked even if two requests race past the pre-check.
func (r *Repository) InsertUserAchievement(ctx context.Context, userID, achievementID int64) (*domain.UserAchievement, error) {
	query := `
		INSERT INTO logro_usuario (id_usuario, id_logro, fecha_desbloqueo)
		VALUES ($1, $2, $3)
		RETURNING fecha_desbloqueo
	`
	unlock := domain.UserAchievement{
		UserID:        userID,
		AchievementID: achievementID,
	}
	err := r.pool.QueryRow(ctx, query, userID, achievementID, time.Now()).Scan(&unlock.UnlockedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrAchievementUnlocked
		}
		return nil, fmt.Errorf("inserting unlock: %w", err)
	}
	return &unlock, nil
}

// GetSettings retrieves a user's stored settings. Returns (nil, nil) when
// the user has never written settings; callers serve defaults in that case.
func (r *Repository) GetSettings(ctx context.Context, userID int64) (*domain.Settings, error) {
	query := `
		SELECT id_usuario, volumen_musica, volumen_efectos, dificultad
		FROM configuracion_usuario
		WHERE id_usuario = $1
	`
	var settings domain.Settings
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.MusicVolume,
		&settings.EffectsVolume,
		&settings.Difficulty,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("getting settings: %w", err)
	}
	return &settings, nil
}

// UpsertSettings merges a partial update into the user's settings row in a
// single round trip. Nil fields keep their stored value, or the default on
// first write.
func (r *Repository) UpsertSettings(ctx context.Context, userID int64, update domain.SettingsUpdate) (*domain.Settings, error) {
	query := `
		INSERT INTO configuracion_usuario (id_usuario, volumen_musica, volumen_efectos, dificultad)
		VALUES ($1, COALESCE($2, 1.0), COALESCE($3, 1.0), COALESCE($4, 'facil'))
		ON CONFLICT (id_usuario) DO UPDATE SET
			volumen_musica = COALESCE($2, configuracion_usuario.volumen_musica),
			volumen_efectos = COALESCE($3, configuracion_usuario.volumen_efectos),
			dificultad = COALESCE($4, configuracion_usuario.dificultad)
		RETURNING id_usuario, volumen_musica, volumen_efectos, dificultad
	`
	var difficulty *string
	if update.Difficulty != nil {
		d := string(*update.Difficulty)
		difficulty = &d
	}

	var settings domain.Settings
	err := r.pool.QueryRow(ctx, query, userID, update.MusicVolume, update.EffectsVolume, difficulty).Scan(
		&settings.UserID,
		&settings.MusicVolume,
		&settings.EffectsVolume,
		&settings.Difficulty,
	)
	if err != nil {
		return nil, fmt.Errorf("upserting settings: %w", err)
	}
	return &settings, nil
}
