package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/menti-activa/backend/internal/domain"
	"github.com/menti-activa/backend/internal/service"
	"github.com/menti-activa/backend/internal/token"
	"github.com/menti-activa/backend/internal/websocket"
)

// Handler provides HTTP handlers for the Menti Activa API
type Handler struct {
	service *service.Service
	hub     *websocket.Hub
	logger  *slog.Logger
	devMode bool
}

// NewHandler creates a new HTTP handler
func NewHandler(service *service.Service, hub *websocket.Hub, logger *slog.Logger, devMode bool) *Handler {
	return &Handler{
		service: service,
		hub:     hub,
		logger:  logger,
		devMode: devMode,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Detail  string      `json:"detalle,omitempty"`
}

type claimsKey struct{}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(corsMiddleware)

	// Health checks
	r.Get("/", h.Root)
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	// WebSocket endpoint for ranking updates
	r.Get("/ws", h.HandleWebSocket)

	// Accounts and sessions
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Post("/olvide-contrasena", h.ForgotPassword)
		r.With(h.requireToken).Get("/perfil", h.Profile)
	})

	r.Get("/usuarios", h.ListUsers)
	r.Get("/verificar-email", h.VerifyEmail)
	r.Post("/verificar-credenciales", h.VerifyCredentials)
	r.Put("/actualizar-contrasena", h.UpdatePassword)

	// Scores and ranking
	r.Post("/acumular-puntuacion", h.AccumulateScore)
	r.Get("/puntaje-usuario", h.GetUserScore)
	r.Get("/ranking", h.GetRanking)
	r.Get("/mejores-puntuaciones", h.GetBestScores)

	// Achievements
	r.Get("/logros-usuario", h.ListAchievements)
	r.Post("/desbloquear-logro", h.UnlockAchievement)

	// Settings
	r.Get("/configuracion-usuario", h.GetSettings)
	r.Put("/actualizar-configuracion", h.UpdateSettings)

	return r
}

// corsMiddleware adds CORS headers
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Request-ID")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requireToken verifies the Bearer token and stores its claims in the context
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		const scheme = "bearer "
		if len(raw) <= len(scheme) || !strings.EqualFold(raw[:len(scheme)], scheme) {
			h.writeError(w, http.StatusUnauthorized, domain.ErrInvalidToken)
			return
		}
		raw = strings.TrimSpace(raw[len(scheme):])
		if raw == "" {
			h.writeError(w, http.StatusUnauthorized, domain.ErrInvalidToken)
			return
		}

		claims, err := h.service.Tokens().Verify(raw)
		if err != nil {
			h.writeError(w, http.StatusUnauthorized, domain.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeSuccess writes a successful JSON response
func (h *Handler) writeSuccess(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    data,
	})
}

// writeError writes an error JSON response
func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, APIResponse{
		Success: false,
		Error:   err.Error(),
	})
}

// writeServiceError maps a domain error to its HTTP status. Internal
// detail reaches the client only in development mode.
func (h *Handler) writeServiceError(w http.ResponseWriter, err error, logMsg string) {
	switch {
	case domain.IsValidation(err):
		h.writeError(w, http.StatusBadRequest, err)
	case domain.IsNotFound(err):
		h.writeError(w, http.StatusNotFound, err)
	case domain.IsConflict(err):
		h.writeError(w, http.StatusConflict, err)
	case domain.IsAuth(err):
		h.writeError(w, http.StatusUnauthorized, err)
	default:
		h.logger.Error(logMsg, "error", err)
		resp := APIResponse{
			Success: false,
			Error:   domain.ErrInternalError.Error(),
		}
		if h.devMode {
			resp.Detail = err.Error()
		}
		h.writeJSON(w, http.StatusInternalServerError, resp)
	}
}

// Root is the plain liveness probe kept for legacy clients
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("API funcionando correctamente"))
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck returns service readiness status
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "ready"})
}

// HandleWebSocket handles WebSocket upgrade requests
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.ServeWs(h.hub, h.logger, w, r)
}

// Register handles account creation
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	user, err := h.service.Register(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to register user")
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    user,
	})
}

// Login handles credential checks and token issuance
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	resp, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to log in")
		return
	}

	h.writeSuccess(w, resp)
}

// Profile returns the account behind the verified session token
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := r.Context().Value(claimsKey{}).(*token.Claims)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, domain.ErrInvalidToken)
		return
	}

	user, err := h.service.Profile(r.Context(), claims.Email)
	if err != nil {
		h.writeServiceError(w, err, "failed to load profile")
		return
	}

	h.writeSuccess(w, user)
}

// ListUsers returns every registered user
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to list users")
		return
	}

	h.writeSuccess(w, users)
}

// VerifyEmail reports whether an account exists for an email
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	exists, err := h.service.VerifyEmail(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, err, "failed to verify email")
		return
	}

	h.writeSuccess(w, domain.EmailCheck{Exists: exists})
}

// VerifyCredentials is the side-effect-free credential probe
func (h *Handler) VerifyCredentials(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	valid, err := h.service.VerifyCredentials(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to verify credentials")
		return
	}

	h.writeSuccess(w, domain.CredentialCheck{Valid: valid})
}

// UpdatePassword overwrites a credential, reporting a soft success flag
func (h *Handler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	var req domain.PasswordUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	updated, err := h.service.UpdatePassword(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to update password")
		return
	}

	h.writeSuccess(w, domain.PasswordUpdateResult{Updated: updated})
}

// ForgotPassword starts the recovery flow. The response is identical
// whether or not the email exists.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.writeServiceError(w, err, "failed to process password reset")
		return
	}

	h.writeSuccess(w, map[string]string{
		"mensaje": "Si el email esta registrado, recibiras una contrasena provisional",
	})
}

// AccumulateScore adds points to a (user, level) pair
func (h *Handler) AccumulateScore(w http.ResponseWriter, r *http.Request) {
	var sub domain.ScoreSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	result, err := h.service.AccumulateScore(r.Context(), sub)
	if err != nil {
		h.writeServiceError(w, err, "failed to accumulate score")
		return
	}

	h.writeSuccess(w, result)
}

// GetUserScore returns a user's accumulated total
func (h *Handler) GetUserScore(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	score, err := h.service.GetUserScore(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, err, "failed to get user score")
		return
	}

	h.writeSuccess(w, score)
}

// GetRanking returns the global ranking, highest total first
func (h *Handler) GetRanking(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetRanking(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to get ranking")
		return
	}

	h.writeSuccess(w, entries)
}

// GetBestScores returns the best recorded score per level
func (h *Handler) GetBestScores(w http.ResponseWriter, r *http.Request) {
	bests, err := h.service.GetBestScores(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "failed to get best scores")
		return
	}

	h.writeSuccess(w, bests)
}

// ListAchievements returns the catalog flagged with the user's unlocks
func (h *Handler) ListAchievements(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	statuses, err := h.service.ListAchievements(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, err, "failed to list achievements")
		return
	}

	h.writeSuccess(w, statuses)
}

// UnlockAchievement records a one-time achievement unlock
func (h *Handler) UnlockAchievement(w http.ResponseWriter, r *http.Request) {
	var req domain.UnlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	unlock, err := h.service.UnlockAchievement(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to unlock achievement")
		return
	}

	h.writeJSON(w, http.StatusCreated, APIResponse{
		Success: true,
		Data:    unlock,
	})
}

// GetSettings returns stored settings or defaults
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")

	settings, err := h.service.GetSettings(r.Context(), email)
	if err != nil {
		h.writeServiceError(w, err, "failed to get settings")
		return
	}

	h.writeSuccess(w, settings)
}

// UpdateSettings merges a partial settings update
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var update domain.SettingsUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}

	settings, err := h.service.UpdateSettings(r.Context(), update)
	if err != nil {
		h.writeServiceError(w, err, "failed to update settings")
		return
	}

	h.writeSuccess(w, settings)
}
