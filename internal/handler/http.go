package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/americano-tennis/internal/auth"
	"github.com/americano-tennis/internal/domain"
	"github.com/americano-tennis/internal/metrics"
	"github.com/americano-tennis/internal/service"
	"github.com/americano-tennis/internal/websocket"
)

// ReadinessCheck reports whether a backing dependency is reachable
type ReadinessCheck func(ctx context.Context) error

// Dependencies are the collaborators served by the HTTP API
type Dependencies struct {
	Tournaments    *service.TournamentService
	Players        *service.PlayerService
	Auth           *auth.Authenticator
	Hub            *websocket.Hub
	Metrics        *metrics.Metrics
	Checks         map[string]ReadinessCheck
	AllowedOrigins []string
}

// Handler provides HTTP handlers for the tournament API
type Handler struct {
	tournaments    *service.TournamentService
	players        *service.PlayerService
	auth           *auth.Authenticator
	hub            *websocket.Hub
	metrics        *metrics.Metrics
	checks         map[string]ReadinessCheck
	allowedOrigins []string
	logger         *slog.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies, logger *slog.Logger) *Handler {
	return &Handler{
		tournaments:    deps.Tournaments,
		players:        deps.Players,
		auth:           deps.Auth,
		hub:            deps.Hub,
		metrics:        deps.Metrics,
		checks:         deps.Checks,
		allowedOrigins: deps.AllowedOrigins,
		logger:         logger,
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Router creates and configures the HTTP router
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	origins := h.allowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)
	r.Get("/ready", h.ReadyCheck)

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler())
	}

	// WebSocket endpoint
	if h.hub != nil {
		r.Get("/ws", websocket.Handler(h.hub, h.allowedOrigins, h.logger))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", h.Login)

		r.Route("/players", func(r chi.Router) {
			r.Get("/", h.ListPlayers)
			r.Get("/stats/global", h.GlobalStats)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Post("/", h.CreatePlayer)
				r.Put("/{playerID}", h.UpdatePlayer)
			})
		})

		r.Route("/tournaments", func(r chi.Router) {
			r.Get("/", h.ListTournaments)
			r.With(h.requireAdmin).Post("/", h.CreateTournament)

			r.Route("/{tournamentID}", func(r chi.Router) {
				r.Get("/", h.GetTournament)
				r.Get("/matches", h.ListMatches)
				r.Get("/standings", h.GetStandings)
				r.Get("/standings/top", h.GetTopStandings)
				r.Get("/standings/players/{playerID}", h.GetPlayerStanding)
				r.Get("/state", h.GetScheduleState)

				r.Group(func(r chi.Router) {
					r.Use(h.requireAdmin)
					r.Delete("/", h.DeleteTournament)
					r.Put("/players", h.UpdateTournament)
					r.Patch("/status", h.SetStatus)
					r.Post("/next-round", h.GenerateRound)
					r.Post("/plan", h.GeneratePlan)
					r.Post("/next-match", h.GenerateNextMatch)
					r.Post("/shuffle", h.ReshuffleTournament)
					r.Post("/simulate", h.SimulateResults)
				})
			})
		})

		r.Route("/matches/{matchID}", func(r chi.Router) {
			r.Get("/", h.GetMatch)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)
				r.Post("/score", h.SubmitScore)
				r.Post("/shuffle", h.ShuffleMatch)
				r.Put("/players", h.SwapPlayer)
				r.Delete("/", h.DeleteMatch)
			})
		})

		// WebSocket info endpoint
		r.Get("/ws/stats", h.GetWebSocketStats)
	})

	return r
}

// requireAdmin gates mutating routes; without an authenticator every
// request is rejected
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	if h.auth == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		})
	}
	return h.auth.Middleware(next)
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

func (h *Handler) writeCreated(w http.ResponseWriter, data interface{}) {
	h.writeJSON(w, http.StatusCreated, APIResponse{
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

// writeServiceError maps a service error to its HTTP status. Unexpected
// errors are logged and hidden behind ErrInternalError.
func (h *Handler) writeServiceError(w http.ResponseWriter, action string, err error) {
	switch {
	case domain.IsNotFoundError(err):
		h.writeError(w, http.StatusNotFound, err)
	case domain.IsConflictError(err):
		h.writeError(w, http.StatusConflict, err)
	case domain.IsUserError(err):
		h.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, domain.ErrUnauthorized):
		h.writeError(w, http.StatusUnauthorized, err)
	default:
		h.logger.Error("request failed", "action", action, "error", err)
		h.writeError(w, http.StatusInternalServerError, domain.ErrInternalError)
	}
}

// decode reads a JSON body into dst. An empty body is accepted when
// optional is set.
func decode(r *http.Request, dst interface{}, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return nil
	}
	return fmt.Errorf("%w: malformed body", domain.ErrInvalidRequest)
}

// idParam parses a positive integer URL parameter
func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: bad %s", domain.ErrInvalidRequest, name)
	}
	return id, nil
}

// LoginRequest carries the admin password
type LoginRequest struct {
	Password string `json:"password"`
}

// LoginResponse carries the issued admin token
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login exchanges the admin password for a token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decode(r, &req, false); err != nil || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, domain.ErrInvalidRequest)
		return
	}
	if h.auth == nil {
		h.writeError(w, http.StatusUnauthorized, domain.ErrUnauthorized)
		return
	}

	token, expires, err := h.auth.Login(req.Password)
	if err != nil {
		h.writeServiceError(w, "login", err)
		return
	}
	h.writeSuccess(w, LoginResponse{Token: token, ExpiresAt: expires})
}

// GetWebSocketStats returns WebSocket connection statistics
func (h *Handler) GetWebSocketStats(w http.ResponseWriter, r *http.Request) {
	connections := 0
	if h.hub != nil {
		connections = h.hub.ConnectionCount()
	}
	h.writeSuccess(w, map[string]interface{}{
		"total_connections": connections,
	})
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.writeSuccess(w, map[string]string{"status": "healthy"})
}

// ReadyCheck pings every backing dependency
func (h *Handler) ReadyCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := map[string]string{}
	ready := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("readiness check failed", "dependency", name, "error", err)
			status[name] = "unavailable"
			ready = false
			continue
		}
		status[name] = "ok"
	}

	if !ready {
		h.writeJSON(w, http.StatusServiceUnavailable, APIResponse{
			Success: false,
			Data:    status,
			Error:   "not ready",
		})
		return
	}
	status["status"] = "ready"
	h.writeSuccess(w, status)
}
