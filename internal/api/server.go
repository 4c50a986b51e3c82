package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/handlers"

	"github.com/flor3z/scuttle-bot/internal/stats"
	"github.com/flor3z/scuttle-bot/internal/storage"
	"github.com/flor3z/scuttle-bot/internal/tracker"
)

const (
	defaultDays = 7
	maxDays     = 365
)

// Service is the read side of the tracker
type Service interface {
	GetStats(ctx context.Context, puuid string, days int) (stats.Aggregate, error)
	GetReport(ctx context.Context, guildID string, days int) (*tracker.Report, error)
	IsPlayerCached(ctx context.Context, puuid string) (bool, error)
}

// SummonerLister lists a guild's registered players
type SummonerLister interface {
	ListSummoners(ctx context.Context, guildID string) ([]storage.Summoner, error)
}

// Server is the read-only HTTP query surface
type Server struct {
	svc       Service
	summoners SummonerLister
	srv       *http.Server
}

// NewServer builds a server listening on addr
func NewServer(addr string, svc Service, summoners SummonerLister) *Server {
	s := &Server{svc: svc, summoners: summoners}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      handlers.CompressHandler(s.Routes()),
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}
	return s
}

// Routes returns the chi router with every endpoint mounted
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	// Read-only surface; any dashboard origin may query it
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Route("/api", func(api chi.Router) {
		api.Get("/health", healthCheckHandler)
		api.Get("/players/{puuid}/stats", s.playerStatsHandler)
		api.Get("/players/{puuid}/cached", s.playerCachedHandler)
		api.Get("/guilds/{guildID}/report", s.guildReportHandler)
		api.Get("/guilds/{guildID}/summoners", s.guildSummonersHandler)
	})
	return r
}

// Start serves in the background until Shutdown
func (s *Server) Start() {
	go func() {
		slog.Info("Starting HTTP server", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", "error", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) playerStatsHandler(w http.ResponseWriter, r *http.Request) {
	puuid := chi.URLParam(r, "puuid")
	days, ok := parseDays(w, r)
	if !ok {
		return
	}

	agg, err := s.svc.GetStats(r.Context(), puuid, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agg.Fields())
}

func (s *Server) playerCachedHandler(w http.ResponseWriter, r *http.Request) {
	puuid := chi.URLParam(r, "puuid")

	cached, err := s.svc.IsPlayerCached(r.Context(), puuid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cached": cached})
}

func (s *Server) guildReportHandler(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")
	days, ok := parseDays(w, r)
	if !ok {
		return
	}

	report, err := s.svc.GetReport(r.Context(), guildID, days)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) guildSummonersHandler(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	summoners, err := s.summoners.ListSummoners(r.Context(), guildID)
	if err != nil {
		writeError(w, err)
		return
	}
	if summoners == nil {
		summoners = []storage.Summoner{}
	}
	writeJSON(w, http.StatusOK, summoners)
}

// parseDays reads ?days=, defaulting to a week. It writes a 400 and returns
// false on bad input.
func parseDays(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return defaultDays, true
	}
	days, err := strconv.Atoi(raw)
	if err != nil || days < 1 || days > maxDays {
		http.Error(w, "Invalid 'days' parameter: must be between 1 and 365", http.StatusBadRequest)
		return 0, false
	}
	return days, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracker.ErrInvalidDays):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, tracker.ErrNoDataYet),
		errors.Is(err, tracker.ErrNoSummoners),
		errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		slog.Error("API request failed", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
