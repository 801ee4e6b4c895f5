package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/brensch/maze3d/env"
	"github.com/brensch/maze3d/rollout"
)

// Server holds shared state for the HTTP handlers.
type Server struct {
	roots   []string
	dbCache *DBCache
	log     *slog.Logger

	// envCfg seeds the live-rollout endpoint.
	envCfg env.Config
	// policy drives live rollouts: greedy over a loaded model, or a
	// random baseline when the viewer runs without one.
	policy func() rollout.Policy
}

func NewServer(roots []string, envCfg env.Config, policy func() rollout.Policy, log *slog.Logger) *Server {
	return &Server{
		roots:   roots,
		dbCache: NewDBCache(roots, 30*time.Second, log),
		log:     log,
		envCfg:  envCfg,
		policy:  policy,
	}
}

// RegisterRoutes sets up all routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/episodes", s.handleEpisodes)
	mux.HandleFunc("/api/episodes/", s.handleEpisodeSteps)
	mux.HandleFunc("/ws/live", s.handleLive)
}

type EpisodesResponse struct {
	Total    int64            `json:"total"`
	Episodes []EpisodeSummary `json:"episodes"`
}

func (s *Server) handleEpisodes(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, fmt.Sprintf("open episode db: %v", err), http.StatusInternalServerError)
		return
	}

	total, err := queryEpisodesTotal(r.Context(), db)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	limit := parseIntQuery(r, "limit", 200)
	offset := parseIntQuery(r, "offset", 0)
	episodes, err := queryEpisodes(r.Context(), db, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, EpisodesResponse{Total: total, Episodes: episodes})
}

func (s *Server) handleEpisodeSteps(w http.ResponseWriter, r *http.Request) {
	withCORS(w, r)
	if r.Method == http.MethodOptions {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	episodeID := strings.TrimPrefix(r.URL.Path, "/api/episodes/")
	if episodeID == "" {
		http.Error(w, "episode id required", http.StatusBadRequest)
		return
	}

	db, err := s.dbCache.Get()
	if err != nil {
		http.Error(w, fmt.Sprintf("open episode db: %v", err), http.StatusInternalServerError)
		return
	}

	steps, err := queryEpisodeSteps(r.Context(), db, episodeID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if len(steps) == 0 {
		http.Error(w, "episode not found", http.StatusNotFound)
		return
	}

	writeJSON(w, steps)
}
