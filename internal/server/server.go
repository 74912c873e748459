// Package server exposes the tracker over HTTP for the web client.
package server

import (
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/maxxcode/internal/progress"
	"github.com/abhisek/maxxcode/internal/store"
	"github.com/abhisek/maxxcode/internal/tracker"
)

// Server is the progress HTTP API.
type Server struct {
	tracker *tracker.Service
	logger  *slog.Logger
}

// New creates a server over svc. A nil logger uses slog.Default.
func New(svc *tracker.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{tracker: svc, logger: logger}
}

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLogger)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Post("/checkin", s.handleCheckIn)
		r.Post("/lessons/{id}/complete", s.handleCompleteLesson)
		r.Post("/problems/{id}/complete", s.handleCompleteProblem)
		r.Patch("/settings", s.handleSettings)
		r.Put("/apikey", s.handleAPIKey)
		r.Put("/language", s.handleLanguage)
		r.Post("/admin/unlock", s.handleUnlock)
		r.Post("/reset", s.handleReset)
		r.Get("/badges", s.handleBadges)
		r.Get("/history", s.handleHistory)
	})

	r.Handle("/metrics", promhttp.Handler())
	return r
}

// response is the body of every state-returning endpoint.
type response struct {
	State     progress.UserState `json:"state"`
	NewBadges []string           `json:"newBadges"`
	XPAwarded int                `json:"xpAwarded"`
	Saved     bool               `json:"saved"`
	Warning   string             `json:"warning,omitempty"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	resp := response{State: s.tracker.State(), NewBadges: []string{}, Saved: true}
	if ws := s.tracker.Warnings(); len(ws) > 0 {
		resp.Warning = ws[len(ws)-1].Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	res, err := s.tracker.CheckIn(r.Context())
	s.writeResult(w, res, err)
}

// maxXPGain bounds the xp a client can claim for one completion.
const maxXPGain = 10_000

type completeRequest struct {
	XP int `json:"xp"`
}

// decodeComplete reads the optional body and rejects xp outside
// [0, maxXPGain]. Zero means the catalog reward.
func decodeComplete(w http.ResponseWriter, r *http.Request) (completeRequest, bool) {
	var req completeRequest
	if !decodeOptional(w, r, &req) {
		return req, false
	}
	if req.XP < 0 || req.XP > maxXPGain {
		writeError(w, http.StatusBadRequest, "invalid_xp", fmt.Sprintf("xp must be between 0 and %d", maxXPGain))
		return req, false
	}
	return req, true
}

func (s *Server) handleCompleteLesson(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeComplete(w, r)
	if !ok {
		return
	}
	res, err := s.tracker.CompleteLesson(r.Context(), chi.URLParam(r, "id"), req.XP)
	s.writeResult(w, res, err)
}

func (s *Server) handleCompleteProblem(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeComplete(w, r)
	if !ok {
		return
	}
	res, err := s.tracker.CompleteProblem(r.Context(), chi.URLParam(r, "id"), req.XP)
	s.writeResult(w, res, err)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var patch progress.SettingsPatch
	if !decode(w, r, &patch) {
		return
	}
	res, err := s.tracker.UpdateSettings(r.Context(), patch)
	s.writeResult(w, res, err)
}

func (s *Server) handleAPIKey(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.tracker.SetAPIKey(r.Context(), req.Key)
	s.writeResult(w, res, err)
}

func (s *Server) handleLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language progress.Language `json:"language"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.tracker.SetActiveLanguage(r.Context(), req.Language)
	s.writeResult(w, res, err)
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := s.tracker.UnlockAdmin(r.Context(), req.Password)
	s.writeResult(w, res, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	res, err := s.tracker.Reset(r.Context())
	s.writeResult(w, res, err)
}

func (s *Server) handleBadges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"badges": s.tracker.Badges()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	opts := store.QueryOpts{Limit: 50, Kind: store.EventKind(r.URL.Query().Get("kind"))}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}
	events, err := s.tracker.History(r.Context(), opts)
	if err != nil {
		s.logger.Error("history query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "history_unavailable", "history is unavailable")
		return
	}
	if events == nil {
		events = []store.Event{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// writeResult maps tracker outcomes onto HTTP. A failed save still returns
// the new state with a warning; the client keeps going.
func (s *Server) writeResult(w http.ResponseWriter, res tracker.Result, err error) {
	switch {
	case err == nil:
	case store.IsStorageUnavailable(err):
		writeJSON(w, http.StatusOK, toResponse(res, "progress may not be saving: "+err.Error()))
		return
	case errors.Is(err, tracker.ErrUnknownLesson), errors.Is(err, tracker.ErrUnknownProblem):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
		return
	case errors.Is(err, tracker.ErrUnknownLanguage):
		writeError(w, http.StatusBadRequest, "invalid_language", err.Error())
		return
	case errors.Is(err, tracker.ErrWrongPassword):
		writeError(w, http.StatusForbidden, "wrong_password", err.Error())
		return
	default:
		s.logger.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(res, ""))
}

func toResponse(res tracker.Result, warning string) response {
	badges := res.NewBadges
	if badges == nil {
		badges = []string{}
	}
	return response{
		State:     res.State,
		NewBadges: badges,
		XPAwarded: res.XPAwarded,
		Saved:     res.Saved,
		Warning:   warning,
	}
}

const maxBody = 64 << 10

// decode reads a required JSON body.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// decodeOptional reads a JSON body if one was sent.
func decodeOptional(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(v)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "code": code})
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// corsMiddleware adds CORS headers for the browser client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
