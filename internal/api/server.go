// Package api exposes the dashboard over HTTP: snapshot reads,
// participant pages, manual refresh, and a websocket push feed.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"presale-dashboard/internal/domain"
	"presale-dashboard/internal/observability"
	"presale-dashboard/internal/service"
	"presale-dashboard/internal/storage"
)

// DefaultPageSize bounds participant pages when the client sends none.
const DefaultPageSize = 50

// StatsProvider is the slice of the refresher the handlers need.
type StatsProvider interface {
	Status() service.Status
	LastError() error
	Stats(ctx context.Context, wallet string, force bool) (*domain.AggregateStats, error)
	Refresh(ctx context.Context) (*domain.AggregateStats, error)
}

var _ StatsProvider = (*service.Refresher)(nil)

// Server wires the HTTP routes to the refresher and stores.
type Server struct {
	refresher    StatsProvider
	participants storage.ParticipantStore
	snapshots    storage.SnapshotStore
	hub          *Hub
	logger       *zap.Logger
}

type Options struct {
	Refresher    StatsProvider
	Participants storage.ParticipantStore
	Snapshots    storage.SnapshotStore
	Hub          *Hub
	Logger       *zap.Logger
}

func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		refresher:    opts.Refresher,
		participants: opts.Participants,
		snapshots:    opts.Snapshots,
		hub:          opts.Hub,
		logger:       logger,
	}
}

// Router builds the full route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.instrument)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", observability.Handler()).Methods(http.MethodGet)

	apiRouter := r.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	apiRouter.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	apiRouter.HandleFunc("/refresh", s.handleRefresh).Methods(http.MethodPost)
	apiRouter.HandleFunc("/participants", s.handleParticipants).Methods(http.MethodGet)
	apiRouter.HandleFunc("/participants/{address}", s.handleParticipant).Methods(http.MethodGet)
	apiRouter.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)

	if s.hub != nil {
		r.HandleFunc("/ws", s.hub.handleUpgrade)
	}

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{
		"status": s.refresher.Status(),
	}
	if err := s.refresher.LastError(); err != nil {
		resp["lastError"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	wallet := r.URL.Query().Get("wallet")
	force := r.URL.Query().Get("force") == "true"

	stats, err := s.refresher.Stats(r.Context(), wallet, force)
	if err != nil {
		s.logger.Error("stats request failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	stats, err := s.refresher.Refresh(r.Context())
	if err != nil {
		s.logger.Error("manual refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", DefaultPageSize)
	if offset < 0 || limit <= 0 {
		writeError(w, http.StatusBadRequest, "offset must be >= 0 and limit > 0")
		return
	}

	records, err := s.participants.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("participant list failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list failed")
		return
	}
	total, err := s.participants.Count(r.Context())
	if err != nil {
		s.logger.Error("participant count failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "count failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"participants": records,
		"total":        total,
		"offset":       offset,
		"limit":        limit,
	})
}

func (s *Server) handleParticipant(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	rec, err := s.participants.GetByAddress(r.Context(), common.HexToAddress(raw))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "participant not found")
			return
		}
		s.logger.Error("participant lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleHistory serves stored snapshots for a time window, for the
// history charts. Defaults to the trailing 24 hours.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, "history not configured")
		return
	}

	end := int64(queryInt(r, "end", int(time.Now().Unix())))
	start := int64(queryInt(r, "start", int(end-24*3600)))
	if start > end {
		writeError(w, http.StatusBadRequest, "start after end")
		return
	}

	snaps, err := s.snapshots.GetByTimeRange(r.Context(), start, end)
	if err != nil {
		s.logger.Error("history query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "history failed")
		return
	}
	writeJSON(w, http.StatusOK, snaps)
}

// instrument records request latency per route template.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		observability.DefaultMetrics.HTTPRequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
