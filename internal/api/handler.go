package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/cities"
	"github.com/kartoza/match-odds/internal/config"
	"github.com/kartoza/match-odds/internal/funnel"
	"github.com/kartoza/match-odds/internal/httputil"
	"github.com/kartoza/match-odds/internal/sessions"
)

// Handler provides HTTP API endpoints
type Handler struct {
	provider  cities.Provider
	sessions  *sessions.Store
	estimator atomic.Pointer[funnel.Estimator]
	cfg       config.Config
	logger    *zap.Logger
}

// NewHandler creates a new API handler. provider and sessionStore may be nil;
// the endpoints that need them then answer 503.
func NewHandler(
	provider cities.Provider,
	sessionStore *sessions.Store,
	estimator *funnel.Estimator,
	cfg config.Config,
	logger *zap.Logger,
) *Handler {
	if estimator == nil {
		estimator = funnel.NewEstimator(funnel.DefaultTable())
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		provider: provider,
		sessions: sessionStore,
		cfg:      cfg,
		logger:   logger.With(zap.String("component", "api")),
	}
	h.estimator.Store(estimator)
	return h
}

// SetEstimator swaps the stage table used by later requests.
func (h *Handler) SetEstimator(e *funnel.Estimator) {
	h.estimator.Store(e)
}

// TableVersion is the version of the stage table in use.
func (h *Handler) TableVersion() string {
	return h.est().Table().Version
}

func (h *Handler) est() *funnel.Estimator {
	return h.estimator.Load()
}

// RegisterRoutes sets up all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	// Health and info
	r.HandleFunc("/health", h.handleHealth).Methods("GET")
	r.HandleFunc("/info", h.handleInfo).Methods("GET")

	// City data
	r.HandleFunc("/cities", h.handleSearchCities).Methods("GET")
	r.HandleFunc("/cities/{name}", h.handleLookupCity).Methods("GET")

	// Funnel
	r.HandleFunc("/questions", h.handleListQuestions).Methods("GET")
	r.HandleFunc("/questions/{index:[0-9]+}/answered", h.handleQuestionAnswered).Methods("POST")
	r.HandleFunc("/stages", h.handleStages).Methods("GET")
	r.HandleFunc("/estimate", h.handleEstimate).Methods("POST")
	r.HandleFunc("/progress", h.handleProgress).Methods("POST")

	// Wizard sessions
	r.HandleFunc("/sessions", h.handleListSessions).Methods("GET")
	r.HandleFunc("/sessions", h.handleCreateSession).Methods("POST")
	r.HandleFunc("/sessions/{id}", h.handleGetSession).Methods("GET")
	r.HandleFunc("/sessions/{id}", h.handleDeleteSession).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/answers", h.handleUpdateAnswers).Methods("PUT")
	r.HandleFunc("/sessions/{id}/next", h.handleSessionNext).Methods("POST")
	r.HandleFunc("/sessions/{id}/back", h.handleSessionBack).Methods("POST")
	r.HandleFunc("/sessions/{id}/reset", h.handleSessionReset).Methods("POST")
	r.HandleFunc("/sessions/{id}/estimate", h.handleSessionEstimate).Methods("GET")
}

// handleHealth returns server health status
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleInfo returns server information
func (h *Handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	info := map[string]interface{}{
		"version":         h.cfg.Version,
		"tableVersion":    h.TableVersion(),
		"offline":         h.cfg.Offline,
		"cities_loaded":   h.provider != nil,
		"sessions_loaded": h.sessions != nil,
	}
	httputil.RespondJSON(w, http.StatusOK, info)
}

// answersRequest carries answers plus an optional city name to resolve into
// the location profile.
type answersRequest struct {
	Answers funnel.Answers `json:"answers"`
	City    string         `json:"city,omitempty"`
}

func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

// resolveCity fills in the location from City, or validates an inline
// location when no City is named. It writes the error response itself and
// reports whether the caller may continue.
func (h *Handler) resolveCity(ctx context.Context, w http.ResponseWriter, req *answersRequest) bool {
	if req.City == "" {
		if req.Answers.Location != nil {
			if err := req.Answers.Location.Validate(); err != nil {
				httputil.RespondError(w, http.StatusBadRequest, "invalid location: "+err.Error())
				return false
			}
		}
		return true
	}
	if h.provider == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "no city data provider configured")
		return false
	}

	profile, err := h.provider.Lookup(ctx, req.City)
	if err != nil {
		h.respondLookupError(w, req.City, err)
		return false
	}
	req.Answers.Location = profile
	return true
}

func (h *Handler) respondLookupError(w http.ResponseWriter, city string, err error) {
	if errors.Is(err, cities.ErrNotFound) {
		httputil.RespondError(w, http.StatusNotFound, "city not found: "+city)
		return
	}
	h.logger.Error("city lookup failed", zap.String("city", city), zap.Error(err))
	httputil.RespondError(w, http.StatusBadGateway, "city data provider unavailable")
}
