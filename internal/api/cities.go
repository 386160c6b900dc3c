package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kartoza/match-odds/internal/httputil"
)

// handleSearchCities returns city names matching ?q=
func (h *Handler) handleSearchCities(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "no city data provider configured")
		return
	}

	query := r.URL.Query().Get("q")
	names, err := h.provider.Search(r.Context(), query)
	if err != nil {
		h.logger.Error("city search failed", zap.String("query", query), zap.Error(err))
		httputil.RespondError(w, http.StatusBadGateway, "city data provider unavailable")
		return
	}
	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{"cities": names})
}

// handleLookupCity returns the demographic profile of one city
func (h *Handler) handleLookupCity(w http.ResponseWriter, r *http.Request) {
	if h.provider == nil {
		httputil.RespondError(w, http.StatusServiceUnavailable, "no city data provider configured")
		return
	}

	name := mux.Vars(r)["name"]
	profile, err := h.provider.Lookup(r.Context(), name)
	if err != nil {
		h.respondLookupError(w, name, err)
		return
	}
	httputil.RespondJSON(w, http.StatusOK, profile)
}
