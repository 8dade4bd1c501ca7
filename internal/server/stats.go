package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/swipetherapy/swipe-therapy/pkg/audit"
)

// statsResponse combines the overview with an optional breakdown.
type statsResponse struct {
	Overview  *audit.Overview        `json:"overview"`
	Breakdown []audit.BreakdownEntry `json:"breakdown,omitempty"`
}

// failuresResponse lists failed generation attempts, newest first.
type failuresResponse struct {
	Failures []audit.Event `json:"failures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// statsHandler reports aggregate generation statistics from the audit store.
type statsHandler struct {
	querier audit.Querier
}

func newStatsHandler(q audit.Querier) *statsHandler {
	return &statsHandler{querier: q}
}

// ServeHTTP handles /api/v1/stats/generations.
//
// @Summary      Generation statistics
// @Description  Returns success rate and latency of card generation, optionally grouped by a dimension.
// @Tags         stats
// @Produce      json
// @Param        group_by    query     string  false  "Breakdown dimension (phase, error_type, backend_variant)"
// @Param        start_time  query     string  false  "RFC 3339 start time"
// @Param        end_time    query     string  false  "RFC 3339 end time"
// @Param        limit       query     int     false  "Maximum breakdown rows"
// @Success      200         {object}  statsResponse
// @Failure      400         {object}  errorResponse
// @Failure      404         {object}  errorResponse
// @Failure      500         {object}  errorResponse
// @Router       /stats/generations [get]
func (h *statsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.querier == nil {
		writeError(w, http.StatusNotFound, "audit storage not enabled")
		return
	}

	q := r.URL.Query()
	start, err := parseTimeParam(q.Get("start_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}
	end, err := parseTimeParam(q.Get("end_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time")
		return
	}
	limit, err := parseLimitParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	overview, err := h.querier.Overview(r.Context(), start, end)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load overview")
		return
	}
	resp := statsResponse{Overview: overview}

	if groupBy := q.Get("group_by"); groupBy != "" {
		dim := audit.BreakdownDimension(groupBy)
		if !audit.ValidBreakdownDimensions[dim] {
			writeError(w, http.StatusBadRequest, "invalid group_by")
			return
		}
		resp.Breakdown, err = h.querier.Breakdown(r.Context(), audit.BreakdownFilter{
			GroupBy:   dim,
			Limit:     limit,
			StartTime: start,
			EndTime:   end,
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load breakdown")
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseLimitParam accepts an absent limit as zero, leaving the default to the store.
func parseLimitParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return n, nil
}

func parseTimeParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil //nolint:nilnil // absent parameter
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// Failure listing bounds.
const (
	defaultFailuresLimit = 20
	maxFailuresLimit     = 100
)

// failuresHandler lists failed generation attempts with their diagnostic
// payload for manual triage.
type failuresHandler struct {
	querier audit.Querier
}

func newFailuresHandler(q audit.Querier) *failuresHandler {
	return &failuresHandler{querier: q}
}

// ServeHTTP handles /api/v1/stats/generations/failures.
//
// @Summary      Failed generations
// @Description  Lists failed card generation attempts, newest first, with error type, message and raw output when kept.
// @Tags         stats
// @Produce      json
// @Param        phase       query     string  false  "Phase name"
// @Param        error_type  query     string  false  "Error type, e.g. MalformedOutput"
// @Param        start_time  query     string  false  "RFC 3339 start time"
// @Param        end_time    query     string  false  "RFC 3339 end time"
// @Param        limit       query     int     false  "Maximum rows (default 20, max 100)"
// @Param        offset      query     int     false  "Rows to skip"
// @Success      200         {object}  failuresResponse
// @Failure      400         {object}  errorResponse
// @Failure      404         {object}  errorResponse
// @Failure      500         {object}  errorResponse
// @Router       /stats/generations/failures [get]
func (h *failuresHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if h.querier == nil {
		writeError(w, http.StatusNotFound, "audit storage not enabled")
		return
	}

	q := r.URL.Query()
	start, err := parseTimeParam(q.Get("start_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start_time")
		return
	}
	end, err := parseTimeParam(q.Get("end_time"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid end_time")
		return
	}
	limit, err := parseLimitParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit")
		return
	}
	offset, err := parseLimitParam(q.Get("offset"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	if limit == 0 {
		limit = defaultFailuresLimit
	}
	limit = min(limit, maxFailuresLimit)

	failed := false
	events, err := h.querier.Query(r.Context(), audit.QueryFilter{
		StartTime: start,
		EndTime:   end,
		Phase:     q.Get("phase"),
		ErrorType: q.Get("error_type"),
		Success:   &failed,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load failures")
		return
	}
	if events == nil {
		events = []audit.Event{}
	}
	writeJSON(w, http.StatusOK, failuresResponse{Failures: events})
}
