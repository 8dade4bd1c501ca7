package session

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/swipetherapy/swipe-therapy/pkg/cards"
)

const (
	// slogKeyError is the slog attribute key for error values.
	slogKeyError = "error"

	// maxRequestBytes caps a session write.
	maxRequestBytes = 4 << 20

	errClientIDRequired = "client_id required"
	errStoreUnavailable = "session store unavailable"
	errMethodNotAllowed = "Method not allowed"
	queryParamClientID  = "client_id"
)

// writeRequest is the POST body. Omitted fields reset to their empty value.
type writeRequest struct {
	ClientID     string               `json:"client_id"`
	History      []cards.AnswerRecord `json:"history"`
	CurrentIndex int                  `json:"current_index"`
	Cards        []cards.Card         `json:"cards"`
}

type successResponse struct {
	Success bool `json:"success"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the session endpoint.
type Handler struct {
	store  Store
	logger *slog.Logger
}

// NewHandler creates the session handler.
func NewHandler(store Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{store: store, logger: logger}
}

// ServeHTTP dispatches on method.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPost:
		h.post(w, r)
	case http.MethodDelete:
		h.delete(w, r)
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
	default:
		writeError(w, http.StatusMethodNotAllowed, errMethodNotAllowed)
	}
}

// get handles GET /api/v1/session.
//
// @Summary      Load session
// @Description  Returns the saved state for client_id, or an empty state when none exists.
// @Tags         Session
// @Produce      json
// @Param        client_id  query     string  true  "Client identifier"
// @Success      200        {object}  State
// @Failure      400        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /session [get]
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.URL.Query().Get(queryParamClientID))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, errClientIDRequired)
		return
	}

	st, err := h.store.Get(r.Context(), clientID)
	if err != nil {
		h.logger.Error("session: load failed", "client_id", clientID, slogKeyError, err)
		writeError(w, http.StatusInternalServerError, errStoreUnavailable)
		return
	}
	if st == nil {
		st = EmptyState(clientID)
	}
	st.normalize()
	writeJSON(w, http.StatusOK, st)
}

// post handles POST /api/v1/session.
//
// @Summary      Save session
// @Description  Replaces the saved state for client_id.
// @Tags         Session
// @Accept       json
// @Produce      json
// @Param        body  body      writeRequest  true  "Session state"
// @Success      200   {object}  successResponse
// @Failure      400   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /session [post]
func (h *Handler) post(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.ClientID = strings.TrimSpace(req.ClientID)
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, errClientIDRequired)
		return
	}
	if req.CurrentIndex < 0 {
		writeError(w, http.StatusBadRequest, "current_index must be non-negative")
		return
	}
	if err := cards.ValidateDeck(req.Cards); err != nil {
		writeError(w, http.StatusBadRequest, "invalid cards: "+err.Error())
		return
	}

	st := &State{
		ClientID:     req.ClientID,
		History:      req.History,
		CurrentIndex: req.CurrentIndex,
		Cards:        req.Cards,
	}
	if err := h.store.Put(r.Context(), st); err != nil {
		h.logger.Error("session: save failed", "client_id", req.ClientID, slogKeyError, err)
		writeError(w, http.StatusInternalServerError, errStoreUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// delete handles DELETE /api/v1/session.
//
// @Summary      Delete session
// @Description  Removes the saved state for client_id. Deleting a missing session succeeds.
// @Tags         Session
// @Produce      json
// @Param        client_id  query     string  true  "Client identifier"
// @Success      200        {object}  successResponse
// @Failure      400        {object}  errorResponse
// @Failure      500        {object}  errorResponse
// @Router       /session [delete]
func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	clientID := strings.TrimSpace(r.URL.Query().Get(queryParamClientID))
	if clientID == "" {
		writeError(w, http.StatusBadRequest, errClientIDRequired)
		return
	}

	if err := h.store.Delete(r.Context(), clientID); err != nil {
		h.logger.Error("session: delete failed", "client_id", clientID, slogKeyError, err)
		writeError(w, http.StatusInternalServerError, errStoreUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
