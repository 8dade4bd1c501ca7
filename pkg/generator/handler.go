package generator

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/swipetherapy/swipe-therapy/pkg/backend"
	"github.com/swipetherapy/swipe-therapy/pkg/cards"
)

// maxRequestBytes caps the request body; a full session history fits easily.
const maxRequestBytes = 1 << 20

// headerRequestID carries a caller-supplied request id.
const headerRequestID = "X-Request-Id"

// cardsResponse is the success body.
type cardsResponse struct {
	Cards []cards.Card `json:"cards"`
}

// errorResponse is the failure body.
type errorResponse struct {
	Error         string `json:"error"`
	ErrorType     string `json:"error_type,omitempty"`
	ResponseDebug string `json:"response_debug,omitempty"`
	OutputDebug   string `json:"output_debug,omitempty"`
}

// Handler serves the card generation endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates the card generation handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// ServeHTTP handles /api/v1/cards.
//
// @Summary      Generate cards
// @Description  Resolves the phase for current_count, asks the backend for the next round and returns the numbered cards.
// @Tags         Cards
// @Accept       json
// @Produce      json
// @Param        body  body      Input  true  "Answer history and running card count"
// @Success      200   {object}  cardsResponse
// @Failure      400   {object}  errorResponse
// @Failure      405   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /cards [post]
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
		return
	}

	var in Input
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err := dec.Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{
			Error:     "invalid request body: " + err.Error(),
			ErrorType: string(ErrorTypeValidation),
		})
		return
	}
	in.RequestID = strings.TrimSpace(r.Header.Get(headerRequestID))

	batch, err := h.svc.Generate(r.Context(), in)
	if err != nil {
		writeGenerationError(w, err)
		return
	}

	out := batch.Cards
	if out == nil {
		out = []cards.Card{}
	}
	writeJSON(w, http.StatusOK, cardsResponse{Cards: out})
}

// writeGenerationError renders a failure envelope. Validation failures are
// the caller's fault; everything else is a 500.
func writeGenerationError(w http.ResponseWriter, err error) {
	var gerr *Error
	if !errors.As(err, &gerr) {
		gerr = newError(ErrorTypeBackendCallFailed, err, backend.Result{})
	}
	if gerr.Type == ErrorTypeValidation {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: gerr.Err.Error(), ErrorType: string(gerr.Type)})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error:         gerr.Err.Error(),
		ErrorType:     string(gerr.Type),
		ResponseDebug: gerr.ResponseDebug,
		OutputDebug:   gerr.OutputDebug,
	})
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
