package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/catalogio"
	"github.com/haukened/imeigen/internal/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// writeJSON writes v as a JSON body with the given status code.
func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		cid, _ := GetCorrelationID(ctx)
		h.log().Warn("encode response", "cid", cid, "error", err)
	}
}

// writeError writes a JSON error body with given status code.
func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code int, msg string) {
	h.writeJSON(ctx, w, code, errorBody{Error: msg})
	if cid, ok := GetCorrelationID(ctx); ok {
		h.log().Debug("wrote error response", "cid", cid, "status", code, "msg", msg)
	}
}

// mapServiceError maps domain/store/service errors to HTTP responses. Domain
// error messages describe the input only, so they are returned to the client.
func (h *Handler) mapServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	cid, _ := GetCorrelationID(ctx)
	log := h.log()
	var structural *domain.StructuralError
	switch {
	case errors.As(err, &structural):
		log.Info("service error", "cid", cid, "code", "structural_invalid")
		h.writeError(ctx, w, http.StatusUnprocessableEntity, structural.Error())
	case errors.Is(err, domain.ErrInvalidPrefix),
		errors.Is(err, domain.ErrEmptyModel),
		errors.Is(err, domain.ErrInvalidModel),
		errors.Is(err, app.ErrBatchSize),
		errors.Is(err, catalogio.ErrUnknownFormat):
		log.Info("service error", "cid", cid, "code", "bad_request")
		h.writeError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, app.ErrNoPrefixAvailable):
		log.Info("service error", "cid", cid, "code", "no_prefix")
		h.writeError(ctx, w, http.StatusNotFound, "no prefix available")
	case errors.Is(err, app.ErrNotFound):
		log.Info("service error", "cid", cid, "code", "not_found")
		h.writeError(ctx, w, http.StatusNotFound, "not found")
	case errors.Is(err, app.ErrDuplicatePrefix):
		log.Info("service error", "cid", cid, "code", "duplicate")
		h.writeError(ctx, w, http.StatusConflict, "prefix already exists")
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("service error", "cid", cid, "code", "timeout")
		h.writeError(ctx, w, http.StatusGatewayTimeout, "timeout")
	default:
		// Internal: do not echo the raw error to the client.
		log.Error("unhandled service error", "cid", cid, "code", "unhandled", "error", err)
		h.writeError(ctx, w, http.StatusInternalServerError, "internal")
	}
}
