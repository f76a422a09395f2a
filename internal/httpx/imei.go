package httpx

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/haukened/imeigen/internal/app"
)

// generateQuery holds the validated query of GET /api/imei.
type generateQuery struct {
	Model  string `validate:"max=256"`
	Prefix string `validate:"omitempty,len=8,numeric"`
	Count  int    `validate:"gte=1"`
}

type generatedJSON struct {
	IMEI   string `json:"imei"`
	Prefix string `json:"prefix"`
	Model  string `json:"model,omitempty"`
}

type generateResponse struct {
	IMEIs []generatedJSON `json:"imeis"`
}

type validationResponse struct {
	IMEI     string `json:"imei"`
	Valid    bool   `json:"valid"`
	Expected int    `json:"expected_check_digit"`
	Actual   int    `json:"actual_check_digit"`
}

// handleGenerate implements GET /api/imei?model=&prefix=&count=. A prefix
// generates from that prefix directly; otherwise one is picked from the
// catalog, restricted to model when given.
func (h *Handler) handleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	in := generateQuery{Model: q.Get("model"), Prefix: q.Get("prefix"), Count: 1}
	if raw := q.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(ctx, w, http.StatusBadRequest, "invalid count")
			return
		}
		in.Count = n
	}
	if err := h.validator().Struct(&in); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}

	var (
		out []app.Generated
		err error
	)
	if in.Prefix != "" {
		out, err = h.Service.GenerateFromPrefix(ctx, in.Prefix, in.Count)
	} else {
		out, err = h.Service.Generate(ctx, in.Model, in.Count)
	}
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	resp := generateResponse{IMEIs: make([]generatedJSON, 0, len(out))}
	for _, g := range out {
		resp.IMEIs = append(resp.IMEIs, generatedJSON{IMEI: g.IMEI.String(), Prefix: g.Prefix.String(), Model: g.Model})
	}
	h.writeJSON(ctx, w, http.StatusOK, resp)
}

// handleValidate implements GET /api/imei/{imei}. A wrong check digit is a
// normal 200 result with valid=false; structural problems are 422.
func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidate := chi.URLParam(r, "imei")
	v, err := h.Service.Validate(ctx, candidate)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, validationResponse{
		IMEI:     v.IMEI.String(),
		Valid:    v.Valid,
		Expected: v.Expected,
		Actual:   v.Actual,
	})
}
