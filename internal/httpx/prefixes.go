package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/haukened/imeigen/internal/app"
	"github.com/haukened/imeigen/internal/catalogio"
	"github.com/haukened/imeigen/internal/domain"
)

type prefixJSON struct {
	Prefix string `json:"prefix"`
	Model  string `json:"model"`
}

// addPrefixRequest is the body of POST /api/prefixes.
type addPrefixRequest struct {
	Prefix string `json:"prefix" validate:"required,len=8,numeric"`
	Model  string `json:"model" validate:"required,max=256"`
}

type modelJSON struct {
	Model    string `json:"model"`
	Prefixes int    `json:"prefixes"`
}

type problemJSON struct {
	Line   int    `json:"line"`
	Prefix string `json:"prefix"`
	Error  string `json:"error"`
}

type importResponse struct {
	Lines      int           `json:"lines"`
	Attempted  int           `json:"attempted"`
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Malformed  int           `json:"malformed"`
	Problems   []problemJSON `json:"problems"`
}

func toPrefixJSON(recs []domain.PrefixRecord) []prefixJSON {
	out := make([]prefixJSON, 0, len(recs))
	for _, r := range recs {
		out = append(out, prefixJSON{Prefix: r.Prefix.String(), Model: r.Model})
	}
	return out
}

// handleListPrefixes implements GET /api/prefixes?model=.
func (h *Handler) handleListPrefixes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	recs, err := h.Service.List(ctx, r.URL.Query().Get("model"))
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, toPrefixJSON(recs))
}

// handleAddPrefix implements POST /api/prefixes with a JSON body.
func (h *Handler) handleAddPrefix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req addPrefixRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody()))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator().Struct(&req); err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	rec, err := h.Service.AddPrefix(ctx, req.Prefix, req.Model)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusCreated, prefixJSON{Prefix: rec.Prefix.String(), Model: rec.Model})
}

// handleImport implements POST /api/prefixes/import. The body is CSV unless
// ?format=yaml is given or the content type is a YAML media type.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	format, err := importFormat(r)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	// Read the whole body first: the YAML decoder does not keep the
	// MaxBytesError in its chain.
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody()))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(ctx, w, http.StatusRequestEntityTooLarge, "body too large")
			return
		}
		h.writeError(ctx, w, http.StatusBadRequest, "unreadable import body: "+err.Error())
		return
	}
	lines, err := catalogio.Read(bytes.NewReader(body), format)
	if err != nil {
		h.writeError(ctx, w, http.StatusBadRequest, "unreadable import body: "+err.Error())
		return
	}
	rep, err := h.Service.Import(ctx, lines)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, toImportResponse(rep))
}

func importFormat(r *http.Request) (catalogio.Format, error) {
	if f := r.URL.Query().Get("format"); f != "" {
		return catalogio.ParseFormat(f)
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return catalogio.FormatYAML, nil
	}
	return catalogio.FormatCSV, nil
}

func toImportResponse(rep app.ImportReport) importResponse {
	out := importResponse{
		Lines:      rep.Lines,
		Attempted:  rep.Attempted,
		Inserted:   rep.Inserted,
		Duplicates: rep.Duplicates,
		Malformed:  rep.Malformed,
		Problems:   make([]problemJSON, 0, len(rep.Problems)),
	}
	for _, p := range rep.Problems {
		out.Problems = append(out.Problems, problemJSON{Line: p.Line, Prefix: p.Prefix, Error: p.Err.Error()})
	}
	return out
}

// handleDeletePrefix implements DELETE /api/prefixes/{prefix}.
func (h *Handler) handleDeletePrefix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.Service.DeletePrefix(ctx, chi.URLParam(r, "prefix")); err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleModels implements GET /api/models.
func (h *Handler) handleModels(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	models, err := h.Service.Models(ctx)
	if err != nil {
		h.mapServiceError(ctx, w, err)
		return
	}
	out := make([]modelJSON, 0, len(models))
	for _, m := range models {
		out = append(out, modelJSON{Model: m.Model, Prefixes: m.Prefixes})
	}
	h.writeJSON(ctx, w, http.StatusOK, out)
}

func (h *Handler) maxBody() int64 {
	if h.MaxBody <= 0 {
		return DefaultMaxBody
	}
	return h.MaxBody
}
