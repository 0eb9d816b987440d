package pages

import (
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/starford/avatars/internal/apperr"
	"github.com/starford/avatars/internal/resources"
)

// Handler serves library resources.
type Handler struct {
	res    *resources.Service
	logger *slog.Logger
}

// NewHandler creates a Handler backed by res.
func NewHandler(res *resources.Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{res: res, logger: logger}
}

// Live reports that the process is up.
func (h *Handler) Live(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Ready reports whether the catalog has been generated.
func (h *Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if _, err := os.Stat(h.res.CatalogPath()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("catalog not generated"))
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// Catalog serves the generated catalog.
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.res.CatalogURI(), "application/json; charset=utf-8")
}

// Base serves the base instructions file.
func (h *Handler) Base(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.res.BaseURI(), "text/markdown; charset=utf-8")
}

// Persona serves a document from the persona directory.
func (h *Handler) Persona(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, h.res.PersonaURI(chi.URLParam(r, "*")), "text/markdown; charset=utf-8")
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, uri, contentType string) {
	text, err := h.res.Read(r.Context(), uri)
	if err != nil {
		h.logger.Warn("http: read failed", slog.String("uri", uri), slog.String("error", err.Error()))
		writeJSON(w, statusFor(err), errorBody(resources.ClientMessage(err)))
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound), errors.Is(err, apperr.ErrUnknownResource):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
