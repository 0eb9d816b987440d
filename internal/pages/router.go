package pages

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/starford/avatars/internal/catalog"
	"github.com/starford/avatars/internal/resources"
)

// NewRouter creates a chi router serving the library the way a static
// pages host lays it out:
//
//	/{catalog uri}            catalog
//	/{dir}/catalog.json       catalog
//	/{base name}              base instructions
//	/{dir}/{file}             persona documents
//	/events                   catalog rebuild stream, when events is non-nil
//
// Health endpoints are never behind authToken.
func NewRouter(res *resources.Service, authToken string, events http.Handler, logger *slog.Logger) chi.Router {
	if logger == nil {
		logger = slog.Default()
	}
	h := NewHandler(res, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(authToken))

		r.Get("/"+res.CatalogURI(), h.Catalog)
		r.Get("/"+res.PersonaURI(catalog.FileName), h.Catalog)
		r.Get("/"+res.BaseURI(), h.Base)
		r.Get("/"+res.Prefix()+"/*", h.Persona)

		if events != nil {
			r.Get("/events", events.ServeHTTP)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody("Unknown resource"))
	})

	return r
}
