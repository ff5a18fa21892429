package library

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the library router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)

	r.Route("/session", func(r chi.Router) {
		r.Post("/", h.OpenSession)
		r.Delete("/", h.CloseSession)
		r.Post("/toggle", h.Toggle)
		r.Post("/confirm", h.Confirm)
	})

	return r
}

// MediaRoutes returns the router for direct media operations.
func (h *Handler) MediaRoutes() chi.Router {
	r := chi.NewRouter()

	r.Patch("/{id}/thumbnail", h.UpdateThumbnail)

	return r
}
