package staging

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the staging router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Delete("/", h.Clear)
	r.Post("/commit", h.Commit)

	r.Route("/files", func(r chi.Router) {
		r.Post("/", h.AddFiles)
		r.Delete("/", h.RemoveFile)
		r.Put("/thumbnail", h.SetThumbnail)
		r.Delete("/thumbnail", h.ClearThumbnail)
		r.Put("/alt", h.SetAlt)
	})

	return r
}
