package uploads

import (
	"github.com/go-chi/chi/v5"
)

// Routes returns the uploads router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.List)
	r.Delete("/", h.Dismiss)
	r.Post("/retry", h.Retry)

	return r
}
