package uploads

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/foliokit/media-agent/internal/pkg/response"
	"github.com/foliokit/media-agent/internal/pkg/validator"
)

// Handler handles upload queue HTTP requests.
type Handler struct {
	queue *Queue
}

// NewHandler creates an uploads handler.
func NewHandler(queue *Queue) *Handler {
	return &Handler{queue: queue}
}

// List handles GET /uploads.
func (h *Handler) List(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, toListResponse(h.queue.List(), h.queue.InFlight()))
}

// Retry handles POST /uploads/retry. Only failed entries can retry;
// the new attempt keeps the media type and thumbnail choice from the
// original.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.queue.Retry(req.Path); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			response.NotFound(w, "Upload not found")
		case errors.Is(err, ErrNotRetryable):
			response.Conflict(w, "Upload is not in a failed state")
		default:
			response.InternalError(w)
		}
		return
	}
	response.NoContent(w)
}

// Dismiss handles DELETE /uploads. Dismissing an unknown or already
// dismissed entry is a no-op.
func (h *Handler) Dismiss(w http.ResponseWriter, r *http.Request) {
	var req FileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	h.queue.Dismiss(req.Path)
	response.NoContent(w)
}
