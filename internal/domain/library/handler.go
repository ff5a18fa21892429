package library

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/foliokit/media-agent/internal/pkg/backend"
	"github.com/foliokit/media-agent/internal/pkg/response"
	"github.com/foliokit/media-agent/internal/pkg/validator"
)

const maxThumbnailSize = 10 * 1024 * 1024

// ThumbnailClient is the slice of the backend API the thumbnail proxy
// needs.
type ThumbnailClient interface {
	UpdateMediaThumbnail(ctx context.Context, mediaID int64, thumb backend.FilePart) backend.Result[backend.ThumbnailUpdate]
}

// Handler handles media library HTTP requests.
type Handler struct {
	picker *Picker
	client ThumbnailClient
}

// NewHandler creates a library handler.
func NewHandler(picker *Picker, client ThumbnailClient) *Handler {
	return &Handler{picker: picker, client: client}
}

// List handles GET /library. Filtering is local to the open session.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if !h.picker.IsOpen() {
		response.Conflict(w, "No picker session is open")
		return
	}

	req := FilterRequest{
		Search: r.URL.Query().Get("search"),
		Type:   r.URL.Query().Get("type"),
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	response.OK(w, SessionResponse{
		Media:    h.picker.Filter(req.Search, req.Type),
		Selected: h.picker.Selected(),
	})
}

// OpenSession handles POST /library/session. Fetches the full media
// list from the backend and resets selection to the caller's attached
// set.
func (h *Handler) OpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	media, err := h.picker.Open(r.Context(), req.AttachedIDs, Mode(req.Mode))
	if err != nil {
		response.BadGateway(w, err.Error())
		return
	}

	response.OK(w, SessionResponse{Media: media, Selected: h.picker.Selected()})
}

// Toggle handles POST /library/session/toggle.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errs := validator.Validate(&req); errs != nil {
		response.ValidationError(w, errs)
		return
	}

	if err := h.picker.Toggle(req.MediaID); err != nil {
		h.writePickerError(w, err)
		return
	}
	response.OK(w, map[string][]int64{"selected": h.picker.Selected()})
}

// Confirm handles POST /library/session/confirm. Returns only items
// newly selected relative to the attached set and ends the session.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	added, err := h.picker.Confirm()
	if err != nil {
		h.writePickerError(w, err)
		return
	}
	response.OK(w, ConfirmResponse{Added: added})
}

// CloseSession handles DELETE /library/session. Discards all local
// selection changes.
func (h *Handler) CloseSession(w http.ResponseWriter, _ *http.Request) {
	h.picker.Close()
	response.NoContent(w)
}

// UpdateThumbnail handles PATCH /media/{id}/thumbnail, proxying the
// replacement image straight to the backend.
func (h *Handler) UpdateThumbnail(w http.ResponseWriter, r *http.Request) {
	mediaID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || mediaID <= 0 {
		response.BadRequest(w, "Invalid media ID")
		return
	}

	file, header, err := r.FormFile("thumbnail")
	if err != nil {
		response.BadRequest(w, "Missing thumbnail file")
		return
	}
	defer file.Close()

	if header.Size > maxThumbnailSize {
		response.Error(w, http.StatusRequestEntityTooLarge, "FILE_TOO_LARGE", "thumbnail too large")
		return
	}

	blob, err := io.ReadAll(file)
	if err != nil {
		response.InternalError(w)
		return
	}

	res := h.client.UpdateMediaThumbnail(r.Context(), mediaID, backend.FilePart{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        blob,
	})
	if !res.OK || res.Data == nil {
		response.BadGateway(w, res.Message)
		return
	}
	response.OK(w, res.Data)
}

func (h *Handler) writePickerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotOpen):
		response.Conflict(w, "No picker session is open")
	case errors.Is(err, ErrUnknownMedia):
		response.NotFound(w, "Media item not found")
	default:
		response.InternalError(w)
	}
}
