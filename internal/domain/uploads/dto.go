package uploads

import "github.com/foliokit/media-agent/internal/pkg/backend"

// FileRequest targets a single upload entry by path.
type FileRequest struct {
	Path string `json:"path" validate:"required"`
}

// StatusResponse is the wire shape of one upload entry.
type StatusResponse struct {
	Path       string         `json:"path"`
	Name       string         `json:"name"`
	Size       int64          `json:"size"`
	MediaType  string         `json:"media_type"`
	Status     string         `json:"status"`
	Progress   int            `json:"progress"`
	Error      string         `json:"error,omitempty"`
	PreviewURL string         `json:"preview_url,omitempty"`
	Media      *backend.Media `json:"media,omitempty"`
}

// ListResponse is the wire shape of the upload queue.
type ListResponse struct {
	Uploads  []StatusResponse `json:"uploads"`
	InFlight int              `json:"in_flight"`
}

func toStatusResponse(e UploadStatus) StatusResponse {
	previewURL := ""
	if e.Preview != "" {
		previewURL = "/previews/" + e.Preview
	}
	return StatusResponse{
		Path:       e.Path,
		Name:       e.Name,
		Size:       e.Size,
		MediaType:  string(e.MediaType),
		Status:     string(e.Status),
		Progress:   e.Progress,
		Error:      e.Error,
		PreviewURL: previewURL,
		Media:      e.Media,
	}
}

func toListResponse(entries []UploadStatus, inFlight int) ListResponse {
	out := ListResponse{Uploads: make([]StatusResponse, 0, len(entries)), InFlight: inFlight}
	for _, e := range entries {
		out.Uploads = append(out.Uploads, toStatusResponse(e))
	}
	return out
}
