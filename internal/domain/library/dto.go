package library

import "github.com/foliokit/media-agent/internal/pkg/backend"

// OpenRequest starts a picker session from the caller's currently
// attached media set.
type OpenRequest struct {
	AttachedIDs []int64 `json:"attached_ids"`
	Mode        string  `json:"mode" validate:"omitempty,select_mode"`
}

// FilterRequest narrows the session's media list locally.
type FilterRequest struct {
	Search string `json:"search"`
	Type   string `json:"type" validate:"omitempty,media_filter"`
}

// ToggleRequest flips one item's selection.
type ToggleRequest struct {
	MediaID int64 `json:"media_id" validate:"required"`
}

// SessionResponse is the wire shape of a picker session's media list.
type SessionResponse struct {
	Media    []backend.Media `json:"media"`
	Selected []int64         `json:"selected"`
}

// ConfirmResponse carries the newly selected items.
type ConfirmResponse struct {
	Added []backend.Media `json:"added"`
}
