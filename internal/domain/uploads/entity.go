package uploads

import (
	"github.com/foliokit/media-agent/internal/pkg/backend"
)

// Status represents the upload lifecycle status.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// UploadStatus tracks a single file promoted from staging into the
// transfer pipeline. Identity carries over from the staged entry: the
// file path correlates the two, no synthetic ID exists until the
// backend assigns one.
type UploadStatus struct {
	Path      string
	Name      string
	Size      int64
	MIMEType  string
	Alt       string
	MediaType backend.MediaType

	// Resolved thumbnail choice, fixed at start time. Custom
	// overrides generated; retries reuse this without regenerating.
	ThumbName string
	ThumbBlob []byte
	Preview   string // live preview handle for the upload row

	Status Status
	// Progress is a coarse, phase-based percentage, monotonically
	// non-decreasing within an attempt and reset per retry.
	Progress int
	// Error is set iff Status == StatusError; cleared on retry.
	Error string

	// Media is the backend-confirmed record, set iff Status == StatusSuccess.
	Media *backend.Media

	// attempt correlates async results with the exact attempt that
	// produced them. Restage and retry issue a new token, so a result
	// from a superseded attempt never settles the current entry.
	attempt uint64
}
