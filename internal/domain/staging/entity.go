package staging

import (
	"path/filepath"
	"strings"

	"github.com/foliokit/media-agent/internal/pkg/backend"
	"github.com/foliokit/media-agent/internal/pkg/thumbnail"
)

// StagedFile is a file chosen by the user but not yet committed to
// upload. Identity is the absolute file path; the raw file metadata is
// immutable once staged and the media type is derived exactly once.
type StagedFile struct {
	Path     string
	Name     string
	Size     int64
	MIMEType string
	Alt      string

	MediaType backend.MediaType

	// Generated thumbnail. Absent until generation resolves.
	ThumbBlob    []byte
	ThumbPreview string // live preview handle, revoked when superseded or discarded

	// User-supplied override. Takes priority over the generated
	// thumbnail for both display and upload.
	CustomThumbName    string
	CustomThumbBlob    []byte
	CustomThumbPreview string

	// True from staging until generation resolves, success or
	// failure. Never re-enters true for the same file.
	ThumbGenerating bool
}

// ActiveThumbnail returns the thumbnail that should be displayed and
// uploaded: custom when set, otherwise generated, otherwise none.
func (f *StagedFile) ActiveThumbnail() (name string, blob []byte, ok bool) {
	if f.CustomThumbBlob != nil {
		return f.CustomThumbName, f.CustomThumbBlob, true
	}
	if f.ThumbBlob != nil {
		return thumbNameFor(f.Name), f.ThumbBlob, true
	}
	return "", nil, false
}

// ActivePreview returns the live preview handle for the active thumbnail.
func (f *StagedFile) ActivePreview() string {
	if f.CustomThumbPreview != "" {
		return f.CustomThumbPreview
	}
	return f.ThumbPreview
}

func thumbNameFor(name string) string {
	return thumbnail.FileName(name)
}

func defaultAlt(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
