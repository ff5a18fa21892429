package backend

import "strings"

// MediaType classifies a file by its MIME class. Derived once at staging
// time and carried through the pipeline unchanged.
type MediaType string

const (
	MediaTypeImage   MediaType = "image"
	MediaTypeVideo   MediaType = "video"
	MediaTypeUnknown MediaType = ""
)

// ParseMediaType derives the media type from a MIME type string.
func ParseMediaType(mimeType string) MediaType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return MediaTypeImage
	case strings.HasPrefix(mimeType, "video/"):
		return MediaTypeVideo
	default:
		return MediaTypeUnknown
	}
}

// Media is the backend's durable representation of an uploaded file.
// Immutable from the agent's perspective once returned.
type Media struct {
	ID           int64     `json:"id"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	MediaType    MediaType `json:"media_type"`
	Alt          string    `json:"alt"`
	Caption      string    `json:"caption"`
	IsFeatured   bool      `json:"is_featured,omitempty"`
}

// PresignData is the backend's answer to a presigned-upload request:
// a time-limited direct PUT target plus the eventual public URL.
type PresignData struct {
	UploadURL string `json:"upload_url"`
	PublicURL string `json:"public_url"`
}

// ThumbnailUpdate is the result of an out-of-band thumbnail replacement.
type ThumbnailUpdate struct {
	ThumbnailURL string `json:"thumbnail_url"`
}
