package uploads

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/foliokit/media-agent/internal/pkg/backend"
)

// Attempt carries everything one upload attempt needs. Retries rebuild
// an identical Attempt from the entry, so the media type and thumbnail
// choice survive without re-running generation.
type Attempt struct {
	Path      string
	Name      string
	MIMEType  string
	Alt       string
	MediaType backend.MediaType
	ThumbName string
	ThumbBlob []byte
}

// Transport moves a confirmed file's bytes to durable storage and
// registers a media record, choosing the strategy by media type.
type Transport interface {
	Upload(ctx context.Context, a Attempt, progress func(int)) (*backend.Media, error)
}

// BackendTransport implements both transfer strategies against the
// portfolio backend: direct multipart for images, presigned PUT plus
// confirmation for videos.
type BackendTransport struct {
	client *backend.Client
}

// NewBackendTransport creates the production transport.
func NewBackendTransport(client *backend.Client) *BackendTransport {
	return &BackendTransport{client: client}
}

// Upload runs one all-or-nothing transfer attempt. Progress is coarse
// and phase-based: 20 on phase start, 80 after the heavy transfer
// phase; the queue sets 100 on confirmed success.
func (t *BackendTransport) Upload(ctx context.Context, a Attempt, progress func(int)) (*backend.Media, error) {
	switch a.MediaType {
	case backend.MediaTypeImage:
		return t.uploadImage(ctx, a, progress)
	case backend.MediaTypeVideo:
		return t.uploadVideo(ctx, a, progress)
	default:
		return nil, errors.New("unsupported media type")
	}
}

// uploadImage sends the file in a single multipart request. Images are
// small enough that routing through the backend saves a round trip.
func (t *BackendTransport) uploadImage(ctx context.Context, a Attempt, progress func(int)) (*backend.Media, error) {
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	progress(20)

	req := backend.MediaUploadRequest{
		File: backend.FilePart{
			Name:        a.Name,
			ContentType: a.MIMEType,
			Data:        data,
		},
		Alt: a.Alt,
	}
	if a.ThumbBlob != nil {
		req.Thumbnail = &backend.FilePart{
			Name:        a.ThumbName,
			ContentType: "image/jpeg",
			Data:        a.ThumbBlob,
		}
	}

	res := t.client.UploadMediaFile(ctx, req)
	if !res.OK || res.Data == nil {
		return nil, errors.New(failMessage(res.Message, "image upload rejected"))
	}
	progress(80)

	return res.Data, nil
}

// uploadVideo runs the two-phase large-file path: presign, direct PUT
// to storage, then confirmation. A failed PUT never reaches the
// confirmation call; a failed confirmation after a successful PUT is a
// failed upload, the orphaned storage object is accepted and a retry
// re-runs both phases.
func (t *BackendTransport) uploadVideo(ctx context.Context, a Attempt, progress func(int)) (*backend.Media, error) {
	presign := t.client.GetPresignedURL(ctx, backend.PresignRequest{
		Filename:    a.Name,
		ContentType: a.MIMEType,
		FileSize:    fileSize(a.Path),
	})
	if !presign.OK || presign.Data == nil {
		return nil, errors.New(failMessage(presign.Message, "failed to get upload target"))
	}
	progress(20)

	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := t.client.PutFile(ctx, presign.Data.UploadURL, data, a.MIMEType); err != nil {
		return nil, err
	}
	progress(80)

	req := backend.ConfirmRequest{
		VideoURL: presign.Data.PublicURL,
		Alt:      a.Alt,
	}
	if a.ThumbBlob != nil {
		req.Thumbnail = &backend.FilePart{
			Name:        a.ThumbName,
			ContentType: "image/jpeg",
			Data:        a.ThumbBlob,
		}
	}

	confirm := t.client.ConfirmPresignedUpload(ctx, req)
	if !confirm.OK || confirm.Data == nil {
		return nil, errors.New(failMessage(confirm.Message, "upload confirmation rejected"))
	}

	return confirm.Data, nil
}

func failMessage(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
