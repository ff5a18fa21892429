package uploads

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/foliokit/media-agent/internal/domain/staging"
	"github.com/foliokit/media-agent/internal/pkg/backend"
	"github.com/foliokit/media-agent/internal/pkg/preview"
)

// SuccessFunc receives each backend-confirmed media record exactly
// once, immediately upon success. The caller owns the record from that
// point on.
type SuccessFunc func(backend.Media)

// Options configures the upload queue.
type Options struct {
	DismissAfter time.Duration // how long successful rows stay visible
	MaxImageSize int64
	MaxVideoSize int64

	// Cleanup runs for each entry's file path after the entry is
	// dismissed. Used to delete spooled copies the agent created.
	Cleanup func(path string)
}

// Queue tracks in-flight, completed and failed upload attempts,
// independent of the staging queue that fed it. Uploads run
// concurrently and settle independently; one file's failure never
// blocks its siblings. Retry is always user-initiated.
type Queue struct {
	mu         sync.Mutex
	entries    []*UploadStatus
	transport  Transport
	previews   *preview.Store
	onSuccess  SuccessFunc
	opts       Options
	attemptSeq uint64
}

// NewQueue creates an upload queue.
func NewQueue(transport Transport, previews *preview.Store, opts Options, onSuccess SuccessFunc) *Queue {
	if opts.DismissAfter <= 0 {
		opts.DismissAfter = 3 * time.Second
	}
	return &Queue{
		transport: transport,
		previews:  previews,
		onSuccess: onSuccess,
		opts:      opts,
	}
}

// StartAll promotes a batch of drained staged entries into uploads.
func (q *Queue) StartAll(files []*staging.StagedFile) {
	for _, f := range files {
		q.Start(f)
	}
}

// Start creates an upload entry for a staged file and begins the
// transfer. Validation failures (unclassified type, oversized file)
// surface immediately as an error entry without ever entering
// uploading. The resolved thumbnail is fixed here: custom overrides
// generated.
func (q *Queue) Start(f *staging.StagedFile) {
	entry := &UploadStatus{
		Path:      f.Path,
		Name:      f.Name,
		Size:      f.Size,
		MIMEType:  f.MIMEType,
		Alt:       f.Alt,
		MediaType: f.MediaType,
	}
	if name, blob, ok := f.ActiveThumbnail(); ok {
		entry.ThumbName = name
		entry.ThumbBlob = blob
	}

	q.mu.Lock()
	// A re-staged file replaces its previous upload row. The file
	// itself stays; the new attempt is about to use it.
	q.remove(entry.Path, 0)

	if msg := q.validate(entry); msg != "" {
		entry.Status = StatusError
		entry.Error = msg
		q.entries = append(q.entries, entry)
		q.mu.Unlock()
		return
	}

	entry.Status = StatusUploading
	if entry.ThumbBlob != nil {
		if handle, err := q.previews.Add(entry.ThumbBlob); err == nil {
			entry.Preview = handle
		}
	}
	q.attemptSeq++
	entry.attempt = q.attemptSeq
	q.entries = append(q.entries, entry)
	token := entry.attempt
	a := q.attemptFor(entry)
	q.mu.Unlock()

	go q.run(entry.Path, token, a)
}

// validate enforces pre-network checks. Returns a human-readable
// message, or "" when the entry may upload.
func (q *Queue) validate(e *UploadStatus) string {
	switch e.MediaType {
	case backend.MediaTypeImage:
		if q.opts.MaxImageSize > 0 && e.Size > q.opts.MaxImageSize {
			return fmt.Sprintf("image exceeds maximum size of %d bytes", q.opts.MaxImageSize)
		}
	case backend.MediaTypeVideo:
		if q.opts.MaxVideoSize > 0 && e.Size > q.opts.MaxVideoSize {
			return fmt.Sprintf("video exceeds maximum size of %d bytes", q.opts.MaxVideoSize)
		}
	default:
		return "unsupported file type: " + e.MIMEType
	}
	return ""
}

func (q *Queue) attemptFor(e *UploadStatus) Attempt {
	return Attempt{
		Path:      e.Path,
		Name:      e.Name,
		MIMEType:  e.MIMEType,
		Alt:       e.Alt,
		MediaType: e.MediaType,
		ThumbName: e.ThumbName,
		ThumbBlob: e.ThumbBlob,
	}
}

// run executes one attempt and settles the entry. The result only
// lands when the entry still exists, is still uploading, and still
// belongs to this attempt; a superseded or dismissed attempt's result
// is discarded.
func (q *Queue) run(path string, token uint64, a Attempt) {
	media, err := q.transport.Upload(context.Background(), a, func(p int) {
		q.setProgress(path, token, p)
	})

	q.mu.Lock()
	entry := q.find(path)
	if entry == nil || entry.attempt != token || entry.Status != StatusUploading {
		q.mu.Unlock()
		return
	}

	if err != nil {
		entry.Status = StatusError
		entry.Error = err.Error()
		q.mu.Unlock()
		log.Warn().Err(err).Str("path", path).Msg("Upload failed")
		return
	}

	entry.Status = StatusSuccess
	entry.Progress = 100
	entry.Media = media
	onSuccess := q.onSuccess
	q.mu.Unlock()

	log.Info().Str("path", path).Int64("media_id", media.ID).Msg("Upload confirmed")

	if onSuccess != nil {
		onSuccess(*media)
	}

	// Successful rows self-dismiss after a short display delay. The
	// token keeps a restaged entry for the same path alive.
	time.AfterFunc(q.opts.DismissAfter, func() {
		q.dismissAttempt(path, token)
	})
}

// setProgress applies a phase milestone. Progress is monotonic within
// an attempt and ignored once the attempt was superseded, settled, or
// dismissed.
func (q *Queue) setProgress(path string, token uint64, p int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := q.find(path)
	if entry == nil || entry.attempt != token || entry.Status != StatusUploading {
		return
	}
	if p > entry.Progress {
		entry.Progress = p
	}
}

// Retry restarts a failed upload with the same media type and
// thumbnail choice, without re-running thumbnail generation. Only
// entries at error may retry.
func (q *Queue) Retry(path string) error {
	q.mu.Lock()

	entry := q.find(path)
	if entry == nil {
		q.mu.Unlock()
		return ErrNotFound
	}
	if entry.Status != StatusError {
		q.mu.Unlock()
		return ErrNotRetryable
	}

	entry.Status = StatusUploading
	entry.Progress = 0
	entry.Error = ""
	q.attemptSeq++
	entry.attempt = q.attemptSeq
	token := entry.attempt
	a := q.attemptFor(entry)
	q.mu.Unlock()

	go q.run(path, token, a)
	return nil
}

// Dismiss removes an entry regardless of status, revokes its preview
// handle and cleans up the entry's file. Dismissing an unknown path
// is a no-op.
func (q *Queue) Dismiss(path string) {
	q.mu.Lock()
	removed := q.remove(path, 0)
	q.mu.Unlock()

	if removed && q.opts.Cleanup != nil {
		q.opts.Cleanup(path)
	}
}

// dismissAttempt removes an entry only if it still belongs to the
// given attempt, so a delayed auto-dismiss never takes out a restaged
// entry for the same path.
func (q *Queue) dismissAttempt(path string, token uint64) {
	q.mu.Lock()
	removed := q.remove(path, token)
	q.mu.Unlock()

	if removed && q.opts.Cleanup != nil {
		q.opts.Cleanup(path)
	}
}

// remove must be called with the lock held. A zero token matches any
// attempt.
func (q *Queue) remove(path string, token uint64) bool {
	for i, e := range q.entries {
		if e.Path != path {
			continue
		}
		if token != 0 && e.attempt != token {
			return false
		}
		q.previews.Revoke(e.Preview)
		q.entries = append(q.entries[:i], q.entries[i+1:]...)
		return true
	}
	return false
}

// InFlight reports the number of uploads currently transferring. The
// staging queue counts these against its capacity.
func (q *Queue) InFlight() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := 0
	for _, e := range q.entries {
		if e.Status == StatusUploading {
			n++
		}
	}
	return n
}

// List returns a snapshot of upload entries in start order.
func (q *Queue) List() []UploadStatus {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]UploadStatus, len(q.entries))
	for i, e := range q.entries {
		out[i] = *e
	}
	return out
}

// find must be called with the lock held.
func (q *Queue) find(path string) *UploadStatus {
	for _, e := range q.entries {
		if e.Path == path {
			return e
		}
	}
	return nil
}
