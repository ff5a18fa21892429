package staging

import (
	"context"
	"errors"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/foliokit/media-agent/internal/pkg/backend"
	"github.com/foliokit/media-agent/internal/pkg/preview"
)

// Generator produces thumbnail blobs for staged files.
type Generator interface {
	GenerateImage(path string) ([]byte, error)
	GenerateVideo(ctx context.Context, path string) ([]byte, error)
}

// InFlightCounter reports how many uploads are currently in flight.
// Staging capacity is shared between staged entries and active uploads.
type InFlightCounter func() int

// Queue buffers files between user selection and upload commitment.
// All state is mutated only through queue methods under the queue's
// lock; async generation results are applied against current state and
// discarded when the originating entry no longer exists.
type Queue struct {
	mu       sync.Mutex
	entries  []*StagedFile
	gen      Generator
	previews *preview.Store
	maxFiles int
	inFlight InFlightCounter
	cleanup  func(path string)
}

// NewQueue creates a staging queue. cleanup, when non-nil, runs for
// each entry's file path after the entry is discarded without being
// committed; committed entries hand their file on to the uploader.
func NewQueue(gen Generator, previews *preview.Store, maxFiles int, inFlight InFlightCounter, cleanup func(string)) *Queue {
	if maxFiles <= 0 {
		maxFiles = 10
	}
	if inFlight == nil {
		inFlight = func() int { return 0 }
	}
	return &Queue{
		gen:      gen,
		previews: previews,
		maxFiles: maxFiles,
		inFlight: inFlight,
		cleanup:  cleanup,
	}
}

// AddFiles stages new files and starts asynchronous thumbnail
// generation for each. Files beyond the remaining capacity are
// silently dropped; files that cannot be read are skipped. Returns
// the accepted entries.
func (q *Queue) AddFiles(paths []string) []*StagedFile {
	q.mu.Lock()
	defer q.mu.Unlock()

	capacity := q.maxFiles - len(q.entries) - q.inFlight()
	accepted := make([]*StagedFile, 0, len(paths))

	for _, p := range paths {
		if len(accepted) >= capacity {
			break
		}
		if q.find(p) != nil {
			continue // already staged
		}

		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			log.Warn().Str("path", p).Msg("Skipping unreadable staged file")
			continue
		}

		mimeType := detectMIME(p)
		entry := &StagedFile{
			Path:            p,
			Name:            filepath.Base(p),
			Size:            info.Size(),
			MIMEType:        mimeType,
			Alt:             defaultAlt(p),
			MediaType:       backend.ParseMediaType(mimeType),
			ThumbGenerating: true,
		}

		q.entries = append(q.entries, entry)
		accepted = append(accepted, entry)

		go q.generate(entry.Path, entry.MediaType)
	}

	return accepted
}

// generate runs thumbnail generation off the queue's lock and applies
// the result against current state.
func (q *Queue) generate(path string, mediaType backend.MediaType) {
	var blob []byte
	var err error

	switch mediaType {
	case backend.MediaTypeImage:
		blob, err = q.gen.GenerateImage(path)
	case backend.MediaTypeVideo:
		blob, err = q.gen.GenerateVideo(context.Background(), path)
	default:
		err = errors.New("no thumbnail for unclassified media type")
	}

	q.applyGenerated(path, blob, err)
}

// applyGenerated records a generation result. A late result for a file
// that has since been removed is discarded; it never resurrects the
// entry. Generation failure leaves the entry thumbnail-less but staged.
func (q *Queue) applyGenerated(path string, blob []byte, genErr error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := q.find(path)
	if entry == nil {
		return
	}

	entry.ThumbGenerating = false
	if genErr != nil {
		log.Warn().Err(genErr).Str("path", path).Msg("Thumbnail generation failed")
		return
	}

	entry.ThumbBlob = blob
	handle, err := q.previews.Add(blob)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Failed to store thumbnail preview")
		return
	}
	entry.ThumbPreview = handle
}

// Remove discards a staged file, revokes its preview handles and
// cleans up the file. Never errors, even mid-generation.
func (q *Queue) Remove(path string) {
	q.mu.Lock()
	removed := false
	for i, e := range q.entries {
		if e.Path == path {
			q.revokePreviews(e)
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			removed = true
			break
		}
	}
	q.mu.Unlock()

	if removed && q.cleanup != nil {
		q.cleanup(path)
	}
}

// SetCustomThumbnail stores a user-supplied thumbnail override,
// revoking the previous custom preview if any.
func (q *Queue) SetCustomThumbnail(path, name string, blob []byte) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := q.find(path)
	if entry == nil {
		return ErrNotStaged
	}

	q.previews.Revoke(entry.CustomThumbPreview)
	entry.CustomThumbName = name
	entry.CustomThumbBlob = blob
	entry.CustomThumbPreview = ""

	handle, err := q.previews.Add(blob)
	if err != nil {
		return err
	}
	entry.CustomThumbPreview = handle
	return nil
}

// ClearCustomThumbnail removes the override, reverting display to the
// generated thumbnail if one exists.
func (q *Queue) ClearCustomThumbnail(path string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := q.find(path)
	if entry == nil {
		return ErrNotStaged
	}

	q.previews.Revoke(entry.CustomThumbPreview)
	entry.CustomThumbName = ""
	entry.CustomThumbBlob = nil
	entry.CustomThumbPreview = ""
	return nil
}

// SetAlt updates the alt text for a staged file.
func (q *Queue) SetAlt(path, alt string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry := q.find(path)
	if entry == nil {
		return ErrNotStaged
	}
	entry.Alt = alt
	return nil
}

// ClearAll revokes every owned preview handle, empties the queue and
// cleans up the discarded files.
func (q *Queue) ClearAll() {
	q.mu.Lock()
	paths := make([]string, 0, len(q.entries))
	for _, e := range q.entries {
		q.revokePreviews(e)
		paths = append(paths, e.Path)
	}
	q.entries = nil
	q.mu.Unlock()

	if q.cleanup != nil {
		for _, p := range paths {
			q.cleanup(p)
		}
	}
}

// Commit atomically drains the current staging list and clears it. The
// drained entries keep their thumbnail blobs but their preview handles
// are revoked; anything downstream mints its own. A second commit
// arriving mid-drain operates on an empty list.
func (q *Queue) Commit() []*StagedFile {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.entries
	q.entries = nil

	for _, e := range drained {
		q.revokePreviews(e)
	}
	return drained
}

// Generating reports whether any entry's thumbnail is still being
// generated. Commit should be refused while this is true so the user
// keeps the chance to override.
func (q *Queue) Generating() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, e := range q.entries {
		if e.ThumbGenerating {
			return true
		}
	}
	return false
}

// List returns a snapshot of the staged entries in insertion order.
func (q *Queue) List() []StagedFile {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]StagedFile, len(q.entries))
	for i, e := range q.entries {
		out[i] = *e
	}
	return out
}

// Len reports the number of staged entries.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// find must be called with the lock held.
func (q *Queue) find(path string) *StagedFile {
	for _, e := range q.entries {
		if e.Path == path {
			return e
		}
	}
	return nil
}

// revokePreviews must be called with the lock held.
func (q *Queue) revokePreviews(e *StagedFile) {
	q.previews.Revoke(e.ThumbPreview)
	q.previews.Revoke(e.CustomThumbPreview)
	e.ThumbPreview = ""
	e.CustomThumbPreview = ""
}

// detectMIME resolves a file's MIME type from its extension, falling
// back to content sniffing for unknown extensions.
func detectMIME(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt := mime.TypeByExtension(ext); mt != "" {
		if idx := strings.Index(mt, ";"); idx != -1 {
			mt = strings.TrimSpace(mt[:idx])
		}
		return mt
	}

	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()

	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	mt := http.DetectContentType(buf[:n])
	if idx := strings.Index(mt, ";"); idx != -1 {
		mt = strings.TrimSpace(mt[:idx])
	}
	return mt
}
