// Package preview manages short-lived preview blobs for staged and
// in-flight media. Each blob gets exactly one revocable handle; the
// handle is released exactly once, when the owning entry is removed,
// superseded, or the session ends.
package preview

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrClosed = errors.New("preview store is closed")

// Store writes preview blobs to a managed directory and hands out
// revocable handles. Revoking an unknown or already-revoked handle
// is a no-op.
type Store struct {
	mu      sync.Mutex
	dir     string
	handles map[string]string // handle -> file path
	closed  bool
}

// NewStore creates a preview store rooted at dir. An empty dir uses a
// fresh temporary directory.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "media-previews-*")
		if err != nil {
			return nil, err
		}
		dir = tmp
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	return &Store{
		dir:     dir,
		handles: make(map[string]string),
	}, nil
}

// Add stores a blob and returns its handle. The caller owns revocation.
func (s *Store) Add(blob []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}

	handle := uuid.New().String() + blobExt(blob)
	path := filepath.Join(s.dir, handle)
	if err := os.WriteFile(path, blob, 0o644); err != nil {
		return "", err
	}
	s.handles[handle] = path
	return handle, nil
}

// blobExt picks the handle extension from the blob's sniffed type, so
// http.ServeFile sends the right Content-Type for user-supplied
// thumbnails that are not JPEG.
func blobExt(blob []byte) string {
	switch http.DetectContentType(blob) {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// Revoke releases a handle and deletes its blob. Safe to call with a
// handle that was never issued or was revoked before.
func (s *Store) Revoke(handle string) {
	if handle == "" {
		return
	}

	s.mu.Lock()
	path, ok := s.handles[handle]
	if ok {
		delete(s.handles, handle)
	}
	s.mu.Unlock()

	if !ok {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Str("handle", handle).Msg("Failed to remove preview blob")
	}
}

// Path resolves a live handle to its file path for serving.
func (s *Store) Path(handle string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.handles[handle]
	return path, ok
}

// Len reports the number of live handles.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Close revokes every live handle and rejects further Adds.
func (s *Store) Close() {
	s.mu.Lock()
	paths := make([]string, 0, len(s.handles))
	for _, p := range s.handles {
		paths = append(paths, p)
	}
	s.handles = make(map[string]string)
	s.closed = true
	s.mu.Unlock()

	for _, p := range paths {
		_ = os.Remove(p)
	}
}
