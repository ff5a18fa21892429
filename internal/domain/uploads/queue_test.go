package uploads

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/foliokit/media-agent/internal/domain/staging"
	"github.com/foliokit/media-agent/internal/pkg/backend"
	"github.com/foliokit/media-agent/internal/pkg/preview"
)

// fakeTransport scripts upload outcomes per path and records attempts.
type fakeTransport struct {
	mu       sync.Mutex
	media    *backend.Media
	err      error
	gate     chan struct{} // when set, Upload blocks until closed
	attempts []Attempt
}

func (f *fakeTransport) Upload(_ context.Context, a Attempt, progress func(int)) (*backend.Media, error) {
	f.mu.Lock()
	f.attempts = append(f.attempts, a)
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	progress(20)
	progress(80)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return f.media, nil
}

func (f *fakeTransport) attemptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attempts)
}

func (f *fakeTransport) lastAttempt() Attempt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[len(f.attempts)-1]
}

func newTestPreviews(t *testing.T) *preview.Store {
	t.Helper()
	s, err := preview.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func stagedImage(path string) *staging.StagedFile {
	return &staging.StagedFile{
		Path:      path,
		Name:      "photo.jpg",
		Size:      1024,
		MIMEType:  "image/jpeg",
		Alt:       "photo",
		MediaType: backend.MediaTypeImage,
		ThumbBlob: []byte("thumb"),
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}

func statusOf(q *Queue, path string) (UploadStatus, bool) {
	for _, e := range q.List() {
		if e.Path == path {
			return e, true
		}
	}
	return UploadStatus{}, false
}

func TestStart(t *testing.T) {
	t.Run("successful upload reports media once and self-dismisses", func(t *testing.T) {
		media := &backend.Media{ID: 42, URL: "https://cdn/photo.jpg", MediaType: backend.MediaTypeImage}
		transport := &fakeTransport{media: media}

		var reported int32
		q := NewQueue(transport, newTestPreviews(t),
			Options{DismissAfter: 200 * time.Millisecond, MaxImageSize: 1 << 20, MaxVideoSize: 1 << 20},
			func(m backend.Media) {
				atomic.AddInt32(&reported, 1)
				if m.ID != 42 {
					t.Errorf("expected media 42, got %d", m.ID)
				}
			})

		q.Start(stagedImage("/tmp/photo.jpg"))

		waitFor(t, func() bool {
			e, ok := statusOf(q, "/tmp/photo.jpg")
			return ok && e.Status == StatusSuccess
		})
		e, _ := statusOf(q, "/tmp/photo.jpg")
		if e.Progress != 100 {
			t.Fatalf("expected progress 100, got %d", e.Progress)
		}
		if e.Media == nil || e.Media.ID != 42 {
			t.Fatal("expected media record on success")
		}

		// Successful rows disappear after the display delay.
		waitFor(t, func() bool {
			_, ok := statusOf(q, "/tmp/photo.jpg")
			return !ok
		})
		if n := atomic.LoadInt32(&reported); n != 1 {
			t.Fatalf("expected exactly one success report, got %d", n)
		}
	})

	t.Run("failed upload stays visible with message", func(t *testing.T) {
		transport := &fakeTransport{err: errors.New("backend rejected")}
		q := NewQueue(transport, newTestPreviews(t), Options{DismissAfter: 10 * time.Millisecond}, nil)

		q.Start(stagedImage("/tmp/photo.jpg"))

		waitFor(t, func() bool {
			e, ok := statusOf(q, "/tmp/photo.jpg")
			return ok && e.Status == StatusError
		})
		e, _ := statusOf(q, "/tmp/photo.jpg")
		if e.Error != "backend rejected" {
			t.Fatalf("unexpected error message: %q", e.Error)
		}

		// Error rows never self-dismiss.
		time.Sleep(30 * time.Millisecond)
		if _, ok := statusOf(q, "/tmp/photo.jpg"); !ok {
			t.Fatal("error entry must persist until dismissed")
		}
	})

	t.Run("oversized file fails before any network attempt", func(t *testing.T) {
		transport := &fakeTransport{}
		q := NewQueue(transport, newTestPreviews(t), Options{MaxImageSize: 100}, nil)

		f := stagedImage("/tmp/huge.jpg")
		f.Size = 200
		q.Start(f)

		e, ok := statusOf(q, "/tmp/huge.jpg")
		if !ok || e.Status != StatusError {
			t.Fatal("expected immediate error entry")
		}
		if transport.attemptCount() != 0 {
			t.Fatal("validation failures must not reach the transport")
		}
	})

	t.Run("unclassified type fails before any network attempt", func(t *testing.T) {
		transport := &fakeTransport{}
		q := NewQueue(transport, newTestPreviews(t), Options{}, nil)

		f := stagedImage("/tmp/doc.pdf")
		f.MIMEType = "application/pdf"
		f.MediaType = backend.MediaTypeUnknown
		q.Start(f)

		e, _ := statusOf(q, "/tmp/doc.pdf")
		if e.Status != StatusError {
			t.Fatalf("expected error status, got %q", e.Status)
		}
		if transport.attemptCount() != 0 {
			t.Fatal("validation failures must not reach the transport")
		}
	})

	t.Run("restaged path replaces previous entry", func(t *testing.T) {
		transport := &fakeTransport{err: errors.New("boom")}
		previews := newTestPreviews(t)
		q := NewQueue(transport, previews, Options{MaxImageSize: 1 << 20}, nil)

		q.Start(stagedImage("/tmp/photo.jpg"))
		waitFor(t, func() bool {
			e, _ := statusOf(q, "/tmp/photo.jpg")
			return e.Status == StatusError
		})

		transport.mu.Lock()
		transport.err = nil
		transport.media = &backend.Media{ID: 1}
		transport.mu.Unlock()

		q.Start(stagedImage("/tmp/photo.jpg"))
		if len(q.List()) != 1 {
			t.Fatalf("expected single entry per path, got %d", len(q.List()))
		}
		waitFor(t, func() bool {
			e, ok := statusOf(q, "/tmp/photo.jpg")
			return !ok || (ok && e.Status == StatusSuccess)
		})
	})
}

// scriptedTransport hands each Upload call to the test, which settles
// it explicitly. This pins down interleavings of concurrent attempts.
type scriptedTransport struct {
	calls chan *scriptedCall
}

type scriptedCall struct {
	attempt Attempt
	done    chan scriptedResult
}

type scriptedResult struct {
	media *backend.Media
	err   error
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{calls: make(chan *scriptedCall, 8)}
}

func (s *scriptedTransport) Upload(_ context.Context, a Attempt, _ func(int)) (*backend.Media, error) {
	c := &scriptedCall{attempt: a, done: make(chan scriptedResult)}
	s.calls <- c
	r := <-c.done
	return r.media, r.err
}

func TestSupersededAttempt(t *testing.T) {
	t.Run("stale failure never settles the replacement entry", func(t *testing.T) {
		transport := newScriptedTransport()
		var reported int32
		q := NewQueue(transport, newTestPreviews(t),
			Options{DismissAfter: time.Minute, MaxImageSize: 1 << 20},
			func(backend.Media) { atomic.AddInt32(&reported, 1) })

		q.Start(stagedImage("/tmp/photo.jpg"))
		first := <-transport.calls

		// Same path staged and committed again while the first
		// attempt is still transferring.
		q.Start(stagedImage("/tmp/photo.jpg"))
		second := <-transport.calls

		first.done <- scriptedResult{err: errors.New("stale failure")}
		time.Sleep(50 * time.Millisecond)

		e, ok := statusOf(q, "/tmp/photo.jpg")
		if !ok || e.Status != StatusUploading {
			t.Fatalf("stale result must not settle the replacement, got %q %q", e.Status, e.Error)
		}

		second.done <- scriptedResult{media: &backend.Media{ID: 11}}
		waitFor(t, func() bool {
			e, ok := statusOf(q, "/tmp/photo.jpg")
			return ok && e.Status == StatusSuccess
		})
		e, _ = statusOf(q, "/tmp/photo.jpg")
		if e.Media == nil || e.Media.ID != 11 {
			t.Fatal("replacement entry must keep its own result")
		}
		if n := atomic.LoadInt32(&reported); n != 1 {
			t.Fatalf("expected exactly one success report, got %d", n)
		}
	})

	t.Run("stale success is discarded entirely", func(t *testing.T) {
		transport := newScriptedTransport()
		var reported int32
		q := NewQueue(transport, newTestPreviews(t),
			Options{DismissAfter: time.Minute, MaxImageSize: 1 << 20},
			func(backend.Media) { atomic.AddInt32(&reported, 1) })

		q.Start(stagedImage("/tmp/photo.jpg"))
		first := <-transport.calls

		q.Start(stagedImage("/tmp/photo.jpg"))
		second := <-transport.calls

		first.done <- scriptedResult{media: &backend.Media{ID: 1}}
		time.Sleep(50 * time.Millisecond)

		e, _ := statusOf(q, "/tmp/photo.jpg")
		if e.Status != StatusUploading {
			t.Fatalf("superseded success must not settle the entry, got %q", e.Status)
		}
		if n := atomic.LoadInt32(&reported); n != 0 {
			t.Fatalf("superseded success must not be reported, got %d reports", n)
		}

		second.done <- scriptedResult{err: errors.New("real failure")}
		waitFor(t, func() bool {
			e, _ := statusOf(q, "/tmp/photo.jpg")
			return e.Status == StatusError
		})
	})

	t.Run("delayed auto-dismiss spares a restaged entry", func(t *testing.T) {
		transport := newScriptedTransport()
		q := NewQueue(transport, newTestPreviews(t),
			Options{DismissAfter: 50 * time.Millisecond, MaxImageSize: 1 << 20}, nil)

		q.Start(stagedImage("/tmp/photo.jpg"))
		first := <-transport.calls
		first.done <- scriptedResult{media: &backend.Media{ID: 1}}
		waitFor(t, func() bool {
			e, ok := statusOf(q, "/tmp/photo.jpg")
			return ok && e.Status == StatusSuccess
		})

		// Restage before the success row's dismiss timer fires.
		q.Start(stagedImage("/tmp/photo.jpg"))
		second := <-transport.calls

		time.Sleep(150 * time.Millisecond)
		e, ok := statusOf(q, "/tmp/photo.jpg")
		if !ok || e.Status != StatusUploading {
			t.Fatal("auto-dismiss of the old success must not remove the restaged entry")
		}
		second.done <- scriptedResult{err: errors.New("unwind")}
	})
}

func TestProgress(t *testing.T) {
	gate := make(chan struct{})
	transport := &fakeTransport{media: &backend.Media{ID: 1}, gate: gate}
	q := NewQueue(transport, newTestPreviews(t), Options{DismissAfter: time.Minute, MaxImageSize: 1 << 20}, nil)

	q.Start(stagedImage("/tmp/photo.jpg"))

	e, _ := statusOf(q, "/tmp/photo.jpg")
	if e.Status != StatusUploading || e.Progress != 0 {
		t.Fatalf("expected uploading at 0%%, got %q at %d", e.Status, e.Progress)
	}
	if q.InFlight() != 1 {
		t.Fatalf("expected 1 in flight, got %d", q.InFlight())
	}

	close(gate)
	waitFor(t, func() bool {
		e, _ := statusOf(q, "/tmp/photo.jpg")
		return e.Status == StatusSuccess
	})
	if q.InFlight() != 0 {
		t.Fatalf("expected 0 in flight, got %d", q.InFlight())
	}
}

func TestRetry(t *testing.T) {
	t.Run("retries failed upload with same attempt parameters", func(t *testing.T) {
		transport := &fakeTransport{err: errors.New("network down")}
		q := NewQueue(transport, newTestPreviews(t), Options{DismissAfter: time.Minute, MaxImageSize: 1 << 20}, nil)

		f := stagedImage("/tmp/photo.jpg")
		f.CustomThumbName = "custom.jpg"
		f.CustomThumbBlob = []byte("custom")
		q.Start(f)

		waitFor(t, func() bool {
			e, _ := statusOf(q, "/tmp/photo.jpg")
			return e.Status == StatusError
		})

		transport.mu.Lock()
		transport.err = nil
		transport.media = &backend.Media{ID: 9}
		transport.mu.Unlock()

		if err := q.Retry("/tmp/photo.jpg"); err != nil {
			t.Fatalf("Retry: %v", err)
		}
		waitFor(t, func() bool {
			e, _ := statusOf(q, "/tmp/photo.jpg")
			return e.Status == StatusSuccess
		})

		if transport.attemptCount() != 2 {
			t.Fatalf("expected 2 attempts, got %d", transport.attemptCount())
		}
		a := transport.lastAttempt()
		if a.MediaType != backend.MediaTypeImage {
			t.Fatal("retry must preserve the media type")
		}
		if a.ThumbName != "custom.jpg" || string(a.ThumbBlob) != "custom" {
			t.Fatal("retry must preserve the thumbnail choice")
		}
	})

	t.Run("only error entries may retry", func(t *testing.T) {
		gate := make(chan struct{})
		defer close(gate)
		transport := &fakeTransport{media: &backend.Media{ID: 1}, gate: gate}
		q := NewQueue(transport, newTestPreviews(t), Options{MaxImageSize: 1 << 20}, nil)

		q.Start(stagedImage("/tmp/photo.jpg"))

		if err := q.Retry("/tmp/photo.jpg"); !errors.Is(err, ErrNotRetryable) {
			t.Fatalf("expected ErrNotRetryable for uploading entry, got %v", err)
		}
		if err := q.Retry("/tmp/unknown.jpg"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestDismiss(t *testing.T) {
	transport := &fakeTransport{err: errors.New("boom")}
	previews := newTestPreviews(t)
	q := NewQueue(transport, previews, Options{MaxImageSize: 1 << 20}, nil)

	q.Start(stagedImage("/tmp/photo.jpg"))
	waitFor(t, func() bool {
		e, _ := statusOf(q, "/tmp/photo.jpg")
		return e.Status == StatusError
	})

	q.Dismiss("/tmp/photo.jpg")
	if len(q.List()) != 0 {
		t.Fatal("expected entry removed")
	}
	if previews.Len() != 0 {
		t.Fatalf("expected preview revoked, got %d live", previews.Len())
	}

	// Idempotent.
	q.Dismiss("/tmp/photo.jpg")
	q.Dismiss("/never/was")
}

func TestCleanup(t *testing.T) {
	t.Run("dismiss runs the cleanup hook", func(t *testing.T) {
		var mu sync.Mutex
		var cleaned []string
		transport := &fakeTransport{err: errors.New("boom")}
		q := NewQueue(transport, newTestPreviews(t),
			Options{MaxImageSize: 1 << 20, Cleanup: func(p string) {
				mu.Lock()
				cleaned = append(cleaned, p)
				mu.Unlock()
			}}, nil)

		q.Start(stagedImage("/tmp/photo.jpg"))
		waitFor(t, func() bool {
			e, _ := statusOf(q, "/tmp/photo.jpg")
			return e.Status == StatusError
		})

		q.Dismiss("/tmp/photo.jpg")
		mu.Lock()
		got := len(cleaned)
		mu.Unlock()
		if got != 1 || cleaned[0] != "/tmp/photo.jpg" {
			t.Fatalf("expected one cleanup for the dismissed path, got %v", cleaned)
		}

		// No-op dismisses never clean up.
		q.Dismiss("/tmp/photo.jpg")
		mu.Lock()
		got = len(cleaned)
		mu.Unlock()
		if got != 1 {
			t.Fatalf("cleanup must run once per entry, got %d", got)
		}
	})

	t.Run("successful rows clean up after auto-dismiss", func(t *testing.T) {
		var mu sync.Mutex
		var cleaned []string
		transport := &fakeTransport{media: &backend.Media{ID: 1}}
		q := NewQueue(transport, newTestPreviews(t),
			Options{DismissAfter: 30 * time.Millisecond, MaxImageSize: 1 << 20, Cleanup: func(p string) {
				mu.Lock()
				cleaned = append(cleaned, p)
				mu.Unlock()
			}}, nil)

		q.Start(stagedImage("/tmp/photo.jpg"))
		waitFor(t, func() bool {
			_, ok := statusOf(q, "/tmp/photo.jpg")
			return !ok
		})

		mu.Lock()
		defer mu.Unlock()
		if len(cleaned) != 1 || cleaned[0] != "/tmp/photo.jpg" {
			t.Fatalf("expected cleanup after auto-dismiss, got %v", cleaned)
		}
	})
}

func TestStartAll(t *testing.T) {
	transport := &fakeTransport{media: &backend.Media{ID: 1}}
	q := NewQueue(transport, newTestPreviews(t), Options{DismissAfter: time.Minute, MaxImageSize: 1 << 20}, nil)

	batch := []*staging.StagedFile{
		stagedImage("/tmp/a.jpg"),
		stagedImage("/tmp/b.jpg"),
		stagedImage("/tmp/c.jpg"),
	}
	q.StartAll(batch)

	if len(q.List()) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(q.List()))
	}
	waitFor(t, func() bool {
		for _, e := range q.List() {
			if e.Status != StatusSuccess {
				return false
			}
		}
		return true
	})
}
