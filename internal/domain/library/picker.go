package library

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/foliokit/media-agent/internal/pkg/backend"
)

// Mode controls how many items a picker session may select.
type Mode string

const (
	ModeSingle   Mode = "single"
	ModeMultiple Mode = "multiple"
)

var (
	ErrNotOpen      = errors.New("no picker session is open")
	ErrUnknownMedia = errors.New("media item is not in the library")
)

// Client is the slice of the backend API the picker needs.
type Client interface {
	GetMediaList(ctx context.Context) backend.Result[[]backend.Media]
}

// Picker lets the user attach previously uploaded media to the item
// being edited. A session opens with the caller's currently attached
// set, tracks selection changes locally, and on confirm returns only
// the newly selected items; closing without confirming discards
// everything.
type Picker struct {
	mu       sync.Mutex
	client   Client
	media    []backend.Media
	attached map[int64]bool
	selected map[int64]bool
	mode     Mode
	open     bool
}

// NewPicker creates a media library picker.
func NewPicker(client Client) *Picker {
	return &Picker{client: client}
}

// Open fetches the full media list and resets local selection to
// exactly the caller-supplied attached set. Reopening always resets
// from the caller's current set, never from a discarded session.
func (p *Picker) Open(ctx context.Context, attachedIDs []int64, mode Mode) ([]backend.Media, error) {
	res := p.client.GetMediaList(ctx)
	if !res.OK || res.Data == nil {
		msg := res.Message
		if msg == "" {
			msg = "failed to load media library"
		}
		return nil, errors.New(msg)
	}

	if mode != ModeSingle {
		mode = ModeMultiple
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.media = *res.Data
	p.attached = make(map[int64]bool, len(attachedIDs))
	p.selected = make(map[int64]bool, len(attachedIDs))
	for _, id := range attachedIDs {
		p.attached[id] = true
		// Single mode holds at most one selection from the start;
		// the confirm difference still sees the full attached set.
		if mode == ModeSingle && len(p.selected) == 1 {
			continue
		}
		p.selected[id] = true
	}
	p.mode = mode
	p.open = true

	return p.media, nil
}

// Filter returns the session's media narrowed by a case-insensitive
// substring match against alt or caption ANDed with an exact media
// type filter ("all", "image" or "video"). Purely local, recomputed
// on every call.
func (p *Picker) Filter(search, typeFilter string) []backend.Media {
	p.mu.Lock()
	defer p.mu.Unlock()

	search = strings.ToLower(strings.TrimSpace(search))

	out := make([]backend.Media, 0, len(p.media))
	for _, m := range p.media {
		if typeFilter != "" && typeFilter != "all" && string(m.MediaType) != typeFilter {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Alt), search) &&
			!strings.Contains(strings.ToLower(m.Caption), search) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Toggle flips an item's selection. Single-select mode clears any
// other selection before adding the new one.
func (p *Picker) Toggle(id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return ErrNotOpen
	}
	if !p.contains(id) {
		return ErrUnknownMedia
	}

	if p.selected[id] {
		delete(p.selected, id)
		return nil
	}

	if p.mode == ModeSingle {
		p.selected = make(map[int64]bool, 1)
	}
	p.selected[id] = true
	return nil
}

// Selected returns the IDs currently selected in the session.
func (p *Picker) Selected() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]int64, 0, len(p.selected))
	for _, m := range p.media {
		if p.selected[m.ID] {
			out = append(out, m.ID)
		}
	}
	return out
}

// Confirm ends the session and returns only the items newly selected
// relative to the attached set the session opened with. The caller
// decides how to merge; already-attached items are never returned.
func (p *Picker) Confirm() ([]backend.Media, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.open {
		return nil, ErrNotOpen
	}

	out := make([]backend.Media, 0, len(p.selected))
	for _, m := range p.media {
		if p.selected[m.ID] && !p.attached[m.ID] {
			out = append(out, m)
		}
	}

	p.reset()
	return out, nil
}

// Close discards all local selection changes without confirming.
func (p *Picker) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// IsOpen reports whether a session is active.
func (p *Picker) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.open
}

// reset must be called with the lock held.
func (p *Picker) reset() {
	p.media = nil
	p.attached = nil
	p.selected = nil
	p.open = false
}

// contains must be called with the lock held.
func (p *Picker) contains(id int64) bool {
	for _, m := range p.media {
		if m.ID == id {
			return true
		}
	}
	return false
}
