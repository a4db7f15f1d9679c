// Package annotate holds the per-photo editing controllers. Each editor keeps
// only transient draft state; everything persistent flows through the library
// store after server confirmation.
package annotate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/NetoRibeiro/photodisplay/internal/gateway"
	"github.com/NetoRibeiro/photodisplay/internal/library"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

// DefaultUndoWindow is how long the last note save stays undoable.
const DefaultUndoWindow = 5 * time.Second

// NoteEditor manages one photo's note draft, save, and the time-bounded undo
// of the last save. Only the most recent save is undoable.
type NoteEditor struct {
	store  *library.Store
	gw     gateway.Gateway
	window time.Duration

	mu       sync.Mutex
	photoID  string
	draft    string
	previous string
	undoOpen bool
	timer    *time.Timer
	timerGen int
	saving   bool
	lastErr  string
	closed   bool
}

type NoteOption func(*NoteEditor)

// WithUndoWindow shortens or lengthens the undo window; tests use it.
func WithUndoWindow(d time.Duration) NoteOption {
	return func(e *NoteEditor) { e.window = d }
}

// NewNoteEditor binds an editor to a photo, seeding the draft from its
// persisted note.
func NewNoteEditor(store *library.Store, gw gateway.Gateway, rec photo.Record, opts ...NoteOption) *NoteEditor {
	e := &NoteEditor{
		store:   store,
		gw:      gw,
		window:  DefaultUndoWindow,
		photoID: rec.ID,
		draft:   rec.NoteUser,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetDraft updates the local draft without any network call. Input beyond the
// limit is refused rather than silently truncated later.
func (e *NoteEditor) SetDraft(text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.draft = photo.ClampNote(text)
}

func (e *NoteEditor) Draft() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft
}

// Counter renders the "n/240" indicator.
func (e *NoteEditor) Counter() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fmt.Sprintf("%d/%d", len([]rune(e.draft)), photo.MaxNoteLen)
}

// Save persists the draft. On success the server's record lands in the store
// and an undo window opens; a save while a window is already open replaces
// its target and re-arms the timer instead of stacking a second one.
func (e *NoteEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("editor closed")
	}
	if err := photo.ValidateNote(e.draft); err != nil {
		// Defensive: SetDraft clamps, but never let an oversized draft near
		// the network.
		e.mu.Unlock()
		return &gateway.ValidationError{Field: "note", Reason: err.Error()}
	}
	id := e.photoID
	draft := e.draft
	e.saving = true
	e.mu.Unlock()

	prev := ""
	if cur, ok := e.store.Get(id); ok {
		prev = cur.NoteUser
	}

	updated, err := e.gw.UpdateNote(ctx, id, draft)

	e.mu.Lock()
	e.saving = false
	if e.closed {
		e.mu.Unlock()
		return nil // torn down while in flight; drop the response
	}
	if err != nil {
		e.lastErr = err.Error()
		e.mu.Unlock()
		return err
	}
	e.lastErr = ""
	e.previous = prev
	e.undoOpen = true
	e.armTimerLocked()
	e.mu.Unlock()

	e.store.Merge(*updated)
	return nil
}

// Undo restores the pre-save note while the window is open. The window closes
// either way; a failed undo leaves the current note in place.
func (e *NoteEditor) Undo(ctx context.Context) error {
	e.mu.Lock()
	if !e.undoOpen {
		e.mu.Unlock()
		return fmt.Errorf("nothing to undo")
	}
	prev := e.previous
	id := e.photoID
	e.closeWindowLocked()
	e.mu.Unlock()

	updated, err := e.gw.UpdateNote(ctx, id, prev)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.lastErr = err.Error()
		e.mu.Unlock()
		return err
	}
	e.lastErr = ""
	e.draft = prev
	e.mu.Unlock()

	e.store.Merge(*updated)
	return nil
}

// CanUndo reports whether the undo affordance is currently visible.
func (e *NoteEditor) CanUndo() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.undoOpen
}

func (e *NoteEditor) Saving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Err returns the message of the last failed save or undo, if any.
func (e *NoteEditor) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Close tears the editor down: the undo timer is cancelled and in-flight
// responses are dropped instead of applied.
func (e *NoteEditor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.closeWindowLocked()
}

// armTimerLocked re-arms (never stacks) the auto-close timer. The generation
// counter keeps a timer that fired during re-arm from closing the new window.
func (e *NoteEditor) armTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timerGen++
	gen := e.timerGen
	e.timer = time.AfterFunc(e.window, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.timerGen != gen {
			return
		}
		e.undoOpen = false
		e.previous = ""
	})
}

func (e *NoteEditor) closeWindowLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.timerGen++
	e.undoOpen = false
	e.previous = ""
}
