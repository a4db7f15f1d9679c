package annotate

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/NetoRibeiro/photodisplay/internal/gateway"
	"github.com/NetoRibeiro/photodisplay/internal/library"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

// scriptedGateway implements gateway.Gateway with per-call hooks.
type scriptedGateway struct {
	updateNote     func(ctx context.Context, id, text string) (*photo.Record, error)
	updateLocation func(ctx context.Context, id string, payload gateway.LocationPayload) (*photo.Record, error)
	deleteOverride func(ctx context.Context, id string) (*photo.Record, error)
}

func (g *scriptedGateway) ListPhotos(context.Context) ([]photo.Record, error) { return nil, nil }
func (g *scriptedGateway) GetPhoto(context.Context, string) (*photo.Record, error) {
	return nil, gateway.ErrNotFound
}
func (g *scriptedGateway) UpdateNote(ctx context.Context, id, text string) (*photo.Record, error) {
	if g.updateNote == nil {
		return nil, errors.New("not scripted")
	}
	return g.updateNote(ctx, id, text)
}
func (g *scriptedGateway) UpdateLocation(ctx context.Context, id string, payload gateway.LocationPayload) (*photo.Record, error) {
	if g.updateLocation == nil {
		return nil, errors.New("not scripted")
	}
	return g.updateLocation(ctx, id, payload)
}
func (g *scriptedGateway) DeleteLocationOverride(ctx context.Context, id string) (*photo.Record, error) {
	if g.deleteOverride == nil {
		return nil, errors.New("not scripted")
	}
	return g.deleteOverride(ctx, id)
}
func (g *scriptedGateway) GetSettings(context.Context) (*photo.Settings, error) {
	return nil, errors.New("not scripted")
}
func (g *scriptedGateway) UpdateSettings(context.Context, photo.SettingsPatch) (*photo.Settings, error) {
	return nil, errors.New("not scripted")
}

func echoNote(gw *scriptedGateway) {
	gw.updateNote = func(_ context.Context, id, text string) (*photo.Record, error) {
		return &photo.Record{ID: id, NoteUser: text, Status: photo.StatusReady}, nil
	}
}

func newNoteFixture(t *testing.T, note string, opts ...NoteOption) (*NoteEditor, *library.Store, *scriptedGateway) {
	t.Helper()
	gw := &scriptedGateway{}
	store := library.NewStore(gw, nil, nil)
	rec := photo.Record{ID: "p1", NoteUser: note, Status: photo.StatusReady}
	store.Merge(rec)
	return NewNoteEditor(store, gw, rec, opts...), store, gw
}

func TestDraftClampAndCounter(t *testing.T) {
	e, _, _ := newNoteFixture(t, "")
	e.SetDraft(strings.Repeat("x", 300))
	if got := len([]rune(e.Draft())); got != photo.MaxNoteLen {
		t.Fatalf("draft should clamp to %d, got %d", photo.MaxNoteLen, got)
	}
	if e.Counter() != "240/240" {
		t.Fatalf("counter should read 240/240, got %s", e.Counter())
	}
}

func TestSaveRejectsOversizedDraftWithoutNetwork(t *testing.T) {
	e, _, gw := newNoteFixture(t, "")
	called := false
	gw.updateNote = func(_ context.Context, id, text string) (*photo.Record, error) {
		called = true
		return nil, errors.New("unreachable")
	}
	// SetDraft clamps, so force the oversized state the way a buggy caller
	// might.
	e.mu.Lock()
	e.draft = strings.Repeat("x", 300)
	e.mu.Unlock()

	err := e.Save(context.Background())
	var ve *gateway.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if called {
		t.Fatalf("oversized note must never reach the network")
	}
}

func TestSaveOpensUndoWindowAndMerges(t *testing.T) {
	e, store, gw := newNoteFixture(t, "A")
	echoNote(gw)

	e.SetDraft("B")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !e.CanUndo() {
		t.Fatalf("undo window should be open after a save")
	}
	got, _ := store.Get("p1")
	if got.NoteUser != "B" {
		t.Fatalf("store should hold the saved note, got %q", got.NoteUser)
	}
}

func TestUndoRestoresPreviousNote(t *testing.T) {
	e, store, gw := newNoteFixture(t, "A")
	echoNote(gw)

	e.SetDraft("B")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := e.Undo(context.Background()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	got, _ := store.Get("p1")
	if got.NoteUser != "A" {
		t.Fatalf("undo should restore %q, got %q", "A", got.NoteUser)
	}
	if e.CanUndo() {
		t.Fatalf("window must close after undo")
	}
	if e.Undo(context.Background()) == nil {
		t.Fatalf("second undo must be unavailable")
	}
}

func TestUndoWindowExpires(t *testing.T) {
	e, _, gw := newNoteFixture(t, "A", WithUndoWindow(20*time.Millisecond))
	echoNote(gw)

	e.SetDraft("B")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	time.Sleep(60 * time.Millisecond)
	if e.CanUndo() {
		t.Fatalf("window should have expired")
	}
	if e.Undo(context.Background()) == nil {
		t.Fatalf("undo after expiry must fail")
	}
}

func TestSecondSaveReArmsWindow(t *testing.T) {
	e, store, gw := newNoteFixture(t, "A", WithUndoWindow(80*time.Millisecond))
	echoNote(gw)

	e.SetDraft("B")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("first save: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	e.SetDraft("C")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("second save: %v", err)
	}
	// Past the first timer's deadline but inside the re-armed one.
	time.Sleep(50 * time.Millisecond)
	if !e.CanUndo() {
		t.Fatalf("second save must re-arm, not inherit, the timer")
	}

	// Only the most recent save is undoable: target is B, not A.
	if err := e.Undo(context.Background()); err != nil {
		t.Fatalf("undo: %v", err)
	}
	got, _ := store.Get("p1")
	if got.NoteUser != "B" {
		t.Fatalf("undo target should be the pre-save value %q, got %q", "B", got.NoteUser)
	}
}

func TestSaveFailureLeavesStateIntact(t *testing.T) {
	e, store, gw := newNoteFixture(t, "A")
	gw.updateNote = func(context.Context, string, string) (*photo.Record, error) {
		return nil, errors.New("network down")
	}

	e.SetDraft("B")
	if err := e.Save(context.Background()); err == nil {
		t.Fatalf("expected save error")
	}
	if e.CanUndo() {
		t.Fatalf("failed save must not open an undo window")
	}
	got, _ := store.Get("p1")
	if got.NoteUser != "A" {
		t.Fatalf("failed save must not touch the store, got %q", got.NoteUser)
	}
	if e.Err() == "" {
		t.Fatalf("error should be surfaced")
	}
}

func TestFailedUndoKeepsCurrentNote(t *testing.T) {
	e, store, gw := newNoteFixture(t, "A")
	echoNote(gw)
	e.SetDraft("B")
	if err := e.Save(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}

	gw.updateNote = func(context.Context, string, string) (*photo.Record, error) {
		return nil, errors.New("network down")
	}
	if err := e.Undo(context.Background()); err == nil {
		t.Fatalf("expected undo failure")
	}
	got, _ := store.Get("p1")
	if got.NoteUser != "B" {
		t.Fatalf("failed undo must leave the saved note, got %q", got.NoteUser)
	}
}

func TestCloseDropsInFlightResponse(t *testing.T) {
	e, store, gw := newNoteFixture(t, "A")
	inCall := make(chan struct{})
	release := make(chan struct{})
	gw.updateNote = func(_ context.Context, id, text string) (*photo.Record, error) {
		close(inCall)
		<-release
		return &photo.Record{ID: id, NoteUser: text, Status: photo.StatusReady}, nil
	}

	e.SetDraft("B")
	done := make(chan error, 1)
	go func() { done <- e.Save(context.Background()) }()

	<-inCall
	e.Close()
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("dropped save should not error: %v", err)
	}

	got, _ := store.Get("p1")
	if got.NoteUser != "A" {
		t.Fatalf("response after teardown must be dropped, store has %q", got.NoteUser)
	}
	if e.CanUndo() {
		t.Fatalf("no undo window after teardown")
	}
}
