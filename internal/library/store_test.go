package library

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NetoRibeiro/photodisplay/internal/gateway"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

// fakeGateway lets each test script the remote side.
type fakeGateway struct {
	mu             sync.Mutex
	listPhotos     func(ctx context.Context) ([]photo.Record, error)
	getSettings    func(ctx context.Context) (*photo.Settings, error)
	updateSettings func(ctx context.Context, patch photo.SettingsPatch) (*photo.Settings, error)
	updateNote     func(ctx context.Context, id, text string) (*photo.Record, error)
	updateLocation func(ctx context.Context, id string, payload gateway.LocationPayload) (*photo.Record, error)
	deleteOverride func(ctx context.Context, id string) (*photo.Record, error)
}

func (f *fakeGateway) ListPhotos(ctx context.Context) ([]photo.Record, error) {
	f.mu.Lock()
	fn := f.listPhotos
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(ctx)
}

func (f *fakeGateway) GetPhoto(context.Context, string) (*photo.Record, error) {
	return nil, gateway.ErrNotFound
}

func (f *fakeGateway) UpdateNote(ctx context.Context, id, text string) (*photo.Record, error) {
	if f.updateNote == nil {
		return nil, errors.New("not scripted")
	}
	return f.updateNote(ctx, id, text)
}

func (f *fakeGateway) UpdateLocation(ctx context.Context, id string, payload gateway.LocationPayload) (*photo.Record, error) {
	if f.updateLocation == nil {
		return nil, errors.New("not scripted")
	}
	return f.updateLocation(ctx, id, payload)
}

func (f *fakeGateway) DeleteLocationOverride(ctx context.Context, id string) (*photo.Record, error) {
	if f.deleteOverride == nil {
		return nil, errors.New("not scripted")
	}
	return f.deleteOverride(ctx, id)
}

func (f *fakeGateway) GetSettings(ctx context.Context) (*photo.Settings, error) {
	if f.getSettings == nil {
		return nil, errors.New("not scripted")
	}
	return f.getSettings(ctx)
}

func (f *fakeGateway) UpdateSettings(ctx context.Context, patch photo.SettingsPatch) (*photo.Settings, error) {
	if f.updateSettings == nil {
		return nil, errors.New("not scripted")
	}
	return f.updateSettings(ctx, patch)
}

func rec(id string, status photo.Status) photo.Record {
	return photo.Record{ID: id, Status: status}
}

func TestMergeUpsertAndPrepend(t *testing.T) {
	s := NewStore(&fakeGateway{}, nil, nil)
	s.Merge(rec("a", photo.StatusReady))
	s.Merge(rec("b", photo.StatusProcessing))

	snap := s.Snapshot()
	if len(snap.Photos) != 2 || snap.Photos[0].ID != "b" {
		t.Fatalf("new record should prepend: %+v", snap.Photos)
	}

	updated := rec("a", photo.StatusReady)
	updated.NoteUser = "hi"
	s.Merge(updated)

	snap = s.Snapshot()
	if len(snap.Photos) != 2 {
		t.Fatalf("merge of known id must replace, not add")
	}
	if snap.Photos[1].ID != "a" || snap.Photos[1].NoteUser != "hi" {
		t.Fatalf("record not replaced in place: %+v", snap.Photos)
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := NewStore(&fakeGateway{}, nil, nil)
	r := rec("a", photo.StatusReady)
	r.NoteUser = "same"
	s.Merge(r)
	first := s.Snapshot()
	s.Merge(r)
	second := s.Snapshot()

	if len(first.Photos) != len(second.Photos) {
		t.Fatalf("double merge changed length: %d vs %d", len(first.Photos), len(second.Photos))
	}
	if first.Photos[0].ID != second.Photos[0].ID || first.Photos[0].NoteUser != second.Photos[0].NoteUser {
		t.Fatalf("double merge changed state")
	}
}

func TestLoadReplacesList(t *testing.T) {
	gw := &fakeGateway{
		listPhotos: func(context.Context) ([]photo.Record, error) {
			return []photo.Record{rec("x", photo.StatusReady)}, nil
		},
	}
	s := NewStore(gw, nil, nil)
	s.Merge(rec("old", photo.StatusReady))

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	snap := s.Snapshot()
	if len(snap.Photos) != 1 || snap.Photos[0].ID != "x" {
		t.Fatalf("load must replace the whole list: %+v", snap.Photos)
	}
	if snap.Loading || snap.Err != "" {
		t.Fatalf("unexpected flags after load: %+v", snap)
	}
}

func TestLoadFailureKeepsCache(t *testing.T) {
	gw := &fakeGateway{
		listPhotos: func(context.Context) ([]photo.Record, error) {
			return nil, errors.New("network down")
		},
	}
	s := NewStore(gw, nil, nil)
	s.Merge(rec("cached", photo.StatusReady))

	if err := s.Load(context.Background()); err == nil {
		t.Fatalf("expected load error")
	}
	snap := s.Snapshot()
	if len(snap.Photos) != 1 || snap.Photos[0].ID != "cached" {
		t.Fatalf("failed load must not clear cached data: %+v", snap.Photos)
	}
	if snap.Err == "" {
		t.Fatalf("expected error surfaced in snapshot")
	}
}

func TestOverlappingLoadsLastStartedWins(t *testing.T) {
	release := make(chan struct{})
	calls := 0
	gw := &fakeGateway{}
	gw.listPhotos = func(context.Context) ([]photo.Record, error) {
		gw.mu.Lock()
		calls++
		n := calls
		gw.mu.Unlock()
		if n == 1 {
			<-release // first-started load resolves last
			return []photo.Record{rec("stale", photo.StatusReady)}, nil
		}
		return []photo.Record{rec("fresh", photo.StatusReady)}, nil
	}
	s := NewStore(gw, nil, nil)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = s.Load(context.Background()) // seq 1, blocked
	}()

	// Make sure the first load has started before the second one.
	for {
		gw.mu.Lock()
		started := calls >= 1
		gw.mu.Unlock()
		if started {
			break
		}
		time.Sleep(time.Millisecond)
	}

	if err := s.Load(context.Background()); err != nil { // seq 2, resolves first
		t.Fatalf("second load: %v", err)
	}
	close(release)
	wg.Wait()

	snap := s.Snapshot()
	if len(snap.Photos) != 1 || snap.Photos[0].ID != "fresh" {
		t.Fatalf("stale response must be discarded: %+v", snap.Photos)
	}
	if snap.Loading {
		t.Fatalf("loading flag stuck")
	}
}

func TestLoadSettingsFailureIsNonFatal(t *testing.T) {
	gw := &fakeGateway{
		listPhotos: func(context.Context) ([]photo.Record, error) {
			return []photo.Record{rec("x", photo.StatusReady)}, nil
		},
		getSettings: func(context.Context) (*photo.Settings, error) {
			return nil, errors.New("settings unavailable")
		},
	}
	settings := NewSettingsStore(gw)
	s := NewStore(gw, settings, nil)

	if err := s.Load(context.Background()); err != nil {
		t.Fatalf("photo load should succeed despite settings failure: %v", err)
	}
	if _, ok := settings.Current(); ok {
		t.Fatalf("settings should remain unset")
	}
	if settings.Interval().Seconds() != photo.DefaultIntervalSec {
		t.Fatalf("expected default interval, got %v", settings.Interval())
	}
}

func TestSubscribeSeesEveryChange(t *testing.T) {
	s := NewStore(&fakeGateway{}, nil, nil)
	var got []int
	unsub := s.Subscribe(func(snap Snapshot) {
		got = append(got, len(snap.Photos))
	})
	s.Merge(rec("a", photo.StatusReady))
	s.Merge(rec("b", photo.StatusReady))
	unsub()
	s.Merge(rec("c", photo.StatusReady))

	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected notifications %v", got)
	}
}

func TestReentrantMergeFromSubscriber(t *testing.T) {
	s := NewStore(&fakeGateway{}, nil, nil)
	fired := false
	s.Subscribe(func(snap Snapshot) {
		if !fired && len(snap.Photos) == 1 {
			fired = true
			s.Merge(rec("from-subscriber", photo.StatusReady))
		}
	})
	s.Merge(rec("a", photo.StatusReady))

	snap := s.Snapshot()
	if len(snap.Photos) != 2 {
		t.Fatalf("re-entrant merge lost: %+v", snap.Photos)
	}
}

func TestRacingFieldSavesComposeThroughMerge(t *testing.T) {
	// A note save and a location save for the same photo both return full
	// records; whichever merge lands second wins whole-record, so neither
	// field can be partially lost.
	s := NewStore(&fakeGateway{}, nil, nil)
	base := rec("p", photo.StatusReady)
	s.Merge(base)

	afterNote := base
	afterNote.NoteUser = "note"
	afterBoth := afterNote
	afterBoth.LocationOverride = &photo.Override{Type: photo.OverrideLabel, Label: "Lisbon", Source: "user"}

	s.Merge(afterNote)
	s.Merge(afterBoth)

	got, ok := s.Get("p")
	if !ok {
		t.Fatalf("record missing")
	}
	if got.NoteUser != "note" || got.LocationOverride == nil {
		t.Fatalf("merge lost a field: %+v", got)
	}
}

func TestReadyFilterAndOrder(t *testing.T) {
	s := NewStore(&fakeGateway{}, nil, nil)
	s.Merge(rec("c", photo.StatusReady))
	s.Merge(rec("b", photo.StatusProcessing))
	s.Merge(rec("a", photo.StatusReady))

	ready := s.Ready()
	if len(ready) != 2 || ready[0].ID != "a" || ready[1].ID != "c" {
		t.Fatalf("ready view wrong: %+v", ready)
	}
}
