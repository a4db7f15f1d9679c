// Package library holds the client-side caches: the photo store that every
// view reads from, and the settings store that parameterizes playback.
package library

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/NetoRibeiro/photodisplay/internal/gateway"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

// Snapshot is what subscribers observe after every mutation.
type Snapshot struct {
	Photos  []photo.Record
	Loading bool
	Err     string
}

// Store is the single in-memory cache of photo records. All mutations travel
// through Load or Merge; nothing else may touch the collection.
type Store struct {
	gw       gateway.Gateway
	settings *SettingsStore
	logger   *slog.Logger

	mu         sync.Mutex
	photos     []photo.Record
	inFlight   int
	lastErr    string
	nextSeq    uint64
	appliedSeq uint64
	subs       map[int]func(Snapshot)
	nextSub    int
}

// NewStore builds a store over the gateway. settings may be nil when the
// caller only browses photos.
func NewStore(gw gateway.Gateway, settings *SettingsStore, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	return &Store{
		gw:       gw,
		settings: settings,
		logger:   logger,
		subs:     make(map[int]func(Snapshot)),
	}
}

// Load fetches the full photo list, and the settings alongside when a
// settings store is attached. A settings failure is non-fatal. Overlapping
// loads are resolved last-started-wins: each call takes a monotonic token at
// start and a result only lands if no later-started load has landed first.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	s.nextSeq++
	seq := s.nextSeq
	s.inFlight++
	s.mu.Unlock()
	s.notify()

	photos, err := s.gw.ListPhotos(ctx)

	if s.settings != nil {
		if serr := s.settings.Load(ctx); serr != nil {
			s.logger.Warn("settings load failed, keeping defaults", "error", serr)
		}
	}

	s.mu.Lock()
	s.inFlight--
	stale := seq <= s.appliedSeq
	if !stale {
		if err != nil {
			s.lastErr = err.Error()
		} else {
			s.appliedSeq = seq
			s.photos = photos
			s.lastErr = ""
		}
	}
	s.mu.Unlock()
	s.notify()

	if stale {
		// Superseded by a later-started load; drop silently.
		return nil
	}
	return err
}

// Merge upserts one record: same id replaces in place, a new id is prepended
// so fresh arrivals show first. Merging the same record twice is a no-op the
// second time as far as observers can tell.
func (s *Store) Merge(rec photo.Record) {
	s.mu.Lock()
	replaced := false
	for i := range s.photos {
		if s.photos[i].ID == rec.ID {
			s.photos[i] = rec.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.photos = append([]photo.Record{rec.Clone()}, s.photos...)
	}
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	photos := make([]photo.Record, 0, len(s.photos))
	for i := range s.photos {
		photos = append(photos, s.photos[i].Clone())
	}
	return Snapshot{Photos: photos, Loading: s.inFlight > 0, Err: s.lastErr}
}

// Get returns the cached record with the given id, if any.
func (s *Store) Get(id string) (photo.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.photos {
		if s.photos[i].ID == id {
			return s.photos[i].Clone(), true
		}
	}
	return photo.Record{}, false
}

// Ready returns the ready subset in the store's iteration order, which is
// what the slideshow cycles over.
func (s *Store) Ready() []photo.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []photo.Record
	for i := range s.photos {
		if s.photos[i].Ready() {
			out = append(out, s.photos[i].Clone())
		}
	}
	return out
}

// Subscribe registers fn for every state change and returns an unsubscribe
// func. fn runs synchronously on the mutating goroutine with a private
// snapshot, so a subscriber may call Merge again without corrupting anything.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) notify() {
	s.mu.Lock()
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
