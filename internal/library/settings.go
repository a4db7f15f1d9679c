package library

import (
	"context"
	"sync"
	"time"

	"github.com/NetoRibeiro/photodisplay/internal/gateway"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

// SettingsStore caches the per-user playback preferences. Until a fetch
// succeeds it answers with defaults, so a settings outage never blocks
// browsing.
type SettingsStore struct {
	gw gateway.Gateway

	mu       sync.Mutex
	settings *photo.Settings
	subs     map[int]func()
	nextSub  int
}

func NewSettingsStore(gw gateway.Gateway) *SettingsStore {
	return &SettingsStore{gw: gw, subs: make(map[int]func())}
}

// Load fetches the settings. Failure leaves the previous value (or the
// defaults) in effect; callers treat the error as advisory.
func (s *SettingsStore) Load(ctx context.Context) error {
	settings, err := s.gw.GetSettings(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.notify()
	return nil
}

// Save validates the patch, sends only the changed fields and replaces the
// cache with the server's full returned object. Subscribers see the change
// immediately; no reload is needed.
func (s *SettingsStore) Save(ctx context.Context, patch photo.SettingsPatch) (*photo.Settings, error) {
	if patch.SlideshowIntervalSec != nil {
		if err := photo.ValidateInterval(*patch.SlideshowIntervalSec); err != nil {
			return nil, &gateway.ValidationError{Field: "slideshowIntervalSec", Reason: err.Error()}
		}
	}
	settings, err := s.gw.UpdateSettings(ctx, patch)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	s.notify()
	return settings, nil
}

// Current returns the cached settings and whether any fetch has succeeded.
func (s *SettingsStore) Current() (photo.Settings, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.settings == nil {
		return photo.Settings{SlideshowIntervalSec: photo.DefaultIntervalSec}, false
	}
	return *s.settings, true
}

// Interval is the slideshow advance period, defaulting to 5s while unset.
func (s *SettingsStore) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := photo.DefaultIntervalSec
	if s.settings != nil && s.settings.SlideshowIntervalSec >= photo.MinIntervalSec {
		sec = s.settings.SlideshowIntervalSec
	}
	return time.Duration(sec) * time.Second
}

func (s *SettingsStore) DetailOnly() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings != nil && s.settings.DetailOnly
}

// Subscribe registers fn for every settings change and returns an
// unsubscribe func.
func (s *SettingsStore) Subscribe(fn func()) func() {
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

func (s *SettingsStore) notify() {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
