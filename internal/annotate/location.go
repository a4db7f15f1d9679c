package annotate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/NetoRibeiro/photodisplay/internal/gateway"
	"github.com/NetoRibeiro/photodisplay/internal/library"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

type LocationState int

const (
	StateAuto LocationState = iota
	StateOverridden
	StateEditingLabel
	StateEditingCoords
	StateSaving
	StateError
)

func (s LocationState) String() string {
	switch s {
	case StateAuto:
		return "auto"
	case StateOverridden:
		return "overridden"
	case StateEditingLabel:
		return "editing-label"
	case StateEditingCoords:
		return "editing-coords"
	case StateSaving:
		return "saving"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// LocationEditor drives the override/revert state machine for one photo.
// Location writes are confirmed-only: nothing is stored locally until the
// server returns the canonical record, so a rejected override is never shown.
type LocationEditor struct {
	store *library.Store
	gw    gateway.Gateway

	mu      sync.Mutex
	rec     photo.Record
	editing bool
	mode    photo.OverrideType
	label   string
	lat     string
	lon     string
	saving  bool
	valErr  string
	netErr  string
	closed  bool
}

func NewLocationEditor(store *library.Store, gw gateway.Gateway, rec photo.Record) *LocationEditor {
	return &LocationEditor{store: store, gw: gw, rec: rec.Clone()}
}

// State derives the current machine state; the base (Auto/Overridden) always
// follows the canonical record, never local drafts.
func (e *LocationEditor) State() LocationState {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case e.saving:
		return StateSaving
	case e.netErr != "":
		return StateError
	case e.editing && e.mode == photo.OverrideCoords:
		return StateEditingCoords
	case e.editing:
		return StateEditingLabel
	case e.rec.LocationOverride != nil:
		return StateOverridden
	default:
		return StateAuto
	}
}

// Open enters editing. Drafts seed from the existing override when present,
// otherwise from the displayed place; the mode defaults to the override's
// type, else label.
func (e *LocationEditor) Open() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.editing = true
	e.valErr = ""
	e.netErr = ""
	e.mode = photo.OverrideLabel
	e.label = ""
	e.lat = ""
	e.lon = ""

	if o := e.rec.LocationOverride; o != nil {
		e.mode = o.Type
		e.label = o.Label
		if o.Lat != nil {
			e.lat = strconv.FormatFloat(*o.Lat, 'f', -1, 64)
		}
		if o.Lon != nil {
			e.lon = strconv.FormatFloat(*o.Lon, 'f', -1, 64)
		}
		return
	}
	if p := e.rec.DisplayPlace(); p != nil {
		e.label = p.Label
	}
}

// SetMode switches label/coords editing; typed values survive, any validation
// error does not.
func (e *LocationEditor) SetMode(mode photo.OverrideType) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.editing {
		return
	}
	e.mode = mode
	e.valErr = ""
}

func (e *LocationEditor) SetLabel(v string) { e.setDraft(&e.label, v) }
func (e *LocationEditor) SetLat(v string)   { e.setDraft(&e.lat, v) }
func (e *LocationEditor) SetLon(v string)   { e.setDraft(&e.lon, v) }

func (e *LocationEditor) setDraft(field *string, v string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	*field = v
	e.valErr = ""
	e.netErr = ""
}

// Save validates the drafts and, only on a clean pass, sends the override.
// Validation failures stay local with the editor open; network failures leave
// the base state untouched.
func (e *LocationEditor) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.closed || !e.editing {
		e.mu.Unlock()
		return fmt.Errorf("editor is not open")
	}

	payload, err := e.buildPayloadLocked()
	if err != nil {
		e.valErr = err.Error()
		e.mu.Unlock()
		return &gateway.ValidationError{Field: "location", Reason: err.Error()}
	}
	id := e.rec.ID
	e.saving = true
	e.valErr = ""
	e.netErr = ""
	e.mu.Unlock()

	updated, gerr := e.gw.UpdateLocation(ctx, id, payload)

	e.mu.Lock()
	e.saving = false
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if gerr != nil {
		e.netErr = gerr.Error()
		e.mu.Unlock()
		return gerr
	}
	e.rec = updated.Clone()
	e.editing = false
	e.mu.Unlock()

	e.store.Merge(*updated)
	return nil
}

// Revert removes the override; only valid while one exists. On failure the
// override stays and the error is surfaced.
func (e *LocationEditor) Revert(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return fmt.Errorf("editor closed")
	}
	if e.rec.LocationOverride == nil {
		e.mu.Unlock()
		return fmt.Errorf("no override to revert")
	}
	id := e.rec.ID
	e.saving = true
	e.netErr = ""
	e.mu.Unlock()

	updated, err := e.gw.DeleteLocationOverride(ctx, id)

	e.mu.Lock()
	e.saving = false
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.netErr = err.Error()
		e.mu.Unlock()
		return err
	}
	e.rec = updated.Clone()
	e.editing = false
	e.mu.Unlock()

	e.store.Merge(*updated)
	return nil
}

// Record returns the editor's view of the canonical record.
func (e *LocationEditor) Record() photo.Record {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec.Clone()
}

func (e *LocationEditor) Mode() photo.OverrideType {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

func (e *LocationEditor) Drafts() (label, lat, lon string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.label, e.lat, e.lon
}

// ValidationErr returns the inline validation message, if any.
func (e *LocationEditor) ValidationErr() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.valErr
}

// Err returns the last network failure message, if any.
func (e *LocationEditor) Err() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.netErr
}

// Close abandons editing; in-flight responses are dropped, not applied.
func (e *LocationEditor) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.editing = false
}

func (e *LocationEditor) buildPayloadLocked() (gateway.LocationPayload, error) {
	switch e.mode {
	case photo.OverrideLabel:
		label := strings.TrimSpace(e.label)
		if label == "" {
			return gateway.LocationPayload{}, fmt.Errorf("please enter a location label")
		}
		return gateway.LocationPayload{Type: photo.OverrideLabel, Label: label}, nil
	case photo.OverrideCoords:
		if strings.TrimSpace(e.lat) == "" || strings.TrimSpace(e.lon) == "" {
			return gateway.LocationPayload{}, fmt.Errorf("latitude and longitude are required for coordinates")
		}
		lat, latErr := strconv.ParseFloat(strings.TrimSpace(e.lat), 64)
		lon, lonErr := strconv.ParseFloat(strings.TrimSpace(e.lon), 64)
		if latErr != nil || lonErr != nil {
			return gateway.LocationPayload{}, fmt.Errorf("coordinates must be valid numbers")
		}
		o := photo.Override{Type: photo.OverrideCoords, Lat: &lat, Lon: &lon}
		if err := o.Validate(); err != nil {
			return gateway.LocationPayload{}, err
		}
		payload := gateway.LocationPayload{Type: photo.OverrideCoords, Lat: &lat, Lon: &lon}
		if label := strings.TrimSpace(e.label); label != "" {
			payload.Label = label
		}
		return payload, nil
	default:
		return gateway.LocationPayload{}, fmt.Errorf("unknown mode %q", e.mode)
	}
}
