package photo

import "time"

type Status string

const (
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusError      Status = "error"
)

// MaxNoteLen is the hard limit on user notes, enforced before any network call.
const MaxNoteLen = 240

const (
	MinIntervalSec     = 3
	MaxIntervalSec     = 60
	DefaultIntervalSec = 5
)

// IntervalPresets are the values offered by the settings UI; any value inside
// [MinIntervalSec, MaxIntervalSec] is accepted.
var IntervalPresets = []int{3, 5, 10, 30}

type OverrideType string

const (
	OverrideLabel  OverrideType = "label"
	OverrideCoords OverrideType = "coords"
)

// Place is a resolved location shown next to a photo.
type Place struct {
	Label   string `json:"label"`
	Country string `json:"country,omitempty"`
}

// Exif carries the GPS subset of the embedded metadata.
type Exif struct {
	HasGPS bool     `json:"hasGps"`
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
}

// Override is a user-supplied correction to the derived location. It is only
// ever created by an explicit edit and removed by an explicit revert.
type Override struct {
	Type   OverrideType `json:"type"`
	Label  string       `json:"label,omitempty"`
	Lat    *float64     `json:"lat,omitempty"`
	Lon    *float64     `json:"lon,omitempty"`
	Source string       `json:"source"`
}

// Record is the canonical shape of a photo as served by the API.
type Record struct {
	ID               string    `json:"id"`
	UserID           string    `json:"userId"`
	StorageKey       string    `json:"storageKey"`
	Variants         []string  `json:"variants"`
	CaptionAI        string    `json:"captionAi,omitempty"`
	NoteUser         string    `json:"noteUser,omitempty"`
	Exif             Exif      `json:"exif"`
	PlaceAuto        *Place    `json:"placeAuto,omitempty"`
	PlaceDisplay     *Place    `json:"placeDisplay,omitempty"`
	LocationOverride *Override `json:"locationOverride,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
	Status           Status    `json:"status"`
}

// Settings is the per-user singleton of playback preferences.
type Settings struct {
	UserID               string    `json:"userId"`
	DetailOnly           bool      `json:"detailOnly"`
	SlideshowIntervalSec int       `json:"slideshowIntervalSec"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

// SettingsPatch carries only the fields a save wants to change.
type SettingsPatch struct {
	DetailOnly           *bool `json:"detailOnly,omitempty"`
	SlideshowIntervalSec *int  `json:"slideshowIntervalSec,omitempty"`
}

// DisplayPlace derives the location to show. The override wins when it has a
// label, otherwise the auto-derived place, otherwise nothing. The server sends
// placeDisplay too; deriving it locally keeps the record the single source of
// truth even if the two ever disagree.
func (r *Record) DisplayPlace() *Place {
	if o := r.LocationOverride; o != nil && o.Label != "" {
		return &Place{Label: o.Label}
	}
	return r.PlaceAuto
}

const (
	BadgeEdited      = "Edited"
	BadgeFromEXIF    = "From EXIF"
	BadgeUnavailable = "Unavailable"
)

// LocationBadge is a pure function of (override present, exif.hasGps) and can
// never contradict DisplayPlace's provenance.
func (r *Record) LocationBadge() string {
	switch {
	case r.LocationOverride != nil:
		return BadgeEdited
	case r.Exif.HasGPS:
		return BadgeFromEXIF
	default:
		return BadgeUnavailable
	}
}

func (r *Record) Ready() bool {
	return r.Status == StatusReady
}

// Clone returns a deep copy so cached snapshots cannot be mutated through
// shared pointers.
func (r *Record) Clone() Record {
	out := *r
	out.Variants = append([]string(nil), r.Variants...)
	if r.Exif.Lat != nil {
		lat := *r.Exif.Lat
		out.Exif.Lat = &lat
	}
	if r.Exif.Lon != nil {
		lon := *r.Exif.Lon
		out.Exif.Lon = &lon
	}
	if r.PlaceAuto != nil {
		p := *r.PlaceAuto
		out.PlaceAuto = &p
	}
	if r.PlaceDisplay != nil {
		p := *r.PlaceDisplay
		out.PlaceDisplay = &p
	}
	if r.LocationOverride != nil {
		o := *r.LocationOverride
		if r.LocationOverride.Lat != nil {
			lat := *r.LocationOverride.Lat
			o.Lat = &lat
		}
		if r.LocationOverride.Lon != nil {
			lon := *r.LocationOverride.Lon
			o.Lon = &lon
		}
		out.LocationOverride = &o
	}
	return out
}
