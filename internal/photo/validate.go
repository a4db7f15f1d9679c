package photo

import (
	"fmt"
	"math"
	"strings"
)

// ValidateNote rejects notes beyond MaxNoteLen. Counted in runes so multibyte
// text is not penalized.
func ValidateNote(text string) error {
	if n := len([]rune(text)); n > MaxNoteLen {
		return fmt.Errorf("note is %d characters, limit is %d", n, MaxNoteLen)
	}
	return nil
}

// ClampNote truncates to MaxNoteLen runes. Input surfaces use it to refuse
// further typing rather than silently dropping saved text.
func ClampNote(text string) string {
	runes := []rune(text)
	if len(runes) <= MaxNoteLen {
		return text
	}
	return string(runes[:MaxNoteLen])
}

// Validate checks an override before it is sent anywhere. Label mode needs a
// non-empty trimmed label; coords mode needs both coordinates, finite and in
// range, with the label optional.
func (o *Override) Validate() error {
	switch o.Type {
	case OverrideLabel:
		if strings.TrimSpace(o.Label) == "" {
			return fmt.Errorf("label is required")
		}
	case OverrideCoords:
		if o.Lat == nil || o.Lon == nil {
			return fmt.Errorf("latitude and longitude are required")
		}
		if !finite(*o.Lat) || !finite(*o.Lon) {
			return fmt.Errorf("coordinates must be valid numbers")
		}
		if *o.Lat < -90 || *o.Lat > 90 {
			return fmt.Errorf("latitude must be between -90 and 90")
		}
		if *o.Lon < -180 || *o.Lon > 180 {
			return fmt.Errorf("longitude must be between -180 and 180")
		}
	default:
		return fmt.Errorf("unknown override type %q", o.Type)
	}
	return nil
}

func ValidateInterval(sec int) error {
	if sec < MinIntervalSec || sec > MaxIntervalSec {
		return fmt.Errorf("slideshow interval must be between %d and %d seconds", MinIntervalSec, MaxIntervalSec)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
