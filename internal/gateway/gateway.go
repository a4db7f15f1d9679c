package gateway

import (
	"context"
	"errors"
	"fmt"

	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

var ErrNotFound = errors.New("not found")
var ErrAuthRequired = errors.New("authentication required")

// ValidationError is detected before or by a request and never retried; the
// caller shows it inline at the point of entry.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// RequestError is a transport or HTTP-level failure, including non-2xx
// statuses that are not NotFound/auth/validation.
type RequestError struct {
	Op     string
	Status int
	Err    error
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// LocationPayload is the body of an override save.
type LocationPayload struct {
	Type  photo.OverrideType `json:"type"`
	Label string             `json:"label,omitempty"`
	Lat   *float64           `json:"lat,omitempty"`
	Lon   *float64           `json:"lon,omitempty"`
}

// Gateway is the remote photo API as the client core consumes it. All calls
// are request/response; the core never retries on its own.
type Gateway interface {
	ListPhotos(ctx context.Context) ([]photo.Record, error)
	GetPhoto(ctx context.Context, id string) (*photo.Record, error)
	UpdateNote(ctx context.Context, id, text string) (*photo.Record, error)
	UpdateLocation(ctx context.Context, id string, payload LocationPayload) (*photo.Record, error)
	DeleteLocationOverride(ctx context.Context, id string) (*photo.Record, error)
	GetSettings(ctx context.Context) (*photo.Settings, error)
	UpdateSettings(ctx context.Context, patch photo.SettingsPatch) (*photo.Settings, error)
}
