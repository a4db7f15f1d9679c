package devserver

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

// Simulator stands in for the ingestion pipeline. It promotes photos from
// processing to ready after a configurable delay, filling in the fields a real
// captioner and geocoder would produce.
type Simulator struct {
	store  *Store
	delay  time.Duration
	logger *slog.Logger
}

func NewSimulator(store *Store, delay time.Duration, logger *slog.Logger) *Simulator {
	return &Simulator{store: store, delay: delay, logger: logger}
}

// Run promotes due photos once a second until the context is cancelled.
func (s *Simulator) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.promoteDue(ctx)
		}
	}
}

func (s *Simulator) promoteDue(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-s.delay)
	due, err := s.store.ListProcessingBefore(ctx, cutoff)
	if err != nil {
		s.logger.Warn("simulator: list processing", "error", err)
		return
	}
	for i := range due {
		rec := &due[i]
		Enrich(rec)
		if err := s.store.MarkReady(ctx, rec); err != nil {
			s.logger.Warn("simulator: mark ready", "photo", rec.ID, "error", err)
			continue
		}
		s.logger.Info("photo ready", "photo", rec.ID)
	}
}

// Enrich fills the derived fields of a freshly processed photo in place.
func Enrich(rec *photo.Record) {
	rec.Variants = append([]string(nil), Variants...)
	if rec.CaptionAI == "" {
		rec.CaptionAI = fmt.Sprintf("A photo from %s", rec.CreatedAt.Format("January 2006"))
	}
	if rec.PlaceAuto == nil && rec.Exif.HasGPS && rec.Exif.Lat != nil && rec.Exif.Lon != nil {
		rec.PlaceAuto = &photo.Place{
			Label: fmt.Sprintf("Near %.2f, %.2f", *rec.Exif.Lat, *rec.Exif.Lon),
		}
	}
	rec.PlaceDisplay = rec.DisplayPlace()
	rec.Status = photo.StatusReady
}
