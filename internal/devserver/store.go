package devserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

var ErrNotFound = errors.New("not found")
var ErrInvalid = errors.New("invalid value")

// Store persists photos and per-user settings in sqlite. JSON columns hold the
// nested shapes so the row layout stays flat.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type photoRow struct {
	ID               string         `db:"id"`
	UserID           string         `db:"user_id"`
	StorageKey       string         `db:"storage_key"`
	Variants         string         `db:"variants"`
	CaptionAI        sql.NullString `db:"caption_ai"`
	NoteUser         sql.NullString `db:"note_user"`
	Exif             string         `db:"exif"`
	PlaceAuto        sql.NullString `db:"place_auto"`
	PlaceDisplay     sql.NullString `db:"place_display"`
	LocationOverride sql.NullString `db:"location_override"`
	Status           string         `db:"status"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

const photoColumns = "id, user_id, storage_key, variants, caption_ai, note_user, exif, place_auto, place_display, location_override, status, created_at, updated_at"

func (s *Store) ListPhotos(ctx context.Context, userID string) ([]photo.Record, error) {
	var rows []photoRow
	query := "SELECT " + photoColumns + " FROM photo WHERE user_id = ? ORDER BY created_at DESC, id"
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, err
	}
	records := make([]photo.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

func (s *Store) GetPhoto(ctx context.Context, userID, id string) (*photo.Record, error) {
	var row photoRow
	query := "SELECT " + photoColumns + " FROM photo WHERE user_id = ? AND id = ?"
	err := s.db.GetContext(ctx, &row, query, userID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.toRecord()
}

func (s *Store) CreatePhoto(ctx context.Context, rec *photo.Record) (*photo.Record, error) {
	row, err := toRow(rec)
	if err != nil {
		return nil, err
	}
	query := `INSERT INTO photo (id, user_id, storage_key, variants, caption_ai, note_user, exif, place_auto, place_display, location_override, status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = s.db.ExecContext(ctx, query,
		row.ID, row.UserID, row.StorageKey, row.Variants, row.CaptionAI, row.NoteUser,
		row.Exif, row.PlaceAuto, row.PlaceDisplay, row.LocationOverride, row.Status,
		row.CreatedAt, row.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s.GetPhoto(ctx, rec.UserID, rec.ID)
}

// UpdateNote replaces the user note. An empty string clears it.
func (s *Store) UpdateNote(ctx context.Context, userID, id, note string) (*photo.Record, error) {
	noteVal := sql.NullString{String: note, Valid: note != ""}
	res, err := s.db.ExecContext(ctx,
		"UPDATE photo SET note_user = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		noteVal, time.Now().UTC(), userID, id,
	)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetPhoto(ctx, userID, id)
}

// SetOverride stores a location override and recomputes the displayed place.
// A labeled override replaces the display; a coords-only override keeps the
// auto-derived place visible.
func (s *Store) SetOverride(ctx context.Context, userID, id string, ov photo.Override) (*photo.Record, error) {
	rec, err := s.GetPhoto(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rec.LocationOverride = &ov
	rec.PlaceDisplay = rec.DisplayPlace()
	return s.saveLocation(ctx, rec)
}

// ClearOverride removes the override and restores the auto-derived place.
func (s *Store) ClearOverride(ctx context.Context, userID, id string) (*photo.Record, error) {
	rec, err := s.GetPhoto(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rec.LocationOverride = nil
	rec.PlaceDisplay = rec.PlaceAuto
	return s.saveLocation(ctx, rec)
}

func (s *Store) saveLocation(ctx context.Context, rec *photo.Record) (*photo.Record, error) {
	display, err := marshalNullable(rec.PlaceDisplay)
	if err != nil {
		return nil, err
	}
	override, err := marshalNullable(rec.LocationOverride)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE photo SET place_display = ?, location_override = ?, updated_at = ? WHERE user_id = ? AND id = ?",
		display, override, time.Now().UTC(), rec.UserID, rec.ID,
	)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetPhoto(ctx, rec.UserID, rec.ID)
}

// ListProcessingBefore returns photos still processing that were created at or
// before the cutoff. The simulator promotes these to ready.
func (s *Store) ListProcessingBefore(ctx context.Context, cutoff time.Time) ([]photo.Record, error) {
	var rows []photoRow
	query := "SELECT " + photoColumns + " FROM photo WHERE status = ? AND created_at <= ?"
	if err := s.db.SelectContext(ctx, &rows, query, string(photo.StatusProcessing), cutoff); err != nil {
		return nil, err
	}
	records := make([]photo.Record, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, nil
}

// MarkReady promotes a photo out of processing, filling in the derived fields
// a real pipeline would produce.
func (s *Store) MarkReady(ctx context.Context, rec *photo.Record) error {
	variants, err := json.Marshal(rec.Variants)
	if err != nil {
		return err
	}
	display, err := marshalNullable(rec.PlaceDisplay)
	if err != nil {
		return err
	}
	auto, err := marshalNullable(rec.PlaceAuto)
	if err != nil {
		return err
	}
	caption := sql.NullString{String: rec.CaptionAI, Valid: rec.CaptionAI != ""}
	res, err := s.db.ExecContext(ctx,
		"UPDATE photo SET status = ?, variants = ?, caption_ai = ?, place_auto = ?, place_display = ?, updated_at = ? WHERE user_id = ? AND id = ? AND status = ?",
		string(photo.StatusReady), string(variants), caption, auto, display,
		time.Now().UTC(), rec.UserID, rec.ID, string(photo.StatusProcessing),
	)
	if err != nil {
		return err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSettings returns the user's settings, creating the row with defaults on
// first access.
func (s *Store) GetSettings(ctx context.Context, userID string) (*photo.Settings, error) {
	settings, err := s.fetchSettings(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO user_settings (user_id, detail_only, slideshow_interval_sec, updated_at) VALUES (?, ?, ?, ?)",
		userID, false, photo.DefaultIntervalSec, now,
	)
	if err != nil {
		return nil, err
	}
	return s.fetchSettings(ctx, userID)
}

func (s *Store) PatchSettings(ctx context.Context, userID string, patch photo.SettingsPatch) (*photo.Settings, error) {
	current, err := s.GetSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch.DetailOnly != nil {
		current.DetailOnly = *patch.DetailOnly
	}
	if patch.SlideshowIntervalSec != nil {
		if err := photo.ValidateInterval(*patch.SlideshowIntervalSec); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		current.SlideshowIntervalSec = *patch.SlideshowIntervalSec
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE user_settings SET detail_only = ?, slideshow_interval_sec = ?, updated_at = ? WHERE user_id = ?",
		current.DetailOnly, current.SlideshowIntervalSec, time.Now().UTC(), userID,
	)
	if err != nil {
		return nil, err
	}
	return s.fetchSettings(ctx, userID)
}

type settingsRow struct {
	UserID               string    `db:"user_id"`
	DetailOnly           bool      `db:"detail_only"`
	SlideshowIntervalSec int       `db:"slideshow_interval_sec"`
	UpdatedAt            time.Time `db:"updated_at"`
}

func (s *Store) fetchSettings(ctx context.Context, userID string) (*photo.Settings, error) {
	var row settingsRow
	err := s.db.GetContext(ctx, &row,
		"SELECT user_id, detail_only, slideshow_interval_sec, updated_at FROM user_settings WHERE user_id = ?", userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &photo.Settings{
		UserID:               row.UserID,
		DetailOnly:           row.DetailOnly,
		SlideshowIntervalSec: row.SlideshowIntervalSec,
		UpdatedAt:            row.UpdatedAt,
	}, nil
}

func (r *photoRow) toRecord() (*photo.Record, error) {
	rec := photo.Record{
		ID:         r.ID,
		UserID:     r.UserID,
		StorageKey: r.StorageKey,
		CaptionAI:  r.CaptionAI.String,
		NoteUser:   r.NoteUser.String,
		Status:     photo.Status(r.Status),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(r.Variants), &rec.Variants); err != nil {
		return nil, fmt.Errorf("photo %s: decode variants: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(r.Exif), &rec.Exif); err != nil {
		return nil, fmt.Errorf("photo %s: decode exif: %w", r.ID, err)
	}
	if err := unmarshalNullable(r.PlaceAuto, &rec.PlaceAuto); err != nil {
		return nil, fmt.Errorf("photo %s: decode place_auto: %w", r.ID, err)
	}
	if err := unmarshalNullable(r.PlaceDisplay, &rec.PlaceDisplay); err != nil {
		return nil, fmt.Errorf("photo %s: decode place_display: %w", r.ID, err)
	}
	if err := unmarshalNullable(r.LocationOverride, &rec.LocationOverride); err != nil {
		return nil, fmt.Errorf("photo %s: decode location_override: %w", r.ID, err)
	}
	return &rec, nil
}

func toRow(rec *photo.Record) (*photoRow, error) {
	variants, err := json.Marshal(rec.Variants)
	if err != nil {
		return nil, err
	}
	exif, err := json.Marshal(rec.Exif)
	if err != nil {
		return nil, err
	}
	auto, err := marshalNullable(rec.PlaceAuto)
	if err != nil {
		return nil, err
	}
	display, err := marshalNullable(rec.PlaceDisplay)
	if err != nil {
		return nil, err
	}
	override, err := marshalNullable(rec.LocationOverride)
	if err != nil {
		return nil, err
	}
	return &photoRow{
		ID:               rec.ID,
		UserID:           rec.UserID,
		StorageKey:       rec.StorageKey,
		Variants:         string(variants),
		CaptionAI:        sql.NullString{String: rec.CaptionAI, Valid: rec.CaptionAI != ""},
		NoteUser:         sql.NullString{String: rec.NoteUser, Valid: rec.NoteUser != ""},
		Exif:             string(exif),
		PlaceAuto:        auto,
		PlaceDisplay:     display,
		LocationOverride: override,
		Status:           string(rec.Status),
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}, nil
}

func marshalNullable[T any](v *T) (sql.NullString, error) {
	if v == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalNullable[T any](src sql.NullString, dst **T) error {
	if !src.Valid || src.String == "" || src.String == "null" {
		*dst = nil
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(src.String), &v); err != nil {
		return err
	}
	*dst = &v
	return nil
}
