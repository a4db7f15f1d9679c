package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/NetoRibeiro/photodisplay/internal/config"
	"github.com/NetoRibeiro/photodisplay/internal/photo"
	"github.com/NetoRibeiro/photodisplay/internal/swaggerui"
)

// Server is the bundled development backend. It serves the same REST surface
// the hosted API does, backed by sqlite and placeholder media.
type Server struct {
	cfg    *config.Server
	store  *Store
	logger *slog.Logger
}

var (
	openapiOnce sync.Once
	openapiData []byte
	openapiErr  error
)

func loadOpenAPI() ([]byte, error) {
	openapiOnce.Do(func() {
		path := filepath.Clean("openapi.yaml")
		openapiData, openapiErr = os.ReadFile(path)
	})
	return openapiData, openapiErr
}

func NewRouter(cfg *config.Server, st *Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	}
	s := &Server{cfg: cfg, store: st, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(loggingMiddleware(logger))

	if len(cfg.CORSAllowedOrigins) > 0 {
		c := cors.New(cors.Options{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "Accept"},
			AllowCredentials: true,
		})
		r.Use(c.Handler)
	}

	r.Get("/healthz", s.GetHealthz)
	r.Get("/readyz", s.GetReadyz)
	r.Get(cfg.OpenAPIPath, s.serveOpenAPI)
	r.Mount(cfg.SwaggerUIPath, swaggerui.Handler(cfg.OpenAPIPath))

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware())
		r.Get("/api/photos", s.ListPhotos)
		r.Post("/api/photos", s.CreatePhoto)
		r.Get("/api/photos/{id}", s.GetPhoto)
		r.Patch("/api/photos/{id}/note", s.UpdateNote)
		r.Patch("/api/photos/{id}/location", s.UpdateLocation)
		r.Delete("/api/photos/{id}/location/override", s.DeleteLocationOverride)
		r.Get("/api/settings", s.GetSettings)
		r.Patch("/api/settings", s.UpdateSettings)
	})

	r.Get("/media/{id}/{variant}", s.GetMediaVariant)

	return r
}

func (s *Server) authMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch s.cfg.AuthMode {
			case config.AuthNone:
				next.ServeHTTP(w, r)
			case config.AuthBearer:
				if bearerToken(r.Header.Get("Authorization")) == s.cfg.Token {
					next.ServeHTTP(w, r)
					return
				}
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
			default:
				writeError(w, http.StatusUnauthorized, "unauthorized", "auth mode not supported")
			}
		})
	}
}

func (s *Server) serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	data, err := loadOpenAPI()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "unable to load openapi.yaml")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type health struct {
	Status string `json:"status"`
}

func (s *Server) GetHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, health{Status: "ok"})
}

func (s *Server) GetReadyz(w http.ResponseWriter, _ *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.store.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, health{Status: "ok"})
}

func (s *Server) ListPhotos(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.ListPhotos(r.Context(), s.cfg.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to list photos")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// createPhotoRequest seeds a photo for local development. The hosted API
// ingests uploads instead; here a description of the photo is enough.
type createPhotoRequest struct {
	StorageKey string       `json:"storageKey"`
	CaptionAI  string       `json:"captionAi,omitempty"`
	NoteUser   string       `json:"noteUser,omitempty"`
	Exif       photo.Exif   `json:"exif"`
	PlaceAuto  *photo.Place `json:"placeAuto,omitempty"`
	Ready      bool         `json:"ready,omitempty"`
}

func (s *Server) CreatePhoto(w http.ResponseWriter, r *http.Request) {
	var req createPhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if req.StorageKey == "" {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", "storageKey is required")
		return
	}
	if err := photo.ValidateNote(req.NoteUser); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}

	now := time.Now().UTC()
	rec := photo.Record{
		ID:         uuid.NewString(),
		UserID:     s.cfg.UserID,
		StorageKey: req.StorageKey,
		Variants:   []string{},
		CaptionAI:  req.CaptionAI,
		NoteUser:   req.NoteUser,
		Exif:       req.Exif,
		PlaceAuto:  req.PlaceAuto,
		Status:     photo.StatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if req.Ready {
		Enrich(&rec)
	} else {
		rec.PlaceDisplay = rec.DisplayPlace()
	}

	created, err := s.store.CreatePhoto(r.Context(), &rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to persist photo")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) GetPhoto(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetPhoto(r.Context(), s.cfg.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err, "photo not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type notePatch struct {
	Note string `json:"note"`
}

func (s *Server) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var payload notePatch
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if err := photo.ValidateNote(payload.Note); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	rec, err := s.store.UpdateNote(r.Context(), s.cfg.UserID, chi.URLParam(r, "id"), payload.Note)
	if err != nil {
		s.writeStoreError(w, err, "photo not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type locationPatch struct {
	Type  photo.OverrideType `json:"type"`
	Label string             `json:"label,omitempty"`
	Lat   *float64           `json:"lat,omitempty"`
	Lon   *float64           `json:"lon,omitempty"`
}

func (s *Server) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	var payload locationPatch
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	ov := photo.Override{
		Type:   payload.Type,
		Label:  strings.TrimSpace(payload.Label),
		Lat:    payload.Lat,
		Lon:    payload.Lon,
		Source: "user",
	}
	if err := ov.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
		return
	}
	rec, err := s.store.SetOverride(r.Context(), s.cfg.UserID, chi.URLParam(r, "id"), ov)
	if err != nil {
		s.writeStoreError(w, err, "photo not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) DeleteLocationOverride(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.ClearOverride(r.Context(), s.cfg.UserID, chi.URLParam(r, "id"))
	if err != nil {
		s.writeStoreError(w, err, "photo not found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.store.GetSettings(r.Context(), s.cfg.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "failed to load settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch photo.SettingsPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid json")
		return
	}
	if patch.SlideshowIntervalSec != nil {
		if err := photo.ValidateInterval(*patch.SlideshowIntervalSec); err != nil {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
	}
	settings, err := s.store.PatchSettings(r.Context(), s.cfg.UserID, patch)
	if err != nil {
		if errors.Is(err, ErrInvalid) {
			writeError(w, http.StatusUnprocessableEntity, "validation_error", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "failed to update settings")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) GetMediaVariant(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	variant := chi.URLParam(r, "variant")

	rec, err := s.store.GetPhoto(r.Context(), s.cfg.UserID, id)
	if err != nil {
		s.writeStoreError(w, err, "photo not found")
		return
	}
	if !rec.Ready() {
		writeError(w, http.StatusNotFound, "not_found", "photo is still processing")
		return
	}

	etag := fmt.Sprintf("%q", id+"-"+variant)
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	data, err := RenderPlaceholder(id, variant)
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "variant not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error, notFoundMsg string) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", notFoundMsg)
		return
	}
	s.logger.Error("store failure", "error", err)
	writeError(w, http.StatusInternalServerError, "internal", "storage failure")
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Code: code, Message: message})
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Info("request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start).String())
		})
	}
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
