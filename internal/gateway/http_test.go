package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

func TestListPhotos(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/photos" || r.Method != http.MethodGet {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Fatalf("missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]photo.Record{{ID: "p1", Status: photo.StatusReady}})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, WithToken("secret"))
	photos, err := c.ListPhotos(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(photos) != 1 || photos[0].ID != "p1" {
		t.Fatalf("unexpected photos %+v", photos)
	}
}

func TestUpdateNoteSendsBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/api/photos/p1/note" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body struct {
			Note string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body.Note != "hello" {
			t.Fatalf("expected note %q, got %q", "hello", body.Note)
		}
		_ = json.NewEncoder(w).Encode(photo.Record{ID: "p1", NoteUser: body.Note})
	}))
	defer ts.Close()

	rec, err := NewClient(ts.URL).UpdateNote(context.Background(), "p1", "hello")
	if err != nil {
		t.Fatalf("update note: %v", err)
	}
	if rec.NoteUser != "hello" {
		t.Fatalf("expected echoed note, got %q", rec.NoteUser)
	}
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		check  func(error) bool
	}{
		{"not found", http.StatusNotFound, `{"code":"not_found","message":"photo not found"}`, func(err error) bool { return errors.Is(err, ErrNotFound) }},
		{"auth", http.StatusUnauthorized, ``, func(err error) bool { return errors.Is(err, ErrAuthRequired) }},
		{"validation", http.StatusBadRequest, `{"code":"validation_error","message":"note too long"}`, func(err error) bool {
			var ve *ValidationError
			return errors.As(err, &ve) && ve.Reason == "note too long"
		}},
		{"server error", http.StatusInternalServerError, `boom`, func(err error) bool {
			var re *RequestError
			return errors.As(err, &re) && re.Status == http.StatusInternalServerError
		}},
	}

	for _, tc := range cases {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(tc.body))
		}))
		_, err := NewClient(ts.URL).GetPhoto(context.Background(), "p1")
		ts.Close()
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.check(err) {
			t.Fatalf("%s: wrong error kind: %v", tc.name, err)
		}
	}
}

func TestTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	ts.Close() // connection refused from here on

	_, err := NewClient(ts.URL).ListPhotos(context.Background())
	var re *RequestError
	if !errors.As(err, &re) || re.Status != 0 {
		t.Fatalf("expected transport RequestError, got %v", err)
	}
}

func TestUpdateSettingsPatchOmitsUnsetFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, present := raw["detailOnly"]; present {
			t.Fatalf("detailOnly should be omitted, got %v", raw)
		}
		if v, ok := raw["slideshowIntervalSec"].(float64); !ok || v != 10 {
			t.Fatalf("expected interval 10, got %v", raw)
		}
		_ = json.NewEncoder(w).Encode(photo.Settings{UserID: "u", SlideshowIntervalSec: 10})
	}))
	defer ts.Close()

	interval := 10
	got, err := NewClient(ts.URL).UpdateSettings(context.Background(), photo.SettingsPatch{SlideshowIntervalSec: &interval})
	if err != nil {
		t.Fatalf("update settings: %v", err)
	}
	if got.SlideshowIntervalSec != 10 {
		t.Fatalf("expected full settings back, got %+v", got)
	}
}
