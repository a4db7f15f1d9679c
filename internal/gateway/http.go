package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/NetoRibeiro/photodisplay/internal/photo"
)

const defaultTimeout = 15 * time.Second

// Client talks to the photo API over HTTP. It implements Gateway.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListPhotos(ctx context.Context) ([]photo.Record, error) {
	var out []photo.Record
	if err := c.do(ctx, http.MethodGet, "/api/photos", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetPhoto(ctx context.Context, id string) (*photo.Record, error) {
	var out photo.Record
	if err := c.do(ctx, http.MethodGet, "/api/photos/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateNote(ctx context.Context, id, text string) (*photo.Record, error) {
	body := struct {
		Note string `json:"note"`
	}{Note: text}
	var out photo.Record
	if err := c.do(ctx, http.MethodPatch, "/api/photos/"+url.PathEscape(id)+"/note", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateLocation(ctx context.Context, id string, payload LocationPayload) (*photo.Record, error) {
	var out photo.Record
	if err := c.do(ctx, http.MethodPatch, "/api/photos/"+url.PathEscape(id)+"/location", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteLocationOverride(ctx context.Context, id string) (*photo.Record, error) {
	var out photo.Record
	if err := c.do(ctx, http.MethodDelete, "/api/photos/"+url.PathEscape(id)+"/location/override", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetSettings(ctx context.Context) (*photo.Settings, error) {
	var out photo.Settings
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateSettings(ctx context.Context, patch photo.SettingsPatch) (*photo.Settings, error) {
	var out photo.Settings
	if err := c.do(ctx, http.MethodPatch, "/api/settings", patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// apiError mirrors the server's error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &RequestError{Op: op, Err: fmt.Errorf("encode body: %w", err)}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &RequestError{Op: op, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(op, resp.StatusCode, data)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return &RequestError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
		}
	}
	return nil
}

func (c *Client) statusError(op string, status int, body []byte) error {
	var apiErr apiError
	_ = json.Unmarshal(body, &apiErr)
	msg := apiErr.Message
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status == http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", op, ErrAuthRequired)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return &ValidationError{Reason: msg}
	default:
		return &RequestError{Op: op, Status: status, Err: fmt.Errorf("%s", msg)}
	}
}
