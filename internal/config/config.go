package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIBase            = "http://localhost:8080"
	DefaultBind               = ":8080"
	DefaultDBPath             = "photodisplay.db"
	DefaultUserID             = "local"
	DefaultHTTPTimeoutSec     = 15
	DefaultProcessingDelaySec = 5
	DefaultUndoWindowSec      = 5
)

type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthBearer AuthMode = "bearer"
)

// Client configures the photodisplay CLI.
type Client struct {
	APIBase        string
	Token          string
	ProfilesFile   string
	Profile        string
	HTTPTimeoutSec int
	UndoWindowSec  int
	LogLevel       string
}

// Server configures the bundled dev server.
type Server struct {
	Bind               string
	DBPath             string
	AuthMode           AuthMode
	Token              string
	UserID             string
	ProcessingDelaySec int
	CORSAllowedOrigins []string
	SwaggerUIPath      string
	OpenAPIPath        string
	LogLevel           string
}

// LoadClient reads the CLI configuration from the environment, with an
// optional .env file.
func LoadClient() (*Client, error) {
	_ = godotenv.Load()

	cfg := &Client{
		APIBase:        getenv("PHOTODISPLAY_API_BASE", DefaultAPIBase),
		Token:          os.Getenv("PHOTODISPLAY_TOKEN"),
		ProfilesFile:   os.Getenv("PHOTODISPLAY_PROFILES_FILE"),
		Profile:        os.Getenv("PHOTODISPLAY_PROFILE"),
		HTTPTimeoutSec: getInt("PHOTODISPLAY_HTTP_TIMEOUT_SEC", DefaultHTTPTimeoutSec),
		UndoWindowSec:  getInt("PHOTODISPLAY_UNDO_WINDOW_SEC", DefaultUndoWindowSec),
		LogLevel:       os.Getenv("PHOTODISPLAY_LOG_LEVEL"),
	}

	if cfg.Profile != "" && cfg.ProfilesFile == "" {
		return nil, fmt.Errorf("PHOTODISPLAY_PROFILES_FILE is required when PHOTODISPLAY_PROFILE is set")
	}
	if cfg.HTTPTimeoutSec <= 0 {
		return nil, fmt.Errorf("PHOTODISPLAY_HTTP_TIMEOUT_SEC must be positive")
	}
	if cfg.UndoWindowSec <= 0 {
		return nil, fmt.Errorf("PHOTODISPLAY_UNDO_WINDOW_SEC must be positive")
	}
	return cfg, nil
}

// LoadServer reads the dev server configuration from the environment.
func LoadServer() (*Server, error) {
	_ = godotenv.Load()

	cfg := &Server{
		Bind:               getenv("PHOTODISPLAY_BIND", DefaultBind),
		DBPath:             getenv("PHOTODISPLAY_DB_PATH", DefaultDBPath),
		AuthMode:           AuthMode(getenv("PHOTODISPLAY_AUTH_MODE", string(AuthNone))),
		Token:              os.Getenv("PHOTODISPLAY_TOKEN"),
		UserID:             getenv("PHOTODISPLAY_USER_ID", DefaultUserID),
		ProcessingDelaySec: getInt("PHOTODISPLAY_PROCESSING_DELAY_SEC", DefaultProcessingDelaySec),
		CORSAllowedOrigins: splitAndTrim(os.Getenv("PHOTODISPLAY_CORS_ALLOWED_ORIGINS")),
		SwaggerUIPath:      "/swagger",
		OpenAPIPath:        "/openapi.yaml",
		LogLevel:           os.Getenv("PHOTODISPLAY_LOG_LEVEL"),
	}

	switch cfg.AuthMode {
	case AuthNone, AuthBearer:
	default:
		return nil, fmt.Errorf("invalid PHOTODISPLAY_AUTH_MODE: %s", cfg.AuthMode)
	}
	if cfg.AuthMode == AuthBearer && cfg.Token == "" {
		return nil, fmt.Errorf("PHOTODISPLAY_TOKEN is required when PHOTODISPLAY_AUTH_MODE=bearer")
	}
	if cfg.ProcessingDelaySec < 0 {
		return nil, fmt.Errorf("PHOTODISPLAY_PROCESSING_DELAY_SEC must not be negative")
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}

func splitAndTrim(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
