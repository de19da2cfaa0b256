// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// secretKeyLen is the AES-256 key size in bytes.
const secretKeyLen = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIBaseURL   string
	ListenAddr   string
	DBPath       string
	SecretKey    []byte
	SessionTTL   time.Duration
	APITimeout   time.Duration
	CookieSecure bool
}

// Load reads configuration from environment variables and returns a validated Config.
// A .env file in the working directory, when present, is loaded first; variables
// already set in the environment take precedence over it.
//
// Required: ENVPANEL_API_BASE_URL (absolute URL of the node API) and
// ENVPANEL_SECRET_KEY (64 hex chars). Optional variables with defaults:
// ENVPANEL_LISTEN_ADDR (127.0.0.1:8080), ENVPANEL_DB_PATH (envpanel.db),
// ENVPANEL_SESSION_TTL (12h), ENVPANEL_API_TIMEOUT (10s),
// ENVPANEL_COOKIE_SECURE (false).
func Load() (*Config, error) {
	_ = godotenv.Load()

	baseURL := os.Getenv("ENVPANEL_API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("ENVPANEL_API_BASE_URL is required")
	}
	if u, err := url.Parse(baseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("ENVPANEL_API_BASE_URL must be an absolute URL, got %q", baseURL)
	}

	secretKey, err := parseSecretKey(os.Getenv("ENVPANEL_SECRET_KEY"))
	if err != nil {
		return nil, err
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("ENVPANEL_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	dbPath := "envpanel.db"
	if v, ok := os.LookupEnv("ENVPANEL_DB_PATH"); ok {
		dbPath = v
	}

	sessionTTL, err := durationEnv("ENVPANEL_SESSION_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}

	apiTimeout, err := durationEnv("ENVPANEL_API_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	if apiTimeout <= 0 {
		return nil, fmt.Errorf("ENVPANEL_API_TIMEOUT must be positive, got %s", apiTimeout)
	}

	cookieSecure := false
	if v, ok := os.LookupEnv("ENVPANEL_COOKIE_SECURE"); ok && v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("ENVPANEL_COOKIE_SECURE has invalid boolean %q: %w", v, err)
		}
		cookieSecure = parsed
	}

	return &Config{
		APIBaseURL:   baseURL,
		ListenAddr:   listenAddr,
		DBPath:       dbPath,
		SecretKey:    secretKey,
		SessionTTL:   sessionTTL,
		APITimeout:   apiTimeout,
		CookieSecure: cookieSecure,
	}, nil
}

func parseSecretKey(v string) ([]byte, error) {
	if v == "" {
		return nil, fmt.Errorf("ENVPANEL_SECRET_KEY is required (64 hex chars)")
	}
	key, err := hex.DecodeString(v)
	if err != nil {
		return nil, fmt.Errorf("ENVPANEL_SECRET_KEY must be hex-encoded: %w", err)
	}
	if len(key) != secretKeyLen {
		return nil, fmt.Errorf("ENVPANEL_SECRET_KEY must decode to %d bytes, got %d", secretKeyLen, len(key))
	}
	return key, nil
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return parsed, nil
}
