package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration for the UniSpaces API.
// Values are injected into services at construction time rather than looked
// up ambiently.
type Config struct {
	HTTPPort      int
	SQLiteDSN     string
	SessionSecret string
	SessionTTL    time.Duration

	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	// PlannerTimeout bounds the single synchronous call to the language
	// model; planner requests never hang indefinitely.
	PlannerTimeout time.Duration

	// PresenceFreshness is the window within which a participant still counts
	// as present.
	PresenceFreshness time.Duration
	// StudyingThreshold separates "studying" from "idle" status.
	StudyingThreshold time.Duration
	// MessagePollLimit caps messages returned per poll.
	MessagePollLimit int

	// RateLimitPerMinute caps chat and planner posts per user.
	RateLimitPerMinute int

	AllowedOrigins []string
}

// Load parses configuration from the current process environment, applying
// defaults for optional fields and validating required ones.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:           8080,
		SQLiteDSN:          "file:unispaces.db?_foreign_keys=on",
		SessionTTL:         24 * time.Hour,
		GeminiModel:        "gemini-2.0-flash",
		PlannerTimeout:     30 * time.Second,
		PresenceFreshness:  5 * time.Minute,
		StudyingThreshold:  time.Minute,
		MessagePollLimit:   50,
		RateLimitPerMinute: 60,
		AllowedOrigins:     []string{"http://localhost:3000"},
	}

	var missing, invalid []string

	if value := strings.TrimSpace(os.Getenv("UNISPACES_HTTP_PORT")); value != "" {
		port, err := strconv.Atoi(value)
		if err != nil || port <= 0 {
			invalid = append(invalid, "UNISPACES_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("UNISPACES_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if secret := strings.TrimSpace(os.Getenv("UNISPACES_SESSION_SECRET")); secret == "" {
		missing = append(missing, "UNISPACES_SESSION_SECRET")
	} else {
		cfg.SessionSecret = secret
	}

	if value := strings.TrimSpace(os.Getenv("UNISPACES_SESSION_TTL")); value != "" {
		ttl, err := time.ParseDuration(value)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "UNISPACES_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if key := strings.TrimSpace(os.Getenv("UNISPACES_GEMINI_API_KEY")); key == "" {
		missing = append(missing, "UNISPACES_GEMINI_API_KEY")
	} else {
		cfg.GeminiAPIKey = key
	}

	if model := strings.TrimSpace(os.Getenv("UNISPACES_GEMINI_MODEL")); model != "" {
		cfg.GeminiModel = model
	}

	if base := strings.TrimSpace(os.Getenv("UNISPACES_GEMINI_BASE_URL")); base != "" {
		cfg.GeminiBaseURL = base
	}

	if value := strings.TrimSpace(os.Getenv("UNISPACES_PLANNER_TIMEOUT")); value != "" {
		timeout, err := time.ParseDuration(value)
		if err != nil || timeout <= 0 {
			invalid = append(invalid, "UNISPACES_PLANNER_TIMEOUT")
		} else {
			cfg.PlannerTimeout = timeout
		}
	}

	if value := strings.TrimSpace(os.Getenv("UNISPACES_PRESENCE_FRESHNESS")); value != "" {
		window, err := time.ParseDuration(value)
		if err != nil || window <= 0 {
			invalid = append(invalid, "UNISPACES_PRESENCE_FRESHNESS")
		} else {
			cfg.PresenceFreshness = window
		}
	}

	if value := strings.TrimSpace(os.Getenv("UNISPACES_STUDYING_THRESHOLD")); value != "" {
		threshold, err := time.ParseDuration(value)
		if err != nil || threshold <= 0 {
			invalid = append(invalid, "UNISPACES_STUDYING_THRESHOLD")
		} else {
			cfg.StudyingThreshold = threshold
		}
	}

	if value := strings.TrimSpace(os.Getenv("UNISPACES_MESSAGE_POLL_LIMIT")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "UNISPACES_MESSAGE_POLL_LIMIT")
		} else {
			cfg.MessagePollLimit = limit
		}
	}

	if value := strings.TrimSpace(os.Getenv("UNISPACES_RATE_LIMIT_PER_MINUTE")); value != "" {
		limit, err := strconv.Atoi(value)
		if err != nil || limit <= 0 {
			invalid = append(invalid, "UNISPACES_RATE_LIMIT_PER_MINUTE")
		} else {
			cfg.RateLimitPerMinute = limit
		}
	}

	if value := strings.TrimSpace(os.Getenv("UNISPACES_ALLOWED_ORIGINS")); value != "" {
		origins := strings.Split(value, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.AllowedOrigins = origins
	}

	if len(missing) > 0 {
		return Config{}, fmt.Errorf("required environment variables are not set: %s", strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("environment variables have invalid values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
