package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures environment driven configuration for the pickup service.
type Config struct {
	HTTPPort       int
	SQLiteDSN      string
	SessionTTL     time.Duration
	AllowedDomains []string
}

// Load parses configuration values from the current process environment,
// applying defaults for optional fields and reporting invalid entries.
func Load() (Config, error) {
	cfg := Config{
		HTTPPort:       8080,
		SQLiteDSN:      "file:pickup.db",
		SessionTTL:     24 * time.Hour,
		AllowedDomains: []string{".edu"},
	}

	invalid := make([]string, 0, 2)

	if portValue := strings.TrimSpace(os.Getenv("PICKUP_HTTP_PORT")); portValue != "" {
		port, err := strconv.Atoi(portValue)
		if err != nil || port <= 0 {
			invalid = append(invalid, "PICKUP_HTTP_PORT")
		} else {
			cfg.HTTPPort = port
		}
	}

	if dsn := strings.TrimSpace(os.Getenv("PICKUP_SQLITE_DSN")); dsn != "" {
		cfg.SQLiteDSN = dsn
	}

	if ttlValue := strings.TrimSpace(os.Getenv("PICKUP_SESSION_TTL")); ttlValue != "" {
		ttl, err := time.ParseDuration(ttlValue)
		if err != nil || ttl <= 0 {
			invalid = append(invalid, "PICKUP_SESSION_TTL")
		} else {
			cfg.SessionTTL = ttl
		}
	}

	if domains := strings.TrimSpace(os.Getenv("PICKUP_ALLOWED_EMAIL_DOMAINS")); domains != "" {
		parsed := make([]string, 0, 2)
		for _, domain := range strings.Split(domains, ",") {
			if trimmed := strings.TrimSpace(domain); trimmed != "" {
				parsed = append(parsed, trimmed)
			}
		}
		if len(parsed) == 0 {
			invalid = append(invalid, "PICKUP_ALLOWED_EMAIL_DOMAINS")
		} else {
			cfg.AllowedDomains = parsed
		}
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}
