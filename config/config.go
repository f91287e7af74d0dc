package config

import (
	"encoding/json"
	"log"
	"os"
	"strconv"
)

// Config holds all configurable server parameters. These are the only
// tunables the server exposes; everything else about room/clock/queue
// behavior is fixed.
type Config struct {
	DisconnectGraceMS  int    `json:"disconnect_grace_ms"`
	RoomTTLAfterEndMS  int    `json:"room_ttl_after_end_ms"`
	PingIntervalMS     int    `json:"ping_interval_ms"`
	DefaultTimeControl string `json:"default_time_control"`

	MaxNameLength int `json:"max_name_length"`
	WSPort        int `json:"ws_port"`

	// DatabaseURL is the Postgres connection string. Empty disables persistence.
	DatabaseURL string `json:"-"`
}

// Defaults returns a Config with all default values from the spec.
func Defaults() *Config {
	return &Config{
		DisconnectGraceMS:  60_000,
		RoomTTLAfterEndMS:  300_000,
		PingIntervalMS:     30_000,
		DefaultTimeControl: "5+0",
		MaxNameLength:      24,
		WSPort:             8080,
	}
}

// Load reads configuration from an optional config.json file, then applies
// environment variable overrides. Fields not set in either source retain
// their default values.
func Load() *Config {
	cfg := Defaults()

	if f, err := os.Open("config.json"); err == nil {
		defer f.Close()
		if err := json.NewDecoder(f).Decode(cfg); err != nil {
			log.Printf("Warning: failed to parse config.json: %v", err)
		}
	}

	overrideInt(&cfg.DisconnectGraceMS, "DISCONNECT_GRACE_MS")
	overrideInt(&cfg.RoomTTLAfterEndMS, "ROOM_TTL_AFTER_END_MS")
	overrideInt(&cfg.PingIntervalMS, "PING_INTERVAL_MS")
	overrideString(&cfg.DefaultTimeControl, "DEFAULT_TIME_CONTROL")
	overrideInt(&cfg.MaxNameLength, "MAX_NAME_LENGTH")
	overrideInt(&cfg.WSPort, "WS_PORT")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")

	return cfg
}

func overrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*field = n
		} else {
			log.Printf("Warning: invalid value for %s: %q", envKey, val)
		}
	}
}

func overrideString(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}
