package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/voxdesk/client/internal/service/governor"
)

// Config aggregates every setting for the client core.
type Config struct {
	Server ServerConfig
	Events EventsConfig
	Stream StreamConfig
	Store  StoreConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	st, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Events: EventsConfig{URL: strings.TrimSpace(os.Getenv("VOXDESK_EVENTS_URL"))},
		Stream: StreamConfig{URL: strings.TrimSpace(os.Getenv("VOXDESK_STREAM_URL"))},
		Store:  st,
	}, nil
}

// ServerConfig describes the local status HTTP surface.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8990"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8990" or "127.0.0.1:8990" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: "127.0.0.1:" + port}, nil
}

// EventsConfig describes the message/heartbeat push channel.
type EventsConfig struct {
	URL string
}

// Enabled reports whether a push endpoint was configured.
func (c EventsConfig) Enabled() bool {
	return c.URL != ""
}

// StreamConfig describes the audio/speech push channel.
type StreamConfig struct {
	URL string
}

// Enabled reports whether a stream endpoint was configured.
func (c StreamConfig) Enabled() bool {
	return c.URL != ""
}

// StoreConfig describes the persisted store and its byte budget.
type StoreConfig struct {
	Path        string
	BudgetBytes int
}

func loadStoreConfig() (StoreConfig, error) {
	path := strings.TrimSpace(os.Getenv("VOXDESK_STORE_PATH"))
	if path == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			base = "."
		}
		path = filepath.Join(base, "voxdesk", "store.json")
	}

	budget := governor.DefaultBudgetBytes
	if override, err := parseOptionalIntEnv("VOXDESK_STORE_BUDGET_BYTES"); err != nil {
		return StoreConfig{}, err
	} else if override != nil {
		if *override <= 0 {
			return StoreConfig{}, fmt.Errorf("VOXDESK_STORE_BUDGET_BYTES must be positive, got %d", *override)
		}
		budget = *override
	}

	return StoreConfig{Path: path, BudgetBytes: budget}, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
