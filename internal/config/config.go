package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	HTTPAddr string `yaml:"http_addr"`

	// Store is "memory" or "redis". Empty picks redis when RedisURL is set.
	Store          string `yaml:"store"`
	RedisURL       string `yaml:"redis_url"`
	RedisKeyPrefix string `yaml:"redis_key_prefix"`
	DatabaseURL    string `yaml:"database_url"`

	EventsRedis      bool   `yaml:"events_redis"`
	EventsWebhookURL string `yaml:"events_webhook_url"`
	EventsWSURL      string `yaml:"events_ws_url"`
	EventsEgress     string `yaml:"events_egress"`
	EventQueueSize   int    `yaml:"event_queue_size"`

	LeaderboardSize int           `yaml:"leaderboard_size"`
	ReadyWindow     time.Duration `yaml:"ready_window"`
	RematchWindow   time.Duration `yaml:"rematch_window"`
	SweepInterval   time.Duration `yaml:"rematch_sweep_interval"`

	SeedRooms   []string `yaml:"seed_rooms"`
	MessagesDir string   `yaml:"messages_dir"`
}

func defaults() *AppConfig {
	return &AppConfig{
		HTTPAddr:        ":8080",
		EventsRedis:     true,
		EventsEgress:    "http",
		EventQueueSize:  256,
		LeaderboardSize: 10,
		ReadyWindow:     60 * time.Second,
		RematchWindow:   30 * time.Second,
		SeedRooms:       []string{"Sala 1", "Sala 2", "Sala 3"},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE, then environment variables.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("STORE")); v != "" {
		cfg.Store = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_URL")); v != "" {
		cfg.RedisURL = v
	}
	if v := strings.TrimSpace(os.Getenv("REDIS_KEY_PREFIX")); v != "" {
		cfg.RedisKeyPrefix = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseURL = v
	}

	if v := strings.TrimSpace(os.Getenv("EVENTS_REDIS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.EventsRedis = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("EVENTS_WEBHOOK_URL")); v != "" {
		cfg.EventsWebhookURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTS_WS_URL")); v != "" {
		cfg.EventsWSURL = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTS_EGRESS")); v != "" {
		cfg.EventsEgress = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("EVENT_QUEUE_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EventQueueSize = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("RANKING_TOP_N")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LeaderboardSize = n
		}
	}
	if d, ok := envDuration("READY_WINDOW"); ok {
		cfg.ReadyWindow = d
	}
	if d, ok := envDuration("REMATCH_WINDOW"); ok {
		cfg.RematchWindow = d
	}
	if d, ok := envDuration("REMATCH_SWEEP_INTERVAL"); ok {
		cfg.SweepInterval = d
	}

	if v := strings.TrimSpace(os.Getenv("SEED_ROOMS")); v != "" {
		cfg.SeedRooms = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("MESSAGES_DIR")); v != "" {
		cfg.MessagesDir = v
	}

	if cfg.Store == "" {
		cfg.Store = "memory"
		if cfg.RedisURL != "" {
			cfg.Store = "redis"
		}
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *AppConfig) validate() error {
	switch c.Store {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required when STORE=redis")
		}
	default:
		return fmt.Errorf("unknown STORE %q", c.Store)
	}
	switch c.EventsEgress {
	case "http", "ws", "auto":
	default:
		return fmt.Errorf("unknown EVENTS_EGRESS %q", c.EventsEgress)
	}
	if c.ReadyWindow <= 0 || c.RematchWindow <= 0 {
		return errors.New("READY_WINDOW and REMATCH_WINDOW must be positive")
	}
	if c.SweepInterval < 0 {
		return errors.New("REMATCH_SWEEP_INTERVAL must not be negative")
	}
	return nil
}

// envDuration accepts a Go duration ("45s") or a number of seconds.
func envDuration(key string) (time.Duration, bool) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, true
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d, true
	}
	return 0, false
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
