// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/osa030/nostrbeat/internal/infra/events"
)

// Environment variables that override file values.
const (
	EnvRelays       = "NOSTRBEAT_RELAYS"
	EnvControlToken = "NOSTRBEAT_CONTROL_TOKEN"
	EnvStoreDSN     = "NOSTRBEAT_STORE_DSN"
)

// Config represents the application configuration.
type Config struct {
	Server   ServerConfig            `yaml:"server"`
	Control  ControlConfig           `yaml:"control"`
	Log      LogConfig               `yaml:"log"`
	Relays   RelaysConfig            `yaml:"relays"`
	Kinds    events.Kinds            `yaml:"kinds"`
	Store    StoreConfig             `yaml:"store"`
	Audio    AudioConfig             `yaml:"audio"`
	Playback PlaybackConfig          `yaml:"playback"`
	Library  LibraryConfig           `yaml:"library"`
	Filters  map[string]FilterConfig `yaml:"filters"`
}

// ServerConfig represents server configuration.
type ServerConfig struct {
	Addr        string `yaml:"addr" default:":8080"`
	MetricsAddr string `yaml:"metrics_addr"` // Separate listener for /metrics; empty serves it on Addr
	StateTickMs int    `yaml:"state_tick_ms" default:"1000" validate:"gte=0,lte=60000"`
}

// ControlConfig represents control-surface configuration.
type ControlConfig struct {
	Token string `yaml:"token"` // Required by ControlService when set
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn warning error"`
	File   string `yaml:"file"`
}

// RelaysConfig represents relay connection configuration.
type RelaysConfig struct {
	URLs         []string `yaml:"urls" validate:"required,min=1,dive,url"`
	TimeoutMs    int      `yaml:"timeout_ms" default:"5000" validate:"gte=100,lte=60000"`
	MaxRetries   int      `yaml:"max_retries" default:"2" validate:"gte=1,lte=10"`
	RetryDelayMs int      `yaml:"retry_delay_ms" default:"500" validate:"gte=0,lte=10000"`
}

// StoreConfig represents event cache configuration.
type StoreConfig struct {
	Driver               string `yaml:"driver" default:"sqlite" validate:"oneof=sqlite postgres none"`
	DSN                  string `yaml:"dsn"`
	TTLSeconds           int    `yaml:"ttl_seconds" default:"600" validate:"gte=1"`
	PruneIntervalSeconds int    `yaml:"prune_interval_seconds" default:"3600" validate:"gte=0"`
}

// AudioConfig represents audio output configuration.
type AudioConfig struct {
	SampleRate         int `yaml:"sample_rate" default:"44100" validate:"gte=8000,lte=192000"`
	BufferMs           int `yaml:"buffer_ms" default:"100" validate:"gte=10,lte=2000"`
	HTTPTimeoutSeconds int `yaml:"http_timeout_seconds" default:"60" validate:"gte=1"`
	MaxMB              int `yaml:"max_mb" default:"200" validate:"gte=1"`
	Quality            int `yaml:"quality" default:"4" validate:"gte=1,lte=6"`
}

// PlaybackConfig represents playback defaults.
type PlaybackConfig struct {
	DefaultVolume      float64 `yaml:"default_volume" default:"0.8" validate:"gte=0,lte=1"`
	DefaultRate        float64 `yaml:"default_rate" default:"1" validate:"gt=0,lte=4"`
	LoadTimeoutSeconds int     `yaml:"load_timeout_seconds" default:"30" validate:"gte=1"`
}

// LibraryConfig represents page producer configuration.
type LibraryConfig struct {
	ProfileTrackLimit int `yaml:"profile_track_limit" default:"100" validate:"gte=1,lte=500"`
}

// FilterConfig represents a filter's configuration.
type FilterConfig struct {
	Enabled  bool           `yaml:"enabled"`
	Settings map[string]any `yaml:"settings,omitempty"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}
	return Parse(data)
}

// Parse parses, defaults and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv(EnvRelays); v != "" {
		var urls []string
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
		c.Relays.URLs = urls
	}
	if v := os.Getenv(EnvControlToken); v != "" {
		c.Control.Token = v
	}
	if v := os.Getenv(EnvStoreDSN); v != "" {
		c.Store.DSN = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}

	if c.Store.Driver == "postgres" && c.Store.DSN == "" {
		return errors.New("store.dsn is required for the postgres driver")
	}
	if c.Kinds.Track == c.Kinds.Release {
		return errors.Newf("kinds.track and kinds.release must differ (both %d)", c.Kinds.Track)
	}
	return nil
}

// IsFilterEnabled checks if a filter is enabled.
func (c *Config) IsFilterEnabled(filterName string) bool {
	if f, ok := c.Filters[filterName]; ok {
		return f.Enabled
	}
	return false
}

// Timeout returns the per-relay query timeout.
func (r RelaysConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// RetryDelay returns the base delay between relay retries.
func (r RelaysConfig) RetryDelay() time.Duration {
	return time.Duration(r.RetryDelayMs) * time.Millisecond
}

// TTL returns the cache freshness window.
func (s StoreConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

// PruneInterval returns how often stale cache rows are deleted; 0 disables pruning.
func (s StoreConfig) PruneInterval() time.Duration {
	return time.Duration(s.PruneIntervalSeconds) * time.Second
}

// HTTPTimeout returns the audio download timeout.
func (a AudioConfig) HTTPTimeout() time.Duration {
	return time.Duration(a.HTTPTimeoutSeconds) * time.Second
}

// MaxBytes returns the largest accepted audio file.
func (a AudioConfig) MaxBytes() int64 {
	return int64(a.MaxMB) << 20
}

// LoadTimeout returns the upper bound for a single audio load.
func (p PlaybackConfig) LoadTimeout() time.Duration {
	return time.Duration(p.LoadTimeoutSeconds) * time.Second
}

// StateTick returns the position broadcast interval; 0 disables it.
func (s ServerConfig) StateTick() time.Duration {
	return time.Duration(s.StateTickMs) * time.Millisecond
}
