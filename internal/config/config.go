// Package config loads and validates the coordinator's configuration.
//
// Grounded on the teacher's internal/infrastructure/config and
// services/order-service/internal/infrastructure/config packages:
// viper loads a YAML file into a typed struct, environment variables
// override it, and Validate() fails fast at startup rather than
// letting a missing dependency surface as a runtime panic later
// (spec.md §6 "Exit codes").
//
// Per spec.md §9 ("No global mutable state... Avoid module-level
// singletons"), Config is built once in main and passed by reference
// into every constructor; there is no package-level Config variable.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Participant names recognized by the coordinator (spec.md §4.3/§6).
const (
	ParticipantOrder        = "order"
	ParticipantInventory     = "inventory"
	ParticipantPayment      = "payment"
	ParticipantShipping     = "shipping"
	ParticipantNotification = "notification"
)

// defaultPorts is the "convention" fallback of spec.md §6(c):
// http://<participant>-service:<port>.
var defaultPorts = map[string]int{
	ParticipantOrder:        8000,
	ParticipantInventory:    8001,
	ParticipantPayment:      8002,
	ParticipantShipping:     8003,
	ParticipantNotification: 8004,
}

// Order is the fixed step sequence of spec.md §4.3's table; iterating
// it (rather than ranging over the Participants map) keeps discovery
// and saga construction both deterministic.
var Order = []string{
	ParticipantOrder,
	ParticipantInventory,
	ParticipantPayment,
	ParticipantShipping,
	ParticipantNotification,
}

// Config is the coordinator's fully-resolved, immutable configuration.
type Config struct {
	Server       ServerConfig                 `mapstructure:"server"`
	Retry        RetryConfig                  `mapstructure:"retry"`
	Participants map[string]ParticipantConfig `mapstructure:"participants"`
	Journal      JournalConfig                `mapstructure:"journal"`
	HealthCache  HealthCacheConfig            `mapstructure:"health_cache"`
	Log          LogConfig                    `mapstructure:"log"`
	LocalDev     bool                         `mapstructure:"local_dev"`
}

// ServerConfig is the operator-facing HTTP surface (spec.md §6).
type ServerConfig struct {
	Port         int `mapstructure:"port"`
	PprofPort    int `mapstructure:"pprof_port"` // 0 disables pprof, matching teacher's cmd/api pattern
	ReadTimeout  int `mapstructure:"read_timeout_ms"`
	WriteTimeout int `mapstructure:"write_timeout_ms"`
}

// RetryConfig is the communicator's retry/backoff policy (spec.md §4.1).
type RetryConfig struct {
	MaxAttempts   int `mapstructure:"max_attempts"`    // N; default 3
	BaseDelayMs   int `mapstructure:"base_delay_ms"`   // default 1000
	MaxDelayMs    int `mapstructure:"max_delay_ms"`    // default 10000
	RequestTimeMs int `mapstructure:"request_time_ms"` // per-call default timeout
}

func (r RetryConfig) BaseDelay() time.Duration { return time.Duration(r.BaseDelayMs) * time.Millisecond }
func (r RetryConfig) MaxDelay() time.Duration  { return time.Duration(r.MaxDelayMs) * time.Millisecond }
func (r RetryConfig) RequestTimeout() time.Duration {
	return time.Duration(r.RequestTimeMs) * time.Millisecond
}

// ParticipantConfig is one resolved ParticipantDescriptor's source
// material (spec.md §3's ParticipantDescriptor, §6's discovery rules).
type ParticipantConfig struct {
	Addr          string `mapstructure:"addr"`
	HealthPath    string `mapstructure:"health_path"`
	TimeoutMs     int    `mapstructure:"timeout_ms"`
}

func (p ParticipantConfig) Timeout() time.Duration { return time.Duration(p.TimeoutMs) * time.Millisecond }

// JournalConfig controls the durability extension point of spec.md §9.
type JournalConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// HealthCacheConfig controls the optional Redis-backed cache in front
// of ProbeAll (an enrichment, see SPEC_FULL.md §2).
type HealthCacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
	Ttl     int    `mapstructure:"ttl_seconds"`
}

// LogConfig controls internal/logging.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configPath (YAML), applies environment overrides and
// defaults, and returns a fully-resolved Config. Any read/parse
// failure is fatal to the caller (spec.md §6: "non-zero when startup
// fails").
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", configPath, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
	}

	if cfg.Participants == nil {
		cfg.Participants = map[string]ParticipantConfig{}
	}
	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9000
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry.MaxAttempts = 3
	}
	if cfg.Retry.BaseDelayMs == 0 {
		cfg.Retry.BaseDelayMs = 1000
	}
	if cfg.Retry.MaxDelayMs == 0 {
		cfg.Retry.MaxDelayMs = 10000
	}
	if cfg.Retry.RequestTimeMs == 0 {
		cfg.Retry.RequestTimeMs = 5000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.HealthCache.Ttl == 0 {
		cfg.HealthCache.Ttl = 5
	}
	if cfg.Participants == nil {
		cfg.Participants = map[string]ParticipantConfig{}
	}
	for _, name := range Order {
		pc := cfg.Participants[name]
		if pc.HealthPath == "" {
			pc.HealthPath = "/health"
		}
		if pc.TimeoutMs == 0 {
			pc.TimeoutMs = cfg.Retry.RequestTimeMs
		}
		if pc.Addr == "" {
			pc.Addr = conventionAddr(name, cfg.LocalDev)
		}
		cfg.Participants[name] = pc
	}
}

// applyEnvOverrides implements spec.md §6's discovery precedence:
// (a) explicit config override — a non-empty addr already unmarshaled
//     from YAML is left untouched
// (b) <PARTICIPANT>_SERVICE_URL environment variable — applied here,
//     only into participants YAML left unset
// (c) convention — applied by setDefaults, which Load calls after
//     this, into whatever is still unset
//
// Load must call this before setDefaults: once setDefaults has filled
// in the convention address, every participant's Addr is non-empty
// and (a) can no longer be told apart from (c).
func applyEnvOverrides(cfg *Config) {
	for _, name := range Order {
		envKey := strings.ToUpper(name) + "_SERVICE_URL"
		pc := cfg.Participants[name]
		if pc.Addr != "" {
			continue
		}
		if addr := os.Getenv(envKey); addr != "" {
			pc.Addr = addr
			cfg.Participants[name] = pc
		}
	}

	if v := os.Getenv("COORDINATOR_REQUEST_TIMEOUT_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Retry.RequestTimeMs = ms
		}
	}
	if v := os.Getenv("COORDINATOR_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}
	if v := os.Getenv("COORDINATOR_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}

// conventionAddr implements spec.md §6(c): http://<participant>-service:<port>,
// with the "local development" mode substituting localhost for the
// service hostname.
func conventionAddr(name string, localDev bool) string {
	host := name + "-service"
	if localDev {
		host = "localhost"
	}
	return fmt.Sprintf("http://%s:%d", host, defaultPorts[name])
}

// Validate checks that every fixed-sequence participant (spec.md
// §4.3's table) resolved to a non-empty address. Called by Load, and
// safe to call again in tests that build a Config by hand.
func (c *Config) Validate() error {
	for _, name := range Order {
		pc, ok := c.Participants[name]
		if !ok || pc.Addr == "" {
			return fmt.Errorf("participants.%s.addr must not be empty", name)
		}
	}
	if c.Journal.Enabled && c.Journal.DSN == "" {
		return fmt.Errorf("journal.dsn must not be empty when journal.enabled is true")
	}
	if c.HealthCache.Enabled && c.HealthCache.Addr == "" {
		return fmt.Errorf("health_cache.addr must not be empty when health_cache.enabled is true")
	}
	return nil
}
