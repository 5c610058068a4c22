// Package config loads and validates the forwarder's configuration.
// Values are read from a TOML file via Viper, overridable by the
// OJGF_* environment variables, and validated into an immutable Config
// value before the Supervisor ever spawns a collector.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Source is one configured journal gateway to poll.
type Source struct {
	Name   string            `mapstructure:"name"`
	URL    string            `mapstructure:"url"`
	Units  []string          `mapstructure:"units"`
	Labels map[string]string `mapstructure:"labels"`
}

// Config is the immutable, validated configuration handed to the Supervisor.
type Config struct {
	OTLPEndpoint string        `mapstructure:"otlp_endpoint"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	BatchSize    int           `mapstructure:"batch_size"`
	CursorDir    string        `mapstructure:"cursor_dir"`
	Sources      []Source      `mapstructure:"sources"`
}

// envOverrides maps an OJGF_* environment variable to the Viper key it overrides.
var envOverrides = map[string]string{
	"OJGF_OTLP_ENDPOINT": "otlp_endpoint",
	"OJGF_POLL_INTERVAL": "poll_interval",
	"OJGF_BATCH_SIZE":    "batch_size",
	"OJGF_CURSOR_DIR":    "cursor_dir",
}

// Load reads the TOML file at path, applies OJGF_* environment overrides, and
// returns a fully validated Config. The returned error, when present, wraps a
// human-readable description suitable for a --validate failure message.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	v.SetDefault("poll_interval", 5*time.Second)
	v.SetDefault("batch_size", 500)
	v.SetDefault("cursor_dir", "/var/lib/otel-journal-gatewayd-forwarder")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	for env, key := range envOverrides {
		if val, ok := os.LookupEnv(env); ok {
			v.Set(key, val)
		}
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every invariant spec.md §4.6 requires before the Supervisor
// spawns collectors: unique source names, filename-safe names, well-formed
// URLs, batch_size >= 1, poll_interval > 0, and a writable cursor_dir.
func Validate(cfg Config) error {
	if cfg.BatchSize < 1 {
		return fmt.Errorf("batch_size must be >= 1, got %d", cfg.BatchSize)
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be > 0, got %s", cfg.PollInterval)
	}
	if cfg.OTLPEndpoint == "" {
		return fmt.Errorf("otlp_endpoint must be set")
	}
	if _, err := url.ParseRequestURI(cfg.OTLPEndpoint); err != nil {
		return fmt.Errorf("otlp_endpoint is not a valid URL: %w", err)
	}
	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one [[sources]] entry is required")
	}

	seen := make(map[string]struct{}, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if err := validateSourceName(src.Name); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
		if _, dup := seen[src.Name]; dup {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, src.Name)
		}
		seen[src.Name] = struct{}{}

		u, err := url.ParseRequestURI(src.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("sources[%d] (%s): url must be an absolute http(s) URL, got %q", i, src.Name, src.URL)
		}
	}

	if err := ensureWritableDir(cfg.CursorDir); err != nil {
		return fmt.Errorf("cursor_dir %s: %w", cfg.CursorDir, err)
	}
	return nil
}

func validateSourceName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if strings.ContainsAny(name, "/\\") {
		return fmt.Errorf("name %q must not contain path separators", name)
	}
	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name %q must not start with a dot", name)
	}
	return nil
}

func ensureWritableDir(dir string) error {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	probe := filepath.Join(dir, ".write-probe")
	f, err := os.Create(probe)
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(probe)
}
