package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/handiism/sdss-fetch/internal/http"
)

// EnvPrefix prefixes every environment override. Nested keys use a double
// underscore: SDSS_FETCH_MIRROR__BUCKET sets mirror.bucket.
const EnvPrefix = "SDSS_FETCH_"

// Default file names, relative to OutputDir when the matching setting is
// empty.
const (
	DefaultLogFile      = "download_log.txt"
	DefaultFailedFile   = "failed_list.txt"
	DefaultManifestFile = "manifest.json"
)

// Settings holds all configuration options.
type Settings struct {
	// Download settings
	OutputDir  string        `koanf:"output_dir" yaml:"output_dir" validate:"required"`
	Workers    int           `koanf:"workers" yaml:"workers" validate:"min=1,max=256"`
	Attempts   int           `koanf:"attempts" yaml:"attempts" validate:"min=1,max=20"`
	RetryDelay time.Duration `koanf:"retry_delay" yaml:"retry_delay" validate:"gte=0"`
	Timeout    time.Duration `koanf:"timeout" yaml:"timeout" validate:"gt=0"`
	UserAgent  string        `koanf:"user_agent" yaml:"user_agent"`
	Extension  string        `koanf:"extension" yaml:"extension" validate:"required"`

	// Archive layout. Empty uses the built-in data-release catalog.
	CatalogFile string `koanf:"catalog_file" yaml:"catalog_file"`

	// Audit files. Empty places them in OutputDir.
	LogFile       string `koanf:"log_file" yaml:"log_file"`
	FailedFile    string `koanf:"failed_file" yaml:"failed_file"`
	ManifestFile  string `koanf:"manifest_file" yaml:"manifest_file"`
	WriteManifest bool   `koanf:"write_manifest" yaml:"write_manifest"`

	// MemoSize bounds the number of remembered successful targets; 0
	// disables de-duplication.
	MemoSize int `koanf:"memo_size" yaml:"memo_size" validate:"gte=0"`

	// MetricsAddr serves Prometheus metrics when set, e.g. ":9090".
	MetricsAddr string `koanf:"metrics_addr" yaml:"metrics_addr"`

	Verbose bool `koanf:"verbose" yaml:"verbose"`

	Logging   LoggingSettings   `koanf:"logging" yaml:"logging"`
	RateLimit RateLimitSettings `koanf:"rate_limit" yaml:"rate_limit"`
	Breaker   BreakerSettings   `koanf:"breaker" yaml:"breaker"`
	Proxy     ProxySettings     `koanf:"proxy" yaml:"proxy"`
	Mirror    MirrorSettings    `koanf:"mirror" yaml:"mirror"`
}

// LoggingSettings configures console logging.
type LoggingSettings struct {
	Level  string `koanf:"level" yaml:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" yaml:"format" validate:"oneof=console json"`
}

// RateLimitSettings caps outgoing requests. Zero RPS disables the limiter.
type RateLimitSettings struct {
	RPS   float64 `koanf:"rps" yaml:"rps" validate:"gte=0"`
	Burst int     `koanf:"burst" yaml:"burst" validate:"gte=0"`
}

// BreakerSettings configures the per-host circuit breaker.
type BreakerSettings struct {
	Enabled      bool          `koanf:"enabled" yaml:"enabled"`
	MinRequests  uint32        `koanf:"min_requests" yaml:"min_requests" validate:"min=1"`
	FailureRatio float64       `koanf:"failure_ratio" yaml:"failure_ratio" validate:"gt=0,lte=1"`
	Cooldown     time.Duration `koanf:"cooldown" yaml:"cooldown" validate:"gte=0"`
}

// ProxySettings selects how the archive is reached.
type ProxySettings struct {
	Type    string `koanf:"type" yaml:"type" validate:"oneof=none system manual"`
	Address string `koanf:"address" yaml:"address" validate:"required_if=Type manual"`
	Port    int    `koanf:"port" yaml:"port" validate:"gte=0,lte=65535"`
}

// MirrorSettings configures upload of saved spectra to an S3-compatible
// bucket.
type MirrorSettings struct {
	Enabled   bool   `koanf:"enabled" yaml:"enabled"`
	Endpoint  string `koanf:"endpoint" yaml:"endpoint" validate:"required_if=Enabled true"`
	Bucket    string `koanf:"bucket" yaml:"bucket" validate:"required_if=Enabled true"`
	Prefix    string `koanf:"prefix" yaml:"prefix"`
	Region    string `koanf:"region" yaml:"region"`
	AccessKey string `koanf:"access_key" yaml:"access_key"`
	SecretKey string `koanf:"secret_key" yaml:"secret_key"`
	UseSSL    bool   `koanf:"use_ssl" yaml:"use_ssl"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputDir:     "spectra",
		Workers:       8,
		Attempts:      2,
		RetryDelay:    5 * time.Second,
		Timeout:       10 * time.Second,
		UserAgent:     http.DefaultUserAgent,
		Extension:     "fits",
		WriteManifest: true,
		MemoSize:      0,

		Logging: LoggingSettings{
			Level:  "info",
			Format: "console",
		},
		RateLimit: RateLimitSettings{
			RPS:   0,
			Burst: 1,
		},
		Breaker: BreakerSettings{
			Enabled:      false,
			MinRequests:  20,
			FailureRatio: 0.8,
			Cooldown:     30 * time.Second,
		},
		Proxy: ProxySettings{
			Type: http.ProxySystem,
		},
		Mirror: MirrorSettings{
			UseSSL: true,
		},
	}
}

// Load builds settings from layered sources, later layers winning:
//  1. DefaultSettings
//  2. The YAML file at path, if it exists
//  3. SDSS_FETCH_* environment variables
//
// An empty path skips the file layer. The result is validated.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(DefaultSettings(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		_, err := os.Stat(path)
		switch {
		case err == nil:
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		case !errors.Is(err, fs.ErrNotExist):
			return nil, err
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	settings := &Settings{}
	if err := k.Unmarshal("", settings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := settings.Validate(); err != nil {
		return nil, err
	}

	return settings, nil
}

// envKey maps SDSS_FETCH_RATE_LIMIT__RPS to rate_limit.rps.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Validate checks field constraints.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// Save writes settings to a YAML file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yamlv3.Marshal(s)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// LogPath returns the audit log location.
func (s *Settings) LogPath() string {
	return s.resolve(s.LogFile, DefaultLogFile)
}

// FailedPath returns the failed-target list location.
func (s *Settings) FailedPath() string {
	return s.resolve(s.FailedFile, DefaultFailedFile)
}

// ManifestPath returns the run manifest location, or "" when manifests are
// disabled.
func (s *Settings) ManifestPath() string {
	if !s.WriteManifest {
		return ""
	}
	return s.resolve(s.ManifestFile, DefaultManifestFile)
}

func (s *Settings) resolve(path, fallback string) string {
	if path == "" {
		return filepath.Join(s.OutputDir, fallback)
	}
	return path
}

// ClientOptions converts the network settings to HTTP client options.
func (s *Settings) ClientOptions() []http.Option {
	opts := []http.Option{
		http.WithProxy(s.Proxy.Type, s.Proxy.Address, s.Proxy.Port),
		http.WithTimeout(s.Timeout),
		http.WithUserAgent(s.UserAgent),
		http.WithRateLimit(s.RateLimit.RPS, s.RateLimit.Burst),
	}
	if s.Breaker.Enabled {
		opts = append(opts, http.WithBreaker(http.BreakerSettings{
			MinRequests:  s.Breaker.MinRequests,
			FailureRatio: s.Breaker.FailureRatio,
			Cooldown:     s.Breaker.Cooldown,
		}))
	}
	return opts
}
