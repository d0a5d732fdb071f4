package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultSettings_Valid(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if s.Attempts != 2 || s.RetryDelay != 5*time.Second || s.Timeout != 10*time.Second {
		t.Errorf("retry policy = %d/%v/%v, want 2/5s/10s", s.Attempts, s.RetryDelay, s.Timeout)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Workers != DefaultSettings().Workers {
		t.Errorf("Workers = %d, want %d", s.Workers, DefaultSettings().Workers)
	}
}

func TestLoad_Layers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sdss-fetch.yaml")
	data := []byte("output_dir: /data/sdss\nworkers: 4\nretry_delay: 1s\nmirror:\n  bucket: from-file\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SDSS_FETCH_WORKERS", "12")
	t.Setenv("SDSS_FETCH_MIRROR__PREFIX", "dr17/")

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"file overrides default", s.OutputDir, "/data/sdss"},
		{"env overrides file", s.Workers, 12},
		{"duration from file", s.RetryDelay, time.Second},
		{"nested file key", s.Mirror.Bucket, "from-file"},
		{"nested env key", s.Mirror.Prefix, "dr17/"},
		{"untouched default", s.Attempts, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"zero workers", "workers: 0\n"},
		{"zero attempts", "attempts: 0\n"},
		{"bad log format", "logging:\n  format: xml\n"},
		{"mirror without bucket", "mirror:\n  enabled: true\n  endpoint: localhost:9000\n"},
		{"manual proxy without address", "proxy:\n  type: manual\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() error = nil, want validation error")
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sdss-fetch.yaml")

	want := DefaultSettings()
	want.Workers = 3
	want.RetryDelay = 250 * time.Millisecond
	want.Breaker.Enabled = true
	if err := want.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Workers != 3 || got.RetryDelay != 250*time.Millisecond || !got.Breaker.Enabled {
		t.Errorf("round trip = %+v", got)
	}
}

func TestSettings_Paths(t *testing.T) {
	s := DefaultSettings()
	s.OutputDir = "out"

	if got := s.LogPath(); got != filepath.Join("out", DefaultLogFile) {
		t.Errorf("LogPath() = %q", got)
	}
	if got := s.FailedPath(); got != filepath.Join("out", DefaultFailedFile) {
		t.Errorf("FailedPath() = %q", got)
	}

	s.FailedFile = "/tmp/failed.txt"
	if got := s.FailedPath(); got != "/tmp/failed.txt" {
		t.Errorf("FailedPath() = %q, want explicit path", got)
	}

	s.WriteManifest = false
	if got := s.ManifestPath(); got != "" {
		t.Errorf("ManifestPath() = %q, want empty when disabled", got)
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"SDSS_FETCH_WORKERS":         "workers",
		"SDSS_FETCH_RETRY_DELAY":     "retry_delay",
		"SDSS_FETCH_RATE_LIMIT__RPS": "rate_limit.rps",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
