package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/handiism/sdss-fetch/internal/model"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestCandidatesCommand(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "none.yaml")

	out, err := execute(t, "--config", cfg, "candidates", "751-52251-160")
	if err != nil {
		t.Fatalf("candidates error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 47 {
		t.Errorf("got %d candidates, want 47", len(lines))
	}
	if !strings.Contains(lines[0], "priority-fastpath") || !strings.Contains(lines[0], "spec-0751-52251-0160.fits") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestCandidatesCommand_JSON(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "none.yaml")

	out, err := execute(t, "--config", cfg, "candidates", "--json", "751,52251,160")
	if err != nil {
		t.Fatalf("candidates error = %v", err)
	}

	var list []model.Candidate
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if len(list) == 0 || list[0].MethodTag != "priority-fastpath" {
		t.Errorf("list = %v", list)
	}
}

func TestCandidatesCommand_InvalidTarget(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "none.yaml")
	if _, err := execute(t, "--config", cfg, "candidates", "751-52251"); err == nil {
		t.Error("expected error for incomplete target")
	}
}

func TestConfigInitAndShow(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "sdss-fetch.yaml")

	if _, err := execute(t, "--config", cfg, "config", "init"); err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if _, err := os.Stat(cfg); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := execute(t, "--config", cfg, "config", "init"); err == nil {
		t.Error("second init without --force should fail")
	}

	out, err := execute(t, "--config", cfg, "--workers", "3", "config", "show")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	if !strings.Contains(out, "workers: 3") {
		t.Errorf("show did not apply flag override:\n%s", out)
	}
	if !strings.Contains(out, "retry_delay: 5s") {
		t.Errorf("show missing retry delay:\n%s", out)
	}
}

func TestConfigCatalog(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "none.yaml")
	path := filepath.Join(dir, "catalog.yaml")

	if _, err := execute(t, "--config", cfg, "config", "catalog", "--write", path); err != nil {
		t.Fatalf("config catalog error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "dr16") {
		t.Errorf("catalog file missing dr16:\n%s", data)
	}
}

func TestFetchCommand_NoTargets(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "none.yaml")
	if _, err := execute(t, "--config", cfg, "fetch"); err == nil {
		t.Error("fetch without targets should fail")
	}
}

func TestRetryCommand_NothingToRetry(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "none.yaml")
	if _, err := execute(t, "--config", cfg, "--output", dir, "retry"); err != nil {
		t.Errorf("retry with no failed list error = %v", err)
	}
}

func TestReadTargets(t *testing.T) {
	got, err := readTargets("-", strings.NewReader("751\t52251\t160\n\n# comment\n1678 53433 425\n"))
	if err != nil {
		t.Fatalf("readTargets() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("readTargets() = %v, want 2 targets", got)
	}
}
