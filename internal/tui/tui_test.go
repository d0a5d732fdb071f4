package tui

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/handiism/sdss-fetch/internal/catalog"
	"github.com/handiism/sdss-fetch/internal/config"
	"github.com/handiism/sdss-fetch/internal/download"
	"github.com/handiism/sdss-fetch/internal/model"
)

func TestParseInput(t *testing.T) {
	t.Run("inline triplets", func(t *testing.T) {
		got, err := ParseInput("751-52251-160  1678-53433-425")
		if err != nil {
			t.Fatalf("ParseInput() error = %v", err)
		}
		want := []model.Target{{Plate: 751, MJD: 52251, Fiber: 160}, {Plate: 1678, MJD: 53433, Fiber: 425}}
		if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
			t.Errorf("ParseInput() = %v, want %v", got, want)
		}
	})

	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "targets.txt")
		if err := os.WriteFile(path, []byte("# plate mjd fiber\n751\t52251\t160\n"), 0644); err != nil {
			t.Fatal(err)
		}
		got, err := ParseInput(path)
		if err != nil {
			t.Fatalf("ParseInput() error = %v", err)
		}
		if len(got) != 1 || got[0].Fiber != 160 {
			t.Errorf("ParseInput() = %v", got)
		}
	})

	t.Run("invalid", func(t *testing.T) {
		if _, err := ParseInput("751-52251"); !errors.Is(err, model.ErrInvalidTarget) {
			t.Errorf("ParseInput() error = %v, want ErrInvalidTarget", err)
		}
	})
}

func TestModel_Transitions(t *testing.T) {
	m := NewModel(config.DefaultSettings(), catalog.Default())

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if !m.verbose {
		t.Error("tab did not enable verbose output")
	}

	next, _ = m.Update(StartMsg{Err: errors.New("bad input")})
	m = next.(Model)
	if m.state != StateError || m.err == nil {
		t.Errorf("state = %v, err = %v, want StateError", m.state, m.err)
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	m = next.(Model)
	if m.state != StateInput || m.err != nil {
		t.Errorf("state = %v after reset, want StateInput", m.state)
	}
}

func TestModel_InterruptDuringRun(t *testing.T) {
	m := NewModel(config.DefaultSettings(), catalog.Default())
	m.state = StateDownloading

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = next.(Model)
	if m.state != StateStopping {
		t.Errorf("state = %v after ctrl+c, want StateStopping", m.state)
	}
	if m.ctx.Err() == nil {
		t.Error("ctrl+c did not cancel dispatch")
	}
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Error("first ctrl+c quit while targets were in flight")
		}
	}

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("second ctrl+c returned no command")
	}
	if _, quit := cmd().(tea.QuitMsg); !quit {
		t.Error("second ctrl+c did not quit")
	}
}

func TestModel_AbsorbFiltersVerbose(t *testing.T) {
	m := NewModel(config.DefaultSettings(), catalog.Default())
	m.verbose = false

	m.absorb([]LogEntry{
		{Message: "attempt failed", Level: download.LevelVerbose},
		{Message: "✓ spec-0751-52251-00160.fits", Level: download.LevelSuccess},
	})

	if len(m.logs) != 1 || m.logs[0].Level != download.LevelSuccess {
		t.Errorf("logs = %v", m.logs)
	}

	for range maxLogs * 2 {
		m.absorb([]LogEntry{{Message: "x", Level: download.LevelInfo}})
	}
	if len(m.logs) != maxLogs {
		t.Errorf("len(logs) = %d, want %d", len(m.logs), maxLogs)
	}
}
