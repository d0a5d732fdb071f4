// Package tui provides a Bubble Tea terminal user interface for sdss-fetch.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/handiism/sdss-fetch/internal/catalog"
	"github.com/handiism/sdss-fetch/internal/config"
	"github.com/handiism/sdss-fetch/internal/download"
	"github.com/handiism/sdss-fetch/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7AA2F7")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)
)

// maxLogs is the number of log lines kept on screen.
const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateDownloading
	StateStopping
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// eventLog collects progress events from worker goroutines until the next
// tick picks them up.
type eventLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (l *eventLog) add(e download.ProgressEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Message: e.Message, Level: e.Level})
	if len(l.entries) > maxLogs {
		l.entries = l.entries[len(l.entries)-maxLogs:]
	}
}

func (l *eventLog) drain() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.entries
	l.entries = nil
	return out
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	catalog   *catalog.Catalog
	logs      []LogEntry
	events    *eventLog
	err       error

	// Download context
	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	summary model.RunSummary

	// Download progress
	totalTargets  int64
	doneTargets   int64
	failedTargets int64
	receivedBytes int64

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings, cat *catalog.Catalog) Model {
	ti := textinput.New()
	ti.Placeholder = "targets.txt or 751-52251-160 1678-53433-425"
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#7AA2F7"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		catalog:   cat,
		events:    &eventLog{},
		verbose:   settings.Verbose,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// StartMsg is sent once the input is parsed and the manager is ready.
	StartMsg struct {
		Targets []model.Target
		Manager *download.Manager
		Err     error
	}

	// DownloadDoneMsg is sent when the batch completes.
	DownloadDoneMsg struct {
		Summary model.RunSummary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			switch m.state {
			case StateDownloading:
				// Same as esc: in-flight targets finish, the rest are skipped.
				m.cancel()
				m.state = StateStopping
				return m, nil
			case StateStopping:
				// Hard abort. The audit files stay open so workers still
				// writing do not hit closed files; the process exit
				// releases them and in-progress spectra are abandoned.
				return m, tea.Quit
			}
			m.cancel()
			if m.manager != nil {
				m.manager.Close()
			}
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading {
				// In-flight targets finish; the rest are skipped.
				m.cancel()
				m.state = StateStopping
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				return m, tea.Batch(m.prepare(m.textInput.Value()), m.spinner.Tick)
			}

		case "tab":
			if m.state == StateInput {
				m.verbose = !m.verbose
				return m, nil
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m = m.reset()
				return m, nil
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case StartMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			return m, nil
		}
		m.manager = msg.Manager
		m.totalTargets = int64(len(msg.Targets))
		m.state = StateDownloading
		cmds = append(cmds, m.startDownload(msg.Targets), m.tickProgress())

	case DownloadDoneMsg:
		m.summary = msg.Summary
		m.absorb(m.events.drain())
		m.manager.Close()
		switch {
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && (m.state == StateDownloading || m.state == StateStopping) {
			m.receivedBytes, m.doneTargets, m.failedTargets, m.totalTargets = m.manager.GetProgress()
			m.absorb(m.events.drain())

			var percent float64
			if m.totalTargets > 0 {
				percent = float64(m.doneTargets) / float64(m.totalTargets)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// absorb appends new log entries, dropping verbose ones unless enabled.
func (m *Model) absorb(entries []LogEntry) {
	for _, e := range entries {
		if e.Level == download.LevelVerbose && !m.verbose {
			continue
		}
		m.logs = append(m.logs, e)
	}
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m Model) reset() Model {
	m.state = StateInput
	m.logs = nil
	m.err = nil
	m.manager = nil
	m.summary = model.RunSummary{}
	m.doneTargets = 0
	m.failedTargets = 0
	m.totalTargets = 0
	m.receivedBytes = 0
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("✦ SDSS Spectrum Fetcher"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download spectra with fallback across data releases"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateDownloading, StateStopping:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.helpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter a target list file or plate-mjd-fiber triplets:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[×]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose/debug output (tab)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output: %s • Workers: %d • Attempts: %d × %s",
		m.settings.OutputDir, m.settings.Workers, m.settings.Attempts, m.settings.RetryDelay)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if m.state == StateStopping {
		b.WriteString(m.spinner.View())
		b.WriteString(" ")
		b.WriteString(warningStyle.Render("Stopping, finishing targets in progress..."))
		b.WriteString("\n\n")
	}

	var percent float64
	if m.totalTargets > 0 {
		percent = float64(m.doneTargets) / float64(m.totalTargets)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Targets: %d/%d | Failed: %d | Downloaded: %.2f MB",
		m.doneTargets,
		m.totalTargets,
		m.failedTargets,
		float64(m.receivedBytes)/1024/1024,
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	s := m.summary
	box := boxStyle.Render(fmt.Sprintf(
		"✨ Run Complete\n\n"+
			"Succeeded: %d\n"+
			"Failed: %d\n"+
			"Skipped: %d\n"+
			"Size: %.2f MB\n"+
			"Time: %s",
		s.Succeeded,
		s.Failed,
		s.Skipped,
		float64(m.receivedBytes)/1024/1024,
		s.Duration().Round(time.Millisecond),
	))
	b.WriteString(box)
	b.WriteString("\n")

	if s.Failed > 0 {
		b.WriteString(warningStyle.Render(fmt.Sprintf("Failed targets: %s", m.settings.FailedPath())))
		b.WriteString("\n")
	}
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("× Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "✗"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case download.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) helpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • tab: verbose • esc: quit"
	case StateDownloading:
		return "esc/ctrl+c: stop"
	case StateStopping:
		return "ctrl+c: abort now, abandoning files in progress"
	case StateComplete, StateError:
		return "r: new run • q: quit"
	}
	return ""
}

// prepare parses the input and creates the manager.
func (m Model) prepare(input string) tea.Cmd {
	settings := *m.settings
	settings.Verbose = m.verbose
	events := m.events
	cat := m.catalog

	return func() tea.Msg {
		targets, err := ParseInput(input)
		if err != nil {
			return StartMsg{Err: err}
		}

		manager, err := download.NewManager(&settings, cat, events.add)
		if err != nil {
			return StartMsg{Err: err}
		}

		return StartMsg{Targets: targets, Manager: manager}
	}
}

// startDownload runs the batch in the background.
func (m Model) startDownload(targets []model.Target) tea.Cmd {
	ctx := m.ctx
	manager := m.manager

	return func() tea.Msg {
		summary, err := manager.Run(ctx, targets)
		return DownloadDoneMsg{Summary: summary, Err: err}
	}
}

// ParseInput reads targets from the file named by input or, when no such
// file exists, from whitespace-separated triplets such as "751-52251-160".
func ParseInput(input string) ([]model.Target, error) {
	input = strings.TrimSpace(input)

	f, err := os.Open(input)
	switch {
	case err == nil:
		defer f.Close()
		return model.ParseTargets(f)
	case !errors.Is(err, fs.ErrNotExist):
		return nil, err
	}

	var targets []model.Target
	for _, field := range strings.Fields(input) {
		t, err := model.ParseTarget(field)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	if len(targets) == 0 {
		return nil, errors.New("no targets given")
	}
	return targets, nil
}

// Run starts the TUI application.
func Run(settings *config.Settings, cat *catalog.Catalog) error {
	p := tea.NewProgram(NewModel(settings, cat), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
