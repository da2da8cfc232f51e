package termui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"

	"github.com/fyrsmithlabs/kirod/internal/dashboard"
)

// DefaultRefreshInterval reloads the view even when no file events arrive,
// so a specs directory created after startup is still picked up.
const DefaultRefreshInterval = 5 * time.Second

const historySize = 40

// RowsFunc loads the current status rows.
type RowsFunc func() ([]dashboard.Row, error)

type rowsMsg struct {
	rows []dashboard.Row
	at   time.Time
}

type errMsg struct{ err error }

// watchErrMsg is an error from the watcher itself. The model keeps listening
// after one.
type watchErrMsg struct{ err error }

type fileEventMsg struct{ name string }

type tickMsg time.Time

// WatchModel is the bubbletea model behind `status --watch`. It reloads on
// file changes under the specs directory and on a fixed interval.
type WatchModel struct {
	load     RowsFunc
	watcher  *fsnotify.Watcher
	specsDir string
	interval time.Duration
	loc      *time.Location
	now      func() time.Time

	rows       []dashboard.Row
	history    []float64
	spark      sparkline.Model
	err        error
	lastUpdate time.Time
	quitting   bool
	width      int
}

// WatchOption configures a WatchModel.
type WatchOption func(*WatchModel)

// WithWatcher feeds file events from w into the model.
func WithWatcher(w *fsnotify.Watcher) WatchOption {
	return func(m *WatchModel) { m.watcher = w }
}

// WithSpecsDir names the directory the watcher should cover. It is added on
// the next tick when it did not exist at startup.
func WithSpecsDir(dir string) WatchOption {
	return func(m *WatchModel) { m.specsDir = dir }
}

// WithRefreshInterval sets the polling interval. Zero disables polling.
func WithRefreshInterval(d time.Duration) WatchOption {
	return func(m *WatchModel) { m.interval = d }
}

// WithLocation sets the zone timestamps are shown in.
func WithLocation(loc *time.Location) WatchOption {
	return func(m *WatchModel) { m.loc = loc }
}

// NewWatchModel creates the live status model.
func NewWatchModel(load RowsFunc, opts ...WatchOption) *WatchModel {
	m := &WatchModel{
		load:     load,
		interval: DefaultRefreshInterval,
		loc:      time.Local,
		now:      time.Now,
		spark:    sparkline.New(historySize, 3),
		width:    DefaultWidth,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init implements tea.Model.
func (m *WatchModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.reload()}
	if m.interval > 0 {
		cmds = append(cmds, m.tick())
	}
	if m.watcher != nil {
		cmds = append(cmds, m.waitForEvent())
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, m.reload()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tickMsg:
		if m.watcher != nil && m.specsDir != "" {
			watchTree(m.watcher, m.specsDir)
		}
		return m, tea.Batch(m.reload(), m.tick())

	case fileEventMsg:
		if m.watcher != nil {
			addFeatureDir(m.watcher, msg.name)
		}
		return m, tea.Batch(m.reload(), m.waitForEvent())

	case rowsMsg:
		m.rows = msg.rows
		m.err = nil
		m.lastUpdate = msg.at
		m.record(Overall(msg.rows))
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil

	case watchErrMsg:
		m.err = msg.err
		return m, m.waitForEvent()
	}

	return m, nil
}

// View implements tea.Model.
func (m *WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Kiro Status"))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n\n")
	}

	b.WriteString(RenderTable(m.rows, m.loc))
	b.WriteString("\n\n")

	if len(m.history) > 0 {
		b.WriteString(labelStyle.Render(fmt.Sprintf("Overall %.0f%%", Overall(m.rows)*100)))
		b.WriteString("\n")
		b.WriteString(sparklineStyle.Render(m.spark.View()))
		b.WriteString("\n\n")
	}

	footer := footerKeyStyle.Render("q") + dimStyle.Render(" quit  ") +
		footerKeyStyle.Render("r") + dimStyle.Render(" refresh")
	if !m.lastUpdate.IsZero() {
		footer += dimStyle.Render("  updated " + m.lastUpdate.In(m.loc).Format(time.TimeOnly))
	}
	b.WriteString(footer)
	b.WriteString("\n")

	return b.String()
}

// History returns the recorded overall completion ratios, oldest first.
func (m *WatchModel) History() []float64 {
	return append([]float64(nil), m.history...)
}

// Rows returns the rows currently shown.
func (m *WatchModel) Rows() []dashboard.Row {
	return m.rows
}

func (m *WatchModel) record(ratio float64) {
	m.history = append(m.history, ratio)
	if len(m.history) > historySize {
		m.history = m.history[len(m.history)-historySize:]
	}
	m.spark.Push(ratio * 100)
	m.spark.Draw()
}

func (m *WatchModel) reload() tea.Cmd {
	load, now := m.load, m.now
	return func() tea.Msg {
		rows, err := load()
		if err != nil {
			return errMsg{err: err}
		}
		return rowsMsg{rows: rows, at: now()}
	}
}

func (m *WatchModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *WatchModel) waitForEvent() tea.Cmd {
	w := m.watcher
	return func() tea.Msg {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			return fileEventMsg{name: ev.Name}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return watchErrMsg{err: fmt.Errorf("watch: %w", err)}
		}
	}
}

// NewSpecsWatcher watches specsDir and every feature directory in it.
// A missing specs directory is not an error; the watcher then stays idle
// and the model relies on polling.
func NewSpecsWatcher(specsDir string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Add(specsDir); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return w, nil
		}
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", specsDir, err)
	}

	entries, err := os.ReadDir(specsDir)
	if err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to read %s: %w", specsDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = w.Add(filepath.Join(specsDir, e.Name()))
		}
	}
	return w, nil
}

// addFeatureDir starts watching name when it is a newly created directory.
func addFeatureDir(w *fsnotify.Watcher, name string) {
	info, err := os.Stat(name)
	if err != nil || !info.IsDir() {
		return
	}
	for _, watched := range w.WatchList() {
		if watched == name {
			return
		}
	}
	_ = w.Add(name)
}

// watchTree adds dir and its feature directories to w, skipping any already
// watched. Missing directories are ignored.
func watchTree(w *fsnotify.Watcher, dir string) {
	addFeatureDir(w, dir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() {
			addFeatureDir(w, filepath.Join(dir, e.Name()))
		}
	}
}
