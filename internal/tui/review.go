package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/chojs23/seqmerge/internal/config"
	"github.com/chojs23/seqmerge/internal/engine"
	"github.com/chojs23/seqmerge/internal/log"
	"github.com/chojs23/seqmerge/internal/markers"
)

var (
	ErrBackToSelector = errors.New("back to selector")
	ErrNoConflicts    = errors.New("no conflicts to review")
)

// Options configures a review session of one merged file.
type Options struct {
	Path      string
	Markers   markers.Set
	Theme     config.Theme
	UndoDepth int
	Backup    bool
}

type model struct {
	opts    Options
	styles  Styles
	state   *engine.State
	current int

	viewLocal  viewport.Model
	viewResult viewport.Model
	viewLatest viewport.Model

	pendingScroll bool
	ready         bool
	width         int
	height        int
	quitting      bool
	saved         bool
	toastMessage  string
	toastSeq      int
	err           error
}

type toastExpiredMsg struct{ id int }

// Review opens the conflict review UI for opts.Path. Quitting with q yields
// ErrBackToSelector.
func Review(ctx context.Context, opts Options) error {
	m, err := newModel(opts)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("review UI: %w", err)
	}
	fm, ok := final.(model)
	if !ok {
		return errors.New("review UI returned unexpected model")
	}
	log.From(ctx).Debug("review finished",
		zap.String("path", opts.Path),
		zap.Bool("saved", fm.saved),
		zap.Int("unresolved", fm.state.Unresolved()),
	)
	return fm.err
}

func newModel(opts Options) (model, error) {
	data, err := os.ReadFile(opts.Path)
	if err != nil {
		return model{}, fmt.Errorf("read merged: %w", err)
	}
	doc, err := markers.Parse(data, opts.Markers)
	if err != nil {
		return model{}, fmt.Errorf("parse %s: %w", opts.Path, err)
	}
	if len(doc.Conflicts) == 0 {
		return model{}, ErrNoConflicts
	}
	state, err := engine.NewState(doc, opts.UndoDepth)
	if err != nil {
		return model{}, err
	}
	return model{
		opts:          opts,
		styles:        NewStyles(opts.Theme),
		state:         state,
		pendingScroll: true,
	}, nil
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m *model) showToast(message string, d time.Duration) tea.Cmd {
	m.toastMessage = message
	m.toastSeq++
	seq := m.toastSeq
	return tea.Tick(d, func(time.Time) tea.Msg {
		return toastExpiredMsg{id: seq}
	})
}

var resolutionKeys = map[string]markers.Resolution{
	"l": markers.ResolutionLocal,
	"t": markers.ResolutionLatest,
	"a": markers.ResolutionBase,
	"b": markers.ResolutionBoth,
	"x": markers.ResolutionNone,
}

var resolveAllKeys = map[string]markers.Resolution{
	"L": markers.ResolutionLocal,
	"T": markers.ResolutionLatest,
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case toastExpiredMsg:
		if msg.id == m.toastSeq {
			m.toastMessage = ""
		}
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if res, ok := resolutionKeys[key]; ok {
			err := m.state.Apply(m.current, res)
			if errors.Is(err, markers.ErrNoBase) {
				cmd := m.showToast("No base lines in this conflict", 2*time.Second)
				return m, cmd
			}
			if err != nil {
				return m.fail(fmt.Errorf("resolve conflict %d: %w", m.current+1, err))
			}
			m.updateViewports()
			return m, nil
		}
		if res, ok := resolveAllKeys[key]; ok {
			if err := m.state.ApplyAll(res); err != nil {
				return m.fail(fmt.Errorf("resolve all: %w", err))
			}
			m.updateViewports()
			return m, nil
		}

		switch key {
		case "q":
			m.err = ErrBackToSelector
			m.quitting = true
			return m, tea.Quit

		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "n":
			if m.current < len(m.state.Document().Conflicts)-1 {
				m.current++
				m.pendingScroll = true
				m.updateViewports()
			}
			return m, nil

		case "p":
			if m.current > 0 {
				m.current--
				m.pendingScroll = true
				m.updateViewports()
			}
			return m, nil

		case "u":
			if err := m.state.Undo(); err != nil {
				cmd := m.showToast("Nothing to undo", 2*time.Second)
				return m, cmd
			}
			m.updateViewports()
			return m, nil

		case "r", "ctrl+r":
			if err := m.state.Redo(); err != nil {
				cmd := m.showToast("Nothing to redo", 2*time.Second)
				return m, cmd
			}
			m.updateViewports()
			return m, nil

		case "w":
			err := engine.SaveResolved(m.opts.Path, m.state, m.opts.Markers, m.opts.Backup)
			if errors.Is(err, markers.ErrUnresolved) {
				cmd := m.showToast(fmt.Sprintf("%d conflicts unresolved", m.state.Unresolved()), 2*time.Second)
				return m, cmd
			}
			if err != nil {
				return m.fail(fmt.Errorf("write resolved: %w", err))
			}
			m.saved = true
			cmd := m.showToast("Saved", 2*time.Second)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.updateViewports()
	}

	var cmd tea.Cmd
	m.viewLocal, cmd = m.viewLocal.Update(msg)
	cmds = append(cmds, cmd)
	m.viewResult, cmd = m.viewResult.Update(msg)
	cmds = append(cmds, cmd)
	m.viewLatest, cmd = m.viewLatest.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) fail(err error) (tea.Model, tea.Cmd) {
	m.err = err
	m.quitting = true
	return m, tea.Quit
}

func (m *model) resize() {
	// header, footer, toast line, pane borders and title
	contentHeight := m.height - 2 - 2 - 4
	if contentHeight < 1 {
		contentHeight = 1
	}
	paneWidth := (m.width - 12) / 3
	if paneWidth < 1 {
		paneWidth = 1
	}

	if !m.ready {
		m.viewLocal = viewport.New(paneWidth, contentHeight)
		m.viewResult = viewport.New(paneWidth, contentHeight)
		m.viewLatest = viewport.New(paneWidth, contentHeight)
		m.ready = true
		return
	}
	for _, v := range []*viewport.Model{&m.viewLocal, &m.viewResult, &m.viewLatest} {
		v.Width = paneWidth
		v.Height = contentHeight
	}
}

func (m *model) updateViewports() {
	if !m.ready {
		return
	}
	doc := m.state.Document()

	local, localStart := buildPaneLines(doc, paneLocal, m.current)
	latest, latestStart := buildPaneLines(doc, paneLatest, m.current)
	result, resultStart := buildResultLines(doc, m.current)

	m.viewLocal.SetContent(renderLines(local, m.styles))
	m.viewLatest.SetContent(renderLines(latest, m.styles))
	m.viewResult.SetContent(renderLines(result, m.styles))

	if m.pendingScroll {
		ensureVisible(&m.viewLocal, localStart, len(local))
		ensureVisible(&m.viewLatest, latestStart, len(latest))
		ensureVisible(&m.viewResult, resultStart, len(result))
		m.pendingScroll = false
	}
}

func ensureVisible(v *viewport.Model, start, total int) {
	if v.Height <= 0 {
		return
	}
	maxOffset := total - v.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	target := start - 2
	if target < 0 {
		target = 0
	}
	if target > maxOffset {
		target = maxOffset
	}
	v.SetYOffset(target)
}

func (m model) View() string {
	if m.quitting {
		switch {
		case m.err == nil || errors.Is(m.err, ErrBackToSelector):
			return ""
		default:
			return fmt.Sprintf("\n  Error: %v\n", m.err)
		}
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	doc := m.state.Document()
	seg, _ := doc.Conflict(m.current)
	header := m.styles.Header.Render(fmt.Sprintf("%s - conflict %d/%d - %d unresolved",
		m.opts.Path, m.current+1, len(doc.Conflicts), m.state.Unresolved()))

	status := m.styles.Unresolved.Render("unresolved")
	if seg.Resolution != markers.ResolutionUnset {
		status = m.styles.Resolved.Render(string(seg.Resolution))
	}
	resultPane := m.styles.Pane
	if m.state.Unresolved() == 0 {
		resultPane = m.styles.CurrentPane
	}

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		m.styles.Pane.Render(m.styles.Title.Render(paneTitle("LOCAL", seg.LocalLabel))+"\n"+m.viewLocal.View()),
		resultPane.Render(m.styles.Title.Render("RESULT ")+status+"\n"+m.viewResult.View()),
		m.styles.Pane.Render(m.styles.Title.Render(paneTitle("LATEST", seg.LatestLabel))+"\n"+m.viewLatest.View()),
	)

	history := ""
	if d := m.state.UndoDepth(); d > 0 {
		history += fmt.Sprintf(" | undo: %d", d)
	}
	if d := m.state.RedoDepth(); d > 0 {
		history += fmt.Sprintf(" | redo: %d", d)
	}
	footer := m.styles.Footer.Width(m.width).Render(
		"n/p: next/prev | l: local | t: latest | a: base | b: both | x: none | L/T: all | u/r: undo/redo | w: write | q: back" + history,
	)

	toast := ""
	if m.toastMessage != "" {
		toast = m.styles.Toast.Render(m.toastMessage)
	}
	toastLine := lipgloss.NewStyle().Width(m.width).Align(lipgloss.Right).Render(toast)

	return lipgloss.JoinVertical(lipgloss.Left, header, panes, footer, toastLine)
}

func paneTitle(name, label string) string {
	if label == "" {
		return name
	}
	return fmt.Sprintf("%s %s", name, label)
}
