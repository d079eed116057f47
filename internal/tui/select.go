package tui

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
)

// FileCandidate is one unmerged path offered by the selector. Conflicts is
// the number of conflict blocks the worktree file holds; -1 when unknown.
type FileCandidate struct {
	Path      string
	Conflicts int
}

func (c FileCandidate) Resolved() bool { return c.Conflicts == 0 }

type fileItem struct{ FileCandidate }

func (f fileItem) Title() string       { return f.Path }
func (f fileItem) Description() string { return "" }
func (f fileItem) FilterValue() string { return f.Path }

type fileItemDelegate struct{ styles Styles }

func (d fileItemDelegate) Height() int                             { return 1 }
func (d fileItemDelegate) Spacing() int                            { return 0 }
func (d fileItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d fileItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	file, ok := item.(fileItem)
	if !ok {
		return
	}
	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}
	var label string
	style := d.styles.Unresolved
	switch {
	case file.Resolved():
		label = "resolved"
		style = d.styles.Resolved
	case file.Conflicts < 0:
		label = "unmerged"
	default:
		label = fmt.Sprintf("%d conflicts", file.Conflicts)
	}
	fmt.Fprint(w, cursor+style.Render(fmt.Sprintf("%12s", label))+"  "+file.Path)
}

type fileSelectModel struct {
	list     list.Model
	selected string
	err      error
}

var ErrSelectorQuit = errors.New("selector quit")

func newFileSelectModel(candidates []FileCandidate, styles Styles) fileSelectModel {
	items := make([]list.Item, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, fileItem{c})
	}
	m := fileSelectModel{list: list.New(items, fileItemDelegate{styles: styles}, 0, 0)}
	m.list.Title = "Select unmerged file"
	m.list.Styles.Title = styles.Header
	m.list.SetShowHelp(false)
	m.list.SetShowStatusBar(false)
	m.list.SetShowPagination(false)
	m.list.SetFilteringEnabled(false)
	return m
}

// SelectFile lets the user pick one candidate and returns its path.
func SelectFile(ctx context.Context, candidates []FileCandidate, styles Styles) (string, error) {
	program := tea.NewProgram(newFileSelectModel(candidates, styles), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := program.Run()
	if err != nil {
		return "", fmt.Errorf("file selector: %w", err)
	}

	result, ok := final.(fileSelectModel)
	if !ok {
		return "", errors.New("file selector returned unexpected model")
	}
	if result.err != nil {
		return "", result.err
	}
	if result.selected == "" {
		return "", errors.New("no file selected")
	}
	return result.selected, nil
}

func (m fileSelectModel) Init() tea.Cmd {
	return nil
}

func (m fileSelectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.err = ErrSelectorQuit
			return m, tea.Quit
		case "enter":
			if item, ok := m.list.SelectedItem().(fileItem); ok {
				m.selected = item.Path
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		height := msg.Height
		if height < 5 {
			height = 5
		}
		m.list.SetSize(msg.Width, height-2)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m fileSelectModel) View() string {
	return m.list.View() + "\n" + "up/down: move, enter: select, q: quit"
}
