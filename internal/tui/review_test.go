package tui

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/chojs23/seqmerge/internal/config"
	"github.com/chojs23/seqmerge/internal/markers"
)

func newTestModel(t *testing.T, content string) (model, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "merged.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write merged: %v", err)
	}
	m, err := newModel(Options{
		Path:      path,
		Markers:   markers.DefaultSet(),
		Theme:     config.Defaults().Theme,
		UndoDepth: 10,
		Backup:    true,
	})
	if err != nil {
		t.Fatalf("newModel: %v", err)
	}
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return updated.(model), path
}

func press(t *testing.T, m model, keys ...string) (model, tea.Cmd) {
	t.Helper()
	var cmd tea.Cmd
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "ctrl+c":
			msg = tea.KeyMsg{Type: tea.KeyCtrlC}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		var updated tea.Model
		updated, cmd = m.Update(msg)
		m = updated.(model)
	}
	return m, cmd
}

func TestNewModelErrors(t *testing.T) {
	dir := t.TempDir()
	clean := filepath.Join(dir, "clean.txt")
	if err := os.WriteFile(clean, []byte("no conflicts\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := newModel(Options{Path: clean, Markers: markers.DefaultSet(), UndoDepth: 1}); !errors.Is(err, ErrNoConflicts) {
		t.Fatalf("expected ErrNoConflicts, got %v", err)
	}

	broken := filepath.Join(dir, "broken.txt")
	if err := os.WriteFile(broken, []byte("<<<<<<< (modified)\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := newModel(Options{Path: broken, Markers: markers.DefaultSet(), UndoDepth: 1}); !errors.Is(err, markers.ErrMalformedConflict) {
		t.Fatalf("expected ErrMalformedConflict, got %v", err)
	}

	if _, err := newModel(Options{Path: filepath.Join(dir, "missing"), Markers: markers.DefaultSet(), UndoDepth: 1}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestModelQuitBackToSelector(t *testing.T) {
	m, _ := newTestModel(t, reviewInput)
	m, cmd := press(t, m, "q")
	if !errors.Is(m.err, ErrBackToSelector) || !m.quitting || cmd == nil {
		t.Fatalf("expected quit with ErrBackToSelector, got %v", m.err)
	}

	m, _ = newTestModel(t, reviewInput)
	m, _ = press(t, m, "ctrl+c")
	if m.err != nil || !m.quitting {
		t.Fatalf("ctrl+c should quit cleanly, got %v", m.err)
	}
}

func TestModelNavigation(t *testing.T) {
	m, _ := newTestModel(t, reviewInput)

	m, _ = press(t, m, "p")
	if m.current != 0 {
		t.Fatalf("p at first conflict moved to %d", m.current)
	}
	m, _ = press(t, m, "n", "n")
	if m.current != 1 {
		t.Fatalf("current = %d, want 1", m.current)
	}
	m, _ = press(t, m, "p")
	if m.current != 0 {
		t.Fatalf("current = %d, want 0", m.current)
	}
}

func TestModelResolveUndoRedo(t *testing.T) {
	m, _ := newTestModel(t, reviewInput)

	m, _ = press(t, m, "l", "n", "t")
	if got := m.state.Resolution(0); got != markers.ResolutionLocal {
		t.Fatalf("conflict 1 = %q", got)
	}
	if got := m.state.Resolution(1); got != markers.ResolutionLatest {
		t.Fatalf("conflict 2 = %q", got)
	}

	m, _ = press(t, m, "u")
	if got := m.state.Resolution(1); got != markers.ResolutionUnset {
		t.Fatalf("undo left %q", got)
	}
	m, _ = press(t, m, "r")
	if got := m.state.Resolution(1); got != markers.ResolutionLatest {
		t.Fatalf("redo gave %q", got)
	}

	m, _ = press(t, m, "a")
	if got := m.state.Resolution(1); got != markers.ResolutionLatest {
		t.Fatalf("base key on conflict without base gave %q", got)
	}
	if m.quitting || m.toastMessage == "" {
		t.Fatalf("expected a toast for missing base, quitting=%v toast=%q", m.quitting, m.toastMessage)
	}
	m, _ = press(t, m, "p", "a")
	if got := m.state.Resolution(0); got != markers.ResolutionBase {
		t.Fatalf("base key gave %q", got)
	}

	m, _ = press(t, m, "T")
	if m.state.Resolution(0) != markers.ResolutionLatest || m.state.Resolution(1) != markers.ResolutionLatest {
		t.Fatalf("resolve all failed")
	}
	if m.state.RedoDepth() != 0 {
		t.Fatalf("new edit should drop redo history")
	}
}

func TestModelUndoEmptyShowsToast(t *testing.T) {
	m, _ := newTestModel(t, reviewInput)
	m, cmd := press(t, m, "u")
	if m.toastMessage != "Nothing to undo" || cmd == nil {
		t.Fatalf("toast = %q", m.toastMessage)
	}

	updated, _ := m.Update(toastExpiredMsg{id: m.toastSeq})
	if updated.(model).toastMessage != "" {
		t.Fatalf("toast not cleared")
	}
}

func TestModelWriteRequiresResolution(t *testing.T) {
	m, path := newTestModel(t, reviewInput)

	m, _ = press(t, m, "l", "w")
	if m.quitting || m.saved {
		t.Fatalf("write with unresolved conflicts should neither quit nor save")
	}
	if m.toastMessage != "1 conflicts unresolved" {
		t.Fatalf("toast = %q", m.toastMessage)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != reviewInput {
		t.Fatalf("file changed before resolution")
	}
}

func TestModelWriteDoesNotQuit(t *testing.T) {
	m, path := newTestModel(t, reviewInput)

	m, _ = press(t, m, "b", "n", "x", "w")
	if m.quitting {
		t.Fatalf("write should not quit")
	}
	if !m.saved || m.toastMessage != "Saved" {
		t.Fatalf("saved = %v, toast = %q", m.saved, m.toastMessage)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "head\nmine\ntheirs\nmore\nmid\ntail"; string(data) != want {
		t.Fatalf("written = %q, want %q", data, want)
	}
	bak, err := os.ReadFile(path + ".seqmerge.bak")
	if err != nil {
		t.Fatalf("backup missing: %v", err)
	}
	if string(bak) != reviewInput {
		t.Fatalf("backup content mismatch")
	}
}

func TestModelView(t *testing.T) {
	m, path := newTestModel(t, reviewInput)
	view := m.View()
	for _, want := range []string{path, "conflict 1/2", "2 unresolved", "LOCAL (modified)", "LATEST (latest)", "RESULT"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}

	var zero model
	if zero.View() != "\n  Initializing..." {
		t.Fatalf("unexpected view before size: %q", zero.View())
	}
}
