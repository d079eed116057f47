package engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/chojs23/seqmerge/internal/markers"
)

// CheckResolvedFile reports whether path holds no conflict blocks.
// Malformed markers are an error rather than a false success.
func CheckResolvedFile(path string, set markers.Set) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read merged: %w", err)
	}
	n, err := markers.Count(data, set)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}

// ApplyAllAndWrite resolves every conflict block of path with res and
// rewrites the file. It returns the number of conflicts resolved; with none
// present the file is left untouched.
func ApplyAllAndWrite(path string, set markers.Set, res markers.Resolution, backup bool) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read merged: %w", err)
	}
	doc, err := markers.Parse(data, set)
	if err != nil {
		return 0, err
	}
	if len(doc.Conflicts) == 0 {
		return 0, nil
	}

	state, err := NewState(doc, 1)
	if err != nil {
		return 0, err
	}
	if err := state.ApplyAll(res); err != nil {
		return 0, err
	}
	return len(doc.Conflicts), SaveResolved(path, state, set, backup)
}

// SaveResolved writes the resolved document of state to path. It fails while
// a conflict is unresolved or when the result still parses as a conflict.
// Unchanged content is not rewritten.
func SaveResolved(path string, state *State, set markers.Set, backup bool) error {
	resolved, err := state.Preview()
	if err != nil {
		return err
	}
	if !markers.IsResolved(resolved, set) {
		return errors.New("resolution output still contains conflict markers")
	}
	if current, err := os.ReadFile(path); err == nil && bytes.Equal(current, resolved) {
		return nil
	}

	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(resolved)
		return err
	}, backup)
}
