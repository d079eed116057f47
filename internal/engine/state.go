package engine

import (
	"errors"
	"fmt"

	"github.com/chojs23/seqmerge/internal/markers"
)

var (
	ErrNothingToUndo = errors.New("no undo history available")
	ErrNothingToRedo = errors.New("no redo history available")
)

// State tracks conflict resolutions for one document with bounded undo and
// redo. History holds one resolution snapshot per edit; cursor marks the
// snapshot applied to doc.
type State struct {
	doc     markers.Document
	history [][]markers.Resolution
	cursor  int
	depth   int
}

// NewState wraps doc. depth bounds how many edits can be undone.
func NewState(doc markers.Document, depth int) (*State, error) {
	if depth < 1 {
		return nil, fmt.Errorf("undo depth must be >= 1, got %d", depth)
	}
	s := &State{doc: doc, depth: depth}
	s.history = [][]markers.Resolution{s.snapshot()}
	return s, nil
}

func validResolution(res markers.Resolution) error {
	switch res {
	case markers.ResolutionLocal, markers.ResolutionLatest, markers.ResolutionBase,
		markers.ResolutionBoth, markers.ResolutionNone:
		return nil
	default:
		return fmt.Errorf("invalid resolution: %q", res)
	}
}

// Apply resolves the i-th conflict (an index into doc.Conflicts).
func (s *State) Apply(i int, res markers.Resolution) error {
	if i < 0 || i >= len(s.doc.Conflicts) {
		return fmt.Errorf("conflict index %d out of bounds [0, %d)", i, len(s.doc.Conflicts))
	}
	if err := validResolution(res); err != nil {
		return err
	}
	if err := s.checkBase(i, res); err != nil {
		return err
	}
	next := s.snapshot()
	next[i] = res
	s.record(next)
	return nil
}

// ApplyAll resolves every conflict as one undoable edit.
func (s *State) ApplyAll(res markers.Resolution) error {
	if err := validResolution(res); err != nil {
		return err
	}
	for i := range s.doc.Conflicts {
		if err := s.checkBase(i, res); err != nil {
			return err
		}
	}
	next := s.snapshot()
	for i := range next {
		next[i] = res
	}
	s.record(next)
	return nil
}

// checkBase rejects a base resolution for a conflict written without its
// base lines.
func (s *State) checkBase(i int, res markers.Resolution) error {
	if res != markers.ResolutionBase {
		return nil
	}
	if seg, ok := s.doc.Conflict(i); ok && seg.Base == nil {
		return fmt.Errorf("conflict %d: %w", i+1, markers.ErrNoBase)
	}
	return nil
}

func (s *State) Undo() error {
	if s.cursor == 0 {
		return ErrNothingToUndo
	}
	s.cursor--
	s.restore(s.history[s.cursor])
	return nil
}

func (s *State) Redo() error {
	if s.cursor == len(s.history)-1 {
		return ErrNothingToRedo
	}
	s.cursor++
	s.restore(s.history[s.cursor])
	return nil
}

// Preview renders the document. It fails while a conflict is unresolved.
func (s *State) Preview() ([]byte, error) {
	return markers.RenderResolved(s.doc)
}

func (s *State) Document() markers.Document { return s.doc }

// Resolution returns the current resolution of the i-th conflict.
func (s *State) Resolution(i int) markers.Resolution {
	return s.history[s.cursor][i]
}

func (s *State) Unresolved() int { return s.doc.Unresolved() }

func (s *State) UndoDepth() int { return s.cursor }

func (s *State) RedoDepth() int { return len(s.history) - 1 - s.cursor }

func (s *State) snapshot() []markers.Resolution {
	out := make([]markers.Resolution, len(s.doc.Conflicts))
	for i := range out {
		seg, _ := s.doc.Conflict(i)
		out[i] = seg.Resolution
	}
	return out
}

// record drops any redo branch, appends next and trims the oldest entries
// beyond depth.
func (s *State) record(next []markers.Resolution) {
	s.history = append(s.history[:s.cursor+1], next)
	if over := len(s.history) - (s.depth + 1); over > 0 {
		s.history = s.history[over:]
	}
	s.cursor = len(s.history) - 1
	s.restore(next)
}

func (s *State) restore(res []markers.Resolution) {
	segments := make([]markers.Segment, len(s.doc.Segments))
	copy(segments, s.doc.Segments)
	for i, ref := range s.doc.Conflicts {
		seg, ok := segments[ref.SegmentIndex].(markers.ConflictSegment)
		if !ok {
			continue
		}
		seg.Resolution = res[i]
		segments[ref.SegmentIndex] = seg
	}
	s.doc.Segments = segments
}
