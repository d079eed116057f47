package merge

import (
	"fmt"
	"io"

	"github.com/chojs23/seqmerge/internal/lines"
)

// sink remembers the first write error and the last byte written so marker
// lines never get glued onto an unterminated line.
type sink struct {
	w    io.Writer
	n    int64
	last byte
	err  error
}

func (s *sink) write(p []byte) {
	if s.err != nil || len(p) == 0 {
		return
	}
	n, err := s.w.Write(p)
	s.n += int64(n)
	if n > 0 {
		s.last = p[n-1]
	}
	if err == nil && n < len(p) {
		err = io.ErrShortWrite
	}
	s.err = err
}

func (s *sink) lines(seq *lines.Sequence, r Range) {
	s.write(seq.Span(r.Start, r.End))
}

func (s *sink) marker(m, eol string) {
	if m == "" {
		return
	}
	if s.n > 0 && s.last != '\n' && s.last != '\r' {
		s.write([]byte(eol))
	}
	s.write([]byte(m))
	s.write([]byte(eol))
}

// Render writes the plan to w and returns the number of bytes written.
func (p *Plan) Render(w io.Writer, markers Markers, style Style) (int64, error) {
	s := &sink{w: w}
	eol := markers.eol()

	for _, region := range p.Regions {
		switch r := region.(type) {
		case Unchanged:
			if style != StyleOnlyConflicts {
				s.lines(p.local, r.Local)
			}
		case LocalChange:
			if style != StyleOnlyConflicts {
				s.lines(p.local, r.Local)
			}
		case LatestChange:
			if style != StyleOnlyConflicts {
				s.lines(p.latest, r.Latest)
			}
		case Conflict:
			switch style {
			case StyleModified:
				s.lines(p.local, r.Local)
			case StyleLatest:
				s.lines(p.latest, r.Latest)
			default:
				s.marker(markers.Start, eol)
				s.lines(p.local, r.Local)
				if style != StyleModifiedLatest && markers.Base != "" {
					s.marker(markers.Base, eol)
					s.lines(p.base, r.Base)
				}
				s.marker(markers.Separator, eol)
				s.lines(p.latest, r.Latest)
				s.marker(markers.End, eol)
			}
		default:
			return s.n, fmt.Errorf("%w: unknown region %T", ErrInvariant, region)
		}
		if s.err != nil {
			return s.n, fmt.Errorf("write merged output: %w", s.err)
		}
	}
	return s.n, nil
}
