package tui

import (
	"fmt"
	"strings"

	"github.com/chojs23/seqmerge/internal/lines"
	"github.com/chojs23/seqmerge/internal/markers"
)

type lineCategory int

const (
	categoryText lineCategory = iota
	categoryLocal
	categoryLatest
	categoryBase
	categoryResolved
	categoryUnresolved
)

type lineInfo struct {
	text     string
	category lineCategory
	current  bool
}

type paneSide int

const (
	paneLocal paneSide = iota
	paneLatest
)

// splitLines returns the content of each line without its terminator.
func splitLines(data []byte) []string {
	seq := lines.FromBytes(data)
	out := make([]string, seq.Len())
	for i := range out {
		out[i] = string(seq.Content(i))
	}
	return out
}

func appendLines(dst []lineInfo, data []byte, c lineCategory, current bool) []lineInfo {
	for _, text := range splitLines(data) {
		dst = append(dst, lineInfo{text: text, category: c, current: current})
	}
	return dst
}

// buildPaneLines lays out the whole document as seen from one side. It
// returns the lines and the index of the first line of conflict cur.
func buildPaneLines(doc markers.Document, side paneSide, cur int) ([]lineInfo, int) {
	var out []lineInfo
	start, n := 0, -1
	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case markers.TextSegment:
			out = appendLines(out, s.Bytes, categoryText, false)
		case markers.ConflictSegment:
			n++
			current := n == cur
			if current {
				start = len(out)
			}
			body, c := s.Local, categoryLocal
			if side == paneLatest {
				body, c = s.Latest, categoryLatest
			}
			if len(body) == 0 {
				out = append(out, lineInfo{text: "(empty)", category: categoryBase, current: current})
				continue
			}
			out = appendLines(out, body, c, current)
		}
	}
	return out, start
}

// buildResultLines previews the output. Unresolved conflicts show a marker
// line followed by the base section, if any.
func buildResultLines(doc markers.Document, cur int) ([]lineInfo, int) {
	var out []lineInfo
	start, n := 0, -1
	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case markers.TextSegment:
			out = appendLines(out, s.Bytes, categoryText, false)
		case markers.ConflictSegment:
			n++
			current := n == cur
			if current {
				start = len(out)
			}
			switch s.Resolution {
			case markers.ResolutionUnset:
				out = append(out, lineInfo{text: fmt.Sprintf("<<< conflict %d unresolved >>>", n+1), category: categoryUnresolved, current: current})
				out = appendLines(out, s.Base, categoryBase, current)
			case markers.ResolutionLocal:
				out = appendLines(out, s.Local, categoryResolved, current)
			case markers.ResolutionLatest:
				out = appendLines(out, s.Latest, categoryResolved, current)
			case markers.ResolutionBase:
				out = appendLines(out, s.Base, categoryResolved, current)
			case markers.ResolutionBoth:
				out = appendLines(out, s.Local, categoryResolved, current)
				out = appendLines(out, s.Latest, categoryResolved, current)
			}
		}
	}
	return out, start
}

func renderLines(ls []lineInfo, s Styles) string {
	if len(ls) == 0 {
		return ""
	}
	width := len(fmt.Sprintf("%d", len(ls)))
	var b strings.Builder
	for i, l := range ls {
		marker := " "
		if l.current {
			marker = ">"
		}
		b.WriteString(s.LineNumber.Render(fmt.Sprintf("%*d %s ", width, i+1, marker)))
		b.WriteString(s.line(l.category, l.current).Render(l.text))
		if i < len(ls)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
