package markers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/chojs23/seqmerge/internal/lines"
)

var ErrMalformedConflict = errors.New("malformed conflict markers")

// Parse splits data into text and conflict segments using set.
//
// It is strict: once a start marker is seen it requires a full marker
// structure, optionally with a base section.
func Parse(data []byte, set Set) (Document, error) {
	if set.Start == "" || set.Separator == "" || set.End == "" {
		return Document{}, errors.New("marker set needs start, separator and end")
	}

	var doc Document
	seq := lines.FromBytes(data)

	var textBuf bytes.Buffer
	appendText := func() {
		if textBuf.Len() == 0 {
			return
		}
		doc.Segments = append(doc.Segments, TextSegment{Bytes: append([]byte(nil), textBuf.Bytes()...)})
		textBuf.Reset()
	}

	n := seq.Len()
	for i := 0; i < n; i++ {
		if !isMarker(seq, i, set.Start) {
			textBuf.Write(seq.Line(i))
			continue
		}
		appendText()
		seg := ConflictSegment{LocalLabel: label(seq, i, set.Start)}

		i++
		var local bytes.Buffer
		for ; i < n; i++ {
			if isMarker(seq, i, set.Base) || isMarker(seq, i, set.Separator) {
				break
			}
			local.Write(seq.Line(i))
		}
		if i >= n {
			return Document{}, fmt.Errorf("%w: missing separator", ErrMalformedConflict)
		}

		if isMarker(seq, i, set.Base) {
			seg.BaseLabel = label(seq, i, set.Base)
			i++
			var base bytes.Buffer
			for ; i < n; i++ {
				if isMarker(seq, i, set.Separator) {
					break
				}
				base.Write(seq.Line(i))
			}
			if i >= n {
				return Document{}, fmt.Errorf("%w: missing %s after base", ErrMalformedConflict, set.Separator)
			}
			seg.Base = append([]byte{}, base.Bytes()...)
		}

		i++
		var latest bytes.Buffer
		for ; i < n; i++ {
			if isMarker(seq, i, set.End) {
				break
			}
			latest.Write(seq.Line(i))
		}
		if i >= n {
			return Document{}, fmt.Errorf("%w: missing end marker", ErrMalformedConflict)
		}
		seg.LatestLabel = label(seq, i, set.End)
		seg.Local = local.Bytes()
		seg.Latest = latest.Bytes()

		doc.Conflicts = append(doc.Conflicts, ConflictRef{SegmentIndex: len(doc.Segments)})
		doc.Segments = append(doc.Segments, seg)
	}

	appendText()
	return doc, nil
}

// isMarker reports whether line i starts with prefix. Markers only count at
// line start.
func isMarker(seq *lines.Sequence, i int, prefix string) bool {
	return prefix != "" && bytes.HasPrefix(seq.Content(i), []byte(prefix))
}

func label(seq *lines.Sequence, i int, prefix string) string {
	return strings.TrimSpace(string(seq.Content(i)[len(prefix):]))
}

// Count returns the number of well-formed conflicts in data.
func Count(data []byte, set Set) (int, error) {
	doc, err := Parse(data, set)
	if err != nil {
		return 0, err
	}
	return len(doc.Conflicts), nil
}

// IsResolved reports whether data holds no conflict blocks. Malformed marker
// structures count as unresolved; marker-like text not at line start does
// not.
func IsResolved(data []byte, set Set) bool {
	n, err := Count(data, set)
	return err == nil && n == 0
}
