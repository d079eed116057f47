package markers

import "strings"

type Resolution string

const (
	ResolutionUnset  Resolution = ""
	ResolutionLocal  Resolution = "local"
	ResolutionLatest Resolution = "latest"
	ResolutionBase   Resolution = "base"
	ResolutionBoth   Resolution = "both"
	ResolutionNone   Resolution = "none"
)

// ParseResolution accepts the resolution names plus the git-style aliases
// "ours" and "theirs".
func ParseResolution(s string) (Resolution, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "local", "ours", "mine":
		return ResolutionLocal, true
	case "latest", "theirs":
		return ResolutionLatest, true
	case "base":
		return ResolutionBase, true
	case "both":
		return ResolutionBoth, true
	case "none":
		return ResolutionNone, true
	default:
		return ResolutionUnset, false
	}
}

// Set holds the line prefixes that open, split and close a conflict. Base is
// optional; when empty a base section is never recognized.
type Set struct {
	Start     string
	Base      string
	Separator string
	End       string
}

func DefaultSet() Set {
	return Set{
		Start:     "<<<<<<<",
		Base:      "|||||||",
		Separator: "=======",
		End:       ">>>>>>>",
	}
}

// SetFromLines derives prefixes from full marker lines such as
// "<<<<<<< (modified)" by keeping the first field of each.
func SetFromLines(start, base, separator, end string) Set {
	return Set{
		Start:     firstField(start),
		Base:      firstField(base),
		Separator: firstField(separator),
		End:       firstField(end),
	}
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}

type Document struct {
	Segments  []Segment
	Conflicts []ConflictRef
}

type Segment interface{ isSegment() }

type TextSegment struct{ Bytes []byte }

func (TextSegment) isSegment() {}

type ConflictSegment struct {
	Local  []byte
	Base   []byte // nil without a base section
	Latest []byte

	LocalLabel  string
	BaseLabel   string
	LatestLabel string

	Resolution Resolution
}

func (ConflictSegment) isSegment() {}

// ConflictRef points to a conflict segment inside Document.Segments.
type ConflictRef struct {
	SegmentIndex int
}

// Conflict returns the i-th conflict of doc.
func (doc Document) Conflict(i int) (ConflictSegment, bool) {
	if i < 0 || i >= len(doc.Conflicts) {
		return ConflictSegment{}, false
	}
	seg, ok := doc.Segments[doc.Conflicts[i].SegmentIndex].(ConflictSegment)
	return seg, ok
}

// Unresolved counts conflicts without a resolution.
func (doc Document) Unresolved() int {
	n := 0
	for i := range doc.Conflicts {
		if seg, ok := doc.Conflict(i); ok && seg.Resolution == ResolutionUnset {
			n++
		}
	}
	return n
}
