package markers

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrUnresolved = errors.New("unresolved")
	ErrNoBase     = errors.New("conflict has no base section")
)

func RenderResolved(doc Document) ([]byte, error) {
	var out bytes.Buffer

	for _, seg := range doc.Segments {
		switch s := seg.(type) {
		case TextSegment:
			out.Write(s.Bytes)
		case ConflictSegment:
			switch s.Resolution {
			case ResolutionLocal:
				out.Write(s.Local)
			case ResolutionLatest:
				out.Write(s.Latest)
			case ResolutionBase:
				if s.Base == nil {
					return nil, ErrNoBase
				}
				out.Write(s.Base)
			case ResolutionBoth:
				out.Write(s.Local)
				out.Write(s.Latest)
			case ResolutionNone:
			default:
				return nil, fmt.Errorf("%w: conflict without resolution", ErrUnresolved)
			}
		default:
			return nil, fmt.Errorf("unknown segment type %T", seg)
		}
	}

	return out.Bytes(), nil
}

// Resolve sets the resolution of every conflict in doc.
func Resolve(doc Document, res Resolution) Document {
	for _, ref := range doc.Conflicts {
		seg, ok := doc.Segments[ref.SegmentIndex].(ConflictSegment)
		if !ok {
			continue
		}
		seg.Resolution = res
		doc.Segments[ref.SegmentIndex] = seg
	}
	return doc
}
