package lines

import (
	"io"
	"os"

	"github.com/edsrzf/mmap-go"
	"github.com/pkg/errors"
)

// EOL identifies the end-of-line bytes terminating a line.
type EOL int

const (
	EOLNone EOL = iota // final line without a terminator
	EOLLF
	EOLCRLF
	EOLCR
)

func (e EOL) String() string {
	switch e {
	case EOLLF:
		return "LF"
	case EOLCRLF:
		return "CRLF"
	case EOLCR:
		return "CR"
	default:
		return "none"
	}
}

// Bytes returns the terminator bytes for e.
func (e EOL) Bytes() []byte {
	switch e {
	case EOLLF:
		return []byte{'\n'}
	case EOLCRLF:
		return []byte{'\r', '\n'}
	case EOLCR:
		return []byte{'\r'}
	default:
		return nil
	}
}

func (e EOL) width() int {
	return len(e.Bytes())
}

type span struct {
	offset int
	length int // includes the terminator
	eol    EOL
}

// Sequence is an immutable, random-access view of a byte source split into
// lines. Lines end at "\n", "\r\n" or a lone "\r"; trailing bytes without a
// terminator form the last line.
type Sequence struct {
	data  []byte
	spans []span
	unmap func() error
}

// FromBytes builds a Sequence over data without copying it. The caller must
// not modify data while the Sequence is in use.
func FromBytes(data []byte) *Sequence {
	return &Sequence{data: data, spans: split(data)}
}

// Read consumes r fully and returns a Sequence over its content.
func Read(r io.Reader) (*Sequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read line source")
	}
	return FromBytes(data), nil
}

// Open maps the file at path read-only. Close releases the mapping and
// invalidates every slice previously returned by the Sequence.
func Open(path string) (*Sequence, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, errors.Wrapf(err, "stat %s", path)
	}
	if info.IsDir() {
		return nil, errors.Errorf("%s is a directory", path)
	}
	// Zero-length files cannot be mapped.
	if info.Size() == 0 {
		return FromBytes(nil), nil
	}

	data, err := mmap.Map(file, mmap.RDONLY, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "map %s", path)
	}

	seq := FromBytes(data)
	seq.unmap = data.Unmap
	return seq, nil
}

// Close releases resources held by the sequence. It is safe to call on
// memory-backed sequences and more than once.
func (s *Sequence) Close() error {
	if s == nil || s.unmap == nil {
		return nil
	}
	unmap := s.unmap
	s.unmap = nil
	return errors.Wrap(unmap(), "unmap line source")
}

// Len returns the number of lines.
func (s *Sequence) Len() int {
	return len(s.spans)
}

// Size returns the number of bytes in the source.
func (s *Sequence) Size() int {
	return len(s.data)
}

// Bytes returns the whole source.
func (s *Sequence) Bytes() []byte {
	return s.data
}

// Line returns line i including its terminator.
func (s *Sequence) Line(i int) []byte {
	sp := s.spans[i]
	return s.data[sp.offset : sp.offset+sp.length]
}

// Content returns line i without its terminator.
func (s *Sequence) Content(i int) []byte {
	sp := s.spans[i]
	return s.data[sp.offset : sp.offset+sp.length-sp.eol.width()]
}

// EOL returns the terminator style of line i.
func (s *Sequence) EOL(i int) EOL {
	return s.spans[i].eol
}

// Offset returns the byte offset and length (terminator included) of line i.
func (s *Sequence) Offset(i int) (offset, length int) {
	sp := s.spans[i]
	return sp.offset, sp.length
}

// Span returns the bytes of lines [start, end) as one slice.
func (s *Sequence) Span(start, end int) []byte {
	if start >= end {
		return nil
	}
	first := s.spans[start]
	last := s.spans[end-1]
	return s.data[first.offset : last.offset+last.length]
}

func split(data []byte) []span {
	var spans []span
	start := 0
	for i := 0; i < len(data); i++ {
		switch data[i] {
		case '\n':
			spans = append(spans, span{offset: start, length: i + 1 - start, eol: EOLLF})
			start = i + 1
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				spans = append(spans, span{offset: start, length: i + 2 - start, eol: EOLCRLF})
				i++
			} else {
				spans = append(spans, span{offset: start, length: i + 1 - start, eol: EOLCR})
			}
			start = i + 1
		}
	}
	if start < len(data) {
		spans = append(spans, span{offset: start, length: len(data) - start, eol: EOLNone})
	}
	return spans
}
