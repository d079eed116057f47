package seqdiff

import (
	"github.com/chojs23/seqmerge/internal/lines"
)

// Options controls how lines are compared. They never change the bytes a
// merge writes; only which lines count as equal.
type Options struct {
	IgnoreAllWhitespace    bool `mapstructure:"ignore-all-space" yaml:"ignore-all-space"`
	IgnoreWhitespaceChange bool `mapstructure:"ignore-space-change" yaml:"ignore-space-change"`
	IgnoreEOLStyle         bool `mapstructure:"ignore-eol-style" yaml:"ignore-eol-style"`
}

// Keys returns one comparison key per line of seq. Two lines are equal under
// o iff their keys are equal.
func Keys(seq *lines.Sequence, o Options) []string {
	keys := make([]string, seq.Len())
	for i := range keys {
		keys[i] = o.key(seq.Content(i), seq.EOL(i))
	}
	return keys
}

func (o Options) key(content []byte, eol lines.EOL) string {
	switch {
	case o.IgnoreAllWhitespace:
		content = dropSpace(content)
	case o.IgnoreWhitespaceChange:
		content = squeezeSpace(content)
	}
	if o.IgnoreEOLStyle {
		return string(content)
	}
	// Content never holds CR or LF, so the terminator can't collide with it.
	return string(content) + string(eol.Bytes())
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\v' || b == '\f'
}

func dropSpace(content []byte) []byte {
	out := make([]byte, 0, len(content))
	for _, b := range content {
		if !isSpace(b) {
			out = append(out, b)
		}
	}
	return out
}

// squeezeSpace folds every whitespace run into one space and drops trailing
// whitespace.
func squeezeSpace(content []byte) []byte {
	out := make([]byte, 0, len(content))
	inSpace := false
	for _, b := range content {
		if isSpace(b) {
			inSpace = true
			continue
		}
		if inSpace {
			out = append(out, ' ')
			inSpace = false
		}
		out = append(out, b)
	}
	return out
}
