package seqdiff

import (
	"fmt"
	"strings"

	"github.com/ianbruene/go-difflib/difflib"
	"znkr.io/diff"
)

// Block is one non-matching stretch between base and a modified side:
// base[BaseStart:BaseEnd] was replaced by side[Start:End]. A block with an
// empty base span is a pure insertion, one with an empty side span a pure
// deletion.
type Block struct {
	BaseStart, BaseEnd int
	Start, End         int
}

// IsInsertion reports whether b removes no base lines.
func (b Block) IsInsertion() bool {
	return b.BaseStart == b.BaseEnd
}

// Len returns the number of side lines in b.
func (b Block) Len() int {
	return b.End - b.Start
}

// Differ computes the ordered, non-adjacent blocks that turn base into side.
type Differ interface {
	Blocks(base, side []string) []Block
}

// Engine names accepted by ByName.
const (
	EngineMyers   = "myers"
	EngineMatcher = "matcher"
)

// ByName returns the Differ registered under name. The empty name selects
// the Myers differ.
func ByName(name string) (Differ, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", EngineMyers:
		return Myers{}, nil
	case EngineMatcher, "difflib":
		return Matcher{}, nil
	default:
		return nil, fmt.Errorf("unknown diff engine %q (expected %s|%s)", name, EngineMyers, EngineMatcher)
	}
}

// Myers finds a minimal edit script.
type Myers struct{}

func (Myers) Blocks(base, side []string) []Block {
	var (
		blocks []Block
		cur    Block
		open   bool
		i, j   int
	)
	for _, edit := range diff.Edits(base, side) {
		switch edit.Op {
		case diff.Match:
			if open {
				cur.BaseEnd, cur.End = i, j
				blocks = append(blocks, cur)
				open = false
			}
			i++
			j++
		case diff.Delete, diff.Insert:
			if !open {
				cur = Block{BaseStart: i, Start: j}
				open = true
			}
			if edit.Op == diff.Delete {
				i++
			} else {
				j++
			}
		}
	}
	if open {
		cur.BaseEnd, cur.End = i, j
		blocks = append(blocks, cur)
	}
	return blocks
}

// Matcher aligns on the longest common runs first (Ratcliff/Obershelp). It
// does not guarantee a minimal script but tends to keep moved paragraphs
// together.
type Matcher struct{}

func (Matcher) Blocks(base, side []string) []Block {
	m := difflib.NewMatcherWithJunk(base, side, false, nil)

	var blocks []Block
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		if n := len(blocks); n > 0 && blocks[n-1].BaseEnd == op.I1 && blocks[n-1].End == op.J1 {
			blocks[n-1].BaseEnd, blocks[n-1].End = op.I2, op.J2
			continue
		}
		blocks = append(blocks, Block{BaseStart: op.I1, BaseEnd: op.I2, Start: op.J1, End: op.J2})
	}
	return blocks
}
