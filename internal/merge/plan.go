package merge

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/chojs23/seqmerge/internal/lines"
	"github.com/chojs23/seqmerge/internal/seqdiff"
)

var ErrInvariant = errors.New("merge plan invariant violated")

// Plan is the ordered region list for one base/local/latest triple. Regions
// follow base order, never overlap, and cover every base line.
type Plan struct {
	Regions []Region

	base, local, latest *lines.Sequence
}

// Status derives the merge classification from the region kinds.
func (p *Plan) Status() Status {
	status := NotModified
	for _, r := range p.Regions {
		switch r.(type) {
		case Conflict:
			return Conflicted
		case LocalChange, LatestChange:
			status = Merged
		}
	}
	return status
}

// Stats counts regions per kind.
type Stats struct {
	Unchanged, Local, Latest, Conflicts int
}

func (p *Plan) Stats() Stats {
	return Stats{
		Unchanged: lo.CountBy(p.Regions, func(r Region) bool { _, ok := r.(Unchanged); return ok }),
		Local:     lo.CountBy(p.Regions, func(r Region) bool { _, ok := r.(LocalChange); return ok }),
		Latest:    lo.CountBy(p.Regions, func(r Region) bool { _, ok := r.(LatestChange); return ok }),
		Conflicts: lo.CountBy(p.Regions, func(r Region) bool { _, ok := r.(Conflict); return ok }),
	}
}

// Conflicts returns the conflict regions in order.
func (p *Plan) Conflicts() []Conflict {
	return lo.FilterMap(p.Regions, func(r Region, _ int) (Conflict, bool) {
		c, ok := r.(Conflict)
		return c, ok
	})
}

type cursor struct {
	blocks []seqdiff.Block
	i      int
}

func (c *cursor) cur() *seqdiff.Block  { return c.at(c.i) }
func (c *cursor) next() *seqdiff.Block { return c.at(c.i + 1) }
func (c *cursor) advance()             { c.i++ }

func (c *cursor) at(i int) *seqdiff.Block {
	if i >= len(c.blocks) {
		return nil
	}
	return &c.blocks[i]
}

type planner struct {
	baseCount   int
	localCount  int
	latestCount int
	localKeys   []string
	latestKeys  []string
	// unchanged maps a base line to its local line, or -1 when local changed it.
	unchanged []int

	regions []Region
	next    int
}

func buildPlan(base, local, latest *lines.Sequence, localBlocks, latestBlocks []seqdiff.Block, localKeys, latestKeys []string) (*Plan, error) {
	p := &planner{
		baseCount:   base.Len(),
		localCount:  local.Len(),
		latestCount: latest.Len(),
		localKeys:   localKeys,
		latestKeys:  latestKeys,
		unchanged:   mapUnchanged(base.Len(), localBlocks),
	}

	l := &cursor{blocks: localBlocks}
	r := &cursor{blocks: latestBlocks}
	for l.cur() != nil || r.cur() != nil {
		lb, rb := l.cur(), r.cur()
		if lb != nil && rb != nil {
			if p.equalChange(*lb, *rb) {
				if err := p.keepUnchanged(lb.BaseStart); err != nil {
					return nil, err
				}
				p.regions = append(p.regions, Unchanged{
					Base:  Range{lb.BaseStart, lb.BaseEnd},
					Local: Range{lb.Start, lb.End},
				})
				p.next = lb.BaseEnd
				l.advance()
				r.advance()
				continue
			}

			ls, rs := *lb, *rb
			if p.absorbConflict(l, r) {
				if err := p.conflict(ls, *l.cur(), rs, *r.cur()); err != nil {
					return nil, err
				}
				l.advance()
				r.advance()
				continue
			}
		}

		if isBefore(lb, rb) {
			if err := p.keepUnchanged(lb.BaseStart); err != nil {
				return nil, err
			}
			p.regions = append(p.regions, LocalChange{
				Base:  Range{lb.BaseStart, lb.BaseEnd},
				Local: Range{lb.Start, lb.End},
			})
			p.next = lb.BaseEnd
			l.advance()
			continue
		}

		if err := p.keepUnchanged(rb.BaseStart); err != nil {
			return nil, err
		}
		p.regions = append(p.regions, LatestChange{
			Base:   Range{rb.BaseStart, rb.BaseEnd},
			Latest: Range{rb.Start, rb.End},
		})
		p.next = rb.BaseEnd
		r.advance()
	}

	if err := p.keepUnchanged(p.baseCount); err != nil {
		return nil, err
	}
	return &Plan{Regions: p.regions, base: base, local: local, latest: latest}, nil
}

func mapUnchanged(baseCount int, localBlocks []seqdiff.Block) []int {
	m := make([]int, baseCount)
	b, l := 0, 0
	for _, blk := range localBlocks {
		for ; b < blk.BaseStart; b, l = b+1, l+1 {
			m[b] = l
		}
		for ; b < blk.BaseEnd; b++ {
			m[b] = -1
		}
		l = blk.End
	}
	for ; b < baseCount; b, l = b+1, l+1 {
		m[b] = l
	}
	return m
}

// keepUnchanged emits base lines [p.next, to) from their local copies.
func (p *planner) keepUnchanged(to int) error {
	for b := p.next; b < to; b++ {
		idx := p.unchanged[b]
		if idx < 0 {
			return fmt.Errorf("%w: base line %d is changed locally", ErrInvariant, b)
		}
		if n := len(p.regions); n > 0 {
			if u, ok := p.regions[n-1].(Unchanged); ok && u.Base.End == b && u.Local.End == idx && u.Base.Len() == u.Local.Len() {
				u.Base.End++
				u.Local.End++
				p.regions[n-1] = u
				continue
			}
		}
		p.regions = append(p.regions, Unchanged{Base: Range{b, b + 1}, Local: Range{idx, idx + 1}})
	}
	if to > p.next {
		p.next = to
	}
	return nil
}

// absorbConflict reports whether the current blocks conflict. While they do,
// it advances whichever cursor still has a following block overlapping the
// other side, leaving both cursors on the last block of the conflict.
func (p *planner) absorbConflict(l, r *cursor) bool {
	conflict := false
	for p.intersect(*l.cur(), *r.cur()) && !p.equalChange(*l.cur(), *r.cur()) {
		conflict = true
		if l.cur().BaseEnd <= r.cur().BaseEnd {
			if n := l.next(); n != nil && p.intersect(*n, *r.cur()) {
				l.advance()
				continue
			}
			break
		}
		if n := r.next(); n != nil && p.intersect(*l.cur(), *n) {
			r.advance()
			continue
		}
		break
	}
	return conflict
}

func (p *planner) conflict(ls, le, rs, re seqdiff.Block) error {
	minBase := min(ls.BaseStart, rs.BaseStart)
	maxBase := max(le.BaseEnd, re.BaseEnd)

	if err := p.keepUnchanged(minBase); err != nil {
		return err
	}
	p.regions = append(p.regions, Conflict{
		Base:   Range{minBase, maxBase},
		Local:  widen(ls, le, minBase, maxBase, p.localCount),
		Latest: widen(rs, re, minBase, maxBase, p.latestCount),
	})
	p.next = maxBase
	return nil
}

// widen stretches a side's block run so it covers the base span
// [minBase, maxBase), taking the surrounding lines the side left unchanged.
func widen(first, last seqdiff.Block, minBase, maxBase, count int) Range {
	return Range{
		Start: max(0, first.Start-(first.BaseStart-minBase)),
		End:   min(count, last.End+(maxBase-last.BaseEnd)),
	}
}

func (p *planner) equalChange(l, r seqdiff.Block) bool {
	if l.BaseStart != r.BaseStart || l.BaseEnd != r.BaseEnd || l.Len() != r.Len() {
		return false
	}
	for i := 0; i < l.Len(); i++ {
		if p.localKeys[l.Start+i] != p.latestKeys[r.Start+i] {
			return false
		}
	}
	return true
}

func (p *planner) intersect(a, b seqdiff.Block) bool {
	switch {
	case a.IsInsertion() && b.IsInsertion():
		return a.BaseStart == b.BaseStart
	case a.IsInsertion():
		return insertionHits(a.BaseStart, b, p.baseCount)
	case b.IsInsertion():
		return insertionHits(b.BaseStart, a, p.baseCount)
	default:
		return a.BaseStart < b.BaseEnd && b.BaseStart < a.BaseEnd
	}
}

// insertionHits reports whether an insertion at pos lands inside change. An
// insertion at end of base also hits a change reaching end of base.
func insertionHits(pos int, change seqdiff.Block, baseCount int) bool {
	if change.BaseStart <= pos && pos < change.BaseEnd {
		return true
	}
	return pos == baseCount && change.BaseEnd >= baseCount
}

func isBefore(a, b *seqdiff.Block) bool {
	return a != nil && (b == nil || a.BaseEnd <= b.BaseStart)
}
