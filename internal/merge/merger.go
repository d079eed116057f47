package merge

import (
	"io"

	"go.uber.org/zap"

	"github.com/chojs23/seqmerge/internal/lines"
	"github.com/chojs23/seqmerge/internal/seqdiff"
)

// Merger runs three-way merges by sequence. The zero value is not usable;
// build one with New. A Merger holds no per-merge state and may be shared.
type Merger struct {
	differ   seqdiff.Differ
	diffOpts seqdiff.Options
	markers  Markers
	style    Style
	logger   *zap.Logger
}

type Option func(*Merger)

func WithDiffer(d seqdiff.Differ) Option {
	return func(m *Merger) {
		if d != nil {
			m.differ = d
		}
	}
}

func WithDiffOptions(o seqdiff.Options) Option {
	return func(m *Merger) { m.diffOpts = o }
}

func WithMarkers(mk Markers) Option {
	return func(m *Merger) { m.markers = mk }
}

func WithStyle(s Style) Option {
	return func(m *Merger) { m.style = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(m *Merger) {
		if l != nil {
			m.logger = l
		}
	}
}

func New(opts ...Option) *Merger {
	m := &Merger{
		differ:  seqdiff.Myers{},
		markers: DefaultMarkers(),
		style:   StyleModifiedLatest,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Plan diffs local and latest against base and lays out the merge regions.
func (m *Merger) Plan(base, local, latest *lines.Sequence) (*Plan, error) {
	baseKeys := seqdiff.Keys(base, m.diffOpts)
	localKeys := seqdiff.Keys(local, m.diffOpts)
	latestKeys := seqdiff.Keys(latest, m.diffOpts)

	localBlocks := m.differ.Blocks(baseKeys, localKeys)
	latestBlocks := m.differ.Blocks(baseKeys, latestKeys)

	plan, err := buildPlan(base, local, latest, localBlocks, latestBlocks, localKeys, latestKeys)
	if err != nil {
		return nil, err
	}

	stats := plan.Stats()
	m.logger.Debug("merge plan",
		zap.Int("base_lines", base.Len()),
		zap.Int("local_blocks", len(localBlocks)),
		zap.Int("latest_blocks", len(latestBlocks)),
		zap.Int("local_changes", stats.Local),
		zap.Int("latest_changes", stats.Latest),
		zap.Int("conflicts", stats.Conflicts),
	)
	return plan, nil
}

// Render writes plan with the merger's markers and style.
func (m *Merger) Render(plan *Plan, out io.Writer) (int64, error) {
	return plan.Render(out, m.markers, m.style)
}

// Merge writes the merged result of base, local and latest to out.
func (m *Merger) Merge(base, local, latest *lines.Sequence, out io.Writer) (Status, error) {
	plan, err := m.Plan(base, local, latest)
	if err != nil {
		return NotModified, err
	}
	n, err := m.Render(plan, out)
	if err != nil {
		return NotModified, err
	}
	status := plan.Status()
	m.logger.Debug("merged", zap.Stringer("status", status), zap.Int64("bytes", n), zap.Stringer("style", m.style))
	return status, nil
}

// Merge is a one-shot merge with the default differ and style.
func Merge(base, local, latest *lines.Sequence, opts seqdiff.Options, out io.Writer, markers Markers) (Status, error) {
	return New(WithDiffOptions(opts), WithMarkers(markers)).Merge(base, local, latest, out)
}
