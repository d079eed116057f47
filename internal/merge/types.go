package merge

import (
	"fmt"
	"strings"
)

// Status classifies a whole merge.
type Status int

const (
	NotModified Status = iota
	Merged
	Conflicted
)

func (s Status) String() string {
	switch s {
	case NotModified:
		return "not-modified"
	case Merged:
		return "merged"
	case Conflicted:
		return "conflicted"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Code returns the status column character a working-copy client prints for
// a file after an update or merge.
func (s Status) Code() byte {
	switch s {
	case Merged:
		return 'G'
	case Conflicted:
		return 'C'
	default:
		return ' '
	}
}

// Markers are the literal lines written around conflict sides. An empty
// marker is not written at all.
type Markers struct {
	Start     string `mapstructure:"start" yaml:"start"`
	Base      string `mapstructure:"base" yaml:"base"`
	Separator string `mapstructure:"separator" yaml:"separator"`
	End       string `mapstructure:"end" yaml:"end"`
	// EOL terminates every marker line. Empty means "\n".
	EOL string `mapstructure:"eol" yaml:"eol"`
}

func DefaultMarkers() Markers {
	return Markers{
		Start:     "<<<<<<< (modified)",
		Base:      "||||||| (base)",
		Separator: "=======",
		End:       ">>>>>>> (latest)",
		EOL:       "\n",
	}
}

func (m Markers) eol() string {
	if m.EOL == "" {
		return "\n"
	}
	return m.EOL
}

// Style selects how conflicts are written. It never changes the Status.
type Style int

const (
	// StyleModifiedLatest writes both sides between markers.
	StyleModifiedLatest Style = iota
	// StyleModifiedOriginalLatest adds the base lines after the base marker.
	StyleModifiedOriginalLatest
	// StyleModified keeps the local side of every conflict.
	StyleModified
	// StyleLatest keeps the latest side of every conflict.
	StyleLatest
	// StyleOnlyConflicts writes the conflict hunks and nothing else.
	StyleOnlyConflicts
)

var styleNames = map[Style]string{
	StyleModifiedLatest:         "modified-latest",
	StyleModifiedOriginalLatest: "modified-original-latest",
	StyleModified:               "modified",
	StyleLatest:                 "latest",
	StyleOnlyConflicts:          "only-conflicts",
}

func (s Style) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("style(%d)", int(s))
}

// WritesBase reports whether conflicts written in s carry their base lines.
func (s Style) WritesBase() bool {
	return s == StyleModifiedOriginalLatest || s == StyleOnlyConflicts
}

// StyleNames lists the accepted style names in declaration order.
func StyleNames() []string {
	names := make([]string, 0, len(styleNames))
	for s := StyleModifiedLatest; s <= StyleOnlyConflicts; s++ {
		names = append(names, styleNames[s])
	}
	return names
}

func ParseStyle(name string) (Style, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return StyleModifiedLatest, nil
	}
	for s, n := range styleNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown conflict style %q (expected one of %s)", name, strings.Join(StyleNames(), ", "))
}

// Range is a half-open span of line indices.
type Range struct{ Start, End int }

func (r Range) Len() int { return r.End - r.Start }

func (r Range) String() string { return fmt.Sprintf("[%d,%d)", r.Start, r.End) }

// Region is one output-producing unit of a merge plan.
type Region interface{ isRegion() }

// Unchanged lines are written from local. Base and Local lengths differ only
// when both sides made the same change.
type Unchanged struct{ Base, Local Range }

func (Unchanged) isRegion() {}

type LocalChange struct{ Base, Local Range }

func (LocalChange) isRegion() {}

type LatestChange struct{ Base, Latest Range }

func (LatestChange) isRegion() {}

// Conflict bundles overlapping changes. All three ranges cover the same
// widened base span.
type Conflict struct{ Base, Local, Latest Range }

func (Conflict) isRegion() {}
