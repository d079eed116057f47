package markers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func readInput(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestParse2Way(t *testing.T) {
	doc, err := Parse(readInput(t, "2way.input"), DefaultSet())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(doc.Conflicts))
	}
	if len(doc.Segments) != 3 {
		t.Fatalf("expected 3 segments (text, conflict, text), got %d", len(doc.Segments))
	}

	conflict, ok := doc.Segments[1].(ConflictSegment)
	if !ok {
		t.Fatalf("segment 1 is not ConflictSegment")
	}
	if string(conflict.Local) != "local content\n" {
		t.Errorf("local mismatch: %q", conflict.Local)
	}
	if string(conflict.Latest) != "latest content\n" {
		t.Errorf("latest mismatch: %q", conflict.Latest)
	}
	if conflict.Base != nil {
		t.Errorf("base should be nil, got %q", conflict.Base)
	}
	if conflict.LocalLabel != "(modified)" || conflict.LatestLabel != "(latest)" {
		t.Errorf("labels = %q/%q", conflict.LocalLabel, conflict.LatestLabel)
	}
}

func TestParseDiff3(t *testing.T) {
	doc, err := Parse(readInput(t, "diff3.input"), DefaultSet())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(doc.Conflicts))
	}

	conflict, ok := doc.Conflict(0)
	if !ok {
		t.Fatalf("conflict 0 missing")
	}
	if string(conflict.Local) != "local version\n" {
		t.Errorf("local mismatch: %q", conflict.Local)
	}
	if string(conflict.Base) != "base version\n" {
		t.Errorf("base mismatch: %q", conflict.Base)
	}
	if string(conflict.Latest) != "latest version\n" {
		t.Errorf("latest mismatch: %q", conflict.Latest)
	}
	if conflict.BaseLabel != "(base)" {
		t.Errorf("base label = %q", conflict.BaseLabel)
	}
}

func TestParseDiff3WithoutBaseMarker(t *testing.T) {
	set := DefaultSet()
	set.Base = ""

	doc, err := Parse(readInput(t, "diff3.input"), set)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	conflict, _ := doc.Conflict(0)
	if string(conflict.Local) != "local version\n||||||| (base)\nbase version\n" {
		t.Errorf("local mismatch: %q", conflict.Local)
	}
}

func TestParseMultiple(t *testing.T) {
	doc, err := Parse(readInput(t, "multiple.input"), DefaultSet())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 2 {
		t.Fatalf("expected 2 conflicts, got %d", len(doc.Conflicts))
	}

	conflict1, ok := doc.Segments[1].(ConflictSegment)
	if !ok {
		t.Fatalf("segment 1 is not ConflictSegment")
	}
	if string(conflict1.Local) != "conflict 1 local\n" {
		t.Errorf("conflict1 local mismatch: %q", conflict1.Local)
	}

	conflict2, ok := doc.Segments[3].(ConflictSegment)
	if !ok {
		t.Fatalf("segment 3 is not ConflictSegment")
	}
	if string(conflict2.Latest) != "conflict 2 latest\n" {
		t.Errorf("conflict2 latest mismatch: %q", conflict2.Latest)
	}
}

func TestParseFalsePositive(t *testing.T) {
	data := readInput(t, "false_positive.input")
	doc, err := Parse(data, DefaultSet())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 0 {
		t.Errorf("expected 0 conflicts (false positive), got %d", len(doc.Conflicts))
	}
	if len(doc.Segments) != 1 {
		t.Fatalf("expected 1 text segment, got %d", len(doc.Segments))
	}
	text, ok := doc.Segments[0].(TextSegment)
	if !ok {
		t.Fatalf("segment 0 is not TextSegment")
	}
	if string(text.Bytes) != string(data) {
		t.Errorf("text mismatch")
	}
}

func TestParseMalformed(t *testing.T) {
	for _, name := range []string{"malformed_no_mid.input", "malformed_no_end.input"} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse(readInput(t, name), DefaultSet())
			if err == nil {
				t.Fatal("expected error for malformed conflict")
			}
			if !errors.Is(err, ErrMalformedConflict) {
				t.Errorf("expected ErrMalformedConflict, got %v", err)
			}
		})
	}
}

func TestParseCRLF(t *testing.T) {
	doc, err := Parse(readInput(t, "crlf.input"), DefaultSet())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if len(doc.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(doc.Conflicts))
	}
	text1 := doc.Segments[0].(TextSegment)
	if string(text1.Bytes) != "first\r\n" {
		t.Errorf("text segment should preserve line ending: %q", text1.Bytes)
	}
	conflict, _ := doc.Conflict(0)
	if string(conflict.Local) != "local\r\n" || conflict.LatestLabel != "(latest)" {
		t.Errorf("conflict = %q / %q", conflict.Local, conflict.LatestLabel)
	}
}

func TestParseNoTrailingNewline(t *testing.T) {
	doc, err := Parse(readInput(t, "no_trailing_newline.input"), DefaultSet())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(doc.Conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(doc.Conflicts))
	}
}

func TestParseShortMarkers(t *testing.T) {
	set := SetFromLines(">", "", "=", "<")
	doc, err := Parse([]byte("a\n>\nx\n=\ny\n<\nc\n"), set)
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	conflict, ok := doc.Conflict(0)
	if !ok || string(conflict.Local) != "x\n" || string(conflict.Latest) != "y\n" {
		t.Fatalf("unexpected conflict %+v", conflict)
	}
}

func TestParseIncompleteSet(t *testing.T) {
	if _, err := Parse([]byte("a\n"), Set{Start: "<<<<<<<"}); err == nil {
		t.Fatal("expected error for incomplete marker set")
	}
}

func TestSetFromLines(t *testing.T) {
	set := SetFromLines("<<<<<<< (modified)", "||||||| (base)", "=======", ">>>>>>> (latest)")
	if set != DefaultSet() {
		t.Fatalf("SetFromLines = %+v, want %+v", set, DefaultSet())
	}
	if SetFromLines("", "", "", "").Start != "" {
		t.Fatal("empty line should give empty prefix")
	}
}

func TestIsResolved(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		resolved bool
	}{
		{"no_conflict", "hello\nworld\n", true},
		{"has_conflict", "<<<<<<< (modified)\nlocal\n=======\nlatest\n>>>>>>> (latest)\n", false},
		{"false_positive", "comment <<<<<<< not a conflict\n", true},
		{"malformed", "<<<<<<< (modified)\nno end marker\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsResolved([]byte(tt.input), DefaultSet())
			if result != tt.resolved {
				t.Errorf("IsResolved(%q) = %v, want %v", tt.name, result, tt.resolved)
			}
		})
	}
}

func TestCount(t *testing.T) {
	n, err := Count(readInput(t, "multiple.input"), DefaultSet())
	if err != nil || n != 2 {
		t.Fatalf("Count = %d, %v", n, err)
	}
}

func TestParseResolution(t *testing.T) {
	tests := map[string]Resolution{
		"local":  ResolutionLocal,
		"ours":   ResolutionLocal,
		"Theirs": ResolutionLatest,
		"latest": ResolutionLatest,
		"base":   ResolutionBase,
		"both":   ResolutionBoth,
		"none":   ResolutionNone,
	}
	for in, want := range tests {
		got, ok := ParseResolution(in)
		if !ok || got != want {
			t.Errorf("ParseResolution(%q) = %q, %v", in, got, ok)
		}
	}
	if _, ok := ParseResolution("all"); ok {
		t.Error("expected unknown resolution to fail")
	}
}
