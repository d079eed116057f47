package run

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chojs23/seqmerge/internal/config"
	"github.com/chojs23/seqmerge/internal/engine"
	"github.com/chojs23/seqmerge/internal/markers"
)

const conflicted = "<<<<<<< (modified)\nours\n=======\ntheirs\n>>>>>>> (latest)\n"

func testEnv(t *testing.T) (Env, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	return Env{
		Config: config.Defaults(),
		Stdin:  strings.NewReader(""),
		Stdout: &stdout,
		Stderr: &stderr,
		Dir:    t.TempDir(),
	}, &stdout, &stderr
}

func writeInputs(t *testing.T, dir, base, local, latest string) engine.Job {
	t.Helper()
	job := engine.Job{
		Base:   filepath.Join(dir, "base.txt"),
		Local:  filepath.Join(dir, "local.txt"),
		Latest: filepath.Join(dir, "latest.txt"),
	}
	for path, content := range map[string]string{job.Base: base, job.Local: local, job.Latest: latest} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return job
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{ErrConflicts, ExitConflicts},
		{fmt.Errorf("wrapped: %w", ErrConflicts), ExitConflicts},
		{errors.New("boom"), ExitFailure},
	}
	for _, tt := range tests {
		if got := ExitCode(tt.err); got != tt.want {
			t.Errorf("ExitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestMergeToStdout(t *testing.T) {
	env, stdout, stderr := testEnv(t)
	job := writeInputs(t, env.Dir, "a\nb\nc\n", "A\nb\nc\n", "a\nb\nC\n")

	if err := Merge(context.Background(), env, job, markers.ResolutionUnset); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	if stdout.String() != "A\nb\nC\n" {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if stderr.String() != "G    "+job.Local+"\n" {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestMergeConflictExit(t *testing.T) {
	env, stdout, stderr := testEnv(t)
	job := writeInputs(t, env.Dir, "a\nb\nc\n", "a\nx\nc\n", "a\ny\nc\n")

	err := Merge(context.Background(), env, job, markers.ResolutionUnset)
	if !errors.Is(err, ErrConflicts) {
		t.Fatalf("expected ErrConflicts, got %v", err)
	}
	if !strings.Contains(stdout.String(), "<<<<<<< (modified)\nx\n=======\ny\n>>>>>>> (latest)\n") {
		t.Fatalf("stdout = %q", stdout.String())
	}
	if !strings.HasPrefix(stderr.String(), "C    ") {
		t.Fatalf("stderr = %q", stderr.String())
	}
}

func TestMergeApplyAll(t *testing.T) {
	env, _, stderr := testEnv(t)
	job := writeInputs(t, env.Dir, "a\nb\nc\n", "a\nx\nc\n", "a\ny\nc\n")
	job.Output = filepath.Join(env.Dir, "out.txt")

	if err := Merge(context.Background(), env, job, markers.ResolutionLatest); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	data, err := os.ReadFile(job.Output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\ny\nc\n" {
		t.Fatalf("output = %q", data)
	}
	if !strings.HasPrefix(stderr.String(), "G    ") {
		t.Fatalf("stderr = %q", stderr.String())
	}

	job.Output = ""
	if err := Merge(context.Background(), env, job, markers.ResolutionLocal); err == nil {
		t.Fatalf("expected error for apply-all without output")
	}
}

func TestMergeApplyAllBase(t *testing.T) {
	env, _, _ := testEnv(t)
	job := writeInputs(t, env.Dir, "a\nb\nc\n", "a\nx\nc\n", "a\ny\nc\n")
	job.Output = filepath.Join(env.Dir, "out.txt")

	err := Merge(context.Background(), env, job, markers.ResolutionBase)
	if ExitCode(err) != ExitFailure {
		t.Fatalf("expected failure without a base section, got %v", err)
	}
	if _, statErr := os.Stat(job.Output); !os.IsNotExist(statErr) {
		t.Fatalf("output written despite rejected resolution: %v", statErr)
	}

	env.Config.Style = "modified-original-latest"
	if err := Merge(context.Background(), env, job, markers.ResolutionBase); err != nil {
		t.Fatalf("Merge error: %v", err)
	}
	data, err := os.ReadFile(job.Output)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a\nb\nc\n" {
		t.Fatalf("output = %q", data)
	}
}

func TestMergeBadConfig(t *testing.T) {
	env, _, _ := testEnv(t)
	env.Config.Engine = "bogus"
	job := writeInputs(t, env.Dir, "a\n", "a\n", "a\n")
	if err := Merge(context.Background(), env, job, markers.ResolutionUnset); ExitCode(err) != ExitFailure {
		t.Fatalf("expected failure, got %v", err)
	}
}

func TestCheckExitCodes(t *testing.T) {
	env, _, _ := testEnv(t)

	resolved := filepath.Join(env.Dir, "resolved.txt")
	if err := os.WriteFile(resolved, []byte("ok\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := ExitCode(Check(context.Background(), env, resolved)); code != ExitOK {
		t.Fatalf("resolved check exit code = %d, want 0", code)
	}

	unresolved := filepath.Join(env.Dir, "unresolved.txt")
	if err := os.WriteFile(unresolved, []byte(conflicted), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := ExitCode(Check(context.Background(), env, unresolved)); code != ExitConflicts {
		t.Fatalf("unresolved check exit code = %d, want 1", code)
	}

	if code := ExitCode(Check(context.Background(), env, filepath.Join(env.Dir, "missing"))); code != ExitFailure {
		t.Fatalf("missing check exit code = %d, want 2", code)
	}
}

func TestReviewWithoutConflicts(t *testing.T) {
	env, stdout, _ := testEnv(t)
	path := filepath.Join(env.Dir, "clean.txt")
	if err := os.WriteFile(path, []byte("clean\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Review(context.Background(), env, path); err != nil {
		t.Fatalf("Review error: %v", err)
	}
	if !strings.Contains(stdout.String(), "No conflicts") {
		t.Fatalf("stdout = %q", stdout.String())
	}
}

func TestBatch(t *testing.T) {
	env, stdout, stderr := testEnv(t)
	for _, name := range []string{"one", "two"} {
		dir := filepath.Join(env.Dir, name)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writeInputs(t, filepath.Join(env.Dir, "one"), "a\nb\n", "x\nb\n", "a\ny\n")
	writeInputs(t, filepath.Join(env.Dir, "two"), "a\n", "x\n", "y\n")

	manifest := filepath.Join(env.Dir, "jobs.yaml")
	content := `jobs:
  - {base: one/base.txt, local: one/local.txt, latest: one/latest.txt, output: one/out.txt}
  - {base: two/base.txt, local: two/local.txt, latest: two/latest.txt, output: two/out.txt}
`
	if err := os.WriteFile(manifest, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	err := Batch(context.Background(), env, manifest)
	if !errors.Is(err, ErrConflicts) {
		t.Fatalf("expected ErrConflicts, got %v", err)
	}
	if !strings.Contains(stdout.String(), "1 merged, 1 conflicted") {
		t.Fatalf("summary = %q", stdout.String())
	}
	want := "G    " + filepath.Join("one", "out.txt") + "\nC    " + filepath.Join("two", "out.txt") + "\n"
	if stderr.String() != want {
		t.Fatalf("stderr = %q, want %q", stderr.String(), want)
	}
}

func TestRel(t *testing.T) {
	if got := rel("/a", "/a/b/c.txt"); got != filepath.Join("b", "c.txt") {
		t.Errorf("rel inside = %q", got)
	}
	if got := rel("/a", "/x/c.txt"); got != "/x/c.txt" {
		t.Errorf("rel outside = %q", got)
	}
	if got := rel("", "c.txt"); got != "c.txt" {
		t.Errorf("rel empty dir = %q", got)
	}
}

func TestIsTerminalFalseForRegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "tty-*")
	if err != nil {
		t.Fatalf("temp file: %v", err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Fatalf("IsTerminal returned true for regular file")
	}
}

func TestIsTerminalFalseForNullDevice(t *testing.T) {
	f, err := os.Open(os.DevNull)
	if err != nil {
		t.Fatalf("open %s: %v", os.DevNull, err)
	}
	defer f.Close()

	if IsTerminal(f) {
		t.Fatalf("IsTerminal returned true for %s", os.DevNull)
	}
}
