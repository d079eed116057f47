package gitutil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/chojs23/seqmerge/internal/log"
)

// Index stages of an unmerged path.
const (
	StageBase   = 1
	StageLocal  = 2
	StageLatest = 3
)

var ErrNoStage = errors.New("stage not present in index")

// Repo is a git working tree rooted at Root.
type Repo struct {
	Root string
}

// Open finds the working tree containing dir.
func Open(ctx context.Context, dir string) (*Repo, error) {
	out, err := git(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, err
	}
	root := strings.TrimSpace(string(out))
	if root == "" {
		return nil, errors.New("git rev-parse returned empty repo root")
	}
	return &Repo{Root: root}, nil
}

// Scope returns dir relative to the repo root in slash form, for use as a
// pathspec. Directories outside the tree fall back to the whole repo.
func (r *Repo) Scope(dir string) string {
	rel, err := filepath.Rel(r.Root, dir)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "."
	}
	return filepath.ToSlash(rel)
}

// Unmerged lists repo-relative paths with unresolved index entries under
// pathspec.
func (r *Repo) Unmerged(ctx context.Context, pathspec string) ([]string, error) {
	if pathspec == "" {
		pathspec = "."
	}
	out, err := git(ctx, r.Root, "diff", "--name-only", "--diff-filter=U", "--", pathspec)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, line := range bytes.Split(out, []byte{'\n'}) {
		if p := strings.TrimSpace(string(line)); p != "" {
			paths = append(paths, p)
		}
	}
	log.From(ctx).Debug("unmerged paths", zap.String("pathspec", pathspec), zap.Int("count", len(paths)))
	return paths, nil
}

// Stage reads path from the given index stage. A stage missing from the
// index (added on one side only) yields ErrNoStage.
func (r *Repo) Stage(ctx context.Context, stage int, path string) ([]byte, error) {
	ref := fmt.Sprintf(":%d:%s", stage, path)
	out, err := git(ctx, r.Root, "show", ref)
	if err != nil {
		var gerr *Error
		if errors.As(err, &gerr) && missingStage(gerr.Stderr) {
			return nil, fmt.Errorf("%s: %w", ref, ErrNoStage)
		}
		return nil, err
	}
	return out, nil
}

// missingStage matches the messages git show prints for an index entry that
// lacks the requested stage.
func missingStage(stderr string) bool {
	return strings.Contains(stderr, "but not at stage") ||
		strings.Contains(stderr, "does not exist (neither on disk nor in the index)")
}

// Path returns the worktree location of a repo-relative path.
func (r *Repo) Path(rel string) string {
	if filepath.IsAbs(rel) {
		return rel
	}
	return filepath.Join(r.Root, filepath.FromSlash(rel))
}

// Error is a failed git invocation with its captured stderr.
type Error struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *Error) Error() string {
	msg := e.Stderr
	if msg == "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("git %s failed: %s", e.Args[0], msg)
}

func (e *Error) Unwrap() error { return e.Err }

func git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, &Error{Args: args, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return out, nil
}
