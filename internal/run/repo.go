package run

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/chojs23/seqmerge/internal/engine"
	"github.com/chojs23/seqmerge/internal/gitutil"
	"github.com/chojs23/seqmerge/internal/log"
	"github.com/chojs23/seqmerge/internal/markers"
	"github.com/chojs23/seqmerge/internal/merge"
	"github.com/chojs23/seqmerge/internal/tui"
)

// Repo re-merges unmerged paths of the git working tree around env.Dir from
// their index stages. With all set every path is merged; otherwise the user
// picks one at a time and, on a terminal, reviews the result.
func Repo(ctx context.Context, env Env, all bool) error {
	repo, err := gitutil.Open(ctx, env.Dir)
	if err != nil {
		return err
	}
	paths, err := repo.Unmerged(ctx, repo.Scope(env.Dir))
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		fmt.Fprintln(env.Stdout, "No unmerged files under the current directory.")
		return nil
	}

	m, err := env.Config.Merger(log.From(ctx))
	if err != nil {
		return err
	}

	if all {
		var errs *multierror.Error
		conflicted := false
		for _, p := range paths {
			res, err := remerge(ctx, env, repo, m, p)
			if err != nil {
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", p, err))
				continue
			}
			report(env.Stderr, res.Status, p)
			conflicted = conflicted || res.Status == merge.Conflicted
		}
		if err := errs.ErrorOrNil(); err != nil {
			return err
		}
		if conflicted {
			return ErrConflicts
		}
		return nil
	}

	merged := map[string]bool{}
	for {
		selected, err := selectPath(ctx, env, repo, paths)
		if errors.Is(err, tui.ErrSelectorQuit) {
			return nil
		}
		if err != nil {
			return err
		}

		// A path is merged from its stages once per session so edits saved
		// during review survive a return to the selector.
		if !merged[selected] {
			res, err := remerge(ctx, env, repo, m, selected)
			if err != nil {
				return err
			}
			merged[selected] = true
			report(env.Stderr, res.Status, selected)
			if res.Status != merge.Conflicted || !env.Interactive {
				return statusErr(res.Status)
			}
		}

		err = tui.Review(ctx, reviewOptions(env, repo.Path(selected)))
		if errors.Is(err, tui.ErrBackToSelector) && len(paths) > 1 {
			continue
		}
		if err != nil && !errors.Is(err, tui.ErrBackToSelector) && !errors.Is(err, tui.ErrNoConflicts) {
			return err
		}
		return Check(ctx, env, repo.Path(selected))
	}
}

// remerge merges stage 2 (local) and stage 3 (latest) over stage 1 and
// writes the result to the worktree file. A missing base stage, as for
// add/add conflicts, merges against an empty base.
func remerge(ctx context.Context, env Env, repo *gitutil.Repo, m *merge.Merger, path string) (engine.Result, error) {
	local, err := repo.Stage(ctx, gitutil.StageLocal, path)
	if err != nil {
		return engine.Result{}, fmt.Errorf("local stage: %w", err)
	}
	latest, err := repo.Stage(ctx, gitutil.StageLatest, path)
	if err != nil {
		return engine.Result{}, fmt.Errorf("latest stage: %w", err)
	}
	base, err := repo.Stage(ctx, gitutil.StageBase, path)
	if errors.Is(err, gitutil.ErrNoStage) {
		log.From(ctx).Warn("base stage missing, merging against empty base", zap.String("path", path))
		base, err = nil, nil
	}
	if err != nil {
		return engine.Result{}, fmt.Errorf("base stage: %w", err)
	}

	job, cleanup, err := writeStages(base, local, latest)
	if err != nil {
		return engine.Result{}, err
	}
	defer cleanup()

	job.Output = repo.Path(path)
	return engine.MergeFile(ctx, m, job, env.Config.Backup)
}

// writeStages stores the stage contents in a temp directory and returns a
// job reading them.
func writeStages(base, local, latest []byte) (engine.Job, func(), error) {
	dir, err := os.MkdirTemp("", "seqmerge-stages-*")
	if err != nil {
		return engine.Job{}, nil, fmt.Errorf("create stage dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	job := engine.Job{
		Base:   filepath.Join(dir, "base"),
		Local:  filepath.Join(dir, "local"),
		Latest: filepath.Join(dir, "latest"),
	}
	var errs *multierror.Error
	for path, data := range map[string][]byte{job.Base: base, job.Local: local, job.Latest: latest} {
		if err := os.WriteFile(path, data, 0o600); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		cleanup()
		return engine.Job{}, nil, fmt.Errorf("write stages: %w", err)
	}
	return job, cleanup, nil
}

func selectPath(ctx context.Context, env Env, repo *gitutil.Repo, paths []string) (string, error) {
	if len(paths) == 1 {
		return paths[0], nil
	}
	if env.Interactive {
		return tui.SelectFile(ctx, candidates(repo, paths, env.Config.MarkerSet()), tui.NewStyles(env.Config.Theme))
	}
	return prompt(env.Stdin, env.Stdout, paths)
}

// candidates counts the conflict blocks currently in each worktree file.
func candidates(repo *gitutil.Repo, paths []string, set markers.Set) []tui.FileCandidate {
	return lo.Map(paths, func(p string, _ int) tui.FileCandidate {
		c := tui.FileCandidate{Path: p, Conflicts: -1}
		data, err := os.ReadFile(repo.Path(p))
		if err != nil {
			return c
		}
		if n, err := markers.Count(data, set); err == nil {
			c.Conflicts = n
		}
		return c
	})
}

func prompt(r io.Reader, w io.Writer, paths []string) (string, error) {
	fmt.Fprintln(w, "Unmerged files:")
	for i, p := range paths {
		fmt.Fprintf(w, "  %d) %s\n", i+1, p)
	}

	reader := bufio.NewReader(r)
	for attempt := 0; attempt < 3; attempt++ {
		fmt.Fprintf(w, "Select a file to merge [1-%d]: ", len(paths))
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read selection: %w", err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		idx, err := strconv.Atoi(line)
		if err != nil || idx < 1 || idx > len(paths) {
			fmt.Fprintln(w, "Invalid selection.")
			continue
		}
		return paths[idx-1], nil
	}
	return "", errors.New("invalid selection")
}
