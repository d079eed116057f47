package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/chojs23/seqmerge/internal/config"
	"github.com/chojs23/seqmerge/internal/engine"
	"github.com/chojs23/seqmerge/internal/log"
	"github.com/chojs23/seqmerge/internal/markers"
	"github.com/chojs23/seqmerge/internal/merge"
	"github.com/chojs23/seqmerge/internal/tui"
)

const (
	ExitOK        = 0
	ExitConflicts = 1
	ExitFailure   = 2
)

// ErrConflicts reports that a command finished but conflicts remain.
var ErrConflicts = errors.New("conflicts remain")

// Env is what a command needs from the process besides its arguments.
type Env struct {
	Config      config.Config
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
	Interactive bool
	Dir         string
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrConflicts):
		return ExitConflicts
	default:
		return ExitFailure
	}
}

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return f != nil && term.IsTerminal(int(f.Fd()))
}

// Merge runs one merge. Without an output path the result goes to stdout.
// A non-empty resolution resolves every conflict in the written file.
func Merge(ctx context.Context, env Env, job engine.Job, applyAll markers.Resolution) error {
	m, err := env.Config.Merger(log.From(ctx))
	if err != nil {
		return err
	}
	if applyAll == markers.ResolutionBase {
		if err := checkBaseStyle(env.Config); err != nil {
			return err
		}
	}

	if job.Output == "" {
		if applyAll != markers.ResolutionUnset {
			return errors.New("--apply-all needs an output file")
		}
		res, err := engine.MergeTo(ctx, m, job, env.Stdout)
		if err != nil {
			return err
		}
		report(env.Stderr, res.Status, job.Local)
		return statusErr(res.Status)
	}

	res, err := engine.MergeFile(ctx, m, job, env.Config.Backup)
	if err != nil {
		return err
	}
	status := res.Status
	if status == merge.Conflicted && applyAll != markers.ResolutionUnset {
		n, err := engine.ApplyAllAndWrite(job.Output, env.Config.MarkerSet(), applyAll, false)
		if err != nil {
			return fmt.Errorf("apply %s: %w", applyAll, err)
		}
		log.From(ctx).Info("resolved conflicts", zap.String("path", job.Output), zap.Int("count", n), zap.String("resolution", string(applyAll)))
		status = merge.Merged
	}
	report(env.Stderr, status, job.Output)
	return statusErr(status)
}

// checkBaseStyle fails unless the configured output keeps the base lines of
// each conflict.
func checkBaseStyle(cfg config.Config) error {
	style, err := merge.ParseStyle(cfg.Style)
	if err != nil {
		return err
	}
	if !style.WritesBase() || cfg.Markers.Base == "" {
		return fmt.Errorf("--apply-all base needs a base marker and the %s or %s style, got %s",
			merge.StyleModifiedOriginalLatest, merge.StyleOnlyConflicts, style)
	}
	return nil
}

func report(w io.Writer, status merge.Status, path string) {
	if status == merge.NotModified {
		return
	}
	fmt.Fprintf(w, "%c    %s\n", status.Code(), path)
}

func statusErr(status merge.Status) error {
	if status == merge.Conflicted {
		return ErrConflicts
	}
	return nil
}

// Check reports ErrConflicts when path still holds conflict blocks.
func Check(ctx context.Context, env Env, path string) error {
	resolved, err := engine.CheckResolvedFile(path, env.Config.MarkerSet())
	if err != nil {
		return err
	}
	log.From(ctx).Debug("check", zap.String("path", path), zap.Bool("resolved", resolved))
	if !resolved {
		return ErrConflicts
	}
	return nil
}

// Review opens the interactive resolver on path.
func Review(ctx context.Context, env Env, path string) error {
	err := tui.Review(ctx, reviewOptions(env, path))
	switch {
	case errors.Is(err, tui.ErrNoConflicts):
		fmt.Fprintf(env.Stdout, "No conflicts in %s.\n", path)
		return nil
	case err != nil && !errors.Is(err, tui.ErrBackToSelector):
		return err
	}
	return Check(ctx, env, path)
}

func reviewOptions(env Env, path string) tui.Options {
	return tui.Options{
		Path:      path,
		Markers:   env.Config.MarkerSet(),
		Theme:     env.Config.Theme,
		UndoDepth: env.Config.UndoDepth,
		Backup:    env.Config.Backup,
	}
}

// Batch merges every job of the manifest and prints one line per job.
func Batch(ctx context.Context, env Env, manifest string) error {
	mf, err := engine.LoadManifest(manifest)
	if err != nil {
		return err
	}
	m, err := env.Config.Merger(log.From(ctx))
	if err != nil {
		return err
	}

	results, batchErr := engine.MergeBatch(ctx, m, mf.Jobs, env.Config.Concurrency, env.Config.Backup)
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(env.Stderr, "!    %s: %v\n", rel(env.Dir, r.Job.Output), r.Err)
			continue
		}
		report(env.Stderr, r.Status, rel(env.Dir, r.Job.Output))
	}
	s := engine.Summarize(results)
	fmt.Fprintln(env.Stdout, s.String())

	if batchErr != nil {
		return batchErr
	}
	if s.Conflicted > 0 {
		return ErrConflicts
	}
	return nil
}

func rel(dir, path string) string {
	if dir == "" {
		return path
	}
	if r, err := filepath.Rel(dir, path); err == nil && !strings.HasPrefix(r, "..") {
		return r
	}
	return path
}
