package engine

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/chojs23/seqmerge/internal/lines"
	"github.com/chojs23/seqmerge/internal/log"
	"github.com/chojs23/seqmerge/internal/merge"
)

const backupSuffix = ".seqmerge.bak"

// Job names the three inputs of one merge and where the result goes. An
// empty Output means the caller supplies the writer.
type Job struct {
	Base   string `yaml:"base"`
	Local  string `yaml:"local"`
	Latest string `yaml:"latest"`
	Output string `yaml:"output"`
}

type Result struct {
	Job       Job
	Status    merge.Status
	Bytes     int64
	Conflicts int
	Err       error
}

// MergeTo merges the job's inputs into w.
func MergeTo(ctx context.Context, m *merge.Merger, job Job, w io.Writer) (res Result, err error) {
	res.Job = job

	base, local, latest, err := openInputs(job)
	if err != nil {
		return res, err
	}
	defer func() {
		if cerr := closeAll(base, local, latest); cerr != nil && err == nil {
			err = cerr
		}
	}()

	plan, err := m.Plan(base, local, latest)
	if err != nil {
		return res, err
	}
	if res.Bytes, err = m.Render(plan, w); err != nil {
		return res, err
	}
	status := plan.Status()
	res.Status = status
	res.Conflicts = plan.Stats().Conflicts

	log.From(ctx).Debug("merge finished",
		zap.String("local", job.Local),
		zap.Stringer("status", status),
		zap.Int("conflicts", res.Conflicts),
	)
	return res, nil
}

// MergeFile merges the job's inputs and replaces job.Output atomically. With
// backup set, an existing output is kept next to it first.
func MergeFile(ctx context.Context, m *merge.Merger, job Job, backup bool) (Result, error) {
	if job.Output == "" {
		return Result{Job: job}, fmt.Errorf("merge %s: no output path", job.Local)
	}

	var res Result
	err := writeAtomic(job.Output, func(w io.Writer) error {
		var err error
		res, err = MergeTo(ctx, m, job, w)
		return err
	}, backup)
	res.Job = job
	return res, err
}

func openInputs(job Job) (base, local, latest *lines.Sequence, err error) {
	if base, err = lines.Open(job.Base); err != nil {
		return nil, nil, nil, err
	}
	if local, err = lines.Open(job.Local); err != nil {
		return nil, nil, nil, multierror.Append(err, base.Close()).ErrorOrNil()
	}
	if latest, err = lines.Open(job.Latest); err != nil {
		return nil, nil, nil, multierror.Append(err, base.Close(), local.Close()).ErrorOrNil()
	}
	return base, local, latest, nil
}

func closeAll(seqs ...*lines.Sequence) error {
	var result *multierror.Error
	for _, s := range seqs {
		if err := s.Close(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// writeAtomic streams fill into a temp file beside path and renames it over
// path once fill succeeds.
func writeAtomic(path string, fill func(io.Writer) error, backup bool) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := fill(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", path, err)
	}

	mode := os.FileMode(0o644)
	if info, statErr := os.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
		if backup {
			if err := copyFile(path, path+backupSuffix, mode); err != nil {
				return err
			}
		}
	}
	if err := os.Chmod(tmp.Name(), mode); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("read %s: %w", src, err)
	}
	if err := os.WriteFile(dst, data, mode); err != nil {
		return fmt.Errorf("write backup %s: %w", filepath.Base(dst), err)
	}
	return nil
}
