package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/hashicorp/go-multierror"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/chojs23/seqmerge/internal/log"
	"github.com/chojs23/seqmerge/internal/merge"
)

// Manifest lists merge jobs. Relative paths resolve against the manifest's
// directory.
type Manifest struct {
	Jobs []Job `yaml:"jobs"`
}

func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i, job := range m.Jobs {
		if job.Base == "" || job.Local == "" || job.Latest == "" || job.Output == "" {
			return Manifest{}, fmt.Errorf("manifest %s: job %d needs base, local, latest and output", path, i+1)
		}
		m.Jobs[i] = Job{
			Base:   resolve(dir, job.Base),
			Local:  resolve(dir, job.Local),
			Latest: resolve(dir, job.Latest),
			Output: resolve(dir, job.Output),
		}
	}
	return m, nil
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// MergeBatch runs jobs with at most limit merges in flight. Every job gets a
// Result in input order; the error aggregates all failed jobs. Jobs not yet
// started when ctx is cancelled fail with the context error.
func MergeBatch(ctx context.Context, m *merge.Merger, jobs []Job, limit int, backup bool) ([]Result, error) {
	if limit < 1 {
		limit = 1
	}
	results := make([]Result, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Job: job, Err: err}
				return nil
			}
			res, err := MergeFile(gctx, m, job, backup)
			res.Err = err
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	var errs *multierror.Error
	for _, r := range results {
		if r.Err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", r.Job.Output, r.Err))
		}
	}

	s := Summarize(results)
	log.From(ctx).Info("batch finished",
		zap.Int("jobs", len(jobs)),
		zap.Int("merged", s.Merged),
		zap.Int("conflicted", s.Conflicted),
		zap.Int("failed", s.Failed),
		zap.String("written", humanize.Bytes(uint64(s.Bytes))),
	)
	return results, errs.ErrorOrNil()
}

type Summary struct {
	NotModified, Merged, Conflicted, Failed int
	Bytes                                   int64
}

func Summarize(results []Result) Summary {
	ok := lo.Filter(results, func(r Result, _ int) bool { return r.Err == nil })
	return Summary{
		NotModified: lo.CountBy(ok, func(r Result) bool { return r.Status == merge.NotModified }),
		Merged:      lo.CountBy(ok, func(r Result) bool { return r.Status == merge.Merged }),
		Conflicted:  lo.CountBy(ok, func(r Result) bool { return r.Status == merge.Conflicted }),
		Failed:      len(results) - len(ok),
		Bytes:       lo.SumBy(ok, func(r Result) int64 { return r.Bytes }),
	}
}

func (s Summary) String() string {
	return fmt.Sprintf("%d merged, %d conflicted, %d unchanged, %d failed, %s written",
		s.Merged, s.Conflicted, s.NotModified, s.Failed, humanize.Bytes(uint64(s.Bytes)))
}
