package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chojs23/seqmerge/internal/engine"
	"github.com/chojs23/seqmerge/internal/markers"
	"github.com/chojs23/seqmerge/internal/run"
)

func (a *app) mergeCommand() *cobra.Command {
	var job engine.Job
	var applyAll string

	cmd := &cobra.Command{
		Use:   "merge [BASE LOCAL LATEST [OUTPUT]]",
		Short: "Merge LOCAL and LATEST against BASE",
		Long: `Merge LOCAL and LATEST against their common BASE. The result goes to
OUTPUT, or stdout when no output is given. The exit status is 1 when
conflicts remain.`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch len(args) {
			case 0, 3, 4:
				return nil
			default:
				return fmt.Errorf("expected BASE LOCAL LATEST [OUTPUT], got %d arguments", len(args))
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) >= 3 {
				job.Base, job.Local, job.Latest = args[0], args[1], args[2]
			}
			if len(args) == 4 {
				job.Output = args[3]
			}
			if job.Base == "" || job.Local == "" || job.Latest == "" {
				return fmt.Errorf("merge needs base, local and latest files")
			}

			res := markers.ResolutionUnset
			if applyAll != "" {
				var ok bool
				if res, ok = markers.ParseResolution(applyAll); !ok {
					return fmt.Errorf("invalid --apply-all %q (expected local|latest|base|both|none)", applyAll)
				}
			}
			return run.Merge(cmd.Context(), a.env, job, res)
		},
	}

	f := cmd.Flags()
	f.StringVar(&job.Base, "base", "", "common ancestor file")
	f.StringVar(&job.Local, "local", "", "locally modified file")
	f.StringVar(&job.Latest, "latest", "", "latest upstream file")
	f.StringVarP(&job.Output, "output", "o", "", "write the result here instead of stdout")
	f.StringVar(&applyAll, "apply-all", "", "resolve every conflict: local|latest|base|both|none (ours/theirs accepted)")
	return cmd
}

func (a *app) checkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check FILE",
		Short: "Exit 0 if FILE has no conflict blocks, 1 otherwise",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.Check(cmd.Context(), a.env, args[0])
		},
	}
}

func (a *app) reviewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "review FILE",
		Short: "Resolve the conflict blocks of FILE interactively",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.Review(cmd.Context(), a.env, args[0])
		},
	}
}

func (a *app) batchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "batch MANIFEST",
		Short: "Run every merge listed in a YAML manifest",
		Long: `Run every merge listed in MANIFEST concurrently. The manifest holds a
"jobs" list whose entries name base, local, latest and output files;
relative paths resolve against the manifest's directory.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.Batch(cmd.Context(), a.env, args[0])
		},
	}
}

func (a *app) repoCommand() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "repo",
		Short: "Re-merge unmerged files of the current git working tree",
		Long: `List files git reports as unmerged under the current directory, merge
the selected one (or all) from index stages 1, 2 and 3, and write the
result to the working tree.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run.Repo(cmd.Context(), a.env, all)
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "merge every unmerged file without prompting")
	return cmd
}

func (a *app) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := a.env.Config.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}
