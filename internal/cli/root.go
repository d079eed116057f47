package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/chojs23/seqmerge/internal/config"
	"github.com/chojs23/seqmerge/internal/log"
	"github.com/chojs23/seqmerge/internal/run"
)

// Options are the process facts the command tree cannot discover itself.
type Options struct {
	Version string
	// Interactive is set when stdin and stdout are terminals.
	Interactive bool
}

type app struct {
	opts       Options
	v          *viper.Viper
	configFile string
	env        run.Env
}

// NewRootCommand builds the seqmerge command tree. Each call has its own
// viper instance.
func NewRootCommand(opts Options) *cobra.Command {
	a := &app{opts: opts, v: config.New()}

	root := &cobra.Command{
		Use:   "seqmerge",
		Short: "Three-way line merge with Subversion-style conflict markers",
		Long: `seqmerge merges two descendants of a common base file line by line.
Changes made on only one side are taken; overlapping changes become
conflict blocks that can be reviewed and resolved afterwards.`,
		Version:           opts.Version,
		SilenceErrors:     true,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	root.SetVersionTemplate("seqmerge {{.Version}}\n")

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./"+config.FileName+".yaml, then $HOME)")
	flags.String("log-level", "", "log level: "+strings.Join(log.Levels, ", "))
	flags.String("style", "", "conflict style: modified-latest, modified-original-latest, modified, latest, only-conflicts")
	flags.String("engine", "", "diff engine: myers or matcher")
	flags.BoolP("ignore-all-space", "w", false, "ignore all whitespace when comparing lines")
	flags.BoolP("ignore-space-change", "b", false, "ignore changes in the amount of whitespace")
	flags.Bool("ignore-eol-style", false, "ignore line ending differences")
	flags.Bool("backup", false, "keep a .seqmerge.bak copy of files that get replaced")
	flags.Int("concurrency", 0, "merges run in parallel by batch")
	bindFlags(a.v, flags, map[string]string{
		"log-level":           "log-level",
		"style":               "style",
		"engine":              "engine",
		"ignore-all-space":    "diff.ignore-all-space",
		"ignore-space-change": "diff.ignore-space-change",
		"ignore-eol-style":    "diff.ignore-eol-style",
		"backup":              "backup",
		"concurrency":         "concurrency",
	})

	root.AddCommand(
		a.mergeCommand(),
		a.checkCommand(),
		a.reviewCommand(),
		a.batchCommand(),
		a.repoCommand(),
		a.configCommand(),
	)
	return root
}

// bindFlags makes each flag override its config key when set.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		if f := fs.Lookup(name); f != nil {
			_ = v.BindPFlag(key, f)
		}
	}
}

// setup layers the configuration and puts the logger on the context.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	dirs := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}
	cfg, err := config.Load(a.v, a.configFile, dirs...)
	if err != nil {
		return err
	}

	logger, err := cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cmd.SetContext(log.With(cmd.Context(), logger))
	logger.Debug("config loaded", zap.String("file", a.v.ConfigFileUsed()), zap.String("style", cfg.Style), zap.String("engine", cfg.Engine))

	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	a.env = run.Env{
		Config:      cfg,
		Stdin:       cmd.InOrStdin(),
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
		Interactive: a.opts.Interactive,
		Dir:         dir,
	}
	return nil
}

// Execute runs cmd and maps the outcome to an exit status. Errors other
// than remaining conflicts are printed to the command's error stream.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	ran, err := cmd.ExecuteContextC(ctx)
	if ran != nil && ran.Context() != nil {
		// Sync fails on terminals and pipes.
		_ = log.From(ran.Context()).Sync()
	}
	if err != nil && !errors.Is(err, run.ErrConflicts) {
		fmt.Fprintln(cmd.ErrOrStderr(), "seqmerge:", err)
	}
	return run.ExitCode(err)
}
