package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/0xmhha/filechange/pkg/audit"
	"github.com/0xmhha/filechange/pkg/config"
	"github.com/0xmhha/filechange/pkg/display"
	"github.com/0xmhha/filechange/pkg/logger"
	"github.com/0xmhha/filechange/pkg/watch"
)

// globalOptions holds flags shared by every command.
type globalOptions struct {
	configPath string
	format     string
	compact    bool
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "filechange",
		Short: "Filesystem change notifications",
		Long: `filechange watches files and directories and reports when they are
created, modified, removed, renamed or become inaccessible.

Aliases are absolute paths, paths relative to the working directory, or
"~/" paths relative to the configured application root.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.SortFlags = false
	flags.StringVar(&opts.configPath, "config", "", "path to configuration file")
	flags.StringVar(&opts.format, "format", "", "output format (table, json, simple)")
	flags.BoolVar(&opts.compact, "compact", false, "compact output")

	root.AddCommand(
		newWatchCommand(opts),
		newStatCommand(opts),
		newAuditCommand(opts),
		newConfigCommand(opts),
	)

	return root
}

// app bundles what a command needs after configuration is loaded.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	formatter display.Formatter
	store     audit.Store
}

// newApp loads configuration and builds the logger and formatter. The audit
// store is opened only when withAudit is set.
func newApp(cmd *cobra.Command, opts *globalOptions, withAudit bool) (*app, error) {
	cfg, err := config.NewLoader(opts.configPath).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	format, err := resolveFormat(
		opts.format,
		cmd.Flags().Changed("format"),
		cfg.Display.Format,
		isTerminal(cmd.OutOrStdout()),
	)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg: cfg,
		log: log,
		formatter: display.New(display.Config{
			Format:         format,
			ShowTimestamps: true,
			Compact:        opts.compact,
		}),
	}

	if withAudit && cfg.AuditEnabled() {
		store, err := audit.Open(audit.Config{
			DBPath:  cfg.Audit.DBPath,
			Timeout: cfg.Audit.Timeout,
		}, log)
		if err != nil {
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		a.store = store
	}

	return a, nil
}

// newManager builds a watch manager from the loaded configuration.
func (a *app) newManager() (*watch.Manager, error) {
	mode, err := watch.ParseMode(a.cfg.Watch.Mode)
	if err != nil {
		return nil, err
	}

	thresholds := a.cfg.Thresholds()
	opts := watch.Options{
		Mode:          mode,
		AppRoot:       a.cfg.Watch.AppRoot,
		WellKnownDirs: a.cfg.Watch.WellKnownDirs,
		Thresholds:    &thresholds,
		BufferSize:    a.cfg.Watch.BufferSize,
		PollInterval:  a.cfg.Watch.PollInterval,
		Logger:        a.log,
	}
	if a.store != nil {
		opts.Audit = a.store
	}

	return watch.NewManager(opts), nil
}

// close releases the audit store.
func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.log.Error("failed to close audit store", "error", err)
	}
}

// resolveFormat picks the output format. An explicit flag wins, then the
// configured format; output that is not a terminal defaults to JSON.
func resolveFormat(flag string, flagSet bool, configured string, tty bool) (display.Format, error) {
	if flagSet {
		return display.ParseFormat(flag)
	}
	if !tty {
		return display.FormatJSON, nil
	}
	if configured == "" {
		return display.FormatTable, nil
	}
	return display.ParseFormat(configured)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// aliasArg makes a command-line path usable as an alias. "~/" aliases are
// left for the manager to map against the application root.
func aliasArg(arg string) (string, error) {
	if strings.HasPrefix(arg, "~/") || filepath.IsAbs(arg) {
		return arg, nil
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", arg, err)
	}
	return abs, nil
}
