package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/filechange/pkg/display"
	"github.com/0xmhha/filechange/pkg/event"
	"github.com/0xmhha/filechange/pkg/watch"
)

// watchOptions holds watch command flags.
type watchOptions struct {
	files       bool
	duration    time.Duration
	describe    bool
	stopTimeout time.Duration
}

func newWatchCommand(global *globalOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <alias>...",
		Short: "Print change notifications until interrupted",
		Example: `  # Watch a file and a directory
  filechange watch ./web.config ./bin

  # Watch for ten seconds, then print the watch tables
  filechange watch --duration 10s --describe /srv/app`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, global, true)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}

			return runWatch(ctx, a, cmd.OutOrStdout(), args, opts)
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.files, "file", false, "treat every alias as a single file (may not exist yet)")
	flags.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 = until interrupted)")
	flags.BoolVar(&opts.describe, "describe", false, "print the directory watches before stopping")
	flags.DurationVar(&opts.stopTimeout, "stop-timeout", 5*time.Second, "how long to wait for in-flight callbacks on exit")

	return cmd
}

// lockedWriter serializes formatter output.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// runWatch registers every alias, prints notifications until ctx ends, then
// stops the manager.
func runWatch(ctx context.Context, a *app, out io.Writer, args []string, opts *watchOptions) error {
	mgr, err := a.newManager()
	if err != nil {
		return err
	}

	w := &lockedWriter{w: out}
	cb := event.NewCallback(func(action event.Action, alias string) {
		n := display.Notification{Time: time.Now(), Action: action, Alias: alias}
		if err := a.formatter.FormatNotification(w, n); err != nil {
			a.log.Error("failed to write notification", "error", err)
		}
	})

	var registered []string
	for _, arg := range args {
		alias, err := aliasArg(arg)
		if err == nil {
			err = register(mgr, alias, cb, opts.files)
		}
		if err != nil {
			_ = shutdown(a, mgr, opts.stopTimeout) // nolint:errcheck
			return fmt.Errorf("failed to watch %s: %w", arg, err)
		}
		registered = append(registered, alias)
	}

	a.log.Info("watching",
		"aliases", registered,
		"mode", string(mgr.Mode()))

	<-ctx.Done()

	if opts.describe {
		if err := a.formatter.FormatDirectories(w, mgr.Describe()); err != nil {
			a.log.Error("failed to describe watches", "error", err)
		}
	}

	for _, alias := range registered {
		if opts.files {
			mgr.StopMonitoringFile(alias, cb)
		} else {
			mgr.StopMonitoringPath(alias, cb)
		}
	}

	return shutdown(a, mgr, opts.stopTimeout)
}

func register(mgr *watch.Manager, alias string, cb event.Callback, file bool) error {
	if file {
		_, err := mgr.StartMonitoringFile(alias, cb)
		return err
	}
	_, _, err := mgr.StartMonitoringPath(alias, cb)
	return err
}

func shutdown(a *app, mgr *watch.Manager, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := mgr.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop watch manager: %w", err)
	}

	stats := mgr.DispatchStats()
	a.log.Debug("watch manager stopped",
		"delivered", stats.Delivered,
		"failed", stats.Failed)
	return nil
}
