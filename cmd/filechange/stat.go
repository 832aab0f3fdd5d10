package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/0xmhha/filechange/pkg/display"
)

func newStatCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <alias>",
		Short: "Print the attributes of a file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, global, false)
			if err != nil {
				return err
			}
			defer a.close()

			alias, err := aliasArg(args[0])
			if err != nil {
				return err
			}

			mgr, err := a.newManager()
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				if err := mgr.Stop(ctx); err != nil {
					a.log.Error("failed to stop watch manager", "error", err)
				}
			}()

			attrs, ok, err := mgr.GetFileAttributes(alias)
			if err != nil {
				return fmt.Errorf("failed to read attributes: %w", err)
			}

			result := display.PathAttributes{Alias: alias, Exists: ok}
			if ok {
				result.Attributes = &attrs
			}
			return a.formatter.FormatAttributes(cmd.OutOrStdout(), result)
		},
	}
}
