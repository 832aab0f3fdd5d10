package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var errAuditDisabled = errors.New("audit is disabled in the configuration")

func newAuditCommand(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect recorded access-denied and resource-limit failures",
	}

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, global, true)
			if err != nil {
				return err
			}
			defer a.close()

			if a.store == nil {
				return errAuditDisabled
			}

			events, err := a.store.List(limit)
			if err != nil {
				return fmt.Errorf("failed to list audit events: %w", err)
			}
			return a.formatter.FormatAuditEvents(cmd.OutOrStdout(), events)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of events (0 = all)")

	cmd.AddCommand(list)
	return cmd
}
