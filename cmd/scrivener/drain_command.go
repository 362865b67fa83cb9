package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"scrivener/internal/draingate"
)

// newDrainCheckCommand implements the deploy-script contract: exit 0 when
// the daemon may be stopped, exit 1 when a chapter run is active or the
// shelf cannot be read.
func newDrainCheckCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "drain-check",
		Short: "Exit 0 if the daemon is safe to stop, 1 otherwise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				// Fail closed: an unopenable shelf blocks the drain.
				if !quiet {
					fmt.Fprintf(cmd.OutOrStdout(), "blocked: %v\n", err)
				}
				return &exitCodeError{code: draingate.ExitBlocked, message: err.Error()}
			}
			defer store.Close()

			decision := draingate.New(store, nil).Check(cmd.Context())
			if !quiet {
				if decision.Safe {
					fmt.Fprintf(cmd.OutOrStdout(), "safe: %s\n", decision.Reason)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "blocked: %s\n", decision.Reason)
				}
			}
			if !decision.Safe {
				return &exitCodeError{code: decision.ExitCode(), message: decision.Reason}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress output; exit code only")
	return cmd
}
