package main

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"scrivener/internal/shelf"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon and shelf status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			// Prefer the daemon's view; fall back to reading the shelf
			// directly when no daemon is running.
			var daemonStatus struct {
				Running    bool           `json:"running"`
				PID        int            `json:"pid"`
				Database   string         `json:"database"`
				Total      int            `json:"total_chapters"`
				Processing int            `json:"processing"`
				ByStatus   map[string]int `json:"by_status"`
				Health     string         `json:"health"`
			}
			if status, err := getFromDaemon(cfg, "/api/status", &daemonStatus); err == nil && status == http.StatusOK {
				if asJSON {
					return writeJSON(cmd, daemonStatus)
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Daemon: running (pid %d)\n", daemonStatus.PID)
				fmt.Fprintf(out, "Database: %s\n", daemonStatus.Database)
				fmt.Fprintf(out, "Chapters: %d total, %d processing\n", daemonStatus.Total, daemonStatus.Processing)
				for status, count := range daemonStatus.ByStatus {
					fmt.Fprintf(out, "  %s: %d\n", status, count)
				}
				fmt.Fprintf(out, "Health: %s\n", daemonStatus.Health)
				return nil
			}

			store, err := shelf.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, map[string]any{
					"running":        false,
					"database":       store.Path(),
					"total_chapters": stats.Total,
					"processing":     stats.Processing,
					"by_status":      stats.ByStatus,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Daemon: not running")
			fmt.Fprintf(out, "Database: %s\n", store.Path())
			fmt.Fprintf(out, "Chapters: %d total, %d processing\n", stats.Total, stats.Processing)
			for status, count := range stats.ByStatus {
				fmt.Fprintf(out, "  %s: %d\n", status, count)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}
