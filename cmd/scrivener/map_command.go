package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"scrivener/internal/cartographer"
	"scrivener/internal/logging"
	"scrivener/internal/services"
	"scrivener/internal/services/llm"
	"scrivener/internal/services/research"
	"scrivener/internal/shelf"
)

func newMapCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "map <book-id> <entity>",
		Short: "Research an entity and map it onto the book's timeline",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(logging.Options{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
			})
			if err != nil {
				return err
			}

			store, err := shelf.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			book, err := store.GetBook(cmd.Context(), bookID)
			if err != nil {
				return err
			}
			if book == nil {
				return services.Wrap(services.ErrNotFound, "map", "", fmt.Sprintf("book %d", bookID), nil)
			}

			carto := cartographer.New(
				research.NewClient(cfg.Research),
				llm.NewClient(cfg.LLM),
				store,
				cfg.Research.MaxResults,
				logger,
			)
			report, err := carto.MapEntity(cmd.Context(), bookID, args[1])
			if errors.Is(err, services.ErrNoSources) {
				fmt.Fprintf(cmd.OutOrStdout(), "No sources found for %q; nothing mapped.\n", report.Entity)
				return nil
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, report)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Mapped %q onto book %d:\n", report.Entity, bookID)
			fmt.Fprintf(out, "  passages: %d\n", report.Passages)
			fmt.Fprintf(out, "  extracted: %d\n", report.Extracted)
			fmt.Fprintf(out, "  accepted: %d\n", report.Mapped)
			fmt.Fprintf(out, "  conflicts: %d\n", report.Conflicts)
			fmt.Fprintf(out, "  dropped: %d\n", report.Dropped)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}
