package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"scrivener/internal/logging"
	"scrivener/internal/outline"
	"scrivener/internal/pipeline"
	"scrivener/internal/services/llm"
	"scrivener/internal/services/narration"
	"scrivener/internal/services/research"
	"scrivener/internal/shelf"
	"scrivener/internal/synthesis"
)

func newChapterCommand(ctx *commandContext) *cobra.Command {
	chapterCmd := &cobra.Command{
		Use:   "chapter",
		Short: "Manage chapters",
	}

	chapterCmd.AddCommand(newChapterAddCommand(ctx))
	chapterCmd.AddCommand(newChapterShowCommand(ctx))
	chapterCmd.AddCommand(newChapterStartCommand(ctx))
	chapterCmd.AddCommand(newChapterWriteCommand(ctx))
	chapterCmd.AddCommand(newChapterRetryCommand(ctx))
	chapterCmd.AddCommand(newChapterNarrateCommand(ctx))

	return chapterCmd
}

func newChapterAddCommand(ctx *commandContext) *cobra.Command {
	var goal, protagonist, place, opens, closes string

	cmd := &cobra.Command{
		Use:   "add <book-id> <title>",
		Short: "Add a draft chapter to a book",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			opensDate, err := parseDateFlag(opens)
			if err != nil {
				return fmt.Errorf("parse --opens: %w", err)
			}
			closesDate, err := parseDateFlag(closes)
			if err != nil {
				return fmt.Errorf("parse --closes: %w", err)
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			chapter, err := store.CreateChapter(cmd.Context(), shelf.NewChapterParams{
				BookID:      bookID,
				Title:       args[1],
				Goal:        goal,
				Protagonist: protagonist,
				Place:       place,
				Opens:       opensDate,
				Closes:      closesDate,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added chapter %d (position %d) to book %d\n",
				chapter.ID, chapter.Position, bookID)
			return nil
		},
	}

	cmd.Flags().StringVar(&goal, "goal", "", "What the chapter should accomplish")
	cmd.Flags().StringVar(&protagonist, "protagonist", "", "Point-of-view entity for the timeline check")
	cmd.Flags().StringVar(&place, "place", "", "Where the chapter takes place")
	cmd.Flags().StringVar(&opens, "opens", "", "Date the chapter opens (YYYY-MM-DD, optional ' BC')")
	cmd.Flags().StringVar(&closes, "closes", "", "Date the chapter closes")
	return cmd
}

func newChapterShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var withContent bool

	cmd := &cobra.Command{
		Use:   "show <chapter-id>",
		Short: "Show a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			chapter, err := store.GetChapter(cmd.Context(), id)
			if err != nil {
				return err
			}
			if chapter == nil {
				return fmt.Errorf("chapter %d not found", id)
			}

			if asJSON {
				return writeJSON(cmd, chapter)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Chapter %d: %s (book %d, position %d)\n",
				chapter.ID, chapter.Title, chapter.BookID, chapter.Position)
			fmt.Fprintf(out, "Status: %s\n", chapter.Status)
			if chapter.Goal != "" {
				fmt.Fprintf(out, "Goal: %s\n", chapter.Goal)
			}
			if chapter.Framed() {
				fmt.Fprintf(out, "Framing: %s at %s, %s to %s\n",
					chapter.Protagonist, chapter.Place, chapter.Opens, chapter.Closes)
			}
			if chapter.ProgressMessage != "" {
				fmt.Fprintf(out, "Progress: %s\n", chapter.ProgressMessage)
			}
			if chapter.ErrorMessage != "" {
				fmt.Fprintf(out, "Error: %s\n", chapter.ErrorMessage)
			}
			fmt.Fprintf(out, "Words: %d\n", chapter.WordCount())
			if withContent && chapter.Content != "" {
				fmt.Fprintf(out, "\n%s\n", chapter.Content)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	cmd.Flags().BoolVar(&withContent, "content", false, "Print the chapter prose")
	return cmd
}

func newChapterStartCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start <chapter-id>",
		Short: "Start a chapter writing run on the daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var body map[string]any
			status, err := postToDaemon(cfg, fmt.Sprintf("/api/chapters/%d/start", id), map[string]any{}, &body)
			if err != nil {
				return err
			}
			switch status {
			case http.StatusAccepted:
				fmt.Fprintf(cmd.OutOrStdout(), "Chapter %d started\n", id)
				return nil
			case http.StatusConflict:
				return fmt.Errorf("chapter %d is already processing", id)
			default:
				if message, ok := body["error"].(string); ok {
					return fmt.Errorf("start chapter %d: %s", id, message)
				}
				return fmt.Errorf("start chapter %d: daemon returned status %d", id, status)
			}
		},
	}
	return cmd
}

func newChapterWriteCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "write <chapter-id>",
		Short: "Run a chapter writing run in this process and wait for it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
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

			llmClient := llm.NewClient(cfg.LLM)
			manager := pipeline.NewManager(
				store,
				outline.NewPlanner(llmClient, cfg.Writing, logger),
				synthesis.New(llmClient, logger),
				research.NewClient(cfg.Research),
				cfg,
				logger,
			)
			if err := manager.RunChapter(cmd.Context(), id); err != nil {
				return err
			}

			chapter, err := store.GetChapter(cmd.Context(), id)
			if err != nil {
				return err
			}
			if chapter == nil {
				return fmt.Errorf("chapter %d not found after run", id)
			}
			out := cmd.OutOrStdout()
			switch chapter.Status {
			case shelf.StatusCompleted:
				fmt.Fprintf(out, "Chapter %d completed (%d words)\n", id, chapter.WordCount())
				return nil
			case shelf.StatusError:
				return fmt.Errorf("chapter %d finished in error: %s", id, chapter.ErrorMessage)
			default:
				return fmt.Errorf("chapter %d finished in unexpected status %s", id, chapter.Status)
			}
		},
	}
	return cmd
}

func newChapterRetryCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "retry <chapter-id>",
		Short: "Return an errored chapter to draft",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			ok, err := store.RetryChapter(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("chapter %d is not in error", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Chapter %d returned to draft\n", id)
			return nil
		},
	}
	return cmd
}

func newChapterNarrateCommand(ctx *commandContext) *cobra.Command {
	var voice string
	var outputPath string

	cmd := &cobra.Command{
		Use:   "narrate <chapter-id>",
		Short: "Synthesize narration audio for a completed chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			narrator := narration.NewClient(cfg.Narration)
			if !narrator.Enabled() {
				return fmt.Errorf("narration is not enabled in the configuration")
			}

			store, err := shelf.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			chapter, err := store.GetChapter(cmd.Context(), id)
			if err != nil {
				return err
			}
			if chapter == nil {
				return fmt.Errorf("chapter %d not found", id)
			}
			if chapter.Status != shelf.StatusCompleted {
				return fmt.Errorf("chapter %d is %s; narrate completed chapters only", id, chapter.Status)
			}

			audio, err := narrator.Synthesize(cmd.Context(), chapter.Content, voice)
			if err != nil {
				return err
			}

			target := outputPath
			if target == "" {
				audioDir := filepath.Join(cfg.Paths.DataDir, "audio")
				if err := os.MkdirAll(audioDir, 0o755); err != nil {
					return fmt.Errorf("create audio directory: %w", err)
				}
				target = filepath.Join(audioDir, fmt.Sprintf("chapter_%d.mp3", id))
			}
			if err := os.WriteFile(target, audio, 0o644); err != nil {
				return fmt.Errorf("write audio: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote narration for chapter %d to %s\n", id, target)
			return nil
		},
	}

	cmd.Flags().StringVar(&voice, "voice", "", "Override the configured narration voice")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Audio output path")
	return cmd
}
