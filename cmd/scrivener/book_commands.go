package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scrivener/internal/shelf"
)

func newBookCommand(ctx *commandContext) *cobra.Command {
	bookCmd := &cobra.Command{
		Use:   "book",
		Short: "Manage books on the shelf",
	}

	bookCmd.AddCommand(newBookAddCommand(ctx))
	bookCmd.AddCommand(newBookListCommand(ctx))
	bookCmd.AddCommand(newBookShowCommand(ctx))
	bookCmd.AddCommand(newBookDeleteCommand(ctx))
	bookCmd.AddCommand(newBookExportCommand(ctx))

	return bookCmd
}

func newBookAddCommand(ctx *commandContext) *cobra.Command {
	var author string
	var synopsis string

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a new book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			book, err := store.CreateBook(cmd.Context(), args[0], author, synopsis)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added book %d: %s\n", book.ID, book.Title)
			return nil
		},
	}

	cmd.Flags().StringVar(&author, "author", "", "Book author")
	cmd.Flags().StringVar(&synopsis, "synopsis", "", "One-paragraph synopsis")
	return cmd
}

func newBookListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			books, err := store.ListBooks(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, books)
			}

			if len(books) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No books on the shelf.")
				return nil
			}

			rows := make([][]string, 0, len(books))
			for _, book := range books {
				chapters, err := store.ListChapters(cmd.Context(), book.ID)
				if err != nil {
					return err
				}
				completed := 0
				for _, chapter := range chapters {
					if chapter.Status == shelf.StatusCompleted {
						completed++
					}
				}
				rows = append(rows, []string{
					strconv.FormatInt(book.ID, 10),
					truncate(book.Title, 40),
					book.Author,
					fmt.Sprintf("%d/%d", completed, len(chapters)),
					formatTime(book.CreatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Title", "Author", "Done", "Created"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newBookShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <book-id>",
		Short: "Show a book and its chapters",
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

			book, err := store.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			if book == nil {
				return fmt.Errorf("book %d not found", id)
			}
			chapters, err := store.ListChapters(cmd.Context(), id)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, map[string]any{"book": book, "chapters": chapters})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Book %d: %s\n", book.ID, book.Title)
			if book.Author != "" {
				fmt.Fprintf(out, "Author: %s\n", book.Author)
			}
			if book.Synopsis != "" {
				fmt.Fprintf(out, "Synopsis: %s\n", book.Synopsis)
			}
			if len(chapters) == 0 {
				fmt.Fprintln(out, "No chapters yet.")
				return nil
			}

			rows := make([][]string, 0, len(chapters))
			for _, chapter := range chapters {
				detail := chapter.ProgressMessage
				if chapter.Status == shelf.StatusError {
					detail = truncate(chapter.ErrorMessage, 48)
				}
				rows = append(rows, []string{
					strconv.FormatInt(chapter.ID, 10),
					strconv.Itoa(chapter.Position),
					truncate(chapter.Title, 36),
					string(chapter.Status),
					strconv.Itoa(chapter.WordCount()),
					detail,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "#", "Title", "Status", "Words", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignRight, alignLeft, alignLeft, alignRight, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	return cmd
}

func newBookDeleteCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book, its chapters, and its timeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !force {
				return fmt.Errorf("deleting book %d removes its chapters and timeline; re-run with --force", id)
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			deleted, err := store.DeleteBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("book %d not found", id)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted book %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm the deletion")
	return cmd
}

func newBookExportCommand(ctx *commandContext) *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export <book-id>",
		Short: "Export a book's completed chapters as Markdown",
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

			book, err := store.GetBook(cmd.Context(), id)
			if err != nil {
				return err
			}
			if book == nil {
				return fmt.Errorf("book %d not found", id)
			}
			chapters, err := store.ListChapters(cmd.Context(), id)
			if err != nil {
				return err
			}

			var sb strings.Builder
			fmt.Fprintf(&sb, "# %s\n", book.Title)
			if book.Author != "" {
				fmt.Fprintf(&sb, "\nby %s\n", book.Author)
			}
			exported := 0
			for _, chapter := range chapters {
				if chapter.Status != shelf.StatusCompleted {
					continue
				}
				fmt.Fprintf(&sb, "\n## Chapter %d: %s\n\n%s\n", chapter.Position, chapter.Title, chapter.Content)
				exported++
			}
			if exported == 0 {
				return fmt.Errorf("book %d has no completed chapters to export", id)
			}

			if outputPath == "" {
				fmt.Fprint(cmd.OutOrStdout(), sb.String())
				return nil
			}
			if err := os.WriteFile(outputPath, []byte(sb.String()), 0o644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d chapter(s) to %s\n", exported, outputPath)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}
