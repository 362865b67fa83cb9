package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"scrivener/internal/services"
	"scrivener/internal/shelf"
	"scrivener/internal/timeline"
)

func newTimelineCommand(ctx *commandContext) *cobra.Command {
	timelineCmd := &cobra.Command{
		Use:   "timeline",
		Short: "Inspect and extend a book's timeline",
	}

	timelineCmd.AddCommand(newTimelineListCommand(ctx))
	timelineCmd.AddCommand(newTimelineProposeCommand(ctx))
	timelineCmd.AddCommand(newTimelineCheckCommand(ctx))

	return timelineCmd
}

func newTimelineListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var entity string

	cmd := &cobra.Command{
		Use:   "list <book-id>",
		Short: "List timeline assignments",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			var assignments []shelf.StoredAssignment
			if entity != "" {
				assignments, err = store.AssignmentsForEntity(cmd.Context(), bookID, entity)
			} else {
				assignments, err = store.ListAssignments(cmd.Context(), bookID)
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd, assignments)
			}
			if len(assignments) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No assignments on this timeline.")
				return nil
			}

			rows := make([][]string, 0, len(assignments))
			for _, stored := range assignments {
				a := stored.Assignment
				rows = append(rows, []string{
					strconv.FormatInt(stored.ID, 10),
					a.Entity,
					a.Place,
					a.Start.String(),
					a.End.String(),
					string(a.Granularity()),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Entity", "Place", "Start", "End", "Granularity"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON")
	cmd.Flags().StringVar(&entity, "entity", "", "Filter by entity name")
	return cmd
}

func newTimelineProposeCommand(ctx *commandContext) *cobra.Command {
	var place, start, end string

	cmd := &cobra.Command{
		Use:   "propose <book-id> <entity>",
		Short: "Propose a new assignment; the consistency checker decides",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			candidate, err := buildCandidate(args[1], place, start, end)
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			proposal, err := store.ProposeAssignment(cmd.Context(), bookID, candidate)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if proposal.Accepted() {
				fmt.Fprintf(out, "Accepted: %s\n", proposal.Stored.Assignment)
				return nil
			}
			fmt.Fprintln(out, "Rejected. Conflicting assignments:")
			for _, conflict := range proposal.Conflicts {
				fmt.Fprintf(out, "  %s\n", conflict)
			}
			return services.Wrap(services.ErrConflict, "timeline", "propose", candidate.String(), nil)
		},
	}

	cmd.Flags().StringVar(&place, "place", "", "Place name (blank means Unknown)")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD, optional ' BC')")
	cmd.Flags().StringVar(&end, "end", "", "End date; defaults to the start date")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newTimelineCheckCommand(ctx *commandContext) *cobra.Command {
	var place, start, end string

	cmd := &cobra.Command{
		Use:   "check <book-id> <entity>",
		Short: "Check a hypothetical assignment without writing it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bookID, err := parseID(args[0])
			if err != nil {
				return err
			}
			candidate, err := buildCandidate(args[1], place, start, end)
			if err != nil {
				return err
			}

			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			conflicts, err := store.CheckSpan(cmd.Context(), bookID, candidate.Entity, candidate.Place, candidate.Start, candidate.End)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(conflicts) == 0 {
				fmt.Fprintln(out, "No conflicts.")
				return nil
			}
			fmt.Fprintf(out, "%d conflict(s):\n", len(conflicts))
			for _, conflict := range conflicts {
				fmt.Fprintf(out, "  %s\n", conflict)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&place, "place", "", "Place name (blank means Unknown)")
	cmd.Flags().StringVar(&start, "start", "", "Start date (YYYY-MM-DD, optional ' BC')")
	cmd.Flags().StringVar(&end, "end", "", "End date; defaults to the start date")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func buildCandidate(entity, place, start, end string) (timeline.Assignment, error) {
	startDate, err := timeline.ParseDate(start)
	if err != nil {
		return timeline.Assignment{}, fmt.Errorf("parse --start: %w", err)
	}
	endDate := startDate
	if end != "" {
		if endDate, err = timeline.ParseDate(end); err != nil {
			return timeline.Assignment{}, fmt.Errorf("parse --end: %w", err)
		}
	}
	return timeline.NewAssignment(entity, place, startDate, endDate)
}
