package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
	"github.com/Asyfdzaky/bps-dashboard-sub001/utils"
)

const deadlinePageSize = 100

func newDeadlinesCommand(ctx *commandContext) *cobra.Command {
	var class string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "deadlines",
		Short: "List books in production with their print deadline urgency",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := model.BookFilter{}
			if class != "" {
				c, err := model.ParseDeadlineClass(class)
				if err != nil {
					return err
				}
				filter.Deadline = &c
			}

			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}

			var books []model.BookView
			limit := deadlinePageSize
			for offset := 0; ; offset += limit {
				off := offset
				filter.Offset, filter.Limit = &off, &limit
				page, err := manager.Pipeline.ListBooks(cmd.Context(), filter)
				if err != nil {
					return err
				}
				for _, b := range page.Books {
					if !b.Status.IsTerminal() {
						books = append(books, b)
					}
				}
				if !utils.HasMore(offset, len(page.Books), page.TotalCount) {
					break
				}
			}

			if asJSON {
				return writeJSON(cmd, books)
			}
			printDeadlines(cmd.OutOrStdout(), books)
			return nil
		},
	}
	cmd.Flags().StringVar(&class, "class", "", "Only show one class: normal, warning, critical or overdue")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func printDeadlines(out io.Writer, books []model.BookView) {
	if len(books) == 0 {
		fmt.Fprintln(out, "No books in production")
		return
	}
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		rows = append(rows, []string{
			b.Title,
			string(b.Status),
			b.TargetPrintDate.Format(model.DateLayout),
			strconv.Itoa(b.DaysUntilTarget),
			string(b.DeadlineClass),
		})
	}
	fmt.Fprintln(out, tableSpec{
		headers: []string{"Title", "Status", "Target", "Days left", "Class"},
		numeric: []int{4},
	}.render(rows))
}
