package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Asyfdzaky/bps-dashboard-sub001/internal/publishing/model"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var export bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show production metrics, stage performance and team workload",
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, err := ctx.ensureManager(cmd.Context())
			if err != nil {
				return err
			}

			if export {
				exportService, err := ctx.exportService(cmd.Context())
				if err != nil {
					return err
				}
				manager.EnableExports(exportService)
				result, err := manager.Reports.Export(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %s (%d bytes)\n%s\n", result.Key, result.SizeBytes, result.URL)
				return nil
			}

			report, err := manager.Reports.Build(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, report)
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&export, "export", false, "Write the report to export storage instead of printing it")
	return cmd
}

func printReport(out io.Writer, report *model.Report) {
	m := report.Metrics
	fmt.Fprintf(out, "Report for %s\n", report.Today)
	metrics := [][]string{
		{"Total books", strconv.Itoa(m.TotalBooks)},
		{"Active books", strconv.Itoa(m.ActiveBooks)},
		{"Published books", strconv.Itoa(m.PublishedBooks)},
		{"Avg production days", formatDecimal(m.AverageProductionDays)},
		{"Overdue", formatDecimal(m.OverduePercentage) + "%"},
		{"Deadline normal", strconv.Itoa(m.DeadlineBuckets[model.DeadlineNormal])},
		{"Deadline warning", strconv.Itoa(m.DeadlineBuckets[model.DeadlineWarning])},
		{"Deadline critical", strconv.Itoa(m.DeadlineBuckets[model.DeadlineCritical])},
		{"Deadline overdue", strconv.Itoa(m.DeadlineBuckets[model.DeadlineOverdue])},
	}
	fmt.Fprintln(out, tableSpec{
		headers: []string{"Metric", "Value"},
		numeric: []int{2},
	}.render(metrics))

	if len(report.TaskPerformance) > 0 {
		rows := make([][]string, 0, len(report.TaskPerformance))
		for _, p := range report.TaskPerformance {
			rows = append(rows, []string{strconv.Itoa(p.Order), p.TaskName, formatDecimal(p.AverageDays), strconv.Itoa(p.CompletedTasks)})
		}
		fmt.Fprintln(out, tableSpec{
			title:   "Stage performance",
			headers: []string{"#", "Stage", "Avg days", "Completed"},
			numeric: []int{1, 3, 4},
		}.render(rows))
	}

	if len(report.TeamWorkload) > 0 {
		rows := make([][]string, 0, len(report.TeamWorkload))
		for _, w := range report.TeamWorkload {
			rows = append(rows, []string{
				w.FullName,
				strconv.Itoa(w.TotalTasks),
				strconv.Itoa(w.CompletedTasks),
				strconv.Itoa(w.InProgressTasks),
				strconv.Itoa(w.OverdueTasks),
			})
		}
		fmt.Fprintln(out, tableSpec{
			title:   "Team workload",
			headers: []string{"Member", "Total", "Completed", "In progress", "Overdue"},
			numeric: []int{2, 3, 4, 5},
		}.render(rows))
	}
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
