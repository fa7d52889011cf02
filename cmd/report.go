package cmd

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/zeit/internal/output"
	"github.com/joescharf/zeit/internal/report"
	"github.com/joescharf/zeit/internal/store"
)

var (
	reportFormat    string
	reportFrom      string
	reportTo        string
	reportEmployees bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report booked time",
	Long: `Roll booked minutes up per category and employee.

Output formats: table (default), json, csv, markdown.`,
}

var reportProjectCmd = &cobra.Command{
	Use:   "project <project>",
	Short: "Report a finished project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportProjectRun(args[0])
	},
}

var reportRangeCmd = &cobra.Command{
	Use:   "range",
	Short: "Summarise finished projects created within a date range",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportRangeRun()
	},
}

var reportPeriodCmd = &cobra.Command{
	Use:   "period",
	Short: "Summarise sessions started within a date range, per employee",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportPeriodRun()
	},
}

func init() {
	reportCmd.PersistentFlags().StringVarP(&reportFormat, "format", "f", "table", "Output format: table, json, csv, markdown")

	for _, c := range []*cobra.Command{reportRangeCmd, reportPeriodCmd} {
		c.Flags().StringVar(&reportFrom, "from", "", "First day, YYYY-MM-DD (default: first of the current month)")
		c.Flags().StringVar(&reportTo, "to", "", "Last day, YYYY-MM-DD (default: today)")
	}
	reportRangeCmd.Flags().BoolVar(&reportEmployees, "employees", false, "Include the per-employee breakdown")

	reportCmd.AddCommand(reportProjectCmd)
	reportCmd.AddCommand(reportRangeCmd)
	reportCmd.AddCommand(reportPeriodCmd)
	rootCmd.AddCommand(reportCmd)
}

func reportProjectRun(ref string) error {
	format, err := output.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := store.ResolveProject(ctx, s, ref)
	if err != nil {
		return err
	}
	reports, err := newReportService(s)
	if err != nil {
		return err
	}
	rep, err := reports.ProjectReport(ctx, p.ID)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		return ui.JSON(rep)
	}
	if format == output.FormatTable {
		fmt.Fprintf(ui.Out, "%s", output.Cyan(rep.ProjectName))
		if rep.Customer != "" {
			fmt.Fprintf(ui.Out, " (%s)", rep.Customer)
		}
		fmt.Fprintln(ui.Out)
		fmt.Fprintf(ui.Out, "  Total:         %s\n", output.MinutesColor(rep.OverallMinutes, rep.OverallText))
		fmt.Fprintf(ui.Out, "  Calendar days: %d\n", rep.CalendarDays)
		fmt.Fprintf(ui.Out, "  Sessions:      %d\n", rep.SessionCount)
		fmt.Fprintln(ui.Out)
	}
	return ui.Rows(format, breakdownHeaders, projectReportRows(rep, format))
}

var breakdownHeaders = []string{"Employee", "Category", "Sessions", "Minutes", "Duration"}

// projectReportRows lists each employee's categories followed by the
// project-wide category totals under the employee "all".
func projectReportRows(rep *report.ProjectReport, f output.Format) [][]string {
	var rows [][]string
	for _, e := range rep.Employees {
		rows = append(rows, categoryRows(e.Employee, e.Categories, f)...)
	}
	rows = append(rows, categoryRows("all", rep.Categories, f)...)
	return rows
}

func categoryRows(who string, cats []report.CategoryTotal, f output.Format) [][]string {
	rows := make([][]string, 0, len(cats))
	for _, c := range cats {
		text := c.Text
		if f == output.FormatTable {
			text = output.MinutesColor(c.Minutes, c.Text)
		}
		rows = append(rows, []string{who, string(c.Category), strconv.Itoa(c.Sessions), strconv.Itoa(c.Minutes), text})
	}
	return rows
}

func reportRangeRun() error {
	format, err := output.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	from, to, err := reportDates(time.Now())
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	reports, err := newReportService(s)
	if err != nil {
		return err
	}

	var opts []report.RangeOption
	if reportEmployees {
		opts = append(opts, report.WithEmployees())
	}
	rep, err := reports.RangeReport(context.Background(), from, to, accessPolicy().Visible(currentCaller()), opts...)
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		return ui.JSON(rep)
	}
	if format == output.FormatTable {
		fmt.Fprintf(ui.Out, "Finished projects created %s to %s: %d, total %s\n\n",
			rep.From, rep.To, len(rep.Projects), output.MinutesColor(rep.TotalMinutes, rep.TotalText))
		if len(rep.Projects) == 0 {
			return nil
		}
	}

	headers := []string{"ID", "Project", "Customer", "Created By", "Created", "Finished", "Days"}
	for _, c := range rep.Categories {
		headers = append(headers, string(c.Category))
	}
	headers = append(headers, "Total")

	rows := make([][]string, 0, len(rep.Projects)+1)
	for _, ps := range rep.Projects {
		row := []string{
			strconv.FormatInt(ps.ProjectID, 10),
			ps.ProjectName,
			ps.Customer,
			ps.CreatedBy,
			ps.CreatedAt.Format(time.DateOnly),
			dateOrDash(ps.FinishedAt),
			strconv.Itoa(ps.CalendarDays),
		}
		byCat := make(map[string]string, len(ps.Categories))
		for _, c := range ps.Categories {
			byCat[string(c.Category)] = c.Text
		}
		for _, c := range rep.Categories {
			text, ok := byCat[string(c.Category)]
			if !ok {
				text = report.FormatDuration(0)
			}
			row = append(row, text)
		}
		rows = append(rows, append(row, ps.Text))
	}
	total := []string{"", "Total", "", "", "", "", ""}
	for _, c := range rep.Categories {
		total = append(total, c.Text)
	}
	rows = append(rows, append(total, rep.TotalText))

	if err := ui.Rows(format, headers, rows); err != nil {
		return err
	}

	if reportEmployees && format == output.FormatTable {
		for _, ps := range rep.Projects {
			fmt.Fprintf(ui.Out, "\n%s\n", output.Cyan(ps.ProjectName))
			var erows [][]string
			for _, e := range ps.Employees {
				erows = append(erows, categoryRows(e.Employee, e.Categories, format)...)
			}
			if err := ui.Rows(format, breakdownHeaders, erows); err != nil {
				return err
			}
		}
	}
	return nil
}

func reportPeriodRun() error {
	format, err := output.ParseFormat(reportFormat)
	if err != nil {
		return err
	}
	from, to, err := reportDates(time.Now())
	if err != nil {
		return err
	}
	s, err := getStore()
	if err != nil {
		return err
	}
	reports, err := newReportService(s)
	if err != nil {
		return err
	}

	rep, err := reports.PeriodReport(context.Background(), from, to, accessPolicy().Visible(currentCaller()))
	if err != nil {
		return err
	}

	if format == output.FormatJSON {
		return ui.JSON(rep)
	}

	var rows [][]string
	for _, e := range rep.Employees {
		rows = append(rows, categoryRows(e.Employee, e.Categories, format)...)
	}
	rows = append(rows, categoryRows("all", rep.Categories, format)...)

	if format == output.FormatTable {
		fmt.Fprintf(ui.Out, "Sessions started %s to %s on %d project(s), total %s\n\n",
			rep.From, rep.To, len(rep.Projects), output.MinutesColor(rep.TotalMinutes, rep.TotalText))
		if len(rep.Projects) == 0 {
			return nil
		}
	}
	return ui.Rows(format, breakdownHeaders, rows)
}

// reportDates resolves --from/--to, defaulting to the current month so far.
func reportDates(now time.Time) (time.Time, time.Time, error) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var err error
	if reportFrom != "" {
		if from, err = report.ParseDate(reportFrom); err != nil {
			return from, to, fmt.Errorf("invalid --from %q, expected YYYY-MM-DD", reportFrom)
		}
	}
	if reportTo != "" {
		if to, err = report.ParseDate(reportTo); err != nil {
			return from, to, fmt.Errorf("invalid --to %q, expected YYYY-MM-DD", reportTo)
		}
	}
	return from, to, nil
}

func dateOrDash(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}
