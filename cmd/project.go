package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/output"
	"github.com/joescharf/zeit/internal/report"
	"github.com/joescharf/zeit/internal/store"
)

var (
	projectCustomer  string
	projectCreatedBy string
	projectStatus    string
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage projects",
	Long:  "Add, list, show, finish and remove tracked projects.",
}

var projectAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectAddRun(args[0])
	},
}

var projectListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List projects in dashboard order",
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectListRun(projectStatus)
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show running activities and booked time of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectShowRun(args[0])
	},
}

var projectFinishCmd = &cobra.Command{
	Use:   "finish <project>",
	Short: "Finish a project, stopping every running activity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectFinishRun(args[0])
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:     "remove <project>...",
	Aliases: []string{"rm"},
	Short:   "Delete projects and all their sessions",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return projectRemoveRun(args)
	},
}

func init() {
	projectAddCmd.Flags().StringVar(&projectCustomer, "customer", "", "Customer the project is billed to")
	projectAddCmd.Flags().StringVar(&projectCreatedBy, "created-by", "", "Creator email (default: caller.email)")

	projectListCmd.Flags().StringVar(&projectStatus, "status", "", "Filter by status: stopped, running, paused, finished")

	projectCmd.AddCommand(projectAddCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectFinishCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	rootCmd.AddCommand(projectCmd)
}

func projectAddRun(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("project name must not be empty")
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	createdBy := projectCreatedBy
	if createdBy == "" {
		createdBy = viper.GetString("caller.email")
	}
	p := &models.Project{
		Name:      name,
		Customer:  strings.TrimSpace(projectCustomer),
		CreatedBy: createdBy,
	}

	if dryRun {
		ui.DryRunMsg("Would create project: %s", name)
		return nil
	}

	if err := s.CreateProject(context.Background(), p); err != nil {
		return fmt.Errorf("add project: %w", err)
	}

	ui.Success("Created project #%d: %s", p.ID, output.Cyan(p.Name))
	if p.Customer != "" {
		ui.VerboseLog("Customer: %s", p.Customer)
	}
	return nil
}

func projectListRun(status string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	filter := store.ProjectListFilter{Status: models.ProjectStatus(strings.ToLower(status))}
	projects, err := s.ListProjects(context.Background(), filter)
	if err != nil {
		return err
	}

	if len(projects) == 0 {
		ui.Info("No projects yet. Use 'zeit project add <name>' to get started.")
		return nil
	}

	models.SortProjects(projects)
	table := ui.Table([]string{"ID", "Name", "Customer", "Status", "Created", "Last Start"})
	for _, p := range projects {
		table.Append([]string{
			fmt.Sprintf("%d", p.ID),
			output.Cyan(p.Name),
			p.Customer,
			output.StatusColor(string(p.Status)),
			p.CreatedAt.Local().Format(time.DateOnly),
			formatOptionalTime(p.LastStartAt),
		})
	}
	table.Render()
	return nil
}

func projectShowRun(ref string) error {
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
	view, err := reports.ProjectView(ctx, p.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(ui.Out, "%s\n", output.Cyan(view.Project.Name))
	fmt.Fprintf(ui.Out, "  ID:         %d\n", view.Project.ID)
	if view.Project.Customer != "" {
		fmt.Fprintf(ui.Out, "  Customer:   %s\n", view.Project.Customer)
	}
	if view.Project.CreatedBy != "" {
		fmt.Fprintf(ui.Out, "  Created by: %s\n", view.Project.CreatedBy)
	}
	fmt.Fprintf(ui.Out, "  Status:     %s\n", output.StatusColor(string(view.Project.Status)))
	fmt.Fprintf(ui.Out, "  Created:    %s\n", formatOptionalTime(&view.Project.CreatedAt))
	fmt.Fprintf(ui.Out, "  Started:    %s\n", formatOptionalTime(view.Project.FirstStartAt))
	if view.Project.FinishedAt != nil {
		fmt.Fprintf(ui.Out, "  Finished:   %s\n", formatOptionalTime(view.Project.FinishedAt))
	}
	fmt.Fprintf(ui.Out, "  Booked:     %s\n", output.MinutesColor(view.CompletedMinutes, view.CompletedText))

	if len(view.Active) > 0 {
		fmt.Fprintln(ui.Out)
		fmt.Fprintln(ui.Out, "Running:")
		table := ui.Table([]string{"Employee", "Category", "Since", "Duration"})
		for _, a := range view.Active {
			table.Append([]string{a.Employee, string(a.Category), a.StartedAt.Local().Format("2006-01-02 15:04"), output.Green(a.Text)})
		}
		table.Render()
	}

	fmt.Fprintln(ui.Out)
	table := ui.Table([]string{"Category", "Sessions", "Duration"})
	for _, c := range view.Categories {
		table.Append([]string{string(c.Category), fmt.Sprintf("%d", c.Sessions), output.MinutesColor(c.Minutes, c.Text)})
	}
	table.Render()

	if verbose && len(view.Sessions) > 0 {
		fmt.Fprintln(ui.Out)
		table := ui.Table([]string{"Employee", "Category", "Start", "End", "Duration"})
		for _, cs := range view.Sessions {
			table.Append([]string{
				cs.Employee,
				string(cs.Category),
				cs.StartedAt.Local().Format("2006-01-02 15:04"),
				cs.EndedAt.Local().Format("2006-01-02 15:04"),
				report.FormatDuration(cs.DurationMinutes),
			})
		}
		table.Render()
	}
	return nil
}

func projectFinishRun(ref string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := store.ResolveProject(ctx, s, ref)
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would finish project: %s", p.Name)
		return nil
	}

	res, err := newLedger(s).FinishProject(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("finish project: %w", err)
	}

	ui.Success("Finished project: %s", output.Cyan(res.Project.Name))
	for _, cs := range res.Closed {
		ui.Info("Stopped %s (%s): %s", cs.Employee, cs.Category, report.FormatDuration(cs.DurationMinutes))
	}
	return nil
}

func projectRemoveRun(refs []string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	var ids []int64
	var names []string
	for _, ref := range refs {
		p, err := store.ResolveProject(ctx, s, ref)
		if err != nil {
			return err
		}
		ids = append(ids, p.ID)
		names = append(names, p.Name)
	}

	if dryRun {
		ui.DryRunMsg("Would delete projects: %s", strings.Join(names, ", "))
		return nil
	}

	n, err := s.DeleteProjects(ctx, ids)
	if err != nil {
		return fmt.Errorf("remove projects: %w", err)
	}

	ui.Success("Deleted %d project(s): %s", n, output.Cyan(strings.Join(names, ", ")))
	return nil
}

func formatOptionalTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
