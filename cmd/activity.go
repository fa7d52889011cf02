package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joescharf/zeit/internal/ledger"
	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/output"
	"github.com/joescharf/zeit/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start <project> <employee> <category>",
	Short: "Start an activity for an employee on a project",
	Long: `Start timing an activity. The category must be one of the configured
categories (see 'zeit config show'). An employee can run at most one
activity per project at a time.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return startRun(args[0], args[1], args[2])
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop <project> <employee>",
	Short: "Stop an employee's running activity and book its time",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopRun(args[0], args[1])
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
}

func startRun(ref, employee, category string) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	p, err := store.ResolveProject(ctx, s, ref)
	if err != nil {
		return err
	}
	l := newLedger(s)

	if dryRun {
		ui.DryRunMsg("Would start %s for %s on %s", models.NormalizeCategory(category), employee, p.Name)
		return nil
	}

	if err := l.StartActivity(ctx, p.ID, employee, category); err != nil {
		if errors.Is(err, ledger.ErrInvalidCategory) {
			return fmt.Errorf("start activity: %w (use: %s)", err, strings.Join(categoryStrings(l.Categories()), ", "))
		}
		return fmt.Errorf("start activity: %w", err)
	}

	ui.Success("Started %s for %s on %s", models.NormalizeCategory(category), employee, output.Cyan(p.Name))
	return nil
}

func stopRun(ref, employee string) error {
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
		ui.DryRunMsg("Would stop %s on %s", employee, p.Name)
		return nil
	}

	res, err := newLedger(s).StopActivity(ctx, p.ID, employee)
	if err != nil {
		return fmt.Errorf("stop activity: %w", err)
	}

	ui.Success("Stopped %s for %s on %s: %s", res.Session.Category, employee, output.Cyan(p.Name), output.Green(res.DurationText))
	return nil
}
