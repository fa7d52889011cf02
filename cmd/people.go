package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/joescharf/zeit/internal/models"
	"github.com/joescharf/zeit/internal/output"
)

var employeeCmd = &cobra.Command{
	Use:     "employee",
	Aliases: []string{"emp"},
	Short:   "Manage employees who can book time",
}

var employeeAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an employee",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return employeeAddRun(args[0])
	},
}

var employeeListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List employees",
	RunE: func(cmd *cobra.Command, args []string) error {
		return employeeListRun()
	},
}

var employeeRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove an employee",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return employeeRemoveRun(args[0])
	},
}

var customerCmd = &cobra.Command{
	Use:   "customer",
	Short: "Manage customers projects are billed to",
}

var customerAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a customer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return customerAddRun(args[0])
	},
}

var customerListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List customers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return customerListRun()
	},
}

var customerRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a customer",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return customerRemoveRun(args[0])
	},
}

func init() {
	employeeCmd.AddCommand(employeeAddCmd)
	employeeCmd.AddCommand(employeeListCmd)
	employeeCmd.AddCommand(employeeRemoveCmd)
	rootCmd.AddCommand(employeeCmd)

	customerCmd.AddCommand(customerAddCmd)
	customerCmd.AddCommand(customerListCmd)
	customerCmd.AddCommand(customerRemoveCmd)
	rootCmd.AddCommand(customerCmd)
}

func employeeAddRun(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("employee name must not be empty")
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would add employee: %s", name)
		return nil
	}

	if err := s.CreateEmployee(context.Background(), &models.Employee{Name: name}); err != nil {
		return fmt.Errorf("add employee: %w", err)
	}
	ui.Success("Added employee: %s", output.Cyan(name))
	return nil
}

func employeeListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	employees, err := s.ListEmployees(context.Background())
	if err != nil {
		return err
	}
	if len(employees) == 0 {
		ui.Info("No employees yet. Use 'zeit employee add <name>' to add one.")
		return nil
	}

	table := ui.Table([]string{"Name", "Added"})
	for _, e := range employees {
		table.Append([]string{output.Cyan(e.Name), e.CreatedAt.Local().Format(time.DateOnly)})
	}
	table.Render()
	return nil
}

func employeeRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove employee: %s", name)
		return nil
	}

	if err := s.DeleteEmployee(context.Background(), name); err != nil {
		return fmt.Errorf("remove employee: %w", err)
	}
	ui.Success("Removed employee: %s", output.Cyan(name))
	return nil
}

func customerAddRun(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("customer name must not be empty")
	}
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would add customer: %s", name)
		return nil
	}

	if err := s.CreateCustomer(context.Background(), &models.Customer{Name: name}); err != nil {
		return fmt.Errorf("add customer: %w", err)
	}
	ui.Success("Added customer: %s", output.Cyan(name))
	return nil
}

func customerListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}

	customers, err := s.ListCustomers(context.Background())
	if err != nil {
		return err
	}
	if len(customers) == 0 {
		ui.Info("No customers yet. Use 'zeit customer add <name>' to add one.")
		return nil
	}

	table := ui.Table([]string{"Name", "Added"})
	for _, c := range customers {
		table.Append([]string{output.Cyan(c.Name), c.CreatedAt.Local().Format(time.DateOnly)})
	}
	table.Render()
	return nil
}

func customerRemoveRun(name string) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	if dryRun {
		ui.DryRunMsg("Would remove customer: %s", name)
		return nil
	}

	if err := s.DeleteCustomer(context.Background(), name); err != nil {
		return fmt.Errorf("remove customer: %w", err)
	}
	ui.Success("Removed customer: %s", output.Cyan(name))
	return nil
}
