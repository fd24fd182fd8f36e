package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"crm.service/internal/config"
	"crm.service/internal/core"
	"crm.service/internal/core/model"
	"crm.service/internal/ports/csvimport"
	"crm.service/pkg/database"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or inspect schema migrations",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			db, err := database.NewInstrumentedConnection(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			version, dirty, err := database.Migrate(db, database.MigrationAction(args[0]))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}
}

func leadsCmd() *cobra.Command {
	leads := &cobra.Command{Use: "leads", Short: "Manage leads"}
	leads.AddCommand(leadsImportCmd())
	return leads
}

func leadsImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import leads from a CSV file and assign them",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			rows, err := csvimport.Parse(f)
			if err != nil {
				return err
			}

			return withServices(cmd.Context(), func(ctx context.Context, s services) error {
				report, err := s.leads.ImportLeads(ctx, rows)
				if viper.GetBool("json") {
					if perr := printJSON(cmd.OutOrStdout(), report); perr != nil {
						return perr
					}
				} else {
					renderImportReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
}

func employeesCmd() *cobra.Command {
	emp := &cobra.Command{Use: "employees", Short: "Manage the employee directory"}
	emp.AddCommand(employeesAddCmd())
	emp.AddCommand(employeesListCmd())
	emp.AddCommand(employeesRemoveCmd())
	return emp
}

func employeesAddCmd() *cobra.Command {
	var in core.CreateEmployeeInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an employee",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s services) error {
				emp, err := s.employees.CreateEmployee(ctx, in)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), emp)
				}
				renderEmployees(cmd.OutOrStdout(), []model.Employee{*emp})
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&in.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&in.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&in.Email, "email", "", "e-mail address")
	cmd.Flags().StringVar(&in.Language, "language", "", "language (Hindi, English, Bengali, Tamil)")
	cmd.Flags().StringVar(&in.Location, "location", "", "location (Pune, Hyderabad, Delhi)")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func employeesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List employees",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s services) error {
				employees, err := s.employees.ListEmployees(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), employees)
				}
				renderEmployees(cmd.OutOrStdout(), employees)
				return nil
			})
		},
	}
}

func employeesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <employee-id>",
		Short: "Remove an employee and redistribute their pending leads",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s services) error {
				report, err := s.employees.RemoveEmployee(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), report)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s: %d moved, %d unassigned, %d closed released, %d schedules cleared\n",
					args[0], report.Moved, report.Unassigned, report.Released, report.SchedulesCleared)
				return nil
			})
		},
	}
}

func performanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "performance",
		Short: "Show per-employee lead performance",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), func(ctx context.Context, s services) error {
				perf, err := s.dashboard.EmployeePerformance(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cmd.OutOrStdout(), perf)
				}
				renderPerformance(cmd.OutOrStdout(), perf)
				return nil
			})
		},
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func renderEmployees(w io.Writer, employees []model.Employee) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"ID", "Custom ID", "Name", "Email", "Language", "Location", "Active"})
	for _, e := range employees {
		tw.AppendRow(table.Row{e.ID, e.CustomID, e.FullName(), e.Email, e.Language, e.Location, e.Active})
	}
	tw.Render()
}

func renderPerformance(w io.Writer, perf []model.EmployeePerformance) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"Employee", "Assigned", "Closed", "Pending", "Conversion %"})
	for _, p := range perf {
		tw.AppendRow(table.Row{p.Name, p.AssignedLeads, p.ClosedLeads, p.PendingLeads, fmt.Sprintf("%.2f", p.ConversionRatePct)})
	}
	tw.Render()
}

func renderImportReport(w io.Writer, r model.ImportReport) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendRows([]table.Row{
		{"Rows", r.Total},
		{"Valid", r.Valid},
		{"Inserted", r.Inserted},
		{"Unassigned", r.Unassigned},
	})
	tw.Render()
	for _, msg := range r.Errors {
		fmt.Fprintln(w, "error:", msg)
	}
	if len(r.Discarded) > 0 {
		fmt.Fprintln(w, "discarded:", strings.Join(r.Discarded, ", "))
	}
}
