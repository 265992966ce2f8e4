package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"recurring/internal/cli"
	"recurring/internal/core"
	"recurring/internal/services"
)

func templatesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "Manage recurring templates",
	}
	cmd.AddCommand(templatesAddCmd())
	cmd.AddCommand(templatesListCmd())
	cmd.AddCommand(templatesActiveCmd("deactivate", false))
	cmd.AddCommand(templatesActiveCmd("activate", true))
	cmd.AddCommand(templatesRescheduleCmd())
	cmd.AddCommand(templatesPreviewCmd())
	return cmd
}

func addScheduleFlags(cmd *cobra.Command) {
	cmd.Flags().String("every", "monthly", "daily, weekly, monthly, yearly or a legacy cadence such as QUARTERLY")
	cmd.Flags().Int("interval", 1, "number of units between occurrences")
	cmd.Flags().String("start", "", "first occurrence date (YYYY-MM-DD)")
	cmd.Flags().String("end", "", "last possible occurrence date (YYYY-MM-DD)")
}

func scheduleFromFlags(cmd *cobra.Command) (core.Rule, core.Date, core.Date, error) {
	every, _ := cmd.Flags().GetString("every")
	interval, _ := cmd.Flags().GetInt("interval")
	startRaw, _ := cmd.Flags().GetString("start")
	endRaw, _ := cmd.Flags().GetString("end")

	rule, err := core.ParseRule(every, interval)
	if err != nil {
		return core.Rule{}, core.Date{}, core.Date{}, err
	}
	start, err := core.ParseDate(startRaw)
	if err != nil {
		return core.Rule{}, core.Date{}, core.Date{}, fmt.Errorf("invalid --start: %w", err)
	}
	end, err := optionalDate(endRaw)
	if err != nil {
		return core.Rule{}, core.Date{}, core.Date{}, fmt.Errorf("invalid --end: %w", err)
	}
	return rule, start, end, nil
}

func templatesAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a recurring template",
		Example: `  recurring templates add --user u1 --name Rent --amount 1200 --direction expense \
    --every monthly --start 2026-01-31`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			rule, start, end, err := scheduleFromFlags(cmd)
			if err != nil {
				return err
			}
			fields, err := applyFieldFlags(cmd, core.FieldValues{Direction: core.Expense})
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tmpl, err := a.svc.CreateTemplate(cmd.Context(), core.Template{
				UserID:      user,
				FieldValues: fields,
				StartDate:   start,
				EndDate:     end,
				Rule:        rule,
			})
			if err != nil {
				return fmt.Errorf("create template: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created template %s (%s, %s from %s)",
				tmpl.ID, tmpl.Name, tmpl.Rule, tmpl.StartDate)))
			return nil
		},
	}
	cmd.Flags().String("user", "", "owner user id")
	addFieldFlags(cmd)
	addScheduleFlags(cmd)
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func templatesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active templates of a user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			templates, err := a.svc.ListTemplates(cmd.Context(), user)
			if err != nil {
				return err
			}
			if len(templates) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("No active templates. Use 'recurring templates add' to create one."))
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatTitle("Recurring templates for "+user))
			rows := make([][]string, 0, len(templates))
			for _, t := range templates {
				rows = append(rows, []string{
					t.ID, t.Name, string(t.Direction), t.Amount.String(), t.Rule.String(),
					t.StartDate.String(), t.EndDate.String(), t.AccountID,
				})
			}
			return writeTable(cmd.OutOrStdout(),
				[]string{"ID", "NAME", "DIRECTION", "AMOUNT", "EVERY", "START", "END", "ACCOUNT"}, rows)
		},
	}
	cmd.Flags().String("user", "", "owner user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func templatesActiveCmd(use string, active bool) *cobra.Command {
	short := "Stop generating occurrences for a template"
	if active {
		short = "Resume generating occurrences for a template"
	}
	return &cobra.Command{
		Use:   use + " <template-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.SetActive(cmd.Context(), args[0], active); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Template %s %sd", args[0], use)))
			return nil
		},
	}
}

func templatesRescheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reschedule <template-id>",
		Short: "Change the cadence or date range of a template",
		Long: `Change the cadence or date range of a template.

Occurrences that already exist are kept; only later passes follow the
new schedule.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rule, start, end, err := scheduleFromFlags(cmd)
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.Reschedule(cmd.Context(), args[0], rule, start, end); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Rescheduled "+args[0]+" to "+rule.String()))
			return nil
		},
	}
	addScheduleFlags(cmd)
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func templatesPreviewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preview <template-id>",
		Short: "Show the dates a template produces, without writing anything",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			until, _ := cmd.Flags().GetString("until")
			limit, _ := cmd.Flags().GetInt("limit")
			_, horizon, err := monthRange(until, time.Now())
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tmpl, err := a.svc.GetTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			dates, err := services.Preview(tmpl, horizon, a.cfg.Policy(), limit)
			if err != nil && len(dates) == 0 {
				return err
			}

			rows := make([][]string, len(dates))
			for i, d := range dates {
				rows[i] = []string{strconv.Itoa(i + 1), d.String()}
			}
			if err := writeTable(cmd.OutOrStdout(), []string{"#", "DATE"}, rows); err != nil {
				return err
			}
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning(fmt.Sprintf("Stopped after %d dates", len(dates))))
			}
			return nil
		},
	}
	cmd.Flags().String("until", "", "last month to include (YYYY-MM), default current month")
	cmd.Flags().Int("limit", 100, "maximum number of dates to show")
	return cmd
}
