package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"recurring/internal/cli"
	"recurring/internal/core"
)

func occurrencesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "occurrences",
		Aliases: []string{"occ"},
		Short:   "Inspect and change generated occurrences",
	}
	cmd.AddCommand(occurrencesListCmd())
	cmd.AddCommand(occurrencesEditCmd())
	cmd.AddCommand(occurrencesDeleteCmd())
	cmd.AddCommand(occurrencesDeleteFromCmd())
	return cmd
}

func occurrencesListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the occurrences of a month",
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			month, _ := cmd.Flags().GetString("month")
			first, last, err := monthRange(month, time.Now())
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			occs, err := a.svc.ListOccurrences(cmd.Context(), user, first, last)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(occs) == 0 {
				fmt.Fprintln(out, cli.FormatInfo("No occurrences in "+first.Format("2006-01")))
				return nil
			}

			fmt.Fprintln(out, cli.FormatTitle("Occurrences "+first.Format("January 2006")))
			if err := writeTable(out,
				[]string{"DATE", "NAME", "DIRECTION", "AMOUNT", "ACCOUNT", "TEMPLATE", "ID", ""},
				occurrenceRows(occs)); err != nil {
				return err
			}

			s := core.Summarize(first.Year(), first.Month(), occs)
			fmt.Fprintln(out, cli.SubtleStyle.Render(fmt.Sprintf("%d occurrences  income %s  expense %s  net %s",
				s.Count, s.Income, s.Expense, s.Net())))
			return nil
		},
	}
	cmd.Flags().String("user", "", "owner user id")
	cmd.Flags().String("month", "", "month to list (YYYY-MM), default current month")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func occurrencesEditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <occurrence-id>",
		Short: "Edit a single occurrence",
		Long: `Edit a single occurrence. The row is marked as edited and later
template edits no longer change it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			current, err := a.repo.GetOccurrence(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fields, err := applyFieldFlags(cmd, current.FieldValues)
			if err != nil {
				return err
			}
			updated, err := a.svc.EditOccurrence(cmd.Context(), args[0], fields)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated %s on %s: %s %s",
				updated.ID, updated.Date, updated.Name, updated.Amount)))
			return nil
		},
	}
	addFieldFlags(cmd)
	return cmd
}

func occurrencesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <occurrence-id>",
		Short: "Delete a single occurrence",
		Long: `Delete a single occurrence. The date stays reserved, so later
materialize runs do not recreate it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.svc.DeleteOccurrence(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted "+args[0]))
			return nil
		},
	}
}

func occurrencesDeleteFromCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-from <template-id>",
		Short: "Delete every occurrence of a template from a date on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromRaw, _ := cmd.Flags().GetString("from")
			deactivate, _ := cmd.Flags().GetBool("deactivate")
			from, err := core.ParseDate(fromRaw)
			if err != nil {
				return fmt.Errorf("invalid --from: %w", err)
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			n, err := a.svc.DeleteFrom(cmd.Context(), args[0], from, deactivate)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf("Deleted %d occurrences from %s", n, from)
			if deactivate {
				msg += " and deactivated the template"
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(msg))
			return nil
		},
	}
	cmd.Flags().String("from", "", "first date to delete (YYYY-MM-DD)")
	cmd.Flags().Bool("deactivate", false, "also stop generating new occurrences")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}
