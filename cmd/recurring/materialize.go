package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"recurring/internal/cli"
	"recurring/internal/services"
)

func materializeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "materialize",
		Short: "Generate occurrences up to the end of a month",
		Long: `Generate the missing occurrences of a user's active templates up to
the last day of --month. Dates that already hold a row, including rows
deleted by the user, are skipped.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			user, _ := cmd.Flags().GetString("user")
			month, _ := cmd.Flags().GetString("month")
			templateID, _ := cmd.Flags().GetString("template")
			account, _ := cmd.Flags().GetString("account")

			_, horizon, err := monthRange(month, time.Now())
			if err != nil {
				return err
			}

			a, err := openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			scope := a.scope(user, account)

			var results []services.Result
			if templateID != "" {
				var res services.Result
				res, err = a.svc.Materialize(cmd.Context(), templateID, horizon, scope)
				if err != nil && res.Status != services.StatusPartial {
					return err
				}
				results = append(results, res)
			} else {
				results, err = a.svc.MaterializeUser(cmd.Context(), scope, horizon)
				if err != nil && len(results) == 0 {
					return err
				}
			}

			total := 0
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				total += r.InsertedCount()
				rows = append(rows, []string{
					r.TemplateID, string(r.Status),
					strconv.Itoa(r.Candidates), strconv.Itoa(r.Skipped), strconv.Itoa(r.InsertedCount()),
				})
			}
			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				if werr := writeTable(out, []string{"TEMPLATE", "STATUS", "CANDIDATES", "SKIPPED", "INSERTED"}, rows); werr != nil {
					return werr
				}
			}
			if total == 0 {
				fmt.Fprintln(out, cli.FormatInfo("Everything up to "+horizon.String()+" is already generated"))
			} else {
				fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Generated %d occurrences up to %s", total, horizon)))
			}
			if err != nil {
				fmt.Fprintln(out, cli.FormatWarning("Not everything was generated; run materialize again to continue:"))
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("user", "", "user whose templates are materialized")
	cmd.Flags().String("month", "", "horizon month (YYYY-MM), default current month")
	cmd.Flags().String("template", "", "only materialize this template")
	cmd.Flags().String("account", "", "default account for templates without one")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
