package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"recurring/internal/cli"
	"recurring/internal/core"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <template-id>",
		Short: "Edit a template and its future occurrences",
		Long: `Edit the fields of a template. Occurrences dated on or after --from
that were not edited by hand are rewritten with the new values.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromRaw, _ := cmd.Flags().GetString("from")
			from := core.DateOf(time.Now())
			if fromRaw != "" {
				d, err := core.ParseDate(fromRaw)
				if err != nil {
					return fmt.Errorf("invalid --from: %w", err)
				}
				from = d
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
			fields, err := applyFieldFlags(cmd, tmpl.Fields())
			if err != nil {
				return err
			}
			n, err := a.svc.EditTemplate(cmd.Context(), args[0], from, fields)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated template %s and %d occurrences from %s",
				args[0], n, from)))
			return nil
		},
	}
	cmd.Flags().String("from", "", "first occurrence date to update (YYYY-MM-DD), default today")
	addFieldFlags(cmd)
	return cmd
}
