package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"recurring/internal/cli"
	"recurring/internal/config"
	"recurring/internal/core"
	"recurring/internal/log"
	"recurring/internal/services"
	"recurring/internal/storage"
)

type app struct {
	cfg            *config.Config
	logger         *log.Logger
	repo           *storage.SQLiteRepository
	svc            *services.RecurringService
	closePublisher func()
}

func openApp() (*app, error) {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(configFile)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logger, err := cli.SetupLogger(level, cfg.LogFormat, log.ComponentCLI)
	if err != nil {
		return nil, err
	}

	repo, err := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	pub, closePublisher := cli.InitPublisher(logger, cfg)

	return &app{
		cfg:            cfg,
		logger:         logger,
		repo:           repo,
		svc:            cli.NewService(logger, cfg, repo, pub),
		closePublisher: closePublisher,
	}, nil
}

func (a *app) Close() {
	a.closePublisher()
	if err := a.repo.Close(); err != nil {
		a.logger.Warn("Failed to close database", log.FieldError, err)
	}
}

func (a *app) scope(userID, account string) core.Scope {
	if account == "" {
		account = a.cfg.DefaultAccountID
	}
	return core.Scope{UserID: userID, DefaultAccountID: account}
}

func addFieldFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "display name")
	cmd.Flags().String("amount", "", "positive amount, e.g. 1200.50")
	cmd.Flags().String("direction", "", "income or expense")
	cmd.Flags().String("category", "", "category id")
	cmd.Flags().String("account", "", "account id")
	cmd.Flags().String("note", "", "free text note")
}

// applyFieldFlags overlays the field flags the user set onto base.
func applyFieldFlags(cmd *cobra.Command, base core.FieldValues) (core.FieldValues, error) {
	f := base
	flags := cmd.Flags()
	if flags.Changed("name") {
		f.Name, _ = flags.GetString("name")
	}
	if flags.Changed("amount") {
		raw, _ := flags.GetString("amount")
		amount, err := core.ParseMoney(raw)
		if err != nil {
			return f, fmt.Errorf("invalid --amount %q: %w", raw, err)
		}
		f.Amount = amount
	}
	if flags.Changed("direction") {
		raw, _ := flags.GetString("direction")
		d, err := core.ParseDirection(raw)
		if err != nil {
			return f, fmt.Errorf("invalid --direction %q: %w", raw, err)
		}
		f.Direction = d
	}
	if flags.Changed("category") {
		f.CategoryID, _ = flags.GetString("category")
	}
	if flags.Changed("account") {
		f.AccountID, _ = flags.GetString("account")
	}
	if flags.Changed("note") {
		f.Note, _ = flags.GetString("note")
	}
	return f, nil
}

// monthRange parses YYYY-MM, defaulting to the month of now.
func monthRange(month string, now time.Time) (core.Date, core.Date, error) {
	if month == "" {
		month = now.Format("2006-01")
	}
	end, err := core.ParseYearMonth(month)
	if err != nil {
		return core.Date{}, core.Date{}, err
	}
	return core.NewDate(end.Year(), end.Month(), 1), end, nil
}

func optionalDate(raw string) (core.Date, error) {
	if strings.TrimSpace(raw) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(raw)
}

func writeTable(out io.Writer, header []string, rows [][]string) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)

	styled := make([]string, len(header))
	for i, h := range header {
		styled[i] = cli.TableHeaderStyle.Render(h)
	}
	if _, err := fmt.Fprintln(w, strings.Join(styled, "\t")); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return w.Flush()
}

func occurrenceRows(occs []core.Occurrence) [][]string {
	rows := make([][]string, 0, len(occs))
	for _, o := range occs {
		flags := ""
		if o.Modified {
			flags = "edited"
		}
		rows = append(rows, []string{
			o.Date.String(), o.Name, string(o.Direction), o.Amount.String(), o.AccountID, o.TemplateID, o.ID, flags,
		})
	}
	return rows
}
