package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"recurring/internal/core"
	"recurring/internal/log"
	"recurring/internal/services"
)

// UserLister finds users that own at least one active template.
type UserLister interface {
	ListActiveUsers(ctx context.Context) ([]string, error)
}

// Pinger is implemented by stores that can report whether they are reachable.
// When the UserLister is also a Pinger, each sweep starts with a health check.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Generator materializes templates; *services.RecurringService satisfies it.
type Generator interface {
	ListTemplates(ctx context.Context, userID string) ([]core.Template, error)
	Materialize(ctx context.Context, templateID string, horizon core.Date, scope core.Scope) (services.Result, error)
}

// Options tune a GenerationWorker.
type Options struct {
	LookaheadMonths  int
	Concurrency      int
	DefaultAccountID string
}

// Summary totals one sweep over all users.
type Summary struct {
	TraceID    string
	Horizon    core.Date
	Users      int
	Templates  int
	Generated  int
	Failed     int
	// Backlogged counts templates that hit the step limit and still have
	// dates to generate.
	Backlogged int
}

// GenerationWorker keeps every active template materialized up to a rolling
// horizon.
type GenerationWorker struct {
	users     UserLister
	generator Generator
	opts      Options
	logger    *log.Logger
}

func NewGenerationWorker(users UserLister, generator Generator, opts Options, logger *log.Logger) *GenerationWorker {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.LookaheadMonths < 0 {
		opts.LookaheadMonths = 0
	}
	if logger == nil {
		logger = log.Default(log.ComponentWorker)
	}
	return &GenerationWorker{
		users:     users,
		generator: generator,
		opts:      opts,
		logger:    logger,
	}
}

// Horizon returns the last day of the month lookahead months after now.
func Horizon(now time.Time, lookahead int) core.Date {
	first := core.AddMonthsClamped(core.NewDate(now.Year(), int(now.Month()), 1), lookahead, 1)
	return core.EndOfMonth(first.Year(), first.Month())
}

type job struct {
	scope      core.Scope
	templateID string
}

// RunOnce sweeps all users. Per-template failures are logged and counted;
// only failing to list users is returned as an error.
func (w *GenerationWorker) RunOnce(ctx context.Context, now time.Time) (Summary, error) {
	started := time.Now()
	summary := Summary{Horizon: Horizon(now, w.opts.LookaheadMonths)}
	ctx = log.WithTraceID(ctx, log.NewTraceID("sweep"), w.logger)
	logger := log.FromContext(ctx, w.logger)
	summary.TraceID = log.TraceID(ctx)

	if p, ok := w.users.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return summary, fmt.Errorf("store health check: %w", err)
		}
	}

	users, err := w.users.ListActiveUsers(ctx)
	if err != nil {
		return summary, fmt.Errorf("list active users: %w", err)
	}
	summary.Users = len(users)

	var jobs []job
	for _, u := range users {
		templates, err := w.generator.ListTemplates(ctx, u)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to list templates", log.FieldUserID, u, log.FieldError, err)
			summary.Failed++
			continue
		}
		scope := core.Scope{UserID: u, DefaultAccountID: w.opts.DefaultAccountID}
		for _, t := range templates {
			jobs = append(jobs, job{scope: scope, templateID: t.ID})
		}
	}
	summary.Templates = len(jobs)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.Concurrency)
	for _, j := range jobs {
		g.Go(func() error {
			jctx := log.NewContext(gctx, logger.With(log.FieldUserID, j.scope.UserID))
			res, err := w.generator.Materialize(jctx, j.templateID, summary.Horizon, j.scope)

			mu.Lock()
			defer mu.Unlock()
			summary.Generated += res.InsertedCount()
			if errors.Is(err, core.ErrStepLimitExceeded) {
				summary.Backlogged++
				logger.WarnContext(ctx, "Template backlog exceeds one pass, continuing next sweep",
					log.FieldTemplateID, j.templateID,
					log.FieldInserted, res.InsertedCount())
				return nil
			}
			if err != nil {
				summary.Failed++
				logger.ErrorContext(ctx, "Failed to materialize template",
					log.NewFields().
						WithOperation(log.OpMaterialize).
						WithTemplate(j.templateID, j.scope.UserID).
						WithError(err).
						ToSlice()...)
				return nil
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return summary, err
	}
	if err := ctx.Err(); err != nil {
		return summary, err
	}

	logger.InfoContext(ctx, "Generation sweep complete",
		log.NewFields().
			WithOperation(log.OpSweep).
			With(log.FieldHorizon, summary.Horizon.String()).
			With("users", summary.Users).
			With("templates", summary.Templates).
			With(log.FieldInserted, summary.Generated).
			With("failed", summary.Failed).
			With("backlogged", summary.Backlogged).
			With(log.FieldDuration, time.Since(started).Milliseconds()).
			ToSlice()...)
	return summary, nil
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (w *GenerationWorker) Run(ctx context.Context, interval time.Duration) {
	w.sweep(ctx, time.Now())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Generation worker stopped", "reason", ctx.Err())
			return
		case now := <-ticker.C:
			w.sweep(ctx, now)
			w.logger.Debug("Next sweep scheduled", "next_check", now.Add(interval).Format("15:04:05"))
		}
	}
}

func (w *GenerationWorker) sweep(ctx context.Context, now time.Time) {
	if _, err := w.RunOnce(ctx, now); err != nil {
		w.logger.ErrorContext(ctx, "Generation sweep failed", log.FieldError, err)
	}
}
