package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"recurring/internal/amqp"
	"recurring/internal/core"
	"recurring/internal/log"
	"recurring/internal/storage/memory"
)

var (
	fixedNow  = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
	testScope = core.Scope{UserID: "user-1", DefaultAccountID: "acc-default"}
	errBroken = errors.New("disk on fire")
)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("occ-%d", n.Add(1))
	}
}

func testOptions(extra ...MaterializerOption) []MaterializerOption {
	opts := []MaterializerOption{
		WithClock(func() time.Time { return fixedNow }),
		WithIDGenerator(sequentialIDs()),
		WithLogger(log.Discard()),
	}
	return append(opts, extra...)
}

func newTemplate(id string, rule core.Rule, start core.Date) core.Template {
	return core.Template{
		ID:     id,
		UserID: testScope.UserID,
		FieldValues: core.FieldValues{
			Name:      "Rent",
			Amount:    core.MoneyFromCents(120000),
			Direction: core.Expense,
		},
		StartDate: start,
		Rule:      rule,
		Active:    true,
	}
}

func newTestService(t *testing.T, store Store, pub Publisher, extra ...MaterializerOption) *RecurringService {
	t.Helper()
	return NewRecurringService(store, store, pub, testOptions(extra...)...)
}

func seedTemplate(t *testing.T, store TemplateStore, tmpl core.Template) {
	t.Helper()
	require.NoError(t, store.CreateTemplate(context.Background(), tmpl))
}

func dates(occs []core.Occurrence) []string {
	out := make([]string, len(occs))
	for i, o := range occs {
		out[i] = o.Date.String()
	}
	return out
}

func listDates(t *testing.T, store OccurrenceStore) []string {
	t.Helper()
	occs, err := store.ListOccurrences(context.Background(), testScope.UserID, core.Date{}, core.Date{})
	require.NoError(t, err)
	return dates(occs)
}

var (
	monthly = core.Rule{Unit: core.Monthly, Interval: 1}
	weekly  = core.Rule{Unit: core.Weekly, Interval: 1}
	daily   = core.Rule{Unit: core.Daily, Interval: 1}
)

// failingStore wraps the memory store and fails the named operations.
type failingStore struct {
	*memory.Store
	mu    sync.Mutex
	fail  map[string]bool
	calls int
}

func newFailingStore(ops ...string) *failingStore {
	f := &failingStore{Store: memory.New(), fail: make(map[string]bool)}
	for _, op := range ops {
		f.fail[op] = true
	}
	return f
}

func (f *failingStore) check(op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail[op] || f.fail["*"] {
		return fmt.Errorf("%s: %w", op, errBroken)
	}
	return nil
}

func (f *failingStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *failingStore) LatestOccurrenceDate(ctx context.Context, templateID string) (core.Date, bool, error) {
	if err := f.check("latest"); err != nil {
		return core.Date{}, false, err
	}
	return f.Store.LatestOccurrenceDate(ctx, templateID)
}

func (f *failingStore) OccurrenceExists(ctx context.Context, templateID string, date core.Date) (bool, error) {
	if err := f.check("exists"); err != nil {
		return false, err
	}
	return f.Store.OccurrenceExists(ctx, templateID, date)
}

func (f *failingStore) InsertOccurrences(ctx context.Context, batch []core.Occurrence) ([]core.Occurrence, error) {
	if err := f.check("insert"); err != nil {
		return nil, err
	}
	return f.Store.InsertOccurrences(ctx, batch)
}

func (f *failingStore) UpdateFutureUnmodified(ctx context.Context, templateID string, from core.Date, fields core.FieldValues) (int, error) {
	if err := f.check("update_future"); err != nil {
		return 0, err
	}
	return f.Store.UpdateFutureUnmodified(ctx, templateID, from, fields)
}

func (f *failingStore) UpdateTemplateFields(ctx context.Context, id string, fields core.FieldValues) error {
	if err := f.check("update_template"); err != nil {
		return err
	}
	return f.Store.UpdateTemplateFields(ctx, id, fields)
}

// recordingPublisher keeps every message it is asked to publish.
type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.OccurrencesGeneratedMessage
	err  error
}

func (p *recordingPublisher) PublishOccurrencesGenerated(_ context.Context, msg *amqp.OccurrencesGeneratedMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recordingPublisher) Messages() []*amqp.OccurrencesGeneratedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.OccurrencesGeneratedMessage(nil), p.msgs...)
}

func testOptionsLogger() *log.Logger {
	return log.Discard()
}
