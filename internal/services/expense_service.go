package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"xpense/internal/cache"
	"xpense/internal/core"
)

// ExpenseStore is the record store the service queries.
type ExpenseStore interface {
	Insert(ctx context.Context, e core.Expense) error
	List(ctx context.Context, f core.Filter) ([]core.Expense, error)
	Aggregate(ctx context.Context, f core.Filter) (core.Aggregate, error)
}

// EventPublisher announces created expenses.
type EventPublisher interface {
	PublishExpenseCreated(ctx context.Context, e core.Expense) error
}

// Options tune an ExpenseService. Zero values select the defaults.
type Options struct {
	Resolver     core.Resolver
	StoreTimeout time.Duration
	CacheSize    int
	CacheTTL     time.Duration
	Now          func() time.Time
}

const (
	defaultStoreTimeout = 5 * time.Second
	defaultCacheSize    = 200
	defaultCacheTTL     = 5 * time.Minute
)

// ExpenseService runs expense queries against the store and records new
// expenses, publishing an event for each one.
type ExpenseService struct {
	store     ExpenseStore
	publisher EventPublisher
	resolver  core.Resolver
	timeout   time.Duration
	now       func() time.Time

	lists     *cache.LRUCache[cachedList]
	summaries *cache.LRUCache[cachedSummary]

	// generations counts creates per user. A read caches its result only if
	// no create for the same user landed while it was in flight.
	genMu       sync.Mutex
	generations map[uuid.UUID]uint64
}

type cachedList struct {
	filter   core.Filter
	expenses []core.Expense
}

type cachedSummary struct {
	filter  core.Filter
	summary core.Summary
}

// NewExpenseService wires the service. publisher may be nil, in which case
// events are skipped.
func NewExpenseService(store ExpenseStore, publisher EventPublisher, opts Options) *ExpenseService {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = defaultStoreTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Resolver.Location == nil {
		opts.Resolver = core.NewResolver(nil)
	}
	if opts.Resolver.Now == nil {
		opts.Resolver.Now = opts.Now
	}

	return &ExpenseService{
		store:     store,
		publisher: publisher,
		resolver:  opts.Resolver,
		timeout:   opts.StoreTimeout,
		now:       opts.Now,
		lists:       cache.NewLRUCache[cachedList](opts.CacheSize, opts.CacheTTL),
		summaries:   cache.NewLRUCache[cachedSummary](opts.CacheSize, opts.CacheTTL),
		generations: make(map[uuid.UUID]uint64),
	}
}

// Caches exposes the result caches so the caller can register them for cleanup.
func (s *ExpenseService) Caches() []cache.Cleaner {
	return []cache.Cleaner{s.lists, s.summaries}
}

// filter resolves q for userID. Nothing touches the store until it succeeds.
func (s *ExpenseService) filter(userID string, q core.Query) (core.Filter, error) {
	window, err := s.resolver.Resolve(q.Period, q.StartDate, q.EndDate)
	if err != nil {
		return core.Filter{}, err
	}
	return core.BuildFilter(userID, q.Category, window)
}

// ListExpenses returns the caller's matching expenses, most recent first.
func (s *ExpenseService) ListExpenses(ctx context.Context, userID string, q core.Query) ([]core.Expense, error) {
	f, err := s.filter(userID, q)
	if err != nil {
		return nil, err
	}
	return s.list(ctx, f)
}

func (s *ExpenseService) list(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	key := f.Key()
	if cached, ok := s.lists.Get(key); ok {
		return cached.expenses, nil
	}
	gen := s.generation(f.UserID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	expenses, err := s.store.List(ctx, f)
	if err != nil {
		return nil, core.StoreFailure("list", err)
	}
	if expenses == nil {
		expenses = []core.Expense{}
	}

	s.cacheIfCurrent(f.UserID, gen, func() {
		s.lists.Set(key, cachedList{filter: f, expenses: expenses})
	})
	return expenses, nil
}

// Summary returns per-category totals for the caller's matching expenses,
// one entry per category in fixed order.
func (s *ExpenseService) Summary(ctx context.Context, userID string, q core.Query) (core.Summary, error) {
	f, err := s.filter(userID, q)
	if err != nil {
		return core.Summary{}, err
	}
	return s.summary(ctx, f)
}

func (s *ExpenseService) summary(ctx context.Context, f core.Filter) (core.Summary, error) {
	key := f.Key()
	if cached, ok := s.summaries.Get(key); ok {
		return cached.summary, nil
	}
	gen := s.generation(f.UserID)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	agg, err := s.store.Aggregate(ctx, f)
	if err != nil {
		return core.Summary{}, core.StoreFailure("aggregate", err)
	}

	summary := core.Summarize(agg)
	s.cacheIfCurrent(f.UserID, gen, func() {
		s.summaries.Set(key, cachedSummary{filter: f, summary: summary})
	})
	return summary, nil
}

func (s *ExpenseService) generation(userID uuid.UUID) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generations[userID]
}

func (s *ExpenseService) cacheIfCurrent(userID uuid.UUID, gen uint64, set func()) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generations[userID] == gen {
		set()
	}
}

// invalidate drops every cached result that e belongs to and fences off
// reads of userID that started before it was stored.
func (s *ExpenseService) invalidate(e core.Expense) int {
	s.genMu.Lock()
	defer s.genMu.Unlock()

	s.generations[e.UserID]++
	dropped := s.lists.DeleteFunc(func(_ string, c cachedList) bool { return c.filter.Matches(e) })
	dropped += s.summaries.DeleteFunc(func(_ string, c cachedSummary) bool { return c.filter.Matches(e) })
	return dropped
}

// Dashboard returns the listing and the summary for one query, fetched concurrently.
func (s *ExpenseService) Dashboard(ctx context.Context, userID string, q core.Query) (core.Dashboard, error) {
	f, err := s.filter(userID, q)
	if err != nil {
		return core.Dashboard{}, err
	}

	var d core.Dashboard
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		expenses, err := s.list(gctx, f)
		d.Expenses = expenses
		return err
	})
	g.Go(func() error {
		summary, err := s.summary(gctx, f)
		d.Summary = summary
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, err
	}
	return d, nil
}

// AddExpense validates in, stores it for userID and publishes the creation.
// A publish failure is logged and does not fail the call.
func (s *ExpenseService) AddExpense(ctx context.Context, userID string, in core.ExpenseInput) (core.Expense, error) {
	uid, err := core.ParseUserID(userID)
	if err != nil {
		return core.Expense{}, err
	}

	now := s.now()
	e, err := in.Expense(uid, now, s.resolver.Location)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = uuid.New()

	insertCtx, cancel := context.WithTimeout(ctx, s.timeout)
	err = s.store.Insert(insertCtx, e)
	cancel()
	if err != nil {
		return core.Expense{}, core.StoreFailure("insert", err)
	}

	dropped := s.invalidate(e)

	slog.InfoContext(ctx, "Expense created",
		"id", e.ID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category.String(),
		"cache_entries_dropped", dropped)

	if s.publisher != nil {
		if err := s.publisher.PublishExpenseCreated(ctx, e); err != nil {
			slog.ErrorContext(ctx, "Failed to publish expense created event", "id", e.ID, "error", err)
		}
	} else {
		slog.DebugContext(ctx, "No event publisher configured, skipping expense created event", "id", e.ID)
	}

	return e, nil
}

// Close releases the publisher when it is closable. The store belongs to the caller.
func (s *ExpenseService) Close() error {
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			return fmt.Errorf("close publisher: %w", err)
		}
	}
	return nil
}
