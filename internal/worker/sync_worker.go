package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"xpense/internal/amqp"
	"xpense/internal/core"
	applog "xpense/internal/log"
	"xpense/internal/sheets"
)

// Store is the part of the expense store the export needs.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (core.Expense, error)
	IsSynced(ctx context.Context, id uuid.UUID) (bool, error)
	PendingSync(ctx context.Context, limit int) ([]core.Expense, error)
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error
}

type Config struct {
	// BatchSize bounds one sweep of unsynced expenses (default: 10)
	BatchSize int
	// Interval between sweeps (default: 30s)
	Interval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize: 10,
		Interval:  30 * time.Second,
	}
}

// SyncWorker exports stored expenses to a spreadsheet. Expense-created events
// trigger an immediate export; a periodic sweep picks up anything an event
// missed.
type SyncWorker struct {
	store  Store
	sheets sheets.ExpenseWriter
	config Config
	now    func() time.Time

	// syncMu serializes exports so an event and a sweep never append the
	// same expense twice.
	syncMu sync.Mutex

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSyncWorker(store Store, writer sheets.ExpenseWriter, config Config) *SyncWorker {
	def := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	return &SyncWorker{
		store:  store,
		sheets: writer,
		config: config,
		now:    time.Now,
	}
}

// HandleExpenseCreated exports the expense named by msg. An expense that no
// longer exists is acknowledged and skipped.
func (w *SyncWorker) HandleExpenseCreated(ctx context.Context, msg *amqp.ExpenseCreatedMessage) error {
	logger := applog.FromContext(ctx)
	logger.InfoContext(ctx, "Processing expense created message",
		applog.FieldExpenseID, msg.ID,
		applog.FieldUserID, msg.UserID)

	expense, err := w.store.Get(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		logger.WarnContext(ctx, "Expense not found, skipping export", applog.FieldExpenseID, msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}

	if _, err := w.syncExpense(ctx, expense); err != nil {
		return fmt.Errorf("sync expense to sheets: %w", err)
	}
	return nil
}

// ProcessPending exports up to one batch of unsynced expenses, oldest first,
// and returns how many were exported. A failing row is logged and left for
// the next sweep.
func (w *SyncWorker) ProcessPending(ctx context.Context) (int, error) {
	pending, err := w.store.PendingSync(ctx, w.config.BatchSize)
	if err != nil {
		return 0, fmt.Errorf("get pending expenses: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	logger := applog.FromContext(ctx)
	logger.InfoContext(ctx, "Processing pending expenses", "count", len(pending))

	synced := 0
	for _, e := range pending {
		if ctx.Err() != nil {
			return synced, ctx.Err()
		}
		ok, err := w.syncExpense(ctx, e)
		if err != nil {
			logger.ErrorContext(ctx, "Failed to sync expense",
				applog.FieldExpenseID, e.ID,
				applog.FieldError, err)
			continue
		}
		if ok {
			synced++
		}
	}
	return synced, nil
}

// syncExpense appends e unless it was already exported, then records the
// export. It reports whether a row was written.
func (w *SyncWorker) syncExpense(ctx context.Context, e core.Expense) (bool, error) {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	done, err := w.store.IsSynced(ctx, e.ID)
	if err != nil {
		return false, fmt.Errorf("check sync state: %w", err)
	}
	if done {
		slog.DebugContext(ctx, "Expense already synced", applog.FieldExpenseID, e.ID)
		return false, nil
	}

	ref, err := w.sheets.Append(ctx, e)
	if err != nil {
		return false, fmt.Errorf("append to sheets: %w", err)
	}

	// The row exists now; a failed mark only means a possible duplicate later.
	if err := w.store.MarkSynced(ctx, e.ID, w.now()); err != nil {
		applog.FromContext(ctx).ErrorContext(ctx, "Failed to mark as synced",
			applog.FieldExpenseID, e.ID,
			applog.FieldError, err)
	}

	applog.FromContext(ctx).InfoContext(ctx, "Successfully synced expense",
		applog.FieldExpenseID, e.ID,
		"sheets_ref", ref,
		applog.FieldAmountCents, e.Amount.Cents,
		applog.FieldCategory, e.Category.String())
	return true, nil
}

// Start runs a sweep immediately and then every Interval until Stop is called
// or ctx ends. It returns an error if the worker is already running.
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("sync worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	go w.runLoop(ctx, stopCh, doneCh)

	applog.FromContext(ctx).InfoContext(ctx, "Sync worker started",
		"interval", w.config.Interval,
		"batch_size", w.config.BatchSize)
	return nil
}

// Stop ends the sweep loop and waits for the current sweep to finish.
func (w *SyncWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.running = false
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync worker stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync worker stop timed out")
		return ctx.Err()
	}
}

func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.sweep(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *SyncWorker) sweep(ctx context.Context) {
	n, err := w.ProcessPending(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Pending sync sweep failed", applog.FieldError, err)
		return
	}
	if n > 0 {
		slog.InfoContext(ctx, "Pending sync sweep completed", "synced", n)
	}
}
