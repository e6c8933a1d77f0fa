package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"xpense/internal/core"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the expense record store. The process entry point owns
// its lifecycle; nothing in this package keeps a global handle.
type SQLiteRepository struct {
	db *sql.DB
}

const dsnPragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+dsnPragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Insert stores a new expense.
func (r *SQLiteRepository) Insert(ctx context.Context, e core.Expense) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, amount_cents, category, description, occurred_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(),
		e.UserID.String(),
		e.Amount.Cents,
		e.Category.String(),
		e.Description,
		e.Date.UnixMilli(),
		e.CreatedAt.UnixMilli(),
		e.UpdatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	slog.InfoContext(ctx, "Expense saved to SQLite",
		"id", e.ID,
		"amount_cents", e.Amount.Cents,
		"category", e.Category.String())

	return nil
}

// Get returns one expense by id, or core.ErrNotFound.
func (r *SQLiteRepository) Get(ctx context.Context, id uuid.UUID) (core.Expense, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE id = ?`, id.String())
	e, err := scanExpense(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// List returns the expenses matching f, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, f core.Filter) ([]core.Expense, error) {
	where, args := whereClause(f)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses `+where+
			` ORDER BY occurred_at DESC, created_at DESC, id DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := make([]core.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expenses: %w", err)
	}
	return expenses, nil
}

// Aggregate groups the expenses matching f by category and computes the
// combined total. Both queries run concurrently against the same predicate.
func (r *SQLiteRepository) Aggregate(ctx context.Context, f core.Filter) (core.Aggregate, error) {
	where, args := whereClause(f)

	var (
		groups []core.CategoryGroup
		total  int64
		count  int64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.db.QueryContext(gctx,
			`SELECT category, COALESCE(SUM(amount_cents), 0), COUNT(*) FROM expenses `+where+
				` GROUP BY category ORDER BY 2 DESC`, args...)
		if err != nil {
			return fmt.Errorf("category totals: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var grp core.CategoryGroup
			if err := rows.Scan(&grp.Label, &grp.Total.Cents, &grp.Count); err != nil {
				return fmt.Errorf("scan category total: %w", err)
			}
			groups = append(groups, grp)
		}
		return rows.Err()
	})
	g.Go(func() error {
		err := r.db.QueryRowContext(gctx,
			`SELECT COALESCE(SUM(amount_cents), 0), COUNT(*) FROM expenses `+where, args...).
			Scan(&total, &count)
		if err != nil {
			return fmt.Errorf("combined total: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return core.Aggregate{}, fmt.Errorf("aggregate expenses: %w", err)
	}

	return core.Aggregate{
		Groups: groups,
		Total:  core.Money{Cents: total},
		Count:  count,
	}, nil
}

// PendingSync returns up to limit expenses not yet exported, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Expense, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+expenseColumns+` FROM expenses WHERE synced_at IS NULL ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("get pending sync expenses: %w", err)
	}
	defer rows.Close()

	var expenses []core.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

// MarkSynced records that an expense was exported at at.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE expenses SET synced_at = ? WHERE id = ?`, at.UnixMilli(), id.String())
	if err != nil {
		return fmt.Errorf("mark expense synced: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("mark expense synced %s: %w", id, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Expense marked as synced", "id", id)
	return nil
}

// IsSynced reports whether the expense has already been exported.
func (r *SQLiteRepository) IsSynced(ctx context.Context, id uuid.UUID) (bool, error) {
	var syncedAt sql.NullInt64
	err := r.db.QueryRowContext(ctx, `SELECT synced_at FROM expenses WHERE id = ?`, id.String()).Scan(&syncedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("expense %s: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return false, fmt.Errorf("get sync state: %w", err)
	}
	return syncedAt.Valid, nil
}

const expenseColumns = `id, user_id, amount_cents, category, description, occurred_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanExpense(row rowScanner) (core.Expense, error) {
	var (
		id, userID, category, description string
		cents, occurred, created, updated int64
	)
	if err := row.Scan(&id, &userID, &cents, &category, &description, &occurred, &created, &updated); err != nil {
		return core.Expense{}, err
	}

	eid, err := uuid.Parse(id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode id %q: %w", id, err)
	}
	uid, err := uuid.Parse(userID)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode user id %q: %w", userID, err)
	}
	c, err := core.ParseCategory(category)
	if err != nil {
		return core.Expense{}, fmt.Errorf("decode category %q: %w", category, err)
	}

	return core.Expense{
		ID:          eid,
		UserID:      uid,
		Amount:      core.Money{Cents: cents},
		Category:    c,
		Description: description,
		Date:        time.UnixMilli(occurred).UTC(),
		CreatedAt:   time.UnixMilli(created).UTC(),
		UpdatedAt:   time.UnixMilli(updated).UTC(),
	}, nil
}

// whereClause translates a filter into the predicate shared by List and Aggregate.
func whereClause(f core.Filter) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{f.UserID.String()}

	if f.Category != nil {
		conds = append(conds, "category = ?")
		args = append(args, f.Category.String())
	}
	if f.Window.Start != nil {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, f.Window.Start.UnixMilli())
	}
	if f.Window.End != nil {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, f.Window.End.UnixMilli())
	}

	return "WHERE " + strings.Join(conds, " AND "), args
}
