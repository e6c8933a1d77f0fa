// Package memory is an in-process ExpenseWriter used when no spreadsheet is
// configured. Rows are kept and logged, never exported.
package memory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"xpense/internal/core"
	ports "xpense/internal/sheets"
)

type Store struct {
	mu    sync.Mutex
	items []core.Expense
}

var _ ports.ExpenseWriter = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Append stores the expense and returns a synthetic row reference.
func (s *Store) Append(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	s.items = append(s.items, e)
	ref := fmt.Sprintf("mem:%d", len(s.items))
	s.mu.Unlock()

	slog.InfoContext(ctx, "Expense row recorded in memory",
		"ref", ref,
		"id", e.ID,
		"amount", e.Amount.String(),
		"category", e.Category.String())
	return ref, nil
}

// Rows returns a copy of everything appended so far.
func (s *Store) Rows() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...)
}
