package sheets

import (
	"context"

	"xpense/internal/core"
)

// ExpenseWriter exports a stored expense as one spreadsheet row.
type ExpenseWriter interface {
	Append(ctx context.Context, e core.Expense) (rowRef string, err error)
}
