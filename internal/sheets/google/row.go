package google

import (
	"time"

	"xpense/internal/core"
)

// RowHeader names the columns expenseRow fills.
var RowHeader = []any{"Date", "Category", "Description", "Amount", "ID", "User"}

// expenseRow lays out e in RowHeader order. The amount is a plain decimal so
// USER_ENTERED parses it as a number.
func expenseRow(e core.Expense, loc *time.Location) []any {
	return []any{
		e.Date.In(loc).Format("2006-01-02"),
		e.Category.String(),
		e.Description,
		e.Amount.String(),
		e.ID.String(),
		e.UserID.String(),
	}
}
