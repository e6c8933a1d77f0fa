package http

import (
	"time"

	"xpense/internal/core"
)

type expenseItem struct {
	ID          string     `json:"id"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        time.Time  `json:"date"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type listResponse struct {
	Expenses []expenseItem `json:"expenses"`
}

type summaryEntry struct {
	Category string     `json:"category"`
	Total    core.Money `json:"total"`
	Count    int64      `json:"count"`
}

type summaryResponse struct {
	Summary []summaryEntry `json:"summary"`
	Total   core.Money     `json:"total"`
	Count   int64          `json:"count"`
}

type dashboardResponse struct {
	Expenses []expenseItem `json:"expenses"`
	summaryResponse
}

type createdExpense struct {
	ID          string     `json:"id"`
	Amount      core.Money `json:"amount"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        time.Time  `json:"date"`
}

type createdResponse struct {
	Message string         `json:"message"`
	Expense createdExpense `json:"expense"`
}

// toExpenseItems projects expenses for clients. The owner is never included.
func toExpenseItems(expenses []core.Expense) []expenseItem {
	items := make([]expenseItem, 0, len(expenses))
	for _, e := range expenses {
		items = append(items, expenseItem{
			ID:          e.ID.String(),
			Amount:      e.Amount,
			Category:    e.Category.String(),
			Description: e.Description,
			Date:        e.Date.UTC(),
			CreatedAt:   e.CreatedAt.UTC(),
			UpdatedAt:   e.UpdatedAt.UTC(),
		})
	}
	return items
}

func toSummaryResponse(s core.Summary) summaryResponse {
	entries := make([]summaryEntry, 0, len(s.Categories))
	for _, c := range s.Categories {
		entries = append(entries, summaryEntry{
			Category: c.Category.String(),
			Total:    c.Total,
			Count:    c.Count,
		})
	}
	return summaryResponse{Summary: entries, Total: s.Total, Count: s.Count}
}
