package http

import (
	"net/http"

	"xpense/internal/auth"
	"xpense/internal/core"
	applog "xpense/internal/log"
)

// callerID returns the verified user. Routes reaching here passed the auth
// middleware, so a missing id is a wiring fault.
func callerID(r *http.Request) (string, error) {
	id, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return "", core.ErrUnauthorized
	}
	return id, nil
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, r, "Authentication required", err)
		return
	}

	expenses, err := s.api.ListExpenses(r.Context(), userID, ParseQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, "Error fetching expenses", err)
		return
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Expenses listed",
		applog.FieldUserID, userID,
		"count", len(expenses))

	NewJSONResponse().Body(listResponse{Expenses: toExpenseItems(expenses)}).Write(w)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, r, "Authentication required", err)
		return
	}

	summary, err := s.api.Summary(r.Context(), userID, ParseQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, "Error fetching expense summary", err)
		return
	}

	NewJSONResponse().Body(toSummaryResponse(summary)).Write(w)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, r, "Authentication required", err)
		return
	}

	d, err := s.api.Dashboard(r.Context(), userID, ParseQuery(r.URL.Query()))
	if err != nil {
		writeError(w, r, "Error fetching dashboard", err)
		return
	}

	NewJSONResponse().Body(dashboardResponse{
		Expenses:        toExpenseItems(d.Expenses),
		summaryResponse: toSummaryResponse(d.Summary),
	}).Write(w)
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	userID, err := callerID(r)
	if err != nil {
		writeError(w, r, "Authentication required", err)
		return
	}

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, r, "Invalid request body", core.Invalid("", "invalid request body", err))
		return
	}

	e, err := s.api.AddExpense(r.Context(), userID, core.ExpenseInput{
		Amount:      p.Get("amount"),
		Category:    p.Get("category"),
		Description: p.Get("description"),
		Date:        p.Get("date"),
	})
	if err != nil {
		writeError(w, r, "Error adding expense", err)
		return
	}

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(createdResponse{
			Message: "Expense added successfully",
			Expense: createdExpense{
				ID:          e.ID.String(),
				Amount:      e.Amount,
				Category:    e.Category.String(),
				Description: e.Description,
				Date:        e.Date.UTC(),
			},
		}).
		Write(w)
}
