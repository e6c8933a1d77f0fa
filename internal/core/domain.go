package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type (
	// Expense is a single recorded expense. UserID never changes after creation.
	Expense struct {
		ID          uuid.UUID
		UserID      uuid.UUID
		Amount      Money
		Category    Category
		Description string
		Date        time.Time
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	// ExpenseInput is a create request as received from a client.
	ExpenseInput struct {
		Amount      string
		Category    string
		Description string
		Date        string
	}
)

func (e Expense) Validate() error {
	if e.UserID == uuid.Nil {
		return Invalid("userId", "missing user identity", ErrInvalidUserID)
	}
	if err := e.Amount.Validate(); err != nil {
		return Invalid("amount", "amount must be greater than 0", err)
	}
	if !e.Category.Valid() {
		return Invalid("category", "invalid category", ErrInvalidCategory)
	}
	if e.Date.IsZero() {
		return Invalid("date", "date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Expense validates the input and builds an expense owned by userID. A missing
// date defaults to now; calendar dates are read in loc.
func (in ExpenseInput) Expense(userID uuid.UUID, now time.Time, loc *time.Location) (Expense, error) {
	amount := strings.TrimSpace(in.Amount)
	category := strings.TrimSpace(in.Category)
	if amount == "" || category == "" {
		return Expense{}, Invalid("", "amount and category are required", ErrValidation)
	}

	cents, err := ParseDecimalToCents(amount)
	if errors.Is(err, ErrAmountPrecision) {
		return Expense{}, Invalid("amount", "amount must have at most 2 decimal places", err)
	}
	if err != nil {
		return Expense{}, Invalid("amount", "amount must be greater than 0", err)
	}

	c, err := ParseCategory(category)
	if err != nil {
		return Expense{}, Invalid("category", "invalid category", err)
	}

	date := now
	if raw := strings.TrimSpace(in.Date); raw != "" {
		date, err = ParseExpenseDate(raw, loc)
		if err != nil {
			return Expense{}, err
		}
	}

	e := Expense{
		UserID:      userID,
		Amount:      Money{Cents: cents},
		Category:    c,
		Description: strings.TrimSpace(in.Description),
		Date:        date,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := e.Validate(); err != nil {
		return Expense{}, err
	}
	return e, nil
}

// ParseExpenseDate accepts RFC 3339 timestamps or YYYY-MM-DD calendar dates.
func ParseExpenseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		return t, nil
	}
	return time.Time{}, Invalid("date", "expected RFC 3339 or YYYY-MM-DD", ErrInvalidDate)
}
