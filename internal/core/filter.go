package core

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Query carries the raw, client-supplied selection parameters. The user is
// never part of it.
type Query struct {
	Period    string
	Category  string
	StartDate string
	EndDate   string
}

// Filter is the predicate shared by the listing and the aggregate.
type Filter struct {
	UserID   uuid.UUID
	Category *Category // nil matches every category
	Window   Window
}

// ParseUserID converts a verified caller identity to a store id.
func ParseUserID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, Invalid("userId", "malformed user identity", ErrInvalidUserID)
	}
	return id, nil
}

// BuildFilter scopes window to userID and, unless category is empty or
// AllCategories, to a single category.
func BuildFilter(userID string, category string, window Window) (Filter, error) {
	uid, err := ParseUserID(userID)
	if err != nil {
		return Filter{}, err
	}

	f := Filter{UserID: uid, Window: window}

	category = strings.TrimSpace(category)
	if category != "" && category != AllCategories {
		c, err := ParseCategory(category)
		if err != nil {
			return Filter{}, Invalid("category", "invalid category", err)
		}
		f.Category = &c
	}
	return f, nil
}

// Key is a stable string for caching results of f.
func (f Filter) Key() string {
	var b strings.Builder
	b.WriteString(f.UserID.String())
	b.WriteByte('|')
	if f.Category != nil {
		b.WriteString(f.Category.String())
	} else {
		b.WriteString(AllCategories)
	}
	b.WriteByte('|')
	if f.Window.Start != nil {
		b.WriteString(strconv.FormatInt(f.Window.Start.UnixMilli(), 10))
	}
	b.WriteByte('|')
	if f.Window.End != nil {
		b.WriteString(strconv.FormatInt(f.Window.End.UnixMilli(), 10))
	}
	return b.String()
}

// Matches applies f to a single expense, comparing dates at the store's
// millisecond resolution.
func (f Filter) Matches(e Expense) bool {
	if e.UserID != f.UserID {
		return false
	}
	if f.Category != nil && e.Category != *f.Category {
		return false
	}
	return f.Window.Contains(e.Date.Truncate(time.Millisecond))
}
