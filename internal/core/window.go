package core

import (
	"fmt"
	"strings"
	"time"
)

// Period is a relative time window keyword anchored to "now".
type Period string

const (
	PeriodAll   Period = "all"
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

// ParsePeriod accepts the filter keywords. Empty means PeriodAll.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	default:
		return "", Invalid("filter", fmt.Sprintf("unknown filter %q", s), ErrInvalidPeriod)
	}
}

// Window is an interval with inclusive, optional bounds.
type Window struct {
	Start *time.Time
	End   *time.Time
}

// IsZero reports whether the window constrains nothing.
func (w Window) IsZero() bool {
	return w.Start == nil && w.End == nil
}

// Contains reports whether t falls inside the window, bounds included.
func (w Window) Contains(t time.Time) bool {
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && t.After(*w.End) {
		return false
	}
	return true
}

// DateRange is an explicit pair of calendar days, both inclusive.
type DateRange struct {
	From time.Time
	To   time.Time
}

const dateLayout = "2006-01-02"

// ParseDateRange parses YYYY-MM-DD bounds in loc. It returns nil without error
// when either bound is missing, so callers fall back to the period keyword.
func ParseDateRange(start, end string, loc *time.Location) (*DateRange, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" || end == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	from, err := time.ParseInLocation(dateLayout, start, loc)
	if err != nil {
		return nil, Invalid("startDate", "expected YYYY-MM-DD", ErrInvalidDate)
	}
	to, err := time.ParseInLocation(dateLayout, end, loc)
	if err != nil {
		return nil, Invalid("endDate", "expected YYYY-MM-DD", ErrInvalidDate)
	}
	if from.After(to) {
		return nil, Invalid("startDate", "must not be after endDate", ErrInvalidDate)
	}
	return &DateRange{From: from, To: to}, nil
}

// ResolveWindow maps a period or an explicit range onto a concrete window.
// Boundaries are computed in ref's location. An explicit range wins over
// the period.
func ResolveWindow(p Period, r *DateRange, ref time.Time) Window {
	if r != nil {
		start := startOfDay(r.From)
		end := endOfDay(r.To)
		return Window{Start: &start, End: &end}
	}

	switch p {
	case PeriodDay:
		start := startOfDay(ref)
		end := endOfDay(ref)
		return Window{Start: &start, End: &end}
	case PeriodWeek:
		// Weeks begin on Sunday (weekday 0).
		start := startOfDay(ref.AddDate(0, 0, -int(ref.Weekday())))
		return Window{Start: &start}
	case PeriodMonth:
		start := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
		return Window{Start: &start}
	default:
		return Window{}
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay is the last millisecond of t's calendar day.
func endOfDay(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, t.Location())
	return next.Add(-time.Millisecond)
}

// Resolver turns request parameters into windows against a clock and location.
type Resolver struct {
	Location *time.Location
	Now      func() time.Time
}

// NewResolver returns a Resolver on the wall clock. A nil loc means time.Local.
func NewResolver(loc *time.Location) Resolver {
	if loc == nil {
		loc = time.Local
	}
	return Resolver{Location: loc, Now: time.Now}
}

// Resolve validates the keyword and range, then resolves the window at now.
func (r Resolver) Resolve(period, startDate, endDate string) (Window, error) {
	p, err := ParsePeriod(period)
	if err != nil {
		return Window{}, err
	}
	rng, err := ParseDateRange(startDate, endDate, r.location())
	if err != nil {
		return Window{}, err
	}
	return ResolveWindow(p, rng, r.now().In(r.location())), nil
}

func (r Resolver) location() *time.Location {
	if r.Location == nil {
		return time.Local
	}
	return r.Location
}

func (r Resolver) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}
