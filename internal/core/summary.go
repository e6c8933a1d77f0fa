package core

// CategoryGroup is one row of a grouped aggregate as the store produced it.
type CategoryGroup struct {
	Label string
	Total Money
	Count int64
}

// Aggregate is the raw grouped result plus the combined total.
type Aggregate struct {
	Groups []CategoryGroup
	Total  Money
	Count  int64
}

// CategorySummary is one normalized summary entry.
type CategorySummary struct {
	Category Category
	Total    Money
	Count    int64
}

// Summary is the normalized aggregate returned to callers.
type Summary struct {
	Categories []CategorySummary
	Total      Money
	Count      int64
}

// Dashboard pairs a listing with its summary for one query.
type Dashboard struct {
	Expenses []Expense
	Summary  Summary
}

// NormalizeSummary emits exactly one entry per category in Categories order,
// zero-filling the ones with no group.
func NormalizeSummary(groups []CategoryGroup) []CategorySummary {
	byLabel := make(map[string]CategoryGroup, len(groups))
	for _, g := range groups {
		byLabel[g.Label] = g
	}

	out := make([]CategorySummary, 0, len(Categories))
	for _, c := range Categories {
		entry := CategorySummary{Category: c}
		if g, ok := byLabel[c.String()]; ok {
			entry.Total = g.Total
			entry.Count = g.Count
		}
		out = append(out, entry)
	}
	return out
}

// Summarize normalizes an aggregate.
func Summarize(a Aggregate) Summary {
	return Summary{
		Categories: NormalizeSummary(a.Groups),
		Total:      a.Total,
		Count:      a.Count,
	}
}
