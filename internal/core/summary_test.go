package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeSummaryZeroFills(t *testing.T) {
	out := NormalizeSummary([]CategoryGroup{{Label: "Food", Total: Money{Cents: 10000}, Count: 2}})

	require.Len(t, out, 5)
	assert.Equal(t, CategorySummary{Category: Food, Total: Money{Cents: 10000}, Count: 2}, out[0])
	for i, c := range []Category{Travel, Entertainment, Bills, Others} {
		assert.Equal(t, CategorySummary{Category: c}, out[i+1])
	}
}

func TestNormalizeSummaryOrderIsFixed(t *testing.T) {
	// Groups arrive sorted by total, the way the store returns them.
	out := NormalizeSummary([]CategoryGroup{
		{Label: "Others", Total: Money{Cents: 900}, Count: 9},
		{Label: "Bills", Total: Money{Cents: 500}, Count: 1},
		{Label: "Travel", Total: Money{Cents: 100}, Count: 1},
	})

	require.Len(t, out, len(Categories))
	for i, c := range Categories {
		assert.Equal(t, c, out[i].Category)
	}
	assert.Equal(t, int64(100), out[1].Total.Cents)
	assert.Equal(t, int64(500), out[3].Total.Cents)
	assert.Equal(t, int64(9), out[4].Count)
}

func TestNormalizeSummaryIgnoresUnknownLabels(t *testing.T) {
	out := NormalizeSummary([]CategoryGroup{{Label: "Groceries", Total: Money{Cents: 1}, Count: 1}})
	require.Len(t, out, 5)
	for _, e := range out {
		assert.Zero(t, e.Count)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(Aggregate{})
	require.Len(t, s.Categories, 5)
	assert.Zero(t, s.Total.Cents)
	assert.Zero(t, s.Count)
}
