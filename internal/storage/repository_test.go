package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"xpense/internal/core"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo *SQLiteRepository
	ctx  context.Context
	user uuid.UUID
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) SetupTest() {
	repo, err := NewSQLiteRepository(filepath.Join(s.T().TempDir(), "data", "test.db"))
	require.NoError(s.T(), err, "failed to create test database")
	s.repo = repo
	s.ctx = context.Background()
	s.user = uuid.New()
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) insert(user uuid.UUID, cents int64, c core.Category, at time.Time) core.Expense {
	e := core.Expense{
		ID:          uuid.New(),
		UserID:      user,
		Amount:      core.Money{Cents: cents},
		Category:    c,
		Description: c.String() + " expense",
		Date:        at,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	require.NoError(s.T(), s.repo.Insert(s.ctx, e))
	return e
}

func (s *RepositoryTestSuite) filter(category string, w core.Window) core.Filter {
	f, err := core.BuildFilter(s.user.String(), category, w)
	require.NoError(s.T(), err)
	return f
}

func (s *RepositoryTestSuite) TestMigrationsAreIdempotent() {
	path := filepath.Join(s.T().TempDir(), "again.db")
	first, err := NewSQLiteRepository(path)
	require.NoError(s.T(), err)
	require.NoError(s.T(), first.Close())

	second, err := NewSQLiteRepository(path)
	require.NoError(s.T(), err)
	assert.NoError(s.T(), second.Ping(s.ctx))
	second.Close()
}

func (s *RepositoryTestSuite) TestListOrdersByDateDescending() {
	s.insert(s.user, 100, core.Food, time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	s.insert(s.user, 300, core.Food, time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC))
	s.insert(s.user, 200, core.Food, time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC))

	got, err := s.repo.List(s.ctx, s.filter("", core.Window{}))
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 3)

	assert.Equal(s.T(), 3, got[0].Date.Day())
	assert.Equal(s.T(), 2, got[1].Date.Day())
	assert.Equal(s.T(), 1, got[2].Date.Day())
	assert.Equal(s.T(), s.user, got[0].UserID)
}

func (s *RepositoryTestSuite) TestListEmptyIsNotAnError() {
	got, err := s.repo.List(s.ctx, s.filter("", core.Window{}))
	require.NoError(s.T(), err)
	assert.NotNil(s.T(), got)
	assert.Empty(s.T(), got)
}

func (s *RepositoryTestSuite) TestListScopesToUser() {
	s.insert(s.user, 100, core.Food, time.Now())
	s.insert(uuid.New(), 999, core.Food, time.Now())

	got, err := s.repo.List(s.ctx, s.filter("All", core.Window{}))
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), int64(100), got[0].Amount.Cents)
}

func (s *RepositoryTestSuite) TestListAppliesCategoryAndWindow() {
	day := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	s.insert(s.user, 100, core.Food, day)
	s.insert(s.user, 200, core.Travel, day)
	s.insert(s.user, 300, core.Food, day.AddDate(0, 0, -1))

	w := core.ResolveWindow(core.PeriodDay, nil, day)

	got, err := s.repo.List(s.ctx, s.filter("Food", w))
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), int64(100), got[0].Amount.Cents)

	got, err = s.repo.List(s.ctx, s.filter("All", w))
	require.NoError(s.T(), err)
	assert.Len(s.T(), got, 2)
}

func (s *RepositoryTestSuite) TestWindowBoundsAreInclusiveToTheMillisecond() {
	day := time.Date(2024, 5, 15, 10, 0, 0, 0, time.UTC)
	w := core.ResolveWindow(core.PeriodDay, nil, day)

	s.insert(s.user, 1, core.Bills, *w.Start)
	s.insert(s.user, 2, core.Bills, *w.End)
	s.insert(s.user, 4, core.Bills, w.Start.Add(-time.Millisecond))
	s.insert(s.user, 8, core.Bills, w.End.Add(time.Millisecond))

	agg, err := s.repo.Aggregate(s.ctx, s.filter("", w))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), agg.Count)
	assert.Equal(s.T(), int64(3), agg.Total.Cents)
}

func (s *RepositoryTestSuite) TestAggregate() {
	now := time.Now()
	s.insert(s.user, 1000, core.Food, now)
	s.insert(s.user, 550, core.Food, now)
	s.insert(s.user, 2000, core.Bills, now)
	s.insert(uuid.New(), 7777, core.Bills, now)

	agg, err := s.repo.Aggregate(s.ctx, s.filter("", core.Window{}))
	require.NoError(s.T(), err)

	assert.Equal(s.T(), int64(3550), agg.Total.Cents)
	assert.Equal(s.T(), int64(3), agg.Count)
	require.Len(s.T(), agg.Groups, 2)
	assert.Equal(s.T(), core.CategoryGroup{Label: "Bills", Total: core.Money{Cents: 2000}, Count: 1}, agg.Groups[0])
	assert.Equal(s.T(), core.CategoryGroup{Label: "Food", Total: core.Money{Cents: 1550}, Count: 2}, agg.Groups[1])
}

func (s *RepositoryTestSuite) TestAggregateEmpty() {
	agg, err := s.repo.Aggregate(s.ctx, s.filter("Travel", core.Window{}))
	require.NoError(s.T(), err)
	assert.Empty(s.T(), agg.Groups)
	assert.Zero(s.T(), agg.Total.Cents)
	assert.Zero(s.T(), agg.Count)
}

func (s *RepositoryTestSuite) TestGet() {
	e := s.insert(s.user, 4200, core.Entertainment, time.Date(2024, 2, 2, 20, 0, 0, 0, time.UTC))

	got, err := s.repo.Get(s.ctx, e.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), e.ID, got.ID)
	assert.Equal(s.T(), e.Category, got.Category)
	assert.Equal(s.T(), e.Description, got.Description)
	assert.True(s.T(), e.Date.Equal(got.Date))

	_, err = s.repo.Get(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestPendingSyncAndMarkSynced() {
	a := s.insert(s.user, 100, core.Food, time.Now().Add(-time.Minute))
	b := s.insert(s.user, 200, core.Food, time.Now())

	pending, err := s.repo.PendingSync(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 2)
	assert.Equal(s.T(), a.ID, pending[0].ID)

	synced, err := s.repo.IsSynced(s.ctx, a.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), synced)

	require.NoError(s.T(), s.repo.MarkSynced(s.ctx, a.ID, time.Now()))

	synced, err = s.repo.IsSynced(s.ctx, a.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), synced)
	_, err = s.repo.IsSynced(s.ctx, uuid.New())
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	pending, err = s.repo.PendingSync(s.ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 1)
	assert.Equal(s.T(), b.ID, pending[0].ID)

	assert.ErrorIs(s.T(), s.repo.MarkSynced(s.ctx, uuid.New(), time.Now()), core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestClosedStoreFails() {
	require.NoError(s.T(), s.repo.Close())

	_, err := s.repo.List(s.ctx, s.filter("", core.Window{}))
	assert.Error(s.T(), err)
	_, err = s.repo.Aggregate(s.ctx, s.filter("", core.Window{}))
	assert.Error(s.T(), err)
	s.repo = nil
}

func TestWhereClause(t *testing.T) {
	user := uuid.New()
	start := time.UnixMilli(1000)
	end := time.UnixMilli(2000)
	bills := core.Bills

	where, args := whereClause(core.Filter{UserID: user})
	assert.Equal(t, "WHERE user_id = ?", where)
	assert.Equal(t, []any{user.String()}, args)

	where, args = whereClause(core.Filter{UserID: user, Category: &bills, Window: core.Window{Start: &start, End: &end}})
	assert.Equal(t, "WHERE user_id = ? AND category = ? AND occurred_at >= ? AND occurred_at <= ?", where)
	assert.Equal(t, []any{user.String(), "Bills", int64(1000), int64(2000)}, args)
}
