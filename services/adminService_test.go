package services

import (
	"context"
	"testing"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	f.seedIssue(t, alice, models.StatusSubmitted)
	f.seedIssue(t, alice, models.StatusResolved)
	f.seedIssue(t, bob, models.StatusRejected)
	old := f.seedIssue(t, bob, models.StatusInProgress)
	// outside the seven day window
	require.NoError(t, f.mem.Issues().Delete(ctx, old.ID))
	old.ID = ""
	old.CreatedAt = fixedNow.AddDate(0, 0, -10)
	require.NoError(t, f.mem.Issues().Create(ctx, old))
	water := f.seedIssue(t, alice, models.StatusSubmitted)
	_, err := f.mem.Issues().Update(ctx, water.ID, repositories.IssuePatch{Category: ptr(models.CategoryWater)})
	require.NoError(t, err)

	_, err = f.admin.Dashboard(ctx, alice)
	assert.True(t, apperrors.IsForbidden(err))

	d, err := f.admin.Dashboard(ctx, dept)
	require.NoError(t, err)
	assert.Equal(t, int64(5), d.TotalIssues)
	assert.Equal(t, int64(1), d.ResolvedIssues)
	assert.Equal(t, int64(1), d.RejectedIssues)
	assert.Equal(t, int64(3), d.OpenIssues)
	assert.Equal(t, int64(2), d.TotalCitizens)
	assert.Equal(t, 20.0, d.ResolutionRate)

	assert.Contains(t, d.IssuesByCategory, models.Bucket{Key: string(models.CategoryStreetlight), Count: 4})
	assert.Contains(t, d.IssuesByCategory, models.Bucket{Key: string(models.CategoryWater), Count: 1})
	assert.Contains(t, d.IssuesByStatus, models.Bucket{Key: string(models.StatusSubmitted), Count: 2})

	require.Len(t, d.Last7Days, 7)
	assert.Equal(t, "2025-03-04", d.Last7Days[0].Date)
	assert.Equal(t, "2025-03-10", d.Last7Days[6].Date)
	assert.Equal(t, int64(4), d.Last7Days[6].Count)
	for _, day := range d.Last7Days[:6] {
		assert.Zero(t, day.Count, day.Date)
	}

	assert.Len(t, d.RecentIssues, 5)
	assert.NotNil(t, d.RecentIssues[0].Reporter)
}

func TestDashboardResolutionRateRounding(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	f.seedIssue(t, alice, models.StatusResolved)
	f.seedIssue(t, alice, models.StatusSubmitted)
	f.seedIssue(t, alice, models.StatusSubmitted)

	d, err := f.admin.Dashboard(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, 33.33, d.ResolutionRate)

	empty := newFixture(t, fixtureOptions{})
	d, err = empty.admin.Dashboard(context.Background(), admin)
	require.NoError(t, err)
	assert.Zero(t, d.ResolutionRate)
	assert.NotNil(t, d.RecentIssues)
}

func TestAnalytics(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	at := func(day, hour int) time.Time { return time.Date(2025, 3, day, hour, 0, 0, 0, time.UTC) }
	seed := func(reporter Actor, category models.IssueCategory, status models.IssueStatus, created, updated time.Time) {
		issue := &models.Issue{
			Title: "Analytics sample", Description: "Seeded for analytics", Location: "Ward 1",
			Category: category, Status: status, Priority: models.PriorityMedium,
			ReporterID: reporter.ID, CreatedAt: created, UpdatedAt: updated,
		}
		require.NoError(t, f.mem.Issues().Create(ctx, issue))
	}
	seed(alice, models.CategoryRoad, models.StatusResolved, at(7, 12), at(9, 12))
	seed(bob, models.CategoryWater, models.StatusSubmitted, at(9, 8), at(9, 8))
	seed(bob, models.CategoryWater, models.StatusResolved, at(10, 6), at(10, 12))
	seed(alice, models.CategoryRoad, models.StatusSubmitted, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Time{})

	_, err := f.admin.Analytics(ctx, dept, 7)
	assert.True(t, apperrors.IsForbidden(err))
	for _, days := range []int{0, -3, MaxAnalyticsDays + 1} {
		_, err = f.admin.Analytics(ctx, admin, days)
		assert.True(t, apperrors.IsValidation(err), days)
	}

	a, err := f.admin.Analytics(ctx, admin, 7)
	require.NoError(t, err)
	assert.Equal(t, 7, a.PeriodDays)
	assert.True(t, at(4, 0).Equal(a.From), a.From)

	require.Len(t, a.IssuesByDate, 7)
	assert.Equal(t, models.DailyCount{Date: "2025-03-04", Count: 0}, a.IssuesByDate[0])
	assert.Equal(t, models.DailyCount{Date: "2025-03-07", Count: 1}, a.IssuesByDate[3])
	assert.Equal(t, models.DailyCount{Date: "2025-03-09", Count: 1}, a.IssuesByDate[5])
	assert.Equal(t, models.DailyCount{Date: "2025-03-10", Count: 1}, a.IssuesByDate[6])

	assert.Equal(t, []models.CategoryDailyCount{
		{Date: "2025-03-07", Category: "ROAD", Count: 1},
		{Date: "2025-03-09", Category: "WATER", Count: 1},
		{Date: "2025-03-10", Category: "WATER", Count: 1},
	}, a.CategoryTrends)

	assert.Equal(t, int64(2), a.ResolvedIssues)
	assert.Equal(t, 1.13, a.AvgResolutionDays)

	assert.Equal(t, []models.ReporterCount{
		{UserID: bob.ID, Name: "Bob", Count: 2},
		{UserID: alice.ID, Name: "Alice", Count: 1},
	}, a.TopReporters)

	a, err = f.admin.Analytics(ctx, super, MaxAnalyticsDays)
	require.NoError(t, err)
	assert.Len(t, a.IssuesByDate, MaxAnalyticsDays)
	assert.Len(t, a.TopReporters, 2)
	assert.Equal(t, int64(2), a.TopReporters[1].Count)
}
