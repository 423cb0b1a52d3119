// Package storetest holds the behavior every repositories.Store must share.
// Each store package runs Run against its own backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for one subtest.
type Factory func(t *testing.T) repositories.Store

var base = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func Run(t *testing.T, newStore Factory) {
	t.Run("users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("issue list", func(t *testing.T) { testIssueList(t, newStore(t)) })
	t.Run("issue writes", func(t *testing.T) { testIssueWrites(t, newStore(t)) })
	t.Run("issue stats", func(t *testing.T) { testIssueStats(t, newStore(t)) })
	t.Run("issue analytics", func(t *testing.T) { testIssueAnalytics(t, newStore(t)) })
	t.Run("discussion", func(t *testing.T) { testDiscussion(t, newStore(t)) })
	t.Run("notifications", func(t *testing.T) { testNotifications(t, newStore(t)) })
	t.Run("transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("status precondition", func(t *testing.T) { testStatusPrecondition(t, newStore(t)) })
}

func seedIssue(t *testing.T, s repositories.Store, issue models.Issue) models.Issue {
	t.Helper()
	if issue.Status == "" {
		issue.Status = models.StatusSubmitted
	}
	if issue.Category == "" {
		issue.Category = models.CategoryRoad
	}
	if issue.Priority == "" {
		issue.Priority = models.PriorityMedium
	}
	if issue.ReporterID == "" {
		issue.ReporterID = "reporter"
	}
	require.NoError(t, s.Issues().Create(context.Background(), &issue))
	require.NotEmpty(t, issue.ID)
	return issue
}

func ids(issues []models.Issue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = issue.ID
	}
	return out
}

func testUsers(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	users := s.Users()

	asha := models.User{Name: "Asha Verma", Email: " Asha@Example.com", Password: "hash", Role: models.RoleCitizen, CreatedAt: base}
	require.NoError(t, users.Create(ctx, &asha))
	assert.Equal(t, "asha@example.com", asha.Email)

	dup := models.User{Name: "Other", Email: "ASHA@example.com", Role: models.RoleCitizen}
	assert.True(t, apperrors.IsConflict(users.Create(ctx, &dup)))

	desk := models.User{Name: "Water Desk", Email: "water@city.gov", Role: models.RoleDepartment, CreatedAt: base.Add(time.Minute)}
	require.NoError(t, users.Create(ctx, &desk))

	got, err := users.GetByEmail(ctx, "asha@EXAMPLE.com")
	require.NoError(t, err)
	assert.Equal(t, asha.ID, got.ID)
	assert.Equal(t, "hash", got.Password)

	_, err = users.GetByID(ctx, "missing")
	assert.True(t, apperrors.IsNotFound(err))

	list, total, err := users.List(ctx, repositories.UserFilter{}, repositories.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, list, 2)
	assert.Equal(t, desk.ID, list[0].ID)

	list, total, err = users.List(ctx, repositories.UserFilter{Search: "CITY.GOV"}, repositories.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, desk.ID, list[0].ID)

	_, total, err = users.List(ctx, repositories.UserFilter{Role: models.RoleCitizen, Search: "desk"}, repositories.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Zero(t, total)

	name, role := "Asha V", models.RoleAdmin
	updated, err := users.Update(ctx, asha.ID, repositories.UserPatch{Name: &name, Role: &role})
	require.NoError(t, err)
	assert.Equal(t, "Asha V", updated.Name)
	assert.Equal(t, models.RoleAdmin, updated.Role)
	assert.Equal(t, "asha@example.com", updated.Email)

	_, err = users.Update(ctx, "missing", repositories.UserPatch{Name: &name})
	assert.True(t, apperrors.IsNotFound(err))

	n, err := users.CountByRole(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	summaries, err := users.Summaries(ctx, []string{asha.ID, "missing"})
	require.NoError(t, err)
	assert.Equal(t, map[string]models.UserSummary{
		asha.ID: {ID: asha.ID, Name: "Asha V", Email: "asha@example.com"},
	}, summaries)
}

func testIssueList(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	var seeded []models.Issue
	for i := 0; i < 12; i++ {
		issue := models.Issue{
			Title:       fmt.Sprintf("Issue %02d", i),
			Description: "Needs attention",
			Location:    "Ward 3",
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if i%3 == 0 {
			issue.Category = models.CategoryWater
			issue.Location = "Lalpur Chowk"
		}
		if i%4 == 0 {
			assignee := "desk"
			issue.AssigneeID = &assignee
		}
		seeded = append(seeded, seedIssue(t, s, issue))
	}

	page, total, err := s.Issues().List(ctx, nil, repositories.NewPage(2, 5, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Equal(t, []string{seeded[6].ID, seeded[5].ID, seeded[4].ID, seeded[3].ID, seeded[2].ID}, ids(page))

	page, _, err = s.Issues().List(ctx, nil, repositories.NewPage(4, 5, 10))
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.NotNil(t, page)

	water := []repositories.IssueFilter{repositories.CategoryFilter{Category: models.CategoryWater}}
	page, total, err = s.Issues().List(ctx, water, repositories.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Equal(t, []string{seeded[9].ID, seeded[6].ID, seeded[3].ID, seeded[0].ID}, ids(page))

	search := []repositories.IssueFilter{repositories.SearchFilter{Term: "lalpur"}, repositories.AssigneeFilter{AssigneeID: "desk"}}
	page, total, err = s.Issues().List(ctx, search, repositories.NewPage(1, 10, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, []string{seeded[0].ID}, ids(page))

	n, err := s.Issues().Count(ctx, []repositories.IssueFilter{
		repositories.ReporterFilter{ReporterID: "reporter"},
		repositories.StatusFilter{Status: models.StatusSubmitted},
		repositories.PriorityFilter{Priority: models.PriorityMedium},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12), n)

	n, err = s.Issues().Count(ctx, []repositories.IssueFilter{repositories.SearchFilter{Term: "(unbalanced"}})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testIssueWrites(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	issue := seedIssue(t, s, models.Issue{Title: "Pothole", Description: "Deep pothole", Location: "Main Road", CreatedAt: base})

	got, err := s.Issues().Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pothole", got.Title)
	assert.NotNil(t, got.Images)
	assert.Nil(t, got.AssigneeID)
	assert.Nil(t, got.Coordinates)

	status, assignee, dept := models.StatusAssigned, "desk", "Roads Department"
	coords := models.Coordinates{Lat: 23.34, Lng: 85.31}
	updated, err := s.Issues().Update(ctx, issue.ID, repositories.IssuePatch{
		Status: &status, AssigneeID: &assignee, Department: &dept, Coordinates: &coords,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssigned, updated.Status)
	require.NotNil(t, updated.AssigneeID)
	assert.Equal(t, "desk", *updated.AssigneeID)
	assert.Equal(t, "Roads Department", updated.Department)
	assert.Equal(t, &coords, updated.Coordinates)
	assert.Equal(t, "Pothole", updated.Title)
	assert.True(t, updated.UpdatedAt.After(issue.UpdatedAt))

	updated, err = s.Issues().AppendImages(ctx, issue.ID, []string{"a.png", "b.png"})
	require.NoError(t, err)
	updated, err = s.Issues().AppendImages(ctx, issue.ID, []string{"c.png"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.png", "c.png"}, updated.Images)

	_, err = s.Issues().Update(ctx, "missing", repositories.IssuePatch{Status: &status})
	assert.True(t, apperrors.IsNotFound(err))
	_, err = s.Issues().AppendImages(ctx, "missing", []string{"x.png"})
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, s.Comments().Create(ctx, &models.Comment{IssueID: issue.ID, UserID: "u", Content: "same here"}))
	require.NoError(t, s.IssueUpdates().Create(ctx, &models.IssueUpdate{IssueID: issue.ID, Status: status, Message: "Assigned"}))

	require.NoError(t, s.Issues().Delete(ctx, issue.ID))
	_, err = s.Issues().Get(ctx, issue.ID)
	assert.True(t, apperrors.IsNotFound(err))
	comments, err := s.Comments().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	updates, err := s.IssueUpdates().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, updates)

	assert.True(t, apperrors.IsNotFound(s.Issues().Delete(ctx, issue.ID)))
}

func testIssueStats(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	coords := &models.Coordinates{Lat: 23.3, Lng: 85.3}
	seedIssue(t, s, models.Issue{Title: "a", Category: models.CategoryWater, CreatedAt: base, Coordinates: coords})
	seedIssue(t, s, models.Issue{Title: "b", Category: models.CategoryWater, Status: models.StatusResolved, CreatedAt: base.Add(time.Hour)})
	newest := seedIssue(t, s, models.Issue{Title: "c", Category: models.CategoryRoad, CreatedAt: base.Add(48 * time.Hour), Coordinates: coords})

	byCategory, err := s.Issues().CountByCategory(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Bucket{{Key: "ROAD", Count: 1}, {Key: "WATER", Count: 2}}, byCategory)

	byStatus, err := s.Issues().CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Bucket{{Key: "RESOLVED", Count: 1}, {Key: "SUBMITTED", Count: 2}}, byStatus)

	n, err := s.Issues().CountCreatedBetween(ctx, base, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "upper bound is exclusive")

	pins, err := s.Issues().RecentWithCoordinates(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{newest.ID}, ids(pins))

	pins, err = s.Issues().RecentWithCoordinates(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, pins, 2)
}

func testIssueAnalytics(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	seedIssue(t, s, models.Issue{Title: "old", Category: models.CategoryWater, ReporterID: "r1", CreatedAt: base.Add(-24 * time.Hour)})
	seedIssue(t, s, models.Issue{Title: "a", Category: models.CategoryWater, ReporterID: "r1", Status: models.StatusResolved,
		CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(49 * time.Hour)})
	seedIssue(t, s, models.Issue{Title: "b", Category: models.CategoryRoad, ReporterID: "r2", Status: models.StatusResolved,
		CreatedAt: base.Add(2 * time.Hour), UpdatedAt: base.Add(26 * time.Hour)})
	seedIssue(t, s, models.Issue{Title: "c", Category: models.CategoryWater, ReporterID: "r1", CreatedAt: base.Add(3 * time.Hour)})
	seedIssue(t, s, models.Issue{Title: "d", Category: models.CategoryRoad, ReporterID: "r3", CreatedAt: base.Add(25 * time.Hour)})

	trends, err := s.Issues().CountByDayAndCategory(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, []models.CategoryDailyCount{
		{Date: "2025-01-01", Category: "ROAD", Count: 1},
		{Date: "2025-01-01", Category: "WATER", Count: 2},
		{Date: "2025-01-02", Category: "ROAD", Count: 1},
	}, trends)

	avg, resolved, err := s.Issues().ResolutionStats(ctx, base)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resolved)
	assert.Equal(t, 36*time.Hour, avg)

	top, err := s.Issues().TopReporters(ctx, base, 2)
	require.NoError(t, err)
	assert.Equal(t, []models.Bucket{{Key: "r1", Count: 2}, {Key: "r2", Count: 1}}, top)

	later := base.Add(100 * time.Hour)
	trends, err = s.Issues().CountByDayAndCategory(ctx, later)
	require.NoError(t, err)
	assert.Empty(t, trends)
	avg, resolved, err = s.Issues().ResolutionStats(ctx, later)
	require.NoError(t, err)
	assert.Zero(t, avg)
	assert.Zero(t, resolved)
	top, err = s.Issues().TopReporters(ctx, later, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func testDiscussion(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	issue := seedIssue(t, s, models.Issue{Title: "Garbage", CreatedAt: base})

	err := s.Comments().Create(ctx, &models.Comment{IssueID: "missing", UserID: "u", Content: "hello"})
	assert.True(t, apperrors.IsNotFound(err))
	err = s.IssueUpdates().Create(ctx, &models.IssueUpdate{IssueID: "missing", Status: models.StatusRejected})
	assert.True(t, apperrors.IsNotFound(err))

	for i, content := range []string{"first", "second", "third"} {
		c := models.Comment{IssueID: issue.ID, UserID: "u", Content: content, CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, s.Comments().Create(ctx, &c))
	}
	for i, status := range []models.IssueStatus{models.StatusAcknowledged, models.StatusAssigned} {
		u := models.IssueUpdate{IssueID: issue.ID, Status: status, Message: string(status), CreatedAt: base.Add(time.Duration(i) * time.Second)}
		require.NoError(t, s.IssueUpdates().Create(ctx, &u))
	}

	comments, err := s.Comments().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, comments, 3)
	assert.Equal(t, "first", comments[0].Content)
	assert.Equal(t, "third", comments[2].Content)

	updates, err := s.IssueUpdates().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, updates, 2)
	assert.Equal(t, models.StatusAssigned, updates[0].Status)
}

func testNotifications(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	repo := s.Notifications()
	var mine []models.Notification
	for i := 0; i < 3; i++ {
		n := models.Notification{UserID: "alice", Title: fmt.Sprintf("n%d", i), Message: "m", Type: models.NotificationGeneral, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, repo.Create(ctx, &n))
		mine = append(mine, n)
	}
	other := models.Notification{UserID: "bob", Title: "b", Message: "m", Type: models.NotificationGeneral}
	require.NoError(t, repo.Create(ctx, &other))

	items, total, err := repo.List(ctx, "alice", false, repositories.NewPage(1, 2, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, mine[2].ID, items[0].ID)

	assert.True(t, apperrors.IsNotFound(repo.MarkRead(ctx, other.ID, "alice")))
	assert.True(t, apperrors.IsNotFound(repo.Delete(ctx, other.ID, "alice")))

	require.NoError(t, repo.MarkRead(ctx, mine[0].ID, "alice"))
	require.NoError(t, repo.MarkRead(ctx, mine[0].ID, "alice"))
	unread, err := repo.CountUnread(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	_, total, err = repo.List(ctx, "alice", true, repositories.NewPage(1, 20, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	changed, err := repo.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)
	changed, err = repo.MarkAllRead(ctx, "alice")
	require.NoError(t, err)
	assert.Zero(t, changed)

	require.NoError(t, repo.Delete(ctx, mine[1].ID, "alice"))
	_, total, err = repo.List(ctx, "alice", false, repositories.NewPage(1, 20, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)

	unread, err = repo.CountUnread(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)
}

func testTransactions(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		issue := models.Issue{Title: "kept", Status: models.StatusSubmitted, Category: models.CategoryOther, Priority: models.PriorityLow, ReporterID: "r"}
		return tx.Issues().Create(ctx, &issue)
	})
	require.NoError(t, err)

	err = s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		issue := models.Issue{Title: "dropped", Status: models.StatusSubmitted, Category: models.CategoryOther, Priority: models.PriorityLow, ReporterID: "r"}
		if err := tx.Issues().Create(ctx, &issue); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	n, err := s.Issues().Count(ctx, nil)
	require.NoError(t, err)
	if s.Transactional() {
		assert.Equal(t, int64(1), n)
	} else {
		assert.Equal(t, int64(2), n)
	}
}

func testStatusPrecondition(t *testing.T, s repositories.Store) {
	ctx := context.Background()
	issue := seedIssue(t, s, models.Issue{Title: "Broken lamp", CreatedAt: base})

	submitted, acknowledged := models.StatusSubmitted, models.StatusAcknowledged
	_, err := s.Issues().Update(ctx, issue.ID, repositories.IssuePatch{Status: &acknowledged, ExpectStatus: &acknowledged})
	assert.True(t, apperrors.IsConflict(err))
	_, err = s.Issues().Update(ctx, "missing", repositories.IssuePatch{Status: &acknowledged, ExpectStatus: &submitted})
	assert.True(t, apperrors.IsNotFound(err))

	targets := []models.IssueStatus{models.StatusAcknowledged, models.StatusRejected}
	errs := make([]error, len(targets))
	start := make(chan struct{})
	var wg sync.WaitGroup
	for i := range targets {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
				if _, err := tx.Issues().Update(ctx, issue.ID, repositories.IssuePatch{Status: &targets[i], ExpectStatus: &submitted}); err != nil {
					return err
				}
				return tx.IssueUpdates().Create(ctx, &models.IssueUpdate{IssueID: issue.ID, Status: targets[i], Message: "moved"})
			})
		}(i)
	}
	close(start)
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "both transitions applied")
			winner = i
			continue
		}
		assert.True(t, apperrors.IsConflict(err), "unexpected error: %v", err)
	}
	require.NotEqual(t, -1, winner, "no transition applied")

	got, err := s.Issues().Get(ctx, issue.ID)
	require.NoError(t, err)
	assert.Equal(t, targets[winner], got.Status)
	updates, err := s.IssueUpdates().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, targets[winner], updates[0].Status)
}
