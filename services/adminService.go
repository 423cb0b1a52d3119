package services

import (
	"context"
	"math"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"
)

const (
	recentIssuesOnDashboard = 10

	DefaultAnalyticsDays = 30
	MaxAnalyticsDays     = 365
	topReporterLimit     = 10
)

type AdminService struct {
	store  repositories.Store
	issues *IssueService
	now    Clock
}

func NewAdminService(store repositories.Store, issues *IssueService) *AdminService {
	return &AdminService{store: store, issues: issues, now: time.Now}
}

func (s *AdminService) countStatus(ctx context.Context, status models.IssueStatus) (int64, error) {
	return s.store.Issues().Count(ctx, []repositories.IssueFilter{repositories.StatusFilter{Status: status}})
}

// Dashboard aggregates issue statistics for staff.
func (s *AdminService) Dashboard(ctx context.Context, actor Actor) (*models.Dashboard, error) {
	if !actor.IsStaff() {
		return nil, apperrors.Forbidden("Staff access required")
	}

	var (
		d   models.Dashboard
		err error
	)
	if d.TotalIssues, err = s.store.Issues().Count(ctx, nil); err != nil {
		return nil, err
	}
	if d.ResolvedIssues, err = s.countStatus(ctx, models.StatusResolved); err != nil {
		return nil, err
	}
	if d.RejectedIssues, err = s.countStatus(ctx, models.StatusRejected); err != nil {
		return nil, err
	}
	d.OpenIssues = d.TotalIssues - d.ResolvedIssues - d.RejectedIssues
	if d.TotalCitizens, err = s.store.Users().CountByRole(ctx, models.RoleCitizen); err != nil {
		return nil, err
	}
	if d.TotalIssues > 0 {
		rate := float64(d.ResolvedIssues) / float64(d.TotalIssues) * 100
		d.ResolutionRate = math.Round(rate*100) / 100
	}
	if d.IssuesByCategory, err = s.store.Issues().CountByCategory(ctx); err != nil {
		return nil, err
	}
	if d.IssuesByStatus, err = s.store.Issues().CountByStatus(ctx); err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	for i := 6; i >= 0; i-- {
		day := today.AddDate(0, 0, -i)
		n, err := s.store.Issues().CountCreatedBetween(ctx, day, day.AddDate(0, 0, 1))
		if err != nil {
			return nil, err
		}
		d.Last7Days = append(d.Last7Days, models.DailyCount{Date: day.Format("2006-01-02"), Count: n})
	}

	recent, _, err := s.issues.List(ctx, repositories.IssueQuery{}, repositories.Page{Number: 1, Size: recentIssuesOnDashboard})
	if err != nil {
		return nil, err
	}
	d.RecentIssues = recent
	return &d, nil
}

// Analytics reports issue activity over the trailing days, today included.
// Admin only.
func (s *AdminService) Analytics(ctx context.Context, actor Actor, days int) (*models.Analytics, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("Admin access required")
	}
	if days < 1 || days > MaxAnalyticsDays {
		return nil, apperrors.Validation("Period must be between 1 and %d days", MaxAnalyticsDays)
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	from := today.AddDate(0, 0, -(days - 1))
	a := &models.Analytics{PeriodDays: days, From: from}

	trends, err := s.store.Issues().CountByDayAndCategory(ctx, from)
	if err != nil {
		return nil, err
	}
	a.CategoryTrends = trends
	perDay := map[string]int64{}
	for _, t := range trends {
		perDay[t.Date] += t.Count
	}
	for day := from; !day.After(today); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		a.IssuesByDate = append(a.IssuesByDate, models.DailyCount{Date: date, Count: perDay[date]})
	}

	avg, resolved, err := s.store.Issues().ResolutionStats(ctx, from)
	if err != nil {
		return nil, err
	}
	a.ResolvedIssues = resolved
	a.AvgResolutionDays = math.Round(avg.Hours()/24*100) / 100

	top, err := s.store.Issues().TopReporters(ctx, from, topReporterLimit)
	if err != nil {
		return nil, err
	}
	reporterIDs := make([]string, len(top))
	for i, b := range top {
		reporterIDs[i] = b.Key
	}
	names, err := s.store.Users().Summaries(ctx, reporterIDs)
	if err != nil {
		return nil, err
	}
	a.TopReporters = make([]models.ReporterCount, len(top))
	for i, b := range top {
		a.TopReporters[i] = models.ReporterCount{UserID: b.Key, Name: names[b.Key].Name, Count: b.Count}
	}
	return a, nil
}
