package memstore

import (
	"context"
	"sort"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"
)

type issueRepo struct{ s *Store }

func (r issueRepo) Create(ctx context.Context, issue *models.Issue) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if issue.ID == "" {
		issue.ID = newID()
	}
	if _, exists := r.s.data.issues[issue.ID]; exists {
		return apperrors.Conflict("Issue %s already exists", issue.ID)
	}
	if issue.CreatedAt.IsZero() {
		issue.CreatedAt = r.s.now()
	}
	if issue.UpdatedAt.IsZero() {
		issue.UpdatedAt = issue.CreatedAt
	}
	if issue.Images == nil {
		issue.Images = []string{}
	}
	r.s.data.issues[issue.ID] = cloneIssue(*issue)
	r.s.data.track(issue.ID)
	return nil
}

func (r issueRepo) Get(ctx context.Context, id string) (*models.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	issue, ok := r.s.data.issues[id]
	if !ok {
		return nil, apperrors.NotFound("Issue not found")
	}
	out := cloneIssue(issue)
	return &out, nil
}

// sorted returns the matching issues newest first.
func (r issueRepo) sorted(filters []repositories.IssueFilter) []models.Issue {
	var out []models.Issue
	for _, issue := range r.s.data.issues {
		if repositories.MatchIssue(issue, filters) {
			out = append(out, cloneIssue(issue))
		}
	}
	seq := r.s.data.seq
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return seq[out[i].ID] > seq[out[j].ID]
	})
	return out
}

func (r issueRepo) List(ctx context.Context, filters []repositories.IssueFilter, page repositories.Page) ([]models.Issue, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	all := r.sorted(filters)
	start, end := page.Window(len(all))
	return all[start:end], int64(len(all)), nil
}

func (r issueRepo) Count(ctx context.Context, filters []repositories.IssueFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, issue := range r.s.data.issues {
		if repositories.MatchIssue(issue, filters) {
			n++
		}
	}
	return n, nil
}

func (r issueRepo) Update(ctx context.Context, id string, patch repositories.IssuePatch) (*models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	issue, ok := r.s.data.issues[id]
	if !ok {
		return nil, apperrors.NotFound("Issue not found")
	}
	if patch.ExpectStatus != nil && issue.Status != *patch.ExpectStatus {
		return nil, repositories.StaleStatus()
	}
	issue = cloneIssue(issue)
	patch.Apply(&issue)
	issue.UpdatedAt = r.s.now()
	r.s.data.issues[id] = issue

	out := cloneIssue(issue)
	return &out, nil
}

func (r issueRepo) AppendImages(ctx context.Context, id string, urls []string) (*models.Issue, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	issue, ok := r.s.data.issues[id]
	if !ok {
		return nil, apperrors.NotFound("Issue not found")
	}
	issue = cloneIssue(issue)
	issue.Images = append(issue.Images, urls...)
	issue.UpdatedAt = r.s.now()
	r.s.data.issues[id] = issue

	out := cloneIssue(issue)
	return &out, nil
}

func (r issueRepo) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.issues[id]; !ok {
		return apperrors.NotFound("Issue not found")
	}
	delete(r.s.data.issues, id)
	for cid, c := range r.s.data.comments {
		if c.IssueID == id {
			delete(r.s.data.comments, cid)
		}
	}
	for uid, u := range r.s.data.updates {
		if u.IssueID == id {
			delete(r.s.data.updates, uid)
		}
	}
	return nil
}

func buckets(counts map[string]int64) []models.Bucket {
	out := make([]models.Bucket, 0, len(counts))
	for k, v := range counts {
		out = append(out, models.Bucket{Key: k, Count: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func (r issueRepo) CountByStatus(ctx context.Context) ([]models.Bucket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int64{}
	for _, issue := range r.s.data.issues {
		counts[string(issue.Status)]++
	}
	return buckets(counts), nil
}

func (r issueRepo) CountByCategory(ctx context.Context) ([]models.Bucket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int64{}
	for _, issue := range r.s.data.issues {
		counts[string(issue.Category)]++
	}
	return buckets(counts), nil
}

func (r issueRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, issue := range r.s.data.issues {
		if !issue.CreatedAt.Before(from) && issue.CreatedAt.Before(to) {
			n++
		}
	}
	return n, nil
}

func (r issueRepo) RecentWithCoordinates(ctx context.Context, limit int) ([]models.Issue, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []models.Issue
	for _, issue := range r.sorted(nil) {
		if issue.Coordinates == nil {
			continue
		}
		out = append(out, issue)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r issueRepo) CountByDayAndCategory(ctx context.Context, from time.Time) ([]models.CategoryDailyCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	type key struct{ day, category string }
	counts := map[key]int64{}
	for _, issue := range r.s.data.issues {
		if issue.CreatedAt.Before(from) {
			continue
		}
		counts[key{issue.CreatedAt.UTC().Format("2006-01-02"), string(issue.Category)}]++
	}
	out := make([]models.CategoryDailyCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.CategoryDailyCount{Date: k.day, Category: k.category, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

func (r issueRepo) ResolutionStats(ctx context.Context, from time.Time) (time.Duration, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var (
		total time.Duration
		n     int64
	)
	for _, issue := range r.s.data.issues {
		if issue.Status != models.StatusResolved || issue.CreatedAt.Before(from) {
			continue
		}
		total += issue.UpdatedAt.Sub(issue.CreatedAt)
		n++
	}
	if n == 0 {
		return 0, 0, nil
	}
	return total / time.Duration(n), n, nil
}

func (r issueRepo) TopReporters(ctx context.Context, from time.Time, limit int) ([]models.Bucket, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := map[string]int64{}
	for _, issue := range r.s.data.issues {
		if !issue.CreatedAt.Before(from) {
			counts[issue.ReporterID]++
		}
	}
	out := buckets(counts)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	if limit >= 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
