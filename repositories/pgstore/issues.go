package pgstore

import (
	"context"
	"errors"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type issueRepo struct{ s *Store }

func scopeIssues(filters []repositories.IssueFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		for _, f := range filters {
			switch f := f.(type) {
			case repositories.StatusFilter:
				db = db.Where("status = ?", f.Status)
			case repositories.CategoryFilter:
				db = db.Where("category = ?", f.Category)
			case repositories.PriorityFilter:
				db = db.Where("priority = ?", f.Priority)
			case repositories.ReporterFilter:
				db = db.Where("reporter_id = ?", f.ReporterID)
			case repositories.AssigneeFilter:
				db = db.Where("assignee_id = ?", f.AssigneeID)
			case repositories.SearchFilter:
				p := contains(f.Term)
				db = db.Where("(title ILIKE ? OR description ILIKE ? OR location ILIKE ?)", p, p, p)
			}
		}
		return db
	}
}

func (r issueRepo) Create(ctx context.Context, issue *models.Issue) error {
	if issue.ID == "" {
		issue.ID = newID()
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
	rec := newIssueRecord(issue)
	if err := r.s.conn(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Conflict("Issue %s already exists", issue.ID)
		}
		return apperrors.Internal(err, "Failed to create issue")
	}
	return nil
}

func (r issueRepo) Get(ctx context.Context, id string) (*models.Issue, error) {
	var rec issueRecord
	if err := r.s.conn(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		return nil, notFound(err, "Issue not found")
	}
	issue := rec.model()
	return &issue, nil
}

func issueModels(recs []issueRecord) []models.Issue {
	out := make([]models.Issue, len(recs))
	for i, rec := range recs {
		out[i] = rec.model()
	}
	return out
}

func (r issueRepo) List(ctx context.Context, filters []repositories.IssueFilter, page repositories.Page) ([]models.Issue, int64, error) {
	var total int64
	q := r.s.conn(ctx).Model(&issueRecord{}).Scopes(scopeIssues(filters))
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to count issues")
	}

	var recs []issueRecord
	err := r.s.conn(ctx).Scopes(scopeIssues(filters)).
		Order(newestFirst).
		Offset(page.Skip()).
		Limit(page.Size).
		Find(&recs).Error
	if err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to fetch issues")
	}
	return issueModels(recs), total, nil
}

func (r issueRepo) Count(ctx context.Context, filters []repositories.IssueFilter) (int64, error) {
	var total int64
	if err := r.s.conn(ctx).Model(&issueRecord{}).Scopes(scopeIssues(filters)).Count(&total).Error; err != nil {
		return 0, apperrors.Internal(err, "Failed to count issues")
	}
	return total, nil
}

func issueColumns(p repositories.IssuePatch) map[string]any {
	cols := map[string]any{}
	if p.Title != nil {
		cols["title"] = *p.Title
	}
	if p.Description != nil {
		cols["description"] = *p.Description
	}
	if p.Category != nil {
		cols["category"] = string(*p.Category)
	}
	if p.Priority != nil {
		cols["priority"] = string(*p.Priority)
	}
	if p.Location != nil {
		cols["location"] = *p.Location
	}
	if p.Coordinates != nil {
		cols["lat"] = p.Coordinates.Lat
		cols["lng"] = p.Coordinates.Lng
	}
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.AssigneeID != nil {
		cols["assignee_id"] = *p.AssigneeID
	}
	if p.Department != nil {
		cols["department"] = *p.Department
	}
	return cols
}

func (r issueRepo) Update(ctx context.Context, id string, patch repositories.IssuePatch) (*models.Issue, error) {
	cols := issueColumns(patch)
	cols["updated_at"] = r.s.now()

	var rec issueRecord
	q := r.s.conn(ctx).Model(&rec).
		Clauses(clause.Returning{}).
		Where("id = ?", id)
	if patch.ExpectStatus != nil {
		q = q.Where("status = ?", *patch.ExpectStatus)
	}
	res := q.Updates(cols)
	if res.Error != nil {
		return nil, apperrors.Internal(res.Error, "Failed to update issue")
	}
	if res.RowsAffected == 0 {
		if patch.ExpectStatus != nil {
			var n int64
			if err := r.s.conn(ctx).Model(&issueRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
				return nil, apperrors.Internal(err, "Failed to look up issue")
			}
			if n > 0 {
				return nil, repositories.StaleStatus()
			}
		}
		return nil, apperrors.NotFound("Issue not found")
	}
	issue := rec.model()
	return &issue, nil
}

// AppendImages locks the row so concurrent uploads never drop each other's
// URLs.
func (r issueRepo) AppendImages(ctx context.Context, id string, urls []string) (*models.Issue, error) {
	var rec issueRecord
	err := r.s.atomically(ctx, func(db *gorm.DB) error {
		if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&rec).Error; err != nil {
			return notFound(err, "Issue not found")
		}
		rec.Images = append(rec.Images, urls...)
		rec.UpdatedAt = r.s.now()
		return db.Model(&issueRecord{}).Where("id = ?", id).Updates(map[string]any{
			"images":     rec.Images,
			"updated_at": rec.UpdatedAt,
		}).Error
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, apperrors.Internal(err, "Failed to attach images")
	}
	issue := rec.model()
	return &issue, nil
}

func (r issueRepo) Delete(ctx context.Context, id string) error {
	return r.s.atomically(ctx, func(db *gorm.DB) error {
		res := db.Where("id = ?", id).Delete(&issueRecord{})
		if res.Error != nil {
			return apperrors.Internal(res.Error, "Failed to delete issue")
		}
		if res.RowsAffected == 0 {
			return apperrors.NotFound("Issue not found")
		}
		if err := db.Where("issue_id = ?", id).Delete(&commentRecord{}).Error; err != nil {
			return apperrors.Internal(err, "Failed to delete comments of issue")
		}
		if err := db.Where("issue_id = ?", id).Delete(&updateRecord{}).Error; err != nil {
			return apperrors.Internal(err, "Failed to delete updates of issue")
		}
		return nil
	})
}

func (r issueRepo) groupBy(ctx context.Context, column string) ([]models.Bucket, error) {
	var rows []struct {
		Key   string
		Count int64
	}
	err := r.s.conn(ctx).Model(&issueRecord{}).
		Select(column + " AS key, COUNT(*) AS count").
		Group(column).
		Order(column).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to group issues by %s", column)
	}
	out := make([]models.Bucket, len(rows))
	for i, row := range rows {
		out[i] = models.Bucket{Key: row.Key, Count: row.Count}
	}
	return out, nil
}

func (r issueRepo) CountByStatus(ctx context.Context) ([]models.Bucket, error) {
	return r.groupBy(ctx, "status")
}

func (r issueRepo) CountByCategory(ctx context.Context) ([]models.Bucket, error) {
	return r.groupBy(ctx, "category")
}

func (r issueRepo) CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error) {
	var n int64
	err := r.s.conn(ctx).Model(&issueRecord{}).
		Where("created_at >= ? AND created_at < ?", from, to).
		Count(&n).Error
	if err != nil {
		return 0, apperrors.Internal(err, "Failed to count issues")
	}
	return n, nil
}

func (r issueRepo) RecentWithCoordinates(ctx context.Context, limit int) ([]models.Issue, error) {
	var recs []issueRecord
	err := r.s.conn(ctx).
		Where("lat IS NOT NULL AND lng IS NOT NULL").
		Order(newestFirst).
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to fetch map issues")
	}
	return issueModels(recs), nil
}

func (r issueRepo) CountByDayAndCategory(ctx context.Context, from time.Time) ([]models.CategoryDailyCount, error) {
	var rows []struct {
		Day      string
		Category string
		Count    int64
	}
	err := r.s.conn(ctx).Model(&issueRecord{}).
		Select("to_char(created_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, category, COUNT(*) AS count").
		Where("created_at >= ?", from).
		Group("1, 2").
		Order("1, 2").
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to aggregate daily category counts")
	}
	out := make([]models.CategoryDailyCount, len(rows))
	for i, row := range rows {
		out[i] = models.CategoryDailyCount{Date: row.Day, Category: row.Category, Count: row.Count}
	}
	return out, nil
}

func (r issueRepo) ResolutionStats(ctx context.Context, from time.Time) (time.Duration, int64, error) {
	var row struct {
		Seconds float64
		Count   int64
	}
	err := r.s.conn(ctx).Model(&issueRecord{}).
		Select("COALESCE(AVG(EXTRACT(EPOCH FROM (updated_at - created_at))), 0) AS seconds, COUNT(*) AS count").
		Where("status = ? AND created_at >= ?", models.StatusResolved, from).
		Scan(&row).Error
	if err != nil {
		return 0, 0, apperrors.Internal(err, "Failed to aggregate resolution times")
	}
	return time.Duration(row.Seconds * float64(time.Second)), row.Count, nil
}

func (r issueRepo) TopReporters(ctx context.Context, from time.Time, limit int) ([]models.Bucket, error) {
	var rows []struct {
		Key   string
		Count int64
	}
	err := r.s.conn(ctx).Model(&issueRecord{}).
		Select("reporter_id AS key, COUNT(*) AS count").
		Where("created_at >= ?", from).
		Group("reporter_id").
		Order("count DESC, reporter_id").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to aggregate top reporters")
	}
	out := make([]models.Bucket, len(rows))
	for i, row := range rows {
		out[i] = models.Bucket{Key: row.Key, Count: row.Count}
	}
	return out, nil
}
