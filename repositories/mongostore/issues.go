package mongostore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type issueRepo struct{ s *Store }

func (r issueRepo) col() *mongo.Collection { return r.s.col(issuesCollection) }

// issueQuery translates typed filters into a bson filter document.
func issueQuery(filters []repositories.IssueFilter) bson.M {
	q := bson.M{}
	for _, f := range filters {
		switch f := f.(type) {
		case repositories.StatusFilter:
			q["status"] = f.Status
		case repositories.CategoryFilter:
			q["category"] = f.Category
		case repositories.PriorityFilter:
			q["priority"] = f.Priority
		case repositories.ReporterFilter:
			q["reporterId"] = f.ReporterID
		case repositories.AssigneeFilter:
			q["assigneeId"] = f.AssigneeID
		case repositories.SearchFilter:
			pattern := bson.M{"$regex": regexp.QuoteMeta(f.Term), "$options": "i"}
			q["$or"] = []bson.M{
				{"title": pattern},
				{"description": pattern},
				{"location": pattern},
			}
		}
	}
	return q
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
	if _, err := r.col().InsertOne(ctx, issue); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.Conflict("Issue %s already exists", issue.ID)
		}
		return apperrors.Internal(err, "Failed to create issue")
	}
	return nil
}

func (r issueRepo) Get(ctx context.Context, id string) (*models.Issue, error) {
	var issue models.Issue
	if err := r.col().FindOne(ctx, bson.M{"_id": id}).Decode(&issue); err != nil {
		return nil, notFound(err, "Issue not found")
	}
	return &issue, nil
}

func (r issueRepo) List(ctx context.Context, filters []repositories.IssueFilter, page repositories.Page) ([]models.Issue, int64, error) {
	q := issueQuery(filters)
	total, err := r.col().CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to count issues")
	}

	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size))
	cursor, err := r.col().Find(ctx, q, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to fetch issues")
	}
	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to decode issues")
	}
	return issues, total, nil
}

func (r issueRepo) Count(ctx context.Context, filters []repositories.IssueFilter) (int64, error) {
	n, err := r.col().CountDocuments(ctx, issueQuery(filters))
	if err != nil {
		return 0, apperrors.Internal(err, "Failed to count issues")
	}
	return n, nil
}

func issueSet(p repositories.IssuePatch) bson.M {
	set := bson.M{}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.Category != nil {
		set["category"] = *p.Category
	}
	if p.Priority != nil {
		set["priority"] = *p.Priority
	}
	if p.Location != nil {
		set["location"] = *p.Location
	}
	if p.Coordinates != nil {
		set["coordinates"] = *p.Coordinates
	}
	if p.Status != nil {
		set["status"] = *p.Status
	}
	if p.AssigneeID != nil {
		set["assigneeId"] = *p.AssigneeID
	}
	if p.Department != nil {
		set["department"] = *p.Department
	}
	return set
}

func (r issueRepo) modify(ctx context.Context, filter, update bson.M) (*models.Issue, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var issue models.Issue
	if err := r.col().FindOneAndUpdate(ctx, filter, update, opts).Decode(&issue); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("Issue not found")
		}
		return nil, apperrors.Internal(err, "Failed to update issue")
	}
	return &issue, nil
}

func (r issueRepo) Update(ctx context.Context, id string, patch repositories.IssuePatch) (*models.Issue, error) {
	set := issueSet(patch)
	set["updatedAt"] = r.s.now()
	filter := bson.M{"_id": id}
	if patch.ExpectStatus != nil {
		filter["status"] = *patch.ExpectStatus
	}
	issue, err := r.modify(ctx, filter, bson.M{"$set": set})
	if patch.ExpectStatus != nil && apperrors.IsNotFound(err) {
		if lookupErr := r.s.requireIssue(ctx, id); lookupErr == nil {
			return nil, repositories.StaleStatus()
		} else if !apperrors.IsNotFound(lookupErr) {
			return nil, lookupErr
		}
	}
	return issue, err
}

func (r issueRepo) AppendImages(ctx context.Context, id string, urls []string) (*models.Issue, error) {
	return r.modify(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"images": bson.M{"$each": urls}},
		"$set":  bson.M{"updatedAt": r.s.now()},
	})
}

// Delete removes comments and updates before the issue itself. Outside a
// transaction a failed step leaves the issue in place for a retry.
func (r issueRepo) Delete(ctx context.Context, id string) error {
	if err := r.s.requireIssue(ctx, id); err != nil {
		return err
	}
	for _, name := range []string{commentsCollection, updatesCollection} {
		if _, err := r.s.col(name).DeleteMany(ctx, bson.M{"issueId": id}); err != nil {
			return apperrors.Internal(err, "Failed to delete %s of issue", name)
		}
	}
	res, err := r.col().DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return apperrors.Internal(err, "Failed to delete issue")
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("Issue not found")
	}
	return nil
}

func (r issueRepo) groupBy(ctx context.Context, field string) ([]models.Bucket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$" + field, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}
	cursor, err := r.col().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to group issues by %s", field)
	}
	out := []models.Bucket{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, apperrors.Internal(err, "Failed to decode %s counts", field)
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
	n, err := r.col().CountDocuments(ctx, bson.M{"createdAt": bson.M{"$gte": from, "$lt": to}})
	if err != nil {
		return 0, apperrors.Internal(err, "Failed to count issues")
	}
	return n, nil
}

func (r issueRepo) RecentWithCoordinates(ctx context.Context, limit int) ([]models.Issue, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	cursor, err := r.col().Find(ctx, bson.M{"coordinates": bson.M{"$exists": true, "$ne": nil}}, opts)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to fetch map issues")
	}
	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, apperrors.Internal(err, "Failed to decode map issues")
	}
	return issues, nil
}

func (r issueRepo) aggregate(ctx context.Context, pipeline mongo.Pipeline, out any, what string) error {
	cursor, err := r.col().Aggregate(ctx, pipeline)
	if err != nil {
		return apperrors.Internal(err, "Failed to aggregate %s", what)
	}
	if err := cursor.All(ctx, out); err != nil {
		return apperrors.Internal(err, "Failed to decode %s", what)
	}
	return nil
}

func createdSince(from time.Time) bson.D {
	return bson.D{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": from}}}}
}

func (r issueRepo) CountByDayAndCategory(ctx context.Context, from time.Time) ([]models.CategoryDailyCount, error) {
	pipeline := mongo.Pipeline{
		createdSince(from),
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"date":     bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$createdAt"}},
				"category": "$category",
			},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id.date", Value: 1}, {Key: "_id.category", Value: 1}}}},
	}
	var rows []struct {
		ID struct {
			Date     string `bson:"date"`
			Category string `bson:"category"`
		} `bson:"_id"`
		Count int64 `bson:"count"`
	}
	if err := r.aggregate(ctx, pipeline, &rows, "daily category counts"); err != nil {
		return nil, err
	}
	out := make([]models.CategoryDailyCount, len(rows))
	for i, row := range rows {
		out[i] = models.CategoryDailyCount{Date: row.ID.Date, Category: row.ID.Category, Count: row.Count}
	}
	return out, nil
}

func (r issueRepo) ResolutionStats(ctx context.Context, from time.Time) (time.Duration, int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"status": models.StatusResolved, "createdAt": bson.M{"$gte": from}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"avgMs": bson.M{"$avg": bson.M{"$subtract": bson.A{"$updatedAt", "$createdAt"}}},
			"count": bson.M{"$sum": 1},
		}}},
	}
	var rows []struct {
		AvgMs float64 `bson:"avgMs"`
		Count int64   `bson:"count"`
	}
	if err := r.aggregate(ctx, pipeline, &rows, "resolution times"); err != nil {
		return 0, 0, err
	}
	if len(rows) == 0 {
		return 0, 0, nil
	}
	return time.Duration(rows[0].AvgMs * float64(time.Millisecond)), rows[0].Count, nil
}

func (r issueRepo) TopReporters(ctx context.Context, from time.Time, limit int) ([]models.Bucket, error) {
	pipeline := mongo.Pipeline{
		createdSince(from),
		{{Key: "$group", Value: bson.M{"_id": "$reporterId", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$limit", Value: limit}},
	}
	out := []models.Bucket{}
	if err := r.aggregate(ctx, pipeline, &out, "top reporters"); err != nil {
		return nil, err
	}
	return out, nil
}
