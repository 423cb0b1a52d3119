package mongostore

import (
	"context"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// requireIssue fails with NotFound unless the issue exists.
func (s *Store) requireIssue(ctx context.Context, issueID string) error {
	n, err := s.col(issuesCollection).CountDocuments(ctx, bson.M{"_id": issueID}, options.Count().SetLimit(1))
	if err != nil {
		return apperrors.Internal(err, "Failed to look up issue")
	}
	if n == 0 {
		return apperrors.NotFound("Issue not found")
	}
	return nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	if err := r.s.requireIssue(ctx, comment.IssueID); err != nil {
		return err
	}
	if comment.ID == "" {
		comment.ID = newID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = r.s.now()
	}
	if _, err := r.s.col(commentsCollection).InsertOne(ctx, comment); err != nil {
		return apperrors.Internal(err, "Failed to add comment")
	}
	return nil
}

func (r commentRepo) ListByIssue(ctx context.Context, issueID string) ([]models.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.s.col(commentsCollection).Find(ctx, bson.M{"issueId": issueID}, opts)
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to fetch comments")
	}
	comments := []models.Comment{}
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, apperrors.Internal(err, "Failed to decode comments")
	}
	return comments, nil
}

type updateRepo struct{ s *Store }

func (r updateRepo) Create(ctx context.Context, update *models.IssueUpdate) error {
	if err := r.s.requireIssue(ctx, update.IssueID); err != nil {
		return err
	}
	if update.ID == "" {
		update.ID = newID()
	}
	if update.CreatedAt.IsZero() {
		update.CreatedAt = r.s.now()
	}
	if _, err := r.s.col(updatesCollection).InsertOne(ctx, update); err != nil {
		return apperrors.Internal(err, "Failed to record issue update")
	}
	return nil
}

func (r updateRepo) ListByIssue(ctx context.Context, issueID string) ([]models.IssueUpdate, error) {
	cursor, err := r.s.col(updatesCollection).Find(ctx, bson.M{"issueId": issueID}, options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, apperrors.Internal(err, "Failed to fetch issue updates")
	}
	updates := []models.IssueUpdate{}
	if err := cursor.All(ctx, &updates); err != nil {
		return nil, apperrors.Internal(err, "Failed to decode issue updates")
	}
	return updates, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.s.now()
	}
	if _, err := r.s.col(notificationsCollection).InsertOne(ctx, n); err != nil {
		return apperrors.Internal(err, "Failed to create notification")
	}
	return nil
}

func (r notificationRepo) List(ctx context.Context, userID string, unreadOnly bool, page repositories.Page) ([]models.Notification, int64, error) {
	col := r.s.col(notificationsCollection)
	q := bson.M{"userId": userID}
	if unreadOnly {
		q["read"] = false
	}
	total, err := col.CountDocuments(ctx, q)
	if err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to count notifications")
	}
	opts := options.Find().
		SetSort(newestFirst).
		SetSkip(int64(page.Skip())).
		SetLimit(int64(page.Size))
	cursor, err := col.Find(ctx, q, opts)
	if err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to fetch notifications")
	}
	items := []models.Notification{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to decode notifications")
	}
	return items, total, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	res, err := r.s.col(notificationsCollection).UpdateOne(ctx,
		bson.M{"_id": id, "userId": userID},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return apperrors.Internal(err, "Failed to mark notification read")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}

func (r notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res, err := r.s.col(notificationsCollection).UpdateMany(ctx,
		bson.M{"userId": userID, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, apperrors.Internal(err, "Failed to mark notifications read")
	}
	return res.ModifiedCount, nil
}

func (r notificationRepo) Delete(ctx context.Context, id, userID string) error {
	res, err := r.s.col(notificationsCollection).DeleteOne(ctx, bson.M{"_id": id, "userId": userID})
	if err != nil {
		return apperrors.Internal(err, "Failed to delete notification")
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}

func (r notificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	n, err := r.s.col(notificationsCollection).CountDocuments(ctx, bson.M{"userId": userID, "read": false})
	if err != nil {
		return 0, apperrors.Internal(err, "Failed to count notifications")
	}
	return n, nil
}
