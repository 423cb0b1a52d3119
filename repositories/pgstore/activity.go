package pgstore

import (
	"context"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"

	"gorm.io/gorm"
)

func (s *Store) requireIssue(ctx context.Context, issueID string) error {
	var n int64
	if err := s.conn(ctx).Model(&issueRecord{}).Where("id = ?", issueID).Limit(1).Count(&n).Error; err != nil {
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
	rec := commentRecord{
		ID:        comment.ID,
		IssueID:   comment.IssueID,
		UserID:    comment.UserID,
		Content:   comment.Content,
		CreatedAt: comment.CreatedAt,
	}
	if err := r.s.conn(ctx).Create(&rec).Error; err != nil {
		return apperrors.Internal(err, "Failed to add comment")
	}
	return nil
}

func (r commentRepo) ListByIssue(ctx context.Context, issueID string) ([]models.Comment, error) {
	var recs []commentRecord
	if err := r.s.conn(ctx).Where("issue_id = ?", issueID).Order("created_at ASC, seq ASC").Find(&recs).Error; err != nil {
		return nil, apperrors.Internal(err, "Failed to fetch comments")
	}
	out := make([]models.Comment, len(recs))
	for i, rec := range recs {
		out[i] = rec.model()
	}
	return out, nil
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
	rec := updateRecord{
		ID:        update.ID,
		IssueID:   update.IssueID,
		Status:    string(update.Status),
		Message:   update.Message,
		CreatedAt: update.CreatedAt,
	}
	if err := r.s.conn(ctx).Create(&rec).Error; err != nil {
		return apperrors.Internal(err, "Failed to record issue update")
	}
	return nil
}

func (r updateRepo) ListByIssue(ctx context.Context, issueID string) ([]models.IssueUpdate, error) {
	var recs []updateRecord
	if err := r.s.conn(ctx).Where("issue_id = ?", issueID).Order(newestFirst).Find(&recs).Error; err != nil {
		return nil, apperrors.Internal(err, "Failed to fetch issue updates")
	}
	out := make([]models.IssueUpdate, len(recs))
	for i, rec := range recs {
		out[i] = rec.model()
	}
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.s.now()
	}
	rec := notificationRecord{
		ID:        n.ID,
		UserID:    n.UserID,
		Title:     n.Title,
		Message:   n.Message,
		Type:      string(n.Type),
		Read:      n.Read,
		CreatedAt: n.CreatedAt,
	}
	if err := r.s.conn(ctx).Create(&rec).Error; err != nil {
		return apperrors.Internal(err, "Failed to create notification")
	}
	return nil
}

func (r notificationRepo) List(ctx context.Context, userID string, unreadOnly bool, page repositories.Page) ([]models.Notification, int64, error) {
	q := r.s.conn(ctx).Model(&notificationRecord{}).Where("user_id = ?", userID)
	if unreadOnly {
		q = q.Where("read = ?", false)
	}
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to count notifications")
	}
	var recs []notificationRecord
	if err := q.Order(newestFirst).Offset(page.Skip()).Limit(page.Size).Find(&recs).Error; err != nil {
		return nil, 0, apperrors.Internal(err, "Failed to fetch notifications")
	}
	out := make([]models.Notification, len(recs))
	for i, rec := range recs {
		out[i] = rec.model()
	}
	return out, total, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	res := r.s.conn(ctx).Model(&notificationRecord{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if res.Error != nil {
		return apperrors.Internal(res.Error, "Failed to mark notification read")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}

func (r notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := r.s.conn(ctx).Model(&notificationRecord{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if res.Error != nil {
		return 0, apperrors.Internal(res.Error, "Failed to mark notifications read")
	}
	return res.RowsAffected, nil
}

func (r notificationRepo) Delete(ctx context.Context, id, userID string) error {
	res := r.s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&notificationRecord{})
	if res.Error != nil {
		return apperrors.Internal(res.Error, "Failed to delete notification")
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}

func (r notificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := r.s.conn(ctx).Model(&notificationRecord{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, apperrors.Internal(err, "Failed to count notifications")
	}
	return n, nil
}
