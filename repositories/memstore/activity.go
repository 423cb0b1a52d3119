package memstore

import (
	"context"
	"sort"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/repositories"
)

type commentRepo struct{ s *Store }

func (r commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.issues[comment.IssueID]; !ok {
		return apperrors.NotFound("Issue not found")
	}
	if comment.ID == "" {
		comment.ID = newID()
	}
	if comment.CreatedAt.IsZero() {
		comment.CreatedAt = r.s.now()
	}
	c := *comment
	c.User = nil
	r.s.data.comments[c.ID] = c
	r.s.data.track(c.ID)
	return nil
}

func (r commentRepo) ListByIssue(ctx context.Context, issueID string) ([]models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []models.Comment{}
	for _, c := range r.s.data.comments {
		if c.IssueID == issueID {
			out = append(out, c)
		}
	}
	seq := r.s.data.seq
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return seq[out[i].ID] < seq[out[j].ID]
	})
	return out, nil
}

type updateRepo struct{ s *Store }

func (r updateRepo) Create(ctx context.Context, update *models.IssueUpdate) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.data.issues[update.IssueID]; !ok {
		return apperrors.NotFound("Issue not found")
	}
	if update.ID == "" {
		update.ID = newID()
	}
	if update.CreatedAt.IsZero() {
		update.CreatedAt = r.s.now()
	}
	r.s.data.updates[update.ID] = *update
	r.s.data.track(update.ID)
	return nil
}

func (r updateRepo) ListByIssue(ctx context.Context, issueID string) ([]models.IssueUpdate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []models.IssueUpdate{}
	for _, u := range r.s.data.updates {
		if u.IssueID == issueID {
			out = append(out, u)
		}
	}
	seq := r.s.data.seq
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return seq[out[i].ID] > seq[out[j].ID]
	})
	return out, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if n.ID == "" {
		n.ID = newID()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.s.now()
	}
	r.s.data.notifications[n.ID] = *n
	r.s.data.track(n.ID)
	return nil
}

func (r notificationRepo) List(ctx context.Context, userID string, unreadOnly bool, page repositories.Page) ([]models.Notification, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var all []models.Notification
	for _, n := range r.s.data.notifications {
		if n.UserID != userID || (unreadOnly && n.Read) {
			continue
		}
		all = append(all, n)
	}
	seq := r.s.data.seq
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return seq[all[i].ID] > seq[all[j].ID]
	})
	start, end := page.Window(len(all))
	return all[start:end], int64(len(all)), nil
}

func (r notificationRepo) owned(id, userID string) (models.Notification, error) {
	n, ok := r.s.data.notifications[id]
	if !ok || n.UserID != userID {
		return models.Notification{}, apperrors.NotFound("Notification not found")
	}
	return n, nil
}

func (r notificationRepo) MarkRead(ctx context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, err := r.owned(id, userID)
	if err != nil {
		return err
	}
	n.Read = true
	r.s.data.notifications[id] = n
	return nil
}

func (r notificationRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var changed int64
	for id, n := range r.s.data.notifications {
		if n.UserID == userID && !n.Read {
			n.Read = true
			r.s.data.notifications[id] = n
			changed++
		}
	}
	return changed, nil
}

func (r notificationRepo) Delete(ctx context.Context, id, userID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, err := r.owned(id, userID); err != nil {
		return err
	}
	delete(r.s.data.notifications, id)
	return nil
}

func (r notificationRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, notification := range r.s.data.notifications {
		if notification.UserID == userID && !notification.Read {
			n++
		}
	}
	return n, nil
}
