// Package memstore keeps every record in process memory. Transactions work
// on a private copy of the data set that replaces the live one on success.
package memstore

import (
	"context"
	"sync"
	"time"

	"civicreport-be/models"
	"civicreport-be/repositories"

	"github.com/google/uuid"
)

type dataset struct {
	users         map[string]models.User
	issues        map[string]models.Issue
	comments      map[string]models.Comment
	updates       map[string]models.IssueUpdate
	notifications map[string]models.Notification
	// seq records insertion order to break CreatedAt ties.
	seq  map[string]int64
	next int64
}

func newDataset() *dataset {
	return &dataset{
		users:         map[string]models.User{},
		issues:        map[string]models.Issue{},
		comments:      map[string]models.Comment{},
		updates:       map[string]models.IssueUpdate{},
		notifications: map[string]models.Notification{},
		seq:           map[string]int64{},
	}
}

func (d *dataset) clone() *dataset {
	c := newDataset()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.issues {
		c.issues[k] = cloneIssue(v)
	}
	for k, v := range d.comments {
		c.comments[k] = v
	}
	for k, v := range d.updates {
		c.updates[k] = v
	}
	for k, v := range d.notifications {
		c.notifications[k] = v
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	c.next = d.next
	return c
}

func (d *dataset) track(id string) {
	d.next++
	d.seq[id] = d.next
}

func cloneIssue(i models.Issue) models.Issue {
	i.Images = append([]string{}, i.Images...)
	if i.Coordinates != nil {
		c := *i.Coordinates
		i.Coordinates = &c
	}
	if i.AssigneeID != nil {
		a := *i.AssigneeID
		i.AssigneeID = &a
	}
	i.Reporter, i.Assignee = nil, nil
	return i
}

// Store is a repositories.Store held in memory.
type Store struct {
	mu   *sync.RWMutex
	data *dataset
	inTx bool
	now  func() time.Time
}

var _ repositories.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.RWMutex{}, data: newDataset(), now: time.Now}
}

func (s *Store) Users() repositories.UserRepository                 { return userRepo{s} }
func (s *Store) Issues() repositories.IssueRepository               { return issueRepo{s} }
func (s *Store) Comments() repositories.CommentRepository           { return commentRepo{s} }
func (s *Store) IssueUpdates() repositories.IssueUpdateRepository   { return updateRepo{s} }
func (s *Store) Notifications() repositories.NotificationRepository { return notificationRepo{s} }

func (s *Store) Transactional() bool { return true }

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if s.inTx {
		return fn(ctx, s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &Store{mu: &sync.RWMutex{}, data: s.data.clone(), inTx: true, now: s.now}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	s.data = tx.data
	return nil
}

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }

func newID() string { return uuid.NewString() }
