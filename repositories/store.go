// Package repositories declares the persistence contracts shared by the
// Mongo, Postgres and in-memory stores.
package repositories

import (
	"context"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/models"
)

// Store groups the repositories backed by one database handle.
type Store interface {
	Users() UserRepository
	Issues() IssueRepository
	Comments() CommentRepository
	IssueUpdates() IssueUpdateRepository
	Notifications() NotificationRepository

	// WithinTx runs fn with a Store whose writes commit together or not at
	// all. Stores that cannot transact run fn directly; Transactional tells
	// callers which guarantee they got.
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Transactional() bool

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter UserFilter, page Page) ([]models.User, int64, error)
	Update(ctx context.Context, id string, patch UserPatch) (*models.User, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	// Summaries resolves ids to public summaries; unknown ids are omitted.
	Summaries(ctx context.Context, ids []string) (map[string]models.UserSummary, error)
}

type IssueRepository interface {
	Create(ctx context.Context, issue *models.Issue) error
	Get(ctx context.Context, id string) (*models.Issue, error)
	List(ctx context.Context, filters []IssueFilter, page Page) ([]models.Issue, int64, error)
	Count(ctx context.Context, filters []IssueFilter) (int64, error)
	Update(ctx context.Context, id string, patch IssuePatch) (*models.Issue, error)
	AppendImages(ctx context.Context, id string, urls []string) (*models.Issue, error)
	// Delete removes the issue with its comments and updates.
	Delete(ctx context.Context, id string) error
	CountByStatus(ctx context.Context) ([]models.Bucket, error)
	CountByCategory(ctx context.Context) ([]models.Bucket, error)
	CountCreatedBetween(ctx context.Context, from, to time.Time) (int64, error)
	RecentWithCoordinates(ctx context.Context, limit int) ([]models.Issue, error)

	// CountByDayAndCategory groups issues created at or after from by UTC
	// day and category, ordered by day then category.
	CountByDayAndCategory(ctx context.Context, from time.Time) ([]models.CategoryDailyCount, error)
	// ResolutionStats averages updatedAt minus createdAt over RESOLVED issues
	// created at or after from.
	ResolutionStats(ctx context.Context, from time.Time) (avg time.Duration, resolved int64, err error)
	// TopReporters counts issues created at or after from per reporter, most
	// first with ties broken by reporter id.
	TopReporters(ctx context.Context, from time.Time, limit int) ([]models.Bucket, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	// ListByIssue returns comments oldest first.
	ListByIssue(ctx context.Context, issueID string) ([]models.Comment, error)
}

type IssueUpdateRepository interface {
	Create(ctx context.Context, update *models.IssueUpdate) error
	// ListByIssue returns updates newest first.
	ListByIssue(ctx context.Context, issueID string) ([]models.IssueUpdate, error)
}

// NotificationRepository scopes every read and write by recipient.
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	List(ctx context.Context, userID string, unreadOnly bool, page Page) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
	Delete(ctx context.Context, id, userID string) error
	CountUnread(ctx context.Context, userID string) (int64, error)
}

// IssuePatch holds the fields to change; nil means untouched.
type IssuePatch struct {
	Title       *string
	Description *string
	Category    *models.IssueCategory
	Priority    *models.IssuePriority
	Location    *string
	Coordinates *models.Coordinates
	Status      *models.IssueStatus
	AssigneeID  *string
	Department  *string

	// ExpectStatus, when set, makes the update apply only while the stored
	// status still equals it. A mismatch fails with StaleStatus.
	ExpectStatus *models.IssueStatus
}

// StaleStatus is returned when an update's ExpectStatus no longer holds.
func StaleStatus() error {
	return apperrors.Conflict("Issue status changed concurrently, reload and retry")
}

func (p IssuePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Category == nil && p.Priority == nil &&
		p.Location == nil && p.Coordinates == nil && p.Status == nil && p.AssigneeID == nil && p.Department == nil
}

// Apply copies the set fields onto issue.
func (p IssuePatch) Apply(issue *models.Issue) {
	if p.Title != nil {
		issue.Title = *p.Title
	}
	if p.Description != nil {
		issue.Description = *p.Description
	}
	if p.Category != nil {
		issue.Category = *p.Category
	}
	if p.Priority != nil {
		issue.Priority = *p.Priority
	}
	if p.Location != nil {
		issue.Location = *p.Location
	}
	if p.Coordinates != nil {
		c := *p.Coordinates
		issue.Coordinates = &c
	}
	if p.Status != nil {
		issue.Status = *p.Status
	}
	if p.AssigneeID != nil {
		id := *p.AssigneeID
		issue.AssigneeID = &id
	}
	if p.Department != nil {
		issue.Department = *p.Department
	}
}

type UserPatch struct {
	Name     *string
	Phone    *string
	Password *string // already hashed
	Role     *models.Role
}

type UserFilter struct {
	Role   models.Role
	Search string
}
