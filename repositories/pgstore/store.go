// Package pgstore implements the repositories on PostgreSQL through gorm.
package pgstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/repositories"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Store struct {
	db   *gorm.DB
	inTx bool
	now  func() time.Time
}

var _ repositories.Store = (*Store)(nil)

// New wraps db. The handle should be opened with TranslateError so unique
// violations surface as gorm.ErrDuplicatedKey.
func New(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&userRecord{},
		&issueRecord{},
		&commentRecord{},
		&updateRecord{},
		&notificationRecord{},
	)
	if err != nil {
		return apperrors.Internal(err, "Failed to migrate schema")
	}
	return nil
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
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &Store{db: tx, inTx: true, now: s.now})
	})
}

// atomically runs fn inside the current transaction or a new one.
func (s *Store) atomically(ctx context.Context, fn func(db *gorm.DB) error) error {
	if s.inTx {
		return fn(s.db.WithContext(ctx))
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

func (s *Store) conn(ctx context.Context) *gorm.DB { return s.db.WithContext(ctx) }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newID() string { return uuid.NewString() }

func notFound(err error, message string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("%s", message)
	}
	return apperrors.Internal(err, "Query failed")
}

// contains builds an ILIKE pattern matching term literally.
func contains(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

const newestFirst = "created_at DESC, seq DESC"
