// Package mongostore implements the repositories on MongoDB. Multi-document
// transactions are used when the deployment supports them (replica set or
// sharded cluster) and they are enabled.
package mongostore

import (
	"context"
	"errors"
	"time"

	"civicreport-be/apperrors"
	"civicreport-be/repositories"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection         = "users"
	issuesCollection        = "issues"
	commentsCollection      = "comments"
	updatesCollection       = "issue_updates"
	notificationsCollection = "notifications"
)

type Store struct {
	db            *mongo.Database
	transactional bool
	now           func() time.Time
}

var _ repositories.Store = (*Store)(nil)

// New wraps db. transactional must only be set when the server supports
// multi-document transactions.
func New(db *mongo.Database, transactional bool) *Store {
	return &Store{db: db, transactional: transactional, now: time.Now}
}

func (s *Store) Users() repositories.UserRepository                 { return userRepo{s} }
func (s *Store) Issues() repositories.IssueRepository               { return issueRepo{s} }
func (s *Store) Comments() repositories.CommentRepository           { return commentRepo{s} }
func (s *Store) IssueUpdates() repositories.IssueUpdateRepository   { return updateRepo{s} }
func (s *Store) Notifications() repositories.NotificationRepository { return notificationRepo{s} }

func (s *Store) Transactional() bool { return s.transactional }

// WithinTx runs fn in a transaction when enabled. The session travels in
// the context, so fn receives the same Store.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repositories.Store) error) error {
	if !s.transactional {
		return fn(ctx, s)
	}
	session, err := s.db.Client().StartSession()
	if err != nil {
		return apperrors.Internal(err, "Failed to start session")
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (any, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Client().Disconnect(ctx)
}

func (s *Store) col(name string) *mongo.Collection { return s.db.Collection(name) }

// EnsureIndexes creates the indexes every query relies on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		issuesCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "reporterId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "assigneeId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		commentsCollection: {
			{Keys: bson.D{{Key: "issueId", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		updatesCollection: {
			{Keys: bson.D{{Key: "issueId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		notificationsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "read", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := s.col(name).Indexes().CreateMany(ctx, models); err != nil {
			return apperrors.Internal(err, "Failed to create indexes on %s", name)
		}
	}
	return nil
}

func newID() string { return primitive.NewObjectID().Hex() }

// notFound converts ErrNoDocuments into a NotFound error.
func notFound(err error, message string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return apperrors.NotFound("%s", message)
	}
	return apperrors.Internal(err, "Query failed")
}

// newestFirst orders newest first with _id as the tie-break; ObjectID hex ids
// grow with insertion time.
var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
