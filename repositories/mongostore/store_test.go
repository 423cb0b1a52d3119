package mongostore

import (
	"context"
	"strings"
	"testing"
	"time"

	"civicreport-be/models"
	"civicreport-be/repositories"
	"civicreport-be/repositories/storetest"
	"civicreport-be/testutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func connect(t *testing.T) *mongo.Client {
	t.Helper()
	uri := testutils.MongoURI(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	require.NoError(t, err)
	require.NoError(t, client.Ping(ctx, nil))
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	return client
}

func fresh(t *testing.T, client *mongo.Client, transactional bool) *Store {
	t.Helper()
	db := client.Database("civic_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	t.Cleanup(func() { _ = db.Drop(context.Background()) })

	s := New(db, transactional)
	require.NoError(t, s.EnsureIndexes(context.Background()))
	return s
}

func TestStoreBehavior(t *testing.T) {
	client := connect(t)
	storetest.Run(t, func(t *testing.T) repositories.Store { return fresh(t, client, true) })
}

func TestStoreWithoutTransactions(t *testing.T) {
	client := connect(t)
	s := fresh(t, client, false)
	require.False(t, s.Transactional())
	storetest.Run(t, func(t *testing.T) repositories.Store { return fresh(t, client, false) })
}

func TestDeleteFailureKeepsIssue(t *testing.T) {
	ctx := context.Background()
	uri := testutils.MongoURI(t)
	const app = "civic-delete-failure"
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetAppName(app))
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })
	s := fresh(t, client, false)

	issue := models.Issue{Title: "Pothole", Status: models.StatusSubmitted, Category: models.CategoryRoad, Priority: models.PriorityLow, ReporterID: "r"}
	require.NoError(t, s.Issues().Create(ctx, &issue))
	require.NoError(t, s.Comments().Create(ctx, &models.Comment{IssueID: issue.ID, UserID: "u", Content: "same here"}))
	require.NoError(t, s.IssueUpdates().Create(ctx, &models.IssueUpdate{IssueID: issue.ID, Status: models.StatusSubmitted, Message: "Opened"}))

	admin := client.Database("admin")
	err = admin.RunCommand(ctx, bson.D{
		{Key: "configureFailPoint", Value: "failCommand"},
		{Key: "mode", Value: bson.D{{Key: "times", Value: 1}}},
		{Key: "data", Value: bson.D{
			{Key: "failCommands", Value: bson.A{"delete"}},
			{Key: "errorCode", Value: 2},
			{Key: "appName", Value: app},
		}},
	}).Err()
	if err != nil {
		t.Skipf("failCommand fail point unavailable: %v", err)
	}
	t.Cleanup(func() {
		_ = admin.RunCommand(context.Background(), bson.D{
			{Key: "configureFailPoint", Value: "failCommand"},
			{Key: "mode", Value: "off"},
		}).Err()
	})

	assert.Error(t, s.Issues().Delete(ctx, issue.ID))
	_, err = s.Issues().Get(ctx, issue.ID)
	require.NoError(t, err, "issue must survive a failed cascade")

	require.NoError(t, s.Issues().Delete(ctx, issue.ID))
	comments, err := s.Comments().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
	updates, err := s.IssueUpdates().ListByIssue(ctx, issue.ID)
	require.NoError(t, err)
	assert.Empty(t, updates)
}
