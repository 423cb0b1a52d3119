package pgstore

import (
	"context"
	"testing"

	"civicreport-be/models"
	"civicreport-be/repositories"
	"civicreport-be/repositories/storetest"
	"civicreport-be/testutils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.Open(testutils.PostgresDSN(t)), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// reset drops and recreates every table.
func reset(t *testing.T, db *gorm.DB) *Store {
	t.Helper()
	require.NoError(t, db.Migrator().DropTable(
		&notificationRecord{}, &updateRecord{}, &commentRecord{}, &issueRecord{}, &userRecord{},
	))
	s := New(db)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestStoreBehavior(t *testing.T) {
	db := openDB(t)
	storetest.Run(t, func(t *testing.T) repositories.Store { return reset(t, db) })
}

func TestMigrateIsRepeatable(t *testing.T) {
	db := openDB(t)
	s := reset(t, db)
	require.NoError(t, s.Migrate(context.Background()))
}

func TestNestedTxJoinsOuter(t *testing.T) {
	s := reset(t, openDB(t))
	ctx := context.Background()

	err := s.WithinTx(ctx, func(ctx context.Context, tx repositories.Store) error {
		issue := models.Issue{Title: "outer", Status: models.StatusSubmitted, Category: models.CategoryOther, Priority: models.PriorityLow, ReporterID: "r"}
		if err := tx.Issues().Create(ctx, &issue); err != nil {
			return err
		}
		// Delete runs in the outer transaction instead of opening its own.
		if err := tx.Issues().Delete(ctx, issue.ID); err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	n, err := s.Issues().Count(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSearchEscapesWildcards(t *testing.T) {
	s := reset(t, openDB(t))
	ctx := context.Background()
	for _, title := range []string{"100% blocked drain", "Blocked drain"} {
		issue := models.Issue{Title: title, Status: models.StatusSubmitted, Category: models.CategorySanitation, Priority: models.PriorityLow, ReporterID: "r"}
		require.NoError(t, s.Issues().Create(ctx, &issue))
	}
	n, err := s.Issues().Count(ctx, []repositories.IssueFilter{repositories.SearchFilter{Term: "0%"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
