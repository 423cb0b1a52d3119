package services

import (
	"context"
	"testing"

	"civicreport-be/apperrors"
	"civicreport-be/mocks"
	"civicreport-be/models"
	"civicreport-be/realtime"
	"civicreport-be/repositories"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationsAreOwnedByRecipient(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()

	n, err := f.notifier.Notify(ctx, alice.ID, "Welcome", "Thanks for joining", models.NotificationGeneral)
	require.NoError(t, err)
	assert.False(t, n.Read)
	assert.Equal(t, fixedNow, n.CreatedAt)

	assert.True(t, apperrors.IsNotFound(f.notifier.MarkRead(ctx, n.ID, bob.ID)))
	assert.True(t, apperrors.IsNotFound(f.notifier.Delete(ctx, n.ID, bob.ID)))

	items, total, err := f.notifier.List(ctx, bob.ID, false, repositories.NewPage(1, 20, 20))
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.Zero(t, total)

	require.NoError(t, f.notifier.MarkRead(ctx, n.ID, alice.ID))
	unread, err := f.notifier.UnreadCount(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)

	require.NoError(t, f.notifier.Delete(ctx, n.ID, alice.ID))
	assert.Empty(t, f.notifications(t, alice.ID))
}

func TestMarkAllReadIsIdempotent(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := f.notifier.Notify(ctx, alice.ID, "Ping", "Something happened", models.NotificationGeneral)
		require.NoError(t, err)
	}
	_, err := f.notifier.Notify(ctx, bob.ID, "Ping", "Something happened", models.NotificationGeneral)
	require.NoError(t, err)

	changed, err := f.notifier.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	changed, err = f.notifier.MarkAllRead(ctx, alice.ID)
	require.NoError(t, err)
	assert.Zero(t, changed)

	unread, _ := f.notifier.UnreadCount(ctx, bob.ID)
	assert.Equal(t, int64(1), unread)

	items, total, err := f.notifier.List(ctx, alice.ID, true, repositories.NewPage(1, 20, 20))
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
}

func TestNotifyRejectsUnknownType(t *testing.T) {
	f := newFixture(t, fixtureOptions{})
	_, err := f.notifier.Notify(context.Background(), alice.ID, "Hi", "There", models.NotificationType("SPAM"))
	assert.True(t, apperrors.IsValidation(err))
}

func TestNotifyPushesToRecipient(t *testing.T) {
	ctrl := gomock.NewController(t)
	pub := mocks.NewMockPublisher(ctrl)
	f := newFixture(t, fixtureOptions{pub: pub})

	pub.EXPECT().ToUser(gomock.Any(), bob.ID, eventNamed(realtime.EventNotification)).Return(nil)
	_, err := f.notifier.Notify(context.Background(), bob.ID, "Hi", "There", models.NotificationGeneral)
	require.NoError(t, err)
	f.notifier.Wait()
}
