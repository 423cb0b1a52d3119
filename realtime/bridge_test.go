package realtime

import (
	"context"
	"testing"
	"time"

	"civicreport-be/testutils"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisBridgeFansOutAcrossHubs(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: testutils.RedisAddr(t)})
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// two instances sharing one channel
	local, remote := NewHub(zap.NewNop(), nil), NewHub(zap.NewNop(), nil)
	publisher := NewRedisBridge(rdb, "civic:test-events", local, zap.NewNop())
	go publisher.Listen(ctx)
	go NewRedisBridge(rdb, "civic:test-events", remote, zap.NewNop()).Listen(ctx)

	alice := remote.newClient("alice", nil)
	remote.join(alice)
	watcher := local.newClient("bob", nil)
	local.join(watcher)

	ev := Event{Name: EventIssueUpdated, Data: map[string]any{"issueId": "i1", "status": "ASSIGNED"}}
	var got Event
	require.Eventually(t, func() bool {
		assert.NoError(t, publisher.ToUser(ctx, "alice", ev))
		select {
		case got = <-alice.send:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, ev.Name, got.Name)
	assert.Equal(t, ev.Data, got.Data)
	assert.Empty(t, watcher.send, "user events stay in the user's room")

	require.NoError(t, publisher.Broadcast(ctx, Event{Name: EventNewIssue}))
	require.Eventually(t, func() bool { return len(watcher.send) == 1 }, 5*time.Second, 10*time.Millisecond)
}
