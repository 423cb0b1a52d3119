// Package realtime pushes events to connected websocket clients. Each
// authenticated connection joins the room of its user; broadcasts reach
// every connection.
package realtime

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	EventIssueUpdated = "issue-updated"
	EventNewComment   = "new-comment"
	EventNewIssue     = "new-issue"
	EventNotification = "notification"
)

// Event is the frame written to clients.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

//go:generate mockgen -destination=../mocks/mock_publisher.go -package=mocks civicreport-be/realtime Publisher

// Publisher delivers events on a best-effort basis.
type Publisher interface {
	ToUser(ctx context.Context, userID string, event Event) error
	Broadcast(ctx context.Context, event Event) error
}

// UserRoom names the room a user's connections join.
func UserRoom(userID string) string {
	return "user-" + userID
}

var eventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "civic_realtime_events_total",
		Help: "Realtime events by name and delivery result",
	},
	[]string{"event", "result"},
)
