package models

import "time"

type NotificationType string

const (
	NotificationIssueUpdate NotificationType = "ISSUE_UPDATE"
	NotificationAssignment  NotificationType = "ASSIGNMENT"
	NotificationResolution  NotificationType = "RESOLUTION"
	NotificationGeneral     NotificationType = "GENERAL"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationIssueUpdate, NotificationAssignment, NotificationResolution, NotificationGeneral:
		return true
	}
	return false
}

// Notification belongs exclusively to its recipient.
type Notification struct {
	ID        string           `bson:"_id" json:"id"`
	UserID    string           `bson:"userId" json:"userId"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	Type      NotificationType `bson:"type" json:"type"`
	Read      bool             `bson:"read" json:"read"`
	CreatedAt time.Time        `bson:"createdAt" json:"createdAt"`
}
