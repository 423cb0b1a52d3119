package models

import "time"

// Comment is an append-only message on an issue.
type Comment struct {
	ID        string    `bson:"_id" json:"id"`
	Content   string    `bson:"content" json:"content"`
	IssueID   string    `bson:"issueId" json:"issueId"`
	UserID    string    `bson:"userId" json:"userId"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`

	User *UserSummary `bson:"-" json:"user,omitempty"`
}

// IssueUpdate is one entry of an issue's audit trail.
type IssueUpdate struct {
	ID        string      `bson:"_id" json:"id"`
	IssueID   string      `bson:"issueId" json:"issueId"`
	Status    IssueStatus `bson:"status" json:"status"`
	Message   string      `bson:"message" json:"message"`
	CreatedAt time.Time   `bson:"createdAt" json:"createdAt"`
}
