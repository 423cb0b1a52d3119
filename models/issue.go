package models

import (
	"time"
)

// IssueCategory enum
type IssueCategory string

const (
	CategoryRoad        IssueCategory = "ROAD"
	CategoryStreetlight IssueCategory = "STREETLIGHT"
	CategoryWater       IssueCategory = "WATER"
	CategorySanitation  IssueCategory = "SANITATION"
	CategoryOther       IssueCategory = "OTHER"
)

var IssueCategories = []IssueCategory{
	CategoryRoad, CategoryStreetlight, CategoryWater, CategorySanitation, CategoryOther,
}

func (c IssueCategory) Valid() bool {
	for _, v := range IssueCategories {
		if c == v {
			return true
		}
	}
	return false
}

// IssuePriority enum
type IssuePriority string

const (
	PriorityHigh   IssuePriority = "HIGH"
	PriorityMedium IssuePriority = "MEDIUM"
	PriorityLow    IssuePriority = "LOW"
)

func (p IssuePriority) Valid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Coordinates is an optional lat/lng pair attached to an issue.
type Coordinates struct {
	Lat float64 `bson:"lat" json:"lat" binding:"gte=-90,lte=90" validate:"gte=-90,lte=90"`
	Lng float64 `bson:"lng" json:"lng" binding:"gte=-180,lte=180" validate:"gte=-180,lte=180"`
}

// UserSummary is the public projection of a user embedded in issue reads.
type UserSummary struct {
	ID    string `bson:"_id" json:"id"`
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
}

// Issue represents a civic issue reported by a citizen
type Issue struct {
	ID          string        `bson:"_id" json:"id"`
	Title       string        `bson:"title" json:"title"`
	Description string        `bson:"description" json:"description"`
	Category    IssueCategory `bson:"category" json:"category"`
	Status      IssueStatus   `bson:"status" json:"status"`
	Priority    IssuePriority `bson:"priority" json:"priority"`
	Location    string        `bson:"location" json:"location"`
	Coordinates *Coordinates  `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Images      []string      `bson:"images" json:"images"`
	ReporterID  string        `bson:"reporterId" json:"reporterId"`
	AssigneeID  *string       `bson:"assigneeId,omitempty" json:"assigneeId,omitempty"`
	Department  string        `bson:"department,omitempty" json:"department,omitempty"`
	CreatedAt   time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time     `bson:"updatedAt" json:"updatedAt"`

	// Populated on reads, never persisted.
	Reporter *UserSummary `bson:"-" json:"reporter,omitempty"`
	Assignee *UserSummary `bson:"-" json:"assignee,omitempty"`
}

// IssueDetail is an issue together with its discussion and audit trail.
type IssueDetail struct {
	Issue
	Comments []Comment     `json:"comments"`
	Updates  []IssueUpdate `json:"updates"`
}

// IssuePin is the map projection of an issue with coordinates.
type IssuePin struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Location  string        `json:"location"`
	Category  IssueCategory `json:"category"`
	Status    IssueStatus   `json:"status"`
	CreatedAt time.Time     `json:"createdAt"`
}

// Pin projects the issue for map display; ok is false without coordinates.
func (i Issue) Pin() (IssuePin, bool) {
	if i.Coordinates == nil {
		return IssuePin{}, false
	}
	return IssuePin{
		ID:        i.ID,
		Title:     i.Title,
		Latitude:  i.Coordinates.Lat,
		Longitude: i.Coordinates.Lng,
		Location:  i.Location,
		Category:  i.Category,
		Status:    i.Status,
		CreatedAt: i.CreatedAt,
	}, true
}
