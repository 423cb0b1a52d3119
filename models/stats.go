package models

import "time"

// Bucket is one group of a count-by aggregation.
type Bucket struct {
	Key   string `bson:"_id" json:"name"`
	Count int64  `bson:"count" json:"count"`
}

// DailyCount is the number of issues created on one calendar day.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// CategoryDailyCount is the number of issues of one category created on one
// calendar day.
type CategoryDailyCount struct {
	Date     string `json:"date"`
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

type ReporterCount struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Count  int64  `json:"count"`
}

// Dashboard summarizes the issue base for staff.
type Dashboard struct {
	TotalIssues      int64        `json:"totalIssues"`
	OpenIssues       int64        `json:"openIssues"`
	ResolvedIssues   int64        `json:"resolvedIssues"`
	RejectedIssues   int64        `json:"rejectedIssues"`
	TotalCitizens    int64        `json:"totalCitizens"`
	ResolutionRate   float64      `json:"resolutionRate"`
	IssuesByCategory []Bucket     `json:"issuesByCategory"`
	IssuesByStatus   []Bucket     `json:"issuesByStatus"`
	Last7Days        []DailyCount `json:"last7Days"`
	RecentIssues     []Issue      `json:"recentIssues"`
}

// Analytics covers issues created in the trailing PeriodDays, starting at
// From. Days are UTC calendar days.
type Analytics struct {
	PeriodDays        int                  `json:"periodDays"`
	From              time.Time            `json:"from"`
	IssuesByDate      []DailyCount         `json:"issuesByDate"`
	CategoryTrends    []CategoryDailyCount `json:"categoryTrends"`
	ResolvedIssues    int64                `json:"resolvedIssues"`
	AvgResolutionDays float64              `json:"avgResolutionTime"`
	TopReporters      []ReporterCount      `json:"topReporters"`
}
