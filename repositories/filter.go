package repositories

import (
	"strings"

	"civicreport-be/apperrors"
	"civicreport-be/models"
)

// IssueFilter is one dimension of an issue query. The concrete types below
// are the only implementations; stores switch on them.
type IssueFilter interface {
	issueFilter()
}

type StatusFilter struct{ Status models.IssueStatus }
type CategoryFilter struct{ Category models.IssueCategory }
type PriorityFilter struct{ Priority models.IssuePriority }
type ReporterFilter struct{ ReporterID string }
type AssigneeFilter struct{ AssigneeID string }

// SearchFilter matches a case-insensitive substring of title, description
// or location.
type SearchFilter struct{ Term string }

func (StatusFilter) issueFilter()   {}
func (CategoryFilter) issueFilter() {}
func (PriorityFilter) issueFilter() {}
func (ReporterFilter) issueFilter() {}
func (AssigneeFilter) issueFilter() {}
func (SearchFilter) issueFilter()   {}

// IssueQuery carries raw list parameters as received from a client.
type IssueQuery struct {
	Status     string
	Category   string
	Priority   string
	Search     string
	ReporterID string
	AssigneeID string
}

func absent(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "all")
}

// BuildIssueFilters turns query parameters into typed filters. Empty values
// and "all" are ignored; unknown enum values are a validation error.
func BuildIssueFilters(q IssueQuery) ([]IssueFilter, error) {
	var filters []IssueFilter

	if !absent(q.Status) {
		s := models.IssueStatus(strings.ToUpper(strings.TrimSpace(q.Status)))
		if !s.Valid() {
			return nil, apperrors.Validation("Invalid status filter %q", q.Status)
		}
		filters = append(filters, StatusFilter{Status: s})
	}
	if !absent(q.Category) {
		c := models.IssueCategory(strings.ToUpper(strings.TrimSpace(q.Category)))
		if !c.Valid() {
			return nil, apperrors.Validation("Invalid category filter %q", q.Category)
		}
		filters = append(filters, CategoryFilter{Category: c})
	}
	if !absent(q.Priority) {
		p := models.IssuePriority(strings.ToUpper(strings.TrimSpace(q.Priority)))
		if !p.Valid() {
			return nil, apperrors.Validation("Invalid priority filter %q", q.Priority)
		}
		filters = append(filters, PriorityFilter{Priority: p})
	}
	if !absent(q.ReporterID) {
		filters = append(filters, ReporterFilter{ReporterID: strings.TrimSpace(q.ReporterID)})
	}
	if !absent(q.AssigneeID) {
		filters = append(filters, AssigneeFilter{AssigneeID: strings.TrimSpace(q.AssigneeID)})
	}
	if term := strings.TrimSpace(q.Search); term != "" {
		filters = append(filters, SearchFilter{Term: term})
	}
	return filters, nil
}

// MatchIssue evaluates filters against an in-memory issue.
func MatchIssue(issue models.Issue, filters []IssueFilter) bool {
	for _, f := range filters {
		switch f := f.(type) {
		case StatusFilter:
			if issue.Status != f.Status {
				return false
			}
		case CategoryFilter:
			if issue.Category != f.Category {
				return false
			}
		case PriorityFilter:
			if issue.Priority != f.Priority {
				return false
			}
		case ReporterFilter:
			if issue.ReporterID != f.ReporterID {
				return false
			}
		case AssigneeFilter:
			if issue.AssigneeID == nil || *issue.AssigneeID != f.AssigneeID {
				return false
			}
		case SearchFilter:
			term := strings.ToLower(f.Term)
			if !strings.Contains(strings.ToLower(issue.Title), term) &&
				!strings.Contains(strings.ToLower(issue.Description), term) &&
				!strings.Contains(strings.ToLower(issue.Location), term) {
				return false
			}
		}
	}
	return true
}
