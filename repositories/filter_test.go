package repositories

import (
	"math"
	"testing"

	"civicreport-be/apperrors"
	"civicreport-be/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildIssueFiltersIgnoresAbsentValues(t *testing.T) {
	filters, err := BuildIssueFilters(IssueQuery{Status: "all", Category: "", Priority: "ALL", Search: "  "})
	require.NoError(t, err)
	assert.Empty(t, filters)
}

func TestBuildIssueFilters(t *testing.T) {
	filters, err := BuildIssueFilters(IssueQuery{
		Status:     "in_progress",
		Category:   "WATER",
		Priority:   "high",
		Search:     "pipe",
		ReporterID: "u1",
		AssigneeID: "d1",
	})
	require.NoError(t, err)
	assert.Equal(t, []IssueFilter{
		StatusFilter{Status: models.StatusInProgress},
		CategoryFilter{Category: models.CategoryWater},
		PriorityFilter{Priority: models.PriorityHigh},
		ReporterFilter{ReporterID: "u1"},
		AssigneeFilter{AssigneeID: "d1"},
		SearchFilter{Term: "pipe"},
	}, filters)
}

func TestBuildIssueFiltersRejectsUnknownEnums(t *testing.T) {
	for _, q := range []IssueQuery{{Status: "DONE"}, {Category: "PARKS"}, {Priority: "URGENT"}} {
		_, err := BuildIssueFilters(q)
		assert.True(t, apperrors.IsValidation(err), "%+v", q)
	}
}

func TestMatchIssue(t *testing.T) {
	assignee := "d1"
	issue := models.Issue{
		Title:       "Leaking pipe",
		Description: "Water everywhere",
		Location:    "Main Road, Ranchi",
		Status:      models.StatusAssigned,
		Category:    models.CategoryWater,
		Priority:    models.PriorityHigh,
		ReporterID:  "u1",
		AssigneeID:  &assignee,
	}

	assert.True(t, MatchIssue(issue, nil))
	assert.True(t, MatchIssue(issue, []IssueFilter{SearchFilter{Term: "ranchi"}}))
	assert.True(t, MatchIssue(issue, []IssueFilter{SearchFilter{Term: "WATER"}, AssigneeFilter{AssigneeID: "d1"}}))
	assert.False(t, MatchIssue(issue, []IssueFilter{StatusFilter{Status: models.StatusSubmitted}}))
	assert.False(t, MatchIssue(issue, []IssueFilter{ReporterFilter{ReporterID: "u2"}}))
	assert.False(t, MatchIssue(models.Issue{}, []IssueFilter{AssigneeFilter{AssigneeID: "d1"}}))
}

func TestPage(t *testing.T) {
	p := NewPage(2, 10, 20)
	assert.Equal(t, 10, p.Skip())
	assert.Equal(t, int64(3), p.Pages(21))

	start, end := p.Window(15)
	assert.Equal(t, 10, start)
	assert.Equal(t, 15, end)

	start, end = NewPage(5, 10, 20).Window(15)
	assert.Equal(t, 15, start)
	assert.Equal(t, 15, end)

	assert.Equal(t, Page{Number: 1, Size: 20}, NewPage(0, 500, 20))
}

func TestPageHugeNumberStaysInRange(t *testing.T) {
	p := NewPage(math.MaxInt, 10, 20)
	assert.GreaterOrEqual(t, p.Skip(), 0)

	start, end := p.Window(15)
	assert.Equal(t, 15, start)
	assert.Equal(t, 15, end)

	start, end = Page{Number: math.MaxInt, Size: 100}.Window(3)
	assert.Equal(t, 3, start)
	assert.Equal(t, 3, end)

	start, end = Page{Number: -4, Size: 10}.Window(3)
	assert.Equal(t, 0, start)
	assert.Equal(t, 3, end)
}
