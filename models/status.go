package models

// IssueStatus enum
type IssueStatus string

const (
	StatusSubmitted    IssueStatus = "SUBMITTED"
	StatusAcknowledged IssueStatus = "ACKNOWLEDGED"
	StatusAssigned     IssueStatus = "ASSIGNED"
	StatusInProgress   IssueStatus = "IN_PROGRESS"
	StatusResolved     IssueStatus = "RESOLVED"
	StatusRejected     IssueStatus = "REJECTED"
)

var IssueStatuses = []IssueStatus{
	StatusSubmitted, StatusAcknowledged, StatusAssigned, StatusInProgress, StatusResolved, StatusRejected,
}

// transitions lists the statuses reachable from each status.
var transitions = map[IssueStatus][]IssueStatus{
	StatusSubmitted:    {StatusAcknowledged, StatusAssigned, StatusRejected},
	StatusAcknowledged: {StatusAssigned, StatusRejected},
	StatusAssigned:     {StatusInProgress, StatusRejected},
	StatusInProgress:   {StatusResolved, StatusRejected},
	StatusResolved:     nil,
	StatusRejected:     nil,
}

func (s IssueStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further transition is possible.
func (s IssueStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// Open reports whether the issue still awaits resolution.
func (s IssueStatus) Open() bool {
	return s.Valid() && !s.Terminal()
}

// CanTransitionTo reports whether moving from s to next is allowed.
func (s IssueStatus) CanTransitionTo(next IssueStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NextStatuses returns the statuses reachable from s.
func (s IssueStatus) NextStatuses() []IssueStatus {
	return append([]IssueStatus(nil), transitions[s]...)
}
