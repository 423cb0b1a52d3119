package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	cases := []struct {
		from, to IssueStatus
		allowed  bool
	}{
		{StatusSubmitted, StatusAcknowledged, true},
		{StatusSubmitted, StatusAssigned, true},
		{StatusSubmitted, StatusRejected, true},
		{StatusSubmitted, StatusInProgress, false},
		{StatusSubmitted, StatusResolved, false},
		{StatusAcknowledged, StatusAssigned, true},
		{StatusAcknowledged, StatusRejected, true},
		{StatusAcknowledged, StatusInProgress, false},
		{StatusAssigned, StatusInProgress, true},
		{StatusAssigned, StatusRejected, true},
		{StatusAssigned, StatusResolved, false},
		{StatusInProgress, StatusResolved, true},
		{StatusInProgress, StatusRejected, true},
		{StatusInProgress, StatusAssigned, false},
		{StatusResolved, StatusInProgress, false},
		{StatusRejected, StatusSubmitted, false},
		{StatusSubmitted, StatusSubmitted, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.allowed, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTerminalStatuses(t *testing.T) {
	assert.True(t, StatusResolved.Terminal())
	assert.True(t, StatusRejected.Terminal())
	assert.False(t, StatusSubmitted.Terminal())
	assert.True(t, StatusInProgress.Open())
	assert.False(t, IssueStatus("DONE").Valid())
	assert.False(t, IssueStatus("DONE").Open())
}

func TestRoles(t *testing.T) {
	assert.False(t, RoleCitizen.IsStaff())
	assert.True(t, RoleDepartment.IsStaff())
	assert.False(t, RoleDepartment.IsAdmin())
	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.False(t, Role("ROOT").Valid())
}

func TestPasswordHashing(t *testing.T) {
	u := User{Password: "secret123"}
	assert.NoError(t, u.HashPassword())
	assert.NotEqual(t, "secret123", u.Password)
	assert.True(t, u.ComparePassword("secret123"))
	assert.False(t, u.ComparePassword("wrong"))
}
