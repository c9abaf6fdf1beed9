package core

import "testing"

func TestAgentStatus_CanTransition(t *testing.T) {
	legal := []struct{ from, to AgentStatus }{
		{StatusIdle, StatusRinging},
		{StatusRinging, StatusActive},
		{StatusRinging, StatusCooldown},
		{StatusActive, StatusCooldown},
		{StatusCooldown, StatusIdle},
		{StatusDisabled, StatusIdle},
		{StatusError, StatusIdle},
		// disabled/error reachable from anywhere
		{StatusActive, StatusDisabled},
		{StatusRinging, StatusError},
		{StatusIdle, StatusDisabled},
	}
	for _, tc := range legal {
		if !tc.from.CanTransition(tc.to) {
			t.Errorf("%s -> %s should be legal", tc.from, tc.to)
		}
	}

	illegal := []struct{ from, to AgentStatus }{
		{StatusIdle, StatusActive},
		{StatusIdle, StatusCooldown},
		{StatusActive, StatusIdle},
		{StatusActive, StatusRinging},
		{StatusCooldown, StatusActive},
		{StatusDisabled, StatusRinging},
	}
	for _, tc := range illegal {
		if tc.from.CanTransition(tc.to) {
			t.Errorf("%s -> %s should be illegal", tc.from, tc.to)
		}
	}
}

func TestAgent_QuotaExhausted(t *testing.T) {
	a := Agent{DailyQuota: 2, CallsToday: 1}
	if a.QuotaExhausted() {
		t.Error("quota not yet exhausted")
	}
	a.CallsToday = 2
	if !a.QuotaExhausted() {
		t.Error("quota should be exhausted at the limit")
	}
	// Zero quota means unlimited (receptionist).
	a = Agent{DailyQuota: 0, CallsToday: 500}
	if a.QuotaExhausted() {
		t.Error("zero quota is unlimited")
	}
}

func TestAgentUpdate_Apply(t *testing.T) {
	a := &Agent{ID: "ace", Status: StatusIdle, Schedule: "09:00-11:30", DailyQuota: 40}

	status := StatusDisabled
	quota := 10
	AgentUpdate{Status: &status, DailyQuota: &quota}.Apply(a)

	if a.Status != StatusDisabled || a.DailyQuota != 10 {
		t.Errorf("update not applied: %+v", a)
	}
	if a.Schedule != "09:00-11:30" {
		t.Error("nil fields must be left untouched")
	}
}

func TestAgent_Clone(t *testing.T) {
	a := &Agent{ID: "ace", Territories: []string{"Harris N"}}
	clone := a.Clone()
	clone.Territories[0] = "changed"
	if a.Territories[0] != "Harris N" {
		t.Error("territories must be deep copied")
	}
}
