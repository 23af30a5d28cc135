// This file holds the strategies that decide when a due EMI is reminded
// again. Each policy compares the last reminder with the current time and
// the installment's due date.

package services

import (
	"fmt"
	"time"

	"kharcha/internal/core"
)

// Reminder policy names accepted by GetReminderPolicy.
const (
	PolicyOnce  = "once"
	PolicyDaily = "daily"
)

// ReminderPolicy decides whether a due installment should be reminded now.
type ReminderPolicy interface {
	// ShouldRemind reports whether to publish a reminder for an installment
	// due on due, given when it was last reminded (zero if never).
	ShouldRemind(lastReminded, now time.Time, due core.Date) bool
}

// OncePolicy reminds once per installment.
type OncePolicy struct{}

// ShouldRemind returns true unless a reminder was sent on or after the due date.
func (OncePolicy) ShouldRemind(lastReminded, _ time.Time, due core.Date) bool {
	if lastReminded.IsZero() {
		return true
	}
	return core.DateOf(lastReminded).Before(due)
}

// DailyPolicy reminds every day until the installment is paid.
type DailyPolicy struct{}

// ShouldRemind returns true if the last reminder was on an earlier day.
func (DailyPolicy) ShouldRemind(lastReminded, now time.Time, _ core.Date) bool {
	if lastReminded.IsZero() {
		return true
	}
	return !core.DateOf(lastReminded.In(now.Location())).Equal(core.DateOf(now).Time)
}

var reminderPolicies = map[string]ReminderPolicy{
	PolicyOnce:  OncePolicy{},
	PolicyDaily: DailyPolicy{},
}

// GetReminderPolicy returns the policy registered under name.
func GetReminderPolicy(name string) (ReminderPolicy, error) {
	p, ok := reminderPolicies[name]
	if !ok {
		return nil, fmt.Errorf("unknown reminder policy: %s", name)
	}
	return p, nil
}
