// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for reminder scheduling. Each
// frequency (daily, weekly, monthly) has its own strategy that encapsulates
// the logic for deciding whether a member is due another reminder.

package services

import (
	"fmt"
	"time"
)

// ReminderScheduler is the strategy interface for reminder pacing. Each
// implementation encapsulates the algorithm for a specific frequency.
type ReminderScheduler interface {
	// IsDue returns true if a new reminder should go out given when the last
	// one was sent and the current time.
	IsDue(lastSent, now time.Time) bool
}

// DailyScheduler implements ReminderScheduler for daily reminders.
type DailyScheduler struct{}

// IsDue returns true if the last reminder went out before today.
func (DailyScheduler) IsDue(lastSent, now time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	return lastSent.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklyScheduler implements ReminderScheduler for weekly reminders.
type WeeklyScheduler struct{}

// IsDue returns true if 7 or more days have passed since the last reminder.
func (WeeklyScheduler) IsDue(lastSent, now time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	daysSince := now.Sub(lastSent).Hours() / 24
	return daysSince >= 7
}

// MonthlyScheduler implements ReminderScheduler for monthly reminders.
type MonthlyScheduler struct{}

// IsDue returns true if the last reminder went out in an earlier month.
func (MonthlyScheduler) IsDue(lastSent, now time.Time) bool {
	if lastSent.IsZero() {
		return true
	}
	return lastSent.Year() != now.Year() || lastSent.Month() != now.Month()
}

// reminderStrategies maps frequency names to their corresponding schedulers.
// This registry enables O(1) lookup and easy extension for new frequencies.
var reminderStrategies = map[string]ReminderScheduler{
	"daily":   DailyScheduler{},
	"weekly":  WeeklyScheduler{},
	"monthly": MonthlyScheduler{},
}

// GetReminderScheduler returns the scheduler for a frequency name.
// Returns an error if the frequency is not supported.
func GetReminderScheduler(frequency string) (ReminderScheduler, error) {
	scheduler, ok := reminderStrategies[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown reminder frequency: %s", frequency)
	}
	return scheduler, nil
}

// RegisterReminderScheduler allows registering custom schedulers for new
// frequencies without modifying this package.
func RegisterReminderScheduler(frequency string, scheduler ReminderScheduler) {
	reminderStrategies[frequency] = scheduler
}
