// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for recurring-transaction
// dueness checking. Each frequency (daily, weekly, monthly, yearly) has its
// own schedule encapsulating the logic for when a template fires.

package services

import (
	"fmt"
	"time"

	"dailyspend/internal/core"
)

// Schedule is the strategy interface deciding whether a recurring
// transaction is due given its last materialization and the current time.
type Schedule interface {
	// Due returns true if the template should be materialized now.
	Due(lastRun, now time.Time, startDate core.Date) bool
}

// DailySchedule fires once per calendar day.
type DailySchedule struct{}

// Due returns true if the last run was before today.
func (DailySchedule) Due(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	return lastRun.Format("2006-01-02") != now.Format("2006-01-02")
}

// WeeklySchedule fires every seven days.
type WeeklySchedule struct{}

// Due returns true if 7 or more days have passed since the last run.
func (WeeklySchedule) Due(lastRun, now time.Time, _ core.Date) bool {
	if lastRun.IsZero() {
		return true
	}
	daysSince := now.Sub(lastRun).Hours() / 24
	return daysSince >= 7
}

// MonthlySchedule fires on the start date's day of month, clamped to the
// last day of shorter months.
type MonthlySchedule struct{}

// Due returns true if we're in a new month and have reached the target day.
func (MonthlySchedule) Due(lastRun, now time.Time, startDate core.Date) bool {
	if lastRun.IsZero() {
		return true
	}

	// Already materialized this month?
	if lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}

	// Clamp the target day for months that don't have it (e.g. the 31st)
	targetDay := startDate.Day()
	lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if targetDay > lastDayOfMonth {
		targetDay = lastDayOfMonth
	}

	return now.Day() >= targetDay
}

// YearlySchedule fires on the start date's month and day each year.
type YearlySchedule struct{}

// Due returns true if we're in a new year and have reached the target month and day.
func (YearlySchedule) Due(lastRun, now time.Time, startDate core.Date) bool {
	if lastRun.IsZero() {
		return true
	}

	// Already materialized this year?
	if lastRun.Year() == now.Year() {
		return false
	}

	targetMonth := int(startDate.Month())
	targetDay := startDate.Day()

	if int(now.Month()) < targetMonth {
		return false
	}

	if int(now.Month()) == targetMonth {
		lastDayOfMonth := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if targetDay > lastDayOfMonth {
			targetDay = lastDayOfMonth
		}
		return now.Day() >= targetDay
	}

	// We're past the target month
	return true
}

// schedules maps frequencies to their corresponding strategies.
var schedules = map[core.Frequency]Schedule{
	core.Daily:   DailySchedule{},
	core.Weekly:  WeeklySchedule{},
	core.Monthly: MonthlySchedule{},
	core.Yearly:  YearlySchedule{},
}

// ScheduleFor returns the schedule for a frequency.
// Returns an error if the frequency is not supported.
func ScheduleFor(frequency core.Frequency) (Schedule, error) {
	s, ok := schedules[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return s, nil
}

// RegisterSchedule allows registering custom schedules for new frequency
// types without touching the registry.
func RegisterSchedule(frequency core.Frequency, s Schedule) {
	schedules[frequency] = s
}
