// Package calendar resolves a civil date plus an IANA timezone into the UTC
// windows the aggregation queries need: the local day and the budget period
// (calendar month, or a cycle anchored to a fixed day of the month).
package calendar

import (
	"errors"
	"fmt"
	"time"
	_ "time/tzdata"
)

// DateLayout is the wire format for civil dates.
const DateLayout = "2006-01-02"

var (
	ErrBadDate      = errors.New("date must be formatted as YYYY-MM-DD")
	ErrBadAnchorDay = errors.New("anchor day must be between 1 and 28")
)

// Context describes one day inside a budget period, with every window as a
// UTC instant. DayOfMonth and DaysInMonth are positions within the period:
// for calendar months they are the usual values, for anchored cycles they
// are the 1-based offset into the cycle and the cycle length.
type Context struct {
	Year        int
	Month       int
	DayOfMonth  int
	DaysInMonth int

	DayStart    time.Time
	DayEnd      time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time

	Location *time.Location

	// UTCFallback is set when the requested zone was unknown and UTC was
	// substituted. Callers surface it; resolution never fails on it.
	UTCFallback bool
}

// Resolve computes the day and calendar-month windows for date in the given
// zone. An unknown zone degrades to UTC with UTCFallback set; only a
// malformed date is an error.
func Resolve(date, tz string) (Context, error) {
	loc, fallback := locationFor(tz)
	y, m, d, err := parseDate(date)
	if err != nil {
		return Context{}, err
	}

	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	monthStart := time.Date(y, m, 1, 0, 0, 0, 0, loc)

	return Context{
		Year:        y,
		Month:       int(m),
		DayOfMonth:  d,
		DaysInMonth: daysIn(y, m),
		DayStart:    dayStart.UTC(),
		DayEnd:      dayStart.AddDate(0, 0, 1).Add(-time.Millisecond).UTC(),
		PeriodStart: monthStart.UTC(),
		PeriodEnd:   monthStart.AddDate(0, 1, 0).Add(-time.Millisecond).UTC(),
		Location:    loc,
		UTCFallback: fallback,
	}, nil
}

// ResolveCycle is the anchored-cycle variant: the budget period runs from
// anchorDay of one month to the day before anchorDay of the next. A date
// before the anchor belongs to the cycle that started the previous month.
// anchorDay is capped at 28 so every cycle boundary exists in every month.
func ResolveCycle(date, tz string, anchorDay int) (Context, error) {
	if anchorDay < 1 || anchorDay > 28 {
		return Context{}, fmt.Errorf("%w: got %d", ErrBadAnchorDay, anchorDay)
	}
	loc, fallback := locationFor(tz)
	y, m, d, err := parseDate(date)
	if err != nil {
		return Context{}, err
	}

	// Civil start of the cycle containing the date.
	sy, sm := y, m
	if d < anchorDay {
		prev := time.Date(y, m, 1, 12, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
		sy, sm = prev.Year(), prev.Month()
	}

	// Cycle length and day index over noon-UTC civil dates, so DST shifts
	// in the display zone cannot skew the whole-day subtraction.
	c0 := time.Date(sy, sm, anchorDay, 12, 0, 0, 0, time.UTC)
	c1 := c0.AddDate(0, 1, 0)
	cur := time.Date(y, m, d, 12, 0, 0, 0, time.UTC)

	dayStart := time.Date(y, m, d, 0, 0, 0, 0, loc)
	periodStart := time.Date(sy, sm, anchorDay, 0, 0, 0, 0, loc)

	return Context{
		Year:        sy,
		Month:       int(sm),
		DayOfMonth:  int(cur.Sub(c0).Hours()/24) + 1,
		DaysInMonth: int(c1.Sub(c0).Hours() / 24),
		DayStart:    dayStart.UTC(),
		DayEnd:      dayStart.AddDate(0, 0, 1).Add(-time.Millisecond).UTC(),
		PeriodStart: periodStart.UTC(),
		PeriodEnd:   periodStart.AddDate(0, 1, 0).Add(-time.Millisecond).UTC(),
		Location:    loc,
		UTCFallback: fallback,
	}, nil
}

// Noon returns the local-noon instant for date in the given zone, in UTC.
// Date-only transaction input is posted at noon so the entry lands
// unambiguously inside its day window regardless of DST transitions.
func Noon(date, tz string) (time.Time, error) {
	loc, _ := locationFor(tz)
	y, m, d, err := parseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(y, m, d, 12, 0, 0, 0, loc).UTC(), nil
}

func locationFor(tz string) (*time.Location, bool) {
	if tz == "" || tz == "UTC" {
		return time.UTC, false
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, true
	}
	return loc, false
}

func parseDate(date string) (int, time.Month, int, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("%w: %q", ErrBadDate, date)
	}
	y, m, d := t.Date()
	return y, m, d, nil
}

func daysIn(year int, month time.Month) int {
	// Day zero of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}
