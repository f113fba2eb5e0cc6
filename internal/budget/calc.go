// Package budget computes the daily spending budget for a point inside a
// budget period. All arithmetic is integer cents; the package never touches
// floats and never errors.
package budget

type (
	// Input carries everything the calculator needs, pre-aggregated by the
	// caller. Cents fields are non-negative sums except where noted; the
	// calculator itself accepts any int64 and stays total.
	Input struct {
		Year        int
		Month       int
		DayOfMonth  int
		DaysInMonth int

		TotalIncomeCents      int64
		SavingGoalCents       int64
		SpentBeforeTodayCents int64
		SpentTodayCents       int64
	}

	// StartOfDay is the picture at local midnight, before today's spending.
	StartOfDay struct {
		AvailableCents              int64 `json:"availableCents"`
		RemainingDaysIncludingToday int   `json:"remainingDaysIncludingToday"`
		DailyTargetCents            int64 `json:"dailyTargetCents"`
	}

	// EndOfDay is the picture after today's spending is applied.
	EndOfDay struct {
		AvailableCents              int64 `json:"availableCents"`
		RemainingDaysExcludingToday int   `json:"remainingDaysExcludingToday"`
		DailyTargetTomorrowCents    int64 `json:"dailyTargetTomorrowCents"`
		RolloverFromTodayCents      int64 `json:"rolloverFromTodayCents"`
	}

	Safety struct {
		Overspend      bool  `json:"overspend"`
		OverspendCents int64 `json:"overspendCents"`
	}

	Result struct {
		StartOfDay StartOfDay `json:"startOfDay"`
		EndOfDay   EndOfDay   `json:"endOfDay"`
		Safety     Safety     `json:"safety"`
	}
)

// Compute derives the daily budget picture from pre-aggregated sums.
//
// The available pool at the start of the day is income minus the saving goal
// minus everything spent before today. Spreading it over the remaining days
// (today included) gives today's target; negative pools divide with
// mathematical floor so the target always errs on the tight side.
func Compute(in Input) Result {
	availableStart := in.TotalIncomeCents - in.SavingGoalCents - in.SpentBeforeTodayCents

	remainingIncl := in.DaysInMonth - in.DayOfMonth + 1
	if remainingIncl < 1 {
		remainingIncl = 1
	}
	dailyTarget := floorDiv(availableStart, int64(remainingIncl))

	availableEnd := availableStart - in.SpentTodayCents

	rollover := dailyTarget - in.SpentTodayCents
	if rollover < 0 {
		rollover = 0
	}

	remainingExcl := in.DaysInMonth - in.DayOfMonth
	if remainingExcl < 0 {
		remainingExcl = 0
	}
	var tomorrowTarget int64
	if remainingExcl > 0 {
		tomorrowTarget = floorDiv(availableEnd, int64(remainingExcl))
	}

	safety := Safety{}
	if availableEnd < 0 {
		safety.Overspend = true
		safety.OverspendCents = -availableEnd
	}

	return Result{
		StartOfDay: StartOfDay{
			AvailableCents:              availableStart,
			RemainingDaysIncludingToday: remainingIncl,
			DailyTargetCents:            dailyTarget,
		},
		EndOfDay: EndOfDay{
			AvailableCents:              availableEnd,
			RemainingDaysExcludingToday: remainingExcl,
			DailyTargetTomorrowCents:    tomorrowTarget,
			RolloverFromTodayCents:      rollover,
		},
		Safety: safety,
	}
}

// floorDiv divides rounding toward negative infinity, unlike Go's
// truncating division: floorDiv(-1, 2) == -1.
func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
