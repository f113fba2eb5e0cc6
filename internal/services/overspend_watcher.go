package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dailyspend/internal/amqp"
	"dailyspend/internal/calendar"
	"dailyspend/internal/ledger"
)

// OverspendWatcher reacts to ledger events by recomputing the owner's day
// summary and warning when the day ends overspent. It is the worker-side
// consumer of the event stream; delivery beyond the log is out of scope.
type OverspendWatcher struct {
	summaries *SummaryService
	profiles  ledger.ProfileStore
}

func NewOverspendWatcher(summaries *SummaryService, profiles ledger.ProfileStore) *OverspendWatcher {
	return &OverspendWatcher{
		summaries: summaries,
		profiles:  profiles,
	}
}

// HandleEvent recomputes the summary for the event's user and day.
// Returning an error requeues the delivery.
func (w *OverspendWatcher) HandleEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	profile, err := w.profiles.Profile(ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	loc, err := time.LoadLocation(profile.Timezone)
	if err != nil {
		loc = time.UTC
	}
	date := event.OccurredAt.In(loc).Format(calendar.DateLayout)

	summary, err := w.summaries.DailySummary(ctx, event.UserID, date, 0)
	if err != nil {
		return fmt.Errorf("recompute summary: %w", err)
	}

	if summary.Data.Safety.Overspend {
		slog.WarnContext(ctx, "Day ended overspent",
			"user_id", event.UserID,
			"date", date,
			"overspend_cents", summary.Data.Safety.OverspendCents)
	} else {
		slog.DebugContext(ctx, "Summary recomputed after ledger event",
			"user_id", event.UserID,
			"date", date,
			"available_end_cents", summary.Data.EndOfDay.AvailableCents)
	}

	return nil
}
