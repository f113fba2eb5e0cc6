package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dailyspend/internal/calendar"
	"dailyspend/internal/core"
	"dailyspend/internal/ledger"
)

// RecurringProcessor materializes due recurring templates into real ledger
// entries. It runs from the worker binary on a ticker.
type RecurringProcessor struct {
	recurring ledger.RecurringStore
	profiles  ledger.ProfileStore
	ledger    *LedgerService
}

// NewRecurringProcessor creates a new recurring transaction processor
func NewRecurringProcessor(recurring ledger.RecurringStore, profiles ledger.ProfileStore, ledgerService *LedgerService) *RecurringProcessor {
	return &RecurringProcessor{
		recurring: recurring,
		profiles:  profiles,
		ledger:    ledgerService,
	}
}

// ProcessDue materializes every active template that is due at now and
// returns how many entries were created. Individual template failures are
// logged and skipped so one bad row cannot stall the rest.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.recurring == nil || p.ledger == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.recurring.ActiveRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get active recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring transactions",
		"total_active", len(templates),
		"processing_date", now.Format("2006-01-02"))

	processedCount := 0

	for _, rt := range templates {
		if !rt.StartDate.IsZero() && now.Before(rt.StartDate.Time) {
			continue
		}
		if !rt.EndDate.IsZero() && now.After(rt.EndDate.Time) {
			continue
		}

		schedule, err := ScheduleFor(rt.Every)
		if err != nil {
			slog.ErrorContext(ctx, "Unknown frequency on recurring template",
				"id", rt.ID,
				"frequency", rt.Every)
			continue
		}

		lastRun, err := p.recurring.LastRun(ctx, rt.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read last run",
				"id", rt.ID,
				"error", err)
			continue
		}

		if !schedule.Due(lastRun, now, rt.StartDate) {
			continue
		}

		_, err = p.ledger.Record(ctx, core.Transaction{
			UserID:      rt.UserID,
			Kind:        rt.Kind,
			PostedAt:    p.postingInstant(ctx, rt.UserID, now),
			Description: rt.Description,
			Amount:      rt.Amount,
			Category:    rt.Category,
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to create transaction from recurring template",
				"recurring_id", rt.ID,
				"description", rt.Description,
				"error", err)
			continue
		}

		if err := p.recurring.MarkRun(ctx, rt.ID, now); err != nil {
			slog.ErrorContext(ctx, "Failed to update last run",
				"recurring_id", rt.ID,
				"error", err)
			// Continue anyway - the entry was created successfully
		}

		processedCount++
		slog.InfoContext(ctx, "Created transaction from recurring template",
			"recurring_id", rt.ID,
			"description", rt.Description,
			"amount_cents", rt.Amount.Cents,
			"frequency", rt.Every)
	}

	slog.InfoContext(ctx, "Recurring transaction processing complete",
		"processed", processedCount,
		"total_checked", len(templates))

	return processedCount, nil
}

// Run ticks until the context ends, processing due templates each interval.
// One pass runs immediately on startup so a restarted worker catches up.
func (p *RecurringProcessor) Run(ctx context.Context, interval time.Duration) error {
	if _, err := p.ProcessDue(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial recurring pass failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if _, err := p.ProcessDue(ctx, now); err != nil {
				slog.ErrorContext(ctx, "Recurring pass failed", "error", err)
			}
		}
	}
}

// postingInstant anchors the materialized entry at local noon of the owner's
// day so it lands inside the right day window.
func (p *RecurringProcessor) postingInstant(ctx context.Context, userID string, now time.Time) time.Time {
	tz := "UTC"
	if p.profiles != nil {
		if profile, err := p.profiles.Profile(ctx, userID); err == nil {
			tz = profile.Timezone
		}
	}
	at, err := calendar.Noon(now.Format(calendar.DateLayout), tz)
	if err != nil {
		return now.UTC()
	}
	return at
}
