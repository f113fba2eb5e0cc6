package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"dailyspend/internal/core"
	"dailyspend/internal/ledger"
)

func tx(user string, kind core.TransactionKind, at time.Time, cents int64) core.Transaction {
	return core.Transaction{
		UserID:      user,
		Kind:        kind,
		PostedAt:    at,
		Description: "test entry",
		Amount:      core.Money{Cents: cents},
		Category:    "general",
	}
}

func TestAppendAndSumRange(t *testing.T) {
	s := New()
	ctx := context.Background()
	base := time.Date(2025, 11, 10, 12, 0, 0, 0, time.UTC)

	for i, cents := range []int64{1000, 2000, 3000} {
		if _, err := s.AppendTransaction(ctx, tx("u1", core.Expense, base.AddDate(0, 0, i), cents)); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	if _, err := s.AppendTransaction(ctx, tx("u2", core.Expense, base, 9999)); err != nil {
		t.Fatalf("append other user: %v", err)
	}

	// from inclusive, to exclusive: days 10 and 11 only.
	sum, err := s.SumRange(ctx, "u1", core.Expense, base, base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != 3000 {
		t.Errorf("sum = %d, want 3000", sum)
	}

	// Income never mixes into expense sums.
	if _, err := s.AppendTransaction(ctx, tx("u1", core.Income, base, 50000)); err != nil {
		t.Fatalf("append income: %v", err)
	}
	sum, _ = s.SumRange(ctx, "u1", core.Expense, base, base.AddDate(0, 0, 2))
	if sum != 3000 {
		t.Errorf("sum after income = %d, want 3000", sum)
	}
}

func TestSoftDeleteExcludesFromSumsAndLists(t *testing.T) {
	s := New()
	ctx := context.Background()
	at := time.Date(2025, 11, 18, 12, 0, 0, 0, time.UTC)

	id, err := s.AppendTransaction(ctx, tx("u1", core.Expense, at, 1500))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := s.SoftDeleteTransaction(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	sum, _ := s.SumRange(ctx, "u1", core.Expense, at.AddDate(0, 0, -1), at.AddDate(0, 0, 1))
	if sum != 0 {
		t.Errorf("sum after delete = %d, want 0", sum)
	}
	list, _ := s.ListTransactions(ctx, "u1", at.AddDate(0, 0, -1), at.AddDate(0, 0, 1))
	if len(list) != 0 {
		t.Errorf("list after delete has %d entries, want 0", len(list))
	}

	if err := s.SoftDeleteTransaction(ctx, "u1", id); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
	if err := s.SoftDeleteTransaction(ctx, "u2", 999); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("unknown id err = %v, want ErrNotFound", err)
	}
}

func TestSavingGoalDefaultsToZero(t *testing.T) {
	s := New()
	ctx := context.Background()

	goal, err := s.SavingGoal(ctx, "u1", 2025, 11)
	if err != nil || goal != 0 {
		t.Fatalf("missing goal = (%d, %v), want (0, nil)", goal, err)
	}

	if err := s.SetSavingGoal(ctx, "u1", 2025, 11, 30000); err != nil {
		t.Fatalf("set goal: %v", err)
	}
	goal, _ = s.SavingGoal(ctx, "u1", 2025, 11)
	if goal != 30000 {
		t.Errorf("goal = %d, want 30000", goal)
	}
	// Other months untouched.
	goal, _ = s.SavingGoal(ctx, "u1", 2025, 12)
	if goal != 0 {
		t.Errorf("other month goal = %d, want 0", goal)
	}
}

func TestProfileDefaultsToUTC(t *testing.T) {
	s := New()
	ctx := context.Background()

	p, err := s.Profile(ctx, "nobody")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Timezone != "UTC" || p.CycleAnchorDay != 0 {
		t.Errorf("default profile = %+v", p)
	}

	want := core.Profile{UserID: "u1", Timezone: "Europe/Rome", CycleAnchorDay: 25}
	if err := s.SaveProfile(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	p, _ = s.Profile(ctx, "u1")
	if p != want {
		t.Errorf("profile = %+v, want %+v", p, want)
	}
}

func TestProfileConfiguredDefaultTimezone(t *testing.T) {
	s := New().WithDefaultTimezone("Europe/Rome")
	ctx := context.Background()

	p, err := s.Profile(ctx, "nobody")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Timezone != "Europe/Rome" || p.CycleAnchorDay != 0 {
		t.Errorf("default profile = %+v, want Europe/Rome", p)
	}

	// A stored profile wins over the configured default
	want := core.Profile{UserID: "u1", Timezone: "Asia/Tokyo"}
	if err := s.SaveProfile(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	p, _ = s.Profile(ctx, "u1")
	if p.Timezone != "Asia/Tokyo" {
		t.Errorf("timezone = %q, want Asia/Tokyo", p.Timezone)
	}
}

func TestRecurringLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()

	rt := core.RecurringTransaction{
		UserID:      "u1",
		Kind:        core.Expense,
		StartDate:   core.NewDate(2025, 1, 1),
		Every:       core.Monthly,
		Description: "rent",
		Amount:      core.Money{Cents: 80000},
		Category:    "housing",
	}
	id, err := s.AppendRecurring(ctx, rt)
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	active, _ := s.ActiveRecurring(ctx)
	if len(active) != 1 {
		t.Fatalf("active = %d templates, want 1", len(active))
	}

	last, _ := s.LastRun(ctx, id)
	if !last.IsZero() {
		t.Errorf("fresh template lastRun = %v, want zero", last)
	}
	ranAt := time.Date(2025, 11, 1, 6, 0, 0, 0, time.UTC)
	if err := s.MarkRun(ctx, id, ranAt); err != nil {
		t.Fatalf("mark run: %v", err)
	}
	last, _ = s.LastRun(ctx, id)
	if !last.Equal(ranAt) {
		t.Errorf("lastRun = %v, want %v", last, ranAt)
	}

	if err := s.DeactivateRecurring(ctx, "u1", id); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ = s.ActiveRecurring(ctx)
	if len(active) != 0 {
		t.Errorf("active after deactivate = %d, want 0", len(active))
	}
	if err := s.DeactivateRecurring(ctx, "u1", id); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("second deactivate err = %v, want ErrNotFound", err)
	}
}
