package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dailyspend/internal/core"
	"dailyspend/internal/ledger"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestTransactionRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	postedAt := time.Date(2025, 11, 18, 11, 0, 0, 0, time.UTC)

	id, err := repo.AppendTransaction(ctx, core.Transaction{
		UserID:      "u1",
		Kind:        core.Expense,
		PostedAt:    postedAt,
		Description: "groceries",
		Amount:      core.Money{Cents: 4250},
		Category:    "food",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero id")
	}

	list, err := repo.ListTransactions(ctx, "u1", postedAt.Add(-time.Hour), postedAt.Add(time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d transactions, want 1", len(list))
	}
	got := list[0]
	if got.ID != id || got.Description != "groceries" || got.Amount.Cents != 4250 {
		t.Errorf("unexpected transaction: %+v", got)
	}
	if !got.PostedAt.Equal(postedAt) {
		t.Errorf("PostedAt = %v, want %v", got.PostedAt, postedAt)
	}
}

func TestSumRangeBoundaries(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	dayStart := time.Date(2025, 11, 18, 0, 0, 0, 0, time.UTC)
	dayEnd := time.Date(2025, 11, 18, 23, 59, 59, 999000000, time.UTC)

	add := func(at time.Time, cents int64) {
		t.Helper()
		_, err := repo.AppendTransaction(ctx, core.Transaction{
			UserID: "u1", Kind: core.Expense, PostedAt: at,
			Description: "x", Amount: core.Money{Cents: cents}, Category: "misc",
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	// First and last instants of the day are included; the neighbors fall
	// outside the window.
	add(dayStart, 100)
	add(dayEnd, 200)
	add(dayStart.Add(-time.Millisecond), 400)
	add(dayEnd.Add(time.Millisecond), 800)

	// Exclusive upper bound sits one millisecond past the window end.
	sum, err := repo.SumRange(ctx, "u1", core.Expense, dayStart, dayEnd.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if sum != 300 {
		t.Errorf("sum = %d, want 300", sum)
	}
}

func TestSoftDelete(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	at := time.Date(2025, 11, 18, 12, 0, 0, 0, time.UTC)

	id, err := repo.AppendTransaction(ctx, core.Transaction{
		UserID: "u1", Kind: core.Expense, PostedAt: at,
		Description: "refunded", Amount: core.Money{Cents: 999}, Category: "misc",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	if err := repo.SoftDeleteTransaction(ctx, "u2", id); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("wrong user delete err = %v, want ErrNotFound", err)
	}
	if err := repo.SoftDeleteTransaction(ctx, "u1", id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := repo.SoftDeleteTransaction(ctx, "u1", id); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("repeat delete err = %v, want ErrNotFound", err)
	}

	sum, _ := repo.SumRange(ctx, "u1", core.Expense, at.Add(-time.Hour), at.Add(time.Hour))
	if sum != 0 {
		t.Errorf("sum after delete = %d, want 0", sum)
	}
}

func TestSavingGoalUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	goal, err := repo.SavingGoal(ctx, "u1", 2025, 11)
	if err != nil || goal != 0 {
		t.Fatalf("missing goal = (%d, %v), want (0, nil)", goal, err)
	}

	if err := repo.SetSavingGoal(ctx, "u1", 2025, 11, 30000); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := repo.SetSavingGoal(ctx, "u1", 2025, 11, 45000); err != nil {
		t.Fatalf("update: %v", err)
	}

	goal, _ = repo.SavingGoal(ctx, "u1", 2025, 11)
	if goal != 45000 {
		t.Errorf("goal = %d, want 45000", goal)
	}
}

func TestProfileUpsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	p, err := repo.Profile(ctx, "stranger")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Timezone != "UTC" || p.CycleAnchorDay != 0 {
		t.Errorf("default profile = %+v", p)
	}

	want := core.Profile{UserID: "u1", Timezone: "America/New_York", CycleAnchorDay: 15}
	if err := repo.SaveProfile(ctx, want); err != nil {
		t.Fatalf("save: %v", err)
	}
	want.Timezone = "Europe/Rome"
	if err := repo.SaveProfile(ctx, want); err != nil {
		t.Fatalf("update: %v", err)
	}

	p, _ = repo.Profile(ctx, "u1")
	if p != want {
		t.Errorf("profile = %+v, want %+v", p, want)
	}
}

func TestProfileConfiguredDefaultTimezone(t *testing.T) {
	repo := newTestRepo(t).WithDefaultTimezone("Europe/Rome")
	ctx := context.Background()

	p, err := repo.Profile(ctx, "stranger")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Timezone != "Europe/Rome" || p.CycleAnchorDay != 0 {
		t.Errorf("default profile = %+v, want Europe/Rome", p)
	}

	// A stored profile wins over the configured default
	if err := repo.SaveProfile(ctx, core.Profile{UserID: "u1", Timezone: "Asia/Tokyo"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	p, _ = repo.Profile(ctx, "u1")
	if p.Timezone != "Asia/Tokyo" {
		t.Errorf("timezone = %q, want Asia/Tokyo", p.Timezone)
	}
}

func TestRecurringLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	id, err := repo.AppendRecurring(ctx, core.RecurringTransaction{
		UserID:      "u1",
		Kind:        core.Income,
		StartDate:   core.NewDate(2025, 1, 25),
		Every:       core.Monthly,
		Description: "salary",
		Amount:      core.Money{Cents: 300000},
		Category:    "salary",
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	active, err := repo.ActiveRecurring(ctx)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].ID != id || !active[0].EndDate.IsZero() {
		t.Fatalf("unexpected active templates: %+v", active)
	}

	last, err := repo.LastRun(ctx, id)
	if err != nil || !last.IsZero() {
		t.Fatalf("fresh lastRun = (%v, %v), want zero", last, err)
	}
	ranAt := time.Date(2025, 11, 25, 6, 0, 0, 0, time.UTC)
	if err := repo.MarkRun(ctx, id, ranAt); err != nil {
		t.Fatalf("mark run: %v", err)
	}
	last, _ = repo.LastRun(ctx, id)
	if !last.Equal(ranAt) {
		t.Errorf("lastRun = %v, want %v", last, ranAt)
	}

	if err := repo.DeactivateRecurring(ctx, "u1", id); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	active, _ = repo.ActiveRecurring(ctx)
	if len(active) != 0 {
		t.Errorf("active after deactivate = %d, want 0", len(active))
	}

	if _, err := repo.LastRun(ctx, 9999); !errors.Is(err, ledger.ErrNotFound) {
		t.Errorf("unknown template err = %v, want ErrNotFound", err)
	}
}

func TestValidationRejectedBeforeWrite(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.AppendTransaction(ctx, core.Transaction{
		UserID: "u1", Kind: "transfer",
		PostedAt:    time.Now(),
		Description: "nope", Amount: core.Money{Cents: 100}, Category: "misc",
	})
	if !errors.Is(err, core.ErrInvalidKind) {
		t.Errorf("err = %v, want ErrInvalidKind", err)
	}

	_, err = repo.AppendTransaction(ctx, core.Transaction{
		UserID: "u1", Kind: core.Expense,
		PostedAt:    time.Now(),
		Description: "nope", Amount: core.Money{Cents: 0}, Category: "misc",
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}
