// Package ledger defines the store contracts the services and HTTP layers
// depend on. Implementations live in storage (SQLite) and ledger/memory.
package ledger

import (
	"context"
	"errors"
	"time"

	"dailyspend/internal/core"
)

var (
	// ErrNotFound reports a lookup miss for an id-addressed record.
	ErrNotFound = errors.New("record not found")
)

// TransactionStore persists ledger entries. Range arguments are UTC
// instants, from inclusive and to exclusive. Deletes are soft so sums stay
// reproducible from history.
type TransactionStore interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	SoftDeleteTransaction(ctx context.Context, userID string, id int64) error
	ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error)
	SumRange(ctx context.Context, userID string, kind core.TransactionKind, from, to time.Time) (int64, error)
}

// GoalStore keeps the per-month saving goal. A missing goal reads as zero,
// not as an error.
type GoalStore interface {
	SavingGoal(ctx context.Context, userID string, year, month int) (int64, error)
	SetSavingGoal(ctx context.Context, userID string, year, month int, cents int64) error
}

// ProfileStore keeps user preferences. A missing profile resolves to the
// UTC default rather than ErrNotFound.
type ProfileStore interface {
	Profile(ctx context.Context, userID string) (core.Profile, error)
	SaveProfile(ctx context.Context, p core.Profile) error
}

// RecurringStore keeps recurring templates for the worker to materialize.
type RecurringStore interface {
	AppendRecurring(ctx context.Context, rt core.RecurringTransaction) (int64, error)
	ActiveRecurring(ctx context.Context) ([]core.RecurringTransaction, error)
	DeactivateRecurring(ctx context.Context, userID string, id int64) error
	LastRun(ctx context.Context, id int64) (time.Time, error)
	MarkRun(ctx context.Context, id int64, at time.Time) error
}

// Store is the full persistence surface the backends implement.
type Store interface {
	TransactionStore
	GoalStore
	ProfileStore
	RecurringStore

	Ping(ctx context.Context) error
	Close() error
}
