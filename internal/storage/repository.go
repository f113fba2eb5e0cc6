// Package storage is the SQLite implementation of ledger.Store. Instants are
// persisted as unix milliseconds so the millisecond-precision day windows
// survive the round trip.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"dailyspend/internal/core"
	"dailyspend/internal/ledger"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db              *sql.DB
	defaultTimezone string
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// WithDefaultTimezone sets the zone unknown users resolve to instead of UTC.
func (r *SQLiteRepository) WithDefaultTimezone(tz string) *SQLiteRepository {
	r.defaultTimezone = tz
	return r
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// AppendTransaction implements ledger.TransactionStore
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, kind, posted_at_unix, description, amount_cents, category)
		VALUES (?, ?, ?, ?, ?, ?)`,
		tx.UserID, string(tx.Kind), tx.PostedAt.UnixMilli(), tx.Description, tx.Amount.Cents, tx.Category)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read transaction id: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", id,
		"user_id", tx.UserID,
		"kind", tx.Kind,
		"description", tx.Description,
		"amount_cents", tx.Amount.Cents)

	return id, nil
}

// SoftDeleteTransaction implements ledger.TransactionStore
func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET deleted = 1
		WHERE id = ? AND user_id = ? AND deleted = 0`,
		id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// ListTransactions implements ledger.TransactionStore
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, posted_at_unix, description, amount_cents, category
		FROM transactions
		WHERE user_id = ? AND deleted = 0 AND posted_at_unix >= ? AND posted_at_unix < ?
		ORDER BY posted_at_unix, id`,
		userID, from.UnixMilli(), to.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var (
			tx     core.Transaction
			kind   string
			posted int64
			cents  int64
		)
		if err := rows.Scan(&tx.ID, &tx.UserID, &kind, &posted, &tx.Description, &cents, &tx.Category); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Kind = core.TransactionKind(kind)
		tx.PostedAt = time.UnixMilli(posted).UTC()
		tx.Amount = core.Money{Cents: cents}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// SumRange implements ledger.TransactionStore
func (r *SQLiteRepository) SumRange(ctx context.Context, userID string, kind core.TransactionKind, from, to time.Time) (int64, error) {
	var sum int64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE user_id = ? AND kind = ? AND deleted = 0 AND posted_at_unix >= ? AND posted_at_unix < ?`,
		userID, string(kind), from.UnixMilli(), to.UnixMilli()).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("sum transactions: %w", err)
	}
	return sum, nil
}

// SavingGoal implements ledger.GoalStore; a missing row reads as zero
func (r *SQLiteRepository) SavingGoal(ctx context.Context, userID string, year, month int) (int64, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx, `
		SELECT goal_cents FROM saving_goals
		WHERE user_id = ? AND year = ? AND month = ?`,
		userID, year, month).Scan(&cents)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read saving goal: %w", err)
	}
	return cents, nil
}

// SetSavingGoal implements ledger.GoalStore
func (r *SQLiteRepository) SetSavingGoal(ctx context.Context, userID string, year, month int, cents int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO saving_goals (user_id, year, month, goal_cents)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, year, month) DO UPDATE SET goal_cents = excluded.goal_cents`,
		userID, year, month, cents)
	if err != nil {
		return fmt.Errorf("set saving goal: %w", err)
	}
	return nil
}

// Profile implements ledger.ProfileStore; unknown users get the default
// profile, in the configured default zone when one is set
func (r *SQLiteRepository) Profile(ctx context.Context, userID string) (core.Profile, error) {
	var p core.Profile
	err := r.db.QueryRowContext(ctx, `
		SELECT user_id, timezone, cycle_anchor_day FROM profiles WHERE user_id = ?`,
		userID).Scan(&p.UserID, &p.Timezone, &p.CycleAnchorDay)
	if errors.Is(err, sql.ErrNoRows) {
		fallback := core.DefaultProfile(userID)
		if r.defaultTimezone != "" {
			fallback.Timezone = r.defaultTimezone
		}
		return fallback, nil
	}
	if err != nil {
		return core.Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return p, nil
}

// SaveProfile implements ledger.ProfileStore
func (r *SQLiteRepository) SaveProfile(ctx context.Context, p core.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO profiles (user_id, timezone, cycle_anchor_day)
		VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			timezone = excluded.timezone,
			cycle_anchor_day = excluded.cycle_anchor_day`,
		p.UserID, p.Timezone, p.CycleAnchorDay)
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}

// AppendRecurring implements ledger.RecurringStore
func (r *SQLiteRepository) AppendRecurring(ctx context.Context, rt core.RecurringTransaction) (int64, error) {
	if err := rt.Validate(); err != nil {
		return 0, err
	}

	var end sql.NullInt64
	if !rt.EndDate.IsZero() {
		end = sql.NullInt64{Int64: rt.EndDate.UnixMilli(), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_transactions
			(user_id, kind, start_unix, end_unix, frequency, description, amount_cents, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.UserID, string(rt.Kind), rt.StartDate.UnixMilli(), end,
		string(rt.Every), rt.Description, rt.Amount.Cents, rt.Category)
	if err != nil {
		return 0, fmt.Errorf("insert recurring transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read recurring id: %w", err)
	}
	return id, nil
}

// ActiveRecurring implements ledger.RecurringStore
func (r *SQLiteRepository) ActiveRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, kind, start_unix, end_unix, frequency, description, amount_cents, category
		FROM recurring_transactions
		WHERE active = 1
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list active recurring: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringTransaction
	for rows.Next() {
		var (
			rt    core.RecurringTransaction
			kind  string
			start int64
			end   sql.NullInt64
			freq  string
			cents int64
		)
		if err := rows.Scan(&rt.ID, &rt.UserID, &kind, &start, &end, &freq, &rt.Description, &cents, &rt.Category); err != nil {
			return nil, fmt.Errorf("scan recurring: %w", err)
		}
		rt.Kind = core.TransactionKind(kind)
		rt.StartDate = core.Date{Time: time.UnixMilli(start).UTC()}
		if end.Valid {
			rt.EndDate = core.Date{Time: time.UnixMilli(end.Int64).UTC()}
		}
		rt.Every = core.Frequency(freq)
		rt.Amount = core.Money{Cents: cents}
		out = append(out, rt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring: %w", err)
	}
	return out, nil
}

// DeactivateRecurring implements ledger.RecurringStore
func (r *SQLiteRepository) DeactivateRecurring(ctx context.Context, userID string, id int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_transactions SET active = 0
		WHERE id = ? AND user_id = ? AND active = 1`,
		id, userID)
	if err != nil {
		return fmt.Errorf("deactivate recurring: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

// LastRun implements ledger.RecurringStore; zero time for never-run templates
func (r *SQLiteRepository) LastRun(ctx context.Context, id int64) (time.Time, error) {
	var last sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT last_run_unix FROM recurring_transactions WHERE id = ?`,
		id).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ledger.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("read last run: %w", err)
	}
	if !last.Valid {
		return time.Time{}, nil
	}
	return time.UnixMilli(last.Int64).UTC(), nil
}

// MarkRun implements ledger.RecurringStore
func (r *SQLiteRepository) MarkRun(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE recurring_transactions SET last_run_unix = ? WHERE id = ?`,
		at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("mark run: %w", err)
	}
	return nil
}
