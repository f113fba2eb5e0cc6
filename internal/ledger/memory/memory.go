// Package memory is the in-process ledger.Store used by tests and the dev
// backend. Semantics match the SQLite repository: soft deletes, inclusive
// from / exclusive to ranges, zero for missing goals, configurable default
// profiles.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"dailyspend/internal/core"
	"dailyspend/internal/ledger"
)

type Store struct {
	mu sync.Mutex

	defaultTimezone string

	nextTxID  int64
	nextRecID int64

	transactions []core.Transaction
	deleted      map[int64]bool
	goals        map[goalKey]int64
	profiles     map[string]core.Profile
	recurring    []core.RecurringTransaction
	inactive     map[int64]bool
	lastRuns     map[int64]time.Time
}

type goalKey struct {
	userID string
	year   int
	month  int
}

func New() *Store {
	return &Store{
		nextTxID:  1,
		nextRecID: 1,
		deleted:   make(map[int64]bool),
		goals:     make(map[goalKey]int64),
		profiles:  make(map[string]core.Profile),
		inactive:  make(map[int64]bool),
		lastRuns:  make(map[int64]time.Time),
	}
}

// WithDefaultTimezone sets the zone unknown users resolve to instead of UTC.
func (s *Store) WithDefaultTimezone(tz string) *Store {
	s.defaultTimezone = tz
	return s
}

func (s *Store) AppendTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	if err := tx.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.nextTxID
	s.nextTxID++
	s.transactions = append(s.transactions, tx)
	return tx.ID, nil
}

func (s *Store) SoftDeleteTransaction(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tx := range s.transactions {
		if tx.ID == id && tx.UserID == userID && !s.deleted[id] {
			s.deleted[id] = true
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) ListTransactions(_ context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for _, tx := range s.transactions {
		if tx.UserID != userID || s.deleted[tx.ID] {
			continue
		}
		if tx.PostedAt.Before(from) || !tx.PostedAt.Before(to) {
			continue
		}
		out = append(out, tx)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PostedAt.Before(out[j].PostedAt) })
	return out, nil
}

func (s *Store) SumRange(_ context.Context, userID string, kind core.TransactionKind, from, to time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sum int64
	for _, tx := range s.transactions {
		if tx.UserID != userID || tx.Kind != kind || s.deleted[tx.ID] {
			continue
		}
		if tx.PostedAt.Before(from) || !tx.PostedAt.Before(to) {
			continue
		}
		sum += tx.Amount.Cents
	}
	return sum, nil
}

func (s *Store) SavingGoal(_ context.Context, userID string, year, month int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.goals[goalKey{userID, year, month}], nil
}

func (s *Store) SetSavingGoal(_ context.Context, userID string, year, month int, cents int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[goalKey{userID, year, month}] = cents
	return nil
}

func (s *Store) Profile(_ context.Context, userID string) (core.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.profiles[userID]; ok {
		return p, nil
	}
	p := core.DefaultProfile(userID)
	if s.defaultTimezone != "" {
		p.Timezone = s.defaultTimezone
	}
	return p, nil
}

func (s *Store) SaveProfile(_ context.Context, p core.Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = p
	return nil
}

func (s *Store) AppendRecurring(_ context.Context, rt core.RecurringTransaction) (int64, error) {
	if err := rt.Validate(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rt.ID = s.nextRecID
	s.nextRecID++
	s.recurring = append(s.recurring, rt)
	return rt.ID, nil
}

func (s *Store) ActiveRecurring(_ context.Context) ([]core.RecurringTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.RecurringTransaction
	for _, rt := range s.recurring {
		if !s.inactive[rt.ID] {
			out = append(out, rt)
		}
	}
	return out, nil
}

func (s *Store) DeactivateRecurring(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rt := range s.recurring {
		if rt.ID == id && rt.UserID == userID && !s.inactive[id] {
			s.inactive[id] = true
			return nil
		}
	}
	return ledger.ErrNotFound
}

func (s *Store) LastRun(_ context.Context, id int64) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRuns[id], nil
}

func (s *Store) MarkRun(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRuns[id] = at
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
