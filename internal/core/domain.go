package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  TransactionKind = "income"
	Expense TransactionKind = "expense"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// DefaultUserID identifies the implicit single-tenant profile when the
// caller does not supply one.
const DefaultUserID = "default"

type (
	TransactionKind string

	Frequency string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64 `json:"cents"`
	}

	// Transaction is a single ledger entry. PostedAt is always a UTC
	// instant; date-only input is resolved to local noon in the owner's
	// timezone before it gets here.
	Transaction struct {
		ID          int64
		UserID      string
		Kind        TransactionKind
		PostedAt    time.Time
		Description string
		Amount      Money
		Category    string
	}

	// RecurringTransaction is a template the worker materializes into
	// real ledger entries when due.
	RecurringTransaction struct {
		ID          int64
		UserID      string
		Kind        TransactionKind
		StartDate   Date
		EndDate     Date // zero means open-ended
		Every       Frequency
		Description string
		Amount      Money
		Category    string
	}

	// Profile holds per-user preferences consumed by the summary engine.
	// CycleAnchorDay 0 means plain calendar months; 1-28 anchors the
	// budget period to that day of the month.
	Profile struct {
		UserID         string
		Timezone       string
		CycleAnchorDay int
	}
)

var (
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidAnchor    = errors.New("cycle anchor day must be between 1 and 28")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyCategory    = errors.New("empty category")
	ErrEmptyUserID      = errors.New("empty user id")
)

// DefaultProfile is what an unknown user resolves to: UTC, calendar months.
func DefaultProfile(userID string) Profile {
	return Profile{UserID: userID, Timezone: "UTC"}
}

func (k TransactionKind) Valid() bool {
	return k == Income || k == Expense
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly, Yearly:
		return true
	}
	return false
}

// NewDate creates a new Date at UTC midnight from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.UserID) == "" {
		return ErrEmptyUserID
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.PostedAt.IsZero() {
		return ErrInvalidDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if strings.TrimSpace(rt.UserID) == "" {
		return ErrEmptyUserID
	}
	if !rt.Kind.Valid() {
		return ErrInvalidKind
	}
	if err := rt.StartDate.Validate(); err != nil {
		return errors.New("invalid start date: " + err.Error())
	}
	if !rt.EndDate.IsZero() && rt.EndDate.Before(rt.StartDate.Time) {
		return errors.New("end date must not precede start date")
	}
	if !rt.Every.Valid() {
		return ErrInvalidFrequency
	}
	if len(strings.TrimSpace(rt.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(rt.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(rt.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (p Profile) Validate() error {
	if strings.TrimSpace(p.UserID) == "" {
		return ErrEmptyUserID
	}
	if p.CycleAnchorDay < 0 || p.CycleAnchorDay > 28 {
		return ErrInvalidAnchor
	}
	return nil
}
