package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"dailyspend/internal/budget"
	"dailyspend/internal/calendar"
	"dailyspend/internal/core"
	"dailyspend/internal/ledger"
)

type (
	// MonthInfo names the budget period the summary was computed for. For
	// anchored cycles Year/Month identify the month the cycle started in.
	// The day position serializes as "today" on the wire.
	MonthInfo struct {
		Year        int `json:"year"`
		Month       int `json:"month"`
		DayOfMonth  int `json:"today"`
		DaysInMonth int `json:"daysInMonth"`
	}

	// SummaryParams echoes the resolved request back to the caller.
	// TimeZoneFallback reports that the profile's zone was unknown and UTC
	// was used instead.
	SummaryParams struct {
		Date             string `json:"date"`
		TimeZone         string `json:"timeZone"`
		TimeZoneFallback bool   `json:"timeZoneFallback,omitempty"`
	}

	SummaryData struct {
		Month MonthInfo `json:"month"`
		budget.Result
	}

	Summary struct {
		Params SummaryParams `json:"params"`
		Data   SummaryData   `json:"data"`
	}
)

// SummaryService assembles the daily budget summary: profile lookup, window
// resolution, aggregation reads, then the pure calculator.
type SummaryService struct {
	profiles     ledger.ProfileStore
	goals        ledger.GoalStore
	transactions ledger.TransactionStore
}

func NewSummaryService(profiles ledger.ProfileStore, goals ledger.GoalStore, transactions ledger.TransactionStore) *SummaryService {
	return &SummaryService{
		profiles:     profiles,
		goals:        goals,
		transactions: transactions,
	}
}

// DailySummary computes the summary for one user and date. anchorOverride
// replaces the profile's cycle anchor when positive; zero means "use the
// profile". Store failures propagate unchanged so callers can map them to
// service-unavailable; the calculator itself never fails.
func (s *SummaryService) DailySummary(ctx context.Context, userID, date string, anchorOverride int) (Summary, error) {
	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("load profile: %w", err)
	}

	anchor := profile.CycleAnchorDay
	if anchorOverride > 0 {
		anchor = anchorOverride
	}

	var cal calendar.Context
	if anchor > 0 {
		cal, err = calendar.ResolveCycle(date, profile.Timezone, anchor)
	} else {
		cal, err = calendar.Resolve(date, profile.Timezone)
	}
	if err != nil {
		return Summary{}, err
	}

	goal, err := s.goals.SavingGoal(ctx, userID, cal.Year, cal.Month)
	if err != nil {
		return Summary{}, fmt.Errorf("load saving goal: %w", err)
	}

	// SumRange treats the upper bound as exclusive; the window ends are
	// inclusive instants, so push each one millisecond past the edge.
	periodEndExcl := cal.PeriodEnd.Add(time.Millisecond)
	dayEndExcl := cal.DayEnd.Add(time.Millisecond)

	var income, spentBefore, spentToday int64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		income, err = s.transactions.SumRange(gctx, userID, core.Income, cal.PeriodStart, periodEndExcl)
		if err != nil {
			return fmt.Errorf("sum income: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		spentBefore, err = s.transactions.SumRange(gctx, userID, core.Expense, cal.PeriodStart, cal.DayStart)
		if err != nil {
			return fmt.Errorf("sum spent before today: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		spentToday, err = s.transactions.SumRange(gctx, userID, core.Expense, cal.DayStart, dayEndExcl)
		if err != nil {
			return fmt.Errorf("sum spent today: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}

	result := budget.Compute(budget.Input{
		Year:                  cal.Year,
		Month:                 cal.Month,
		DayOfMonth:            cal.DayOfMonth,
		DaysInMonth:           cal.DaysInMonth,
		TotalIncomeCents:      income,
		SavingGoalCents:       goal,
		SpentBeforeTodayCents: spentBefore,
		SpentTodayCents:       spentToday,
	})

	return Summary{
		Params: SummaryParams{
			Date:             date,
			TimeZone:         profile.Timezone,
			TimeZoneFallback: cal.UTCFallback,
		},
		Data: SummaryData{
			Month: MonthInfo{
				Year:        cal.Year,
				Month:       cal.Month,
				DayOfMonth:  cal.DayOfMonth,
				DaysInMonth: cal.DaysInMonth,
			},
			Result: result,
		},
	}, nil
}

// MonthOverview aggregates one calendar month of the user's ledger: income
// and expense totals plus the expense breakdown by category, largest first.
func (s *SummaryService) MonthOverview(ctx context.Context, userID string, year, month int) (core.MonthOverview, error) {
	profile, err := s.profiles.Profile(ctx, userID)
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("load profile: %w", err)
	}

	cal, err := calendar.Resolve(fmt.Sprintf("%04d-%02d-01", year, month), profile.Timezone)
	if err != nil {
		return core.MonthOverview{}, err
	}

	txs, err := s.transactions.ListTransactions(ctx, userID, cal.PeriodStart, cal.PeriodEnd.Add(time.Millisecond))
	if err != nil {
		return core.MonthOverview{}, fmt.Errorf("list transactions: %w", err)
	}

	overview := core.MonthOverview{Year: year, Month: month}
	byCategory := make(map[string]int64)
	for _, tx := range txs {
		switch tx.Kind {
		case core.Income:
			overview.IncomeTotal.Cents += tx.Amount.Cents
		case core.Expense:
			overview.ExpenseTotal.Cents += tx.Amount.Cents
			byCategory[tx.Category] += tx.Amount.Cents
		}
	}

	overview.Net.Cents = overview.IncomeTotal.Cents - overview.ExpenseTotal.Cents

	for name, cents := range byCategory {
		overview.ByCategory = append(overview.ByCategory, core.CategoryAmount{
			Name:   name,
			Amount: core.Money{Cents: cents},
		})
	}
	sort.Slice(overview.ByCategory, func(i, j int) bool {
		a, b := overview.ByCategory[i], overview.ByCategory[j]
		if a.Amount.Cents != b.Amount.Cents {
			return a.Amount.Cents > b.Amount.Cents
		}
		return a.Name < b.Name
	})

	return overview, nil
}
