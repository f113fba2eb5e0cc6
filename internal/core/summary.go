package core

// CategoryAmount is an amount aggregated under one category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthOverview is a compact picture of one year+month: totals per kind, the
// net position, and the expense breakdown by category. Net goes negative when
// the month's expenses exceed its income.
type MonthOverview struct {
	Year         int              `json:"year"`
	Month        int              `json:"month"` // 1-12
	IncomeTotal  Money            `json:"incomeTotal"`
	ExpenseTotal Money            `json:"expenseTotal"`
	Net          Money            `json:"net"`
	ByCategory   []CategoryAmount `json:"byCategory"`
}
