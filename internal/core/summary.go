package core

// MonthSummary is a compact per-month view of materialized occurrences.
type MonthSummary struct {
	Year    int
	Month   int // 1-12
	Income  Money
	Expense Money
	Count   int
}

// Summarize totals non-deleted occurrences by direction.
func Summarize(year, month int, occurrences []Occurrence) MonthSummary {
	s := MonthSummary{Year: year, Month: month}
	for _, o := range occurrences {
		if o.IsDeleted() || o.Date.Year() != year || o.Date.Month() != month {
			continue
		}
		switch o.Direction {
		case Income:
			s.Income = Money{Decimal: s.Income.Add(o.Amount.Decimal)}
		case Expense:
			s.Expense = Money{Decimal: s.Expense.Add(o.Amount.Decimal)}
		}
		s.Count++
	}
	return s
}

// Net is income minus expense; it may be negative.
func (s MonthSummary) Net() string {
	return s.Income.Sub(s.Expense.Decimal).StringFixed(2)
}
