package core

import (
	"sort"
	"time"
)

// DefaultPageSize is the number of current-month rows shown per table page.
const DefaultPageSize = 5

type (
	// MonthGroup is one past month's expenses, keyed by the month-start date.
	MonthGroup struct {
		Month    time.Time // first day of the month, UTC midnight
		Expenses []Expense
	}

	// Totals are the running sums over the current-month partition.
	Totals struct {
		Monthly Money
		Cash    Money
		UPI     Money
		Daily   Money
	}

	// Report is the derived monthly view of a full expense list. It is
	// recomputed from scratch on every snapshot; there is no incremental
	// state to drift.
	Report struct {
		CurrentMonth []Expense
		PastMonths   []MonthGroup
		Totals       Totals
	}
)

func sameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// BuildReport partitions expenses into the current calendar month and
// month-keyed past groups, and sums the current-month totals. Input order
// is preserved within each partition, so a date-descending snapshot yields
// date-descending tables.
func BuildReport(expenses []Expense, now time.Time) Report {
	var r Report

	groups := make(map[time.Time]int)
	for _, e := range expenses {
		if sameMonth(e.Date, now) {
			r.CurrentMonth = append(r.CurrentMonth, e)
			r.Totals.Monthly = r.Totals.Monthly.Add(e.Amount)
			switch e.PaymentMethod {
			case PaymentCash:
				r.Totals.Cash = r.Totals.Cash.Add(e.Amount)
			case PaymentUPI:
				r.Totals.UPI = r.Totals.UPI.Add(e.Amount)
			}
			if sameDay(e.Date, now) {
				r.Totals.Daily = r.Totals.Daily.Add(e.Amount)
			}
			continue
		}
		key := monthStart(e.Date)
		i, ok := groups[key]
		if !ok {
			i = len(r.PastMonths)
			groups[key] = i
			r.PastMonths = append(r.PastMonths, MonthGroup{Month: key})
		}
		r.PastMonths[i].Expenses = append(r.PastMonths[i].Expenses, e)
	}

	sort.Slice(r.PastMonths, func(i, j int) bool {
		return r.PastMonths[i].Month.After(r.PastMonths[j].Month)
	})
	return r
}

// Subtotal sums the amounts in the group.
func (g MonthGroup) Subtotal() Money {
	var sum Money
	for _, e := range g.Expenses {
		sum = sum.Add(e.Amount)
	}
	return sum
}

// TotalPages reports how many pages of pageSize a list of count items
// occupies. An empty list still has one page.
func TotalPages(count, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := (count + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// ClampPage restricts a requested page to [1, TotalPages(count, pageSize)].
func ClampPage(page, count, pageSize int) int {
	total := TotalPages(count, pageSize)
	if page < 1 {
		return 1
	}
	if page > total {
		return total
	}
	return page
}

// Paginate returns the page-th slice (1-based) of pageSize items. The
// requested page is clamped, so out-of-range requests return the nearest
// valid page rather than failing.
func Paginate(expenses []Expense, page, pageSize int) []Expense {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page = ClampPage(page, len(expenses), pageSize)
	lo := (page - 1) * pageSize
	if lo >= len(expenses) {
		return nil
	}
	hi := lo + pageSize
	if hi > len(expenses) {
		hi = len(expenses)
	}
	return expenses[lo:hi]
}
