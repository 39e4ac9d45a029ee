package http

import (
	"encoding/json"
	"time"

	"kharcha/internal/core"
)

const dateLayout = "2006-01-02"

// expenseDTO is the wire shape of an expense. Amounts travel as rupees.
type expenseDTO struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Amount        float64 `json:"amount"`
	Category      string  `json:"category"`
	PaymentMethod string  `json:"paymentMethod"`
	Date          string  `json:"date"`
	CreatedAt     string  `json:"createdAt"`
}

func toDTO(e core.Expense) expenseDTO {
	return expenseDTO{
		ID:            e.ID,
		Name:          e.Name,
		Amount:        e.Amount.Rupees(),
		Category:      string(e.Category),
		PaymentMethod: string(e.PaymentMethod),
		Date:          e.Date.Format(dateLayout),
		CreatedAt:     e.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toDTOs(expenses []core.Expense) []expenseDTO {
	out := make([]expenseDTO, len(expenses))
	for i, e := range expenses {
		out[i] = toDTO(e)
	}
	return out
}

type totalsDTO struct {
	Monthly float64 `json:"monthly"`
	Cash    float64 `json:"cash"`
	UPI     float64 `json:"upi"`
	Daily   float64 `json:"daily"`
}

func toTotalsDTO(t core.Totals) totalsDTO {
	return totalsDTO{
		Monthly: t.Monthly.Rupees(),
		Cash:    t.Cash.Rupees(),
		UPI:     t.UPI.Rupees(),
		Daily:   t.Daily.Rupees(),
	}
}

type monthGroupDTO struct {
	Month    string       `json:"month"`
	Expenses []expenseDTO `json:"expenses"`
	Subtotal float64      `json:"subtotal"`
}

type reportDTO struct {
	CurrentMonth []expenseDTO    `json:"currentMonth"`
	PastMonths   []monthGroupDTO `json:"pastMonths"`
	Totals       totalsDTO       `json:"totals"`
}

func toReportDTO(r core.Report) reportDTO {
	out := reportDTO{
		CurrentMonth: toDTOs(r.CurrentMonth),
		PastMonths:   make([]monthGroupDTO, len(r.PastMonths)),
		Totals:       toTotalsDTO(r.Totals),
	}
	for i, g := range r.PastMonths {
		out.PastMonths[i] = monthGroupDTO{
			Month:    g.Month.Format("2006-01"),
			Expenses: toDTOs(g.Expenses),
			Subtotal: g.Subtotal().Rupees(),
		}
	}
	return out
}

// expenseRequest is the create/update payload.
type expenseRequest struct {
	Name          string      `json:"name"`
	Amount        json.Number `json:"amount"`
	Category      string      `json:"category"`
	PaymentMethod string      `json:"paymentMethod"`
	Date          string      `json:"date"`
}

// toInput converts the payload to a domain input, reporting unparseable
// fields the same way domain validation does.
func (req expenseRequest) toInput() (core.ExpenseInput, core.FieldErrors) {
	ferrs := core.FieldErrors{}
	in := core.ExpenseInput{Name: req.Name}

	if paise, err := core.ParseDecimalToPaise(req.Amount.String()); err != nil {
		ferrs["amount"] = "Amount must be a positive number."
	} else {
		in.Amount = core.Money{Paise: paise}
	}

	if category, err := core.ParseCategory(req.Category); err != nil {
		ferrs["category"] = "Category is not recognized."
	} else {
		in.Category = category
	}

	if method, err := core.ParsePaymentMethod(req.PaymentMethod); err != nil {
		ferrs["paymentMethod"] = "Payment method is not recognized."
	} else {
		in.PaymentMethod = method
	}

	if date, err := time.ParseInLocation(dateLayout, req.Date, time.UTC); err != nil {
		ferrs["date"] = "Date must be in YYYY-MM-DD format."
	} else {
		in.Date = date
	}

	if len(ferrs) > 0 {
		return core.ExpenseInput{}, ferrs
	}
	return in, nil
}
