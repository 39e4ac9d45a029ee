package core

import (
	"errors"
	"sort"
	"strings"
	"time"
)

const (
	CategoryFood      Category = "food"
	CategoryTransport Category = "transport"
	CategoryShopping  Category = "shopping"
	CategoryBills     Category = "bills"
	CategoryOther     Category = "other"
)

const (
	PaymentCash PaymentMethod = "cash"
	PaymentUPI  PaymentMethod = "upi"
)

// MinDate is the earliest accepted expense date.
var MinDate = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

type (
	Category      string
	PaymentMethod string

	// Expense is a persisted expense record. ID and CreatedAt are assigned
	// by the repository at insert time and never change afterwards.
	Expense struct {
		ID            string
		Name          string
		Amount        Money
		Category      Category
		PaymentMethod PaymentMethod
		Date          time.Time
		CreatedAt     time.Time
	}

	// ExpenseInput carries the mutable fields of an expense as submitted by
	// a user, before validation.
	ExpenseInput struct {
		Name          string
		Amount        Money
		Category      Category
		PaymentMethod PaymentMethod
		Date          time.Time
	}
)

var (
	ErrInvalidCategory      = errors.New("invalid category")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

// ParseCategory maps raw form input to a Category. An empty value defaults
// to CategoryOther, matching the form default.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	switch c {
	case "":
		return CategoryOther, nil
	case CategoryFood, CategoryTransport, CategoryShopping, CategoryBills, CategoryOther:
		return c, nil
	}
	return "", ErrInvalidCategory
}

// ParsePaymentMethod maps raw form input to a PaymentMethod. An empty value
// defaults to PaymentCash; records written before the field existed carry no
// value and are treated as cash.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case "":
		return PaymentCash, nil
	case PaymentCash, PaymentUPI:
		return m, nil
	}
	return "", ErrInvalidPaymentMethod
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransport, CategoryShopping, CategoryBills, CategoryOther:
		return true
	}
	return false
}

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentUPI
}

// FieldErrors maps an input field name to a user-facing validation message.
// It is returned by Validate so handlers can surface each error next to the
// offending input.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return "invalid input"
	}
	fields := make([]string, 0, len(fe))
	for f := range fe {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var b strings.Builder
	b.WriteString("invalid input: ")
	for i, f := range fields {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(f)
		b.WriteString(": ")
		b.WriteString(fe[f])
	}
	return b.String()
}

// Validate checks the input against the record rules. now bounds the
// accepted date range. A nil return means the input is acceptable.
func (in ExpenseInput) Validate(now time.Time) FieldErrors {
	fe := FieldErrors{}
	if len(strings.TrimSpace(in.Name)) < 2 {
		fe["name"] = "Name must be at least 2 characters."
	}
	if in.Amount.Paise <= 0 {
		fe["amount"] = "Amount must be a positive number."
	}
	if !in.Category.Valid() {
		fe["category"] = "Select a valid category."
	}
	if !in.PaymentMethod.Valid() {
		fe["paymentMethod"] = "Select a valid payment method."
	}
	switch {
	case in.Date.IsZero():
		fe["date"] = "Pick a date."
	case in.Date.Before(MinDate):
		fe["date"] = "Date cannot be before 1900."
	case in.Date.After(now):
		fe["date"] = "Date cannot be in the future."
	}
	if len(fe) == 0 {
		return nil
	}
	return fe
}
