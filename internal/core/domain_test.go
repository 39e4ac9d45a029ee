package core

import (
	"strings"
	"testing"
	"time"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func validInput() ExpenseInput {
	return ExpenseInput{
		Name:          "Lunch with friends",
		Amount:        Money{Paise: 150050},
		Category:      CategoryFood,
		PaymentMethod: PaymentCash,
		Date:          testNow.AddDate(0, 0, -1),
	}
}

func TestExpenseInputValidate(t *testing.T) {
	if fe := validInput().Validate(testNow); fe != nil {
		t.Fatalf("expected ok, got %v", fe)
	}

	cases := []struct {
		name   string
		mutate func(*ExpenseInput)
		field  string
	}{
		{"empty name", func(in *ExpenseInput) { in.Name = "" }, "name"},
		{"one char name", func(in *ExpenseInput) { in.Name = "a" }, "name"},
		{"whitespace name", func(in *ExpenseInput) { in.Name = "  x  " }, "name"},
		{"zero amount", func(in *ExpenseInput) { in.Amount = Money{} }, "amount"},
		{"negative amount", func(in *ExpenseInput) { in.Amount = Money{Paise: -100} }, "amount"},
		{"unknown category", func(in *ExpenseInput) { in.Category = "snacks" }, "category"},
		{"unknown payment method", func(in *ExpenseInput) { in.PaymentMethod = "card" }, "paymentMethod"},
		{"zero date", func(in *ExpenseInput) { in.Date = time.Time{} }, "date"},
		{"date before 1900", func(in *ExpenseInput) { in.Date = time.Date(1899, 12, 31, 0, 0, 0, 0, time.UTC) }, "date"},
		{"future date", func(in *ExpenseInput) { in.Date = testNow.Add(time.Hour) }, "date"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)
			fe := in.Validate(testNow)
			if fe == nil {
				t.Fatalf("expected field error for %q", tc.field)
			}
			if _, ok := fe[tc.field]; !ok {
				t.Fatalf("expected error on field %q, got %v", tc.field, fe)
			}
		})
	}
}

func TestExpenseInputValidateTwoCharName(t *testing.T) {
	in := validInput()
	in.Name = "ok"
	if fe := in.Validate(testNow); fe != nil {
		t.Fatalf("two-character name should be valid, got %v", fe)
	}
}

func TestParseCategory(t *testing.T) {
	cases := []struct {
		in   string
		want Category
		ok   bool
	}{
		{"food", CategoryFood, true},
		{" Transport ", CategoryTransport, true},
		{"SHOPPING", CategoryShopping, true},
		{"bills", CategoryBills, true},
		{"other", CategoryOther, true},
		{"", CategoryOther, true}, // form default
		{"groceries", "", false},
	}
	for _, tc := range cases {
		got, err := ParseCategory(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParseCategory(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParseCategory(%q) expected error", tc.in)
		}
	}
}

func TestParsePaymentMethod(t *testing.T) {
	cases := []struct {
		in   string
		want PaymentMethod
		ok   bool
	}{
		{"cash", PaymentCash, true},
		{"UPI", PaymentUPI, true},
		{"", PaymentCash, true}, // legacy records lack the field
		{"card", "", false},
	}
	for _, tc := range cases {
		got, err := ParsePaymentMethod(tc.in)
		if tc.ok && (err != nil || got != tc.want) {
			t.Fatalf("ParsePaymentMethod(%q) = %v, %v; want %v", tc.in, got, err, tc.want)
		}
		if !tc.ok && err == nil {
			t.Fatalf("ParsePaymentMethod(%q) expected error", tc.in)
		}
	}
}

func TestFieldErrorsError(t *testing.T) {
	fe := FieldErrors{"name": "too short", "amount": "must be positive"}
	msg := fe.Error()
	if !strings.Contains(msg, "name: too short") || !strings.Contains(msg, "amount: must be positive") {
		t.Fatalf("unexpected message: %q", msg)
	}
}
