package core

import "testing"

func TestParseDecimalToPaise(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1500.50", 150050, true},
		{"1500,50", 150050, true},
		{"12", 1200, true},
		{"12.3", 1230, true},
		{"12.344", 1234, true}, // rounds down
		{"12.345", 1235, true}, // half rounds up
		{"12.346", 1235, true}, // rounds up
		{".5", 50, true},
		{" 7 ", 700, true},
		{"", 0, false},
		{"0", 0, false},
		{"0.00", 0, false},
		{"-5", 0, false},
		{"+5", 0, false},
		{"1.2.3", 0, false},
		{"abc", 0, false},
		{"12a", 0, false},
		{"99999999999999999999", 0, false}, // overflow
	}
	for _, tc := range cases {
		got, err := ParseDecimalToPaise(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("ParseDecimalToPaise(%q) unexpected error: %v", tc.in, err)
			}
			if got != tc.want {
				t.Fatalf("ParseDecimalToPaise(%q) = %d, want %d", tc.in, got, tc.want)
			}
			continue
		}
		if err == nil {
			t.Fatalf("ParseDecimalToPaise(%q) expected error, got %d", tc.in, got)
		}
	}
}

func TestMoneyString(t *testing.T) {
	cases := []struct {
		paise int64
		want  string
	}{
		{150050, "₹1500.50"},
		{5, "₹0.05"},
		{-1234, "-₹12.34"},
	}
	for _, tc := range cases {
		if got := (Money{Paise: tc.paise}).String(); got != tc.want {
			t.Fatalf("Money{%d}.String() = %q, want %q", tc.paise, got, tc.want)
		}
	}
}

func TestMoneyRupees(t *testing.T) {
	if got := (Money{Paise: 150050}).Rupees(); got != 1500.50 {
		t.Fatalf("Rupees() = %v, want 1500.50", got)
	}
}
