// Package core holds the expense domain model, money handling, and the
// monthly report computation.
//
// This file contains parsing and formatting of monetary amounts. Amounts are
// stored as integer paise (hundredths of a rupee) to keep arithmetic exact.
package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Money is a rupee amount in integer paise.
type Money struct {
	Paise int64
}

var ErrInvalidAmount = errors.New("invalid amount")

// ParseDecimalToPaise converts a decimal string to paise with half-up
// rounding on the third decimal place. Both dot (1500.50) and comma
// (1500,50) separators are accepted. Only positive amounts are valid.
//
// Examples:
//
//	ParseDecimalToPaise("1500.50") -> 150050, nil
//	ParseDecimalToPaise("12.344")  -> 1234, nil (rounds down)
//	ParseDecimalToPaise("12.345")  -> 1235, nil (rounds up)
func ParseDecimalToPaise(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return 0, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	for _, r := range fracPart {
		if !unicode.IsDigit(r) {
			return 0, ErrInvalidAmount
		}
	}
	iv, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	// Guard the *100 below.
	const maxSafeInt64 = (1<<63 - 1) / 100
	if iv > maxSafeInt64 {
		return 0, ErrInvalidAmount
	}
	var frac int64
	if len(fracPart) > 0 {
		frac = int64(fracPart[0]-'0') * 10
		if len(fracPart) > 1 {
			frac += int64(fracPart[1] - '0')
			if len(fracPart) > 2 && fracPart[2] >= '5' {
				frac++
			}
		}
	}
	paise := iv*100 + frac
	if paise <= 0 {
		return 0, ErrInvalidAmount
	}
	return paise, nil
}

// Add returns the sum of two amounts.
func (m Money) Add(o Money) Money {
	return Money{Paise: m.Paise + o.Paise}
}

// Rupees returns the rupee value as a float64 for display purposes.
// Use paise for arithmetic; this is lossy by construction.
func (m Money) Rupees() float64 {
	return float64(m.Paise) / 100.0
}

// String formats the amount as ₹N.NN.
func (m Money) String() string {
	neg := m.Paise < 0
	p := m.Paise
	if neg {
		p = -p
	}
	s := fmt.Sprintf("₹%d.%02d", p/100, p%100)
	if neg {
		return "-" + s
	}
	return s
}
