package model

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Money is an amount in major currency units with its currency code.
// Formatted carries the platform's display string when one was provided.
type Money struct {
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
	Formatted string          `json:"formatted,omitempty"`
}

// ParseAmount converts a decimal string amount (e.g. "99.00") to a decimal.
// Platform APIs return money as strings; parsing never goes through float64.
// Empty or malformed input yields zero.
// Examples: "99.00" → 99, "1234.56" → 1234.56, "" → 0
func ParseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// NewMoney builds Money from a platform decimal string.
func NewMoney(amount, currency, formatted string) Money {
	return Money{
		Amount:    ParseAmount(amount),
		Currency:  currency,
		Formatted: formatted,
	}
}

// IsZero reports whether the amount is zero.
func (m Money) IsZero() bool {
	return m.Amount.IsZero()
}

// Mul returns the money multiplied by a quantity. The platform's formatted
// string no longer applies and is dropped.
func (m Money) Mul(qty int) Money {
	return Money{
		Amount:   m.Amount.Mul(decimal.NewFromInt(int64(qty))),
		Currency: m.Currency,
	}
}

// MarshalJSON renders the amount as a fixed two-decimal string so clients never
// see float artefacts.
func (m Money) MarshalJSON() ([]byte, error) {
	type wire struct {
		Amount    string `json:"amount"`
		Currency  string `json:"currency,omitempty"`
		Formatted string `json:"formatted,omitempty"`
	}
	return json.Marshal(wire{
		Amount:    m.Amount.StringFixed(2),
		Currency:  m.Currency,
		Formatted: m.Formatted,
	})
}

// UnmarshalJSON accepts the shape produced by MarshalJSON.
func (m *Money) UnmarshalJSON(data []byte) error {
	var wire struct {
		Amount    string `json:"amount"`
		Currency  string `json:"currency"`
		Formatted string `json:"formatted"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*m = NewMoney(wire.Amount, wire.Currency, wire.Formatted)
	return nil
}
