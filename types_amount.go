package bookkeeper

import (
	"errors"
	"fmt"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Amount represents a signed quantity of one commodity. The commodity is
// usually an ISO currency code ("CHF"), but posting legs that move security
// units use the ticker ("VTI") instead.
type Amount struct {
	value decimal.Decimal
	cur   string
}

func A[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, commodity string) Amount {
	return Amount{value: newDecimal(value), cur: commodity}
}

// ParseAmount parses a decimal string and a commodity into an Amount.
func ParseAmount(s, commodity string) (Amount, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{value: v, cur: commodity}, nil
}

// currency returns the amount's currency metadata, defaulting to a plain
// formatter for commodities go-money does not know (security tickers).
func (m Amount) currency() *money.Currency {
	return money.New(0, m.cur).Currency()
}

// String returns the string representation of the amount.
func (m Amount) String() string {
	if money.GetCurrency(m.cur) == nil {
		// Not a currency: a security ticker or an empty commodity.
		return m.value.String() + " " + m.cur
	}
	cur := m.currency()
	dec := m.value.Shift(int32(cur.Fraction))
	return cur.Formatter().Format(dec.IntPart())
}

func (m Amount) Currency() string                 { return m.cur }
func (m Amount) Equal(n Amount) bool              { return m.value.Equal(n.value) && m.cur == n.cur }
func (m Amount) IsZero() bool                     { return m.value.IsZero() }
func (m Amount) IsPositive() bool                 { return m.value.IsPositive() }
func (m Amount) IsNegative() bool                 { return m.value.IsNegative() }
func (m Amount) LessThan(n Amount) bool           { return m.value.LessThan(n.value) }
func (m Amount) GreaterThan(n Amount) bool        { return m.value.GreaterThan(n.value) }
func (m Amount) Neg() Amount                      { return Amount{value: m.value.Neg(), cur: m.cur} }
func (m Amount) Abs() Amount                      { return Amount{value: m.value.Abs(), cur: m.cur} }
func (m Amount) Mul(n Quantity) Amount            { return Amount{value: m.value.Mul(n.value), cur: m.cur} }
func (m Amount) Div(n Quantity) Amount            { return Amount{value: m.value.Div(n.value), cur: m.cur} }

// Quantity reads the amount's value as a number of units, dropping the commodity.
func (m Amount) Quantity() Quantity { return Quantity{value: m.value} }

// Decimal exposes the underlying exact value.
func (m Amount) Decimal() decimal.Decimal { return m.value }

// Convert re-expresses the amount in another currency at the given rate.
func (m Amount) Convert(rate decimal.Decimal, currency string) Amount {
	return Amount{value: m.value.Mul(rate), cur: currency}
}

// binary operators.
func (m Amount) Add(n Amount) Amount { return Amount{value: m.value.Add(n.value), cur: cur(m, n)} }
func (m Amount) Sub(n Amount) Amount { return Amount{value: m.value.Sub(n.value), cur: cur(m, n)} }

// makes the "" commodity totally weak.
func cur(A, B Amount) string {
	if A.cur == "" {
		return B.cur
	}
	if B.cur == "" {
		return A.cur
	}
	if A.cur != B.cur {
		panic("commodity mismatch " + A.cur + "!=" + B.cur)
	}
	return A.cur
}

// SignedString returns the string representation of the amount with a sign.
// 0 is represented as "-".
func (m Amount) SignedString() string {
	if m.value.IsZero() {
		return "-"
	}
	if m.value.IsPositive() {
		return "+" + m.String()
	}
	return m.String()
}

func (m Amount) MarshalJSON() ([]byte, error) {
	var w jsonObjectWriter
	w.Optional("currency", m.cur)
	w.Append("amount", m.value)
	return w.MarshalJSON()
}

// amountField is a specialized struct to read an amount from two JSON fields.
type amountField struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

func (a amountField) Value() Amount {
	return A(a.Amount, a.Currency)
}

// ValidateCurrency reports whether code names a real currency.
func ValidateCurrency(code string) error {
	if code == "" {
		return errors.New("currency code is empty")
	}
	if money.GetCurrency(code) == nil {
		return fmt.Errorf("unknown currency code %q", code)
	}
	return nil
}
