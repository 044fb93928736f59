package types

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of minor-unit digits for every supported currency.
const MoneyPlaces = 2

// Money is an amount in major units that always renders with two decimals.
type Money struct {
	decimal.Decimal
}

// MoneyFromCents converts minor units into a Money value.
func MoneyFromCents(cents int64) Money {
	return Money{Decimal: decimal.New(cents, -MoneyPlaces)}
}

// Cents returns the amount in minor units.
func (m Money) Cents() int64 {
	return m.Shift(MoneyPlaces).IntPart()
}

func (m Money) String() string {
	return m.StringFixed(MoneyPlaces)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Money) UnmarshalJSON(data []byte) error {
	return m.Decimal.UnmarshalJSON(data)
}

// ParseMoney validates a major-unit amount and returns it in cents. Negative
// values and sub-cent precision are rejected.
func ParseMoney(d decimal.Decimal) (int64, error) {
	if d.IsNegative() {
		return 0, fmt.Errorf("amount must not be negative")
	}
	if !d.Equal(d.Round(MoneyPlaces)) {
		return 0, fmt.Errorf("amount must have at most %d decimal places", MoneyPlaces)
	}
	return d.Shift(MoneyPlaces).IntPart(), nil
}
