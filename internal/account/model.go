package account

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType is immutable reference data describing a product's balance
// policy. Seeded at bootstrap, never edited at runtime.
type AccountType struct {
	Name           string
	Description    string
	MinimumBalance decimal.Decimal
	DailyLimit     decimal.Decimal
	Active         bool
}

// Balance encapsulates available funds for an account at a point in time.
type Balance struct {
	AccountNumber string
	Amount        decimal.Decimal
	AsOf          time.Time
}
