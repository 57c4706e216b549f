package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/translog"
)

var (
	// ErrInvalidAmount occurs when a posting amount is zero or negative.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds occurs when a debit would push the source account
	// below its minimum-balance threshold.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound indicates the referenced account number does not exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists indicates an account with the same number already exists.
	ErrAccountExists = errors.New("account already exists")

	// ErrSameAccountTransfer occurs when source and destination are the same account.
	ErrSameAccountTransfer = errors.New("source and destination accounts are the same")

	// ErrAccountInactive occurs when either leg of a transfer is not active.
	ErrAccountInactive = errors.New("account is not active")

	// ErrTransferTimeout occurs when both account locks cannot be acquired
	// within the configured bound. No partial mutation is retained.
	ErrTransferTimeout = errors.New("transfer timed out acquiring account locks")

	// ErrDuplicateTransaction indicates the provided idempotency key was
	// already committed; callers should surface the original transaction.
	ErrDuplicateTransaction = errors.New("duplicate transaction")
)

// Status is the lifecycle state of an account.
type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
	StatusClosed    Status = "closed"
)

// CashSuspenseNumber is the internal account backing cash deposits and
// withdrawals. It is exempt from the minimum-balance floor.
const CashSuspenseNumber = "suspense:cash"

// DefaultLockTimeout bounds two-account lock acquisition for a transfer.
const DefaultLockTimeout = 5 * time.Second

// Account holds the authoritative balance for one account. Balances are
// mutated only through a Store.
type Account struct {
	ID             string
	Number         string
	OwnerID        string
	TypeName       string
	Balance        decimal.Decimal
	MinimumBalance decimal.Decimal
	Status         Status
	Primary        bool
	CreatedAt      time.Time
}

// Active reports whether the account may participate in transfers.
func (a Account) Active() bool {
	return a.Status == StatusActive
}

// TransferResult captures the outcome of a committed transfer.
type TransferResult struct {
	Reference   string
	FromBalance decimal.Decimal
	ToBalance   decimal.Decimal
}

// Store is the persistence port owning account balances, implemented by
// Postgres and in-memory backends. Transfer applies the paired debit/credit
// and appends the completed transaction record as one atomic unit: it either
// fully commits or leaves balances and the log untouched. Locks are acquired
// in ascending account-number order so opposing transfers between the same
// pair cannot deadlock, and two concurrent debits can never both pass the
// minimum-balance check against a stale balance.
type Store interface {
	CreateAccount(ctx context.Context, acct Account) error
	Get(ctx context.Context, number string) (Account, error)
	Balance(ctx context.Context, number string) (decimal.Decimal, error)
	UpdateStatus(ctx context.Context, number string, status Status) error
	Transfer(ctx context.Context, fromNumber, toNumber string, rec translog.Transaction) (TransferResult, error)
}

func validateLegs(fromNumber, toNumber string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if fromNumber == toNumber {
		return ErrSameAccountTransfer
	}
	return nil
}

// debitFloor reports whether the balance after a debit stays at or above the
// account's minimum. The cash suspense account has no floor.
func debitFloor(acct Account, amount decimal.Decimal) bool {
	if acct.Number == CashSuspenseNumber {
		return true
	}
	return acct.Balance.Sub(amount).GreaterThanOrEqual(acct.MinimumBalance)
}
