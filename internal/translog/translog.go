package translog

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates no transaction matches the requested reference or key.
var ErrNotFound = errors.New("transaction not found")

// Status is the lifecycle state of a transaction. A record moves from pending
// to completed or failed exactly once and is immutable afterwards.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

const (
	CategoryTransfer   = "transfer"
	CategoryDeposit    = "deposit"
	CategoryWithdrawal = "withdrawal"
)

// Transaction is a single committed money movement. SourceNumber or DestNumber
// is empty when the counterparty is the cash leg of a deposit or withdrawal.
type Transaction struct {
	ID             string
	Reference      string
	SourceNumber   string
	DestNumber     string
	Amount         decimal.Decimal
	Category       string
	Description    string
	Status         Status
	IdempotencyKey string
	CreatedAt      time.Time
}

// Query narrows and pages a history listing. Zero values mean "no filter".
type Query struct {
	Page     int
	PageSize int
	Category string
	Status   Status
	From     time.Time
	To       time.Time
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Normalize clamps paging parameters to sane bounds.
func (q Query) Normalize() Query {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = defaultPageSize
	}
	if q.PageSize > maxPageSize {
		q.PageSize = maxPageSize
	}
	return q
}

func (q Query) matches(tx Transaction) bool {
	if q.Category != "" && tx.Category != q.Category {
		return false
	}
	if q.Status != "" && tx.Status != q.Status {
		return false
	}
	if !q.From.IsZero() && tx.CreatedAt.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && tx.CreatedAt.After(q.To) {
		return false
	}
	return true
}

// Log is the append-only record of completed transfers. Append is the only
// mutation; corrections are modeled as new offsetting transactions.
type Log interface {
	Append(ctx context.Context, tx Transaction) error
	History(ctx context.Context, accountNumber string, q Query) ([]Transaction, error)
	FindByReference(ctx context.Context, reference string) (Transaction, error)
	FindByIdempotencyKey(ctx context.Context, key string) (Transaction, error)
}
