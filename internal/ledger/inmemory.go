package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/translog"
)

type memoryAccount struct {
	mu   sync.Mutex
	acct Account
}

type inMemoryStore struct {
	mu          sync.Mutex
	accounts    map[string]*memoryAccount
	log         *translog.MemoryLog
	lockTimeout time.Duration

	// creditFailure, when set, aborts the next credit leg after the debit has
	// been applied. Used by tests to verify compensating rollback.
	creditFailure error
}

// NewInMemory creates a concurrency-safe in-memory store that commits balances
// and log appends together. Useful for unit tests and local runs.
func NewInMemory(log *translog.MemoryLog) Store {
	return &inMemoryStore{
		accounts:    make(map[string]*memoryAccount),
		log:         log,
		lockTimeout: DefaultLockTimeout,
	}
}

func (s *inMemoryStore) CreateAccount(_ context.Context, acct Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[acct.Number]; exists {
		return ErrAccountExists
	}
	if acct.CreatedAt.IsZero() {
		acct.CreatedAt = time.Now().UTC()
	}
	s.accounts[acct.Number] = &memoryAccount{acct: acct}
	return nil
}

func (s *inMemoryStore) Get(_ context.Context, number string) (Account, error) {
	ma, err := s.lookup(number)
	if err != nil {
		return Account{}, err
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return ma.acct, nil
}

func (s *inMemoryStore) Balance(ctx context.Context, number string) (decimal.Decimal, error) {
	acct, err := s.Get(ctx, number)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return acct.Balance, nil
}

func (s *inMemoryStore) UpdateStatus(_ context.Context, number string, status Status) error {
	ma, err := s.lookup(number)
	if err != nil {
		return err
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.acct.Status = status
	return nil
}

func (s *inMemoryStore) Transfer(ctx context.Context, fromNumber, toNumber string, rec translog.Transaction) (TransferResult, error) {
	if err := validateLegs(fromNumber, toNumber, rec.Amount); err != nil {
		return TransferResult{}, err
	}

	from, err := s.lookup(fromNumber)
	if err != nil {
		return TransferResult{}, err
	}
	to, err := s.lookup(toNumber)
	if err != nil {
		return TransferResult{}, err
	}

	// Canonical ordering: lock the lower account number first.
	first, second := from, to
	if toNumber < fromNumber {
		first, second = to, from
	}

	deadline := time.Now().Add(s.lockTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if !lockBefore(&first.mu, deadline) {
		return TransferResult{}, ErrTransferTimeout
	}
	defer first.mu.Unlock()
	if !lockBefore(&second.mu, deadline) {
		return TransferResult{}, ErrTransferTimeout
	}
	defer second.mu.Unlock()

	if rec.IdempotencyKey != "" {
		if _, err := s.log.FindByIdempotencyKey(ctx, rec.IdempotencyKey); err == nil {
			return TransferResult{}, ErrDuplicateTransaction
		}
	}

	if !debitFloor(from.acct, rec.Amount) {
		return TransferResult{}, ErrInsufficientFunds
	}

	from.acct.Balance = from.acct.Balance.Sub(rec.Amount)

	if err := s.takeCreditFailure(); err != nil {
		// Compensate the debit before surfacing the error.
		from.acct.Balance = from.acct.Balance.Add(rec.Amount)
		return TransferResult{}, err
	}
	to.acct.Balance = to.acct.Balance.Add(rec.Amount)

	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.Status = translog.StatusCompleted

	if err := s.log.Append(ctx, rec); err != nil {
		from.acct.Balance = from.acct.Balance.Add(rec.Amount)
		to.acct.Balance = to.acct.Balance.Sub(rec.Amount)
		return TransferResult{}, err
	}

	return TransferResult{
		Reference:   rec.Reference,
		FromBalance: from.acct.Balance,
		ToBalance:   to.acct.Balance,
	}, nil
}

func (s *inMemoryStore) lookup(number string) (*memoryAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ma, ok := s.accounts[number]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return ma, nil
}

func (s *inMemoryStore) takeCreditFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.creditFailure
	s.creditFailure = nil
	return err
}

func lockBefore(mu *sync.Mutex, deadline time.Time) bool {
	for {
		if mu.TryLock() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(200 * time.Microsecond)
	}
}
