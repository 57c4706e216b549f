package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/audit"
	"github.com/securecipher/bankcore/internal/ledger"
	"github.com/securecipher/bankcore/internal/reference"
	"github.com/securecipher/bankcore/internal/translog"
)

// ErrNotOwner indicates the caller does not own the debited account.
var ErrNotOwner = errors.New("not owner of source account")

// Service orchestrates transfers: it validates both legs, issues a reference
// number, and drives the ledger's atomic debit/credit + log append.
type Service struct {
	store ledger.Store
	log   translog.Log
	refs  *reference.Generator
	trail audit.Trail
}

// NewService constructs a transfer service, ensuring the cash suspense
// account backing deposits and withdrawals exists.
func NewService(ctx context.Context, store ledger.Store, log translog.Log, refs *reference.Generator, trail audit.Trail) (*Service, error) {
	err := store.CreateAccount(ctx, ledger.Account{
		ID:       uuid.NewString(),
		Number:   ledger.CashSuspenseNumber,
		TypeName: "internal",
		Status:   ledger.StatusActive,
	})
	if err != nil && !errors.Is(err, ledger.ErrAccountExists) {
		return nil, err
	}
	return &Service{store: store, log: log, refs: refs, trail: trail}, nil
}

// Input captures the data needed to move funds between two accounts.
type Input struct {
	SourceNumber    string
	DestNumber      string
	Amount          decimal.Decimal
	Description     string
	IdempotencyKey  string
	RequestorUserID string
}

// CashInput captures a deposit into or withdrawal out of a single account.
type CashInput struct {
	AccountNumber   string
	Amount          decimal.Decimal
	Description     string
	IdempotencyKey  string
	RequestorUserID string
}

// Result describes the outcome of a committed transfer.
type Result struct {
	Transaction   translog.Transaction
	SourceBalance decimal.Decimal
	DestBalance   decimal.Decimal
}

// Execute validates and commits an account-to-account transfer. Validation
// failures mutate nothing; failures after the debit are rolled back by the
// ledger before they surface. A repeated idempotency key returns the original
// transaction without creating a second record.
func (s *Service) Execute(ctx context.Context, input Input) (Result, error) {
	if !input.Amount.IsPositive() {
		return Result{}, ledger.ErrInvalidAmount
	}
	if input.SourceNumber == input.DestNumber {
		return Result{}, ledger.ErrSameAccountTransfer
	}

	if existing, ok, err := s.replay(ctx, input.IdempotencyKey); err != nil {
		return Result{}, err
	} else if ok {
		return existing, nil
	}

	source, err := s.activeAccount(ctx, input.SourceNumber)
	if err != nil {
		return Result{}, err
	}
	if input.RequestorUserID != "" && source.OwnerID != input.RequestorUserID {
		return Result{}, ErrNotOwner
	}
	if _, err := s.activeAccount(ctx, input.DestNumber); err != nil {
		return Result{}, err
	}

	rec := translog.Transaction{
		SourceNumber:   input.SourceNumber,
		DestNumber:     input.DestNumber,
		Amount:         input.Amount,
		Category:       translog.CategoryTransfer,
		Description:    input.Description,
		IdempotencyKey: input.IdempotencyKey,
	}
	return s.commit(ctx, input.SourceNumber, input.DestNumber, rec, input.RequestorUserID)
}

// Deposit credits an account from the cash suspense account.
func (s *Service) Deposit(ctx context.Context, input CashInput) (Result, error) {
	if !input.Amount.IsPositive() {
		return Result{}, ledger.ErrInvalidAmount
	}
	if existing, ok, err := s.replay(ctx, input.IdempotencyKey); err != nil {
		return Result{}, err
	} else if ok {
		return existing, nil
	}
	if _, err := s.activeAccount(ctx, input.AccountNumber); err != nil {
		return Result{}, err
	}

	rec := translog.Transaction{
		DestNumber:     input.AccountNumber,
		Amount:         input.Amount,
		Category:       translog.CategoryDeposit,
		Description:    input.Description,
		IdempotencyKey: input.IdempotencyKey,
	}
	return s.commit(ctx, ledger.CashSuspenseNumber, input.AccountNumber, rec, input.RequestorUserID)
}

// Withdraw debits an account into the cash suspense account. The account's
// minimum-balance floor applies as it does for transfers.
func (s *Service) Withdraw(ctx context.Context, input CashInput) (Result, error) {
	if !input.Amount.IsPositive() {
		return Result{}, ledger.ErrInvalidAmount
	}
	if existing, ok, err := s.replay(ctx, input.IdempotencyKey); err != nil {
		return Result{}, err
	} else if ok {
		return existing, nil
	}
	source, err := s.activeAccount(ctx, input.AccountNumber)
	if err != nil {
		return Result{}, err
	}
	if input.RequestorUserID != "" && source.OwnerID != input.RequestorUserID {
		return Result{}, ErrNotOwner
	}

	rec := translog.Transaction{
		SourceNumber:   input.AccountNumber,
		Amount:         input.Amount,
		Category:       translog.CategoryWithdrawal,
		Description:    input.Description,
		IdempotencyKey: input.IdempotencyKey,
	}
	return s.commit(ctx, input.AccountNumber, ledger.CashSuspenseNumber, rec, input.RequestorUserID)
}

// History returns the account's transactions most-recent-first.
func (s *Service) History(ctx context.Context, accountNumber string, q translog.Query) ([]translog.Transaction, error) {
	if _, err := s.store.Get(ctx, accountNumber); err != nil {
		return nil, err
	}
	return s.log.History(ctx, accountNumber, q)
}

// FindByReference looks up a committed transaction.
func (s *Service) FindByReference(ctx context.Context, ref string) (translog.Transaction, error) {
	return s.log.FindByReference(ctx, ref)
}

func (s *Service) commit(ctx context.Context, fromNumber, toNumber string, rec translog.Transaction, actorID string) (Result, error) {
	ref, err := s.refs.TransactionRef(ctx)
	if err != nil {
		if errors.Is(err, reference.ErrReferenceCollision) {
			return Result{}, fmt.Errorf("issue reference number: %w", err)
		}
		return Result{}, err
	}
	rec.ID = uuid.NewString()
	rec.Reference = ref
	rec.Status = translog.StatusPending
	rec.CreatedAt = time.Now().UTC()

	res, err := s.store.Transfer(ctx, fromNumber, toNumber, rec)
	if errors.Is(err, ledger.ErrDuplicateTransaction) {
		// Lost the idempotency race; surface the committed transaction.
		if existing, ok, ferr := s.replay(ctx, rec.IdempotencyKey); ferr == nil && ok {
			return existing, nil
		}
		return Result{}, err
	}
	if err != nil {
		s.record(ctx, actorID, rec, err.Error())
		return Result{}, err
	}

	rec.Status = translog.StatusCompleted
	s.record(ctx, actorID, rec, "completed")

	return Result{Transaction: rec, SourceBalance: res.FromBalance, DestBalance: res.ToBalance}, nil
}

// replay returns the previously committed transaction for the key, if any.
func (s *Service) replay(ctx context.Context, key string) (Result, bool, error) {
	if key == "" {
		return Result{}, false, nil
	}
	existing, err := s.log.FindByIdempotencyKey(ctx, key)
	if errors.Is(err, translog.ErrNotFound) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, err
	}

	res := Result{Transaction: existing}
	if existing.SourceNumber != "" {
		if bal, err := s.store.Balance(ctx, existing.SourceNumber); err == nil {
			res.SourceBalance = bal
		}
	}
	if existing.DestNumber != "" {
		if bal, err := s.store.Balance(ctx, existing.DestNumber); err == nil {
			res.DestBalance = bal
		}
	}
	return res, true, nil
}

func (s *Service) activeAccount(ctx context.Context, number string) (ledger.Account, error) {
	acct, err := s.store.Get(ctx, number)
	if err != nil {
		return ledger.Account{}, err
	}
	if !acct.Active() {
		return ledger.Account{}, ledger.ErrAccountInactive
	}
	return acct, nil
}

func (s *Service) record(ctx context.Context, actorID string, rec translog.Transaction, outcome string) {
	if s.trail == nil {
		return
	}
	s.trail.Record(ctx, audit.Entry{
		Action:      audit.ActionTransfer,
		ActorID:     actorID,
		Description: fmt.Sprintf("%s of %s from %q to %q", rec.Category, rec.Amount, rec.SourceNumber, rec.DestNumber),
		Reference:   rec.Reference,
		Outcome:     outcome,
	})
}
