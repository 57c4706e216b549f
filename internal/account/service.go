package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/ledger"
	"github.com/securecipher/bankcore/internal/reference"
)

// ErrAccountTypeInactive occurs when opening against a retired account type.
var ErrAccountTypeInactive = errors.New("account type is inactive")

const openAttempts = 5

// Service manages the account lifecycle on top of the ledger store.
type Service struct {
	store ledger.Store
	types TypeRepository
}

// NewService builds an account service instance.
func NewService(store ledger.Store, types TypeRepository) *Service {
	return &Service{store: store, types: types}
}

// OpenInput captures data required to open an account.
type OpenInput struct {
	OwnerID  string
	Phone    string
	TypeName string
	Primary  bool
}

// Open provisions a ledger account with the type's minimum-balance policy and
// a phone-derived account number, retrying with a disambiguating suffix when
// the number is taken.
func (s *Service) Open(ctx context.Context, input OpenInput) (ledger.Account, error) {
	if input.OwnerID == "" {
		return ledger.Account{}, errors.New("owner id is required")
	}
	if input.Phone == "" {
		return ledger.Account{}, errors.New("phone number is required")
	}

	at, err := s.types.Get(ctx, input.TypeName)
	if err != nil {
		return ledger.Account{}, err
	}
	if !at.Active {
		return ledger.Account{}, ErrAccountTypeInactive
	}

	for attempt := 0; attempt < openAttempts; attempt++ {
		acct := ledger.Account{
			ID:             uuid.NewString(),
			Number:         reference.AccountNumber(input.Phone, attempt),
			OwnerID:        input.OwnerID,
			TypeName:       at.Name,
			Balance:        decimal.Zero,
			MinimumBalance: at.MinimumBalance,
			Status:         ledger.StatusActive,
			Primary:        input.Primary,
			CreatedAt:      time.Now().UTC(),
		}
		err := s.store.CreateAccount(ctx, acct)
		if errors.Is(err, ledger.ErrAccountExists) {
			continue
		}
		if err != nil {
			return ledger.Account{}, err
		}
		return acct, nil
	}
	return ledger.Account{}, fmt.Errorf("could not allocate an account number for %s", input.Phone)
}

// Get retrieves an account by number.
func (s *Service) Get(ctx context.Context, number string) (ledger.Account, error) {
	return s.store.Get(ctx, number)
}

// Balance returns the current ledger balance for the account.
func (s *Service) Balance(ctx context.Context, number string) (Balance, error) {
	amount, err := s.store.Balance(ctx, number)
	if err != nil {
		return Balance{}, err
	}
	return Balance{AccountNumber: number, Amount: amount, AsOf: time.Now().UTC()}, nil
}

// Close runs the explicit closure workflow: the account must exist and hold
// exactly its minimum balance or zero excess before it is marked closed.
func (s *Service) Close(ctx context.Context, number string) error {
	acct, err := s.store.Get(ctx, number)
	if err != nil {
		return err
	}
	if acct.Status == ledger.StatusClosed {
		return nil
	}
	if acct.Balance.GreaterThan(acct.MinimumBalance) {
		return fmt.Errorf("account %s still holds funds above its minimum", number)
	}
	return s.store.UpdateStatus(ctx, number, ledger.StatusClosed)
}

// Types lists the active account types.
func (s *Service) Types(ctx context.Context) ([]AccountType, error) {
	return s.types.List(ctx)
}
