package account

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/ledger"
	"github.com/securecipher/bankcore/internal/translog"
)

func newTestService(t *testing.T) (*Service, ledger.Store) {
	t.Helper()
	store := ledger.NewInMemory(translog.NewMemoryLog())
	types := NewMemoryTypeRepository()
	types.Put(AccountType{
		Name:           "savings",
		MinimumBalance: decimal.NewFromInt(100),
		Active:         true,
	})
	types.Put(AccountType{
		Name:   "checking",
		Active: true,
	})
	types.Put(AccountType{Name: "internal"})
	return NewService(store, types), store
}

func TestOpenDerivesNumberFromPhone(t *testing.T) {
	svc, _ := newTestService(t)

	acct, err := svc.Open(context.Background(), OpenInput{
		OwnerID:  "user-1",
		Phone:    "+2348012345678",
		TypeName: "savings",
		Primary:  true,
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if acct.Number != "8012345678" {
		t.Fatalf("expected number 8012345678, got %s", acct.Number)
	}
	if !acct.Balance.IsZero() {
		t.Fatalf("expected zero opening balance, got %s", acct.Balance)
	}
	if !acct.MinimumBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected minimum balance 100, got %s", acct.MinimumBalance)
	}
	if acct.Status != ledger.StatusActive {
		t.Fatalf("expected active status, got %s", acct.Status)
	}
}

func TestOpenRetriesWhenNumberTaken(t *testing.T) {
	svc, _ := newTestService(t)

	first, err := svc.Open(context.Background(), OpenInput{
		OwnerID: "user-1", Phone: "08012345678", TypeName: "savings",
	})
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	second, err := svc.Open(context.Background(), OpenInput{
		OwnerID: "user-1", Phone: "08012345678", TypeName: "checking",
	})
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if first.Number == second.Number {
		t.Fatalf("expected distinct numbers, both got %s", first.Number)
	}
}

func TestOpenRejectsUnknownAndInactiveTypes(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Open(context.Background(), OpenInput{
		OwnerID: "user-1", Phone: "08012345678", TypeName: "bogus",
	}); !errors.Is(err, ErrUnknownAccountType) {
		t.Fatalf("expected ErrUnknownAccountType, got %v", err)
	}
	if _, err := svc.Open(context.Background(), OpenInput{
		OwnerID: "user-1", Phone: "08012345678", TypeName: "internal",
	}); !errors.Is(err, ErrAccountTypeInactive) {
		t.Fatalf("expected ErrAccountTypeInactive, got %v", err)
	}
}

func TestCloseRequiresDrainedBalance(t *testing.T) {
	svc, store := newTestService(t)

	acct, err := svc.Open(context.Background(), OpenInput{
		OwnerID: "user-1", Phone: "08012345678", TypeName: "savings",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	ledger.SeedBalance(store, acct.Number, decimal.NewFromInt(150))
	if err := svc.Close(context.Background(), acct.Number); err == nil {
		t.Fatal("expected close to fail while funds remain above the minimum")
	}

	ledger.SeedBalance(store, acct.Number, decimal.NewFromInt(100))
	if err := svc.Close(context.Background(), acct.Number); err != nil {
		t.Fatalf("close: %v", err)
	}

	got, err := store.Get(context.Background(), acct.Number)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != ledger.StatusClosed {
		t.Fatalf("expected closed status, got %s", got.Status)
	}

	// Closing again is a no-op.
	if err := svc.Close(context.Background(), acct.Number); err != nil {
		t.Fatalf("repeat close: %v", err)
	}
}

func TestBalanceReportsCurrentFunds(t *testing.T) {
	svc, store := newTestService(t)

	acct, err := svc.Open(context.Background(), OpenInput{
		OwnerID: "user-1", Phone: "08012345678", TypeName: "checking",
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ledger.SeedBalance(store, acct.Number, decimal.RequireFromString("42.50"))

	bal, err := svc.Balance(context.Background(), acct.Number)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Amount.Equal(decimal.RequireFromString("42.50")) {
		t.Fatalf("expected 42.50, got %s", bal.Amount)
	}

	if _, err := svc.Balance(context.Background(), "0000000000"); !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestTypesListsOnlyActive(t *testing.T) {
	svc, _ := newTestService(t)

	types, err := svc.Types(context.Background())
	if err != nil {
		t.Fatalf("types: %v", err)
	}
	for _, at := range types {
		if !at.Active {
			t.Fatalf("expected only active types, got %s", at.Name)
		}
	}
	if len(types) != 2 {
		t.Fatalf("expected 2 active types, got %d", len(types))
	}
}
