package transfer

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/securecipher/bankcore/internal/audit"
	"github.com/securecipher/bankcore/internal/ledger"
	"github.com/securecipher/bankcore/internal/reference"
	"github.com/securecipher/bankcore/internal/translog"
)

type captureTrail struct {
	entries []audit.Entry
}

func (c *captureTrail) Record(_ context.Context, entry audit.Entry) {
	c.entries = append(c.entries, entry)
}

func newTestService(t *testing.T) (*Service, ledger.Store, *translog.MemoryLog, *captureTrail) {
	t.Helper()
	log := translog.NewMemoryLog()
	store := ledger.NewInMemory(log)
	trail := &captureTrail{}
	svc, err := NewService(context.Background(), store, log, reference.NewGenerator(log), trail)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc, store, log, trail
}

func seedAccount(t *testing.T, store ledger.Store, number, owner string, balance, minimum int64) {
	t.Helper()
	err := store.CreateAccount(context.Background(), ledger.Account{
		Number:         number,
		OwnerID:        owner,
		TypeName:       "checking",
		Balance:        decimal.NewFromInt(balance),
		MinimumBalance: decimal.NewFromInt(minimum),
		Status:         ledger.StatusActive,
	})
	if err != nil {
		t.Fatalf("seed account %s: %v", number, err)
	}
}

func TestExecuteTransferSuccess(t *testing.T) {
	svc, store, _, trail := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 200, 100)
	seedAccount(t, store, "7021234567", "bob", 0, 0)

	res, err := svc.Execute(ctx, Input{
		SourceNumber: "8031234567",
		DestNumber:   "7021234567",
		Amount:       decimal.NewFromInt(50),
		Description:  "rent",
	})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if !res.SourceBalance.Equal(decimal.NewFromInt(150)) || !res.DestBalance.Equal(decimal.NewFromInt(50)) {
		t.Fatalf("unexpected balances: %s / %s", res.SourceBalance, res.DestBalance)
	}
	if res.Transaction.Status != translog.StatusCompleted {
		t.Fatalf("expected completed transaction, got %s", res.Transaction.Status)
	}
	if res.Transaction.Reference == "" {
		t.Fatal("expected a reference number")
	}

	history, err := svc.History(ctx, "8031234567", translog.Query{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 1 || history[0].Reference != res.Transaction.Reference {
		t.Fatalf("expected one appended transaction, got %+v", history)
	}
	if len(trail.entries) != 1 || trail.entries[0].Outcome != "completed" {
		t.Fatalf("expected one completed audit entry, got %+v", trail.entries)
	}
}

func TestExecuteInsufficientFundsMutatesNothing(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 100, 0)
	seedAccount(t, store, "7021234567", "bob", 0, 0)

	_, err := svc.Execute(ctx, Input{
		SourceNumber: "8031234567",
		DestNumber:   "7021234567",
		Amount:       decimal.NewFromInt(500),
	})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	balance, _ := store.Balance(ctx, "8031234567")
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("source mutated: %s", balance)
	}
	history, _ := svc.History(ctx, "8031234567", translog.Query{})
	if len(history) != 0 {
		t.Fatalf("expected empty history, got %+v", history)
	}
}

func TestExecuteValidation(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 100, 0)

	_, err := svc.Execute(ctx, Input{SourceNumber: "8031234567", DestNumber: "8031234567", Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, ledger.ErrSameAccountTransfer) {
		t.Fatalf("expected ErrSameAccountTransfer, got %v", err)
	}

	_, err = svc.Execute(ctx, Input{SourceNumber: "8031234567", DestNumber: "7021234567", Amount: decimal.NewFromInt(-5)})
	if !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	_, err = svc.Execute(ctx, Input{SourceNumber: "8031234567", DestNumber: "0000000000", Amount: decimal.NewFromInt(5)})
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestExecuteOwnershipEnforced(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 100, 0)
	seedAccount(t, store, "7021234567", "bob", 0, 0)

	_, err := svc.Execute(ctx, Input{
		SourceNumber:    "8031234567",
		DestNumber:      "7021234567",
		Amount:          decimal.NewFromInt(10),
		RequestorUserID: "mallory",
	})
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestExecuteInactiveAccountRejected(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 100, 0)
	seedAccount(t, store, "7021234567", "bob", 0, 0)
	if err := store.UpdateStatus(ctx, "7021234567", ledger.StatusSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	_, err := svc.Execute(ctx, Input{SourceNumber: "8031234567", DestNumber: "7021234567", Amount: decimal.NewFromInt(10)})
	if !errors.Is(err, ledger.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestIdempotencyKeyProducesOneTransaction(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 100, 0)
	seedAccount(t, store, "7021234567", "bob", 0, 0)

	input := Input{
		SourceNumber:   "8031234567",
		DestNumber:     "7021234567",
		Amount:         decimal.NewFromInt(40),
		IdempotencyKey: "req-42",
	}
	first, err := svc.Execute(ctx, input)
	if err != nil {
		t.Fatalf("first execute: %v", err)
	}
	second, err := svc.Execute(ctx, input)
	if err != nil {
		t.Fatalf("replayed execute: %v", err)
	}

	if first.Transaction.Reference != second.Transaction.Reference {
		t.Fatalf("replay produced a new transaction: %s vs %s", first.Transaction.Reference, second.Transaction.Reference)
	}
	balance, _ := store.Balance(ctx, "8031234567")
	if !balance.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("replay moved money twice: %s", balance)
	}
	history, _ := svc.History(ctx, "8031234567", translog.Query{})
	if len(history) != 1 {
		t.Fatalf("expected exactly one transaction record, got %d", len(history))
	}
}

func TestCreditFailureRestoresSource(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 100, 0)
	seedAccount(t, store, "7021234567", "bob", 0, 0)

	injected := errors.New("storage went away")
	ledger.FailNextCredit(store, injected)

	_, err := svc.Execute(ctx, Input{SourceNumber: "8031234567", DestNumber: "7021234567", Amount: decimal.NewFromInt(25)})
	if !errors.Is(err, injected) {
		t.Fatalf("expected injected error, got %v", err)
	}

	balance, _ := store.Balance(ctx, "8031234567")
	if !balance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("source not restored: %s", balance)
	}
	history, _ := svc.History(ctx, "8031234567", translog.Query{})
	if len(history) != 0 {
		t.Fatalf("expected no transaction appended, got %+v", history)
	}
}

func TestDepositAndWithdraw(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 0, 0)

	dep, err := svc.Deposit(ctx, CashInput{AccountNumber: "8031234567", Amount: decimal.NewFromInt(100)})
	if err != nil {
		t.Fatalf("deposit: %v", err)
	}
	if dep.Transaction.Category != translog.CategoryDeposit || dep.Transaction.SourceNumber != "" {
		t.Fatalf("unexpected deposit record: %+v", dep.Transaction)
	}
	if !dep.DestBalance.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("unexpected balance after deposit: %s", dep.DestBalance)
	}

	wd, err := svc.Withdraw(ctx, CashInput{AccountNumber: "8031234567", Amount: decimal.NewFromInt(30), RequestorUserID: "alice"})
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if wd.Transaction.Category != translog.CategoryWithdrawal || wd.Transaction.DestNumber != "" {
		t.Fatalf("unexpected withdrawal record: %+v", wd.Transaction)
	}
	if !wd.SourceBalance.Equal(decimal.NewFromInt(70)) {
		t.Fatalf("unexpected balance after withdrawal: %s", wd.SourceBalance)
	}

	// Withdrawals respect the minimum-balance floor like any debit.
	_, err = svc.Withdraw(ctx, CashInput{AccountNumber: "8031234567", Amount: decimal.NewFromInt(500)})
	if !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
}

func TestHistoryFiltersAndPages(t *testing.T) {
	svc, store, _, _ := newTestService(t)
	ctx := context.Background()
	seedAccount(t, store, "8031234567", "alice", 1000, 0)
	seedAccount(t, store, "7021234567", "bob", 0, 0)

	for i := 0; i < 3; i++ {
		if _, err := svc.Execute(ctx, Input{SourceNumber: "8031234567", DestNumber: "7021234567", Amount: decimal.NewFromInt(10)}); err != nil {
			t.Fatalf("transfer %d: %v", i, err)
		}
	}
	if _, err := svc.Deposit(ctx, CashInput{AccountNumber: "8031234567", Amount: decimal.NewFromInt(5)}); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	all, err := svc.History(ctx, "8031234567", translog.Query{})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("expected 4 records, got %d", len(all))
	}
	// Most recent first: the deposit is the last commit.
	if all[0].Category != translog.CategoryDeposit {
		t.Fatalf("expected deposit first, got %s", all[0].Category)
	}

	transfersOnly, err := svc.History(ctx, "8031234567", translog.Query{Category: translog.CategoryTransfer})
	if err != nil {
		t.Fatalf("filtered history: %v", err)
	}
	if len(transfersOnly) != 3 {
		t.Fatalf("expected 3 transfers, got %d", len(transfersOnly))
	}

	paged, err := svc.History(ctx, "8031234567", translog.Query{Page: 2, PageSize: 3})
	if err != nil {
		t.Fatalf("paged history: %v", err)
	}
	if len(paged) != 1 {
		t.Fatalf("expected 1 record on page 2, got %d", len(paged))
	}
}
