package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// SeedBalance sets an account balance directly when using the in-memory store.
// Test helper only; production balances change solely through Transfer.
func SeedBalance(s Store, number string, balance decimal.Decimal) {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return
	}
	ma, err := mem.lookup(number)
	if err != nil {
		return
	}
	ma.mu.Lock()
	defer ma.mu.Unlock()
	ma.acct.Balance = balance
}

// FailNextCredit arms the in-memory store to fail the next credit leg after
// the debit has been applied, exercising the compensating rollback path.
func FailNextCredit(s Store, err error) {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	mem.creditFailure = err
}

// HoldAccount grabs the in-memory account lock and returns a release func,
// letting tests provoke lock-acquisition timeouts.
func HoldAccount(s Store, number string) (release func()) {
	mem, ok := s.(*inMemoryStore)
	if !ok {
		return func() {}
	}
	ma, err := mem.lookup(number)
	if err != nil {
		return func() {}
	}
	ma.mu.Lock()
	return ma.mu.Unlock
}

// SetLockTimeout shortens the in-memory lock-acquisition bound for tests.
func SetLockTimeout(s Store, d time.Duration) {
	if mem, ok := s.(*inMemoryStore); ok {
		mem.lockTimeout = d
	}
}
