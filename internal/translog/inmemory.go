package translog

import (
	"context"
	"errors"
	"sync"
)

// MemoryLog is a concurrency-safe in-memory transaction log. The in-memory
// ledger store appends to it inside its own critical section so that balances
// and the log commit together.
type MemoryLog struct {
	mu      sync.RWMutex
	entries []Transaction
	byRef   map[string]int
	byKey   map[string]int
}

// NewMemoryLog builds an empty in-memory log useful for tests and local runs.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		byRef: make(map[string]int),
		byKey: make(map[string]int),
	}
}

// Append records a transaction. References must be unique across the log.
func (l *MemoryLog) Append(_ context.Context, tx Transaction) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(tx)
}

func (l *MemoryLog) appendLocked(tx Transaction) error {
	if _, exists := l.byRef[tx.Reference]; exists {
		return errors.New("duplicate reference number")
	}
	if tx.IdempotencyKey != "" {
		if _, exists := l.byKey[tx.IdempotencyKey]; exists {
			return errors.New("duplicate idempotency key")
		}
	}
	l.entries = append(l.entries, tx)
	l.byRef[tx.Reference] = len(l.entries) - 1
	if tx.IdempotencyKey != "" {
		l.byKey[tx.IdempotencyKey] = len(l.entries) - 1
	}
	return nil
}

// History returns the account's transactions most-recent-first.
func (l *MemoryLog) History(_ context.Context, accountNumber string, q Query) ([]Transaction, error) {
	q = q.Normalize()

	l.mu.RLock()
	defer l.mu.RUnlock()

	var matched []Transaction
	// Entries are appended in commit order, so walk backwards for
	// most-recent-first.
	for i := len(l.entries) - 1; i >= 0; i-- {
		tx := l.entries[i]
		if tx.SourceNumber != accountNumber && tx.DestNumber != accountNumber {
			continue
		}
		if !q.matches(tx) {
			continue
		}
		matched = append(matched, tx)
	}

	start := (q.Page - 1) * q.PageSize
	if start >= len(matched) {
		return nil, nil
	}
	end := start + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], nil
}

// FindByReference looks up a transaction by its reference number.
func (l *MemoryLog) FindByReference(_ context.Context, reference string) (Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	idx, ok := l.byRef[reference]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return l.entries[idx], nil
}

// FindByIdempotencyKey looks up a transaction by the client-supplied key.
func (l *MemoryLog) FindByIdempotencyKey(_ context.Context, key string) (Transaction, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if key == "" {
		return Transaction{}, ErrNotFound
	}
	idx, ok := l.byKey[key]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return l.entries[idx], nil
}
