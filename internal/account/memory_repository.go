package account

import (
	"context"
	"sort"
	"sync"
)

// MemoryTypeRepository holds account types in memory for tests and local
// runs. Seed it with Put before use.
type MemoryTypeRepository struct {
	mu    sync.RWMutex
	types map[string]AccountType
}

// NewMemoryTypeRepository constructs an empty in-memory type repository.
func NewMemoryTypeRepository() *MemoryTypeRepository {
	return &MemoryTypeRepository{types: make(map[string]AccountType)}
}

// Put registers or replaces an account type.
func (r *MemoryTypeRepository) Put(at AccountType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[at.Name] = at
}

// Get fetches one account type by name.
func (r *MemoryTypeRepository) Get(_ context.Context, name string) (AccountType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	at, ok := r.types[name]
	if !ok {
		return AccountType{}, ErrUnknownAccountType
	}
	return at, nil
}

// List returns all active account types sorted by name.
func (r *MemoryTypeRepository) List(_ context.Context) ([]AccountType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var types []AccountType
	for _, at := range r.types {
		if at.Active {
			types = append(types, at)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Name < types[j].Name })
	return types, nil
}
