package bot

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrNotFound = errors.New("bot not found")

// Store holds bot accounts. Implementations must be safe for concurrent use.
type Store interface {
	Get(id string) (Account, error)
	Put(a Account) error
	List() []Account
	SetState(id string, s State) error
}

// MemoryStore is an in-process Store. Accounts are derived state; the ledger
// remains the durable source of truth.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{accounts: make(map[string]Account)}
}

func (m *MemoryStore) Get(id string) (Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[id]
	if !ok {
		return Account{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return a, nil
}

func (m *MemoryStore) Put(a Account) error {
	if a.ID == "" {
		return errors.New("bot id is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[a.ID] = a
	return nil
}

// List returns all accounts, deleted ones included, ordered by id.
func (m *MemoryStore) List() []Account {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemoryStore) SetState(id string, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a.State = s
	m.accounts[id] = a
	return nil
}

// Delete soft-deletes an account. The row stays so ledger entries keep a
// valid bot reference.
func (m *MemoryStore) Delete(id string) error {
	return m.SetState(id, StateDeleted)
}

// AdjustCapital applies a signed capital delta, clamping at zero.
func (m *MemoryStore) AdjustCapital(id string, delta float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	a.Capital += delta
	if a.Capital < 0 {
		a.Capital = 0
	}
	m.accounts[id] = a
	return nil
}
