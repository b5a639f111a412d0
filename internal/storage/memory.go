package storage

import (
	"context"
	"fmt"
	"os"
	"sync"

	"expensetracker/internal/core"
)

// MemoryStore keeps records in process memory only. It reports
// fs.ErrNotExist until the first Save, like a fresh FileStore.
type MemoryStore struct {
	mu      sync.Mutex
	items   []core.Expense
	written bool
	saves   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith returns a store that already holds records.
func NewMemoryStoreWith(records []core.Expense) *MemoryStore {
	return &MemoryStore{items: append([]core.Expense{}, records...), written: true}
}

func (s *MemoryStore) Load(_ context.Context) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.written {
		return nil, fmt.Errorf("memory store: %w", os.ErrNotExist)
	}
	return append([]core.Expense{}, s.items...), nil
}

func (s *MemoryStore) Save(_ context.Context, records []core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Expense{}, records...)
	s.written = true
	s.saves++
	return nil
}

// Saves reports how many times Save was called.
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
