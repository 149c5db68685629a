// Package snapshot persists the desk's local copy of each content list.
// Every write replaces the whole snapshot; there are no deltas.
package snapshot

import (
	"context"
	"errors"
	"sync"

	"newsdesk/internal/models"
)

// ErrInvalidList is returned for an empty list name.
var ErrInvalidList = errors.New("snapshot: list name is required")

// Store loads and saves whole list snapshots. Loading a list that was never
// saved returns an empty slice and no error.
type Store interface {
	Load(ctx context.Context, list string) ([]models.ContentItem, error)
	Save(ctx context.Context, list string, items []models.ContentItem) error
}

// MemoryStore keeps snapshots in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	lists map[string][]models.ContentItem
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string][]models.ContentItem)}
}

func (m *MemoryStore) Load(_ context.Context, list string) ([]models.ContentItem, error) {
	if list == "" {
		return nil, ErrInvalidList
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := models.CloneItems(m.lists[list])
	if items == nil {
		items = []models.ContentItem{}
	}
	return items, nil
}

func (m *MemoryStore) Save(_ context.Context, list string, items []models.ContentItem) error {
	if list == "" {
		return ErrInvalidList
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists[list] = models.CloneItems(items)
	return nil
}
