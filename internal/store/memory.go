package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/mkravets/inventory-tracker/internal/model"
)

// MemoryStore implements Store with in-memory storage. It backs tests
// and the dev-mode server; semantics match the Redis backend.
type MemoryStore struct {
	mu    sync.RWMutex
	items map[string]model.InventoryItem
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: make(map[string]model.InventoryItem),
	}
}

// List returns all items from the store.
func (s *MemoryStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.InventoryItem, 0, len(s.items))
	for _, item := range s.items {
		items = append(items, item)
	}

	return items, nil
}

// Get retrieves an item by its normalized name.
func (s *MemoryStore) Get(ctx context.Context, name string) (*model.InventoryItem, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	if name == "" {
		return nil, ErrEmptyKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, exists := s.items[name]
	if !exists {
		return nil, ErrNotFound
	}

	return &item, nil
}

// Put creates or fully replaces the item under its name.
func (s *MemoryStore) Put(ctx context.Context, item *model.InventoryItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("put item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return ErrNilItem
	}

	if item.Name == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.Name] = *item

	return nil
}

// IncrementQuantity atomically adds delta to the stored quantity.
func (s *MemoryStore) IncrementQuantity(ctx context.Context, name string, delta int64) (int64, error) {
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("increment quantity: %w", ctx.Err())
	default:
	}

	if name == "" {
		return 0, ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[name]
	if !exists {
		return 0, ErrNotFound
	}

	item.Quantity += delta
	s.items[name] = item

	return item.Quantity, nil
}

// SetImageURL overwrites the stored image URL for an existing item.
func (s *MemoryStore) SetImageURL(ctx context.Context, name, url string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("set image url: %w", ctx.Err())
	default:
	}

	if name == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, exists := s.items[name]
	if !exists {
		return ErrNotFound
	}

	item.ImageURL = url
	s.items[name] = item

	return nil
}

// Delete removes the item under the given name.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("delete item: %w", ctx.Err())
	default:
	}

	if name == "" {
		return ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[name]; !exists {
		return ErrNotFound
	}

	delete(s.items, name)

	return nil
}

// Rename writes item under its new name and removes the old record.
// Both steps happen under one lock, so the pair is atomic here.
func (s *MemoryStore) Rename(ctx context.Context, oldName string, item *model.InventoryItem) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rename item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return ErrNilItem
	}

	if oldName == "" || item.Name == "" {
		return ErrEmptyKey
	}

	if oldName == item.Name {
		return ErrRenameKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[item.Name] = *item
	delete(s.items, oldName)

	return nil
}
