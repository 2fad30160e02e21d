// Package store provides keyed document storage for inventory records.
package store

import (
	"context"
	"errors"

	"github.com/mkravets/inventory-tracker/internal/model"
)

// Store errors.
var (
	ErrNotFound  = errors.New("item not found")
	ErrEmptyKey  = errors.New("item key cannot be empty")
	ErrNilItem   = errors.New("item cannot be nil")
	ErrRenameKey = errors.New("rename requires distinct keys")
)

// Store defines the keyed document operations the inventory repository
// relies on. Documents live in the "inventory" collection, keyed by the
// normalized item name.
type Store interface {
	// List returns every stored item. Ordering is store-defined and
	// treated as unordered by callers.
	List(ctx context.Context) ([]model.InventoryItem, error)

	// Get retrieves an item by its normalized name.
	Get(ctx context.Context, name string) (*model.InventoryItem, error)

	// Put creates or fully replaces the item under its name.
	Put(ctx context.Context, item *model.InventoryItem) error

	// IncrementQuantity atomically adds delta to the stored quantity
	// and returns the resulting value. The record must already exist.
	IncrementQuantity(ctx context.Context, name string, delta int64) (int64, error)

	// SetImageURL overwrites the stored image URL for an existing item.
	SetImageURL(ctx context.Context, name, url string) error

	// Delete removes the item under the given name.
	Delete(ctx context.Context, name string) error

	// Rename writes item under its (new) name and deletes the record at
	// oldName, in that order. Backends with transactions apply both
	// steps atomically; others keep the write-new-before-delete-old
	// ordering so a partial failure over-retains rather than loses data.
	Rename(ctx context.Context, oldName string, item *model.InventoryItem) error
}
