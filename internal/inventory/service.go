// Package inventory owns the inventory record lifecycle: add,
// decrement, rename, delete, and the cached snapshot.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/mkravets/inventory-tracker/internal/media"
	"github.com/mkravets/inventory-tracker/internal/model"
	"github.com/mkravets/inventory-tracker/internal/store"
)

// Image is an attachment accompanying an add or update.
type Image struct {
	Filename    string
	ContentType string
	Data        io.Reader
	Size        int64
}

// Service is the sole writer of inventory records. Mutations to a given
// normalized name are serialized through a per-key lock, and quantity
// changes go through the store's atomic increment, so concurrent
// same-key writes never lose updates.
type Service struct {
	store          store.Store
	uploader       media.Uploader
	placeholderURL string
	logger         *zap.Logger

	keysMu sync.Mutex
	keys   map[string]*keyLock

	snapMu   sync.RWMutex
	snapshot []model.InventoryItem
}

// New creates a new Service instance. placeholderURL is substituted for
// every item stored without an uploaded image.
func New(s store.Store, uploader media.Uploader, placeholderURL string, logger *zap.Logger) *Service {
	return &Service{
		store:          s,
		uploader:       uploader,
		placeholderURL: placeholderURL,
		logger:         logger,
		keys:           make(map[string]*keyLock),
	}
}

// List reads every record from the store. Read-only: the cached
// snapshot is not touched.
func (s *Service) List(ctx context.Context) ([]model.InventoryItem, error) {
	items, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing inventory: %w", err)
	}
	return items, nil
}

// Get retrieves a single record by its normalized name.
func (s *Service) Get(ctx context.Context, name string) (*model.InventoryItem, error) {
	item, err := s.store.Get(ctx, name)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("getting item %q: %w", name, err)
	}
	return item, nil
}

// Snapshot returns the cached inventory snapshot, refreshed after every
// successful mutation. The result is a copy.
func (s *Service) Snapshot() []model.InventoryItem {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()

	return append([]model.InventoryItem(nil), s.snapshot...)
}

// ItemNames returns the names in the cached snapshot, for the recipe
// pipeline.
func (s *Service) ItemNames() []string {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()

	names := make([]string, 0, len(s.snapshot))
	for _, item := range s.snapshot {
		names = append(names, item.Name)
	}
	return names
}

// Refresh replaces the cached snapshot with a full re-read of the
// store. It is called after every mutation and once at startup.
func (s *Service) Refresh(ctx context.Context) error {
	items, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("refreshing snapshot: %w", err)
	}

	s.snapMu.Lock()
	s.snapshot = items
	s.snapMu.Unlock()

	return nil
}

// Add normalizes rawName and creates the record with quantity 1, or
// increments an existing one. The candidate is validated before any
// upload or store write, so a rejected name causes no side effects. A
// supplied image is uploaded next; upload failure aborts the add. When
// no image accompanies a new item the placeholder URL is stored.
func (s *Service) Add(ctx context.Context, rawName string, img *Image) error {
	name := model.Normalize(rawName)
	item := &model.InventoryItem{Name: name, Quantity: 1, ImageURL: s.placeholderURL}
	if err := item.Validate(); err != nil {
		return err
	}

	fresh := false
	if img != nil {
		resolved, err := s.resolveImage(ctx, img)
		if err != nil {
			return err
		}
		item.ImageURL = resolved
		fresh = true
	}

	unlock := s.lockKey(name)
	defer unlock()

	existing, err := s.store.Get(ctx, name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		if err := s.store.Put(ctx, item); err != nil {
			return fmt.Errorf("creating item %q: %w", name, err)
		}
	case err != nil:
		return fmt.Errorf("reading item %q: %w", name, err)
	default:
		if _, err := s.store.IncrementQuantity(ctx, name, 1); err != nil {
			return fmt.Errorf("incrementing item %q: %w", name, err)
		}
		// The previous image URL is retained unless a fresh one was
		// just uploaded.
		if fresh && item.ImageURL != existing.ImageURL {
			if err := s.store.SetImageURL(ctx, name, item.ImageURL); err != nil {
				return fmt.Errorf("updating image of %q: %w", name, err)
			}
		}
	}

	return s.Refresh(ctx)
}

// Remove decrements the named record, deleting it outright when the
// quantity would drop below 1. A missing record is a no-op.
func (s *Service) Remove(ctx context.Context, name string) error {
	if name == "" {
		return model.ErrEmptyName
	}

	unlock := s.lockKey(name)
	defer unlock()

	existing, err := s.store.Get(ctx, name)
	if errors.Is(err, store.ErrNotFound) {
		return s.Refresh(ctx)
	}
	if err != nil {
		return fmt.Errorf("reading item %q: %w", name, err)
	}

	if existing.Quantity <= 1 {
		if err := s.store.Delete(ctx, name); err != nil && !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("deleting item %q: %w", name, err)
		}
	} else {
		if _, err := s.store.IncrementQuantity(ctx, name, -1); err != nil {
			return fmt.Errorf("decrementing item %q: %w", name, err)
		}
	}

	return s.Refresh(ctx)
}

// Update rewrites an item's quantity and image, and renames it when
// newName differs from the current identity. The comparison uses the
// raw strings, matching the legacy behavior; the stored identity is
// always the normalized form. Renames write the new record before
// deleting the old one, so a partial failure leaves a duplicate rather
// than a loss. The candidate is validated before any upload or store
// write. A nil item is a no-op (nothing selected).
func (s *Service) Update(ctx context.Context, item *model.InventoryItem, newName string, newQuantity int64, img *Image) error {
	if item == nil {
		return nil
	}

	target := model.Normalize(newName)
	next := &model.InventoryItem{Name: target, Quantity: newQuantity, ImageURL: item.ImageURL}
	if next.ImageURL == "" {
		next.ImageURL = s.placeholderURL
	}
	if err := next.Validate(); err != nil {
		return err
	}

	if img != nil {
		resolved, err := s.resolveImage(ctx, img)
		if err != nil {
			return err
		}
		next.ImageURL = resolved
	}

	// Raw-string comparison detects the rename; when both names
	// normalize to the same key the write collapses to a plain replace.
	if newName != item.Name && target != item.Name {
		unlock := s.lockKeys(item.Name, target)
		defer unlock()

		if err := s.store.Rename(ctx, item.Name, next); err != nil {
			return fmt.Errorf("renaming item %q to %q: %w", item.Name, target, err)
		}
	} else {
		unlock := s.lockKey(target)
		defer unlock()

		if err := s.store.Put(ctx, next); err != nil {
			return fmt.Errorf("updating item %q: %w", target, err)
		}
	}

	return s.Refresh(ctx)
}

// resolveImage uploads the attachment and returns its durable URL.
// Failure propagates to the caller, aborting the enclosing mutation
// before any document write.
func (s *Service) resolveImage(ctx context.Context, img *Image) (string, error) {
	url, err := s.uploader.Upload(ctx, img.Filename, img.ContentType, img.Data, img.Size)
	if err != nil {
		return "", fmt.Errorf("resolving image %q: %w", img.Filename, err)
	}

	s.logger.Debug("image resolved",
		zap.String("filename", img.Filename),
		zap.String("url", url),
	)

	return url, nil
}

// keyLock is a per-name mutex with a waiter count so the entry can be
// dropped from the map once nobody holds or waits for it.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// lockKey serializes mutations for one normalized name. The returned
// unlock must be called exactly once; it releases the mutex and
// removes the map entry when no other holder remains.
func (s *Service) lockKey(name string) func() {
	s.keysMu.Lock()
	l, ok := s.keys[name]
	if !ok {
		l = &keyLock{}
		s.keys[name] = l
	}
	l.refs++
	s.keysMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		s.keysMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.keys, name)
		}
		s.keysMu.Unlock()
	}
}

// lockKeys locks two keys in sorted order to avoid lock-order
// inversion between concurrent renames.
func (s *Service) lockKeys(a, b string) func() {
	names := []string{a, b}
	sort.Strings(names)

	unlockFirst := s.lockKey(names[0])
	unlockSecond := s.lockKey(names[1])

	return func() {
		unlockSecond()
		unlockFirst()
	}
}
