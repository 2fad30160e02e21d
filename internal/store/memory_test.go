package store

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/mkravets/inventory-tracker/internal/model"
)

func TestNewMemoryStore(t *testing.T) {
	// Act
	s := NewMemoryStore()

	// Assert
	if s == nil {
		t.Fatal("NewMemoryStore() returned nil")
	}
	if s.items == nil {
		t.Error("items map should be initialized")
	}
}

func TestMemoryStore_Put_Get(t *testing.T) {
	tests := []struct {
		name    string
		item    *model.InventoryItem
		wantErr error
	}{
		{
			name: "valid item",
			item: &model.InventoryItem{
				Name:     "Milk",
				Quantity: 1,
				ImageURL: "https://example.com/milk.png",
			},
			wantErr: nil,
		},
		{
			name:    "nil item",
			item:    nil,
			wantErr: ErrNilItem,
		},
		{
			name: "empty name",
			item: &model.InventoryItem{
				Name:     "",
				Quantity: 1,
				ImageURL: "https://example.com/milk.png",
			},
			wantErr: ErrEmptyKey,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			s := NewMemoryStore()
			ctx := context.Background()

			// Act
			err := s.Put(ctx, tt.item)

			// Assert
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Put() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil {
				return
			}

			got, err := s.Get(ctx, tt.item.Name)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if *got != *tt.item {
				t.Errorf("Get() = %+v, want %+v", got, tt.item)
			}
		})
	}
}

func TestMemoryStore_Get_NotFound(t *testing.T) {
	// Arrange
	s := NewMemoryStore()

	// Act
	_, err := s.Get(context.Background(), "Milk")

	// Assert
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Put_Replaces(t *testing.T) {
	// Arrange
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, &model.InventoryItem{Name: "Milk", Quantity: 1, ImageURL: "a"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Act
	if err := s.Put(ctx, &model.InventoryItem{Name: "Milk", Quantity: 5, ImageURL: "b"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Assert
	got, err := s.Get(ctx, "Milk")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Quantity != 5 || got.ImageURL != "b" {
		t.Errorf("Get() = %+v, want quantity 5 and image b", got)
	}
}

func TestMemoryStore_IncrementQuantity(t *testing.T) {
	// Arrange
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, &model.InventoryItem{Name: "Milk", Quantity: 1, ImageURL: "a"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Act
	got, err := s.IncrementQuantity(ctx, "Milk", 1)

	// Assert
	if err != nil {
		t.Fatalf("IncrementQuantity() error = %v", err)
	}
	if got != 2 {
		t.Errorf("IncrementQuantity() = %d, want 2", got)
	}

	got, err = s.IncrementQuantity(ctx, "Milk", -1)
	if err != nil {
		t.Fatalf("IncrementQuantity() error = %v", err)
	}
	if got != 1 {
		t.Errorf("IncrementQuantity() = %d, want 1", got)
	}
}

func TestMemoryStore_IncrementQuantity_NotFound(t *testing.T) {
	// Arrange
	s := NewMemoryStore()

	// Act
	_, err := s.IncrementQuantity(context.Background(), "Milk", 1)

	// Assert
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("IncrementQuantity() error = %v, want ErrNotFound", err)
	}
}

// Concurrent increments to one key must not lose updates.
func TestMemoryStore_IncrementQuantity_Concurrent(t *testing.T) {
	// Arrange
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, &model.InventoryItem{Name: "Milk", Quantity: 1, ImageURL: "a"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	const workers = 50

	// Act
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.IncrementQuantity(ctx, "Milk", 1); err != nil {
				t.Errorf("IncrementQuantity() error = %v", err)
			}
		}()
	}
	wg.Wait()

	// Assert
	got, err := s.Get(ctx, "Milk")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Quantity != workers+1 {
		t.Errorf("quantity = %d, want %d", got.Quantity, workers+1)
	}
}

func TestMemoryStore_SetImageURL(t *testing.T) {
	// Arrange
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, &model.InventoryItem{Name: "Milk", Quantity: 2, ImageURL: "a"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Act
	err := s.SetImageURL(ctx, "Milk", "b")

	// Assert
	if err != nil {
		t.Fatalf("SetImageURL() error = %v", err)
	}
	got, err := s.Get(ctx, "Milk")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.ImageURL != "b" {
		t.Errorf("ImageURL = %q, want %q", got.ImageURL, "b")
	}
	if got.Quantity != 2 {
		t.Errorf("Quantity = %d, want 2 (unchanged)", got.Quantity)
	}
}

func TestMemoryStore_SetImageURL_NotFound(t *testing.T) {
	// Arrange
	s := NewMemoryStore()

	// Act
	err := s.SetImageURL(context.Background(), "Milk", "b")

	// Assert
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SetImageURL() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	// Arrange
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, &model.InventoryItem{Name: "Milk", Quantity: 1, ImageURL: "a"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Act
	err := s.Delete(ctx, "Milk")

	// Assert
	if err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(ctx, "Milk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "Milk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Rename(t *testing.T) {
	// Arrange
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Put(ctx, &model.InventoryItem{Name: "Milk", Quantity: 3, ImageURL: "a"}); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	// Act
	err := s.Rename(ctx, "Milk", &model.InventoryItem{
		Name:     "Oat milk",
		Quantity: 3,
		ImageURL: "a",
	})

	// Assert
	if err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if _, err := s.Get(ctx, "Milk"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old record should be gone, got error %v", err)
	}
	got, err := s.Get(ctx, "Oat milk")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Quantity != 3 || got.ImageURL != "a" {
		t.Errorf("renamed item = %+v, want quantity 3 and image a", got)
	}
}

func TestMemoryStore_Rename_SameKey(t *testing.T) {
	// Arrange
	s := NewMemoryStore()

	// Act
	err := s.Rename(context.Background(), "Milk", &model.InventoryItem{
		Name:     "Milk",
		Quantity: 1,
		ImageURL: "a",
	})

	// Assert
	if !errors.Is(err, ErrRenameKey) {
		t.Errorf("Rename() error = %v, want ErrRenameKey", err)
	}
}

func TestMemoryStore_List(t *testing.T) {
	// Arrange
	s := NewMemoryStore()
	ctx := context.Background()
	for _, item := range []model.InventoryItem{
		{Name: "Milk", Quantity: 1, ImageURL: "a"},
		{Name: "Eggs", Quantity: 12, ImageURL: "b"},
	} {
		if err := s.Put(ctx, &item); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
	}

	// Act
	items, err := s.List(ctx)

	// Assert
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(items) != 2 {
		t.Errorf("List() returned %d items, want 2", len(items))
	}
}

func TestMemoryStore_ContextCanceled(t *testing.T) {
	// Arrange
	s := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Act & Assert
	if _, err := s.List(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("List() error = %v, want context.Canceled", err)
	}
	if _, err := s.Get(ctx, "Milk"); !errors.Is(err, context.Canceled) {
		t.Errorf("Get() error = %v, want context.Canceled", err)
	}
	if err := s.Delete(ctx, "Milk"); !errors.Is(err, context.Canceled) {
		t.Errorf("Delete() error = %v, want context.Canceled", err)
	}
}
