// Package handler provides HTTP and WebSocket handlers for the
// inventory tracker.
package handler

import (
	"context"

	"github.com/mkravets/inventory-tracker/internal/inventory"
	"github.com/mkravets/inventory-tracker/internal/model"
)

// Inventory is the repository surface the handlers drive.
type Inventory interface {
	List(ctx context.Context) ([]model.InventoryItem, error)
	Get(ctx context.Context, name string) (*model.InventoryItem, error)
	Snapshot() []model.InventoryItem
	ItemNames() []string
	Add(ctx context.Context, rawName string, img *inventory.Image) error
	Remove(ctx context.Context, name string) error
	Update(ctx context.Context, item *model.InventoryItem, newName string, newQuantity int64, img *inventory.Image) error
}

// Assistant is the generative-pipeline surface the handlers drive.
type Assistant interface {
	Configured() bool
	Classify(ctx context.Context, image []byte, mime string) (string, error)
	GenerateRecipes(ctx context.Context, names []string) (string, error)
	StreamRecipes(ctx context.Context, names []string, onChunk func(string)) (string, error)
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ClassifyResponse carries the aggregated classification label.
type ClassifyResponse struct {
	Label string `json:"label"`
}

// RecipesResponse carries the aggregated recipe text.
type RecipesResponse struct {
	Recipes string `json:"recipes"`
}
