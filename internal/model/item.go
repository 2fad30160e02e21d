// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"time"
	"unicode"
	"unicode/utf8"
)

// Validation errors for InventoryItem.
var (
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrNameTooLong         = errors.New("name cannot exceed 255 characters")
	ErrNonPositiveQuantity = errors.New("quantity must be at least 1")
	ErrEmptyImageURL       = errors.New("image URL cannot be empty")
)

// MaxNameLength is the longest accepted item name.
const MaxNameLength = 255

// InventoryItem represents a stored quantity record. Name is the
// normalized canonical key and the document identity.
type InventoryItem struct {
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
	ImageURL string `json:"imageUrl"`
}

// Normalize canonicalizes a user-entered item name into a storage key:
// the first character is uppercased, the rest is left untouched and
// nothing is trimmed. This is not full case-folding: Normalize("MILK")
// stays "MILK" while Normalize("milk") becomes "Milk".
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(raw)
	if r == utf8.RuneError && size <= 1 {
		return raw
	}
	upper := unicode.ToUpper(r)
	if upper == r {
		return raw
	}
	return string(upper) + raw[size:]
}

// Validate checks if the InventoryItem has valid field values.
func (i *InventoryItem) Validate() error {
	if i.Name == "" {
		return ErrEmptyName
	}

	if len(i.Name) > MaxNameLength {
		return ErrNameTooLong
	}

	if i.Quantity < 1 {
		return ErrNonPositiveQuantity
	}

	if i.ImageURL == "" {
		return ErrEmptyImageURL
	}

	return nil
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// WSMessage represents a message exchanged over a WebSocket connection.
// Inbound messages carry gesture events and recipe requests; outbound
// messages carry gesture outcomes, streamed recipe chunks, and snapshot
// pushes.
type WSMessage struct {
	Type      string          `json:"type"`
	Name      string          `json:"name,omitempty"`
	Text      string          `json:"text,omitempty"`
	Items     []InventoryItem `json:"items,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// WebSocket message types.
const (
	// Inbound.
	WSTypePressStart = "press_start"
	WSTypePressEnd   = "press_end"
	WSTypePressLeave = "press_leave"
	WSTypeRecipes    = "recipes"

	// Outbound.
	WSTypeQuickAdd    = "quick_add"
	WSTypeEditOpen    = "edit_open"
	WSTypeRecipeChunk = "recipe_chunk"
	WSTypeRecipeDone  = "recipe_done"
	WSTypeSnapshot    = "snapshot"
	WSTypeError       = "error"
)

// NewWSMessage creates an outbound WebSocket message of the given type.
func NewWSMessage(msgType string) WSMessage {
	return WSMessage{
		Type:      msgType,
		Timestamp: time.Now().UTC(),
	}
}
