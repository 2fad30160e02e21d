package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mkravets/inventory-tracker/internal/assist"
	"github.com/mkravets/inventory-tracker/internal/inventory"
	"github.com/mkravets/inventory-tracker/internal/model"
	"github.com/mkravets/inventory-tracker/internal/store"
)

// Version is the application version.
const Version = "1.0.0"

// maxUploadBytes bounds multipart request parsing.
const maxUploadBytes = 10 << 20 // 10 MB

// RESTHandler handles REST API requests for the inventory tracker.
type RESTHandler struct {
	inv       Inventory
	assistant Assistant
	logger    *zap.Logger
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(inv Inventory, assistant Assistant, logger *zap.Logger) *RESTHandler {
	return &RESTHandler{
		inv:       inv,
		assistant: assistant,
		logger:    logger,
	}
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/inventory", h.ListInventory).Methods(http.MethodGet)
	router.HandleFunc("/api/v1/inventory", h.AddItem).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/inventory/{name}", h.RemoveItem).Methods(http.MethodDelete)
	router.HandleFunc("/api/v1/inventory/{name}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/api/v1/assist/classify", h.ClassifyImage).Methods(http.MethodPost)
	router.HandleFunc("/api/v1/assist/recipes", h.GenerateRecipes).Methods(http.MethodPost)
}

// HealthCheck handles GET /health requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	response := HealthResponse{
		Status:  "healthy",
		Version: Version,
	}
	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(response))
}

// ListInventory handles GET /api/v1/inventory requests. It reads the
// store directly; listing has no side effects.
func (h *RESTHandler) ListInventory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	items, err := h.inv.List(ctx)
	if err != nil {
		h.logger.Error("failed to list inventory", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to retrieve inventory")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(items))
}

// AddItem handles POST /api/v1/inventory requests. The body is a
// multipart form with a "name" field and an optional "image" file.
func (h *RESTHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Warn("invalid multipart form", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	name := r.FormValue("name")
	if name == "" {
		h.writeError(w, http.StatusBadRequest, model.ErrEmptyName.Error())
		return
	}

	img, closeImg, err := h.formImage(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid image attachment")
		return
	}
	defer closeImg()

	if err := h.inv.Add(ctx, name, img); err != nil {
		h.handleInventoryError(w, err, "add item")
		return
	}

	h.writeJSON(w, http.StatusCreated, model.NewSuccessResponse(h.inv.Snapshot()))
}

// RemoveItem handles DELETE /api/v1/inventory/{name} requests:
// decrement the quantity, deleting the record when it reaches zero.
func (h *RESTHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	if err := h.inv.Remove(ctx, name); err != nil {
		h.handleInventoryError(w, err, "remove item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.inv.Snapshot()))
}

// UpdateItem handles PUT /api/v1/inventory/{name} requests. The body is
// a multipart form with "name" (the possibly new name), "quantity", and
// an optional "image" file. A changed name triggers the rename
// transaction.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	current := mux.Vars(r)["name"]

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Warn("invalid multipart form", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	item, err := h.inv.Get(ctx, current)
	if err != nil {
		h.handleInventoryError(w, err, "load item")
		return
	}

	newName := r.FormValue("name")
	if newName == "" {
		newName = item.Name
	}

	quantity, err := strconv.ParseInt(r.FormValue("quantity"), 10, 64)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid quantity")
		return
	}

	img, closeImg, err := h.formImage(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid image attachment")
		return
	}
	defer closeImg()

	if err := h.inv.Update(ctx, item, newName, quantity, img); err != nil {
		h.handleInventoryError(w, err, "update item")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(h.inv.Snapshot()))
}

// ClassifyImage handles POST /api/v1/assist/classify requests: run the
// attached image through the classification pipeline and return the
// aggregated label. The label is advisory; nothing is written to the
// inventory.
func (h *RESTHandler) ClassifyImage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.assistant.Configured() {
		h.handleAssistError(w, assist.ErrNotConfigured, "classify image")
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.logger.Warn("invalid multipart form", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Warn("failed to read image", zap.Error(err))
		h.writeError(w, http.StatusBadRequest, "failed to read image")
		return
	}

	label, err := h.assistant.Classify(ctx, data, header.Header.Get("Content-Type"))
	if err != nil {
		h.handleAssistError(w, err, "classify image")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(ClassifyResponse{Label: label}))
}

// GenerateRecipes handles POST /api/v1/assist/recipes requests: feed
// the latest snapshot's item names through the recipe pipeline.
func (h *RESTHandler) GenerateRecipes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.assistant.Configured() {
		h.handleAssistError(w, assist.ErrNotConfigured, "generate recipes")
		return
	}

	text, err := h.assistant.GenerateRecipes(ctx, h.inv.ItemNames())
	if err != nil {
		h.handleAssistError(w, err, "generate recipes")
		return
	}

	h.writeJSON(w, http.StatusOK, model.NewSuccessResponse(RecipesResponse{Recipes: text}))
}

// formImage extracts the optional "image" file from a parsed multipart
// form. The returned closer is a no-op when no file was attached.
func (h *RESTHandler) formImage(r *http.Request) (*inventory.Image, func(), error) {
	file, header, err := r.FormFile("image")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, fmt.Errorf("reading image form file: %w", err)
	}

	img := &inventory.Image{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        file,
		Size:        header.Size,
	}
	return img, func() { _ = file.Close() }, nil
}

// handleInventoryError maps repository errors to HTTP responses.
func (h *RESTHandler) handleInventoryError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, model.ErrEmptyName),
		errors.Is(err, model.ErrNameTooLong),
		errors.Is(err, model.ErrNonPositiveQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("inventory operation failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handleAssistError maps pipeline errors to HTTP responses. Model
// failures degrade gracefully: the client keeps whatever it was
// displaying.
func (h *RESTHandler) handleAssistError(w http.ResponseWriter, err error, operation string) {
	switch {
	case errors.Is(err, assist.ErrNotConfigured):
		h.writeError(w, http.StatusServiceUnavailable, "generative model not configured")
	case errors.Is(err, assist.ErrSuperseded):
		h.writeError(w, http.StatusConflict, "superseded by a newer request")
	case errors.Is(err, assist.ErrNoImage):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Warn("assist pipeline failed", zap.String("operation", operation), zap.Error(err))
		h.writeError(w, http.StatusBadGateway, "generative model request failed")
	}
}

// writeJSON writes a JSON response with the given status code.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes an error response with the given status code and message.
func (h *RESTHandler) writeError(w http.ResponseWriter, status int, message string) {
	response := model.ErrorResponse{
		Code:    status,
		Message: message,
	}
	h.writeJSON(w, status, response)
}
