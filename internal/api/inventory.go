package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/erazemk/ataa/internal/imaging"
	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/store"
	"github.com/erazemk/ataa/internal/view"
)

// InventoryHandler handles the inventory ledger endpoints.
type InventoryHandler struct {
	DB            *sql.DB
	Inventory     *ledger.Inventory
	Distributions *ledger.Distributions
	Validate      *validator.Validate
}

type itemRequest struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Type         string          `json:"type" validate:"required"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit" validate:"max=50"`
	MinimumLevel decimal.Decimal `json:"minimum_level"`
	Notes        string          `json:"notes" validate:"max=2000"`
}

type adjustRequest struct {
	Delta  *decimal.Decimal `json:"delta" validate:"required"`
	Reason string           `json:"reason" validate:"max=500"`
}

type itemResponse struct {
	model.Item
	Level       view.StockLevel  `json:"level"`
	LowStock    bool             `json:"low_stock"`
	Critical    bool             `json:"critical"`
	TotalIssued *decimal.Decimal `json:"total_issued,omitempty"`
}

func itemView(item model.Item) itemResponse {
	return itemResponse{
		Item:     item,
		Level:    view.Level(item),
		LowStock: item.IsLowStock(),
		Critical: item.IsCritical(),
	}
}

// List handles GET /api/items. It accepts q, type, level, sort and order.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	filter := view.ItemFilter{Query: query.Get("q")}
	if raw := query.Get("type"); raw != "" {
		t, err := model.ParseItemType(raw)
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		filter.Type = t
	}
	level, ok := view.ParseLevel(query.Get("level"))
	if !ok {
		jsonError(w, http.StatusBadRequest, "level must be low, medium, or high")
		return
	}
	filter.Level = level

	sortField := query.Get("sort")
	if sortField != "" && !view.ValidSortField(sortField) {
		jsonError(w, http.StatusBadRequest, "sort must be name, quantity, or last_updated")
		return
	}
	order := strings.ToLower(query.Get("order"))
	if order != "" && order != "asc" && order != "desc" {
		jsonError(w, http.StatusBadRequest, "order must be asc or desc")
		return
	}

	items := view.FilterItems(h.Inventory.Items(), filter)
	view.SortItems(items, sortField, order == "desc")

	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, itemView(item))
	}
	jsonResponse(w, http.StatusOK, out)
}

// LowStock handles GET /api/items/low-stock.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	entries := view.LowStock(h.Inventory.Items())
	if entries == nil {
		entries = []view.LowStockEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Create handles POST /api/items.
func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validateRequest(w, h.Validate, &req) {
		return
	}

	itemType, err := model.ParseItemType(req.Type)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.Inventory.AddItem(model.Item{
		Name:         strings.TrimSpace(req.Name),
		Type:         itemType,
		Quantity:     req.Quantity,
		Unit:         strings.TrimSpace(req.Unit),
		MinimumLevel: req.MinimumLevel,
		Notes:        req.Notes,
	})
	if err != nil {
		ledgerError(w, err, "failed to create item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item created", "user", claims.Username, "item", item.Name, "quantity", item.Quantity.String())
	jsonResponse(w, http.StatusCreated, itemView(item))
}

// Get handles GET /api/items/{id}. The response includes the total quantity issued.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.Inventory.Item(r.PathValue("id"))
	if !ok {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	resp := itemView(item)
	issued := h.Distributions.TotalIssued(item.ID)
	resp.TotalIssued = &issued
	jsonResponse(w, http.StatusOK, resp)
}

// Update handles PATCH /api/items/{id}. Omitted fields are left alone.
func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch model.ItemPatch
	if err := decodeJSON(r, &patch); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.Type != nil {
		t, err := model.ParseItemType(string(*patch.Type))
		if err != nil {
			jsonError(w, http.StatusBadRequest, err.Error())
			return
		}
		patch.Type = &t
	}

	item, err := h.Inventory.UpdateItem(r.PathValue("id"), patch)
	if err != nil {
		ledgerError(w, err, "failed to update item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item updated", "user", claims.Username, "item", item.Name)
	jsonResponse(w, http.StatusOK, itemView(item))
}

// Delete handles DELETE /api/items/{id}.
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, ok := h.Inventory.Item(id)
	if !ok {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if err := h.Inventory.RemoveItem(id); err != nil {
		ledgerError(w, err, "failed to delete item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item deleted", "user", claims.Username, "item", item.Name)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "item deleted"})
}

// Adjust handles POST /api/items/{id}/adjust. The quantity never drops below zero.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !validateRequest(w, h.Validate, &req) {
		return
	}

	item, err := h.Inventory.UpdateQuantity(r.PathValue("id"), *req.Delta)
	if err != nil {
		ledgerError(w, err, "failed to adjust quantity")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("stock adjusted", "user", claims.Username, "item", item.Name,
		"delta", req.Delta.String(), "quantity", item.Quantity.String(), "reason", req.Reason)
	jsonResponse(w, http.StatusOK, itemView(item))
}

// UploadImage handles PUT /api/items/{id}/image with a multipart "image" field.
func (h *InventoryHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, ok := h.Inventory.Item(id)
	if !ok {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	// Leave room for the multipart envelope.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+1<<20)

	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "image file required")
		return
	}
	defer file.Close()

	photo, err := imaging.Process(file)
	switch {
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusBadRequest, "image must be JPEG or PNG")
		return
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case err != nil:
		slog.Error("failed to process image", "error", err)
		jsonError(w, http.StatusBadRequest, "could not decode image")
		return
	}

	if err := store.SetItemImage(r.Context(), h.DB, id, photo.Data, photo.Thumbnail, photo.MIME); err != nil {
		slog.Error("failed to save image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to save image")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("item image uploaded", "user", claims.Username, "item", item.Name, "bytes", len(photo.Data))
	jsonResponse(w, http.StatusOK, map[string]string{"message": "image uploaded"})
}

// GetImage handles GET /api/items/{id}/image. size=thumb returns the thumbnail.
func (h *InventoryHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	thumb := r.URL.Query().Get("size") == "thumb"
	data, mime, err := store.GetItemImage(r.Context(), h.DB, r.PathValue("id"), thumb)
	if err != nil {
		slog.Error("failed to get image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.Write(data)
}
