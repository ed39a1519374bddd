package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/lifecycle"
	"github.com/engineering-ims/ims/internal/model"
	"github.com/engineering-ims/ims/internal/store"
)

// ItemsHandler handles unit registration, edits and standalone status actions.
type ItemsHandler struct {
	DB *sql.DB
}

type createItemRequest struct {
	ItemType       model.ItemType `json:"item_type"`
	SerialNumber   string         `json:"serial_number"`
	MACAddress     string         `json:"mac_address"`
	AssetCode      string         `json:"asset_code"`
	ProductModelID int64          `json:"product_model_id"`
	SupplierID     *int64         `json:"supplier_id"`
	Notes          string         `json:"notes"`
}

type updateItemRequest struct {
	SerialNumber string `json:"serial_number"`
	MACAddress   string `json:"mac_address"`
	AssetCode    string `json:"asset_code"`
	SupplierID   *int64 `json:"supplier_id"`
	Notes        string `json:"notes"`
}

type actionRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.ItemFilter{
		ItemType: model.ItemType(strings.ToUpper(q.Get("item_type"))),
		Status:   model.ItemStatus(strings.ToUpper(q.Get("status"))),
		Search:   strings.TrimSpace(q.Get("search")),
	}
	if f.ItemType != "" && !f.ItemType.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid item_type")
		return
	}
	if f.Status != "" && !f.Status.Valid() {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}
	var err error
	if f.ProductModelID, err = queryID(r, "product_model_id"); err != nil {
		writeError(w, r, err)
		return
	}

	items, err := store.ListItems(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/items.
func (h *ItemsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ProductModelID <= 0 {
		jsonError(w, http.StatusBadRequest, "product_model_id required")
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.CreateItem(r.Context(), h.DB, store.NewItem{
		ItemType:       model.ItemType(strings.ToUpper(string(req.ItemType))),
		SerialNumber:   req.SerialNumber,
		MACAddress:     req.MACAddress,
		AssetCode:      req.AssetCode,
		ProductModelID: req.ProductModelID,
		SupplierID:     req.SupplierID,
		Notes:          req.Notes,
	}, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item registered", "user", claims.Username, "item_id", item.ID,
		"item_type", item.ItemType, "serial", item.SerialNumber)
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		writeError(w, r, notFound("item", id))
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/items/{id}.
func (h *ItemsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.UpdateItem(r.Context(), h.DB, id, store.ItemUpdate{
		SerialNumber: req.SerialNumber,
		MACAddress:   req.MACAddress,
		AssetCode:    req.AssetCode,
		SupplierID:   req.SupplierID,
		Notes:        req.Notes,
	}, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item updated", "user", claims.Username, "item_id", id)
	jsonResponse(w, http.StatusOK, item)
}

// Delete handles DELETE /api/items/{id}.
func (h *ItemsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.DeleteItem(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item deleted", "user", GetClaims(r.Context()).Username, "item_id", id)
	jsonResponse(w, http.StatusOK, message("item deleted"))
}

// Events handles GET /api/items/{id}/events.
func (h *ItemsHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, r, err)
		return
	}

	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item == nil {
		writeError(w, r, notFound("item", id))
		return
	}

	events, err := store.ListItemEvents(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if events == nil {
		events = []model.ItemEvent{}
	}
	jsonResponse(w, http.StatusOK, events)
}

// Reserve handles POST /api/items/{id}/reserve.
func (h *ItemsHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, lifecycle.Reserve)
}

// Unreserve handles POST /api/items/{id}/unreserve.
func (h *ItemsHandler) Unreserve(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, lifecycle.Unreserve)
}

// MarkDefective handles POST /api/items/{id}/defective.
func (h *ItemsHandler) MarkDefective(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, lifecycle.MarkDefective)
}

// Decommission handles POST /api/items/{id}/decommission.
func (h *ItemsHandler) Decommission(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, lifecycle.Decommission)
}

// Reinstate handles POST /api/items/{id}/reinstate.
func (h *ItemsHandler) Reinstate(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, lifecycle.Reinstate)
}

func (h *ItemsHandler) apply(w http.ResponseWriter, r *http.Request, op lifecycle.Operation) {
	id, err := pathID(r, "item")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodeOptional[actionRequest](r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	item, err := store.ApplyItemAction(r.Context(), h.DB, id, op, claims.UserID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("item status changed", "user", claims.Username, "item_id", id,
		"operation", string(op), "status", item.Status)
	jsonResponse(w, http.StatusOK, item)
}

// decodeOptional decodes a JSON body that may be absent entirely.
func decodeOptional[T any](r *http.Request) (T, error) {
	var v T
	defer r.Body.Close()
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&v)
	if err != nil && !errors.Is(err, io.EOF) {
		return v, apperr.Validation("invalid request body")
	}
	return v, nil
}
