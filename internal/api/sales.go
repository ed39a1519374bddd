package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/engineering-ims/ims/internal/model"
	"github.com/engineering-ims/ims/internal/store"
)

// SalesHandler handles sales and voids.
type SalesHandler struct {
	DB *sql.DB
}

type createSaleRequest struct {
	CustomerID int64   `json:"customer_id"`
	ItemIDs    []int64 `json:"item_ids"`
	Notes      string  `json:"notes"`
}

type voidSaleRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/sales.
func (h *SalesHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryID(r, "customer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := store.SaleFilter{
		CustomerID: customerID,
		Status:     strings.ToUpper(r.URL.Query().Get("status")),
	}

	sales, err := store.ListSales(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sales == nil {
		sales = []model.Sale{}
	}
	jsonResponse(w, http.StatusOK, sales)
}

// Create handles POST /api/sales.
func (h *SalesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createSaleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CustomerID <= 0 {
		jsonError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	claims := GetClaims(r.Context())
	sale, err := store.CreateSale(r.Context(), h.DB, store.NewSale{
		CustomerID: req.CustomerID,
		ItemIDs:    req.ItemIDs,
		Notes:      req.Notes,
	}, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("sale completed", "user", claims.Username, "sale_id", sale.ID,
		"customer_id", sale.CustomerID, "items", len(sale.Items), "total", sale.Total)
	jsonResponse(w, http.StatusCreated, sale)
}

// Get handles GET /api/sales/{id}.
func (h *SalesHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "sale")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sale, err := store.GetSale(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if sale == nil {
		writeError(w, r, notFound("sale", id))
		return
	}
	jsonResponse(w, http.StatusOK, sale)
}

// Void handles POST /api/sales/{id}/void.
func (h *SalesHandler) Void(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "sale")
	if err != nil {
		writeError(w, r, err)
		return
	}
	req, err := decodeOptional[voidSaleRequest](r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	sale, err := store.VoidSale(r.Context(), h.DB, id, claims.UserID, strings.TrimSpace(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("sale voided", "user", claims.Username, "sale_id", id, "reason", sale.VoidReason)
	jsonResponse(w, http.StatusOK, sale)
}
