package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/engineering-ims/ims/internal/model"
	"github.com/engineering-ims/ims/internal/store"
)

// RepairsHandler handles repair orders.
type RepairsHandler struct {
	DB *sql.DB
}

type repairItemRequest struct {
	ItemID         int64  `json:"item_id"`
	IsCustomerItem bool   `json:"is_customer_item"`
	ProductModelID int64  `json:"product_model_id"`
	SerialNumber   string `json:"serial_number"`
	MACAddress     string `json:"mac_address"`
	Problem        string `json:"problem"`
}

type createRepairRequest struct {
	SenderAddress   string              `json:"sender_address"`
	ReceiverAddress string              `json:"receiver_address"`
	CustomerID      *int64              `json:"customer_id"`
	Notes           string              `json:"notes"`
	Items           []repairItemRequest `json:"items"`
}

type returnRepairRequest struct {
	Items []struct {
		ItemID  int64               `json:"item_id"`
		Outcome model.RepairOutcome `json:"outcome"`
	} `json:"items"`
}

// List handles GET /api/repairs.
func (h *RepairsHandler) List(w http.ResponseWriter, r *http.Request) {
	customerID, err := queryID(r, "customer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	repairs, err := store.ListRepairs(r.Context(), h.DB, store.RepairFilter{
		Status:     strings.ToUpper(r.URL.Query().Get("status")),
		CustomerID: customerID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	if repairs == nil {
		repairs = []model.Repair{}
	}
	jsonResponse(w, http.StatusOK, repairs)
}

// Create handles POST /api/repairs.
func (h *RepairsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRepairRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Items) == 0 {
		jsonError(w, http.StatusBadRequest, "at least one item is required")
		return
	}

	in := store.NewRepair{
		SenderAddress:   req.SenderAddress,
		ReceiverAddress: req.ReceiverAddress,
		CustomerID:      req.CustomerID,
		Notes:           req.Notes,
		Items:           make([]store.NewRepairItem, len(req.Items)),
	}
	for i, it := range req.Items {
		in.Items[i] = store.NewRepairItem(it)
	}

	claims := GetClaims(r.Context())
	repair, err := store.CreateRepair(r.Context(), h.DB, in, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("repair opened", "user", claims.Username, "repair_id", repair.ID,
		"items", len(repair.Items), "receiver", repair.ReceiverAddress)
	jsonResponse(w, http.StatusCreated, repair)
}

// Get handles GET /api/repairs/{id}.
func (h *RepairsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "repair")
	if err != nil {
		writeError(w, r, err)
		return
	}
	repair, err := store.GetRepair(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if repair == nil {
		writeError(w, r, notFound("repair", id))
		return
	}
	jsonResponse(w, http.StatusOK, repair)
}

// Return handles POST /api/repairs/{id}/return.
func (h *RepairsHandler) Return(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "repair")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnRepairRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	returns := make([]store.RepairReturnItem, len(req.Items))
	for i, it := range req.Items {
		returns[i] = store.RepairReturnItem{
			ItemID:  it.ItemID,
			Outcome: model.RepairOutcome(strings.ToUpper(string(it.Outcome))),
		}
	}

	claims := GetClaims(r.Context())
	repair, err := store.ReturnRepair(r.Context(), h.DB, id, returns, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("repair items returned", "user", claims.Username, "repair_id", id, "status", repair.Status)
	jsonResponse(w, http.StatusOK, repair)
}
