package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/engineering-ims/ims/internal/model"
	"github.com/engineering-ims/ims/internal/store"
)

// LoansHandler handles borrowings (stock lent to customers) and assignments
// (assets handed to staff).
type LoansHandler struct {
	DB *sql.DB
}

type createBorrowingRequest struct {
	CustomerID int64   `json:"customer_id"`
	ItemIDs    []int64 `json:"item_ids"`
	DueDate    *date   `json:"due_date"`
	Notes      string  `json:"notes"`
}

type createAssignmentRequest struct {
	AssigneeID int64   `json:"assignee_id"`
	ItemIDs    []int64 `json:"item_ids"`
	DueDate    *date   `json:"due_date"`
	Notes      string  `json:"notes"`
}

// returnItemsRequest names the units coming back.
type returnItemsRequest struct {
	ItemIDs []int64 `json:"item_ids"`
}

func loanFilter(r *http.Request, counterparty string) (model.LoanFilter, error) {
	id, err := queryID(r, counterparty)
	if err != nil {
		return model.LoanFilter{}, err
	}
	return model.LoanFilter{
		Status:         strings.ToUpper(r.URL.Query().Get("status")),
		CounterpartyID: id,
	}, nil
}

// ListBorrowings handles GET /api/borrowings.
func (h *LoansHandler) ListBorrowings(w http.ResponseWriter, r *http.Request) {
	f, err := loanFilter(r, "customer_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	borrowings, err := store.ListBorrowings(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if borrowings == nil {
		borrowings = []model.Borrowing{}
	}
	jsonResponse(w, http.StatusOK, borrowings)
}

// CreateBorrowing handles POST /api/borrowings.
func (h *LoansHandler) CreateBorrowing(w http.ResponseWriter, r *http.Request) {
	var req createBorrowingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CustomerID <= 0 {
		jsonError(w, http.StatusBadRequest, "customer_id required")
		return
	}

	claims := GetClaims(r.Context())
	b, err := store.CreateBorrowing(r.Context(), h.DB, store.NewBorrowing{
		CustomerID: req.CustomerID,
		ItemIDs:    req.ItemIDs,
		DueDate:    req.DueDate.ptr(),
		Notes:      req.Notes,
	}, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("items borrowed", "user", claims.Username, "borrowing_id", b.ID,
		"customer_id", b.CustomerID, "items", len(b.Items))
	jsonResponse(w, http.StatusCreated, b)
}

// GetBorrowing handles GET /api/borrowings/{id}.
func (h *LoansHandler) GetBorrowing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "borrowing")
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := store.GetBorrowing(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if b == nil {
		writeError(w, r, notFound("borrowing", id))
		return
	}
	jsonResponse(w, http.StatusOK, b)
}

// ReturnBorrowing handles POST /api/borrowings/{id}/return.
func (h *LoansHandler) ReturnBorrowing(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "borrowing")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	b, err := store.ReturnBorrowing(r.Context(), h.DB, id, req.ItemIDs, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("borrowed items returned", "user", claims.Username, "borrowing_id", id, "status", b.Status)
	jsonResponse(w, http.StatusOK, b)
}

// ListAssignments handles GET /api/assignments.
func (h *LoansHandler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	f, err := loanFilter(r, "assignee_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	assignments, err := store.ListAssignments(r.Context(), h.DB, f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if assignments == nil {
		assignments = []model.Assignment{}
	}
	jsonResponse(w, http.StatusOK, assignments)
}

// CreateAssignment handles POST /api/assignments.
func (h *LoansHandler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req createAssignmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.AssigneeID <= 0 {
		jsonError(w, http.StatusBadRequest, "assignee_id required")
		return
	}

	claims := GetClaims(r.Context())
	a, err := store.CreateAssignment(r.Context(), h.DB, store.NewAssignment{
		AssigneeID: req.AssigneeID,
		ItemIDs:    req.ItemIDs,
		DueDate:    req.DueDate.ptr(),
		Notes:      req.Notes,
	}, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("assets assigned", "user", claims.Username, "assignment_id", a.ID,
		"assignee_id", a.AssigneeID, "items", len(a.Items))
	jsonResponse(w, http.StatusCreated, a)
}

// GetAssignment handles GET /api/assignments/{id}.
func (h *LoansHandler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "assignment")
	if err != nil {
		writeError(w, r, err)
		return
	}
	a, err := store.GetAssignment(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if a == nil {
		writeError(w, r, notFound("assignment", id))
		return
	}
	jsonResponse(w, http.StatusOK, a)
}

// ReturnAssignment handles POST /api/assignments/{id}/return.
func (h *LoansHandler) ReturnAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "assignment")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req returnItemsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	a, err := store.ReturnAssignment(r.Context(), h.DB, id, req.ItemIDs, claims.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("assigned items returned", "user", claims.Username, "assignment_id", id, "status", a.Status)
	jsonResponse(w, http.StatusOK, a)
}
