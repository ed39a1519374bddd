package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/engineering-ims/ims/internal/model"
	"github.com/engineering-ims/ims/internal/store"
)

// CatalogHandler handles customers, suppliers and categories.
type CatalogHandler struct {
	DB *sql.DB
}

type customerRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (req customerRequest) customer(id int64) (model.Customer, bool) {
	c := model.Customer{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
	}
	return c, c.Name != ""
}

type supplierRequest struct {
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Phone   string `json:"phone"`
}

func (req supplierRequest) supplier(id int64) (model.Supplier, bool) {
	s := model.Supplier{
		ID:      id,
		Name:    strings.TrimSpace(req.Name),
		Contact: strings.TrimSpace(req.Contact),
		Phone:   strings.TrimSpace(req.Phone),
	}
	return s, s.Name != ""
}

type categoryRequest struct {
	Name           string `json:"name"`
	RequiresSerial bool   `json:"requires_serial"`
	RequiresMAC    bool   `json:"requires_mac"`
}

func (req categoryRequest) category(id int64) (model.Category, bool) {
	c := model.Category{
		ID:             id,
		Name:           strings.TrimSpace(req.Name),
		RequiresSerial: req.RequiresSerial,
		RequiresMAC:    req.RequiresMAC,
	}
	return c, c.Name != ""
}

// ListCustomers handles GET /api/customers.
func (h *CatalogHandler) ListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := store.ListCustomers(r.Context(), h.DB, r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if customers == nil {
		customers = []model.Customer{}
	}
	jsonResponse(w, http.StatusOK, customers)
}

// CreateCustomer handles POST /api/customers.
func (h *CatalogHandler) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := req.customer(0)
	if !ok {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	customer, err := store.CreateCustomer(r.Context(), h.DB, c)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("customer created", "user", GetClaims(r.Context()).Username, "customer", customer.Name)
	jsonResponse(w, http.StatusCreated, customer)
}

// GetCustomer handles GET /api/customers/{id}.
func (h *CatalogHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customer")
	if err != nil {
		writeError(w, r, err)
		return
	}
	customer, err := store.GetCustomer(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if customer == nil {
		writeError(w, r, notFound("customer", id))
		return
	}
	jsonResponse(w, http.StatusOK, customer)
}

// UpdateCustomer handles PUT /api/customers/{id}.
func (h *CatalogHandler) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customer")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req customerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := req.customer(id)
	if !ok {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateCustomer(r.Context(), h.DB, c); err != nil {
		writeError(w, r, err)
		return
	}
	customer, err := store.GetCustomer(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, customer)
}

// DeleteCustomer handles DELETE /api/customers/{id}.
func (h *CatalogHandler) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customer")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.DeleteCustomer(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("customer deleted", "user", GetClaims(r.Context()).Username, "customer_id", id)
	jsonResponse(w, http.StatusOK, message("customer deleted"))
}

// ListSuppliers handles GET /api/suppliers.
func (h *CatalogHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	suppliers, err := store.ListSuppliers(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if suppliers == nil {
		suppliers = []model.Supplier{}
	}
	jsonResponse(w, http.StatusOK, suppliers)
}

// CreateSupplier handles POST /api/suppliers.
func (h *CatalogHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, ok := req.supplier(0)
	if !ok {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	supplier, err := store.CreateSupplier(r.Context(), h.DB, s)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, supplier)
}

// GetSupplier handles GET /api/suppliers/{id}.
func (h *CatalogHandler) GetSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "supplier")
	if err != nil {
		writeError(w, r, err)
		return
	}
	supplier, err := store.GetSupplier(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if supplier == nil {
		writeError(w, r, notFound("supplier", id))
		return
	}
	jsonResponse(w, http.StatusOK, supplier)
}

// UpdateSupplier handles PUT /api/suppliers/{id}.
func (h *CatalogHandler) UpdateSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "supplier")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req supplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, ok := req.supplier(id)
	if !ok {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateSupplier(r.Context(), h.DB, s); err != nil {
		writeError(w, r, err)
		return
	}
	supplier, err := store.GetSupplier(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, supplier)
}

// DeleteSupplier handles DELETE /api/suppliers/{id}.
func (h *CatalogHandler) DeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "supplier")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.DeleteSupplier(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, message("supplier deleted"))
}

// ListCategories handles GET /api/categories.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := store.ListCategories(r.Context(), h.DB)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []model.Category{}
	}
	jsonResponse(w, http.StatusOK, categories)
}

// CreateCategory handles POST /api/categories.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := req.category(0)
	if !ok {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	category, err := store.CreateCategory(r.Context(), h.DB, c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, category)
}

// GetCategory handles GET /api/categories/{id}.
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "category")
	if err != nil {
		writeError(w, r, err)
		return
	}
	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if category == nil {
		writeError(w, r, notFound("category", id))
		return
	}
	jsonResponse(w, http.StatusOK, category)
}

// UpdateCategory handles PUT /api/categories/{id}.
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "category")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, ok := req.category(id)
	if !ok {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	if err := store.UpdateCategory(r.Context(), h.DB, c); err != nil {
		writeError(w, r, err)
		return
	}
	category, err := store.GetCategory(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, category)
}

// DeleteCategory handles DELETE /api/categories/{id}.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "category")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.DeleteCategory(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, message("category deleted"))
}
