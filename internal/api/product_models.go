package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"

	"github.com/engineering-ims/ims/internal/imaging"
	"github.com/engineering-ims/ims/internal/model"
	"github.com/engineering-ims/ims/internal/store"
)

// ProductModelsHandler handles product model endpoints and their photos.
type ProductModelsHandler struct {
	DB     *sql.DB
	Images *imaging.Processor
}

type productModelRequest struct {
	Name         string  `json:"name"`
	Brand        string  `json:"brand"`
	CategoryID   int64   `json:"category_id"`
	SellingPrice float64 `json:"selling_price"`
}

func (req productModelRequest) productModel(id int64) (model.ProductModel, bool) {
	pm := model.ProductModel{
		ID:           id,
		Name:         strings.TrimSpace(req.Name),
		Brand:        strings.TrimSpace(req.Brand),
		CategoryID:   req.CategoryID,
		SellingPrice: req.SellingPrice,
	}
	return pm, pm.Name != "" && pm.CategoryID > 0
}

// List handles GET /api/product-models.
func (h *ProductModelsHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryID(r, "category_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	models, err := store.ListProductModels(r.Context(), h.DB, categoryID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if models == nil {
		models = []model.ProductModel{}
	}
	jsonResponse(w, http.StatusOK, models)
}

// Create handles POST /api/product-models.
func (h *ProductModelsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req productModelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pm, ok := req.productModel(0)
	if !ok {
		jsonError(w, http.StatusBadRequest, "name and category_id required")
		return
	}

	created, err := store.CreateProductModel(r.Context(), h.DB, pm)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("product model created", "user", GetClaims(r.Context()).Username, "product_model", created.Name)
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/product-models/{id}.
func (h *ProductModelsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "product model")
	if err != nil {
		writeError(w, r, err)
		return
	}
	pm, err := store.GetProductModel(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if pm == nil {
		writeError(w, r, notFound("product model", id))
		return
	}
	jsonResponse(w, http.StatusOK, pm)
}

// Update handles PUT /api/product-models/{id}.
func (h *ProductModelsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "product model")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req productModelRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	pm, ok := req.productModel(id)
	if !ok {
		jsonError(w, http.StatusBadRequest, "name and category_id required")
		return
	}

	if err := store.UpdateProductModel(r.Context(), h.DB, pm); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := store.GetProductModel(r.Context(), h.DB, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/product-models/{id}.
func (h *ProductModelsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "product model")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := store.DeleteProductModel(r.Context(), h.DB, id); err != nil {
		writeError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, message("product model deleted"))
}

// UploadImage handles PUT /api/product-models/{id}/image.
func (h *ProductModelsHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "product model")
	if err != nil {
		writeError(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<10))
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

	photo, err := h.Images.Process(file)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := store.SetProductModelImage(r.Context(), h.DB, id, photo.Data, photo.Thumbnail, photo.MIME); err != nil {
		writeError(w, r, err)
		return
	}

	slog.Info("product model image uploaded", "user", GetClaims(r.Context()).Username,
		"product_model_id", id, "bytes", len(photo.Data))
	jsonResponse(w, http.StatusOK, message("image uploaded"))
}

// GetImage handles GET /api/product-models/{id}/image.
func (h *ProductModelsHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, false)
}

// GetThumbnail handles GET /api/product-models/{id}/thumbnail.
func (h *ProductModelsHandler) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	h.serveImage(w, r, true)
}

func (h *ProductModelsHandler) serveImage(w http.ResponseWriter, r *http.Request, thumbnail bool) {
	id, err := pathID(r, "product model")
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, mime, err := store.GetProductModelImage(r.Context(), h.DB, id, thumbnail)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
