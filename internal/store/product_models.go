package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/model"
)

const productModelSelect = `SELECT pm.id, pm.name, pm.brand, pm.category_id, pm.selling_price, pm.image_mime,
        pm.created_at, pm.updated_at, c.name AS category_name, c.requires_serial, c.requires_mac
 FROM product_models pm
 JOIN categories c ON c.id = pm.category_id`

// CreateProductModel creates a new product model in an existing category.
func CreateProductModel(ctx context.Context, database *sql.DB, pm model.ProductModel) (*model.ProductModel, error) {
	if pm.SellingPrice < 0 {
		return nil, apperr.Validation("selling_price must not be negative")
	}

	result, err := database.ExecContext(ctx,
		`INSERT INTO product_models (name, brand, category_id, selling_price) VALUES (?, ?, ?, ?)`,
		pm.Name, nullString(pm.Brand), pm.CategoryID, pm.SellingPrice,
	)
	if db.IsForeignKeyViolation(err) {
		return nil, apperr.NotFound("category %d not found", pm.CategoryID)
	}
	if err != nil {
		return nil, fmt.Errorf("creating product model: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting product model id: %w", err)
	}

	return GetProductModel(ctx, database, id)
}

// GetProductModel returns a product model by ID, with its category's rules.
func GetProductModel(ctx context.Context, database *sql.DB, id int64) (*model.ProductModel, error) {
	return getProductModel(ctx, database, id)
}

func getProductModel(ctx context.Context, q querier, id int64) (*model.ProductModel, error) {
	pm, err := scanProductModel(q.QueryRowContext(ctx, productModelSelect+` WHERE pm.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting product model: %w", err)
	}
	return pm, nil
}

// ListProductModels returns product models, optionally filtered by category.
func ListProductModels(ctx context.Context, database *sql.DB, categoryID int64) ([]model.ProductModel, error) {
	query := productModelSelect
	var args []any
	if categoryID > 0 {
		query += ` WHERE pm.category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY pm.brand, pm.name`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing product models: %w", err)
	}
	defer rows.Close()

	var models []model.ProductModel
	for rows.Next() {
		pm, err := scanProductModel(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning product model: %w", err)
		}
		models = append(models, *pm)
	}
	return models, rows.Err()
}

// UpdateProductModel updates a product model. The new price applies to
// future sales only; completed sales keep the unit price they were made at.
func UpdateProductModel(ctx context.Context, database *sql.DB, pm model.ProductModel) error {
	if pm.SellingPrice < 0 {
		return apperr.Validation("selling_price must not be negative")
	}

	result, err := database.ExecContext(ctx,
		`UPDATE product_models SET name = ?, brand = ?, category_id = ?, selling_price = ?, updated_at = ?
		 WHERE id = ?`,
		pm.Name, nullString(pm.Brand), pm.CategoryID, pm.SellingPrice, now(), pm.ID,
	)
	if db.IsForeignKeyViolation(err) {
		return apperr.NotFound("category %d not found", pm.CategoryID)
	}
	if err != nil {
		return fmt.Errorf("updating product model: %w", err)
	}
	return requireRow(result, "product model", pm.ID)
}

// DeleteProductModel deletes a product model no item refers to.
func DeleteProductModel(ctx context.Context, database *sql.DB, id int64) error {
	result, err := database.ExecContext(ctx, `DELETE FROM product_models WHERE id = ?`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Integrity(err, "cannot delete product model %d: items still use it", id)
	}
	if err != nil {
		return fmt.Errorf("deleting product model: %w", err)
	}
	return requireRow(result, "product model", id)
}

// SetProductModelImage stores a product photo and its thumbnail.
func SetProductModelImage(ctx context.Context, database *sql.DB, id int64, image, thumbnail []byte, mime string) error {
	result, err := database.ExecContext(ctx,
		`UPDATE product_models SET image = ?, thumbnail = ?, image_mime = ?, updated_at = ? WHERE id = ?`,
		image, thumbnail, mime, now(), id,
	)
	if err != nil {
		return fmt.Errorf("setting product model image: %w", err)
	}
	return requireRow(result, "product model", id)
}

// GetProductModelImage returns the stored photo (or its thumbnail) and MIME type.
func GetProductModelImage(ctx context.Context, database *sql.DB, id int64, thumbnail bool) ([]byte, string, error) {
	column := "image"
	if thumbnail {
		column = "thumbnail"
	}

	var image []byte
	var mime sql.NullString
	err := database.QueryRowContext(ctx,
		`SELECT `+column+`, image_mime FROM product_models WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting product model image: %w", err)
	}
	return image, mime.String, nil
}

func scanProductModel(row rowScanner) (*model.ProductModel, error) {
	pm := &model.ProductModel{}
	var brand, mime sql.NullString
	if err := row.Scan(&pm.ID, &pm.Name, &brand, &pm.CategoryID, &pm.SellingPrice, &mime,
		&pm.CreatedAt, &pm.UpdatedAt, &pm.CategoryName, &pm.RequiresSerial, &pm.RequiresMAC); err != nil {
		return nil, err
	}
	pm.Brand = brand.String
	pm.ImageMime = mime.String
	return pm, nil
}
