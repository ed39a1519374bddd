package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/model"
)

// CreateCategory creates a new product category.
func CreateCategory(ctx context.Context, database *sql.DB, c model.Category) (*model.Category, error) {
	result, err := database.ExecContext(ctx,
		`INSERT INTO categories (name, requires_serial, requires_mac) VALUES (?, ?, ?)`,
		c.Name, c.RequiresSerial, c.RequiresMAC,
	)
	if db.IsUniqueViolation(err) {
		return nil, apperr.Integrity(err, "category %q already exists", c.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	return GetCategory(ctx, database, id)
}

// GetCategory returns a category by ID.
func GetCategory(ctx context.Context, database *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := database.QueryRowContext(ctx,
		`SELECT id, name, requires_serial, requires_mac, created_at FROM categories WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.RequiresSerial, &c.RequiresMAC, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories.
func ListCategories(ctx context.Context, database *sql.DB) ([]model.Category, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT id, name, requires_serial, requires_mac, created_at FROM categories ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.RequiresSerial, &c.RequiresMAC, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory updates a category. Identifier requirements only apply to
// items registered or edited afterwards.
func UpdateCategory(ctx context.Context, database *sql.DB, c model.Category) error {
	result, err := database.ExecContext(ctx,
		`UPDATE categories SET name = ?, requires_serial = ?, requires_mac = ? WHERE id = ?`,
		c.Name, c.RequiresSerial, c.RequiresMAC, c.ID,
	)
	if db.IsUniqueViolation(err) {
		return apperr.Integrity(err, "category %q already exists", c.Name)
	}
	if err != nil {
		return fmt.Errorf("updating category: %w", err)
	}
	return requireRow(result, "category", c.ID)
}

// DeleteCategory deletes a category no product model belongs to.
func DeleteCategory(ctx context.Context, database *sql.DB, id int64) error {
	result, err := database.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Integrity(err, "cannot delete category %d: product models still use it", id)
	}
	if err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}
	return requireRow(result, "category", id)
}
