package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/model"
)

// CreateSupplier creates a new supplier. Names are unique.
func CreateSupplier(ctx context.Context, database *sql.DB, s model.Supplier) (*model.Supplier, error) {
	result, err := database.ExecContext(ctx,
		`INSERT INTO suppliers (name, contact, phone) VALUES (?, ?, ?)`,
		s.Name, nullString(s.Contact), nullString(s.Phone),
	)
	if db.IsUniqueViolation(err) {
		return nil, apperr.Integrity(err, "supplier %q already exists", s.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("creating supplier: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting supplier id: %w", err)
	}

	return GetSupplier(ctx, database, id)
}

// GetSupplier returns a supplier by ID.
func GetSupplier(ctx context.Context, database *sql.DB, id int64) (*model.Supplier, error) {
	s := &model.Supplier{}
	var contact, phone sql.NullString
	err := database.QueryRowContext(ctx,
		`SELECT id, name, contact, phone, created_at, updated_at FROM suppliers WHERE id = ?`, id,
	).Scan(&s.ID, &s.Name, &contact, &phone, &s.CreatedAt, &s.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting supplier: %w", err)
	}
	s.Contact = contact.String
	s.Phone = phone.String
	return s, nil
}

// ListSuppliers returns all suppliers.
func ListSuppliers(ctx context.Context, database *sql.DB) ([]model.Supplier, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT id, name, contact, phone, created_at, updated_at FROM suppliers ORDER BY name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing suppliers: %w", err)
	}
	defer rows.Close()

	var suppliers []model.Supplier
	for rows.Next() {
		var s model.Supplier
		var contact, phone sql.NullString
		if err := rows.Scan(&s.ID, &s.Name, &contact, &phone, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning supplier: %w", err)
		}
		s.Contact = contact.String
		s.Phone = phone.String
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

// UpdateSupplier updates a supplier's details.
func UpdateSupplier(ctx context.Context, database *sql.DB, s model.Supplier) error {
	result, err := database.ExecContext(ctx,
		`UPDATE suppliers SET name = ?, contact = ?, phone = ?, updated_at = ? WHERE id = ?`,
		s.Name, nullString(s.Contact), nullString(s.Phone), now(), s.ID,
	)
	if db.IsUniqueViolation(err) {
		return apperr.Integrity(err, "supplier %q already exists", s.Name)
	}
	if err != nil {
		return fmt.Errorf("updating supplier: %w", err)
	}
	return requireRow(result, "supplier", s.ID)
}

// DeleteSupplier deletes a supplier no item refers to.
func DeleteSupplier(ctx context.Context, database *sql.DB, id int64) error {
	result, err := database.ExecContext(ctx, `DELETE FROM suppliers WHERE id = ?`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Integrity(err, "cannot delete supplier %d: it is in use", id)
	}
	if err != nil {
		return fmt.Errorf("deleting supplier: %w", err)
	}
	return requireRow(result, "supplier", id)
}
