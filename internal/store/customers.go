package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/model"
)

const customerColumns = `id, name, email, phone, address, created_at, updated_at`

// CreateCustomer creates a new customer.
func CreateCustomer(ctx context.Context, database *sql.DB, c model.Customer) (*model.Customer, error) {
	result, err := database.ExecContext(ctx,
		`INSERT INTO customers (name, email, phone, address) VALUES (?, ?, ?, ?)`,
		c.Name, nullString(c.Email), nullString(c.Phone), nullString(c.Address),
	)
	if err != nil {
		return nil, fmt.Errorf("creating customer: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting customer id: %w", err)
	}

	return GetCustomer(ctx, database, id)
}

// GetCustomer returns a customer by ID.
func GetCustomer(ctx context.Context, database *sql.DB, id int64) (*model.Customer, error) {
	row := database.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = ?`, id)
	c, err := scanCustomer(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting customer: %w", err)
	}
	return c, nil
}

// ListCustomers returns all customers, optionally filtered by a name/email search.
func ListCustomers(ctx context.Context, database *sql.DB, search string) ([]model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	var args []any
	if search != "" {
		query += ` WHERE name LIKE ? OR email LIKE ?`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY name`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning customer: %w", err)
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}

// UpdateCustomer updates a customer's details.
func UpdateCustomer(ctx context.Context, database *sql.DB, c model.Customer) error {
	result, err := database.ExecContext(ctx,
		`UPDATE customers SET name = ?, email = ?, phone = ?, address = ?, updated_at = ? WHERE id = ?`,
		c.Name, nullString(c.Email), nullString(c.Phone), nullString(c.Address), now(), c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating customer: %w", err)
	}
	return requireRow(result, "customer", c.ID)
}

// DeleteCustomer deletes a customer that no sale, borrowing, repair or item refers to.
func DeleteCustomer(ctx context.Context, database *sql.DB, id int64) error {
	result, err := database.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Integrity(err, "cannot delete customer %d: it is in use", id)
	}
	if err != nil {
		return fmt.Errorf("deleting customer: %w", err)
	}
	return requireRow(result, "customer", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(row rowScanner) (*model.Customer, error) {
	c := &model.Customer{}
	var email, phone, address sql.NullString
	if err := row.Scan(&c.ID, &c.Name, &email, &phone, &address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	c.Email = email.String
	c.Phone = phone.String
	c.Address = address.String
	return c, nil
}

// requireRow turns a zero-row update or delete into a not-found error.
func requireRow(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking %s update: %w", what, err)
	}
	if n == 0 {
		return apperr.NotFound("%s %d not found", what, id)
	}
	return nil
}
