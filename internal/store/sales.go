package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/lifecycle"
	"github.com/engineering-ims/ims/internal/model"
)

// NewSale is the input for selling units to a customer.
type NewSale struct {
	CustomerID int64
	ItemIDs    []int64
	Notes      string
}

// SaleFilter narrows sale listings.
type SaleFilter struct {
	CustomerID int64
	Status     string
}

// CreateSale sells the given in-stock units to a customer at their product
// model's selling price plus VAT. Either every unit is sold or none is.
func CreateSale(ctx context.Context, database *sql.DB, in NewSale, userID int64) (*model.Sale, error) {
	if err := uniqueIDs(in.ItemIDs, "item"); err != nil {
		return nil, err
	}

	var saleID int64
	err := withTx(ctx, database, func(tx *sql.Tx) error {
		customer, err := customerName(ctx, tx, in.CustomerID)
		if err != nil {
			return err
		}

		items, err := loadItems(ctx, tx, in.ItemIDs)
		if err != nil {
			return err
		}

		targets := make([]model.ItemStatus, len(items))
		var subtotal float64
		for i, item := range items {
			targets[i], err = lifecycle.Guard(lifecycle.Sell, item.ID, item.ItemType, item.Status)
			if err != nil {
				return err
			}
			subtotal += item.SellingPrice
		}
		subtotal = roundMoney(subtotal)
		vat := roundMoney(subtotal * model.VATRate)

		result, err := tx.ExecContext(ctx,
			`INSERT INTO sales (customer_id, sold_by_id, subtotal, vat_amount, total, status, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			in.CustomerID, userID, subtotal, vat, roundMoney(subtotal+vat), model.SaleCompleted,
			nullString(in.Notes), now(),
		)
		if err != nil {
			return fmt.Errorf("creating sale: %w", err)
		}
		saleID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting sale id: %w", err)
		}

		for i, item := range items {
			if err := setItemStatus(ctx, tx, item.ID, item.Status, targets[i]); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE items SET sale_id = ? WHERE id = ?`, saleID, item.ID); err != nil {
				return fmt.Errorf("linking item %d to sale: %w", item.ID, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO sale_items (sale_id, item_id, unit_price) VALUES (?, ?, ?)`,
				saleID, item.ID, item.SellingPrice,
			); err != nil {
				return fmt.Errorf("adding item %d to sale: %w", item.ID, err)
			}
			if err := appendEvent(ctx, tx, item.ID, userID, lifecycle.EventFor(lifecycle.Sell), map[string]any{
				"sale_id":    saleID,
				"customer":   customer,
				"unit_price": item.SellingPrice,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetSale(ctx, database, saleID)
}

// VoidSale cancels a completed sale. Its units go back in stock and lose
// their sale link; the sale itself is kept, marked VOIDED.
func VoidSale(ctx context.Context, database *sql.DB, saleID, userID int64, reason string) (*model.Sale, error) {
	err := withTx(ctx, database, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM sales WHERE id = ?`, saleID).Scan(&status)
		if err == sql.ErrNoRows {
			return apperr.NotFound("sale %d not found", saleID)
		}
		if err != nil {
			return fmt.Errorf("getting sale: %w", err)
		}
		if status != model.SaleCompleted {
			return apperr.Conflict("sale %d is already %s", saleID, status)
		}

		ids, err := saleItemIDs(ctx, tx, saleID)
		if err != nil {
			return err
		}
		items, err := loadItems(ctx, tx, ids)
		if err != nil {
			return err
		}

		for _, item := range items {
			to, err := lifecycle.Guard(lifecycle.VoidSale, item.ID, item.ItemType, item.Status)
			if err != nil {
				return err
			}
			if err := setItemStatus(ctx, tx, item.ID, item.Status, to); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `UPDATE items SET sale_id = NULL WHERE id = ?`, item.ID); err != nil {
				return fmt.Errorf("unlinking item %d from sale: %w", item.ID, err)
			}
			details := map[string]any{"sale_id": saleID}
			if reason != "" {
				details["reason"] = reason
			}
			if err := appendEvent(ctx, tx, item.ID, userID, lifecycle.EventFor(lifecycle.VoidSale), details); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx,
			`UPDATE sales SET status = ?, void_reason = ?, voided_at = ?, voided_by_id = ?
			 WHERE id = ? AND status = ?`,
			model.SaleVoided, nullString(reason), now(), userID, saleID, model.SaleCompleted,
		)
		if err != nil {
			return fmt.Errorf("voiding sale: %w", err)
		}
		if n, _ := result.RowsAffected(); n != 1 {
			return apperr.Conflict("sale %d changed while it was being voided; reload and try again", saleID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetSale(ctx, database, saleID)
}

// GetSale returns a sale with its line items.
func GetSale(ctx context.Context, database *sql.DB, id int64) (*model.Sale, error) {
	row := database.QueryRowContext(ctx, saleSelect+` WHERE s.id = ?`, id)
	sale, err := scanSale(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting sale: %w", err)
	}

	rows, err := database.QueryContext(ctx,
		`SELECT si.sale_id, si.item_id, si.unit_price, i.serial_number, pm.name
		 FROM sale_items si
		 JOIN items i ON i.id = si.item_id
		 JOIN product_models pm ON pm.id = i.product_model_id
		 WHERE si.sale_id = ?
		 ORDER BY si.item_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var si model.SaleItem
		var serial sql.NullString
		if err := rows.Scan(&si.SaleID, &si.ItemID, &si.UnitPrice, &serial, &si.ProductModelName); err != nil {
			return nil, fmt.Errorf("scanning sale item: %w", err)
		}
		si.SerialNumber = serial.String
		sale.Items = append(sale.Items, si)
	}
	return sale, rows.Err()
}

// ListSales returns sales, newest first.
func ListSales(ctx context.Context, database *sql.DB, f SaleFilter) ([]model.Sale, error) {
	query := saleSelect + ` WHERE 1=1`
	var args []any
	if f.CustomerID > 0 {
		query += ` AND s.customer_id = ?`
		args = append(args, f.CustomerID)
	}
	if f.Status != "" {
		query += ` AND s.status = ?`
		args = append(args, f.Status)
	}
	query += ` ORDER BY s.created_at DESC, s.id DESC`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sales: %w", err)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning sale: %w", err)
		}
		sales = append(sales, *sale)
	}
	return sales, rows.Err()
}

const saleSelect = `SELECT s.id, s.customer_id, s.sold_by_id, s.subtotal, s.vat_amount, s.total, s.status,
        s.notes, s.void_reason, s.voided_at, s.voided_by_id, s.created_at, c.name
 FROM sales s
 JOIN customers c ON c.id = s.customer_id`

func scanSale(row rowScanner) (*model.Sale, error) {
	s := &model.Sale{}
	var notes, reason sql.NullString
	var voidedAt sql.NullTime
	if err := row.Scan(&s.ID, &s.CustomerID, &s.SoldByID, &s.Subtotal, &s.VATAmount, &s.Total, &s.Status,
		&notes, &reason, &voidedAt, &s.VoidedByID, &s.CreatedAt, &s.CustomerName); err != nil {
		return nil, err
	}
	s.Notes = notes.String
	s.VoidReason = reason.String
	s.VoidedAt = scanNullTime(voidedAt)
	return s, nil
}

func saleItemIDs(ctx context.Context, tx *sql.Tx, saleID int64) ([]int64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT item_id FROM sale_items WHERE sale_id = ? ORDER BY item_id`, saleID)
	if err != nil {
		return nil, fmt.Errorf("listing sale items: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning sale item: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// customerName checks that a customer exists and returns its name for
// audit entries.
func customerName(ctx context.Context, q querier, id int64) (string, error) {
	var name string
	err := q.QueryRowContext(ctx, `SELECT name FROM customers WHERE id = ?`, id).Scan(&name)
	if err == sql.ErrNoRows {
		return "", apperr.NotFound("customer %d not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("getting customer: %w", err)
	}
	return name, nil
}
