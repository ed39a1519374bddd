package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/engineering-ims/ims/internal/model"
)

// NewBorrowing is the input for lending stock to a customer.
type NewBorrowing struct {
	CustomerID int64
	ItemIDs    []int64
	DueDate    *time.Time
	Notes      string
}

// CreateBorrowing lends in-stock sale units to a customer.
func CreateBorrowing(ctx context.Context, database *sql.DB, in NewBorrowing, userID int64) (*model.Borrowing, error) {
	if err := uniqueIDs(in.ItemIDs, "item"); err != nil {
		return nil, err
	}

	var id int64
	err := withTx(ctx, database, func(tx *sql.Tx) error {
		name, err := customerName(ctx, tx, in.CustomerID)
		if err != nil {
			return err
		}
		id, err = createLoan(ctx, tx, borrowingKind, newLoan{
			counterpartyID:   in.CustomerID,
			counterpartyName: name,
			itemIDs:          in.ItemIDs,
			dueDate:          in.DueDate,
			notes:            in.Notes,
		}, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	return GetBorrowing(ctx, database, id)
}

// ReturnBorrowing takes back some or all of a borrowing's items.
func ReturnBorrowing(ctx context.Context, database *sql.DB, id int64, itemIDs []int64, userID int64) (*model.Borrowing, error) {
	if err := uniqueIDs(itemIDs, "item"); err != nil {
		return nil, err
	}

	err := withTx(ctx, database, func(tx *sql.Tx) error {
		return returnLoanItems(ctx, tx, borrowingKind, id, itemIDs, userID)
	})
	if err != nil {
		return nil, err
	}

	return GetBorrowing(ctx, database, id)
}

const borrowingSelect = `SELECT b.id, b.customer_id, b.approved_by_id, b.status, b.due_date, b.notes,
        b.borrowed_at, b.returned_at, c.name
 FROM borrowings b
 JOIN customers c ON c.id = b.customer_id`

// GetBorrowing returns a borrowing with its items.
func GetBorrowing(ctx context.Context, database *sql.DB, id int64) (*model.Borrowing, error) {
	b, err := scanBorrowing(database.QueryRowContext(ctx, borrowingSelect+` WHERE b.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting borrowing: %w", err)
	}

	b.Items, err = listLoanItems(ctx, database, borrowingKind, id)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// ListBorrowings returns borrowings, newest first.
func ListBorrowings(ctx context.Context, database *sql.DB, f model.LoanFilter) ([]model.Borrowing, error) {
	query := borrowingSelect + ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND b.status = ?`
		args = append(args, f.Status)
	}
	if f.CounterpartyID > 0 {
		query += ` AND b.customer_id = ?`
		args = append(args, f.CounterpartyID)
	}
	query += ` ORDER BY b.borrowed_at DESC, b.id DESC`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing borrowings: %w", err)
	}
	defer rows.Close()

	var borrowings []model.Borrowing
	for rows.Next() {
		b, err := scanBorrowing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning borrowing: %w", err)
		}
		borrowings = append(borrowings, *b)
	}
	return borrowings, rows.Err()
}

func scanBorrowing(row rowScanner) (*model.Borrowing, error) {
	b := &model.Borrowing{}
	var due, returned sql.NullTime
	var notes sql.NullString
	if err := row.Scan(&b.ID, &b.CustomerID, &b.ApprovedByID, &b.Status, &due, &notes,
		&b.BorrowedAt, &returned, &b.CustomerName); err != nil {
		return nil, err
	}
	b.DueDate = scanNullTime(due)
	b.ReturnedAt = scanNullTime(returned)
	b.Notes = notes.String
	return b, nil
}
