package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/lifecycle"
	"github.com/engineering-ims/ims/internal/model"
)

// parentTable describes a transaction whose items come back one by one.
type parentTable struct {
	noun      string // used in messages and audit details
	table     string
	joinTable string
	fk        string // join table column pointing at the parent
	closedAt  string // stamped when nothing is outstanding
	parent    lifecycle.Parent
}

// loanKind is a parentTable plus what borrowings and assignments differ in.
type loanKind struct {
	parentTable
	counterparty   string // column holding the customer or assignee
	counterpartyAs string // audit detail key for the counterparty's name
	actor          string // column holding the approving user
	openedAt       string
	lend, giveBack lifecycle.Operation
}

var (
	borrowingKind = loanKind{
		parentTable: parentTable{
			noun: "borrowing", table: "borrowings", joinTable: "borrowing_items", fk: "borrowing_id",
			closedAt: "returned_at", parent: lifecycle.BorrowingParent,
		},
		counterparty: "customer_id", counterpartyAs: "customer", actor: "approved_by_id", openedAt: "borrowed_at",
		lend: lifecycle.Borrow, giveBack: lifecycle.ReturnBorrowed,
	}
	assignmentKind = loanKind{
		parentTable: parentTable{
			noun: "assignment", table: "assignments", joinTable: "assignment_items", fk: "assignment_id",
			closedAt: "returned_at", parent: lifecycle.AssignmentParent,
		},
		counterparty: "assignee_id", counterpartyAs: "assignee", actor: "assigned_by_id", openedAt: "assigned_at",
		lend: lifecycle.Assign, giveBack: lifecycle.ReturnAssigned,
	}
)

// newLoan is what borrowings and assignments are created from.
type newLoan struct {
	counterpartyID   int64
	counterpartyName string
	itemIDs          []int64
	dueDate          *time.Time
	notes            string
}

// createLoan hands out every listed item to the counterparty inside tx.
func createLoan(ctx context.Context, tx *sql.Tx, k loanKind, in newLoan, userID int64) (int64, error) {
	items, err := loadItems(ctx, tx, in.itemIDs)
	if err != nil {
		return 0, err
	}
	targets := make([]model.ItemStatus, len(items))
	for i, item := range items {
		targets[i], err = lifecycle.Guard(k.lend, item.ID, item.ItemType, item.Status)
		if err != nil {
			return 0, err
		}
	}

	status, _ := lifecycle.ParentStatus(k.parent, len(items), len(items))
	result, err := tx.ExecContext(ctx,
		`INSERT INTO `+k.table+` (`+k.counterparty+`, `+k.actor+`, status, due_date, notes, `+k.openedAt+`)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		in.counterpartyID, userID, status, in.dueDate, nullString(in.notes), now(),
	)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", k.noun, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting %s id: %w", k.noun, err)
	}

	for i, item := range items {
		if err := setItemStatus(ctx, tx, item.ID, item.Status, targets[i]); err != nil {
			return 0, err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO `+k.joinTable+` (`+k.fk+`, item_id) VALUES (?, ?)`, id, item.ID,
		); err != nil {
			return 0, fmt.Errorf("adding item %d to %s: %w", item.ID, k.noun, err)
		}
		if err := appendEvent(ctx, tx, item.ID, userID, lifecycle.EventFor(k.lend), map[string]any{
			k.noun + "_id":   id,
			k.counterpartyAs: in.counterpartyName,
		}); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// returnLoanItems takes back a subset of a loan's items and re-derives the
// loan's status from its join rows.
func returnLoanItems(ctx context.Context, tx *sql.Tx, k loanKind, loanID int64, itemIDs []int64, userID int64) error {
	if err := openParent(ctx, tx, k.parentTable, loanID); err != nil {
		return err
	}

	for _, itemID := range itemIDs {
		if err := outstandingJoinRow(ctx, tx, k.parentTable, loanID, itemID); err != nil {
			return err
		}
		item, err := getItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("item %d not found", itemID)
		}
		to, err := lifecycle.Guard(k.giveBack, item.ID, item.ItemType, item.Status)
		if err != nil {
			return err
		}
		if err := setItemStatus(ctx, tx, item.ID, item.Status, to); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE `+k.joinTable+` SET returned_at = ?, returned_by_id = ? WHERE `+k.fk+` = ? AND item_id = ?`,
			now(), userID, loanID, itemID,
		); err != nil {
			return fmt.Errorf("returning item %d from %s: %w", itemID, k.noun, err)
		}
		if err := appendEvent(ctx, tx, item.ID, userID, lifecycle.EventFor(k.giveBack), map[string]any{
			k.noun + "_id": loanID,
		}); err != nil {
			return err
		}
	}

	return settleParent(ctx, tx, k.parentTable, loanID)
}

// openParent fails unless the parent exists and still has items out.
func openParent(ctx context.Context, tx *sql.Tx, t parentTable, id int64) error {
	var status string
	err := tx.QueryRowContext(ctx, `SELECT status FROM `+t.table+` WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return apperr.NotFound("%s %d not found", t.noun, id)
	}
	if err != nil {
		return fmt.Errorf("getting %s: %w", t.noun, err)
	}
	if closed, _ := lifecycle.ParentStatus(t.parent, 1, 0); status == closed {
		return apperr.Conflict("%s %d is already %s", t.noun, id, status)
	}
	return nil
}

// outstandingJoinRow fails unless item is on the parent and not yet returned.
func outstandingJoinRow(ctx context.Context, tx *sql.Tx, t parentTable, parentID, itemID int64) error {
	var returnedAt sql.NullTime
	err := tx.QueryRowContext(ctx,
		`SELECT returned_at FROM `+t.joinTable+` WHERE `+t.fk+` = ? AND item_id = ?`, parentID, itemID,
	).Scan(&returnedAt)
	if err == sql.ErrNoRows {
		return apperr.Validation("item %d is not part of %s %d", itemID, t.noun, parentID)
	}
	if err != nil {
		return fmt.Errorf("getting %s item: %w", t.noun, err)
	}
	if returnedAt.Valid {
		return apperr.Conflict("item %d was already returned from %s %d", itemID, t.noun, parentID)
	}
	return nil
}

// settleParent recounts the parent's join rows and stores the status they
// imply, stamping the close time once nothing is outstanding.
func settleParent(ctx context.Context, tx *sql.Tx, t parentTable, id int64) error {
	var total, outstanding int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) - COUNT(returned_at) FROM `+t.joinTable+` WHERE `+t.fk+` = ?`, id,
	).Scan(&total, &outstanding)
	if err != nil {
		return fmt.Errorf("counting %s items: %w", t.noun, err)
	}

	status, done := lifecycle.ParentStatus(t.parent, total, outstanding)
	var closedAt any
	if done {
		closedAt = now()
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE `+t.table+` SET status = ?, `+t.closedAt+` = ? WHERE id = ?`, status, closedAt, id,
	); err != nil {
		return fmt.Errorf("updating %s status: %w", t.noun, err)
	}
	return nil
}

// listLoanItems returns a loan's join rows with the current item state.
func listLoanItems(ctx context.Context, database *sql.DB, k loanKind, loanID int64) ([]model.LoanItem, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT li.item_id, li.returned_at, li.returned_by_id, i.serial_number, i.asset_code, pm.name, i.status
		 FROM `+k.joinTable+` li
		 JOIN items i ON i.id = li.item_id
		 JOIN product_models pm ON pm.id = i.product_model_id
		 WHERE li.`+k.fk+` = ?
		 ORDER BY li.item_id`, loanID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing %s items: %w", k.noun, err)
	}
	defer rows.Close()

	var items []model.LoanItem
	for rows.Next() {
		var li model.LoanItem
		var returnedAt sql.NullTime
		var serial, assetCode sql.NullString
		var status string
		if err := rows.Scan(&li.ItemID, &returnedAt, &li.ReturnedByID, &serial, &assetCode,
			&li.ProductModelName, &status); err != nil {
			return nil, fmt.Errorf("scanning %s item: %w", k.noun, err)
		}
		li.ReturnedAt = scanNullTime(returnedAt)
		li.SerialNumber = serial.String
		li.AssetCode = assetCode.String
		li.Status = model.ItemStatus(status)
		items = append(items, li)
	}
	return items, rows.Err()
}

func scanNullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
