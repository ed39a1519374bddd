package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/model"
)

// NewAssignment is the input for handing assets to an employee.
type NewAssignment struct {
	AssigneeID int64
	ItemIDs    []int64
	DueDate    *time.Time
	Notes      string
}

// CreateAssignment hands warehouse assets to an active user.
func CreateAssignment(ctx context.Context, database *sql.DB, in NewAssignment, userID int64) (*model.Assignment, error) {
	if err := uniqueIDs(in.ItemIDs, "item"); err != nil {
		return nil, err
	}

	var id int64
	err := withTx(ctx, database, func(tx *sql.Tx) error {
		name, err := assigneeName(ctx, tx, in.AssigneeID)
		if err != nil {
			return err
		}
		id, err = createLoan(ctx, tx, assignmentKind, newLoan{
			counterpartyID:   in.AssigneeID,
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

	return GetAssignment(ctx, database, id)
}

// ReturnAssignment takes back some or all of an assignment's assets.
func ReturnAssignment(ctx context.Context, database *sql.DB, id int64, itemIDs []int64, userID int64) (*model.Assignment, error) {
	if err := uniqueIDs(itemIDs, "item"); err != nil {
		return nil, err
	}

	err := withTx(ctx, database, func(tx *sql.Tx) error {
		return returnLoanItems(ctx, tx, assignmentKind, id, itemIDs, userID)
	})
	if err != nil {
		return nil, err
	}

	return GetAssignment(ctx, database, id)
}

const assignmentSelect = `SELECT a.id, a.assignee_id, a.assigned_by_id, a.status, a.due_date, a.notes,
        a.assigned_at, a.returned_at, COALESCE(NULLIF(u.full_name, ''), u.username)
 FROM assignments a
 JOIN users u ON u.id = a.assignee_id`

// GetAssignment returns an assignment with its items.
func GetAssignment(ctx context.Context, database *sql.DB, id int64) (*model.Assignment, error) {
	a, err := scanAssignment(database.QueryRowContext(ctx, assignmentSelect+` WHERE a.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}

	a.Items, err = listLoanItems(ctx, database, assignmentKind, id)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListAssignments returns assignments, newest first.
func ListAssignments(ctx context.Context, database *sql.DB, f model.LoanFilter) ([]model.Assignment, error) {
	query := assignmentSelect + ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND a.status = ?`
		args = append(args, f.Status)
	}
	if f.CounterpartyID > 0 {
		query += ` AND a.assignee_id = ?`
		args = append(args, f.CounterpartyID)
	}
	query += ` ORDER BY a.assigned_at DESC, a.id DESC`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, *a)
	}
	return assignments, rows.Err()
}

func scanAssignment(row rowScanner) (*model.Assignment, error) {
	a := &model.Assignment{}
	var due, returned sql.NullTime
	var notes sql.NullString
	if err := row.Scan(&a.ID, &a.AssigneeID, &a.AssignedByID, &a.Status, &due, &notes,
		&a.AssignedAt, &returned, &a.AssigneeName); err != nil {
		return nil, err
	}
	a.DueDate = scanNullTime(due)
	a.ReturnedAt = scanNullTime(returned)
	a.Notes = notes.String
	return a, nil
}

// assigneeName checks that an assignee is an active user and returns the
// name used in audit entries.
func assigneeName(ctx context.Context, q querier, id int64) (string, error) {
	var name string
	err := q.QueryRowContext(ctx,
		`SELECT COALESCE(NULLIF(full_name, ''), username) FROM users WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return "", apperr.NotFound("user %d not found", id)
	}
	if err != nil {
		return "", fmt.Errorf("getting assignee: %w", err)
	}
	return name, nil
}
