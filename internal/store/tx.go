package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn in a transaction, committing only if fn returns nil.
// Every status change, join row and audit entry written by fn lands
// together or not at all.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// appendEvent writes one audit entry for an item.
func appendEvent(ctx context.Context, q querier, itemID, userID int64, eventType model.EventType, details map[string]any) error {
	var payload any
	if len(details) > 0 {
		data, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encoding event details: %w", err)
		}
		payload = string(data)
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO item_events (item_id, user_id, event_type, details, created_at) VALUES (?, ?, ?, ?, ?)`,
		itemID, userID, string(eventType), payload, now(),
	)
	if err != nil {
		return fmt.Errorf("recording %s event for item %d: %w", eventType, itemID, err)
	}
	return nil
}

// setItemStatus moves an item from one status to another. The update only
// applies if the row still holds the expected status, so a concurrent change
// made since the item was read aborts the transaction.
func setItemStatus(ctx context.Context, q querier, itemID int64, from, to model.ItemStatus) error {
	result, err := q.ExecContext(ctx,
		`UPDATE items SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(to), now(), itemID, string(from),
	)
	if err != nil {
		return fmt.Errorf("updating item %d status: %w", itemID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating item %d status: %w", itemID, err)
	}
	if n != 1 {
		return apperr.Conflict("item %d changed while it was being updated; reload and try again", itemID)
	}
	return nil
}

// uniqueIDs rejects empty and duplicate id lists.
func uniqueIDs(ids []int64, what string) error {
	if len(ids) == 0 {
		return apperr.Validation("at least one %s is required", what)
	}
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return apperr.Validation("invalid %s id %d", what, id)
		}
		if seen[id] {
			return apperr.Validation("%s %d listed more than once", what, id)
		}
		seen[id] = true
	}
	return nil
}

func now() time.Time {
	return time.Now().UTC()
}

// roundMoney rounds to whole cents.
func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
