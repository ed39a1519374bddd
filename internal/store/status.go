package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/lifecycle"
	"github.com/engineering-ims/ims/internal/model"
)

// itemActions are the operations that act on a single item outside of any
// sale, borrowing, assignment or repair.
var itemActions = map[lifecycle.Operation]bool{
	lifecycle.Reserve:       true,
	lifecycle.Unreserve:     true,
	lifecycle.MarkDefective: true,
	lifecycle.Decommission:  true,
	lifecycle.Reinstate:     true,
}

// ApplyItemAction runs a standalone status change on one item and records
// it in the item's history.
func ApplyItemAction(ctx context.Context, database *sql.DB, itemID int64, op lifecycle.Operation, userID int64, reason string) (*model.Item, error) {
	if !itemActions[op] {
		return nil, fmt.Errorf("%s is not a standalone item action", op)
	}

	err := withTx(ctx, database, func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, itemID)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("item %d not found", itemID)
		}
		if item.OwnerType == model.OwnerCustomer {
			return apperr.Validation("item %d belongs to a customer; %s applies to company items only", itemID, op)
		}

		to, err := lifecycle.Guard(op, item.ID, item.ItemType, item.Status)
		if err != nil {
			return err
		}
		if err := setItemStatus(ctx, tx, item.ID, item.Status, to); err != nil {
			return err
		}

		details := map[string]any{"from": item.Status, "to": to}
		if reason != "" {
			details["reason"] = reason
		}
		return appendEvent(ctx, tx, item.ID, userID, lifecycle.EventFor(op), details)
	})
	if err != nil {
		return nil, err
	}

	return GetItem(ctx, database, itemID)
}

// ListItemEvents returns an item's audit history, oldest first.
func ListItemEvents(ctx context.Context, database *sql.DB, itemID int64) ([]model.ItemEvent, error) {
	rows, err := database.QueryContext(ctx,
		`SELECT e.id, e.item_id, e.user_id, e.event_type, e.details, e.created_at, u.username
		 FROM item_events e
		 JOIN users u ON u.id = e.user_id
		 WHERE e.item_id = ?
		 ORDER BY e.created_at, e.id`, itemID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing item events: %w", err)
	}
	defer rows.Close()

	var events []model.ItemEvent
	for rows.Next() {
		var e model.ItemEvent
		var eventType string
		var details sql.NullString
		if err := rows.Scan(&e.ID, &e.ItemID, &e.UserID, &eventType, &details, &e.CreatedAt, &e.Username); err != nil {
			return nil, fmt.Errorf("scanning item event: %w", err)
		}
		e.EventType = model.EventType(eventType)
		if details.Valid {
			e.Details = []byte(details.String)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
