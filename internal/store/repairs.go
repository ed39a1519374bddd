package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/lifecycle"
	"github.com/engineering-ims/ims/internal/model"
)

var repairTable = parentTable{
	noun: "repair", table: "repairs", joinTable: "repair_items", fk: "repair_id",
	closedAt: "completed_at", parent: lifecycle.RepairParent,
}

// NewRepair is the input for a repair order.
type NewRepair struct {
	SenderAddress   string
	ReceiverAddress string
	CustomerID      *int64
	Notes           string
	Items           []NewRepairItem
}

// NewRepairItem is one unit on a repair order. A customer's unit that is not
// in the system yet has no ItemID; it is registered from ProductModelID and
// its identifiers.
type NewRepairItem struct {
	ItemID         int64
	IsCustomerItem bool
	ProductModelID int64
	SerialNumber   string
	MACAddress     string
	Problem        string
}

// RepairReturnItem reports how one unit came back.
type RepairReturnItem struct {
	ItemID  int64
	Outcome model.RepairOutcome
}

// RepairFilter narrows repair listings.
type RepairFilter struct {
	Status     string
	CustomerID int64
}

// CreateRepair sends units to a repair shop under one order.
func CreateRepair(ctx context.Context, database *sql.DB, in NewRepair, userID int64) (*model.Repair, error) {
	in.SenderAddress = strings.TrimSpace(in.SenderAddress)
	in.ReceiverAddress = strings.TrimSpace(in.ReceiverAddress)
	if in.SenderAddress == "" || in.ReceiverAddress == "" {
		return nil, apperr.Validation("sender_address and receiver_address are required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}

	var existing []int64
	for _, ri := range in.Items {
		if ri.ItemID != 0 {
			existing = append(existing, ri.ItemID)
			continue
		}
		if !ri.IsCustomerItem {
			return nil, apperr.Validation("company items must be referenced by item_id")
		}
		if in.CustomerID == nil {
			return nil, apperr.Validation("customer_id is required when registering a customer's item")
		}
		if ri.ProductModelID <= 0 {
			return nil, apperr.Validation("product_model_id is required when registering a customer's item")
		}
	}
	if len(existing) > 0 {
		if err := uniqueIDs(existing, "item"); err != nil {
			return nil, err
		}
	}

	var repairID int64
	err := withTx(ctx, database, func(tx *sql.Tx) error {
		if in.CustomerID != nil {
			if _, err := customerName(ctx, tx, *in.CustomerID); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO repairs (sender_address, receiver_address, customer_id, created_by_id, status, notes, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			in.SenderAddress, in.ReceiverAddress, in.CustomerID, userID, model.RepairOpen, nullString(in.Notes), now(),
		)
		if err != nil {
			return fmt.Errorf("creating repair: %w", err)
		}
		repairID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting repair id: %w", err)
		}

		for _, ri := range in.Items {
			details := map[string]any{"repair_id": repairID, "receiver": in.ReceiverAddress}
			if ri.Problem != "" {
				details["problem"] = ri.Problem
			}

			itemID := ri.ItemID
			if itemID == 0 {
				itemID, err = registerCustomerItem(ctx, tx, ri, *in.CustomerID, userID)
				if err != nil {
					return err
				}
				details["intake"] = true
			} else if err := sendToRepair(ctx, tx, ri, in.CustomerID); err != nil {
				return err
			}

			if _, err := tx.ExecContext(ctx,
				`INSERT INTO repair_items (repair_id, item_id, is_customer_item, problem) VALUES (?, ?, ?, ?)`,
				repairID, itemID, ri.IsCustomerItem, nullString(ri.Problem),
			); err != nil {
				return fmt.Errorf("adding item %d to repair: %w", itemID, err)
			}
			if err := appendEvent(ctx, tx, itemID, userID, lifecycle.EventFor(lifecycle.SendToRepair), details); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return GetRepair(ctx, database, repairID)
}

// sendToRepair moves a unit already in the system to REPAIRING. The line's
// customer flag must match the unit: it is set exactly for units a customer
// owns or bought, and a repair filed for a customer must be that customer's.
func sendToRepair(ctx context.Context, tx *sql.Tx, ri NewRepairItem, customerID *int64) error {
	item, err := getItem(ctx, tx, ri.ItemID)
	if err != nil {
		return err
	}
	if item == nil {
		return apperr.NotFound("item %d not found", ri.ItemID)
	}

	buyer, err := completedSaleCustomer(ctx, tx, item)
	if err != nil {
		return err
	}
	var owner *int64
	isCustomer := false
	switch {
	case item.OwnerType == model.OwnerCustomer:
		owner, isCustomer = item.CustomerID, true
	case buyer != nil:
		owner, isCustomer = buyer, true
	}

	if ri.IsCustomerItem != isCustomer {
		if isCustomer {
			return apperr.Validation("item %d belongs to a customer; mark it is_customer_item", item.ID)
		}
		return apperr.Validation("item %d is company stock; it is not a customer item", item.ID)
	}
	if customerID != nil && owner != nil && *owner != *customerID {
		return apperr.Validation("item %d belongs to customer %d, not customer %d", item.ID, *owner, *customerID)
	}
	if !isCustomer && (item.Status == model.StatusSold || item.Status == model.StatusReturnedToCustomer) {
		return apperr.Conflict("item %d is %s but has no customer; it cannot be sent to repair", item.ID, item.Status)
	}

	to, err := lifecycle.Guard(lifecycle.SendToRepair, item.ID, item.ItemType, item.Status)
	if err != nil {
		return err
	}
	return setItemStatus(ctx, tx, item.ID, item.Status, to)
}

// registerCustomerItem records a customer's own unit at repair intake. It
// enters the system already REPAIRING.
func registerCustomerItem(ctx context.Context, tx *sql.Tx, ri NewRepairItem, customerID, userID int64) (int64, error) {
	pm, err := getProductModel(ctx, tx, ri.ProductModelID)
	if err != nil {
		return 0, err
	}
	if pm == nil {
		return 0, apperr.NotFound("product model %d not found", ri.ProductModelID)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (item_type, status, owner_type, serial_number, mac_address, product_model_id,
		                    customer_id, added_by_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(model.ItemTypeSale), string(model.StatusRepairing), string(model.OwnerCustomer),
		nullString(strings.TrimSpace(ri.SerialNumber)), nullString(normalizeMAC(ri.MACAddress)),
		pm.ID, customerID, userID,
	)
	if db.IsUniqueViolation(err) {
		return 0, duplicateIdentifier(err)
	}
	if err != nil {
		return 0, fmt.Errorf("registering customer item: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting item id: %w", err)
	}
	return id, nil
}

// ReturnRepair records units coming back from repair. Each unit's new status
// follows from its ownership, its sale and the reported outcome.
func ReturnRepair(ctx context.Context, database *sql.DB, repairID int64, returns []RepairReturnItem, userID int64) (*model.Repair, error) {
	ids := make([]int64, len(returns))
	for i, r := range returns {
		ids[i] = r.ItemID
	}
	if err := uniqueIDs(ids, "item"); err != nil {
		return nil, err
	}

	err := withTx(ctx, database, func(tx *sql.Tx) error {
		if err := openParent(ctx, tx, repairTable, repairID); err != nil {
			return err
		}

		for _, r := range returns {
			if err := outstandingJoinRow(ctx, tx, repairTable, repairID, r.ItemID); err != nil {
				return err
			}
			item, err := getItem(ctx, tx, r.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return apperr.NotFound("item %d not found", r.ItemID)
			}
			if item.Status != model.StatusRepairing {
				return apperr.Conflict("item %d is %s; returning from repair requires %s",
					item.ID, item.Status, model.StatusRepairing)
			}

			saleCompleted, err := hasCompletedSale(ctx, tx, item)
			if err != nil {
				return err
			}
			to, err := lifecycle.ResolveRepairReturn(lifecycle.RepairReturn{
				ItemType:      item.ItemType,
				OwnerType:     item.OwnerType,
				SaleCompleted: saleCompleted,
				Outcome:       r.Outcome,
			})
			if err != nil {
				return err
			}

			if err := setItemStatus(ctx, tx, item.ID, item.Status, to); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE repair_items SET returned_at = ?, outcome = ?, returned_by_id = ?
				 WHERE repair_id = ? AND item_id = ?`,
				now(), string(r.Outcome), userID, repairID, item.ID,
			); err != nil {
				return fmt.Errorf("returning item %d from repair: %w", item.ID, err)
			}
			if err := appendEvent(ctx, tx, item.ID, userID, model.EventRepairReturned, map[string]any{
				"repair_id": repairID,
				"outcome":   r.Outcome,
				"status":    to,
			}); err != nil {
				return err
			}
		}

		return settleParent(ctx, tx, repairTable, repairID)
	})
	if err != nil {
		return nil, err
	}

	return GetRepair(ctx, database, repairID)
}

func hasCompletedSale(ctx context.Context, q querier, item *model.Item) (bool, error) {
	buyer, err := completedSaleCustomer(ctx, q, item)
	return buyer != nil, err
}

// completedSaleCustomer returns the buyer of item, or nil unless the item is
// linked to a completed sale.
func completedSaleCustomer(ctx context.Context, q querier, item *model.Item) (*int64, error) {
	if item.SaleID == nil {
		return nil, nil
	}
	var status string
	var customerID int64
	err := q.QueryRowContext(ctx,
		`SELECT status, customer_id FROM sales WHERE id = ?`, *item.SaleID,
	).Scan(&status, &customerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting sale of item %d: %w", item.ID, err)
	}
	if status != model.SaleCompleted {
		return nil, nil
	}
	return &customerID, nil
}

const repairSelect = `SELECT id, sender_address, receiver_address, customer_id, created_by_id, status, notes,
        created_at, completed_at
 FROM repairs`

// GetRepair returns a repair order with its items.
func GetRepair(ctx context.Context, database *sql.DB, id int64) (*model.Repair, error) {
	r, err := scanRepair(database.QueryRowContext(ctx, repairSelect+` WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting repair: %w", err)
	}

	rows, err := database.QueryContext(ctx,
		`SELECT ri.item_id, ri.is_customer_item, ri.problem, ri.returned_at, ri.outcome, ri.returned_by_id,
		        i.serial_number, pm.name, i.status
		 FROM repair_items ri
		 JOIN items i ON i.id = ri.item_id
		 JOIN product_models pm ON pm.id = i.product_model_id
		 WHERE ri.repair_id = ?
		 ORDER BY ri.item_id`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("listing repair items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ri model.RepairItem
		var problem, outcome, serial sql.NullString
		var returnedAt sql.NullTime
		var status string
		if err := rows.Scan(&ri.ItemID, &ri.IsCustomerItem, &problem, &returnedAt, &outcome, &ri.ReturnedByID,
			&serial, &ri.ProductModelName, &status); err != nil {
			return nil, fmt.Errorf("scanning repair item: %w", err)
		}
		ri.Problem = problem.String
		ri.ReturnedAt = scanNullTime(returnedAt)
		if outcome.Valid {
			o := model.RepairOutcome(outcome.String)
			ri.Outcome = &o
		}
		ri.SerialNumber = serial.String
		ri.Status = model.ItemStatus(status)
		r.Items = append(r.Items, ri)
	}
	return r, rows.Err()
}

// ListRepairs returns repair orders, newest first.
func ListRepairs(ctx context.Context, database *sql.DB, f RepairFilter) ([]model.Repair, error) {
	query := repairSelect + ` WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.CustomerID > 0 {
		query += ` AND customer_id = ?`
		args = append(args, f.CustomerID)
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing repairs: %w", err)
	}
	defer rows.Close()

	var repairs []model.Repair
	for rows.Next() {
		r, err := scanRepair(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning repair: %w", err)
		}
		repairs = append(repairs, *r)
	}
	return repairs, rows.Err()
}

func scanRepair(row rowScanner) (*model.Repair, error) {
	r := &model.Repair{}
	var notes sql.NullString
	var completed sql.NullTime
	if err := row.Scan(&r.ID, &r.SenderAddress, &r.ReceiverAddress, &r.CustomerID, &r.CreatedByID, &r.Status,
		&notes, &r.CreatedAt, &completed); err != nil {
		return nil, err
	}
	r.Notes = notes.String
	r.CompletedAt = scanNullTime(completed)
	return r, nil
}
