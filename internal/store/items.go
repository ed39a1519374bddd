package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/db"
	"github.com/engineering-ims/ims/internal/model"
)

const itemSelect = `SELECT i.id, i.item_type, i.status, i.owner_type, i.serial_number, i.mac_address, i.asset_code,
        i.product_model_id, i.supplier_id, i.customer_id, i.sale_id, i.added_by_id, i.notes,
        i.created_at, i.updated_at, pm.name AS product_model_name, pm.selling_price
 FROM items i
 JOIN product_models pm ON pm.id = i.product_model_id`

// NewItem is the input for registering a unit.
type NewItem struct {
	ItemType       model.ItemType
	SerialNumber   string
	MACAddress     string
	AssetCode      string
	ProductModelID int64
	SupplierID     *int64
	Notes          string
}

// ItemUpdate holds the editable attributes of a unit. Status, type and
// ownership only change through lifecycle operations.
type ItemUpdate struct {
	SerialNumber string
	MACAddress   string
	AssetCode    string
	SupplierID   *int64
	Notes        string
}

// CreateItem registers a company-owned unit. Sale items start IN_STOCK,
// assets IN_WAREHOUSE.
func CreateItem(ctx context.Context, database *sql.DB, in NewItem, userID int64) (*model.Item, error) {
	if !in.ItemType.Valid() {
		return nil, apperr.Validation("item_type must be %s or %s", model.ItemTypeSale, model.ItemTypeAsset)
	}
	in.SerialNumber = strings.TrimSpace(in.SerialNumber)
	in.MACAddress = normalizeMAC(in.MACAddress)
	in.AssetCode = strings.TrimSpace(in.AssetCode)

	var id int64
	err := withTx(ctx, database, func(tx *sql.Tx) error {
		pm, err := getProductModel(ctx, tx, in.ProductModelID)
		if err != nil {
			return err
		}
		if pm == nil {
			return apperr.NotFound("product model %d not found", in.ProductModelID)
		}
		if err := checkIdentifiers(pm, in.ItemType, in.SerialNumber, in.MACAddress, in.AssetCode); err != nil {
			return err
		}
		if err := checkSupplier(ctx, tx, in.SupplierID); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx,
			`INSERT INTO items (item_type, status, owner_type, serial_number, mac_address, asset_code,
			                    product_model_id, supplier_id, added_by_id, notes)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			string(in.ItemType), string(in.ItemType.InitialStatus()), string(model.OwnerCompany),
			nullString(in.SerialNumber), nullString(in.MACAddress), nullString(in.AssetCode),
			in.ProductModelID, in.SupplierID, userID, nullString(in.Notes),
		)
		if db.IsUniqueViolation(err) {
			return duplicateIdentifier(err)
		}
		if err != nil {
			return fmt.Errorf("creating item: %w", err)
		}
		id, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("getting item id: %w", err)
		}

		return appendEvent(ctx, tx, id, userID, model.EventCreated, map[string]any{
			"item_type":     in.ItemType,
			"status":        in.ItemType.InitialStatus(),
			"product_model": pm.Name,
		})
	})
	if err != nil {
		return nil, err
	}

	return GetItem(ctx, database, id)
}

// GetItem returns an item by ID.
func GetItem(ctx context.Context, database *sql.DB, id int64) (*model.Item, error) {
	return getItem(ctx, database, id)
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	item, err := scanItem(q.QueryRowContext(ctx, itemSelect+` WHERE i.id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}
	return item, nil
}

// loadItems reads the current state of every listed item inside tx, failing
// with a not-found error naming the first missing id.
func loadItems(ctx context.Context, tx *sql.Tx, ids []int64) ([]*model.Item, error) {
	items := make([]*model.Item, 0, len(ids))
	for _, id := range ids {
		item, err := getItem(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, apperr.NotFound("item %d not found", id)
		}
		items = append(items, item)
	}
	return items, nil
}

// ListItems returns items matching the filter, newest first.
func ListItems(ctx context.Context, database *sql.DB, f model.ItemFilter) ([]model.Item, error) {
	query := itemSelect + ` WHERE 1=1`
	var args []any

	if f.ItemType != "" {
		query += ` AND i.item_type = ?`
		args = append(args, string(f.ItemType))
	}
	if f.Status != "" {
		query += ` AND i.status = ?`
		args = append(args, string(f.Status))
	}
	if f.ProductModelID > 0 {
		query += ` AND i.product_model_id = ?`
		args = append(args, f.ProductModelID)
	}
	if f.Search != "" {
		query += ` AND (i.serial_number LIKE ? OR i.mac_address LIKE ? OR i.asset_code LIKE ? OR pm.name LIKE ?)`
		pattern := "%" + f.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	query += ` ORDER BY i.created_at DESC, i.id DESC`

	rows, err := database.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateItem updates an item's identifiers, supplier and notes.
func UpdateItem(ctx context.Context, database *sql.DB, id int64, upd ItemUpdate, userID int64) (*model.Item, error) {
	upd.SerialNumber = strings.TrimSpace(upd.SerialNumber)
	upd.MACAddress = normalizeMAC(upd.MACAddress)
	upd.AssetCode = strings.TrimSpace(upd.AssetCode)

	err := withTx(ctx, database, func(tx *sql.Tx) error {
		item, err := getItem(ctx, tx, id)
		if err != nil {
			return err
		}
		if item == nil {
			return apperr.NotFound("item %d not found", id)
		}

		if item.OwnerType == model.OwnerCompany {
			pm, err := getProductModel(ctx, tx, item.ProductModelID)
			if err != nil {
				return err
			}
			if err := checkIdentifiers(pm, item.ItemType, upd.SerialNumber, upd.MACAddress, upd.AssetCode); err != nil {
				return err
			}
		}
		if err := checkSupplier(ctx, tx, upd.SupplierID); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE items SET serial_number = ?, mac_address = ?, asset_code = ?, supplier_id = ?, notes = ?,
			                  updated_at = ?
			 WHERE id = ?`,
			nullString(upd.SerialNumber), nullString(upd.MACAddress), nullString(upd.AssetCode),
			upd.SupplierID, nullString(upd.Notes), now(), id,
		)
		if db.IsUniqueViolation(err) {
			return duplicateIdentifier(err)
		}
		if err != nil {
			return fmt.Errorf("updating item: %w", err)
		}

		changes := map[string]any{}
		if upd.SerialNumber != item.SerialNumber {
			changes["serial_number"] = upd.SerialNumber
		}
		if upd.MACAddress != item.MACAddress {
			changes["mac_address"] = upd.MACAddress
		}
		if upd.AssetCode != item.AssetCode {
			changes["asset_code"] = upd.AssetCode
		}
		if upd.Notes != item.Notes {
			changes["notes"] = upd.Notes
		}
		return appendEvent(ctx, tx, id, userID, model.EventUpdated, changes)
	})
	if err != nil {
		return nil, err
	}

	return GetItem(ctx, database, id)
}

// DeleteItem removes an item that has never taken part in a sale, borrowing,
// assignment or repair. Its audit entries go with it.
func DeleteItem(ctx context.Context, database *sql.DB, id int64) error {
	return withTx(ctx, database, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM items WHERE id = ?`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("checking item: %w", err)
		}
		if exists == 0 {
			return apperr.NotFound("item %d not found", id)
		}

		var history int
		err = tx.QueryRowContext(ctx,
			`SELECT (SELECT COUNT(*) FROM sale_items WHERE item_id = ?)
			      + (SELECT COUNT(*) FROM borrowing_items WHERE item_id = ?)
			      + (SELECT COUNT(*) FROM assignment_items WHERE item_id = ?)
			      + (SELECT COUNT(*) FROM repair_items WHERE item_id = ?)`,
			id, id, id, id,
		).Scan(&history)
		if err != nil {
			return fmt.Errorf("checking item history: %w", err)
		}
		if history > 0 {
			return apperr.Integrity(nil, "cannot delete item %d: it has transaction history", id)
		}

		_, err = tx.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
		if db.IsForeignKeyViolation(err) {
			return apperr.Integrity(err, "cannot delete item %d: it is in use", id)
		}
		if err != nil {
			return fmt.Errorf("deleting item: %w", err)
		}
		return nil
	})
}

// checkIdentifiers enforces the identifiers a unit needs: serial and MAC per
// its category, and an asset code for every asset.
func checkIdentifiers(pm *model.ProductModel, itemType model.ItemType, serial, mac, assetCode string) error {
	if pm.RequiresSerial && serial == "" {
		return apperr.Validation("serial_number is required for %s items", pm.CategoryName)
	}
	if pm.RequiresMAC && mac == "" {
		return apperr.Validation("mac_address is required for %s items", pm.CategoryName)
	}
	if itemType == model.ItemTypeAsset && assetCode == "" {
		return apperr.Validation("asset_code is required for assets")
	}
	return nil
}

func checkSupplier(ctx context.Context, q querier, supplierID *int64) error {
	if supplierID == nil {
		return nil
	}
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM suppliers WHERE id = ?`, *supplierID).Scan(&n); err != nil {
		return fmt.Errorf("checking supplier: %w", err)
	}
	if n == 0 {
		return apperr.NotFound("supplier %d not found", *supplierID)
	}
	return nil
}

func duplicateIdentifier(err error) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "serial_number"):
		return apperr.Integrity(err, "serial number is already registered")
	case strings.Contains(msg, "mac_address"):
		return apperr.Integrity(err, "MAC address is already registered")
	case strings.Contains(msg, "asset_code"):
		return apperr.Integrity(err, "asset code is already registered")
	}
	return apperr.Integrity(err, "item identifier is already registered")
}

// normalizeMAC upper-cases a MAC address and uses colons as separators.
func normalizeMAC(mac string) string {
	mac = strings.TrimSpace(mac)
	mac = strings.ReplaceAll(mac, "-", ":")
	return strings.ToUpper(mac)
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var itemType, status, ownerType string
	var serial, mac, assetCode, notes sql.NullString
	if err := row.Scan(&item.ID, &itemType, &status, &ownerType, &serial, &mac, &assetCode,
		&item.ProductModelID, &item.SupplierID, &item.CustomerID, &item.SaleID, &item.AddedByID, &notes,
		&item.CreatedAt, &item.UpdatedAt, &item.ProductModelName, &item.SellingPrice); err != nil {
		return nil, err
	}
	item.ItemType = model.ItemType(itemType)
	item.Status = model.ItemStatus(status)
	item.OwnerType = model.OwnerType(ownerType)
	item.SerialNumber = serial.String
	item.MACAddress = mac.String
	item.AssetCode = assetCode.String
	item.Notes = notes.String
	return item, nil
}
