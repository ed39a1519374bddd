package model

import "time"

// ItemType discriminates sale-bound stock from company-owned assets.
type ItemType string

// Item types.
const (
	ItemTypeSale  ItemType = "SALE"
	ItemTypeAsset ItemType = "ASSET"
)

// Valid reports whether t is a known item type.
func (t ItemType) Valid() bool {
	return t == ItemTypeSale || t == ItemTypeAsset
}

// InitialStatus is the status a newly registered unit of this type starts in.
func (t ItemType) InitialStatus() ItemStatus {
	if t == ItemTypeAsset {
		return StatusInWarehouse
	}
	return StatusInStock
}

// ItemStatus is the physical/ownership state of a unit.
type ItemStatus string

// Item statuses.
const (
	StatusInStock            ItemStatus = "IN_STOCK"
	StatusInWarehouse        ItemStatus = "IN_WAREHOUSE"
	StatusReserved           ItemStatus = "RESERVED"
	StatusSold               ItemStatus = "SOLD"
	StatusBorrowed           ItemStatus = "BORROWED"
	StatusAssigned           ItemStatus = "ASSIGNED"
	StatusRepairing          ItemStatus = "REPAIRING"
	StatusDefective          ItemStatus = "DEFECTIVE"
	StatusDecommissioned     ItemStatus = "DECOMMISSIONED"
	StatusReturnedToCustomer ItemStatus = "RETURNED_TO_CUSTOMER"
)

// AllItemStatuses lists every status in declaration order.
var AllItemStatuses = []ItemStatus{
	StatusInStock, StatusInWarehouse, StatusReserved, StatusSold, StatusBorrowed,
	StatusAssigned, StatusRepairing, StatusDefective, StatusDecommissioned,
	StatusReturnedToCustomer,
}

// Valid reports whether s is a known status.
func (s ItemStatus) Valid() bool {
	for _, known := range AllItemStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// OwnerType says who a unit belongs to.
type OwnerType string

// Owner types.
const (
	OwnerCompany  OwnerType = "COMPANY"
	OwnerCustomer OwnerType = "CUSTOMER"
)

// Item is a single physical unit, either sale stock or a company asset.
type Item struct {
	ID             int64      `json:"id"`
	ItemType       ItemType   `json:"item_type"`
	Status         ItemStatus `json:"status"`
	OwnerType      OwnerType  `json:"owner_type"`
	SerialNumber   string     `json:"serial_number,omitempty"`
	MACAddress     string     `json:"mac_address,omitempty"`
	AssetCode      string     `json:"asset_code,omitempty"`
	ProductModelID int64      `json:"product_model_id"`
	SupplierID     *int64     `json:"supplier_id,omitempty"`
	CustomerID     *int64     `json:"customer_id,omitempty"`
	SaleID         *int64     `json:"sale_id,omitempty"`
	AddedByID      int64      `json:"added_by_id"`
	Notes          string     `json:"notes,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// Joined fields (not always populated).
	ProductModelName string  `json:"product_model_name,omitempty"`
	SellingPrice     float64 `json:"selling_price,omitempty"`
}

// ItemFilter narrows item listings. Zero values mean "any".
type ItemFilter struct {
	ItemType       ItemType
	Status         ItemStatus
	ProductModelID int64
	Search         string
}
