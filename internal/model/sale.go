package model

import "time"

// Sale statuses.
const (
	SaleCompleted = "COMPLETED"
	SaleVoided    = "VOIDED"
)

// VATRate is the flat VAT applied on top of every sale subtotal.
const VATRate = 0.07

// Sale is a completed or voided sale of one or more sale-bound units.
type Sale struct {
	ID         int64      `json:"id"`
	CustomerID int64      `json:"customer_id"`
	SoldByID   int64      `json:"sold_by_id"`
	Subtotal   float64    `json:"subtotal"`
	VATAmount  float64    `json:"vat_amount"`
	Total      float64    `json:"total"`
	Status     string     `json:"status"`
	Notes      string     `json:"notes,omitempty"`
	VoidReason string     `json:"void_reason,omitempty"`
	VoidedAt   *time.Time `json:"voided_at,omitempty"`
	VoidedByID *int64     `json:"voided_by_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	// Joined fields (not always populated).
	CustomerName string     `json:"customer_name,omitempty"`
	Items        []SaleItem `json:"items,omitempty"`
}

// SaleItem links a unit to the sale it was sold in, at the price charged.
type SaleItem struct {
	SaleID    int64   `json:"sale_id"`
	ItemID    int64   `json:"item_id"`
	UnitPrice float64 `json:"unit_price"`

	SerialNumber     string `json:"serial_number,omitempty"`
	ProductModelName string `json:"product_model_name,omitempty"`
}
