package model

import "time"

// Repair statuses.
const (
	RepairOpen      = "OPEN"
	RepairCompleted = "COMPLETED"
)

// RepairOutcome is reported per unit when it comes back from repair.
type RepairOutcome string

// Repair outcomes.
const (
	OutcomeRepaired     RepairOutcome = "REPAIRED_SUCCESSFULLY"
	OutcomeUnrepairable RepairOutcome = "UNREPAIRABLE"
)

// Valid reports whether o is a known outcome.
func (o RepairOutcome) Valid() bool {
	return o == OutcomeRepaired || o == OutcomeUnrepairable
}

// Repair is a repair order sending one or more units to a repair shop.
type Repair struct {
	ID              int64      `json:"id"`
	SenderAddress   string     `json:"sender_address"`
	ReceiverAddress string     `json:"receiver_address"`
	CustomerID      *int64     `json:"customer_id,omitempty"`
	CreatedByID     int64      `json:"created_by_id"`
	Status          string     `json:"status"`
	Notes           string     `json:"notes,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`

	Items []RepairItem `json:"items,omitempty"`
}

// RepairItem is the join row between a repair and one unit.
type RepairItem struct {
	ItemID         int64          `json:"item_id"`
	IsCustomerItem bool           `json:"is_customer_item"`
	Problem        string         `json:"problem,omitempty"`
	ReturnedAt     *time.Time     `json:"returned_at,omitempty"`
	Outcome        *RepairOutcome `json:"outcome,omitempty"`
	ReturnedByID   *int64         `json:"returned_by_id,omitempty"`

	SerialNumber     string     `json:"serial_number,omitempty"`
	ProductModelName string     `json:"product_model_name,omitempty"`
	Status           ItemStatus `json:"item_status,omitempty"`
}
