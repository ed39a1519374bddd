package model

import "time"

// Borrowing statuses.
const (
	BorrowingBorrowed = "BORROWED"
	BorrowingReturned = "RETURNED"
)

// Assignment statuses.
const (
	AssignmentAssigned = "ASSIGNED"
	AssignmentReturned = "RETURNED"
)

// PartiallyReturned is shared by borrowings, assignments and repairs.
const PartiallyReturned = "PARTIALLY_RETURNED"

// Borrowing lends sale-bound units to a customer, e.g. for evaluation.
type Borrowing struct {
	ID           int64      `json:"id"`
	CustomerID   int64      `json:"customer_id"`
	ApprovedByID int64      `json:"approved_by_id"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	BorrowedAt   time.Time  `json:"borrowed_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`

	// Joined fields (not always populated).
	CustomerName string     `json:"customer_name,omitempty"`
	Items        []LoanItem `json:"items,omitempty"`
}

// Assignment hands company assets to an employee.
type Assignment struct {
	ID           int64      `json:"id"`
	AssigneeID   int64      `json:"assignee_id"`
	AssignedByID int64      `json:"assigned_by_id"`
	Status       string     `json:"status"`
	DueDate      *time.Time `json:"due_date,omitempty"`
	Notes        string     `json:"notes,omitempty"`
	AssignedAt   time.Time  `json:"assigned_at"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`

	// Joined fields (not always populated).
	AssigneeName string     `json:"assignee_name,omitempty"`
	Items        []LoanItem `json:"items,omitempty"`
}

// LoanItem is the join row between a borrowing or assignment and one unit.
// ReturnedAt is set when that unit comes back, independent of the parent.
type LoanItem struct {
	ItemID       int64      `json:"item_id"`
	ReturnedAt   *time.Time `json:"returned_at,omitempty"`
	ReturnedByID *int64     `json:"returned_by_id,omitempty"`

	SerialNumber     string     `json:"serial_number,omitempty"`
	AssetCode        string     `json:"asset_code,omitempty"`
	ProductModelName string     `json:"product_model_name,omitempty"`
	Status           ItemStatus `json:"item_status,omitempty"`
}

// LoanFilter narrows borrowing and assignment listings.
type LoanFilter struct {
	Status string
	// CounterpartyID is the customer (borrowings) or assignee (assignments).
	CounterpartyID int64
}
