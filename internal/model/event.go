package model

import (
	"encoding/json"
	"time"
)

// EventType names an audited change to an item.
type EventType string

// Event types.
const (
	EventCreated        EventType = "CREATED"
	EventUpdated        EventType = "UPDATED"
	EventReserved       EventType = "RESERVED"
	EventUnreserved     EventType = "UNRESERVED"
	EventSold           EventType = "SOLD"
	EventSaleVoided     EventType = "SALE_VOIDED"
	EventBorrowed       EventType = "BORROWED"
	EventBorrowReturned EventType = "BORROW_RETURNED"
	EventAssigned       EventType = "ASSIGNED"
	EventAssignReturned EventType = "ASSIGNMENT_RETURNED"
	EventRepairSent     EventType = "REPAIR_SENT"
	EventRepairReturned EventType = "REPAIR_RETURNED"
	EventDefective      EventType = "MARKED_DEFECTIVE"
	EventDecommissioned EventType = "DECOMMISSIONED"
	EventReinstated     EventType = "REINSTATED"
)

// ItemEvent is an append-only audit entry for one item.
type ItemEvent struct {
	ID        int64           `json:"id"`
	ItemID    int64           `json:"item_id"`
	UserID    int64           `json:"user_id"`
	EventType EventType       `json:"event_type"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`

	// Joined fields (not always populated).
	Username string `json:"username,omitempty"`
}
