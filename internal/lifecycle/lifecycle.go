// Package lifecycle holds the item status model: which operation may move
// an item from which status to which, for each item type.
//
// Every store operation that changes an item's status asks Guard first,
// inside the same transaction that applies the change.
package lifecycle

import (
	"fmt"
	"strings"

	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/model"
)

// Operation is a status-changing action on a single item.
type Operation string

// Operations.
const (
	Reserve        Operation = "reserve"
	Unreserve      Operation = "unreserve"
	Sell           Operation = "sell"
	VoidSale       Operation = "void sale"
	Borrow         Operation = "borrow"
	ReturnBorrowed Operation = "return borrowed item"
	Assign         Operation = "assign"
	ReturnAssigned Operation = "return assigned item"
	SendToRepair   Operation = "send to repair"
	MarkDefective  Operation = "mark defective"
	Decommission   Operation = "decommission"
	Reinstate      Operation = "reinstate"
)

// Rule describes one operation. An item type missing from Sources cannot
// undergo the operation at all.
type Rule struct {
	Sources map[model.ItemType][]model.ItemStatus
	Targets map[model.ItemType]model.ItemStatus
	Event   model.EventType
}

var (
	sale  = model.ItemTypeSale
	asset = model.ItemTypeAsset
)

// Rules is the transition table.
var Rules = map[Operation]Rule{
	Reserve: {
		Sources: map[model.ItemType][]model.ItemStatus{sale: {model.StatusInStock}},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusReserved},
		Event:   model.EventReserved,
	},
	Unreserve: {
		Sources: map[model.ItemType][]model.ItemStatus{sale: {model.StatusReserved}},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusInStock},
		Event:   model.EventUnreserved,
	},
	Sell: {
		Sources: map[model.ItemType][]model.ItemStatus{sale: {model.StatusInStock}},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusSold},
		Event:   model.EventSold,
	},
	VoidSale: {
		Sources: map[model.ItemType][]model.ItemStatus{sale: {model.StatusSold}},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusInStock},
		Event:   model.EventSaleVoided,
	},
	Borrow: {
		Sources: map[model.ItemType][]model.ItemStatus{sale: {model.StatusInStock}},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusBorrowed},
		Event:   model.EventBorrowed,
	},
	ReturnBorrowed: {
		Sources: map[model.ItemType][]model.ItemStatus{sale: {model.StatusBorrowed}},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusInStock},
		Event:   model.EventBorrowReturned,
	},
	Assign: {
		Sources: map[model.ItemType][]model.ItemStatus{asset: {model.StatusInWarehouse}},
		Targets: map[model.ItemType]model.ItemStatus{asset: model.StatusAssigned},
		Event:   model.EventAssigned,
	},
	ReturnAssigned: {
		Sources: map[model.ItemType][]model.ItemStatus{asset: {model.StatusAssigned}},
		Targets: map[model.ItemType]model.ItemStatus{asset: model.StatusInWarehouse},
		Event:   model.EventAssignReturned,
	},
	// A sold unit can come back under warranty; it keeps its sale link and
	// goes back to the customer once the repair is done. A unit already
	// returned to its customer can come in again. The store only lets
	// customer units out of SOLD and RETURNED_TO_CUSTOMER.
	SendToRepair: {
		Sources: map[model.ItemType][]model.ItemStatus{
			sale:  {model.StatusInStock, model.StatusDefective, model.StatusSold, model.StatusReturnedToCustomer},
			asset: {model.StatusInWarehouse, model.StatusDefective},
		},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusRepairing, asset: model.StatusRepairing},
		Event:   model.EventRepairSent,
	},
	MarkDefective: {
		Sources: map[model.ItemType][]model.ItemStatus{
			sale:  {model.StatusInStock},
			asset: {model.StatusInWarehouse},
		},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusDefective, asset: model.StatusDefective},
		Event:   model.EventDefective,
	},
	Decommission: {
		Sources: map[model.ItemType][]model.ItemStatus{
			sale:  {model.StatusInStock, model.StatusDefective},
			asset: {model.StatusInWarehouse},
		},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusDecommissioned, asset: model.StatusDecommissioned},
		Event:   model.EventDecommissioned,
	},
	Reinstate: {
		Sources: map[model.ItemType][]model.ItemStatus{
			sale:  {model.StatusDefective, model.StatusDecommissioned},
			asset: {model.StatusDefective, model.StatusDecommissioned},
		},
		Targets: map[model.ItemType]model.ItemStatus{sale: model.StatusInStock, asset: model.StatusInWarehouse},
		Event:   model.EventReinstated,
	},
}

// Guard checks that an item of the given type and current status may undergo
// op, and returns the status it moves to.
func Guard(op Operation, itemID int64, itemType model.ItemType, current model.ItemStatus) (model.ItemStatus, error) {
	rule, ok := Rules[op]
	if !ok {
		return "", fmt.Errorf("unknown operation %q", op)
	}

	sources, ok := rule.Sources[itemType]
	if !ok {
		return "", apperr.Validation("item %d is a %s item; %s applies to %s items only",
			itemID, itemType, op, supportedTypes(rule))
	}

	for _, s := range sources {
		if s == current {
			return rule.Targets[itemType], nil
		}
	}
	return "", apperr.Conflict("item %d is %s; %s requires one of [%s]", itemID, current, op, joinStatuses(sources))
}

// EventFor returns the audit event type recorded for op.
func EventFor(op Operation) model.EventType {
	return Rules[op].Event
}

// Statuses lists the statuses an item of type t can ever hold.
func Statuses(t model.ItemType) []model.ItemStatus {
	switch t {
	case model.ItemTypeSale:
		return []model.ItemStatus{
			model.StatusInStock, model.StatusReserved, model.StatusSold, model.StatusBorrowed,
			model.StatusDefective, model.StatusRepairing, model.StatusDecommissioned,
			model.StatusReturnedToCustomer,
		}
	case model.ItemTypeAsset:
		return []model.ItemStatus{
			model.StatusInWarehouse, model.StatusAssigned, model.StatusDefective,
			model.StatusRepairing, model.StatusDecommissioned, model.StatusReturnedToCustomer,
		}
	}
	return nil
}

// Reachable reports whether status s is valid for an item of type t.
func Reachable(t model.ItemType, s model.ItemStatus) bool {
	for _, candidate := range Statuses(t) {
		if candidate == s {
			return true
		}
	}
	return false
}

// AvailableStatus is where an item of type t rests when it is free for use.
func AvailableStatus(t model.ItemType) model.ItemStatus {
	return t.InitialStatus()
}

func supportedTypes(rule Rule) string {
	var types []string
	for _, t := range []model.ItemType{model.ItemTypeSale, model.ItemTypeAsset} {
		if _, ok := rule.Sources[t]; ok {
			types = append(types, string(t))
		}
	}
	return strings.Join(types, "/")
}

func joinStatuses(statuses []model.ItemStatus) string {
	parts := make([]string, len(statuses))
	for i, s := range statuses {
		parts[i] = string(s)
	}
	return strings.Join(parts, ", ")
}
