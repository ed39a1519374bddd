package lifecycle

import (
	"github.com/engineering-ims/ims/internal/apperr"
	"github.com/engineering-ims/ims/internal/model"
)

// Parent identifies a transaction whose items are returned one by one.
type Parent int

// Parents.
const (
	BorrowingParent Parent = iota
	AssignmentParent
	RepairParent
)

// ParentStatus derives a parent transaction's status from its join rows:
// total is the number of items on it, outstanding the number not yet
// returned. The result is recomputed from the rows on every return instead
// of being tracked incrementally. done is true once nothing is outstanding.
func ParentStatus(p Parent, total, outstanding int) (status string, done bool) {
	open, closed := parentVocabulary(p)
	switch {
	case outstanding <= 0:
		return closed, true
	case outstanding >= total:
		return open, false
	default:
		return model.PartiallyReturned, false
	}
}

func parentVocabulary(p Parent) (open, closed string) {
	switch p {
	case AssignmentParent:
		return model.AssignmentAssigned, model.AssignmentReturned
	case RepairParent:
		return model.RepairOpen, model.RepairCompleted
	default:
		return model.BorrowingBorrowed, model.BorrowingReturned
	}
}

// RepairReturn is what is known about an item when it comes back from repair.
type RepairReturn struct {
	ItemType  model.ItemType
	OwnerType model.OwnerType
	// SaleCompleted is true when the item is linked to a sale that was not voided.
	SaleCompleted bool
	Outcome       model.RepairOutcome
}

// ResolveRepairReturn decides the status of an item coming back from repair.
// Units that belong to a customer, or were sold to one, go back to that
// customer whatever the outcome. Company units return to stock when repaired
// and are decommissioned when not.
func ResolveRepairReturn(r RepairReturn) (model.ItemStatus, error) {
	if !r.Outcome.Valid() {
		return "", apperr.Validation("repair outcome must be %s or %s", model.OutcomeRepaired, model.OutcomeUnrepairable)
	}
	if r.OwnerType == model.OwnerCustomer || r.SaleCompleted {
		return model.StatusReturnedToCustomer, nil
	}
	if r.Outcome == model.OutcomeRepaired {
		return AvailableStatus(r.ItemType), nil
	}
	return model.StatusDecommissioned, nil
}
