package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors. Typed errors below match them with errors.Is.
var (
	ErrNotFound             = errors.New("order not found")
	ErrInvalidTransition    = errors.New("invalid transition")
	ErrDesignNotFound       = errors.New("design not found")
	ErrAlreadyReviewed      = errors.New("design already reviewed")
	ErrStaleOrder           = errors.New("stale order")
	ErrItemNotFound         = errors.New("item not found")
	ErrLastItem             = errors.New("cannot remove the last item; cancel the order instead")
	ErrEmptyItems           = errors.New("items required")
	ErrInvalidQuantity      = errors.New("quantity out of range")
	ErrIncompleteDesign     = errors.New("design has no customized view")
	ErrRejectReasonRequired = errors.New("reject reason required")
	ErrInvalidOrder         = errors.New("invalid order")
)

// Repository-level conflicts. The service maps them; callers never see them.
var (
	ErrVersionConflict         = errors.New("order version conflict")
	ErrDuplicateIdempotencyKey = errors.New("duplicate idempotency key")
)

// InvalidTransitionError describes a rejected status change. Blocking lists
// the design ids that keep the order from shipping.
type InvalidTransitionError struct {
	OrderID  string
	From     Status
	To       Status
	Blocking []string
}

func (e *InvalidTransitionError) Error() string {
	switch {
	case len(e.Blocking) > 0:
		return fmt.Sprintf("order %s: cannot move from %s to %s: designs not approved: %s",
			e.OrderID, e.From, e.To, strings.Join(e.Blocking, ", "))
	case e.To == "":
		return fmt.Sprintf("order %s is %s and can no longer change", e.OrderID, e.From)
	default:
		return fmt.Sprintf("order %s: cannot move from %s to %s", e.OrderID, e.From, e.To)
	}
}

// Is reports whether target is ErrInvalidTransition.
func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// DesignNotFoundError indicates an order has no custom design with the id.
type DesignNotFoundError struct {
	OrderID  string
	DesignID string
}

func (e *DesignNotFoundError) Error() string {
	return fmt.Sprintf("order %s: design %s not found", e.OrderID, e.DesignID)
}

// Is reports whether target is ErrDesignNotFound.
func (e *DesignNotFoundError) Is(target error) bool { return target == ErrDesignNotFound }

// AlreadyReviewedError indicates a second review of the same design.
type AlreadyReviewedError struct {
	DesignID string
	Status   ReviewStatus
}

func (e *AlreadyReviewedError) Error() string {
	return fmt.Sprintf("design %s already %s", e.DesignID, strings.ToLower(string(e.Status)))
}

// Is reports whether target is ErrAlreadyReviewed.
func (e *AlreadyReviewedError) Is(target error) bool { return target == ErrAlreadyReviewed }

// StaleOrderError indicates the caller acted on an outdated view of the order.
type StaleOrderError struct {
	OrderID  string
	Expected Snapshot
	Actual   Snapshot
}

func (e *StaleOrderError) Error() string {
	if e.Actual == (Snapshot{}) {
		return fmt.Sprintf("order %s changed concurrently", e.OrderID)
	}
	return fmt.Sprintf("order %s changed: expected %s, current %s", e.OrderID, e.Expected.ETag(), e.Actual.ETag())
}

// Is reports whether target is ErrStaleOrder.
func (e *StaleOrderError) Is(target error) bool { return target == ErrStaleOrder }

// ItemNotFoundError indicates an order has no line item with the id.
type ItemNotFoundError struct {
	OrderID string
	ItemID  string
}

func (e *ItemNotFoundError) Error() string {
	return fmt.Sprintf("order %s: item %s not found", e.OrderID, e.ItemID)
}

// Is reports whether target is ErrItemNotFound.
func (e *ItemNotFoundError) Is(target error) bool { return target == ErrItemNotFound }

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item quantity outside 1..MaxQuantity,
// or one whose amount does not fit in int64 minor units.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity %d for product %s out of range 1..%d", e.Quantity, e.ProductID, MaxQuantity)
}

// Is reports whether target is ErrInvalidQuantity.
func (e *InvalidQuantityError) Is(target error) bool { return target == ErrInvalidQuantity }

// IncompleteDesignError indicates a custom item whose design customizes no view.
type IncompleteDesignError struct {
	ProductID string
}

func (e *IncompleteDesignError) Error() string {
	return fmt.Sprintf("design for product %s has no customized view", e.ProductID)
}

// Is reports whether target is ErrIncompleteDesign.
func (e *IncompleteDesignError) Is(target error) bool { return target == ErrIncompleteDesign }

// ValidationError reports an order field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidOrder.
func (e *ValidationError) Is(target error) bool { return target == ErrInvalidOrder }
