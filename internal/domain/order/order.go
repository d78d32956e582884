package order

import (
	"math"
	"slices"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/threadcraft/internal/domain/design"
)

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// ParseStatus validates s as one of the five statuses.
func ParseStatus(s string) (Status, bool) {
	st := Status(s)
	_, ok := transitions[st]
	return st, ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// StatusEntry is one audit record of the status history.
type StatusEntry struct {
	Status    Status
	Note      string
	ActorID   string
	Timestamp time.Time
}

// ReviewStatus is the state of a custom design review.
type ReviewStatus string

const (
	ReviewSubmitted ReviewStatus = "SUBMITTED"
	ReviewApproved  ReviewStatus = "APPROVED"
	ReviewRejected  ReviewStatus = "REJECTED"
)

// Review records the outcome of a design review. Reviewer fields are empty
// while the design is SUBMITTED.
type Review struct {
	Status       ReviewStatus
	ReviewerID   string
	ReviewerName string
	ReviewedAt   time.Time
	Reason       string
}

// CustomDesign is a customer design embedded in a custom line item.
type CustomDesign struct {
	ID          string
	Angles      design.Angles
	SubmittedAt time.Time
	Review      Review
}

// Clone returns a deep copy.
func (d CustomDesign) Clone() CustomDesign {
	d.Angles = d.Angles.Clone()
	return d
}

// MaxQuantity is the largest quantity a single line item may carry.
const MaxQuantity = 1000

// Line holds the fields every line item carries. Prices are minor units.
// BasePrice is the product price before option modifiers.
type Line struct {
	ID        string
	ProductID string
	ColorID   string
	SizeID    string
	Quantity  int
	BasePrice int64
	UnitPrice int64
}

// Amount returns UnitPrice times Quantity.
func (l Line) Amount() int64 {
	return l.UnitPrice * int64(l.Quantity)
}

// checkedAmount is Amount with an overflow check.
func (l Line) checkedAmount() (int64, bool) {
	if l.Quantity <= 0 || l.UnitPrice < 0 {
		return 0, false
	}
	if l.UnitPrice > math.MaxInt64/int64(l.Quantity) {
		return 0, false
	}
	return l.Amount(), true
}

// SumItems sums line amounts. It fails with InvalidQuantityError naming the
// first item whose quantity is out of range or whose amount overflows.
func SumItems(items []Item) (int64, error) {
	var subtotal int64
	for _, it := range items {
		base := it.Base()
		if base.Quantity <= 0 || base.Quantity > MaxQuantity {
			return 0, &InvalidQuantityError{ProductID: base.ProductID, Quantity: base.Quantity}
		}
		amount, ok := base.checkedAmount()
		if !ok || subtotal > math.MaxInt64-amount {
			return 0, &InvalidQuantityError{ProductID: base.ProductID, Quantity: base.Quantity}
		}
		subtotal += amount
	}
	return subtotal, nil
}

// Item is a line item: either StandardItem or CustomItem.
type Item interface {
	Base() Line
	clone() Item
}

// StandardItem is a catalog product in the chosen options.
type StandardItem struct {
	Line
}

// Base returns the common line fields.
func (i StandardItem) Base() Line { return i.Line }

func (i StandardItem) clone() Item { return i }

// CustomItem is a product carrying a customer design.
type CustomItem struct {
	Line
	Design CustomDesign
}

// Base returns the common line fields.
func (i CustomItem) Base() Line { return i.Line }

func (i CustomItem) clone() Item {
	i.Design = i.Design.Clone()
	return i
}

// ShippingInfo is the delivery address of an order.
type ShippingInfo struct {
	FullName   string
	Address    string
	City       string
	State      string
	PostalCode string
	Country    string
	Phone      string
}

// Order is the order aggregate. Items, totals, status, history and version
// are only changed through the functions of this package, each of which
// returns a new Order and leaves its input untouched.
type Order struct {
	ID             string
	UserEmail      string
	ShippingInfo   ShippingInfo
	DisplayRate    decimal.Decimal
	IdempotencyKey string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	items    []Item
	subtotal int64
	shipping int64
	total    int64
	status   Status
	history  []StatusEntry
	version  int64
}

// Items returns a copy of the line items.
func (o *Order) Items() []Item {
	out := make([]Item, len(o.items))
	for i, it := range o.items {
		out[i] = it.clone()
	}
	return out
}

// Subtotal is the sum of line amounts.
func (o *Order) Subtotal() int64 { return o.subtotal }

// Shipping is the shipping charge.
func (o *Order) Shipping() int64 { return o.shipping }

// Total is Subtotal plus Shipping.
func (o *Order) Total() int64 { return o.total }

// Status returns the current status.
func (o *Order) Status() Status { return o.status }

// History returns a copy of the status history, oldest first.
func (o *Order) History() []StatusEntry { return slices.Clone(o.history) }

// Version is the optimistic concurrency token, incremented by every
// committed mutation.
func (o *Order) Version() int64 { return o.version }

// Snapshot returns the caller-visible concurrency view of o.
func (o *Order) Snapshot() Snapshot {
	return Snapshot{Status: o.status, HistoryLen: len(o.history)}
}

// Designs returns copies of every embedded custom design.
func (o *Order) Designs() []CustomDesign {
	var out []CustomDesign
	for _, it := range o.items {
		if ci, ok := it.(CustomItem); ok {
			out = append(out, ci.Design.Clone())
		}
	}
	return out
}

// clone returns a deep copy of o.
func (o *Order) clone() *Order {
	cp := *o
	cp.items = o.Items()
	cp.history = slices.Clone(o.history)
	return &cp
}

// recompute restores the totals invariant after items or shipping change.
func (o *Order) recompute() {
	var subtotal int64
	for _, it := range o.items {
		subtotal += it.Base().Amount()
	}
	o.subtotal = subtotal
	o.total = subtotal + o.shipping
}

// RestoreParams holds persisted order state.
type RestoreParams struct {
	ID             string
	UserEmail      string
	ShippingInfo   ShippingInfo
	DisplayRate    decimal.Decimal
	IdempotencyKey string
	Items          []Item
	Shipping       int64
	Status         Status
	History        []StatusEntry
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Restore rebuilds an Order from storage. Totals are recomputed from items.
func Restore(p RestoreParams) (*Order, error) {
	if _, ok := transitions[p.Status]; !ok {
		return nil, errors.Errorf("restore order %s: unknown status %q", p.ID, p.Status)
	}
	o := &Order{
		ID:             p.ID,
		UserEmail:      p.UserEmail,
		ShippingInfo:   p.ShippingInfo,
		DisplayRate:    p.DisplayRate,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		shipping:       p.Shipping,
		status:         p.Status,
		history:        slices.Clone(p.History),
		version:        p.Version,
	}
	o.items = make([]Item, len(p.Items))
	for i, it := range p.Items {
		o.items[i] = it.clone()
	}
	o.recompute()
	return o, nil
}
