package order

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/threadcraft/internal/domain/auth"
)

// transitions lists the statuses reachable from each status.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  nil,
	StatusCancelled:  nil,
}

// CanTransition reports whether the graph allows from -> to.
func CanTransition(from, to Status) bool {
	return slices.Contains(transitions[from], to)
}

// Snapshot is the view of an order a caller acted on.
type Snapshot struct {
	Status     Status
	HistoryLen int
}

// ETag renders s as a quoted HTTP entity tag.
func (s Snapshot) ETag() string {
	return strconv.Quote(string(s.Status) + "." + strconv.Itoa(s.HistoryLen))
}

// ParseETag parses an entity tag produced by Snapshot.ETag. Weak tags are
// accepted.
func ParseETag(tag string) (Snapshot, error) {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
	raw, err := strconv.Unquote(tag)
	if err != nil {
		return Snapshot{}, errors.Wrapf(err, "parse etag %q", tag)
	}
	status, n, ok := strings.Cut(raw, ".")
	if !ok {
		return Snapshot{}, errors.Errorf("parse etag %q: missing history length", tag)
	}
	st, known := ParseStatus(status)
	if !known {
		return Snapshot{}, errors.Errorf("parse etag %q: unknown status", tag)
	}
	l, err := strconv.Atoi(n)
	if err != nil || l < 0 {
		return Snapshot{}, errors.Errorf("parse etag %q: bad history length", tag)
	}
	return Snapshot{Status: st, HistoryLen: l}, nil
}

// CheckExpected fails with StaleOrderError when o no longer matches expected.
func CheckExpected(o *Order, expected Snapshot) error {
	if actual := o.Snapshot(); actual != expected {
		return &StaleOrderError{OrderID: o.ID, Expected: expected, Actual: actual}
	}
	return nil
}

// NewParams holds the input of New. Items must carry ids and unit prices.
type NewParams struct {
	ID             string
	UserEmail      string
	ShippingInfo   ShippingInfo
	Items          []Item
	Shipping       int64
	DisplayRate    decimal.Decimal
	IdempotencyKey string
}

// New creates a PENDING order with its initial history entry. Every custom
// design starts SUBMITTED.
func New(p NewParams, now time.Time) (*Order, error) {
	if len(p.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if p.Shipping < 0 {
		return nil, &ValidationError{Field: "shipping", Reason: "must not be negative"}
	}

	ids := make(map[string]struct{}, len(p.Items))
	items := make([]Item, 0, len(p.Items))
	for _, it := range p.Items {
		base := it.Base()
		if base.ID == "" {
			return nil, &ValidationError{Field: "item id", Reason: "required"}
		}
		if _, dup := ids[base.ID]; dup {
			return nil, &ValidationError{Field: "item id", Reason: fmt.Sprintf("duplicate %s", base.ID)}
		}
		ids[base.ID] = struct{}{}
		if base.Quantity <= 0 || base.Quantity > MaxQuantity {
			return nil, &InvalidQuantityError{ProductID: base.ProductID, Quantity: base.Quantity}
		}
		if base.UnitPrice < 0 {
			return nil, &ValidationError{Field: "unit price", Reason: "must not be negative"}
		}

		switch it := it.clone().(type) {
		case StandardItem:
			items = append(items, it)
		case CustomItem:
			if !it.Design.Angles.IsComplete() {
				return nil, &IncompleteDesignError{ProductID: base.ProductID}
			}
			if it.Design.ID == "" {
				return nil, &ValidationError{Field: "design id", Reason: "required"}
			}
			if it.Design.SubmittedAt.IsZero() {
				it.Design.SubmittedAt = now
			}
			it.Design.Review = Review{Status: ReviewSubmitted}
			items = append(items, it)
		default:
			panic(fmt.Sprintf("unknown item kind %T", it))
		}
	}

	subtotal, err := SumItems(items)
	if err != nil {
		return nil, err
	}
	if subtotal > math.MaxInt64-p.Shipping {
		return nil, &ValidationError{Field: "total", Reason: "overflows"}
	}

	o := &Order{
		ID:             p.ID,
		UserEmail:      p.UserEmail,
		ShippingInfo:   p.ShippingInfo,
		DisplayRate:    p.DisplayRate,
		IdempotencyKey: p.IdempotencyKey,
		CreatedAt:      now,
		UpdatedAt:      now,
		items:          items,
		shipping:       p.Shipping,
		status:         StatusPending,
		history: []StatusEntry{{
			Status:    StatusPending,
			Note:      "Order placed",
			Timestamp: now,
		}},
		version: 1,
	}
	o.recompute()
	return o, nil
}

// UnresolvedDesigns returns the ids of custom designs that are not APPROVED.
func UnresolvedDesigns(o *Order) []string {
	var ids []string
	for _, it := range o.items {
		if ci, ok := it.(CustomItem); ok && ci.Design.Review.Status != ReviewApproved {
			ids = append(ids, ci.Design.ID)
		}
	}
	return ids
}

// Transition moves o to status to and appends one history entry. An empty
// note is replaced by a generated one.
func Transition(o *Order, to Status, note string, actor auth.Actor, now time.Time) (*Order, error) {
	from := o.status
	if _, known := transitions[to]; !known || !CanTransition(from, to) {
		return nil, &InvalidTransitionError{OrderID: o.ID, From: from, To: to}
	}
	if to == StatusShipped || to == StatusDelivered {
		if blocking := UnresolvedDesigns(o); len(blocking) > 0 {
			return nil, &InvalidTransitionError{OrderID: o.ID, From: from, To: to, Blocking: blocking}
		}
	}

	if strings.TrimSpace(note) == "" {
		note = fmt.Sprintf("Status changed from %s to %s", from, to)
		if actor.Name != "" {
			note += " by " + actor.Name
		}
	}

	next := o.clone()
	ts := next.nextTimestamp(now)
	next.status = to
	next.history = append(next.history, StatusEntry{
		Status:    to,
		Note:      note,
		ActorID:   actor.ID,
		Timestamp: ts,
	})
	next.commit(ts)
	return next, nil
}

// Approve marks design designID APPROVED by actor.
func Approve(o *Order, designID string, actor auth.Actor, now time.Time) (*Order, error) {
	return review(o, designID, actor, now, ReviewApproved, "")
}

// Reject marks design designID REJECTED by actor with a non-empty reason.
func Reject(o *Order, designID string, actor auth.Actor, reason string, now time.Time) (*Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrRejectReasonRequired
	}
	return review(o, designID, actor, now, ReviewRejected, reason)
}

func review(o *Order, designID string, actor auth.Actor, now time.Time, outcome ReviewStatus, reason string) (*Order, error) {
	if o.status.IsTerminal() {
		return nil, &InvalidTransitionError{OrderID: o.ID, From: o.status}
	}

	idx := -1
	for i, it := range o.items {
		if ci, ok := it.(CustomItem); ok && ci.Design.ID == designID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, &DesignNotFoundError{OrderID: o.ID, DesignID: designID}
	}

	current := o.items[idx].(CustomItem)
	if current.Design.Review.Status != ReviewSubmitted {
		return nil, &AlreadyReviewedError{DesignID: designID, Status: current.Design.Review.Status}
	}

	next := o.clone()
	ci := next.items[idx].(CustomItem)
	ci.Design.Review = Review{
		Status:       outcome,
		ReviewerID:   actor.ID,
		ReviewerName: actor.Name,
		ReviewedAt:   now,
		Reason:       reason,
	}
	next.items[idx] = ci
	next.commit(now)
	return next, nil
}

// RemoveItem drops line item itemID and recomputes totals. The status
// history is left unchanged.
func RemoveItem(o *Order, itemID string, now time.Time) (*Order, error) {
	if o.status != StatusPending && o.status != StatusProcessing {
		return nil, &InvalidTransitionError{OrderID: o.ID, From: o.status}
	}

	idx := slices.IndexFunc(o.items, func(it Item) bool { return it.Base().ID == itemID })
	if idx < 0 {
		return nil, &ItemNotFoundError{OrderID: o.ID, ItemID: itemID}
	}
	if len(o.items) == 1 {
		return nil, ErrLastItem
	}

	next := o.clone()
	next.items = slices.Delete(next.items, idx, idx+1)
	next.recompute()
	next.commit(now)
	return next, nil
}

// nextTimestamp returns now, or 1µs past the last history entry when the
// clock has not advanced.
func (o *Order) nextTimestamp(now time.Time) time.Time {
	if n := len(o.history); n > 0 {
		if last := o.history[n-1].Timestamp; !now.After(last) {
			return last.Add(time.Microsecond)
		}
	}
	return now
}

// commit bumps the version and UpdatedAt of a mutated copy.
func (o *Order) commit(now time.Time) {
	o.version++
	if now.After(o.UpdatedAt) {
		o.UpdatedAt = now
	}
}
