package order

import (
	"math"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/design"
)

var (
	t0    = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	admin = auth.Actor{ID: "admin-1", Name: "Ana"}
)

func frontText() design.Angles {
	return design.Angles{Front: design.AngleDesign{Text: &design.Text{Content: "Hola", Font: "Arial", Size: 24}}}
}

func standardItem(id string, qty int, price int64) StandardItem {
	return StandardItem{Line: Line{ID: id, ProductID: "tee", ColorID: "black", SizeID: "m", Quantity: qty, UnitPrice: price}}
}

func customItem(id, designID string, qty int, price int64) CustomItem {
	return CustomItem{
		Line:   Line{ID: id, ProductID: "tee", ColorID: "black", SizeID: "xl", Quantity: qty, UnitPrice: price},
		Design: CustomDesign{ID: designID, Angles: frontText()},
	}
}

func newTestOrder(t *testing.T, items ...Item) *Order {
	t.Helper()
	o, err := New(NewParams{
		ID:        "o-1",
		UserEmail: "ana@example.com",
		Items:     items,
		Shipping:  500,
	}, t0)
	require.NoError(t, err)
	return o
}

// advance walks o through the given statuses, one second apart.
func advance(t *testing.T, o *Order, statuses ...Status) *Order {
	t.Helper()
	for i, st := range statuses {
		var err error
		o, err = Transition(o, st, "", admin, t0.Add(time.Duration(i+1)*time.Second))
		require.NoError(t, err)
	}
	return o
}

func TestNew(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 2, 1000), customItem("i2", "d1", 1, 11500))

	assert.Equal(t, StatusPending, o.Status())
	assert.Equal(t, int64(13500), o.Subtotal())
	assert.Equal(t, int64(500), o.Shipping())
	assert.Equal(t, int64(14000), o.Total())
	assert.Equal(t, int64(1), o.Version())

	h := o.History()
	require.Len(t, h, 1)
	assert.Equal(t, StatusPending, h[0].Status)
	assert.Equal(t, t0, h[0].Timestamp)

	designs := o.Designs()
	require.Len(t, designs, 1)
	assert.Equal(t, ReviewSubmitted, designs[0].Review.Status)
	assert.Equal(t, t0, designs[0].SubmittedAt)
}

func TestNew_Validation(t *testing.T) {
	incomplete := customItem("i1", "d1", 1, 100)
	incomplete.Design.Angles = design.Angles{}

	noDesignID := customItem("i1", "", 1, 100)

	tests := []struct {
		name    string
		items   []Item
		wantErr error
	}{
		{name: "no items", items: nil, wantErr: ErrEmptyItems},
		{name: "zero quantity", items: []Item{standardItem("i1", 0, 100)}, wantErr: ErrInvalidQuantity},
		{name: "quantity above max", items: []Item{standardItem("i1", MaxQuantity+1, 100)}, wantErr: ErrInvalidQuantity},
		{name: "huge quantity", items: []Item{standardItem("i1", math.MaxInt64/11500+1, 11500)}, wantErr: ErrInvalidQuantity},
		{name: "amount overflows", items: []Item{standardItem("i1", MaxQuantity, math.MaxInt64/MaxQuantity+1)}, wantErr: ErrInvalidQuantity},
		{
			name:    "subtotal overflows",
			items:   []Item{standardItem("i1", 1, math.MaxInt64/2+1), standardItem("i2", 1, math.MaxInt64/2+1)},
			wantErr: ErrInvalidQuantity,
		},
		{name: "incomplete design", items: []Item{incomplete}, wantErr: ErrIncompleteDesign},
		{name: "missing design id", items: []Item{noDesignID}, wantErr: ErrInvalidOrder},
		{name: "duplicate item id", items: []Item{standardItem("i1", 1, 100), standardItem("i1", 1, 100)}, wantErr: ErrInvalidOrder},
		{name: "missing item id", items: []Item{standardItem("", 1, 100)}, wantErr: ErrInvalidOrder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(NewParams{ID: "o-1", Items: tt.items}, t0)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestNew_TotalOverflow(t *testing.T) {
	_, err := New(NewParams{ID: "o-1", Items: []Item{standardItem("i1", 1, math.MaxInt64-10)}, Shipping: 11}, t0)
	require.ErrorIs(t, err, ErrInvalidOrder)

	o, err := New(NewParams{ID: "o-1", Items: []Item{standardItem("i1", 1, math.MaxInt64-10)}, Shipping: 10}, t0)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), o.Total())
}

func TestNew_ForcesSubmittedReview(t *testing.T) {
	it := customItem("i1", "d1", 1, 100)
	it.Design.Review = Review{Status: ReviewApproved, ReviewerID: "sneaky"}

	o := newTestOrder(t, it)
	assert.Equal(t, []string{"d1"}, UnresolvedDesigns(o))
	assert.Empty(t, o.Designs()[0].Review.ReviewerID)
}

func TestTransition_Graph(t *testing.T) {
	all := []Status{StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCancelled}
	allowed := map[[2]Status]bool{
		{StatusPending, StatusProcessing}:   true,
		{StatusPending, StatusCancelled}:    true,
		{StatusProcessing, StatusShipped}:   true,
		{StatusProcessing, StatusCancelled}: true,
		{StatusShipped, StatusDelivered}:    true,
	}
	reach := map[Status][]Status{
		StatusPending:    nil,
		StatusProcessing: {StatusProcessing},
		StatusShipped:    {StatusProcessing, StatusShipped},
		StatusDelivered:  {StatusProcessing, StatusShipped, StatusDelivered},
		StatusCancelled:  {StatusCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				o := advance(t, newTestOrder(t, standardItem("i1", 1, 100)), reach[from]...)
				require.Equal(t, from, o.Status())

				next, err := Transition(o, to, "", admin, t0.Add(time.Hour))
				if allowed[[2]Status{from, to}] {
					require.NoError(t, err)
					assert.Equal(t, to, next.Status())
					return
				}
				require.ErrorIs(t, err, ErrInvalidTransition)
				var itErr *InvalidTransitionError
				require.ErrorAs(t, err, &itErr)
				assert.Equal(t, from, itErr.From)
				assert.Equal(t, to, itErr.To)
				assert.Equal(t, "o-1", itErr.OrderID)
			})
		}
	}
}

func TestTransition_UnknownStatus(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 1, 100))

	_, err := Transition(o, Status("LOST"), "", admin, t0.Add(time.Second))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestTransition_AppendsHistory(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 1, 100))

	next, err := Transition(o, StatusProcessing, "", admin, t0.Add(time.Minute))
	require.NoError(t, err)

	h := next.History()
	require.Len(t, h, 2)
	assert.Equal(t, StatusEntry{
		Status:    StatusProcessing,
		Note:      "Status changed from PENDING to PROCESSING by Ana",
		ActorID:   "admin-1",
		Timestamp: t0.Add(time.Minute),
	}, h[1])
	assert.Equal(t, o.Version()+1, next.Version())
	assert.Equal(t, t0.Add(time.Minute), next.UpdatedAt)

	// The input order is untouched.
	assert.Equal(t, StatusPending, o.Status())
	assert.Len(t, o.History(), 1)
}

func TestTransition_Notes(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 1, 100))

	next, err := Transition(o, StatusCancelled, "customer asked", admin, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "customer asked", next.History()[1].Note)

	next, err = Transition(o, StatusCancelled, "   ", auth.Actor{ID: "svc"}, t0.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "Status changed from PENDING to CANCELLED", next.History()[1].Note)
}

func TestTransition_RejectedLeavesInputIntact(t *testing.T) {
	o := newTestOrder(t, customItem("i1", "d1", 1, 100))
	before := o.clone()

	_, err := Transition(o, StatusDelivered, "", admin, t0.Add(time.Second))
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, before, o)
}

func TestTransition_StrictlyIncreasingTimestamps(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 1, 100))

	// The clock is frozen before the placement time.
	frozen := t0.Add(-time.Hour)
	var err error
	for _, st := range []Status{StatusProcessing, StatusShipped, StatusDelivered} {
		o, err = Transition(o, st, "", admin, frozen)
		require.NoError(t, err)
	}

	h := o.History()
	require.Len(t, h, 4)
	for i := 1; i < len(h); i++ {
		assert.True(t, h[i].Timestamp.After(h[i-1].Timestamp), "entry %d", i)
	}
}

func TestTransition_BlockedByUnresolvedDesigns(t *testing.T) {
	o := newTestOrder(t, customItem("i1", "d1", 1, 100), customItem("i2", "d2", 1, 100), standardItem("i3", 1, 100))
	o = advance(t, o, StatusProcessing)

	_, err := Transition(o, StatusShipped, "", admin, t0.Add(time.Hour))
	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, []string{"d1", "d2"}, itErr.Blocking)

	o, err = Approve(o, "d1", admin, t0.Add(time.Hour))
	require.NoError(t, err)
	o, err = Reject(o, "d2", admin, "blurry image", t0.Add(time.Hour))
	require.NoError(t, err)

	// A rejected design still blocks shipping.
	_, err = Transition(o, StatusShipped, "", admin, t0.Add(2*time.Hour))
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, []string{"d2"}, itErr.Blocking)

	// Removing the rejected item clears the way.
	o, err = RemoveItem(o, "i2", t0.Add(2*time.Hour))
	require.NoError(t, err)
	o, err = Transition(o, StatusShipped, "", admin, t0.Add(3*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, o.Status())

	// Cancellation is never blocked by designs.
	c := newTestOrder(t, customItem("i1", "d1", 1, 100))
	_, err = Transition(c, StatusCancelled, "", admin, t0.Add(time.Second))
	require.NoError(t, err)
}

func TestApprove(t *testing.T) {
	o := newTestOrder(t, customItem("i1", "d1", 1, 100))

	next, err := Approve(o, "d1", admin, t0.Add(time.Minute))
	require.NoError(t, err)

	d := next.Designs()[0]
	assert.Equal(t, Review{
		Status:       ReviewApproved,
		ReviewerID:   "admin-1",
		ReviewerName: "Ana",
		ReviewedAt:   t0.Add(time.Minute),
	}, d.Review)
	assert.Equal(t, o.Version()+1, next.Version())
	assert.Len(t, next.History(), 1, "reviews do not change status history")
	assert.Equal(t, ReviewSubmitted, o.Designs()[0].Review.Status)
	assert.Empty(t, UnresolvedDesigns(next))
}

func TestReview_Errors(t *testing.T) {
	o := newTestOrder(t, customItem("i1", "d1", 1, 100), standardItem("i2", 1, 100))
	approved, err := Approve(o, "d1", admin, t0.Add(time.Minute))
	require.NoError(t, err)

	t.Run("design not found", func(t *testing.T) {
		_, err := Approve(o, "nope", admin, t0)
		var dnf *DesignNotFoundError
		require.ErrorAs(t, err, &dnf)
		assert.Equal(t, "nope", dnf.DesignID)
		assert.ErrorIs(t, err, ErrDesignNotFound)
	})

	t.Run("double approve fails loudly", func(t *testing.T) {
		other := auth.Actor{ID: "admin-2", Name: "Bo"}
		_, err := Approve(approved, "d1", other, t0.Add(time.Hour))
		var ar *AlreadyReviewedError
		require.ErrorAs(t, err, &ar)
		assert.Equal(t, ReviewApproved, ar.Status)
		assert.Equal(t, "admin-1", approved.Designs()[0].Review.ReviewerID)
	})

	t.Run("reject after approve", func(t *testing.T) {
		_, err := Reject(approved, "d1", admin, "changed my mind", t0.Add(time.Hour))
		require.ErrorIs(t, err, ErrAlreadyReviewed)
	})

	t.Run("double reject keeps first reason", func(t *testing.T) {
		rejected, err := Reject(o, "d1", admin, "first", t0.Add(time.Minute))
		require.NoError(t, err)

		_, err = Reject(rejected, "d1", admin, "second", t0.Add(time.Hour))
		var ar *AlreadyReviewedError
		require.ErrorAs(t, err, &ar)
		assert.Equal(t, ReviewRejected, ar.Status)
		assert.Equal(t, "first", rejected.Designs()[0].Review.Reason)
	})

	t.Run("reject requires reason", func(t *testing.T) {
		_, err := Reject(o, "d1", admin, "  \t", t0)
		require.ErrorIs(t, err, ErrRejectReasonRequired)
	})

	t.Run("terminal order", func(t *testing.T) {
		cancelled := advance(t, o, StatusCancelled)
		_, err := Approve(cancelled, "d1", admin, t0.Add(time.Hour))
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestReject_RecordsReason(t *testing.T) {
	o := newTestOrder(t, customItem("i1", "d1", 1, 100))

	next, err := Reject(o, "d1", admin, "  low resolution  ", t0.Add(time.Minute))
	require.NoError(t, err)

	r := next.Designs()[0].Review
	assert.Equal(t, ReviewRejected, r.Status)
	assert.Equal(t, "low resolution", r.Reason)
	assert.Equal(t, "Ana", r.ReviewerName)
}

func TestRemoveItem(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 2, 1000), customItem("i2", "d1", 1, 11500))

	next, err := RemoveItem(o, "i2", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, next.Items(), 1)
	assert.Equal(t, int64(2000), next.Subtotal())
	assert.Equal(t, int64(2500), next.Total())
	assert.Equal(t, o.Version()+1, next.Version())
	assert.Len(t, next.History(), 1)
	assert.Len(t, o.Items(), 2)

	_, err = RemoveItem(o, "missing", t0)
	require.ErrorIs(t, err, ErrItemNotFound)

	_, err = RemoveItem(next, "i1", t0)
	require.ErrorIs(t, err, ErrLastItem)

	shipped := advance(t, newTestOrder(t, standardItem("i1", 1, 1), standardItem("i2", 1, 1)), StatusProcessing, StatusShipped)
	_, err = RemoveItem(shipped, "i1", t0.Add(time.Hour))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestItems_ReturnsCopies(t *testing.T) {
	o := newTestOrder(t, customItem("i1", "d1", 1, 100))

	items := o.Items()
	ci, ok := items[0].(CustomItem)
	require.True(t, ok)
	ci.Design.Angles.Front.Text.Content = "mutated"

	assert.Equal(t, "Hola", o.Designs()[0].Angles.Front.Text.Content)

	h := o.History()
	h[0].Note = "mutated"
	assert.Equal(t, "Order placed", o.History()[0].Note)
}

func TestTotalsInvariant(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 3, 700), standardItem("i2", 1, 50), customItem("i3", "d1", 2, 11500))
	check := func(o *Order) {
		var sum int64
		for _, it := range o.Items() {
			sum += it.Base().Amount()
		}
		assert.Equal(t, sum, o.Subtotal())
		assert.Equal(t, o.Subtotal()+o.Shipping(), o.Total())
	}
	check(o)

	o, err := RemoveItem(o, "i2", t0.Add(time.Second))
	require.NoError(t, err)
	check(o)

	o, err = Approve(o, "d1", admin, t0.Add(time.Second))
	require.NoError(t, err)
	check(o)

	o = advance(t, o, StatusProcessing, StatusShipped)
	check(o)
}

func TestETag(t *testing.T) {
	s := Snapshot{Status: StatusProcessing, HistoryLen: 2}
	assert.Equal(t, `"PROCESSING.2"`, s.ETag())

	got, err := ParseETag(`"PROCESSING.2"`)
	require.NoError(t, err)
	assert.Equal(t, s, got)

	got, err = ParseETag(`W/"PENDING.1"`)
	require.NoError(t, err)
	assert.Equal(t, Snapshot{Status: StatusPending, HistoryLen: 1}, got)

	for _, bad := range []string{``, `PENDING.1`, `"PENDING"`, `"LOST.1"`, `"PENDING.x"`, `"PENDING.-1"`} {
		_, err := ParseETag(bad)
		assert.Error(t, err, bad)
	}
}

func TestCheckExpected(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 1, 100))
	require.NoError(t, CheckExpected(o, o.Snapshot()))

	err := CheckExpected(o, Snapshot{Status: StatusProcessing, HistoryLen: 2})
	var stale *StaleOrderError
	require.ErrorAs(t, err, &stale)
	assert.Equal(t, o.Snapshot(), stale.Actual)
	assert.True(t, errors.Is(err, ErrStaleOrder))
}

func TestRestore(t *testing.T) {
	o := newTestOrder(t, standardItem("i1", 2, 1000))
	o = advance(t, o, StatusProcessing)

	back, err := Restore(RestoreParams{
		ID:        o.ID,
		UserEmail: o.UserEmail,
		Items:     o.Items(),
		Shipping:  o.Shipping(),
		Status:    o.Status(),
		History:   o.History(),
		Version:   o.Version(),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	})
	require.NoError(t, err)
	assert.Equal(t, o, back)

	_, err = Restore(RestoreParams{ID: "x", Status: "LOST"})
	require.Error(t, err)
}

func TestShippingPolicy(t *testing.T) {
	p := ShippingPolicy{Flat: 500, FreeOver: 5000}
	assert.Equal(t, int64(500), p.Cost(4999))
	assert.Equal(t, int64(0), p.Cost(5000))
	assert.Equal(t, int64(500), ShippingPolicy{Flat: 500}.Cost(1_000_000))
}
