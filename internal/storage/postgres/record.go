package postgres

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/threadcraft/internal/domain/design"
	"github.com/xenking/threadcraft/internal/domain/order"
)

const (
	itemStandard = "standard"
	itemCustom   = "custom"
)

// OrderRecord is the stored form of an order. Items and history are kept as
// JSONB; designs use the canonical AnguloDTO encoding.
type OrderRecord struct {
	ID             string              `json:"id"`
	UserEmail      string              `json:"user_email"`
	ShippingInfo   ShippingInfoRecord  `json:"shipping_info"`
	Items          []ItemRecord        `json:"items"`
	Subtotal       int64               `json:"subtotal"`
	Shipping       int64               `json:"shipping"`
	Total          int64               `json:"total"`
	Status         string              `json:"status"`
	History        []StatusEntryRecord `json:"status_history"`
	DisplayRate    decimal.Decimal     `json:"display_rate"`
	IdempotencyKey string              `json:"idempotency_key,omitempty"`
	Version        int64               `json:"version"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ShippingInfoRecord is the stored form of order.ShippingInfo.
type ShippingInfoRecord struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// ItemRecord is one stored line item.
type ItemRecord struct {
	Kind      string        `json:"kind"`
	ID        string        `json:"id"`
	ProductID string        `json:"product_id"`
	ColorID   string        `json:"color_id"`
	SizeID    string        `json:"size_id"`
	Quantity  int           `json:"quantity"`
	BasePrice int64         `json:"base_price"`
	UnitPrice int64         `json:"unit_price"`
	Design    *DesignRecord `json:"design,omitempty"`
}

// DesignRecord is the stored form of order.CustomDesign.
type DesignRecord struct {
	ID           string            `json:"id"`
	Angles       []design.AngleDTO `json:"angles"`
	SubmittedAt  time.Time         `json:"submitted_at"`
	ReviewStatus string            `json:"review_status"`
	ReviewerID   string            `json:"reviewer_id,omitempty"`
	ReviewerName string            `json:"reviewer_name,omitempty"`
	ReviewedAt   *time.Time        `json:"reviewed_at,omitempty"`
	Reason       string            `json:"reason,omitempty"`
}

// StatusEntryRecord is one stored status history entry.
type StatusEntryRecord struct {
	Status    string    `json:"status"`
	Note      string    `json:"note"`
	ActorID   string    `json:"actor_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewOrderRecord converts o to its stored form.
func NewOrderRecord(o *order.Order) OrderRecord {
	si := o.ShippingInfo
	rec := OrderRecord{
		ID:        o.ID,
		UserEmail: o.UserEmail,
		ShippingInfo: ShippingInfoRecord{
			FullName:   si.FullName,
			Address:    si.Address,
			City:       si.City,
			State:      si.State,
			PostalCode: si.PostalCode,
			Country:    si.Country,
			Phone:      si.Phone,
		},
		Subtotal:       o.Subtotal(),
		Shipping:       o.Shipping(),
		Total:          o.Total(),
		Status:         string(o.Status()),
		DisplayRate:    o.DisplayRate,
		IdempotencyKey: o.IdempotencyKey,
		Version:        o.Version(),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}

	for _, it := range o.Items() {
		rec.Items = append(rec.Items, newItemRecord(it))
	}
	for _, e := range o.History() {
		rec.History = append(rec.History, StatusEntryRecord{
			Status:    string(e.Status),
			Note:      e.Note,
			ActorID:   e.ActorID,
			Timestamp: e.Timestamp,
		})
	}
	return rec
}

func newItemRecord(it order.Item) ItemRecord {
	base := it.Base()
	rec := ItemRecord{
		ID:        base.ID,
		ProductID: base.ProductID,
		ColorID:   base.ColorID,
		SizeID:    base.SizeID,
		Quantity:  base.Quantity,
		BasePrice: base.BasePrice,
		UnitPrice: base.UnitPrice,
	}
	switch it := it.(type) {
	case order.StandardItem:
		rec.Kind = itemStandard
	case order.CustomItem:
		rec.Kind = itemCustom
		d := it.Design
		rec.Design = &DesignRecord{
			ID:           d.ID,
			Angles:       design.ToDTOs(d.Angles),
			SubmittedAt:  d.SubmittedAt,
			ReviewStatus: string(d.Review.Status),
			ReviewerID:   d.Review.ReviewerID,
			ReviewerName: d.Review.ReviewerName,
			Reason:       d.Review.Reason,
		}
		if !d.Review.ReviewedAt.IsZero() {
			at := d.Review.ReviewedAt
			rec.Design.ReviewedAt = &at
		}
	default:
		panic(fmt.Sprintf("unknown item kind %T", it))
	}
	return rec
}

// Order converts the record back into the aggregate.
func (r OrderRecord) Order() (*order.Order, error) {
	items := make([]order.Item, 0, len(r.Items))
	for _, ir := range r.Items {
		it, err := ir.item()
		if err != nil {
			return nil, errors.Wrapf(err, "order %s item %s", r.ID, ir.ID)
		}
		items = append(items, it)
	}

	history := make([]order.StatusEntry, len(r.History))
	for i, e := range r.History {
		history[i] = order.StatusEntry{
			Status:    order.Status(e.Status),
			Note:      e.Note,
			ActorID:   e.ActorID,
			Timestamp: e.Timestamp,
		}
	}

	si := r.ShippingInfo
	return order.Restore(order.RestoreParams{
		ID:        r.ID,
		UserEmail: r.UserEmail,
		ShippingInfo: order.ShippingInfo{
			FullName:   si.FullName,
			Address:    si.Address,
			City:       si.City,
			State:      si.State,
			PostalCode: si.PostalCode,
			Country:    si.Country,
			Phone:      si.Phone,
		},
		DisplayRate:    r.DisplayRate,
		IdempotencyKey: r.IdempotencyKey,
		Items:          items,
		Shipping:       r.Shipping,
		Status:         order.Status(r.Status),
		History:        history,
		Version:        r.Version,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	})
}

func (r ItemRecord) item() (order.Item, error) {
	line := order.Line{
		ID:        r.ID,
		ProductID: r.ProductID,
		ColorID:   r.ColorID,
		SizeID:    r.SizeID,
		Quantity:  r.Quantity,
		BasePrice: r.BasePrice,
		UnitPrice: r.UnitPrice,
	}
	switch r.Kind {
	case itemStandard:
		return order.StandardItem{Line: line}, nil
	case itemCustom:
		if r.Design == nil {
			return nil, errors.New("custom item without design")
		}
		angles, err := design.FromDTOs(r.Design.Angles)
		if err != nil {
			return nil, errors.Wrap(err, "decode design")
		}
		review := order.Review{
			Status:       order.ReviewStatus(r.Design.ReviewStatus),
			ReviewerID:   r.Design.ReviewerID,
			ReviewerName: r.Design.ReviewerName,
			Reason:       r.Design.Reason,
		}
		if r.Design.ReviewedAt != nil {
			review.ReviewedAt = *r.Design.ReviewedAt
		}
		return order.CustomItem{
			Line: line,
			Design: order.CustomDesign{
				ID:          r.Design.ID,
				Angles:      angles,
				SubmittedAt: r.Design.SubmittedAt,
				Review:      review,
			},
		}, nil
	default:
		return nil, errors.Errorf("unknown item kind %q", r.Kind)
	}
}
