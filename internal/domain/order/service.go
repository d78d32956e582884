package order

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/catalog"
	"github.com/xenking/threadcraft/internal/domain/design"
)

const instrumentationName = "github.com/xenking/threadcraft/internal/domain/order"

// ItemRequest is one requested line item. A non-nil Design makes it custom.
type ItemRequest struct {
	ProductID string
	ColorID   string
	SizeID    string
	Quantity  int
	Design    *design.Submission
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserEmail      string
	ShippingInfo   ShippingInfo
	IdempotencyKey string
	Items          []ItemRequest
}

// PlaceOrderResult holds the output of a placed (or replayed) order.
type PlaceOrderResult struct {
	Order *Order
	// Replayed is set when the idempotency key matched an existing order.
	Replayed bool
}

// Config holds non-dependency settings of the Service.
type Config struct {
	Shipping    ShippingPolicy
	DisplayRate decimal.Decimal
	// ExpectedKeys sizes the idempotency prefilter.
	ExpectedKeys   uint
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service orchestrates order placement and admin mutations: load, stale
// check, pure mutation, compare-and-swap save, publish.
type Service struct {
	orders   Repository
	products catalog.Repository
	refs     catalog.ReferenceData
	events   Publisher

	shipping    ShippingPolicy
	displayRate decimal.Decimal

	keysMu sync.Mutex
	keys   *bloom.BloomFilter

	tracer      trace.Tracer
	placed      metric.Int64Counter
	transitions metric.Int64Counter
	reviews     metric.Int64Counter

	now   func() time.Time
	newID func() string
}

// NewService creates an order Service with the required domain dependencies.
// A nil events publisher disables publishing.
func NewService(
	orders Repository,
	products catalog.Repository,
	refs catalog.ReferenceData,
	events Publisher,
	cfg Config,
) (*Service, error) {
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = otel.GetTracerProvider()
	}
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = otel.GetMeterProvider()
	}
	if cfg.ExpectedKeys == 0 {
		cfg.ExpectedKeys = 100_000
	}
	if cfg.DisplayRate.IsZero() {
		cfg.DisplayRate = decimal.NewFromInt(1)
	}

	meter := cfg.MeterProvider.Meter(instrumentationName)
	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create placed counter")
	}
	transitions, err := meter.Int64Counter("orders.transitions",
		metric.WithDescription("Committed order status transitions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create transitions counter")
	}
	reviews, err := meter.Int64Counter("orders.design_reviews",
		metric.WithDescription("Committed custom design reviews"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create reviews counter")
	}

	return &Service{
		orders:      orders,
		products:    products,
		refs:        refs,
		events:      events,
		shipping:    cfg.Shipping,
		displayRate: cfg.DisplayRate,
		keys:        bloom.NewWithEstimates(cfg.ExpectedKeys, 0.001),
		tracer:      cfg.TracerProvider.Tracer(instrumentationName),
		placed:      placed,
		transitions: transitions,
		reviews:     reviews,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// RememberKeys seeds the idempotency prefilter, typically with the keys of
// already stored orders at startup.
func (s *Service) RememberKeys(keys ...string) {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	for _, k := range keys {
		if k != "" {
			s.keys.AddString(k)
		}
	}
}

func (s *Service) mayHaveKey(key string) bool {
	s.keysMu.Lock()
	defer s.keysMu.Unlock()
	return s.keys.TestString(key)
}

// Get returns a single order.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.Get(ctx, id)
}

// List returns orders matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Order, error) {
	return s.orders.List(ctx, filter)
}

// PlaceOrder validates and prices the requested items, persists a new
// PENDING order and publishes EventPlaced. A repeated idempotency key
// returns the original order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.items", len(req.Items))),
	)
	defer func() { endSpan(span, rerr) }()

	if err := validatePlacement(req); err != nil {
		return nil, err
	}

	// Replay a previous placement with the same key.
	if key := req.IdempotencyKey; key != "" && s.mayHaveKey(key) {
		existing, err := s.orders.FindByIdempotencyKey(ctx, key)
		switch {
		case err == nil:
			return &PlaceOrderResult{Order: existing, Replayed: true}, nil
		case !errors.Is(err, ErrNotFound):
			return nil, errors.Wrap(err, "find by idempotency key")
		}
	}

	items, err := s.priceItems(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	subtotal, err := SumItems(items)
	if err != nil {
		return nil, err
	}

	o, err := New(NewParams{
		ID:             s.newID(),
		UserEmail:      strings.TrimSpace(req.UserEmail),
		ShippingInfo:   req.ShippingInfo,
		Items:          items,
		Shipping:       s.shipping.Cost(subtotal),
		DisplayRate:    s.displayRate,
		IdempotencyKey: req.IdempotencyKey,
	}, s.now().UTC())
	if err != nil {
		return nil, err
	}

	// Persist order.
	if err := s.orders.Create(ctx, o); err != nil {
		if errors.Is(err, ErrDuplicateIdempotencyKey) {
			// Lost a race with a concurrent placement of the same key.
			existing, ferr := s.orders.FindByIdempotencyKey(ctx, req.IdempotencyKey)
			if ferr != nil {
				return nil, errors.Wrap(ferr, "find by idempotency key")
			}
			s.RememberKeys(req.IdempotencyKey)
			return &PlaceOrderResult{Order: existing, Replayed: true}, nil
		}
		return nil, errors.Wrap(err, "create order")
	}
	s.RememberKeys(req.IdempotencyKey)

	span.SetAttributes(attribute.String("order.id", o.ID))
	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.Bool("order.custom", len(o.Designs()) > 0)))
	s.publish(ctx, Event{
		Type:       EventPlaced,
		OrderID:    o.ID,
		Status:     o.Status(),
		Version:    o.Version(),
		Total:      o.Total(),
		OccurredAt: o.CreatedAt,
	})

	return &PlaceOrderResult{Order: o}, nil
}

func validatePlacement(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyItems
	}
	if email := strings.TrimSpace(req.UserEmail); email == "" || !strings.Contains(email, "@") {
		return &ValidationError{Field: "userEmail", Reason: "valid email required"}
	}
	si := req.ShippingInfo
	for _, f := range []struct{ name, value string }{
		{"shippingInfo.fullName", si.FullName},
		{"shippingInfo.address", si.Address},
		{"shippingInfo.city", si.City},
		{"shippingInfo.country", si.Country},
	} {
		if strings.TrimSpace(f.value) == "" {
			return &ValidationError{Field: f.name, Reason: "required"}
		}
	}
	for _, it := range req.Items {
		if it.Quantity <= 0 || it.Quantity > MaxQuantity {
			return &InvalidQuantityError{ProductID: it.ProductID, Quantity: it.Quantity}
		}
		if it.Design != nil && !it.Design.Angles.IsComplete() {
			return &IncompleteDesignError{ProductID: it.ProductID}
		}
	}
	return nil
}

// priceItems resolves products and options and builds priced line items.
func (s *Service) priceItems(ctx context.Context, reqs []ItemRequest) ([]Item, error) {
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ProductID
	}

	// Batch fetch all products in a single query.
	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	opts, err := catalog.LoadOptions(ctx, s.refs)
	if err != nil {
		return nil, errors.Wrap(err, "load options")
	}
	resolver := opts.Resolver()

	items := make([]Item, 0, len(reqs))
	submitted := s.now().UTC()
	for _, r := range reqs {
		p, ok := byID[r.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: r.ProductID}
		}
		q, err := resolver.Quote(p.Price, r.ColorID, r.SizeID)
		if err != nil {
			return nil, err
		}

		line := Line{
			ID:        s.newID(),
			ProductID: p.ID,
			ColorID:   r.ColorID,
			SizeID:    r.SizeID,
			Quantity:  r.Quantity,
			BasePrice: q.BasePrice,
			UnitPrice: q.UnitPrice,
		}
		if r.Design == nil {
			items = append(items, StandardItem{Line: line})
			continue
		}

		designID := r.Design.DesignID
		if designID == "" {
			designID = s.newID()
		}
		items = append(items, CustomItem{
			Line: line,
			Design: CustomDesign{
				ID:          designID,
				Angles:      r.Design.Angles.Clone(),
				SubmittedAt: submitted,
			},
		})
	}
	return items, nil
}

// Transition moves order id to status to on behalf of actor.
func (s *Service) Transition(ctx context.Context, id string, expected Snapshot, actor auth.Actor, to Status, note string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Transition", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("order.to", string(to)),
	))
	defer func() { endSpan(span, rerr) }()

	var from Status
	next, err := s.mutate(ctx, id, expected, actor, func(o *Order, now time.Time) (*Order, error) {
		from = o.Status()
		return Transition(o, to, note, actor, now)
	})
	if err != nil {
		return nil, err
	}

	s.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
	))
	s.publish(ctx, Event{
		Type:       EventStatusChanged,
		OrderID:    next.ID,
		Status:     next.Status(),
		Version:    next.Version(),
		ActorID:    actor.ID,
		Total:      next.Total(),
		OccurredAt: next.UpdatedAt,
	})
	return next, nil
}

// ApproveDesign approves custom design designID of order id.
func (s *Service) ApproveDesign(ctx context.Context, id string, expected Snapshot, actor auth.Actor, designID string) (*Order, error) {
	return s.reviewDesign(ctx, "order.ApproveDesign", id, expected, actor, designID, ReviewApproved,
		func(o *Order, now time.Time) (*Order, error) {
			return Approve(o, designID, actor, now)
		})
}

// RejectDesign rejects custom design designID of order id with reason.
func (s *Service) RejectDesign(ctx context.Context, id string, expected Snapshot, actor auth.Actor, designID, reason string) (*Order, error) {
	return s.reviewDesign(ctx, "order.RejectDesign", id, expected, actor, designID, ReviewRejected,
		func(o *Order, now time.Time) (*Order, error) {
			return Reject(o, designID, actor, reason, now)
		})
}

func (s *Service) reviewDesign(
	ctx context.Context,
	spanName, id string,
	expected Snapshot,
	actor auth.Actor,
	designID string,
	outcome ReviewStatus,
	fn func(*Order, time.Time) (*Order, error),
) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("design.id", designID),
	))
	defer func() { endSpan(span, rerr) }()

	next, err := s.mutate(ctx, id, expected, actor, fn)
	if err != nil {
		return nil, err
	}

	s.reviews.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(outcome))))
	s.publish(ctx, Event{
		Type:       EventDesignReviewed,
		OrderID:    next.ID,
		Status:     next.Status(),
		Version:    next.Version(),
		ActorID:    actor.ID,
		DesignID:   designID,
		Review:     outcome,
		Total:      next.Total(),
		OccurredAt: next.UpdatedAt,
	})
	return next, nil
}

// RemoveItem drops line item itemID from order id.
func (s *Service) RemoveItem(ctx context.Context, id string, expected Snapshot, actor auth.Actor, itemID string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.RemoveItem", trace.WithAttributes(
		attribute.String("order.id", id),
		attribute.String("item.id", itemID),
	))
	defer func() { endSpan(span, rerr) }()

	next, err := s.mutate(ctx, id, expected, actor, func(o *Order, now time.Time) (*Order, error) {
		return RemoveItem(o, itemID, now)
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, Event{
		Type:       EventItemRemoved,
		OrderID:    next.ID,
		Status:     next.Status(),
		Version:    next.Version(),
		ActorID:    actor.ID,
		ItemID:     itemID,
		Total:      next.Total(),
		OccurredAt: next.UpdatedAt,
	})
	return next, nil
}

// mutate loads order id, checks it against expected, applies fn and saves
// the result with a compare-and-swap on the loaded version.
func (s *Service) mutate(
	ctx context.Context,
	id string,
	expected Snapshot,
	actor auth.Actor,
	fn func(*Order, time.Time) (*Order, error),
) (*Order, error) {
	if err := actor.Validate(); err != nil {
		return nil, err
	}

	current, err := s.orders.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, errors.Wrapf(err, "get order %s", id)
	}
	if err := CheckExpected(current, expected); err != nil {
		return nil, err
	}

	next, err := fn(current, s.now().UTC())
	if err != nil {
		return nil, err
	}

	if err := s.orders.Save(ctx, next, current.Version()); err != nil {
		if errors.Is(err, ErrVersionConflict) {
			return nil, &StaleOrderError{OrderID: id, Expected: expected, Actual: Snapshot{}}
		}
		return nil, errors.Wrapf(err, "save order %s", id)
	}
	return next, nil
}

// publish delivers e. Failures are logged: the mutation is already committed.
func (s *Service) publish(ctx context.Context, e Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, e); err != nil {
		zctx.From(ctx).Warn("Publish order event",
			zap.String("type", string(e.Type)),
			zap.String("order_id", e.OrderID),
			zap.Error(err),
		)
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
