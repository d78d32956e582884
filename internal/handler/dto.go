package handler

import (
	"strconv"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/threadcraft/internal/domain/catalog"
	"github.com/xenking/threadcraft/internal/domain/design"
	"github.com/xenking/threadcraft/internal/domain/order"
	"github.com/xenking/threadcraft/internal/domain/pricing"
)

// amount is a display amount rendered as a fixed two-decimal string.
type amount struct{ decimal.Decimal }

func (a amount) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(a.StringFixed(2))), nil
}

func display(minor int64, rate decimal.Decimal) amount {
	return amount{pricing.Display(minor, rate)}
}

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type productResponse struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Price        int64             `json:"price"`
	DisplayPrice amount            `json:"displayPrice"`
	Category     string            `json:"category"`
	Colors       []string          `json:"colors"`
	Sizes        []string          `json:"sizes"`
	InStock      bool              `json:"inStock"`
	Angles       []design.AngleDTO `json:"angles"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

type productRequest struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Price       int64              `json:"price"`
	Category    string             `json:"category"`
	Colors      []string           `json:"colors"`
	Sizes       []string           `json:"sizes"`
	InStock     bool               `json:"inStock"`
	Angles      *[]design.AngleDTO `json:"angles"`
}

func (r productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Category:    r.Category,
		Colors:      r.Colors,
		Sizes:       r.Sizes,
		InStock:     r.InStock,
	}
}

// angles decodes the optional angle list. Nil means "leave unchanged".
func (r productRequest) angles() (*design.Angles, error) {
	if r.Angles == nil {
		return nil, nil
	}
	a, err := design.FromDTOs(*r.Angles)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

type colorResponse struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	Hex           string `json:"hex"`
	PriceModifier int64  `json:"priceModifier"`
}

type sizeResponse struct {
	ID            string `json:"id"`
	Label         string `json:"label"`
	PriceModifier int64  `json:"priceModifier"`
}

type fontResponse struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Family string `json:"family"`
}

type optionsResponse struct {
	Colors []colorResponse `json:"colors"`
	Sizes  []sizeResponse  `json:"sizes"`
	Fonts  []fontResponse  `json:"fonts"`
}

type quoteRequest struct {
	ProductID string `json:"productId"`
	ColorID   string `json:"colorId"`
	SizeID    string `json:"sizeId"`
}

type quoteResponse struct {
	ProductID        string `json:"productId"`
	ColorID          string `json:"colorId"`
	SizeID           string `json:"sizeId"`
	BasePrice        int64  `json:"basePrice"`
	ColorModifier    int64  `json:"colorModifier"`
	SizeModifier     int64  `json:"sizeModifier"`
	UnitPrice        int64  `json:"unitPrice"`
	DisplayUnitPrice amount `json:"displayUnitPrice"`
}

type shippingInfoDTO struct {
	FullName   string `json:"fullName"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

func (s shippingInfoDTO) domain() order.ShippingInfo {
	return order.ShippingInfo(s)
}

type orderItemRequest struct {
	ProductID string                `json:"productId"`
	ColorID   string                `json:"colorId"`
	SizeID    string                `json:"sizeId"`
	Quantity  int                   `json:"quantity"`
	Design    *design.SubmissionDTO `json:"design,omitempty"`
}

type placeOrderRequest struct {
	UserEmail    string             `json:"userEmail"`
	ShippingInfo shippingInfoDTO    `json:"shippingInfo"`
	Items        []orderItemRequest `json:"items"`
}

// domain converts the request. The submitted design decides the angles;
// product and pricing fields of the bundle must agree with the line.
func (r placeOrderRequest) domain(idempotencyKey string) (order.PlaceOrderRequest, error) {
	out := order.PlaceOrderRequest{
		UserEmail:      r.UserEmail,
		ShippingInfo:   r.ShippingInfo.domain(),
		IdempotencyKey: idempotencyKey,
		Items:          make([]order.ItemRequest, 0, len(r.Items)),
	}
	for _, it := range r.Items {
		req := order.ItemRequest{
			ProductID: it.ProductID,
			ColorID:   it.ColorID,
			SizeID:    it.SizeID,
			Quantity:  it.Quantity,
		}
		if it.Design != nil {
			sub, err := design.FromSubmission(*it.Design)
			if err != nil {
				if errors.Is(err, design.ErrUnknownView) {
					return order.PlaceOrderRequest{}, err
				}
				return order.PlaceOrderRequest{}, &order.ValidationError{Field: "items.design", Reason: err.Error()}
			}
			if sub.ProductID != it.ProductID {
				return order.PlaceOrderRequest{}, &order.ValidationError{Field: "items.design.productoId", Reason: "does not match productId"}
			}
			req.Design = &sub
		}
		out.Items = append(out.Items, req)
	}
	return out, nil
}

type reviewResponse struct {
	Status       order.ReviewStatus `json:"status"`
	ReviewerID   string             `json:"reviewerId,omitempty"`
	ReviewerName string             `json:"reviewerName,omitempty"`
	ReviewedAt   *time.Time         `json:"reviewedAt,omitempty"`
	Reason       string             `json:"reason,omitempty"`
}

type designResponse struct {
	ID          string               `json:"id"`
	SubmittedAt time.Time            `json:"submittedAt"`
	Review      reviewResponse       `json:"review"`
	Diseno      design.SubmissionDTO `json:"diseno"`
}

type orderItemResponse struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	ProductID string          `json:"productId"`
	ColorID   string          `json:"colorId"`
	SizeID    string          `json:"sizeId"`
	Quantity  int             `json:"quantity"`
	UnitPrice int64           `json:"unitPrice"`
	Amount    int64           `json:"amount"`
	Design    *designResponse `json:"design,omitempty"`
}

type statusEntryResponse struct {
	Status    order.Status `json:"status"`
	Note      string       `json:"note"`
	ActorID   string       `json:"actorId,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

type displayTotals struct {
	Subtotal amount `json:"subtotal"`
	Shipping amount `json:"shipping"`
	Total    amount `json:"total"`
}

type orderResponse struct {
	ID            string                `json:"id"`
	UserEmail     string                `json:"userEmail"`
	ShippingInfo  shippingInfoDTO       `json:"shippingInfo"`
	Items         []orderItemResponse   `json:"items"`
	Subtotal      int64                 `json:"subtotal"`
	Shipping      int64                 `json:"shipping"`
	Total         int64                 `json:"total"`
	Display       displayTotals         `json:"display"`
	Status        order.Status          `json:"status"`
	PendingDesign []string              `json:"pendingDesigns,omitempty"`
	StatusHistory []statusEntryResponse `json:"statusHistory"`
	Version       int64                 `json:"version"`
	CreatedAt     time.Time             `json:"createdAt"`
	UpdatedAt     time.Time             `json:"updatedAt"`
}

type transitionRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func newProductResponse(p catalog.Product, rate decimal.Decimal) productResponse {
	return productResponse{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		DisplayPrice: display(p.Price, rate),
		Category:     p.Category,
		Colors:       nonNil(p.Colors),
		Sizes:        nonNil(p.Sizes),
		InStock:      p.InStock,
		Angles:       design.ToDTOs(p.Angles),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}

func newOptionsResponse(o *catalog.Options) optionsResponse {
	out := optionsResponse{
		Colors: make([]colorResponse, len(o.Colors)),
		Sizes:  make([]sizeResponse, len(o.Sizes)),
		Fonts:  make([]fontResponse, len(o.Fonts)),
	}
	for i, c := range o.Colors {
		out.Colors[i] = colorResponse{ID: c.ID, Label: c.Label, Hex: c.Hex, PriceModifier: c.PriceModifier}
	}
	for i, s := range o.Sizes {
		out.Sizes[i] = sizeResponse{ID: s.ID, Label: s.Label, PriceModifier: s.PriceModifier}
	}
	for i, f := range o.Fonts {
		out.Fonts[i] = fontResponse{ID: f.ID, Label: f.Label, Family: f.Family}
	}
	return out
}

// newOrderResponse renders o. Display amounts use the rate frozen on the
// order at placement.
func newOrderResponse(o *order.Order) orderResponse {
	rate := o.DisplayRate
	if rate.IsZero() {
		rate = decimal.NewFromInt(1)
	}
	resp := orderResponse{
		ID:           o.ID,
		UserEmail:    o.UserEmail,
		ShippingInfo: shippingInfoDTO(o.ShippingInfo),
		Subtotal:     o.Subtotal(),
		Shipping:     o.Shipping(),
		Total:        o.Total(),
		Display: displayTotals{
			Subtotal: display(o.Subtotal(), rate),
			Shipping: display(o.Shipping(), rate),
			Total:    display(o.Total(), rate),
		},
		Status:        o.Status(),
		PendingDesign: order.UnresolvedDesigns(o),
		Version:       o.Version(),
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}

	for _, it := range o.Items() {
		base := it.Base()
		item := orderItemResponse{
			ID:        base.ID,
			ProductID: base.ProductID,
			ColorID:   base.ColorID,
			SizeID:    base.SizeID,
			Quantity:  base.Quantity,
			UnitPrice: base.UnitPrice,
			Amount:    base.Amount(),
		}
		switch it := it.(type) {
		case order.StandardItem:
			item.Kind = "standard"
		case order.CustomItem:
			item.Kind = "custom"
			item.Design = newDesignResponse(base, it.Design)
		default:
			panic("unknown order item kind")
		}
		resp.Items = append(resp.Items, item)
	}

	for _, e := range o.History() {
		resp.StatusHistory = append(resp.StatusHistory, statusEntryResponse{
			Status:    e.Status,
			Note:      e.Note,
			ActorID:   e.ActorID,
			Timestamp: e.Timestamp,
		})
	}
	return resp
}

func newDesignResponse(line order.Line, d order.CustomDesign) *designResponse {
	r := &designResponse{
		ID:          d.ID,
		SubmittedAt: d.SubmittedAt,
		Review: reviewResponse{
			Status:       d.Review.Status,
			ReviewerID:   d.Review.ReviewerID,
			ReviewerName: d.Review.ReviewerName,
			Reason:       d.Review.Reason,
		},
		Diseno: design.ToSubmission(design.Submission{
			DesignID:  d.ID,
			ProductID: line.ProductID,
			Angles:    d.Angles,
			Pricing: design.Pricing{
				ColorID:    line.ColorID,
				SizeID:     line.SizeID,
				BasePrice:  line.BasePrice,
				FinalPrice: line.UnitPrice,
			},
		}),
	}
	if !d.Review.ReviewedAt.IsZero() {
		at := d.Review.ReviewedAt
		r.Review.ReviewedAt = &at
	}
	return r
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
