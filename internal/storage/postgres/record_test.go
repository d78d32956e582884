package postgres

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/design"
	"github.com/xenking/threadcraft/internal/domain/order"
)

var t0 = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func sampleOrder(t *testing.T, id, key string) *order.Order {
	t.Helper()
	o, err := order.New(order.NewParams{
		ID:        id,
		UserEmail: "ana@example.com",
		ShippingInfo: order.ShippingInfo{
			FullName: "Ana Ruiz",
			Address:  "Calle 1",
			City:     "Madrid",
			Country:  "ES",
		},
		Items: []order.Item{
			order.StandardItem{Line: order.Line{ID: id + "-i1", ProductID: "tee-classic", ColorID: "white", SizeID: "m", Quantity: 2, BasePrice: 10000, UnitPrice: 10000}},
			order.CustomItem{
				Line: order.Line{ID: id + "-i2", ProductID: "tee-classic", ColorID: "black", SizeID: "xl", Quantity: 1, BasePrice: 10000, UnitPrice: 11500},
				Design: order.CustomDesign{ID: id + "-d1", Angles: design.Angles{
					Front: design.AngleDesign{Text: &design.Text{Content: "Hola", Font: "Arial", Color: "#000000", Size: 24}},
				}},
			},
		},
		Shipping:       500,
		DisplayRate:    decimal.RequireFromString("0.92"),
		IdempotencyKey: key,
	}, t0)
	require.NoError(t, err)
	return o
}

func TestOrderRecord_RoundTrip(t *testing.T) {
	admin := auth.Actor{ID: "admin-1", Name: "Ana"}
	o := sampleOrder(t, "o-1", "key-1")
	o, err := order.Reject(o, "o-1-d1", admin, "blurry", t0.Add(time.Minute))
	require.NoError(t, err)
	o, err = order.Transition(o, order.StatusProcessing, "", admin, t0.Add(2*time.Minute))
	require.NoError(t, err)

	rec := NewOrderRecord(o)
	raw, err := json.Marshal(rec)
	require.NoError(t, err)

	var decoded OrderRecord
	require.NoError(t, json.Unmarshal(raw, &decoded))

	got, err := decoded.Order()
	require.NoError(t, err)

	assert.Equal(t, o.Snapshot(), got.Snapshot())
	assert.Equal(t, o.Version(), got.Version())
	assert.Equal(t, o.Total(), got.Total())
	assert.Equal(t, "key-1", got.IdempotencyKey)
	for i, it := range got.Items() {
		assert.Equal(t, int64(10000), it.Base().BasePrice, "item %d", i)
	}
	assert.True(t, o.DisplayRate.Equal(got.DisplayRate))
	assert.Equal(t, o.ShippingInfo, got.ShippingInfo)
	assert.Equal(t, o.History(), got.History())

	designs := got.Designs()
	require.Len(t, designs, 1)
	assert.Equal(t, order.ReviewRejected, designs[0].Review.Status)
	assert.Equal(t, "blurry", designs[0].Review.Reason)
	assert.Equal(t, "admin-1", designs[0].Review.ReviewerID)
	assert.Equal(t, t0.Add(time.Minute), designs[0].Review.ReviewedAt)
	require.NotNil(t, designs[0].Angles.Front.Text)
	assert.Equal(t, "Hola", designs[0].Angles.Front.Text.Content)
}

func TestOrderRecord_Kinds(t *testing.T) {
	rec := NewOrderRecord(sampleOrder(t, "o-1", ""))
	require.Len(t, rec.Items, 2)
	assert.Equal(t, itemStandard, rec.Items[0].Kind)
	assert.Nil(t, rec.Items[0].Design)
	assert.Equal(t, itemCustom, rec.Items[1].Kind)
	require.NotNil(t, rec.Items[1].Design)
	assert.Nil(t, rec.Items[1].Design.ReviewedAt)
	assert.Equal(t, string(order.ReviewSubmitted), rec.Items[1].Design.ReviewStatus)
}

func TestOrderRecord_Corrupt(t *testing.T) {
	for _, tt := range []struct {
		name   string
		mutate func(*OrderRecord)
	}{
		{"unknown kind", func(r *OrderRecord) { r.Items[0].Kind = "bundle" }},
		{"custom without design", func(r *OrderRecord) { r.Items[1].Design = nil }},
		{"unknown status", func(r *OrderRecord) { r.Status = "LOST" }},
		{"bad angle view", func(r *OrderRecord) { r.Items[1].Design.Angles[0].ViewCode = 99 }},
	} {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewOrderRecord(sampleOrder(t, "o-1", ""))
			tt.mutate(&rec)
			_, err := rec.Order()
			require.Error(t, err)
		})
	}
}
