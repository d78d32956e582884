package handler

import (
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/order"
)

// maxIdempotencyKey bounds the Idempotency-Key header.
const maxIdempotencyKey = 255

// PlaceOrder prices and persists a new order. A repeated Idempotency-Key
// replays the original order with 200 instead of 201.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKey {
		writeError(w, r, badRequest(errors.Errorf("%s longer than %d bytes", IdempotencyKeyHeader, maxIdempotencyKey)))
		return
	}

	var body placeOrderRequest
	if err := h.decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	req, err := body.domain(key)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.PlaceOrder(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
		w.Header().Set(ReplayedHeader, "true")
	}
	h.writeOrder(w, r, status, res.Order)
}

// GetOrder returns an order with its ETag.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if match := r.Header.Get("If-None-Match"); match != "" && match == o.Snapshot().ETag() {
		w.Header().Set("ETag", o.Snapshot().ETag())
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.writeOrder(w, r, http.StatusOK, o)
}

// ListOrders returns orders newest first, optionally filtered by ?status.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	filter := order.ListFilter{}
	if raw := r.URL.Query().Get("status"); raw != "" {
		st, ok := order.ParseStatus(raw)
		if !ok {
			writeError(w, r, badRequest(errors.Errorf("unknown status %q", raw)))
			return
		}
		filter.Status = st
	}
	limit, err := queryInt(r, "limit", h.cfg.ListLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	filter.Limit = min(limit, h.cfg.ListLimit)
	if filter.Limit == 0 {
		filter.Limit = h.cfg.ListLimit
	}

	orders, err := h.orders.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = newOrderResponse(o)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// TransitionOrder moves an order to the requested status.
func (h *Handler) TransitionOrder(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(expected order.Snapshot, a auth.Actor) (*order.Order, error) {
		var req transitionRequest
		if err := h.decode(w, r, &req); err != nil {
			return nil, err
		}
		// Unknown targets are rejected by the state machine.
		return h.orders.Transition(r.Context(), r.PathValue("id"), expected, a, order.Status(req.Status), req.Note)
	})
}

// ApproveDesign approves one custom design of an order.
func (h *Handler) ApproveDesign(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(expected order.Snapshot, a auth.Actor) (*order.Order, error) {
		return h.orders.ApproveDesign(r.Context(), r.PathValue("id"), expected, a, r.PathValue("designId"))
	})
}

// RejectDesign rejects one custom design of an order with a reason.
func (h *Handler) RejectDesign(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(expected order.Snapshot, a auth.Actor) (*order.Order, error) {
		var req rejectRequest
		if err := h.decode(w, r, &req); err != nil {
			return nil, err
		}
		return h.orders.RejectDesign(r.Context(), r.PathValue("id"), expected, a, r.PathValue("designId"), req.Reason)
	})
}

// RemoveItem drops a line item from an order.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, func(expected order.Snapshot, a auth.Actor) (*order.Order, error) {
		return h.orders.RemoveItem(r.Context(), r.PathValue("id"), expected, a, r.PathValue("itemId"))
	})
}

// mutate runs an admin mutation guarded by If-Match.
func (h *Handler) mutate(
	w http.ResponseWriter,
	r *http.Request,
	fn func(expected order.Snapshot, a auth.Actor) (*order.Order, error),
) {
	a, err := actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	expected, err := expectedSnapshot(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err := fn(expected, a)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeOrder(w, r, http.StatusOK, o)
}

func (h *Handler) writeOrder(w http.ResponseWriter, r *http.Request, status int, o *order.Order) {
	w.Header().Set("ETag", o.Snapshot().ETag())
	writeJSON(w, r, status, newOrderResponse(o))
}
