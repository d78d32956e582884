// Package handler exposes the storefront and admin HTTP API.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/catalog"
	"github.com/xenking/threadcraft/internal/domain/order"
)

// Protocol headers.
const (
	IdempotencyKeyHeader = "Idempotency-Key"
	ReplayedHeader       = "Idempotent-Replayed"
)

const defaultMaxBodyBytes = 8 << 20

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// DisplayRate converts minor units of the base currency to the display
	// currency for catalog reads. Orders carry their own rate.
	DisplayRate decimal.Decimal
	// MaxBodyBytes caps request bodies. Designs embed base64 thumbnails.
	MaxBodyBytes int64
	// ListLimit caps admin order listings when the query has no limit.
	ListLimit int
}

// Handler serves the HTTP API on top of the catalog and order services.
type Handler struct {
	catalog  *catalog.Service
	orders   *order.Service
	security *SecurityHandler
	cfg      HandlerConfig
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	catalogService *catalog.Service,
	orderService *order.Service,
	security *SecurityHandler,
) *Handler {
	if cfg.DisplayRate.IsZero() {
		cfg.DisplayRate = decimal.NewFromInt(1)
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 100
	}
	return &Handler{
		catalog:  catalogService,
		orders:   orderService,
		security: security,
		cfg:      cfg,
	}
}

// Register mounts every API route on mux under prefix.
func (h *Handler) Register(mux *http.ServeMux, prefix string) {
	s := h.security
	route := func(pattern string, fn http.HandlerFunc) {
		method, path, _ := strings.Cut(pattern, " ")
		mux.HandleFunc(method+" "+prefix+path, fn)
	}

	route("GET /products", h.ListProducts)
	route("GET /products/{id}", h.GetProduct)
	route("GET /options", h.GetOptions)
	route("POST /quote", h.Quote)

	route("POST /orders", s.RequireAPIKey(auth.ScopePlaceOrder, h.PlaceOrder))
	route("GET /orders/{id}", s.RequireAPIKey(auth.ScopeReadOrder, h.GetOrder))

	route("GET /admin/orders", s.RequireAdmin(h.ListOrders))
	route("GET /admin/orders/{id}", s.RequireAdmin(h.GetOrder))
	route("POST /admin/orders/{id}/transitions", s.RequireAdmin(h.TransitionOrder))
	route("POST /admin/orders/{id}/designs/{designId}/approve", s.RequireAdmin(h.ApproveDesign))
	route("POST /admin/orders/{id}/designs/{designId}/reject", s.RequireAdmin(h.RejectDesign))
	route("DELETE /admin/orders/{id}/items/{itemId}", s.RequireAdmin(h.RemoveItem))
	route("POST /admin/products", s.RequireAdmin(h.CreateProduct))
	route("PUT /admin/products/{id}", s.RequireAdmin(h.UpdateProduct))
}

// decode reads a JSON body into v.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.cfg.MaxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest(err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, errors.Wrap(err, "encode response"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		zctx.From(r.Context()).Debug("Write response", zap.Error(err))
	}
}

// writeError maps err to a status and writes the {"code","message"} body.
// Internal errors are logged and hidden from the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed", zap.Error(err))
		msg = http.StatusText(status)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="threadcraft"`)
	}

	data, _ := json.Marshal(errorResponse{Code: status, Message: msg})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// expectedSnapshot reads the caller's view of the order from If-Match.
func expectedSnapshot(r *http.Request) (order.Snapshot, error) {
	tag := r.Header.Get("If-Match")
	if tag == "" {
		return order.Snapshot{}, errIfMatchRequired
	}
	snap, err := order.ParseETag(tag)
	if err != nil {
		return order.Snapshot{}, badRequest(err)
	}
	return snap, nil
}

// actor returns the admin stored by RequireAdmin.
func actor(r *http.Request) (auth.Actor, error) {
	a, ok := auth.ActorFrom(r.Context())
	if !ok {
		return auth.Actor{}, auth.ErrNoActor
	}
	return a, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, badRequest(errors.Errorf("%s must be a non-negative integer", name))
	}
	return v, nil
}
