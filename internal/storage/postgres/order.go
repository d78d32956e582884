package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/threadcraft/internal/domain/order"
)

const (
	orderColumns = `id, user_email, shipping_info, items, subtotal, shipping, total, status,
		status_history, display_rate, COALESCE(idempotency_key, ''), version, created_at, updated_at`

	insertOrderSQL = `INSERT INTO orders (id, user_email, shipping_info, items, subtotal, shipping, total,
		status, status_history, display_rate, idempotency_key, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12, $13, $14)`

	saveOrderSQL = `UPDATE orders SET items = $2, subtotal = $3, shipping = $4, total = $5, status = $6,
		status_history = $7, version = $8, updated_at = $9
		WHERE id = $1 AND version = $10`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderByKeySQL = `SELECT ` + orderColumns + ` FROM orders WHERE idempotency_key = $1`

	listOrdersSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text = '' OR status = $1::text)
		ORDER BY created_at DESC, id
		LIMIT NULLIF($2::int, 0)`

	listIdempotencyKeysSQL = `SELECT idempotency_key FROM orders WHERE idempotency_key IS NOT NULL`

	idempotencyKeyIndex = "orders_idempotency_key_idx"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. The order items and history are serialized
// to JSON for storage in JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	rec := NewOrderRecord(o)
	shippingJSON, itemsJSON, historyJSON, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, insertOrderSQL,
		rec.ID, rec.UserEmail, shippingJSON, itemsJSON, rec.Subtotal, rec.Shipping, rec.Total,
		rec.Status, historyJSON, rec.DisplayRate, rec.IdempotencyKey, rec.Version,
		rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, idempotencyKeyIndex) {
			return order.ErrDuplicateIdempotencyKey
		}
		return errors.Wrapf(err, "insert order %q", rec.ID)
	}
	return nil
}

// Save writes the mutable state of o iff the stored version still equals
// expectedVersion.
func (r *OrderRepository) Save(ctx context.Context, o *order.Order, expectedVersion int64) error {
	rec := NewOrderRecord(o)
	_, itemsJSON, historyJSON, err := marshalRecord(rec)
	if err != nil {
		return err
	}

	tag, err := r.pool.Exec(ctx, saveOrderSQL,
		rec.ID, itemsJSON, rec.Subtotal, rec.Shipping, rec.Total, rec.Status,
		historyJSON, rec.Version, rec.UpdatedAt, expectedVersion,
	)
	if err != nil {
		return errors.Wrapf(err, "update order %q", rec.ID)
	}
	if tag.RowsAffected() == 0 {
		// Either the order is gone or another writer bumped the version.
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, rec.ID).Scan(&exists); err != nil {
			return errors.Wrapf(err, "check order %q", rec.ID)
		}
		if !exists {
			return order.ErrNotFound
		}
		return order.ErrVersionConflict
	}
	return nil
}

// Get returns a single order by its identifier.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.getOne(ctx, getOrderSQL, id)
}

// FindByIdempotencyKey returns the order placed with key.
func (r *OrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*order.Order, error) {
	return r.getOne(ctx, getOrderByKeySQL, key)
}

func (r *OrderRepository) getOne(ctx context.Context, query, arg string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	rec, err := pgx.CollectExactlyOneRow(rows, scanOrderRecord)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrap(err, "scan order")
	}
	return rec.Order()
}

// List returns orders newest first.
func (r *OrderRepository) List(ctx context.Context, filter order.ListFilter) ([]*order.Order, error) {
	recs, err := r.ListRecords(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0, len(recs))
	for _, rec := range recs {
		o, err := rec.Order()
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, nil
}

// ListRecords returns stored records newest first, without rebuilding the
// aggregates.
func (r *OrderRepository) ListRecords(ctx context.Context, filter order.ListFilter) ([]OrderRecord, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, string(filter.Status), filter.Limit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	recs, err := pgx.CollectRows(rows, scanOrderRecord)
	if err != nil {
		return nil, errors.Wrap(err, "scan orders")
	}
	return recs, nil
}

// IdempotencyKeys returns every stored idempotency key.
func (r *OrderRepository) IdempotencyKeys(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listIdempotencyKeysSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list idempotency keys")
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, errors.Wrap(err, "scan idempotency keys")
	}
	return keys, nil
}

func marshalRecord(rec OrderRecord) (shipping, items, history []byte, err error) {
	if shipping, err = json.Marshal(rec.ShippingInfo); err != nil {
		return nil, nil, nil, errors.Wrap(err, "marshal shipping info")
	}
	if items, err = json.Marshal(rec.Items); err != nil {
		return nil, nil, nil, errors.Wrap(err, "marshal order items")
	}
	if history, err = json.Marshal(rec.History); err != nil {
		return nil, nil, nil, errors.Wrap(err, "marshal status history")
	}
	return shipping, items, history, nil
}

func scanOrderRecord(row pgx.CollectableRow) (OrderRecord, error) {
	var (
		rec                                  OrderRecord
		shippingJSON, itemsJSON, historyJSON []byte
	)
	if err := row.Scan(
		&rec.ID, &rec.UserEmail, &shippingJSON, &itemsJSON, &rec.Subtotal, &rec.Shipping, &rec.Total,
		&rec.Status, &historyJSON, &rec.DisplayRate, &rec.IdempotencyKey, &rec.Version,
		&rec.CreatedAt, &rec.UpdatedAt,
	); err != nil {
		return OrderRecord{}, err
	}
	if err := json.Unmarshal(shippingJSON, &rec.ShippingInfo); err != nil {
		return OrderRecord{}, errors.Wrap(err, "unmarshal shipping info")
	}
	if err := json.Unmarshal(itemsJSON, &rec.Items); err != nil {
		return OrderRecord{}, errors.Wrap(err, "unmarshal order items")
	}
	if err := json.Unmarshal(historyJSON, &rec.History); err != nil {
		return OrderRecord{}, errors.Wrap(err, "unmarshal status history")
	}
	return rec, nil
}
