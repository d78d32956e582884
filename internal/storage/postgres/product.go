package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/threadcraft/internal/domain/catalog"
	"github.com/xenking/threadcraft/internal/domain/design"
)

const (
	productColumns = `id, name, description, price, category, colors, sizes, in_stock, angles, created_at, updated_at`

	listProductsSQL = `SELECT ` + productColumns + ` FROM products ORDER BY id`

	getProductByIDSQL = `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	getProductsByIDsSQL = `SELECT ` + productColumns + ` FROM products WHERE id = ANY($1)`

	insertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	updateProductSQL = `UPDATE products SET name = $2, description = $3, price = $4, category = $5,
		colors = $6, sizes = $7, in_stock = $8, angles = $9, updated_at = $10
		WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
			price = EXCLUDED.price, category = EXCLUDED.category, colors = EXCLUDED.colors,
			sizes = EXCLUDED.sizes, in_stock = EXCLUDED.in_stock, angles = EXCLUDED.angles,
			updated_at = GREATEST(products.updated_at, EXCLUDED.updated_at)`
)

var _ catalog.Repository = (*ProductRepository)(nil)

// ProductRepository implements catalog.Repository backed by PostgreSQL.
type ProductRepository struct {
	pool *pgxpool.Pool
}

// NewProductRepository returns a ProductRepository that uses the given pool.
func NewProductRepository(pool *pgxpool.Pool) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list products")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get product %q", id)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get product %q", id)
	}
	return &p, nil
}

// GetByIDs returns products matching any of the given IDs.
func (r *ProductRepository) GetByIDs(ctx context.Context, ids []string) ([]catalog.Product, error) {
	rows, err := r.pool.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products by ids")
	}
	return pgx.CollectRows(rows, scanProduct)
}

// Create inserts p, failing with catalog.ErrExists on a duplicate id.
func (r *ProductRepository) Create(ctx context.Context, p *catalog.Product) error {
	args, err := productArgs(p)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, insertProductSQL, args...); err != nil {
		if isUniqueViolation(err, "") {
			return catalog.ErrExists
		}
		return errors.Wrapf(err, "insert product %q", p.ID)
	}
	return nil
}

// Update replaces the editable fields of p.
func (r *ProductRepository) Update(ctx context.Context, p *catalog.Product) error {
	anglesJSON, err := json.Marshal(design.ToDTOs(p.Angles))
	if err != nil {
		return errors.Wrap(err, "marshal angles")
	}
	tag, err := r.pool.Exec(ctx, updateProductSQL,
		p.ID, p.Name, p.Description, p.Price, p.Category, p.Colors, p.Sizes, p.InStock, anglesJSON, p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "update product %q", p.ID)
	}
	if tag.RowsAffected() == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

// Upsert inserts or refreshes p. Used by seeding.
func (r *ProductRepository) Upsert(ctx context.Context, p *catalog.Product) error {
	args, err := productArgs(p)
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, upsertProductSQL, args...); err != nil {
		return errors.Wrapf(err, "upsert product %q", p.ID)
	}
	return nil
}

func productArgs(p *catalog.Product) ([]any, error) {
	anglesJSON, err := json.Marshal(design.ToDTOs(p.Angles))
	if err != nil {
		return nil, errors.Wrap(err, "marshal angles")
	}
	colors, sizes := p.Colors, p.Sizes
	if colors == nil {
		colors = []string{}
	}
	if sizes == nil {
		sizes = []string{}
	}
	return []any{
		p.ID, p.Name, p.Description, p.Price, p.Category, colors, sizes, p.InStock,
		anglesJSON, p.CreatedAt, p.UpdatedAt,
	}, nil
}

func scanProduct(row pgx.CollectableRow) (catalog.Product, error) {
	var (
		p          catalog.Product
		anglesJSON []byte
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Price, &p.Category,
		&p.Colors, &p.Sizes, &p.InStock, &anglesJSON, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return catalog.Product{}, err
	}

	var dtos []design.AngleDTO
	if err := json.Unmarshal(anglesJSON, &dtos); err != nil {
		return catalog.Product{}, errors.Wrapf(err, "unmarshal angles of %q", p.ID)
	}
	angles, err := design.FromDTOs(dtos)
	if err != nil {
		return catalog.Product{}, errors.Wrapf(err, "decode angles of %q", p.ID)
	}
	p.Angles = angles
	return p, nil
}
