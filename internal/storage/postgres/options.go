package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/threadcraft/internal/domain/catalog"
)

const (
	listColorsSQL = `SELECT id, label, hex, price_modifier FROM color_options ORDER BY position, id`
	listSizesSQL  = `SELECT id, label, price_modifier FROM size_options ORDER BY position, id`
	listFontsSQL  = `SELECT id, label, family FROM font_options ORDER BY position, id`

	upsertColorSQL = `INSERT INTO color_options (id, label, hex, price_modifier, position) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, hex = EXCLUDED.hex,
			price_modifier = EXCLUDED.price_modifier, position = EXCLUDED.position`
	upsertSizeSQL = `INSERT INTO size_options (id, label, price_modifier, position) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label,
			price_modifier = EXCLUDED.price_modifier, position = EXCLUDED.position`
	upsertFontSQL = `INSERT INTO font_options (id, label, family, position) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET label = EXCLUDED.label, family = EXCLUDED.family,
			position = EXCLUDED.position`
)

var _ catalog.ReferenceData = (*OptionsRepository)(nil)

// OptionsRepository serves the color, size and font reference lists.
type OptionsRepository struct {
	pool *pgxpool.Pool
}

// NewOptionsRepository returns an OptionsRepository that uses the given pool.
func NewOptionsRepository(pool *pgxpool.Pool) *OptionsRepository {
	return &OptionsRepository{pool: pool}
}

func (r *OptionsRepository) Colors(ctx context.Context) ([]catalog.ColorOption, error) {
	rows, err := r.pool.Query(ctx, listColorsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list colors")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (c catalog.ColorOption, err error) {
		err = row.Scan(&c.ID, &c.Label, &c.Hex, &c.PriceModifier)
		return c, err
	})
}

func (r *OptionsRepository) Sizes(ctx context.Context) ([]catalog.SizeOption, error) {
	rows, err := r.pool.Query(ctx, listSizesSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list sizes")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (s catalog.SizeOption, err error) {
		err = row.Scan(&s.ID, &s.Label, &s.PriceModifier)
		return s, err
	})
}

func (r *OptionsRepository) Fonts(ctx context.Context) ([]catalog.FontOption, error) {
	rows, err := r.pool.Query(ctx, listFontsSQL)
	if err != nil {
		return nil, errors.Wrap(err, "list fonts")
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (f catalog.FontOption, err error) {
		err = row.Scan(&f.ID, &f.Label, &f.Family)
		return f, err
	})
}

// ReplaceOptions upserts every option in one transaction. List order
// becomes display order.
func (r *OptionsRepository) ReplaceOptions(ctx context.Context, opts catalog.Options) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for i, c := range opts.Colors {
			batch.Queue(upsertColorSQL, c.ID, c.Label, c.Hex, c.PriceModifier, i)
		}
		for i, s := range opts.Sizes {
			batch.Queue(upsertSizeSQL, s.ID, s.Label, s.PriceModifier, i)
		}
		for i, f := range opts.Fonts {
			batch.Queue(upsertFontSQL, f.ID, f.Label, f.Family, i)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return errors.Wrap(err, "upsert options")
		}
		return nil
	})
}
