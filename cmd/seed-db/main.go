// Command seed-db applies the schema and loads the default catalog, the
// reference options and a storefront API key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/threadcraft/db"
	"github.com/xenking/threadcraft/internal/domain/auth"
	"github.com/xenking/threadcraft/internal/domain/catalog"
	"github.com/xenking/threadcraft/internal/domain/design"
	"github.com/xenking/threadcraft/internal/storage/postgres"
)

type seedFile struct {
	Colors []struct {
		ID            string `json:"id"`
		Label         string `json:"label"`
		Hex           string `json:"hex"`
		PriceModifier int64  `json:"priceModifier"`
	} `json:"colors"`
	Sizes []struct {
		ID            string `json:"id"`
		Label         string `json:"label"`
		PriceModifier int64  `json:"priceModifier"`
	} `json:"sizes"`
	Fonts []struct {
		ID     string `json:"id"`
		Label  string `json:"label"`
		Family string `json:"family"`
	} `json:"fonts"`
	Products []struct {
		ID          string            `json:"id"`
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Price       int64             `json:"price"`
		Category    string            `json:"category"`
		Colors      []string          `json:"colors"`
		Sizes       []string          `json:"sizes"`
		InStock     bool              `json:"inStock"`
		Angles      []design.AngleDTO `json:"angles"`
	} `json:"products"`
}

func main() {
	var (
		databaseURL  string
		catalogFile  string
		apiKey       string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&catalogFile, "catalog-file", "", "path to catalog JSON file (default: embedded db/seed/catalog.json)")
	flag.StringVar(&apiKey, "api-key", "", "API key to seed (or THREADCRAFT_SEED_API_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or THREADCRAFT_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if apiKey == "" {
		apiKey = os.Getenv("THREADCRAFT_SEED_API_KEY")
	}
	if apiKey == "" {
		slog.Error("API key is required: set --api-key or THREADCRAFT_SEED_API_KEY")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("THREADCRAFT_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, catalogFile, apiKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, catalogFile, apiKey, pepper string) error {
	data := db.Catalog
	if catalogFile != "" {
		slog.Info("reading catalog file", slog.String("path", catalogFile))
		var err error
		if data, err = os.ReadFile(catalogFile); err != nil {
			return errors.Wrap(err, "read catalog file")
		}
	}
	opts, products, err := parseCatalog(data, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, "parse catalog")
	}

	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	slog.Info("replacing options",
		slog.Int("colors", len(opts.Colors)),
		slog.Int("sizes", len(opts.Sizes)),
		slog.Int("fonts", len(opts.Fonts)),
	)
	if err := postgres.NewOptionsRepository(pool).ReplaceOptions(ctx, opts); err != nil {
		return errors.Wrap(err, "seed options")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))
	productRepo := postgres.NewProductRepository(pool)
	for i := range products {
		p := &products[i]
		if err := productRepo.Upsert(ctx, p); err != nil {
			return errors.Wrapf(err, "upsert product %s", p.ID)
		}
		slog.Info("upserted product", slog.String("id", p.ID), slog.String("name", p.Name))
	}

	if err := seedAPIKey(ctx, postgres.NewAPIKeyRepository(pool), apiKey, pepper); err != nil {
		return errors.Wrap(err, "seed api key")
	}

	return nil
}

// parseCatalog decodes a seed file. Product angles use the wire form.
func parseCatalog(data []byte, now time.Time) (catalog.Options, []catalog.Product, error) {
	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return catalog.Options{}, nil, errors.Wrap(err, "decode json")
	}

	var opts catalog.Options
	for _, c := range f.Colors {
		opts.Colors = append(opts.Colors, catalog.ColorOption{ID: c.ID, Label: c.Label, Hex: c.Hex, PriceModifier: c.PriceModifier})
	}
	for _, s := range f.Sizes {
		opts.Sizes = append(opts.Sizes, catalog.SizeOption{ID: s.ID, Label: s.Label, PriceModifier: s.PriceModifier})
	}
	for _, ft := range f.Fonts {
		opts.Fonts = append(opts.Fonts, catalog.FontOption{ID: ft.ID, Label: ft.Label, Family: ft.Family})
	}

	products := make([]catalog.Product, 0, len(f.Products))
	for _, p := range f.Products {
		angles, err := design.FromDTOs(p.Angles)
		if err != nil {
			return catalog.Options{}, nil, errors.Wrapf(err, "product %s angles", p.ID)
		}
		products = append(products, catalog.Product{
			ID:          p.ID,
			Name:        p.Name,
			Description: p.Description,
			Price:       p.Price,
			Angles:      angles,
			Category:    p.Category,
			Colors:      p.Colors,
			Sizes:       p.Sizes,
			InStock:     p.InStock,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return opts, products, nil
}

func seedAPIKey(ctx context.Context, repo *postgres.APIKeyRepository, apiKey, pepper string) error {
	slog.Info("seeding default API key")

	if err := repo.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		KeyHash: auth.HashKey(apiKey, pepper),
		Name:    "Default storefront key",
		Scopes:  []string{auth.ScopePlaceOrder, auth.ScopeReadOrder},
	}); err != nil {
		return errors.Wrap(err, "upsert default API key")
	}

	slog.Info("upserted API key", slog.String("id", "default"), slog.String("name", "Default storefront key"))

	return nil
}
