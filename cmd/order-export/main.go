// Command order-export dumps stored orders as gzip-compressed NDJSON, one
// order record per line, newest first.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/threadcraft/internal/domain/order"
	"github.com/xenking/threadcraft/internal/storage/postgres"
)

const progressEvery = 1000

func main() {
	var (
		databaseURL string
		outPath     string
		status      string
		limit       int
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&outPath, "out", "orders.ndjson.gz", "output file, - for stdout")
	flag.StringVar(&status, "status", "", "export only orders in this status")
	flag.IntVar(&limit, "limit", 0, "maximum number of orders, 0 for all")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	filter := order.ListFilter{Limit: limit}
	if status != "" {
		st, ok := order.ParseStatus(status)
		if !ok {
			slog.Error("unknown status", slog.String("status", status))
			os.Exit(1)
		}
		filter.Status = st
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, outPath, filter); err != nil {
		slog.Error("order export failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("order export completed successfully")
}

func run(ctx context.Context, databaseURL, outPath string, filter order.ListFilter) (rerr error) {
	slog.Info("connecting to database")

	pool, err := postgres.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	recs, err := postgres.NewOrderRepository(pool).ListRecords(ctx, filter)
	if err != nil {
		return errors.Wrap(err, "list orders")
	}
	slog.Info("exporting orders", slog.Int("count", len(recs)), slog.String("out", outPath))

	var out io.Writer = os.Stdout
	if outPath != "-" {
		f, err := os.Create(outPath)
		if err != nil {
			return errors.Wrap(err, "create output file")
		}
		defer func() {
			if err := f.Close(); err != nil && rerr == nil {
				rerr = errors.Wrap(err, "close output file")
			}
		}()
		out = f
	}

	n, err := export(ctx, recs, out)
	if err != nil {
		return err
	}
	slog.Info("orders written", slog.Int("count", n))
	return nil
}

// export encodes recs through a producer/encoder pipeline into a parallel
// gzip stream on w and returns the number of lines written.
func export(ctx context.Context, recs []postgres.OrderRecord, w io.Writer) (int, error) {
	lines := make(chan []byte, 64)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(lines)
		for i := range recs {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := json.Marshal(&recs[i])
			if err != nil {
				return errors.Wrapf(err, "encode order %s", recs[i].ID)
			}
			select {
			case lines <- data:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var written int
	g.Go(func() error {
		zw := pgzip.NewWriter(w)
		bw := bufio.NewWriter(zw)
		for data := range lines {
			if _, err := bw.Write(data); err != nil {
				return errors.Wrap(err, "write order")
			}
			if err := bw.WriteByte('\n'); err != nil {
				return errors.Wrap(err, "write order")
			}
			written++
			if written%progressEvery == 0 {
				slog.Info("export progress", slog.Int("orders", written))
			}
		}
		if err := bw.Flush(); err != nil {
			return errors.Wrap(err, "flush output")
		}
		if err := zw.Close(); err != nil {
			return errors.Wrap(err, "close gzip stream")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return written, err
	}
	return written, nil
}
