// Command catalog-snapshot fetches the remote catalog once and stores it as a
// snapshot the server can read with CATALOG_SOURCE_FILE.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"

	"github.com/xenking/catalog-browser/internal/domain/product"
	"github.com/xenking/catalog-browser/internal/source"
)

func main() {
	var (
		url     string
		out     string
		timeout time.Duration
	)
	flag.StringVar(&url, "url", source.DefaultURL, "remote catalog URL")
	flag.StringVar(&out, "out", "catalog.json.gz", "output file, gzip-compressed when it ends in .gz")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, url, out, timeout); err != nil {
		slog.Error("catalog snapshot failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, url, out string, timeout time.Duration) error {
	start := time.Now()
	slog.Info("fetching catalog", slog.String("url", url))

	items, err := source.NewHTTPSource(source.HTTPConfig{URL: url, Timeout: timeout}).Fetch(ctx)
	if err != nil {
		return errors.Wrap(err, "fetch catalog")
	}
	kept := product.Truncate(items)

	if err := source.WriteFile(out, kept); err != nil {
		return errors.Wrapf(err, "write %s", out)
	}

	slog.Info("catalog snapshot written",
		slog.String("path", out),
		slog.Int("received", len(items)),
		slog.Int("kept", len(kept)),
		slog.Duration("duration", time.Since(start)),
	)
	return nil
}
