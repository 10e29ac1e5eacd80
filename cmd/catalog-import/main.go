package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/go-faster/errors"

	"github.com/xenking/kart-pos/internal/repository"
)

func main() {
	var (
		databaseURL string
		capacity    uint
		dryRun      bool
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.UintVar(&capacity, "capacity", 1_000_000, "expected products per file, sizes the SKU filters")
	flag.BoolVar(&dryRun, "dry-run", false, "validate and report without writing")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		slog.Error("no input files: pass one or more .jsonl or .jsonl.gz paths")
		os.Exit(1)
	}
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" && !dryRun {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, files, databaseURL, capacity, dryRun); err != nil {
		slog.Error("catalog import failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("catalog import completed successfully")
}

func run(ctx context.Context, files []string, databaseURL string, capacity uint, dryRun bool) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return errors.Wrapf(err, "check file %s", f)
		}
	}

	// Pass 1: one SKU filter per file.
	slog.Info("pass 1: building sku filters", slog.Int("files", len(files)))

	filters, err := buildFilters(ctx, files, capacity)
	if err != nil {
		return errors.Wrap(err, "build sku filters")
	}

	// Pass 2: SKUs present in more than one file.
	slog.Info("pass 2: finding conflicting skus")

	conflicts, err := findConflicts(ctx, files, filters)
	if err != nil {
		return errors.Wrap(err, "find conflicts")
	}
	for sku := range conflicts {
		slog.Warn("sku appears in several files, skipping", slog.String("sku", sku))
	}

	var dst upserter
	if !dryRun {
		slog.Info("connecting to database")

		pool, err := repository.NewPool(ctx, databaseURL)
		if err != nil {
			return errors.Wrap(err, "connect to database")
		}
		defer pool.Close()

		if err := repository.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		dst = repository.NewProductRepository(pool)
	}

	st, err := importFiles(ctx, files, conflicts, dst)
	if err != nil {
		return errors.Wrap(err, "import products")
	}

	slog.Info("import summary",
		slog.Int("imported", st.imported),
		slog.Int("invalid", st.invalid),
		slog.Int("conflicts", st.conflicts),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}
