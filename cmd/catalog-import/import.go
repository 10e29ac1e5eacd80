package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/bits"
	"os"
	"strings"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/go-faster/errors"
	pgzip "github.com/klauspost/pgzip"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/kart-pos/internal/domain/inventory"
	"github.com/xenking/kart-pos/internal/domain/product"
)

const (
	filterFPR     = 0.001
	maxLineBytes  = 1 << 20
	progressEvery = 100_000
)

// upserter is implemented by *repository.ProductRepository.
type upserter interface {
	Upsert(ctx context.Context, p product.Product) (int64, error)
}

type stats struct {
	imported  int
	invalid   int
	conflicts int
}

// recordFunc receives each non-blank line of an input file. perr is set when
// the line is not a valid JSON product.
type recordFunc func(line int, in inventory.ProductInput, perr error) error

// buildFilters creates one SKU filter per file, concurrently.
func buildFilters(ctx context.Context, files []string, capacity uint) ([]*bloom.BloomFilter, error) {
	filters := make([]*bloom.BloomFilter, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			filter := bloom.NewWithEstimates(capacity, filterFPR)
			var count int

			if err := streamFile(ctx, f, func(_ int, in inventory.ProductInput, perr error) error {
				if sku := skuOf(in); perr == nil && sku != "" {
					filter.AddString(sku)
					count++
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "build filter for %s", f)
			}

			slog.Info("pass 1 complete", slog.String("file", f), slog.Int("skus", count))
			filters[i] = filter
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return filters, nil
}

// findConflicts rescans each file and checks its SKUs against the other
// files' filters. A filter hit only marks a candidate; a SKU is a conflict
// once the scans of two or more files have each marked it.
func findConflicts(ctx context.Context, files []string, filters []*bloom.BloomFilter) (map[string]struct{}, error) {
	results := make([]map[string]uint, len(files))

	g, ctx := errgroup.WithContext(ctx)
	for i, f := range files {
		g.Go(func() error {
			candidates := make(map[string]uint)
			fileBit := uint(1) << uint(i%bits.UintSize)

			if err := streamFile(ctx, f, func(_ int, in inventory.ProductInput, perr error) error {
				sku := skuOf(in)
				if perr != nil || sku == "" {
					return nil
				}
				for j, other := range filters {
					if j != i && other.TestString(sku) {
						candidates[sku] |= fileBit
						break
					}
				}
				return nil
			}); err != nil {
				return errors.Wrapf(err, "scan %s for conflicts", f)
			}

			slog.Info("pass 2 complete", slog.String("file", f), slog.Int("candidates", len(candidates)))
			results[i] = candidates
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make(map[string]uint)
	for _, r := range results {
		for sku, mask := range r {
			merged[sku] |= mask
		}
	}

	conflicts := make(map[string]struct{})
	for sku, mask := range merged {
		if bits.OnesCount(mask) >= 2 {
			conflicts[sku] = struct{}{}
		}
	}
	return conflicts, nil
}

// importFiles validates every record and upserts it by SKU. Conflicting and
// invalid records are counted and skipped. A nil dst only validates.
func importFiles(ctx context.Context, files []string, conflicts map[string]struct{}, dst upserter) (stats, error) {
	var st stats
	for _, f := range files {
		err := streamFile(ctx, f, func(line int, in inventory.ProductInput, perr error) error {
			if perr != nil {
				st.invalid++
				slog.Warn("skipping malformed line",
					slog.String("file", f), slog.Int("line", line), slog.String("error", perr.Error()))
				return nil
			}
			if _, ok := conflicts[skuOf(in)]; ok {
				st.conflicts++
				return nil
			}

			p, err := in.Build(0)
			if err != nil {
				st.invalid++
				slog.Warn("skipping invalid product",
					slog.String("file", f), slog.Int("line", line), slog.String("error", err.Error()))
				return nil
			}
			if dst != nil {
				if _, err := dst.Upsert(ctx, p); err != nil {
					return errors.Wrapf(err, "%s:%d", f, line)
				}
			}

			st.imported++
			if st.imported%progressEvery == 0 {
				slog.Info("import progress", slog.Int("imported", st.imported))
			}
			return nil
		})
		if err != nil {
			return st, err
		}
	}
	return st, nil
}

func skuOf(in inventory.ProductInput) string {
	return strings.TrimSpace(in.SKU)
}

// streamFile opens a JSON lines file, gzip-compressed when the name ends in
// .gz, and calls fn for each non-blank line.
func streamFile(ctx context.Context, path string, fn recordFunc) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	var line int
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}

		var in inventory.ProductInput
		perr := json.Unmarshal(raw, &in)
		if err := fn(line, in, perr); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "scan %s", path)
	}
	return nil
}
