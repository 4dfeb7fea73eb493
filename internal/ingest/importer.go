// Package ingest bulk-imports part listing files: one description per
// line, parsed and inserted in batches.
package ingest

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/ozparts/partlex/internal/parse"
	"github.com/ozparts/partlex/internal/store"
)

// DefaultBatchSize is how many parsed records are inserted per
// transaction.
const DefaultBatchSize = 100

// Result summarizes one import run.
type Result struct {
	Imported int
	Skipped  int
}

// Importer parses listing lines with Engine and persists them in Store.
type Importer struct {
	Engine    *parse.Engine
	Store     *store.Store
	BatchSize int
	Log       *slog.Logger
}

// ImportFile reads path line by line, parses every non-empty line, and
// inserts the records in batches. Lines that are empty after trimming
// count as skipped. The scan stops early only on I/O or storage errors.
func (im *Importer) ImportFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening import file: %w", err)
	}
	defer f.Close()

	batchSize := im.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	res := &Result{}
	batch := make([]*parse.Record, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if _, err := im.Store.AddPartBatch(ctx, batch); err != nil {
			return fmt.Errorf("inserting batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := im.Engine.Parse(ctx, scanner.Text())
		if err != nil {
			return res, fmt.Errorf("parsing line: %w", err)
		}
		if rec == nil {
			res.Skipped++
			continue
		}
		batch = append(batch, rec)
		res.Imported++

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return res, err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("reading import file: %w", err)
	}
	if err := flush(); err != nil {
		return res, err
	}

	im.log().Info("import finished",
		"file", path, "imported", res.Imported, "skipped", res.Skipped)
	return res, nil
}

func (im *Importer) log() *slog.Logger {
	if im.Log != nil {
		return im.Log
	}
	return slog.Default()
}
