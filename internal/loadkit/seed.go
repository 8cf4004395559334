package loadkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/armistcxy/url-shorten/internal/entity"
)

const DefaultBatchSize = 500

// MaxBatchSize keeps one upsert statement within Postgres's 65535 bind
// parameters at two parameters per record.
const MaxBatchSize = 32767

type upserter interface {
	Upsert(ctx context.Context, records []entity.Record) (int64, error)
}

type registrar interface {
	Register(ctx context.Context, id, originalURL string) (*entity.URL, error)
}

// Report summarizes a seeding run.
type Report struct {
	Written   int64
	Conflicts int
}

// Upsert loads entries in batches, overwriting ids that already exist.
// batchSize is clamped to MaxBatchSize.
func Upsert(ctx context.Context, store upserter, entries []Entry, sep string, batchSize int) (Report, error) {
	const op = "loadkit.Upsert"

	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	batchSize = min(batchSize, MaxBatchSize)

	var report Report

	batch := make([]entity.Record, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := store.Upsert(ctx, batch)
		if err != nil {
			return err
		}
		report.Written += n
		batch = batch[:0]
		return nil
	}

	for _, e := range entries {
		id, err := ParseID(e.Key, sep)
		if err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}

		batch = append(batch, entity.Record{ID: id, OriginalURL: e.Value})
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return report, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	if err := flush(); err != nil {
		return report, fmt.Errorf("%s: %w", op, err)
	}

	return report, nil
}

// Put loads entries one by one without overwriting. Running it twice over the
// same data leaves the store unchanged; an id already bound to another URL is
// counted as a conflict and skipped.
func Put(ctx context.Context, store registrar, entries []Entry, sep string, logger *slog.Logger) (Report, error) {
	const op = "loadkit.Put"

	var report Report

	for _, e := range entries {
		id, err := ParseID(e.Key, sep)
		if err != nil {
			return report, fmt.Errorf("%s: %w", op, err)
		}

		if _, err := store.Register(ctx, id, e.Value); err != nil {
			if errors.Is(err, entity.ErrAlreadyExists) {
				report.Conflicts++
				logger.WarnContext(ctx, "id bound to another url, skipped",
					slog.String("id", id),
					slog.String("url", e.Value),
				)
				continue
			}
			return report, fmt.Errorf("%s: %w", op, err)
		}

		report.Written++
	}

	return report, nil
}
