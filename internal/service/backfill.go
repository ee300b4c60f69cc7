package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sofia/artdex/internal/domain"
	"github.com/sofia/artdex/internal/logger"
	"github.com/sofia/artdex/internal/repository"
)

// DefaultBatch is the bounded-concurrency window width: how many reindex
// operations run at once during a backfill.
const DefaultBatch = 5

// Backfill sweeps the corpus for entities missing an embedding record and
// repairs them through the same Reindexer the inline path uses. A run is
// Discover -> Dispatch -> Drain -> Report; failed items stay missing and
// are picked up again by the next run.
type Backfill struct {
	embeddings *repository.EmbeddingRepository
	reindexer  *Reindexer
	logger     *logger.Logger
}

// NewBackfill creates a Backfill over the vector store and reindexer.
func NewBackfill(embeddings *repository.EmbeddingRepository, reindexer *Reindexer, log *logger.Logger) *Backfill {
	return &Backfill{
		embeddings: embeddings,
		reindexer:  reindexer,
		logger:     log,
	}
}

// BackfillOptions controls a single run.
type BackfillOptions struct {
	// Kinds to process, in order. Empty means all kinds.
	Kinds []domain.EntityKind
	// Batch is the concurrency window width. Zero means DefaultBatch.
	Batch int
	// Limit caps discovery per kind. Zero means unbounded.
	Limit int
	// IDs restricts the run to an explicit work list instead of
	// discovery. Requires exactly one kind.
	IDs []string
}

// KindStats accumulates per-kind outcome counts for one run.
type KindStats struct {
	Attempted int64
	Completed int64
	Skipped   int64
	Failed    int64
}

// BackfillStats is the run report.
type BackfillStats struct {
	PerKind   map[domain.EntityKind]*KindStats
	StartTime time.Time
	EndTime   time.Time
}

// Failed reports the total failure count across kinds.
func (s *BackfillStats) Failed() int64 {
	var n int64
	for _, ks := range s.PerKind {
		n += ks.Failed
	}
	return n
}

// Run executes one backfill sweep. Per-item failures are logged and
// counted but never abort the run; only discovery failures are fatal.
// Cancellation is honored between windows, so in-flight items of the
// current window always finish.
func (b *Backfill) Run(ctx context.Context, opts BackfillOptions) (*BackfillStats, error) {
	kinds := opts.Kinds
	if len(kinds) == 0 {
		kinds = domain.AllKinds()
	}
	if len(opts.IDs) > 0 && len(kinds) != 1 {
		return nil, fmt.Errorf("an explicit id list requires exactly one kind, got %d", len(kinds))
	}
	batch := opts.Batch
	if batch <= 0 {
		batch = DefaultBatch
	}

	stats := &BackfillStats{
		PerKind:   make(map[domain.EntityKind]*KindStats, len(kinds)),
		StartTime: time.Now(),
	}

	log := logger.FromContext(ctx)
	log.WithFields(logger.Fields{
		"kinds": kinds,
		"batch": batch,
		"limit": opts.Limit,
	}).Info("Backfill starting")

	for _, kind := range kinds {
		if ctx.Err() != nil {
			break
		}

		var ids []string
		var err error
		if len(opts.IDs) > 0 {
			ids = opts.IDs
		} else {
			ids, err = b.embeddings.FindMissing(ctx, kind, opts.Limit)
			if err != nil {
				// Discovery failure is the one fatal condition.
				return nil, fmt.Errorf("backfill discovery failed for %s: %w", kind, err)
			}
		}

		ks := &KindStats{}
		stats.PerKind[kind] = ks
		log.WithFields(logger.Fields{
			logger.FieldKind:  string(kind),
			logger.FieldCount: len(ids),
		}).Info("Backfill work list discovered")

		b.drainKind(ctx, kind, ids, batch, ks)

		log.WithFields(logger.Fields{
			logger.FieldKind: string(kind),
			"attempted":      ks.Attempted,
			"completed":      ks.Completed,
			"skipped":        ks.Skipped,
			"failed":         ks.Failed,
		}).Info("Backfill kind drained")
	}

	stats.EndTime = time.Now()
	log.WithFields(logger.Fields{
		logger.FieldDurationMs: stats.EndTime.Sub(stats.StartTime).Milliseconds(),
		"failed":               stats.Failed(),
	}).Info("Backfill completed")

	return stats, nil
}

// drainKind dispatches the work list in fixed windows of batch items.
// Discovery order is preserved into dispatch order; completion order
// within a window is not defined. The next window starts only after the
// current one fully drains.
func (b *Backfill) drainKind(ctx context.Context, kind domain.EntityKind, ids []string, batch int, ks *KindStats) {
	for start := 0; start < len(ids); start += batch {
		if ctx.Err() != nil {
			return
		}

		end := start + batch
		if end > len(ids) {
			end = len(ids)
		}

		var wg sync.WaitGroup
		for _, id := range ids[start:end] {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				atomic.AddInt64(&ks.Attempted, 1)

				err := b.reindexer.Reindex(ctx, id, kind)
				switch {
				case err == nil:
					atomic.AddInt64(&ks.Completed, 1)
				case errors.Is(err, domain.ErrNotFound):
					// Entity vanished between discovery and processing.
					atomic.AddInt64(&ks.Skipped, 1)
				default:
					atomic.AddInt64(&ks.Failed, 1)
					logger.FromContext(ctx).WithFields(logger.Fields{
						logger.FieldKind:     string(kind),
						logger.FieldEntityID: id,
					}).WithError(err).Error("Backfill item failed")
				}
			}(id)
		}
		wg.Wait()
	}
}
