package metadata

import (
	"context"
	"fmt"

	"github.com/DanielHemmis/BggCollections/internal/catalog"
	"github.com/DanielHemmis/BggCollections/pkg/logger"
	"github.com/DanielHemmis/BggCollections/pkg/metrics"
	"go.uber.org/multierr"
)

// DefaultBatchSize is the number of ids BoardGameGeek accepts per thing call.
const DefaultBatchSize = 20

// Lookup fetches metadata for a batch of games. Implementations may return
// fewer records than ids, and may return the records they did get together
// with an error.
type Lookup interface {
	LookupBatch(ctx context.Context, ids []catalog.GameID) ([]catalog.GameMetadata, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, ids []catalog.GameID) ([]catalog.GameMetadata, error)

func (f LookupFunc) LookupBatch(ctx context.Context, ids []catalog.GameID) ([]catalog.GameMetadata, error) {
	return f(ctx, ids)
}

// ProgressFunc observes how many games have been resolved out of total.
type ProgressFunc func(resolved, total int)

// ResolverParams configure a Resolver.
type ResolverParams struct {
	Lookup    Lookup
	BatchSize int
	Logger    *logger.Logger
	Metrics   *metrics.AggregationMetrics
}

// Resolver turns a user's owned ids into metadata, one batch at a time.
type Resolver struct {
	lookup    Lookup
	batchSize int
	logg      *logger.Logger
	metrics   *metrics.AggregationMetrics
}

// NewResolver builds a batch resolver.
func NewResolver(params ResolverParams) (*Resolver, error) {
	if params.Lookup == nil {
		return nil, fmt.Errorf("metadata lookup required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Resolver{
		lookup:    params.Lookup,
		batchSize: batchSize,
		logg:      logg,
		metrics:   params.Metrics,
	}, nil
}

// BatchError records one failed batch.
type BatchError struct {
	Index int
	IDs   []catalog.GameID
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("metadata batch %d (%d ids): %v", e.Index, len(e.IDs), e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Result is the metadata gathered for one user. Look games up by id; the
// order in which the source answered is not kept.
type Result struct {
	found     map[catalog.GameID]catalog.GameMetadata
	failed    []*BatchError
	requested int
}

// Get returns the metadata for id. ok is false when no metadata was found,
// whether the game was unknown to the source or its batch failed.
func (r Result) Get(id catalog.GameID) (catalog.GameMetadata, bool) {
	meta, ok := r.found[id]
	return meta, ok
}

// Len is the number of games with metadata.
func (r Result) Len() int { return len(r.found) }

// Requested is the number of ids asked for.
func (r Result) Requested() int { return r.requested }

// Failures lists the batches that could not be fetched.
func (r Result) Failures() []*BatchError { return r.failed }

// Err combines the batch failures, or is nil when every batch succeeded.
func (r Result) Err() error {
	var err error
	for _, failure := range r.failed {
		err = multierr.Append(err, failure)
	}
	return err
}

// Resolve requests metadata for ids in fixed-size batches. A failed batch is
// logged and skipped; the rest are still fetched. The optional progress
// callback sees the running count after each batch.
func (r *Resolver) Resolve(ctx context.Context, ids []catalog.GameID, progress ProgressFunc) Result {
	result := Result{
		found:     make(map[catalog.GameID]catalog.GameMetadata, len(ids)),
		requested: len(ids),
	}
	for index, batch := range Chunk(ids, r.batchSize) {
		records, err := r.lookup.LookupBatch(ctx, batch)
		if err != nil {
			failure := &BatchError{Index: index, IDs: batch, Err: err}
			result.failed = append(result.failed, failure)
			r.metrics.IncBatch(metrics.ResultFailed)
			batchCtx := r.logg.WithFields(ctx, map[string]any{
				"batch_index": index,
				"batch_size":  len(batch),
			})
			r.logg.Error(batchCtx, "metadata batch failed", err)
		} else {
			r.metrics.IncBatch(metrics.ResultOK)
		}
		for _, record := range records {
			result.found[record.GameID] = record
		}
		if progress != nil {
			progress(len(result.found), len(ids))
		}
	}
	return result
}

// Chunk splits ids into consecutive slices of at most size elements.
func Chunk(ids []catalog.GameID, size int) [][]catalog.GameID {
	if size <= 0 {
		size = DefaultBatchSize
	}
	chunks := make([][]catalog.GameID, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end:end])
	}
	return chunks
}
