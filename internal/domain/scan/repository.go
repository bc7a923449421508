package scan

import "context"

// Recorder is the write side used while a scan runs. Implementations may
// fail; callers log the error and carry on.
type Recorder interface {
	CreateBatch(ctx context.Context, batchID string, total, maxConcurrent int) error
	SaveResult(ctx context.Context, result *Result, batchID string) error
	SaveFailure(ctx context.Context, failure Failure) error
	UpdateBatchStatus(ctx context.Context, batchID string, status BatchStatus, successful, failed int) error
}

// ResultFilter narrows ListResults.
type ResultFilter struct {
	Domain  string
	BatchID string
	Limit   int
	Offset  int
}

// Store is the full persistence port.
type Store interface {
	Recorder

	// ListResults returns stored results, newest first
	ListResults(ctx context.Context, filter ResultFilter) ([]Record, error)

	// ListBatches returns batches, newest first
	ListBatches(ctx context.Context, limit, offset int) ([]Batch, error)

	// GetBatch returns a batch with its results and failures
	GetBatch(ctx context.Context, batchID string) (*BatchDetail, error)

	// DeleteBatch removes a batch and everything recorded under it
	DeleteBatch(ctx context.Context, batchID string) error

	// Ping reports whether the backend is reachable
	Ping(ctx context.Context) error

	Close() error
}
