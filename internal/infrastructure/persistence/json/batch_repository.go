package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	"github.com/khanhnv2901/seca-pqc/internal/security"
	"github.com/khanhnv2901/seca-pqc/internal/shared/constants"
	sharedErrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
)

const (
	batchesDir    = "batches"
	batchFileExt  = ".json"
	schemaVersion = 1
)

// batchFileDTO is the on-disk layout of one batch
type batchFileDTO struct {
	Version  int            `json:"version"`
	Batch    scan.Batch     `json:"batch"`
	Results  []scan.Record  `json:"results"`
	Failures []scan.Failure `json:"failures"`
}

// BatchRepository implements scan.Store with one JSON file per batch
type BatchRepository struct {
	resultsDir string
	now        func() time.Time
	mu         sync.RWMutex
}

// NewBatchRepository creates a new JSON-based batch repository
func NewBatchRepository(resultsDir string) (*BatchRepository, error) {
	if resultsDir == "" {
		return nil, fmt.Errorf("results directory cannot be empty")
	}

	dir := filepath.Join(resultsDir, batchesDir)
	if err := os.MkdirAll(dir, constants.DefaultDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create results directory: %w", err)
	}

	return &BatchRepository{
		resultsDir: resultsDir,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

func (r *BatchRepository) CreateBatch(ctx context.Context, batchID string, total, maxConcurrent int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.batchPath(batchID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", sharedErrors.ErrBatchAlreadyExists, batchID)
	}

	return r.write(path, &batchFileDTO{
		Version: schemaVersion,
		Batch: scan.Batch{
			ID:            batchID,
			TotalURLs:     total,
			MaxConcurrent: maxConcurrent,
			Status:        scan.BatchStatusRunning,
			CreatedAt:     r.now(),
		},
		Results:  []scan.Record{},
		Failures: []scan.Failure{},
	})
}

func (r *BatchRepository) SaveResult(ctx context.Context, result *scan.Result, batchID string) error {
	if result == nil {
		return fmt.Errorf("%w: nil result", sharedErrors.ErrInvalidInput)
	}
	return r.update(batchID, func(f *batchFileDTO) {
		f.Results = append(f.Results, scan.Record{
			BatchID: batchID,
			SavedAt: r.now(),
			Result:  *result,
		})
	})
}

func (r *BatchRepository) SaveFailure(ctx context.Context, failure scan.Failure) error {
	if failure.FailedAt.IsZero() {
		failure.FailedAt = r.now()
	}
	return r.update(failure.BatchID, func(f *batchFileDTO) {
		f.Failures = append(f.Failures, failure)
	})
}

func (r *BatchRepository) UpdateBatchStatus(ctx context.Context, batchID string, status scan.BatchStatus, successful, failed int) error {
	return r.update(batchID, func(f *batchFileDTO) {
		f.Batch.Status = status
		f.Batch.Successful = successful
		f.Batch.Failed = failed
		if status == scan.BatchStatusCompleted {
			completed := r.now()
			f.Batch.CompletedAt = &completed
		}
	})
}

func (r *BatchRepository) ListResults(ctx context.Context, filter scan.ResultFilter) ([]scan.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	var records []scan.Record
	for _, f := range files {
		if filter.BatchID != "" && f.Batch.ID != filter.BatchID {
			continue
		}
		for _, rec := range f.Results {
			if filter.Domain != "" && !strings.EqualFold(rec.URL, filter.Domain) {
				continue
			}
			records = append(records, rec)
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].SavedAt.After(records[j].SavedAt)
	})
	return paginate(records, filter.Limit, filter.Offset), nil
}

func (r *BatchRepository) ListBatches(ctx context.Context, limit, offset int) ([]scan.Batch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	files, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	batches := make([]scan.Batch, 0, len(files))
	for _, f := range files {
		batches = append(batches, f.Batch)
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].CreatedAt.After(batches[j].CreatedAt)
	})
	return paginate(batches, limit, offset), nil
}

func (r *BatchRepository) GetBatch(ctx context.Context, batchID string) (*scan.BatchDetail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path, err := r.batchPath(batchID)
	if err != nil {
		return nil, err
	}
	f, err := r.load(path)
	if err != nil {
		return nil, err
	}
	return &scan.BatchDetail{
		Batch:    f.Batch,
		Results:  f.Results,
		Failures: f.Failures,
	}, nil
}

func (r *BatchRepository) DeleteBatch(ctx context.Context, batchID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.batchPath(batchID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", sharedErrors.ErrBatchNotFound, batchID)
		}
		return fmt.Errorf("failed to delete batch: %w", err)
	}
	return nil
}

func (r *BatchRepository) Ping(ctx context.Context) error {
	info, err := os.Stat(filepath.Join(r.resultsDir, batchesDir))
	if err != nil {
		return fmt.Errorf("results directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("results path is not a directory: %s", r.resultsDir)
	}
	return nil
}

func (r *BatchRepository) Close() error { return nil }

func (r *BatchRepository) update(batchID string, mutate func(*batchFileDTO)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	path, err := r.batchPath(batchID)
	if err != nil {
		return err
	}
	f, err := r.load(path)
	if err != nil {
		return err
	}
	mutate(f)
	return r.write(path, f)
}

func (r *BatchRepository) batchPath(batchID string) (string, error) {
	if err := security.ValidateName(batchID); err != nil {
		return "", fmt.Errorf("%w: %v", sharedErrors.ErrInvalidBatchID, err)
	}
	return security.ResolveWithin(r.resultsDir, batchesDir, batchID+batchFileExt)
}

func (r *BatchRepository) load(path string) (*batchFileDTO, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			id := strings.TrimSuffix(filepath.Base(path), batchFileExt)
			return nil, fmt.Errorf("%w: %s", sharedErrors.ErrBatchNotFound, id)
		}
		return nil, fmt.Errorf("failed to read batch: %w", err)
	}

	var f batchFileDTO
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
	}
	if f.Results == nil {
		f.Results = []scan.Record{}
	}
	if f.Failures == nil {
		f.Failures = []scan.Failure{}
	}
	return &f, nil
}

func (r *BatchRepository) loadAll() ([]*batchFileDTO, error) {
	dir := filepath.Join(r.resultsDir, batchesDir)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory: %w", err)
	}

	var files []*batchFileDTO
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != batchFileExt {
			continue
		}
		f, err := r.load(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		files = append(files, f)
	}
	return files, nil
}

// write replaces the batch file atomically
func (r *BatchRepository) write(path string, f *batchFileDTO) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, constants.DefaultFilePerm); err != nil {
		return fmt.Errorf("failed to save batch: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to save batch: %w", err)
	}
	return nil
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
