package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
	sharedErrors "github.com/khanhnv2901/seca-pqc/internal/shared/errors"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	defaultMaxConns = 10

	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Config configures the Postgres store.
type Config struct {
	DSN            string
	MaxConns       int32
	SkipMigrations bool
	Logger         *zap.Logger
}

// Store implements scan.Store on PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Connect opens a pool, verifies it and applies pending migrations.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	pcfg.MaxConns = defaultMaxConns
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	pcfg.HealthCheckPeriod = 30 * time.Second

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := &Store{pool: pool, logger: logger}
	if !cfg.SkipMigrations {
		if err := s.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

// Migrations returns the embedded migration files.
func Migrations() (fs.FS, error) {
	return fs.Sub(migrationsFS, "migrations")
}

// Migrate applies every pending migration.
func (s *Store) Migrate(ctx context.Context) error {
	fsys, err := Migrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Info("applied migration",
			zap.Int64("version", r.Source.Version),
			zap.String("file", r.Source.Path),
			zap.Duration("duration", r.Duration))
	}
	return nil
}

func (s *Store) CreateBatch(ctx context.Context, batchID string, total, maxConcurrent int) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_batches (batch_id, total_urls, max_concurrent, status)
		VALUES ($1, $2, $3, $4)
	`, batchID, total, maxConcurrent, string(scan.BatchStatusRunning))
	return mapError(err, batchID)
}

func (s *Store) SaveResult(ctx context.Context, result *scan.Result, batchID string) error {
	if result == nil {
		return fmt.Errorf("%w: nil result", sharedErrors.ErrInvalidInput)
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("%w: %v", sharedErrors.ErrSerializationFailed, err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO scan_results (batch_id, request_id, url, quantum_score, quantum_grade, result)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, batchID, result.RequestID, result.URL, result.QuantumScore, result.QuantumGrade, payload)
	return mapError(err, batchID)
}

func (s *Store) SaveFailure(ctx context.Context, failure scan.Failure) error {
	failedAt := failure.FailedAt
	if failedAt.IsZero() {
		failedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO scan_failures (batch_id, request_id, domain, error, failed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, failure.BatchID, failure.RequestID, failure.Domain, failure.Error, failedAt)
	return mapError(err, failure.BatchID)
}

func (s *Store) UpdateBatchStatus(ctx context.Context, batchID string, status scan.BatchStatus, successful, failed int) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE scan_batches
		SET status = $2,
		    successful = $3,
		    failed = $4,
		    completed_at = CASE WHEN $2 = 'completed' THEN now() ELSE completed_at END
		WHERE batch_id = $1
	`, batchID, string(status), successful, failed)
	if err != nil {
		return mapError(err, batchID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", sharedErrors.ErrBatchNotFound, batchID)
	}
	return nil
}

func (s *Store) ListResults(ctx context.Context, filter scan.ResultFilter) ([]scan.Record, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT batch_id, saved_at, result
		FROM scan_results
		WHERE ($1 = '' OR lower(url) = lower($1))
		  AND ($2 = '' OR batch_id = $2)
		ORDER BY saved_at DESC, id DESC
		LIMIT $3 OFFSET $4
	`, filter.Domain, filter.BatchID, limitArg(filter.Limit), offsetArg(filter.Offset))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	return collectRecords(rows)
}

func (s *Store) ListBatches(ctx context.Context, limit, offset int) ([]scan.Batch, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT batch_id, total_urls, max_concurrent, status, successful, failed, created_at, completed_at
		FROM scan_batches
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limitArg(limit), offsetArg(offset))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	defer rows.Close()

	batches := []scan.Batch{}
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	return batches, rows.Err()
}

func (s *Store) GetBatch(ctx context.Context, batchID string) (*scan.BatchDetail, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT batch_id, total_urls, max_concurrent, status, successful, failed, created_at, completed_at
		FROM scan_batches
		WHERE batch_id = $1
	`, batchID)
	b, err := scanBatch(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", sharedErrors.ErrBatchNotFound, batchID)
	}
	if err != nil {
		return nil, err
	}

	records, err := s.ListResults(ctx, scan.ResultFilter{BatchID: batchID})
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT domain, error, batch_id, request_id, failed_at
		FROM scan_failures
		WHERE batch_id = $1
		ORDER BY failed_at, id
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
	}
	defer rows.Close()

	failures := []scan.Failure{}
	for rows.Next() {
		var f scan.Failure
		if err := rows.Scan(&f.Domain, &f.Error, &f.BatchID, &f.RequestID, &f.FailedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &scan.BatchDetail{Batch: b, Results: records, Failures: failures}, nil
}

func (s *Store) DeleteBatch(ctx context.Context, batchID string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM scan_batches WHERE batch_id = $1`, batchID)
	if err != nil {
		return mapError(err, batchID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", sharedErrors.ErrBatchNotFound, batchID)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func scanBatch(row pgx.Row) (scan.Batch, error) {
	var (
		b      scan.Batch
		status string
	)
	err := row.Scan(&b.ID, &b.TotalURLs, &b.MaxConcurrent, &status, &b.Successful, &b.Failed, &b.CreatedAt, &b.CompletedAt)
	if err != nil {
		return scan.Batch{}, err
	}
	b.Status = scan.BatchStatus(status)
	return b, nil
}

func collectRecords(rows pgx.Rows) ([]scan.Record, error) {
	defer rows.Close()
	records := []scan.Record{}
	for rows.Next() {
		var (
			rec     scan.Record
			payload []byte
		)
		if err := rows.Scan(&rec.BatchID, &rec.SavedAt, &payload); err != nil {
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
		}
		if err := json.Unmarshal(payload, &rec.Result); err != nil {
			return nil, fmt.Errorf("%w: %v", sharedErrors.ErrDeserializationFailed, err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// mapError translates constraint violations into domain errors.
func mapError(err error, batchID string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", sharedErrors.ErrBatchAlreadyExists, batchID)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s", sharedErrors.ErrBatchNotFound, batchID)
		}
	}
	return fmt.Errorf("%w: %v", sharedErrors.ErrRepositoryOperation, err)
}

// limitArg maps a non-positive limit to NULL, which Postgres treats as
// LIMIT ALL.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func offsetArg(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
