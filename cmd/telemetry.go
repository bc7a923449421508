package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/khanhnv2901/seca-pqc/internal/api"
	consts "github.com/khanhnv2901/seca-pqc/internal/shared/constants"
)

const telemetryFilename = "telemetry.jsonl"

// telemetryLog appends one JSON line per finished batch and serves the most
// recent entries back to the API.
type telemetryLog struct {
	path string
	mu   sync.Mutex
}

func newTelemetryLog(resultsDir string) *telemetryLog {
	return &telemetryLog{path: filepath.Join(resultsDir, telemetryFilename)}
}

func (t *telemetryLog) Record(ctx context.Context, rec api.TelemetryRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, consts.DefaultFilePerm)
	if err != nil {
		return fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write telemetry: %w", err)
	}
	return nil
}

// Recent returns up to limit records, newest first. Malformed lines are
// skipped. A missing file yields an empty list.
func (t *telemetryLog) Recent(ctx context.Context, limit int) ([]api.TelemetryRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	f, err := os.Open(t.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []api.TelemetryRecord{}, nil
		}
		return nil, fmt.Errorf("open telemetry file: %w", err)
	}
	defer f.Close()

	var records []api.TelemetryRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec api.TelemetryRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read telemetry: %w", err)
	}

	if limit > 0 && len(records) > limit {
		records = records[len(records)-limit:]
	}
	out := make([]api.TelemetryRecord, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		out = append(out, records[i])
	}
	return out, nil
}
