package scan

import "time"

// BatchStatus is the lifecycle state of a batch.
type BatchStatus string

const (
	BatchStatusRunning   BatchStatus = "running"
	BatchStatusCompleted BatchStatus = "completed"
)

// Batch groups the domains of one scan request.
type Batch struct {
	ID            string      `json:"batch_id"`
	TotalURLs     int         `json:"total_urls"`
	MaxConcurrent int         `json:"max_concurrent"`
	Status        BatchStatus `json:"status"`
	Successful    int         `json:"successful"`
	Failed        int         `json:"failed"`
	CreatedAt     time.Time   `json:"created_at"`
	CompletedAt   *time.Time  `json:"completed_at,omitempty"`
}

// BatchDetail is a batch with everything recorded under it.
type BatchDetail struct {
	Batch
	Results  []Record  `json:"results"`
	Failures []Failure `json:"failures"`
}
