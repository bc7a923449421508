package scan

import (
	"encoding/json"
	"time"
)

// Result status values.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	ScanStatusOK    = "success"
)

// Result is a completed single-domain scan in the shape served to clients.
type Result struct {
	RequestID            string          `json:"request_id"`
	URL                  string          `json:"url"`
	Status               string          `json:"status"`
	RequestedAt          time.Time       `json:"requested_at"`
	TotalURLs            int             `json:"total_urls"`
	ScanStatus           string          `json:"scan_status"`
	TLSVersion           string          `json:"tls_version"`
	PublicKeySizeBits    *int            `json:"public_key_size_bits"`
	CipherSuiteName      string          `json:"cipher_suite_name"`
	CipherProtocol       string          `json:"cipher_protocol"`
	CipherStrengthBits   *int            `json:"cipher_strength_bits"`
	EphemeralKeyExchange bool            `json:"ephemeral_key_exchange"`
	PublicKeyAlgorithm   *string         `json:"public_key_algorithm"`
	CTPresent            bool            `json:"ct_present"`
	QuantumScore         float64         `json:"quantum_score"`
	QuantumGrade         string          `json:"quantum_grade"`
	RawResponse          json.RawMessage `json:"raw_response"`
	ScanMetadata         Metadata        `json:"scan_metadata"`
	ExecutionTimeSeconds float64         `json:"execution_time_seconds"`
}

// Metadata records how a result was obtained.
type Metadata struct {
	Attempt   int       `json:"attempt"`
	Cached    bool      `json:"cached"`
	Timestamp time.Time `json:"timestamp"`
}

// Failure is a domain that could not be scanned.
type Failure struct {
	Domain    string    `json:"domain"`
	Error     string    `json:"error"`
	BatchID   string    `json:"batch_id"`
	RequestID string    `json:"request_id"`
	FailedAt  time.Time `json:"failed_at"`
}

// Record is a persisted result with its batch.
type Record struct {
	BatchID string    `json:"batch_id"`
	SavedAt time.Time `json:"saved_at"`
	Result
}
