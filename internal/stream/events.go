package stream

import (
	"time"

	"github.com/khanhnv2901/seca-pqc/internal/domain/scan"
)

// Type names a progress event on the wire.
type Type string

const (
	TypeStart            Type = "start"
	TypeDomainOffline    Type = "domain_offline"
	TypeCancelled        Type = "cancelled"
	TypeRoundStart       Type = "round_start"
	TypeDomainProcessing Type = "domain_processing"
	TypeDomainComplete   Type = "domain_complete"
	TypeRoundComplete    Type = "round_complete"
	TypeRetryWait        Type = "retry_wait"
	TypeComplete         Type = "complete"
)

// Domain statuses reported in events.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// Event is any progress event.
type Event interface {
	EventType() Type
}

// Totals are the running counters of a run at the time an event was emitted.
type Totals struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// Header is embedded in every event.
type Header struct {
	Type      Type      `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Totals    Totals    `json:"totals"`
}

// EventType implements Event.
func (h Header) EventType() Type { return h.Type }

// NewHeader stamps an event header.
func NewHeader(t Type, at time.Time, totals Totals) Header {
	return Header{Type: t, Timestamp: at, Totals: totals}
}

type Start struct {
	Header
	RequestID    string `json:"request_id"`
	BatchID      string `json:"batch_id"`
	TotalDomains int    `json:"total_domains"`
	SaveToDB     bool   `json:"save_to_db"`
	MaxRounds    int    `json:"max_rounds"`
}

type DomainOffline struct {
	Header
	Domain string `json:"domain"`
	Error  string `json:"error"`
}

type Cancelled struct {
	Header
	Message string `json:"message"`
}

type RoundStart struct {
	Header
	Round          int `json:"round"`
	DomainsInRound int `json:"domains_in_round"`
}

type DomainProcessing struct {
	Header
	Domain    string    `json:"domain"`
	Status    string    `json:"status"`
	Round     int       `json:"round"`
	StartedAt time.Time `json:"started_at"`
}

// Counts is the success/failure tally carried by domain_complete.
type Counts struct {
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type DomainComplete struct {
	Header
	Domain             string       `json:"domain"`
	Status             string       `json:"status"`
	Round              int          `json:"round"`
	Duration           float64      `json:"duration"`
	Completed          int          `json:"completed"`
	Total              int          `json:"total"`
	Percentage         float64      `json:"percentage"`
	Result             *scan.Result `json:"result,omitempty"`
	Error              string       `json:"error,omitempty"`
	SavedToDB          bool         `json:"saved_to_db"`
	RoundStartTime     time.Time    `json:"round_start_time"`
	DomainStartTime    time.Time    `json:"domain_start_time"`
	TimeInCurrentRound float64      `json:"time_in_current_round"`
	Summary            Counts       `json:"summary"`
}

type RoundComplete struct {
	Header
	Round            int     `json:"round"`
	Duration         float64 `json:"duration"`
	DomainsProcessed int     `json:"domains_processed"`
}

type RetryWait struct {
	Header
	Round          int     `json:"round"`
	NextRound      int     `json:"next_round"`
	DomainsToRetry int     `json:"domains_to_retry"`
	Delay          float64 `json:"delay"`
}

// DomainStatus is the final state of one domain in a complete event.
type DomainStatus struct {
	Status   string       `json:"status"`
	Round    int          `json:"round"`
	Duration *float64     `json:"duration,omitempty"`
	Error    string       `json:"error,omitempty"`
	Result   *scan.Result `json:"result,omitempty"`
}

// RoundRecord summarises one executed round.
type RoundRecord struct {
	Round            int     `json:"round"`
	DomainsProcessed int     `json:"domains_processed"`
	Successful       int     `json:"successful"`
	Failed           int     `json:"failed"`
	Duration         float64 `json:"duration"`
	Status           string  `json:"status"`
}

// RunSummary counts the final outcome of a run.
type RunSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

type Complete struct {
	Header
	RequestID         string                  `json:"request_id"`
	BatchID           string                  `json:"batch_id"`
	SavedToDB         bool                    `json:"saved_to_db"`
	TotalDuration     float64                 `json:"total_duration"`
	RoundsCompleted   int                     `json:"rounds_completed"`
	Summary           RunSummary              `json:"summary"`
	SuccessfulDomains []string                `json:"successful_domains"`
	FailedDomains     []string                `json:"failed_domains"`
	AllDomainsStatus  map[string]DomainStatus `json:"all_domains_status"`
	RoundHistory      []RoundRecord           `json:"scanRoundHistory"`
}
