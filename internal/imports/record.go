package imports

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state of an ingestion run. Transitions are
// one-directional: pending -> processing -> completed|failed.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Terminal reports whether the status is final.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Record tracks one ingestion run. Once the status is terminal,
// ProcessedRows equals SuccessfulRows + FailedRows; all counters only
// increase while processing.
type Record struct {
	ID             string          `db:"id" json:"id"`
	Filename       string          `db:"filename" json:"filename"`
	BrandID        string          `db:"brand_id" json:"brand_id"`
	Status         Status          `db:"status" json:"status"`
	TotalRows      int             `db:"total_rows" json:"total_rows"`
	ProcessedRows  int             `db:"processed_rows" json:"processed_rows"`
	SuccessfulRows int             `db:"successful_rows" json:"successful_rows"`
	FailedRows     int             `db:"failed_rows" json:"failed_rows"`
	ErrorMessage   string          `db:"error_message" json:"error_message,omitempty"`
	Metadata       json.RawMessage `db:"metadata" json:"metadata,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}
