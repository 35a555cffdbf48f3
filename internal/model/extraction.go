package model

import "time"

// ExtractionResult is the transformer's output for one document: the
// typed records plus the extractor's own quality self-assessment.
type ExtractionResult struct {
	Records      []TradeRecord `json:"records"`
	SourceFormat SourceKind    `json:"source_format"`
	Confidence   float64       `json:"confidence"`

	// RawRecordCount is the extractor's count of records visible in the
	// source document, used to detect omissions (extracted < visible).
	RawRecordCount int `json:"raw_record_count"`
}

// LogStatus is the outcome recorded for one transform+load attempt.
type LogStatus string

const (
	LogSuccess      LogStatus = "success"
	LogPartial      LogStatus = "partial"
	LogManualReview LogStatus = "manual_review"
	LogFailed       LogStatus = "failed"
)

// ExtractionLog is one append-only audit row per transform+load attempt.
// Rows are never updated or deleted; they are the sole record of why a
// batch did or did not reach the canonical store.
type ExtractionLog struct {
	ID             int64
	SourceType     SourceKind
	SourceURL      string
	Confidence     float64
	RawRecordCount int
	ExtractedCount int
	Status         LogStatus
	ErrorMessage   string
	CreatedAt      time.Time
}

// LoadOutcome summarizes one loader invocation.
type LoadOutcome struct {
	New     int
	Skipped int
	Status  LogStatus
}

// RunStats aggregates an entire orchestrator run. A non-zero Failed
// alongside a non-zero New is a normal partial-success outcome.
type RunStats struct {
	New              int
	Skipped          int
	Failed           int
	SourcesProcessed []string
}
