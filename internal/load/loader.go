package load

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/model"
	"github.com/nkoval/tradefeed/internal/store"
)

// filingLagTolerance bounds how far a transaction may trail its filing.
// Disclosure rules give filers 45 days; beyond 60 the dates are suspect.
const filingLagTolerance = 60 * 24 * time.Hour

// Loader is the confidence gate in front of the canonical store. A
// batch either clears the gate and loads record by record, or is held
// back whole for manual review. Either way an audit row is appended.
type Loader struct {
	trades    *store.TradeRepository
	logs      *store.LogRepository
	threshold float64
	now       func() time.Time
	log       zerolog.Logger
}

// NewLoader creates a loader with the given confidence threshold.
func NewLoader(trades *store.TradeRepository, logs *store.LogRepository, threshold float64, log zerolog.Logger) *Loader {
	return &Loader{
		trades:    trades,
		logs:      logs,
		threshold: threshold,
		now:       time.Now,
		log:       log.With().Str("component", "loader").Logger(),
	}
}

// checkRecord applies the loader's own business rules to one record.
// The returned anomalies never block the load; they downgrade the batch
// status so the audit row flags it. The checks are independent of the
// transformer's date pass, so records arriving on paths that skip it
// (structured XML) are still inspected.
func (l *Loader) checkRecord(rec model.TradeRecord, now time.Time) []string {
	var anomalies []string
	if rec.DateCorrected {
		anomalies = append(anomalies, "corrected date")
	}
	if rec.TransactionDate.After(now) || rec.FilingDate.After(now) {
		anomalies = append(anomalies, "future date")
	}
	if rec.TransactionDate.After(rec.FilingDate.Add(filingLagTolerance)) {
		anomalies = append(anomalies, "transaction past filing tolerance")
	}
	return anomalies
}

// Load writes one extraction batch into the store. Batches below the
// confidence threshold are not written at all; their records count as
// skipped and the audit row carries manual_review so an operator can
// pick them up later. Duplicate records are skips, not errors, which
// makes re-running a window over already-ingested data a no-op.
func (l *Loader) Load(ctx context.Context, result model.ExtractionResult, sourceURL string) (model.LoadOutcome, error) {
	if result.Confidence < l.threshold {
		l.log.Warn().
			Str("source", string(result.SourceFormat)).
			Str("url", sourceURL).
			Float64("confidence", result.Confidence).
			Float64("threshold", l.threshold).
			Msg("batch held for manual review")

		outcome := model.LoadOutcome{Skipped: len(result.Records), Status: model.LogManualReview}
		err := l.logs.Append(ctx, model.ExtractionLog{
			SourceType:     result.SourceFormat,
			SourceURL:      sourceURL,
			Confidence:     result.Confidence,
			RawRecordCount: result.RawRecordCount,
			ExtractedCount: len(result.Records),
			Status:         model.LogManualReview,
			ErrorMessage:   fmt.Sprintf("confidence %.2f below threshold %.2f", result.Confidence, l.threshold),
		})
		return outcome, err
	}

	var outcome model.LoadOutcome
	now := l.now()
	anomalies := 0
	anomalyCounts := map[string]int{}
	for _, rec := range result.Records {
		if found := l.checkRecord(rec, now); len(found) > 0 {
			anomalies++
			for _, a := range found {
				anomalyCounts[a]++
			}
			l.log.Warn().
				Str("politician", rec.PoliticianName).
				Str("url", sourceURL).
				Strs("anomalies", found).
				Msg("record loaded with anomalies")
		}
		inserted, err := l.trades.Insert(ctx, rec, result.SourceFormat, result.Confidence)
		if err != nil {
			outcome.Status = model.LogFailed
			logErr := l.logs.Append(ctx, model.ExtractionLog{
				SourceType:     result.SourceFormat,
				SourceURL:      sourceURL,
				Confidence:     result.Confidence,
				RawRecordCount: result.RawRecordCount,
				ExtractedCount: len(result.Records),
				Status:         model.LogFailed,
				ErrorMessage:   err.Error(),
			})
			if logErr != nil {
				l.log.Error().Err(logErr).Msg("failed to append audit row for failed load")
			}
			return outcome, fmt.Errorf("failed to load batch from %s: %w", sourceURL, err)
		}
		if inserted {
			outcome.New++
		} else {
			outcome.Skipped++
		}
	}

	outcome.Status = model.LogSuccess
	var notes []string
	if anomalies > 0 {
		outcome.Status = model.LogPartial
		for _, kind := range []string{"corrected date", "future date", "transaction past filing tolerance"} {
			if n := anomalyCounts[kind]; n > 0 {
				notes = append(notes, fmt.Sprintf("%d record(s) with %s", n, kind))
			}
		}
	}
	if result.RawRecordCount > len(result.Records) {
		outcome.Status = model.LogPartial
		notes = append(notes, fmt.Sprintf("extracted %d of %d visible records", len(result.Records), result.RawRecordCount))
	}
	errMsg := strings.Join(notes, "; ")

	if err := l.logs.Append(ctx, model.ExtractionLog{
		SourceType:     result.SourceFormat,
		SourceURL:      sourceURL,
		Confidence:     result.Confidence,
		RawRecordCount: result.RawRecordCount,
		ExtractedCount: len(result.Records),
		Status:         outcome.Status,
		ErrorMessage:   errMsg,
	}); err != nil {
		return outcome, err
	}

	l.log.Info().
		Str("source", string(result.SourceFormat)).
		Int("new", outcome.New).
		Int("skipped", outcome.Skipped).
		Str("status", string(outcome.Status)).
		Msg("batch loaded")
	return outcome, nil
}

// LogFailure records a batch that never produced an extraction result,
// so failures upstream of the gate still leave an audit trail.
func (l *Loader) LogFailure(ctx context.Context, kind model.SourceKind, sourceURL string, cause error) error {
	return l.logs.Append(ctx, model.ExtractionLog{
		SourceType:   kind,
		SourceURL:    sourceURL,
		Status:       model.LogFailed,
		ErrorMessage: cause.Error(),
	})
}
