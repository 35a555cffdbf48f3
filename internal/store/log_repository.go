package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/model"
)

// LogRepository appends to the extraction audit trail. Rows are never
// updated or deleted.
type LogRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewLogRepository creates a new extraction-log repository.
func NewLogRepository(db *DB, log zerolog.Logger) *LogRepository {
	return &LogRepository{
		db:  db.Conn(),
		log: log.With().Str("repo", "extraction_log").Logger(),
	}
}

// Append records one transform+load attempt.
func (r *LogRepository) Append(ctx context.Context, entry model.ExtractionLog) error {
	query := `
		INSERT INTO extraction_log
		(source_type, source_url, confidence, raw_record_count,
		 extracted_count, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		string(entry.SourceType),
		entry.SourceURL,
		entry.Confidence,
		entry.RawRecordCount,
		entry.ExtractedCount,
		string(entry.Status),
		nullString(entry.ErrorMessage),
		createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to append extraction log: %w", err)
	}
	return nil
}

// Recent returns the newest limit entries, newest first.
func (r *LogRepository) Recent(ctx context.Context, limit int) ([]model.ExtractionLog, error) {
	query := `
		SELECT id, source_type, source_url, confidence, raw_record_count,
		       extracted_count, status, error_message, created_at
		FROM extraction_log
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query extraction log: %w", err)
	}
	defer rows.Close()

	var entries []model.ExtractionLog
	for rows.Next() {
		var entry model.ExtractionLog
		var sourceType, status, createdAt string
		var errMsg sql.NullString
		err := rows.Scan(
			&entry.ID, &sourceType, &entry.SourceURL, &entry.Confidence,
			&entry.RawRecordCount, &entry.ExtractedCount, &status,
			&errMsg, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan extraction log: %w", err)
		}
		entry.SourceType = model.SourceKind(sourceType)
		entry.Status = model.LogStatus(status)
		entry.ErrorMessage = errMsg.String
		if entry.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
			return nil, fmt.Errorf("failed to parse extraction log timestamp: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating extraction log: %w", err)
	}
	return entries, nil
}

// CountByStatus returns how many log entries carry the given status.
func (r *LogRepository) CountByStatus(ctx context.Context, status model.LogStatus) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM extraction_log WHERE status = ?`,
		string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count extraction log: %w", err)
	}
	return count, nil
}
