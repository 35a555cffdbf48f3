package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/model"
)

// TradeRepository is the only write path into the trades table.
type TradeRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewTradeRepository creates a new trade repository.
func NewTradeRepository(db *DB, log zerolog.Logger) *TradeRepository {
	return &TradeRepository{
		db:  db.Conn(),
		log: log.With().Str("repo", "trade").Logger(),
	}
}

// Insert writes one trade keyed by its dedup hash. Returns false when
// the hash already exists: the trade was ingested before (this run or
// an earlier one), which is a normal outcome, not an error.
func (r *TradeRepository) Insert(ctx context.Context, rec model.TradeRecord, sourceFormat model.SourceKind, confidence float64) (bool, error) {
	query := `
		INSERT INTO trades
		(politician_name, chamber, transaction_date, filing_date, ticker,
		 asset_name, asset_type, transaction_type, amount_range, owner,
		 comment, source_url, source_format, extraction_confidence,
		 date_corrected, dedup_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		strings.TrimSpace(rec.PoliticianName),
		string(rec.Chamber),
		rec.TransactionDate.Format(model.DateOnly),
		rec.FilingDate.Format(model.DateOnly),
		nullString(rec.Ticker),
		rec.AssetName,
		rec.AssetType,
		string(rec.TransactionType),
		rec.AmountRange,
		nullString(string(rec.Owner)),
		nullString(rec.Comment),
		rec.SourceURL,
		string(sourceFormat),
		confidence,
		boolToInt(rec.DateCorrected),
		rec.DedupHash(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert trade: %w", err)
	}

	r.log.Debug().
		Str("politician", rec.PoliticianName).
		Str("ticker", rec.Ticker).
		Str("type", string(rec.TransactionType)).
		Msg("trade inserted")
	return true, nil
}

// Count returns the total number of stored trades.
func (r *TradeRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM trades`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count trades: %w", err)
	}
	return count, nil
}

// GetByDateRange retrieves trades whose transaction date falls inside
// [start, end], oldest first. The analytics consumers read through this.
func (r *TradeRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]model.TradeRecord, error) {
	query := `
		SELECT politician_name, chamber, transaction_date, filing_date,
		       ticker, asset_name, asset_type, transaction_type,
		       amount_range, owner, comment, source_url, date_corrected
		FROM trades
		WHERE transaction_date >= ? AND transaction_date <= ?
		ORDER BY transaction_date ASC
	`
	return r.query(ctx, query, start.Format(model.DateOnly), end.Format(model.DateOnly))
}

// GetByPolitician retrieves all trades by one filer, newest first.
func (r *TradeRepository) GetByPolitician(ctx context.Context, name string) ([]model.TradeRecord, error) {
	query := `
		SELECT politician_name, chamber, transaction_date, filing_date,
		       ticker, asset_name, asset_type, transaction_type,
		       amount_range, owner, comment, source_url, date_corrected
		FROM trades
		WHERE politician_name = ?
		ORDER BY transaction_date DESC
	`
	return r.query(ctx, query, name)
}

// GetByTicker retrieves all trades in one symbol, newest first.
func (r *TradeRepository) GetByTicker(ctx context.Context, ticker string) ([]model.TradeRecord, error) {
	query := `
		SELECT politician_name, chamber, transaction_date, filing_date,
		       ticker, asset_name, asset_type, transaction_type,
		       amount_range, owner, comment, source_url, date_corrected
		FROM trades
		WHERE ticker = ?
		ORDER BY transaction_date DESC
	`
	return r.query(ctx, query, model.NormalizeTicker(ticker))
}

func (r *TradeRepository) query(ctx context.Context, query string, args ...interface{}) ([]model.TradeRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades: %w", err)
	}
	defer rows.Close()

	var trades []model.TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		trades = append(trades, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trades: %w", err)
	}
	return trades, nil
}

func scanTrade(rows *sql.Rows) (model.TradeRecord, error) {
	var rec model.TradeRecord
	var chamber, txDate, filingDate, txType string
	var ticker, owner, comment sql.NullString
	var corrected int

	err := rows.Scan(
		&rec.PoliticianName, &chamber, &txDate, &filingDate,
		&ticker, &rec.AssetName, &rec.AssetType, &txType,
		&rec.AmountRange, &owner, &comment, &rec.SourceURL, &corrected,
	)
	if err != nil {
		return rec, err
	}

	rec.Chamber = model.Chamber(chamber)
	rec.TransactionType = model.TransactionType(txType)
	rec.Ticker = ticker.String
	rec.Owner = model.Owner(owner.String)
	rec.Comment = comment.String
	rec.DateCorrected = corrected != 0
	if rec.TransactionDate, err = time.Parse(model.DateOnly, txDate); err != nil {
		return rec, err
	}
	if rec.FilingDate, err = time.Parse(model.DateOnly, filingDate); err != nil {
		return rec, err
	}
	return rec, nil
}

// isUniqueViolation detects the dedup-hash constraint firing.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
