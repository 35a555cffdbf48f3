package extract

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/model"
)

// filingLagTolerance is how far a transaction may trail its filing
// before the gap is treated as a year-rollover misread.
const filingLagTolerance = 60 * 24 * time.Hour

// correctDates applies the deterministic date-sanity pass to one
// record. A future transaction date, a transaction more than the
// tolerance after its filing, or a future filing date are all read as
// the common year-rollover misread and rolled back one year. The
// correction is best-effort: it is marked on the record so the loader
// counts it as an anomaly rather than a clean load.
func correctDates(rec *model.TradeRecord, now time.Time, log zerolog.Logger) {
	if rec.TransactionDate.After(now) {
		log.Warn().
			Str("politician", rec.PoliticianName).
			Time("transaction_date", rec.TransactionDate).
			Msg("transaction date in the future, rolling back one year")
		rec.TransactionDate = rec.TransactionDate.AddDate(-1, 0, 0)
		rec.DateCorrected = true
	}

	if !rec.FilingDate.IsZero() && rec.TransactionDate.After(rec.FilingDate.Add(filingLagTolerance)) {
		log.Warn().
			Str("politician", rec.PoliticianName).
			Time("transaction_date", rec.TransactionDate).
			Time("filing_date", rec.FilingDate).
			Msg("transaction date far past filing date, rolling back one year")
		rec.TransactionDate = rec.TransactionDate.AddDate(-1, 0, 0)
		rec.DateCorrected = true
	}

	if rec.FilingDate.After(now) {
		log.Warn().
			Str("politician", rec.PoliticianName).
			Time("filing_date", rec.FilingDate).
			Msg("filing date in the future, rolling back one year")
		rec.FilingDate = rec.FilingDate.AddDate(-1, 0, 0)
		rec.DateCorrected = true
	}
}
