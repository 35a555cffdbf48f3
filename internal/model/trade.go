package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Chamber identifies which congressional body a filer belongs to
type Chamber string

const (
	ChamberSenate Chamber = "Senate"
	ChamberHouse  Chamber = "House"
)

// TransactionType classifies the reported transaction
type TransactionType string

const (
	TxBuy      TransactionType = "Buy"
	TxSale     TransactionType = "Sale"
	TxExchange TransactionType = "Exchange"
)

// Owner identifies on whose behalf the trade was made
type Owner string

const (
	OwnerSelf   Owner = "Self"
	OwnerSpouse Owner = "Spouse"
	OwnerChild  Owner = "Child"
	OwnerJoint  Owner = "Joint"
)

// DateOnly is the canonical date layout for all disclosure dates
const DateOnly = "2006-01-02"

// TradeRecord is the canonical unit of ingested disclosure data.
// Ticker and Owner are empty when unknown; Comment is free text.
type TradeRecord struct {
	PoliticianName  string          `json:"politician_name"`
	Chamber         Chamber         `json:"chamber"`
	TransactionDate time.Time       `json:"transaction_date"`
	FilingDate      time.Time       `json:"filing_date"`
	Ticker          string          `json:"ticker,omitempty"`
	AssetName       string          `json:"asset_name"`
	AssetType       string          `json:"asset_type"`
	TransactionType TransactionType `json:"transaction_type"`
	AmountRange     string          `json:"amount_range"`
	Owner           Owner           `json:"owner,omitempty"`
	Comment         string          `json:"comment,omitempty"`
	SourceURL       string          `json:"source_url"`

	// DateCorrected is set when the year-rollback sanity pass touched
	// either date. Corrected records load normally but count as anomalies.
	DateCorrected bool `json:"date_corrected,omitempty"`
}

// DedupHash fingerprints the five identity fields of a trade. The hash,
// not a surrogate key, is the identity used for idempotent writes:
// re-ingesting the same disclosure always produces the same hash.
func (t *TradeRecord) DedupHash() string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(t.PoliticianName)),
		t.TransactionDate.Format(DateOnly),
		t.Ticker,
		strings.TrimSpace(t.AmountRange),
		string(t.TransactionType),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// tickerPlaceholders are values upstream sources use for "no ticker"
var tickerPlaceholders = map[string]bool{
	"": true, "-": true, "--": true, "N/A": true, "NA": true,
	"NONE": true, "TBD": true, "UNKNOWN": true,
}

// NormalizeTicker uppercases a ticker and collapses placeholder values
// to the empty string.
func NormalizeTicker(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if tickerPlaceholders[s] {
		return ""
	}
	return s
}

// ValidChamber reports whether s is an exact chamber enum value.
func ValidChamber(s string) bool {
	return Chamber(s) == ChamberSenate || Chamber(s) == ChamberHouse
}

// ValidTransactionType reports whether s is an exact transaction enum value.
func ValidTransactionType(s string) bool {
	switch TransactionType(s) {
	case TxBuy, TxSale, TxExchange:
		return true
	}
	return false
}

// ValidOwner reports whether s is empty or an exact owner enum value.
func ValidOwner(s string) bool {
	switch Owner(s) {
	case "", OwnerSelf, OwnerSpouse, OwnerChild, OwnerJoint:
		return true
	}
	return false
}

// HasCurrencyMarker reports whether an amount range carries a currency
// marker. Ranges without one are rejected at validation time.
func HasCurrencyMarker(amount string) bool {
	return strings.Contains(amount, "$") || strings.Contains(amount, "USD")
}
