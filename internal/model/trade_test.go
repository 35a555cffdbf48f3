package model

import (
	"testing"
	"time"
)

func baseTrade() TradeRecord {
	return TradeRecord{
		PoliticianName:  "A. Smith",
		Chamber:         ChamberSenate,
		TransactionDate: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		FilingDate:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Ticker:          "AAPL",
		AssetName:       "Apple Inc.",
		TransactionType: TxBuy,
		AmountRange:     "$15,001 - $50,000",
	}
}

func TestDedupHash_Stable(t *testing.T) {
	a := baseTrade()
	b := baseTrade()
	if a.DedupHash() != b.DedupHash() {
		t.Error("identical trades must hash identically")
	}
}

func TestDedupHash_IgnoresDescriptiveFields(t *testing.T) {
	a := baseTrade()
	b := baseTrade()
	b.AssetName = "APPLE INC"
	b.Comment = "amended filing"
	b.Owner = OwnerSpouse
	b.FilingDate = b.FilingDate.AddDate(0, 0, 7)
	b.SourceURL = "https://mirror.example.com/trade/1"

	if a.DedupHash() != b.DedupHash() {
		t.Error("descriptive fields must not change the identity hash")
	}
}

func TestDedupHash_SensitiveToIdentityFields(t *testing.T) {
	base := baseTrade()
	mutations := map[string]func(*TradeRecord){
		"politician": func(r *TradeRecord) { r.PoliticianName = "B. Jones" },
		"date":       func(r *TradeRecord) { r.TransactionDate = r.TransactionDate.AddDate(0, 0, 1) },
		"ticker":     func(r *TradeRecord) { r.Ticker = "MSFT" },
		"amount":     func(r *TradeRecord) { r.AmountRange = "$1,001 - $15,000" },
		"type":       func(r *TradeRecord) { r.TransactionType = TxSale },
	}

	for name, mutate := range mutations {
		rec := baseTrade()
		mutate(&rec)
		if rec.DedupHash() == base.DedupHash() {
			t.Errorf("changing %s must change the identity hash", name)
		}
	}
}

func TestDedupHash_NameCaseInsensitive(t *testing.T) {
	a := baseTrade()
	b := baseTrade()
	b.PoliticianName = "  a. smith "
	if a.DedupHash() != b.DedupHash() {
		t.Error("name casing and whitespace must not change the identity hash")
	}
}

func TestNormalizeTicker(t *testing.T) {
	cases := map[string]string{
		"aapl":    "AAPL",
		" MSFT ":  "MSFT",
		"--":      "",
		"n/a":     "",
		"None":    "",
		"unknown": "",
		"":        "",
		"BRK.B":   "BRK.B",
	}
	for in, want := range cases {
		if got := NormalizeTicker(in); got != want {
			t.Errorf("NormalizeTicker(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestHasCurrencyMarker(t *testing.T) {
	if !HasCurrencyMarker("$1,001 - $15,000") {
		t.Error("dollar range should pass")
	}
	if !HasCurrencyMarker("1000 USD") {
		t.Error("USD marker should pass")
	}
	if HasCurrencyMarker("1001 to 15000") {
		t.Error("bare numbers should fail")
	}
}

func TestEnumValidators(t *testing.T) {
	if !ValidChamber("Senate") || !ValidChamber("House") || ValidChamber("senate") {
		t.Error("chamber validation is not exact-match")
	}
	if !ValidTransactionType("Exchange") || ValidTransactionType("Bought") {
		t.Error("transaction type validation is not exact-match")
	}
	if !ValidOwner("") || !ValidOwner("Joint") || ValidOwner("Trust") {
		t.Error("owner validation should accept empty and reject unknown values")
	}
}
