package fetch

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nkoval/tradefeed/internal/model"
)

// Ownership document schema (Form 4 family). Values in the document are
// wrapped in <value> elements, hence the indirection.

type ownershipDocument struct {
	XMLName        xml.Name `xml:"ownershipDocument"`
	PeriodOfReport string   `xml:"periodOfReport"`
	Issuer         struct {
		CIK    string `xml:"issuerCik"`
		Name   string `xml:"issuerName"`
		Symbol string `xml:"issuerTradingSymbol"`
	} `xml:"issuer"`
	Owners []struct {
		ID struct {
			CIK  string `xml:"rptOwnerCik"`
			Name string `xml:"rptOwnerName"`
		} `xml:"reportingOwnerId"`
	} `xml:"reportingOwner"`
	NonDerivative struct {
		Transactions []form4Transaction `xml:"nonDerivativeTransaction"`
	} `xml:"nonDerivativeTable"`
	Derivative struct {
		Transactions []form4Transaction `xml:"derivativeTransaction"`
	} `xml:"derivativeTable"`
}

type form4Transaction struct {
	SecurityTitle form4Value `xml:"securityTitle"`
	Date          form4Value `xml:"transactionDate"`
	Coding        struct {
		Code string `xml:"transactionCode"`
	} `xml:"transactionCoding"`
	Amounts struct {
		Shares           form4Value `xml:"transactionShares"`
		PricePerShare    form4Value `xml:"transactionPricePerShare"`
		AcquiredDisposed form4Value `xml:"transactionAcquiredDisposedCode"`
	} `xml:"transactionAmounts"`
	Ownership struct {
		DirectOrIndirect form4Value `xml:"directOrIndirectOwnership"`
	} `xml:"ownershipNature"`
}

type form4Value struct {
	Value string `xml:"value"`
}

// ParseForm4 deterministically converts an ownership document into an
// ExtractionResult. Confidence is pinned to 1.0: the source format is
// machine-readable, so no model was involved and no gating applies.
func ParseForm4(xmlBytes []byte, sourceURL string) (*model.ExtractionResult, error) {
	var doc ownershipDocument
	if err := xml.Unmarshal(xmlBytes, &doc); err != nil {
		return nil, fmt.Errorf("parse ownership document: %w", err)
	}
	if len(doc.Owners) == 0 {
		return nil, fmt.Errorf("ownership document has no reporting owner")
	}

	ownerName := strings.TrimSpace(doc.Owners[0].ID.Name)
	filingDate, err := time.Parse(model.DateOnly, doc.PeriodOfReport)
	if err != nil {
		return nil, fmt.Errorf("parse period of report %q: %w", doc.PeriodOfReport, err)
	}
	ticker := model.NormalizeTicker(doc.Issuer.Symbol)

	var records []model.TradeRecord
	appendTxns := func(txns []form4Transaction, assetType string) {
		for _, txn := range txns {
			txDate, err := time.Parse(model.DateOnly, txn.Date.Value)
			if err != nil {
				// A transaction block without a parseable date is
				// unusable; the rest of the document still counts.
				continue
			}
			records = append(records, model.TradeRecord{
				PoliticianName:  ownerName,
				TransactionDate: txDate,
				FilingDate:      filingDate,
				Ticker:          ticker,
				AssetName:       strings.TrimSpace(doc.Issuer.Name + " " + txn.SecurityTitle.Value),
				AssetType:       assetType,
				TransactionType: mapTransactionCode(txn.Coding.Code, txn.Amounts.AcquiredDisposed.Value),
				AmountRange:     transactionAmount(txn),
				Owner:           mapOwnership(txn.Ownership.DirectOrIndirect.Value),
				Comment:         "Form 4 code " + txn.Coding.Code,
				SourceURL:       sourceURL,
			})
		}
	}
	appendTxns(doc.NonDerivative.Transactions, "Stock")
	appendTxns(doc.Derivative.Transactions, "Derivative")

	return &model.ExtractionResult{
		Records:        records,
		SourceFormat:   model.SourceInsiderXML,
		Confidence:     1.0,
		RawRecordCount: len(doc.NonDerivative.Transactions) + len(doc.Derivative.Transactions),
	}, nil
}

// mapTransactionCode maps Form 4 transaction codes onto the canonical
// transaction types. P is an open-market purchase, S an open-market
// sale; acquisitions/dispositions under other codes (grants, tax
// withholding, exercises) fall back to the acquired/disposed flag.
func mapTransactionCode(code, acquiredDisposed string) model.TransactionType {
	switch strings.ToUpper(code) {
	case "P":
		return model.TxBuy
	case "S":
		return model.TxSale
	case "C", "X":
		return model.TxExchange
	}
	switch strings.ToUpper(acquiredDisposed) {
	case "A":
		return model.TxBuy
	case "D":
		return model.TxSale
	}
	return model.TxExchange
}

// mapOwnership maps the direct/indirect flag; indirect holdings have no
// canonical owner value.
func mapOwnership(directOrIndirect string) model.Owner {
	if strings.ToUpper(directOrIndirect) == "D" {
		return model.OwnerSelf
	}
	return ""
}

// transactionAmount renders shares x price as a currency string so the
// amount-range invariant (currency marker present) holds on this path.
func transactionAmount(txn form4Transaction) string {
	shares, _ := strconv.ParseFloat(txn.Amounts.Shares.Value, 64)
	price, _ := strconv.ParseFloat(txn.Amounts.PricePerShare.Value, 64)
	if shares == 0 {
		return "$0"
	}
	return fmt.Sprintf("$%s (%s shares @ $%.2f)",
		groupThousands(int64(shares*price)), txn.Amounts.Shares.Value, price)
}

// groupThousands formats an integer with comma separators.
func groupThousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
