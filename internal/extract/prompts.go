package extract

import (
	"fmt"

	"github.com/nkoval/tradefeed/internal/model"
)

// PromptStrategy builds the extraction prompt for one source kind. Each
// strategy encodes the contextual fields that ground the extraction,
// the exact output schema, and source-specific normalization rules.
type PromptStrategy interface {
	Key() string
	BuildPrompt(res model.FetchResult, payload string) string
}

// strategyKey derives the lookup key for a fetched document. The mirror
// source is further keyed by its site marker so layout-specific rules
// stay with the site they belong to.
func strategyKey(res model.FetchResult) string {
	if res.SourceKind == model.SourceMirrorHTML {
		if site := res.Meta(model.MetaSite); site != "" {
			return string(res.SourceKind) + "/" + site
		}
	}
	return string(res.SourceKind)
}

// defaultStrategies returns the built-in strategy table.
func defaultStrategies() map[string]PromptStrategy {
	strategies := map[string]PromptStrategy{}
	for _, s := range []PromptStrategy{
		senateHTMLStrategy{},
		housePDFStrategy{},
		mirrorStrategy{site: "capitoltrades"},
	} {
		strategies[s.Key()] = s
	}
	return strategies
}

const outputSchema = `Return ONE JSON object, nothing else:
{
  "records": [
    {
      "politician_name": string,
      "chamber": "Senate" or "House",
      "transaction_date": "YYYY-MM-DD",
      "filing_date": "YYYY-MM-DD",
      "ticker": string or null (stock symbol only; null when the asset has none),
      "asset_name": string,
      "asset_type": string ("Stock" unless the source says otherwise),
      "transaction_type": "Buy", "Sale" or "Exchange",
      "amount_range": string, must contain a dollar amount (e.g. "$15,001 - $50,000"),
      "owner": "Self", "Spouse", "Child", "Joint" or null,
      "comment": string or null
    }
  ],
  "confidence": number in [0,1], your own assessment of extraction quality,
  "raw_record_count": integer, the number of transaction rows you can see in the source
}`

type senateHTMLStrategy struct{}

func (senateHTMLStrategy) Key() string { return string(model.SourceSenateHTML) }

func (senateHTMLStrategy) BuildPrompt(res model.FetchResult, payload string) string {
	return fmt.Sprintf(`Extract every stock transaction from this Senate periodic transaction report.

Known context (trust these over the document when they conflict):
- politician_name: %s
- chamber: Senate
- filing_date: %s

Rules:
- "Purchase" means Buy; "Sale (Full)" and "Sale (Partial)" mean Sale; "Exchange" means Exchange.
- Keep the amount column exactly as printed (it is already a dollar bracket).
- Municipal bonds and funds without a symbol get ticker null.

%s

Report table:
%s`, res.Meta(model.MetaPolitician), res.Meta(model.MetaFilingDate), outputSchema, payload)
}

type housePDFStrategy struct{}

func (housePDFStrategy) Key() string { return string(model.SourceHousePDF) }

func (housePDFStrategy) BuildPrompt(res model.FetchResult, payload string) string {
	return fmt.Sprintf(`The attached page images are a House periodic transaction report (PTR). Extract every transaction row.

Known context (trust these over the document when they conflict):
- politician_name: %s
- chamber: House
- filing_date: %s

Transaction code table:
- P = purchase -> "Buy"
- S = sale -> "Sale"
- S (partial) = partial sale -> "Sale"
- E = exchange -> "Exchange"

Rules:
- The owner column uses SP (Spouse), DC (Child), JT (Joint); blank means Self.
- Keep the amount bracket exactly as printed.

%s`, res.Meta(model.MetaPolitician), res.Meta(model.MetaFilingDate), outputSchema)
}

type mirrorStrategy struct {
	site string
}

func (s mirrorStrategy) Key() string { return string(model.SourceMirrorHTML) + "/" + s.site }

func (s mirrorStrategy) BuildPrompt(res model.FetchResult, payload string) string {
	return fmt.Sprintf(`Extract every stock transaction from this trade-listing page of the %s aggregator.

Size-bucket normalization table (map the site's size labels onto these amount ranges):
- "< 1K"   -> "$1 - $1,000"
- "1K-15K" -> "$1,001 - $15,000"
- "15K-50K" -> "$15,001 - $50,000"
- "50K-100K" -> "$50,001 - $100,000"
- "100K-250K" -> "$100,001 - $250,000"
- "250K-500K" -> "$250,001 - $500,000"
- "500K-1M" -> "$500,001 - $1,000,000"
- "1M-5M"  -> "$1,000,001 - $5,000,000"

Rules:
- The politician column carries the chamber ("Senate"/"House") next to the name; split them.
- "buy"/"purchase" -> "Buy", "sell"/"sale" -> "Sale", "exchange" -> "Exchange".
- The publication date column is the filing_date; the traded column is the transaction_date.

%s

Listing table:
%s`, s.site, outputSchema, payload)
}
