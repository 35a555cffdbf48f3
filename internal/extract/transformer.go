package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkoval/tradefeed/internal/llm"
	"github.com/nkoval/tradefeed/internal/model"
)

// TransformError is the terminal failure of one document: the model's
// output never validated within the retry budget. Recoverable only by
// discarding the document and logging.
type TransformError struct {
	SourceKind model.SourceKind
	Attempts   int
	Err        error
}

func (e *TransformError) Error() string {
	return fmt.Sprintf("transform %s: gave up after %d attempts: %v", e.SourceKind, e.Attempts, e.Err)
}

func (e *TransformError) Unwrap() error { return e.Err }

// Transformer converts one fetched document into validated trade
// records via a generative model, retrying with concrete validation
// feedback until the output conforms or the budget runs out.
type Transformer struct {
	provider   llm.Provider
	strategies map[string]PromptStrategy
	maxRetries int
	rasterize  func([]byte) ([][]byte, error)
	now        func() time.Time
	log        zerolog.Logger
}

// NewTransformer creates a transformer with the built-in strategy table.
func NewTransformer(provider llm.Provider, maxRetries int, log zerolog.Logger) *Transformer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Transformer{
		provider:   provider,
		strategies: defaultStrategies(),
		maxRetries: maxRetries,
		rasterize:  RasterizePDF,
		now:        time.Now,
		log:        log.With().Str("component", "transformer").Logger(),
	}
}

// Transform runs the full extraction state machine for one document:
// prepare payload, call model, recover JSON, validate, retry with
// feedback, then the date-sanity pass.
func (t *Transformer) Transform(ctx context.Context, res model.FetchResult) (*model.ExtractionResult, error) {
	strategy, ok := t.strategies[strategyKey(res)]
	if !ok {
		return nil, &TransformError{SourceKind: res.SourceKind, Attempts: 0,
			Err: fmt.Errorf("no prompt strategy for %q", strategyKey(res))}
	}

	payload, images, err := t.preparePayload(res)
	if err != nil {
		return nil, &TransformError{SourceKind: res.SourceKind, Attempts: 0, Err: err}
	}

	prompt := strategy.BuildPrompt(res, payload)

	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		resp, err := t.provider.Generate(ctx, llm.GenerateRequest{
			Prompt: prompt,
			Images: images,
		})
		if err != nil {
			lastErr = err
			t.log.Warn().Int("attempt", attempt).Err(err).Msg("model call failed")
			continue
		}

		result, err := t.parseAndValidate(res, resp.Text)
		if err != nil {
			lastErr = err
			t.log.Warn().Int("attempt", attempt).Err(err).Msg("model output rejected")
			// Re-prompt with the original instructions plus the
			// concrete validation error; models fix what they can see.
			prompt = strategy.BuildPrompt(res, payload) + fmt.Sprintf(
				"\n\nYour previous response was rejected: %v\nReturn corrected JSON only.", err)
			continue
		}

		t.finalize(result)
		return result, nil
	}

	return nil, &TransformError{SourceKind: res.SourceKind, Attempts: t.maxRetries, Err: lastErr}
}

// preparePayload bounds token cost per source shape: HTML collapses to
// the transaction table, PDFs become page images alongside the prompt.
func (t *Transformer) preparePayload(res model.FetchResult) (string, [][]byte, error) {
	switch res.SourceKind {
	case model.SourceSenateHTML, model.SourceMirrorHTML:
		payload, err := TrimToTable(string(res.Content))
		if err != nil {
			return "", nil, fmt.Errorf("trim html: %w", err)
		}
		return payload, nil, nil
	case model.SourceHousePDF:
		images, err := t.rasterize(res.Content)
		if err != nil {
			return "", nil, fmt.Errorf("rasterize pdf: %w", err)
		}
		return "", images, nil
	default:
		return "", nil, fmt.Errorf("unsupported source kind %q", res.SourceKind)
	}
}

// Wire shapes for the model's JSON output. Pointers keep "null" and
// "absent" apart for the nullable fields.
type wireResult struct {
	Records        []wireRecord `json:"records"`
	Confidence     float64      `json:"confidence"`
	RawRecordCount int          `json:"raw_record_count"`
}

type wireRecord struct {
	PoliticianName  string  `json:"politician_name"`
	Chamber         string  `json:"chamber"`
	TransactionDate string  `json:"transaction_date"`
	FilingDate      string  `json:"filing_date"`
	Ticker          *string `json:"ticker"`
	AssetName       string  `json:"asset_name"`
	AssetType       string  `json:"asset_type"`
	TransactionType string  `json:"transaction_type"`
	AmountRange     string  `json:"amount_range"`
	Owner           *string `json:"owner"`
	Comment         *string `json:"comment"`
}

// parseAndValidate recovers JSON from the response text and checks it
// against the record schema. Every violation message names the record
// index and field so the retry feedback is actionable.
func (t *Transformer) parseAndValidate(res model.FetchResult, text string) (*model.ExtractionResult, error) {
	candidate, err := RecoverJSON(text)
	if err != nil {
		return nil, err
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(candidate), &wire); err != nil {
		// One conservative repair before rejecting the attempt.
		if repairErr := json.Unmarshal([]byte(RepairJSON(candidate)), &wire); repairErr != nil {
			return nil, fmt.Errorf("response is not valid JSON: %v", err)
		}
	}

	if wire.Confidence < 0 || wire.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v outside [0,1]", wire.Confidence)
	}

	records := make([]model.TradeRecord, 0, len(wire.Records))
	for i, w := range wire.Records {
		rec, err := t.validateRecord(res, w)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		records = append(records, rec)
	}

	return &model.ExtractionResult{
		Records:        records,
		SourceFormat:   res.SourceKind,
		Confidence:     wire.Confidence,
		RawRecordCount: wire.RawRecordCount,
	}, nil
}

func (t *Transformer) validateRecord(res model.FetchResult, w wireRecord) (model.TradeRecord, error) {
	var rec model.TradeRecord

	if strings.TrimSpace(w.PoliticianName) == "" {
		return rec, fmt.Errorf("politician_name is empty")
	}
	if w.Chamber == "" {
		// The listing page often knows the chamber before the model does.
		w.Chamber = res.Meta(model.MetaChamber)
	}
	if !model.ValidChamber(w.Chamber) {
		return rec, fmt.Errorf("chamber %q is not one of Senate, House", w.Chamber)
	}
	if !model.ValidTransactionType(w.TransactionType) {
		return rec, fmt.Errorf("transaction_type %q is not one of Buy, Sale, Exchange", w.TransactionType)
	}
	if !model.HasCurrencyMarker(w.AmountRange) {
		return rec, fmt.Errorf("amount_range %q has no currency marker", w.AmountRange)
	}

	txDate, err := time.Parse(model.DateOnly, w.TransactionDate)
	if err != nil {
		return rec, fmt.Errorf("transaction_date %q is not YYYY-MM-DD", w.TransactionDate)
	}
	filingDate, err := time.Parse(model.DateOnly, w.FilingDate)
	if err != nil {
		return rec, fmt.Errorf("filing_date %q is not YYYY-MM-DD", w.FilingDate)
	}

	owner := ""
	if w.Owner != nil {
		owner = *w.Owner
	}
	if !model.ValidOwner(owner) {
		return rec, fmt.Errorf("owner %q is not one of Self, Spouse, Child, Joint, null", owner)
	}

	ticker := ""
	if w.Ticker != nil {
		ticker = model.NormalizeTicker(*w.Ticker)
	}

	assetType := strings.TrimSpace(w.AssetType)
	if assetType == "" {
		assetType = "Stock"
	}
	comment := ""
	if w.Comment != nil {
		comment = strings.TrimSpace(*w.Comment)
	}

	return model.TradeRecord{
		PoliticianName:  strings.TrimSpace(w.PoliticianName),
		Chamber:         model.Chamber(w.Chamber),
		TransactionDate: txDate,
		FilingDate:      filingDate,
		Ticker:          ticker,
		AssetName:       strings.TrimSpace(w.AssetName),
		AssetType:       assetType,
		TransactionType: model.TransactionType(w.TransactionType),
		AmountRange:     strings.TrimSpace(w.AmountRange),
		Owner:           model.Owner(owner),
		Comment:         comment,
		SourceURL:       res.SourceURL,
	}, nil
}

// finalize runs the date-sanity pass and surfaces under-extraction.
func (t *Transformer) finalize(result *model.ExtractionResult) {
	now := t.now()
	for i := range result.Records {
		correctDates(&result.Records[i], now, t.log)
	}

	if len(result.Records) < result.RawRecordCount {
		// Surfaced, not fatal: a partial batch is still worth loading.
		t.log.Warn().
			Int("extracted", len(result.Records)).
			Int("visible", result.RawRecordCount).
			Str("source", string(result.SourceFormat)).
			Msg("extracted fewer records than visible in source")
	}
}
