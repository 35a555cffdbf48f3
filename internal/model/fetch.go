package model

// SourceKind tags a fetched document with the upstream source family
// that produced it. The transformer keys prompt selection on this.
type SourceKind string

const (
	SourceSenateHTML SourceKind = "senate-html"
	SourceHousePDF   SourceKind = "house-pdf"
	SourceMirrorHTML SourceKind = "mirror-html"
	SourceInsiderXML SourceKind = "insider-xml"
)

// Metadata keys fetchers populate when the listing page already knows
// the value; the transformer grounds its prompts on these.
const (
	MetaPolitician = "politician_name"
	MetaFilingDate = "filing_date"
	MetaChamber    = "chamber"
	MetaDocID      = "doc_id"
	MetaSite       = "site"
)

// FetchResult is the uniform intermediate representation every fetcher
// produces: raw bytes plus declared content type plus provenance.
// Created and owned by one fetcher invocation, passed by value into the
// transformer, never mutated.
type FetchResult struct {
	SourceKind  SourceKind
	Content     []byte
	ContentType string
	SourceURL   string
	Metadata    map[string]string
}

// Meta returns a metadata value or "" when absent.
func (f FetchResult) Meta(key string) string {
	if f.Metadata == nil {
		return ""
	}
	return f.Metadata[key]
}
