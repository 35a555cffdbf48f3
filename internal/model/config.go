package model

import "time"

// Config is the full runtime configuration, populated by viper from
// flags, TRADEFEED_* environment variables, and the YAML config file.
type Config struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	HTTP     HTTPConfig     `mapstructure:"http" yaml:"http"`
	LLM      LLMConfig      `mapstructure:"llm" yaml:"llm"`
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline"`
	Senate   SenateConfig   `mapstructure:"senate" yaml:"senate"`
	House    HouseConfig    `mapstructure:"house" yaml:"house"`
	Mirror   MirrorConfig   `mapstructure:"mirror" yaml:"mirror"`
	Edgar    EdgarConfig    `mapstructure:"edgar" yaml:"edgar"`
}

// DatabaseConfig locates the canonical sqlite store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// HTTPConfig applies to all plain-HTTP fetchers.
type HTTPConfig struct {
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent    string        `mapstructure:"user_agent" yaml:"user_agent"`
	MaxBodyBytes int64         `mapstructure:"max_body_bytes" yaml:"max_body_bytes"`
}

// LLMConfig selects and tunes the generative-model provider.
type LLMConfig struct {
	Provider  string `mapstructure:"provider" yaml:"provider"`
	Model     string `mapstructure:"model" yaml:"model"`
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL   string `mapstructure:"base_url" yaml:"base_url"`
	Timeout   int    `mapstructure:"timeout" yaml:"timeout"` // seconds
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// PipelineConfig carries the orchestrator and loader knobs the core
// treats as opaque constants.
type PipelineConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold"`
	MaxRetries          int     `mapstructure:"max_retries" yaml:"max_retries"`
	Workers             int     `mapstructure:"workers" yaml:"workers"`
	LookbackDays        int     `mapstructure:"lookback_days" yaml:"lookback_days"`
}

// SenateConfig tunes the browser-driven primary fetcher.
type SenateConfig struct {
	SearchURL string        `mapstructure:"search_url" yaml:"search_url"`
	PageDelay time.Duration `mapstructure:"page_delay" yaml:"page_delay"`
	Headless  bool          `mapstructure:"headless" yaml:"headless"`
}

// HouseConfig tunes the PDF-filing fetcher. Filing PDFs run far larger
// than listing pages, so they carry their own size cap.
type HouseConfig struct {
	SearchURL   string `mapstructure:"search_url" yaml:"search_url"`
	BaseURL     string `mapstructure:"base_url" yaml:"base_url"`
	MaxPDFBytes int64  `mapstructure:"max_pdf_bytes" yaml:"max_pdf_bytes"`
}

// MirrorConfig tunes the aggregator fallback fetcher.
type MirrorConfig struct {
	BaseURL  string `mapstructure:"base_url" yaml:"base_url"`
	Site     string `mapstructure:"site" yaml:"site"`
	MaxPages int    `mapstructure:"max_pages" yaml:"max_pages"`
}

// EdgarConfig tunes the SEC insider-filing fetcher.
type EdgarConfig struct {
	SearchURL   string        `mapstructure:"search_url" yaml:"search_url"`
	ArchiveURL  string        `mapstructure:"archive_url" yaml:"archive_url"`
	RSSURL      string        `mapstructure:"rss_url" yaml:"rss_url"`
	MinInterval time.Duration `mapstructure:"min_interval" yaml:"min_interval"`
	MaxFilings  int           `mapstructure:"max_filings" yaml:"max_filings"`
}

// DefaultConfig returns the built-in defaults, the lowest layer of the
// configuration hierarchy.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "data/tradefeed.db",
		},
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "tradefeed/0.3 (+https://github.com/nkoval/tradefeed)",
			MaxBodyBytes: 4_000_000,
		},
		LLM: LLMConfig{
			Provider:  "openai",
			Model:     "",
			Timeout:   120,
			MaxTokens: 4096,
		},
		Pipeline: PipelineConfig{
			ConfidenceThreshold: 0.7,
			MaxRetries:          3,
			Workers:             4,
			LookbackDays:        30,
		},
		Senate: SenateConfig{
			SearchURL: "https://efdsearch.senate.gov/search/",
			PageDelay: 2 * time.Second,
			Headless:  true,
		},
		House: HouseConfig{
			SearchURL:   "https://disclosures-clerk.house.gov/FinancialDisclosure/ViewMemberSearchResult",
			BaseURL:     "https://disclosures-clerk.house.gov",
			MaxPDFBytes: 64_000_000,
		},
		Mirror: MirrorConfig{
			BaseURL:  "https://www.capitoltrades.com/trades",
			Site:     "capitoltrades",
			MaxPages: 5,
		},
		Edgar: EdgarConfig{
			SearchURL:   "https://efts.sec.gov/LATEST/search-index",
			ArchiveURL:  "https://www.sec.gov/Archives/edgar/data",
			RSSURL:      "https://www.sec.gov/cgi-bin/browse-edgar?action=getcompany&type=4&dateb=&owner=include&count=40&output=atom",
			MinInterval: 350 * time.Millisecond,
			MaxFilings:  40,
		},
	}
}
