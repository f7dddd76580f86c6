// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Config is the full application configuration loaded by internal/config.
type Config struct {
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Auth       AuthConfig       `json:"auth" yaml:"auth" mapstructure:"auth"`
	HTTP       HTTPConfig       `json:"http" yaml:"http" mapstructure:"http"`
	LLM        LLMConfig        `json:"llm" yaml:"llm" mapstructure:"llm"`
	Literature LiteratureConfig `json:"literature" yaml:"literature" mapstructure:"literature"`
	Guideline  GuidelineConfig  `json:"guideline" yaml:"guideline" mapstructure:"guideline"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// StoreDriver selects the settings store backend.
type StoreDriver string

const (
	StoreDir    StoreDriver = "dir"
	StoreSQLite StoreDriver = "sqlite"
)

// StoreConfig configures where the endpoint settings are persisted.
type StoreConfig struct {
	// Driver is "dir" (one file per key) or "sqlite".
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Dir is the settings directory for the dir driver.
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// Path is the database file for the sqlite driver.
	Path string `json:"path" yaml:"path" mapstructure:"path"`
}

// AuthConfig holds the ambient session used for the token exchange.
type AuthConfig struct {
	// Cookie is a raw Cookie header ("name=value; other=value") sent to token_url.
	Cookie string `json:"cookie,omitempty" yaml:"cookie,omitempty" mapstructure:"cookie"`
}

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// LLMConfig holds model identifiers for the model-backed stages.
type LLMConfig struct {
	// QueryModel is the chat model used to synthesize the search term.
	QueryModel string `json:"query_model" yaml:"query_model" mapstructure:"query_model"`
}

// LiteratureConfig holds settings for the PubMed retrieval stage.
type LiteratureConfig struct {
	// SearchURL is the esearch endpoint.
	SearchURL string `json:"search_url" yaml:"search_url" mapstructure:"search_url"`

	// FetchURL is the efetch endpoint.
	FetchURL string `json:"fetch_url" yaml:"fetch_url" mapstructure:"fetch_url"`

	// ArticleURL is the public article page prefix; the PMID and "/" are appended.
	ArticleURL string `json:"article_url" yaml:"article_url" mapstructure:"article_url"`

	// MaxResults is the retmax sent with the search (default 5).
	MaxResults int `json:"retmax" yaml:"retmax" mapstructure:"retmax"`

	// Pacing is the minimum interval between fetch requests (default 1s).
	Pacing time.Duration `json:"pacing" yaml:"pacing" mapstructure:"pacing"`

	// RateLimitBackoff is the wait after an HTTP 429 (default 2s).
	RateLimitBackoff time.Duration `json:"rate_limit_backoff" yaml:"rate_limit_backoff" mapstructure:"rate_limit_backoff"`

	// RateLimitRetries is how many times a rate-limited fetch is retried
	// before the record is skipped (default 1, 0 disables).
	RateLimitRetries int `json:"rate_limit_retries" yaml:"rate_limit_retries" mapstructure:"rate_limit_retries"`
}

// GuidelineConfig locates the reference guideline text.
type GuidelineConfig struct {
	// Source is a file path or an http(s) URL.
	Source string `json:"source" yaml:"source" mapstructure:"source"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is json or console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}
