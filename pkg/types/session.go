// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// AppTokenSuffix is appended to the session token for calls scoped to this
// application (query synthesis and causality).
const AppTokenSuffix = ":adverse-events"

// Session holds the resolved endpoints and bearer token for one process
// lifetime. It is built once by the credential provider and passed by value
// to every stage.
type Session struct {
	// ExtractionURL is the generative-model endpoint (gemini_url).
	ExtractionURL string `json:"extraction_url" yaml:"extraction_url"`

	// SearchURL is the chat-completion endpoint (openai_url).
	SearchURL string `json:"search_url" yaml:"search_url"`

	// TokenURL is the credential exchange endpoint (token_url).
	TokenURL string `json:"token_url" yaml:"token_url"`

	// Token is the bearer token returned by the exchange.
	Token string `json:"-" yaml:"-"`
}

// Valid reports whether every field needed to start a pipeline run is set.
func (s Session) Valid() bool {
	return s.ExtractionURL != "" && s.SearchURL != "" && s.Token != ""
}

// AppToken returns the token with the application suffix.
func (s Session) AppToken() string {
	return s.Token + AppTokenSuffix
}
