// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package query turns extracted entities into a PubMed search term with one
// chat-completion call.
package query

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
	"github.com/krishna-gramener/adverse-events/internal/jsonblock"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gpt-4.1-nano"

// DefaultSearchURL is the NCBI esearch endpoint.
const DefaultSearchURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/esearch.fcgi"

// DefaultMaxResults is the retmax sent with every search.
const DefaultMaxResults = 5

const systemPrompt = `You are a medical research assistant. Based on the provided data, generate a PubMed search term string that will be used in the eutils API. The search term should focus on:
1. The specific drug used by the patient
2. The side effects or symptoms mentioned
3. The relationship between the drug and symptoms

Format your response as a JSON object with a single 'searchTerm' property containing the search string. Example format:
{
  "searchTerm": "(drugName1+OR+drugName2)+AND+(adverse+effects+OR+side+effects)+AND+(symptom1+OR+symptom2)+AND+(case+study+OR+case+reports)"
}

Ensure terms are properly connected with AND/OR operators and use + for spaces.`

// Config configures a Synthesizer.
type Config struct {
	// Endpoint is the full chat-completions URL (openai_url).
	Endpoint string
	// Token is the bearer credential sent as-is.
	Token string
	// Model defaults to DefaultModel.
	Model string
	// SearchURL defaults to DefaultSearchURL.
	SearchURL string
	// MaxResults defaults to DefaultMaxResults.
	MaxResults int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Synthesizer asks the chat model for a search term and builds the esearch URL.
type Synthesizer struct {
	client     *openai.Client
	model      string
	searchURL  string
	maxResults int
	log        *zap.Logger
}

// New returns a Synthesizer for cfg.
func New(cfg Config) *Synthesizer {
	clientCfg := openai.DefaultConfig(cfg.Token)
	clientCfg.BaseURL = BaseURL(cfg.Endpoint)
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	s := &Synthesizer{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		searchURL:  cfg.SearchURL,
		maxResults: cfg.MaxResults,
		log:        cfg.Logger,
	}
	if s.model == "" {
		s.model = DefaultModel
	}
	if s.searchURL == "" {
		s.searchURL = DefaultSearchURL
	}
	if s.maxResults <= 0 {
		s.maxResults = DefaultMaxResults
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// NewForSession returns a Synthesizer posting to the session's search
// endpoint with the application-scoped token.
func NewForSession(sess types.Session, cfg Config) *Synthesizer {
	cfg.Endpoint = sess.SearchURL
	cfg.Token = sess.AppToken()
	return New(cfg)
}

// BaseURL strips a trailing /chat/completions so the client can append it.
func BaseURL(endpoint string) string {
	return strings.TrimSuffix(strings.TrimRight(endpoint, "/"), "/chat/completions")
}

type reply struct {
	SearchTerm string `json:"searchTerm"`
}

// Synthesize returns the search term for entities and its esearch URL.
// Failures are wrapped as "failed to generate literature search link".
func (s *Synthesizer) Synthesize(ctx context.Context, entities types.ExtractedEntities) (types.SearchQuery, error) {
	q, err := s.synthesize(ctx, entities)
	if err != nil {
		return types.SearchQuery{}, eris.Wrap(err, "failed to generate literature search link")
	}
	return q, nil
}

func (s *Synthesizer) synthesize(ctx context.Context, entities types.ExtractedEntities) (types.SearchQuery, error) {
	payload, err := json.Marshal(entities)
	if err != nil {
		return types.SearchQuery{}, eris.Wrap(err, "marshaling entities")
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: string(payload)},
		},
	})
	if err != nil {
		return types.SearchQuery{}, classify(err)
	}
	if len(resp.Choices) == 0 {
		return types.SearchQuery{}, apperr.Parse("empty completion", nil)
	}

	var r reply
	if err := jsonblock.Unmarshal(resp.Choices[0].Message.Content, &r); err != nil {
		return types.SearchQuery{}, err
	}
	term := strings.TrimSpace(r.SearchTerm)
	if term == "" {
		return types.SearchQuery{}, apperr.Parse("searchTerm missing from response", nil)
	}

	q := types.SearchQuery{Term: term, URL: BuildSearchURL(s.searchURL, term, s.maxResults)}
	s.log.Info("search term synthesized", zap.String("term", q.Term))
	return q, nil
}

// BuildSearchURL returns the esearch URL for term. Runs between '+'
// separators are query-escaped; the separators are kept as the encoded
// spaces PubMed expects.
func BuildSearchURL(base, term string, maxResults int) string {
	pieces := strings.Split(term, "+")
	for i, p := range pieces {
		pieces[i] = url.QueryEscape(p)
	}
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	return base + "?db=pubmed&term=" + strings.Join(pieces, "+") +
		"&retmax=" + strconv.Itoa(maxResults) + "&retmode=json"
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.API(apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.API(reqErr.HTTPStatusCode, "")
	}
	return eris.Wrap(err, "calling chat completion")
}
