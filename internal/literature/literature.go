// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package literature retrieves PubMed records for a search URL: one esearch
// call for the id list, then one paced efetch call per id.
//
// Per-id failures and rate limits never fail the phase. A record that cannot
// be fetched is logged and left out; the remaining records keep search order.
package literature

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
	"github.com/krishna-gramener/adverse-events/internal/httputil"
	"github.com/krishna-gramener/adverse-events/internal/pubmedxml"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

const (
	DefaultFetchURL         = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils/efetch.fcgi"
	DefaultArticleURL       = "https://pubmed.ncbi.nlm.nih.gov/"
	DefaultPacing           = time.Second
	DefaultRateLimitBackoff = 2 * time.Second
	DefaultRateLimitRetries = 1
)

var errRateLimited = errors.New("rate limited")

// Config configures a Retriever. Zero durations and URLs take the defaults;
// RateLimitRetries is used as given.
type Config struct {
	FetchURL         string
	ArticleURL       string
	Pacing           time.Duration
	RateLimitBackoff time.Duration
	RateLimitRetries int
	UserAgent        string
	HTTPClient       *http.Client
	Logger           *zap.Logger
}

// ConfigFrom maps the application literature settings onto a Config.
func ConfigFrom(lc types.LiteratureConfig, hc types.HTTPConfig) Config {
	return Config{
		FetchURL:         lc.FetchURL,
		ArticleURL:       lc.ArticleURL,
		Pacing:           lc.Pacing,
		RateLimitBackoff: lc.RateLimitBackoff,
		RateLimitRetries: lc.RateLimitRetries,
		UserAgent:        hc.UserAgent,
	}
}

// Retriever runs the search and fetch phases.
type Retriever struct {
	cfg    Config
	client *http.Client
	log    *zap.Logger
}

// New returns a Retriever for cfg.
func New(cfg Config) *Retriever {
	if cfg.FetchURL == "" {
		cfg.FetchURL = DefaultFetchURL
	}
	if cfg.ArticleURL == "" {
		cfg.ArticleURL = DefaultArticleURL
	}
	if cfg.Pacing == 0 {
		cfg.Pacing = DefaultPacing
	}
	if cfg.RateLimitBackoff == 0 {
		cfg.RateLimitBackoff = DefaultRateLimitBackoff
	}
	r := &Retriever{cfg: cfg, client: cfg.HTTPClient, log: cfg.Logger}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	return r
}

// Retrieve runs Search on searchURL and fetches every returned id.
func (r *Retriever) Retrieve(ctx context.Context, searchURL string) ([]types.LiteratureRecord, error) {
	ids, err := r.Search(ctx, searchURL)
	if err != nil {
		return nil, err
	}
	return r.Fetch(ctx, ids)
}

type esearchResponse struct {
	ESearchResult struct {
		IDList []string `json:"idlist"`
	} `json:"esearchresult"`
}

// Search returns the PMIDs listed by an esearch URL, in relevance order.
// An empty id list is not an error.
func (r *Retriever) Search(ctx context.Context, searchURL string) ([]string, error) {
	req, err := r.newRequest(ctx, searchURL)
	if err != nil {
		return nil, eris.Wrap(err, "literature search failed")
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "literature search failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Wrap(apperr.API(resp.StatusCode, ""), "literature search failed")
	}

	var sr esearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, eris.Wrap(apperr.Parse("malformed JSON", err), "literature search failed")
	}

	r.log.Info("literature search complete", zap.Int("ids", len(sr.ESearchResult.IDList)))
	return sr.ESearchResult.IDList, nil
}

// Fetch retrieves one record per id, sequentially and paced. Only context
// cancellation fails the phase.
func (r *Retriever) Fetch(ctx context.Context, ids []string) ([]types.LiteratureRecord, error) {
	records := make([]types.LiteratureRecord, 0, len(ids))
	if len(ids) == 0 {
		return records, nil
	}

	pacer := httputil.NewPacer(r.cfg.Pacing)
	var skipped int

	for _, id := range ids {
		if err := pacer.Wait(ctx); err != nil {
			return nil, err
		}

		rec, err := r.fetchOne(ctx, id)
		pacer.Done()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.log.Warn("skipping article", zap.String("pmid", id), zap.Error(err))
			skipped++
			continue
		}
		records = append(records, rec)
	}

	r.log.Info("literature fetch complete",
		zap.Int("fetched", len(records)),
		zap.Int("skipped", skipped),
	)
	return records, nil
}

func (r *Retriever) fetchOne(ctx context.Context, id string) (types.LiteratureRecord, error) {
	u := r.cfg.FetchURL + "?db=pubmed&id=" + url.QueryEscape(id) + "&retmode=xml"
	req, err := r.newRequest(ctx, u)
	if err != nil {
		return types.LiteratureRecord{}, err
	}

	resp, err := httputil.DoWithRetry(ctx, r.client, req, r.cfg.RateLimitBackoff, r.cfg.RateLimitRetries, r.log)
	if err != nil {
		return types.LiteratureRecord{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		io.Copy(io.Discard, resp.Body)
		if err := httputil.Sleep(ctx, r.cfg.RateLimitBackoff); err != nil {
			return types.LiteratureRecord{}, err
		}
		return types.LiteratureRecord{}, errRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.LiteratureRecord{}, apperr.API(resp.StatusCode, "")
	}

	doc, err := pubmedxml.Parse(resp.Body)
	if err != nil {
		return types.LiteratureRecord{}, err
	}
	return pubmedxml.Record(id, r.cfg.ArticleURL, doc), nil
}

func (r *Retriever) newRequest(ctx context.Context, u string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	if r.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", r.cfg.UserAgent)
	}
	return req, nil
}
