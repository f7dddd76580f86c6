// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package credentials resolves the three endpoint settings and exchanges
// them for a session token. The resulting types.Session is the only
// credential state the rest of the program sees.
package credentials

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
	"github.com/krishna-gramener/adverse-events/internal/settings"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// Notifier receives the provider's UI signals.
type Notifier interface {
	// ShowForm is called when one or more settings are missing.
	ShowForm()
	// Ready is called after a form submission has been persisted.
	Ready()
}

// Values is one submission of the credential form.
type Values struct {
	TokenURL  string
	OpenAIURL string
	GeminiURL string
}

func (v Values) trimmed() Values {
	return Values{
		TokenURL:  strings.TrimSpace(v.TokenURL),
		OpenAIURL: strings.TrimSpace(v.OpenAIURL),
		GeminiURL: strings.TrimSpace(v.GeminiURL),
	}
}

func (v Values) byKey() map[string]string {
	return map[string]string{
		settings.KeyTokenURL:  v.TokenURL,
		settings.KeyOpenAIURL: v.OpenAIURL,
		settings.KeyGeminiURL: v.GeminiURL,
	}
}

// Provider reads and writes endpoint settings and performs the token exchange.
type Provider struct {
	store    settings.Store
	notifier Notifier
	client   *http.Client
	cookies  []*http.Cookie
	log      *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the client used for the exchange. The provider
// installs its own cookie jar on a copy of it.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.client = c }
}

// WithCookie seeds the exchange with a raw Cookie header value.
func WithCookie(header string) Option {
	return func(p *Provider) {
		if header == "" {
			return
		}
		cookies, err := http.ParseCookie(header)
		if err != nil {
			p.log.Warn("ignoring unparsable auth.cookie", zap.Error(err))
			return
		}
		p.cookies = cookies
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// New returns a Provider over store. notifier may be nil.
func New(store settings.Store, notifier Notifier, opts ...Option) *Provider {
	p := &Provider{
		store:    store,
		notifier: notifier,
		client:   http.DefaultClient,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// IsReady reports whether all three settings are stored. When any is
// missing it signals ShowForm and returns false.
func (p *Provider) IsReady(ctx context.Context) (bool, error) {
	_, missing, err := p.values(ctx)
	if err != nil {
		return false, apperr.Initialization(err)
	}
	if len(missing) > 0 {
		p.log.Info("settings incomplete", zap.Strings("missing", missing))
		if p.notifier != nil {
			p.notifier.ShowForm()
		}
		return false, nil
	}
	return true, nil
}

// Submit validates and persists v, signals Ready, and exchanges the token.
func (p *Provider) Submit(ctx context.Context, v Values) (types.Session, error) {
	v = v.trimmed()
	kv := v.byKey()
	for _, key := range settings.RequiredKeys {
		if kv[key] == "" {
			return types.Session{}, apperr.Initialization(eris.Errorf("%s is required", key))
		}
	}
	for _, key := range settings.RequiredKeys {
		if err := p.store.Set(ctx, key, kv[key]); err != nil {
			return types.Session{}, apperr.Initialization(eris.Wrapf(err, "saving %s", key))
		}
	}
	if p.notifier != nil {
		p.notifier.Ready()
	}
	return p.Exchange(ctx)
}

// Load is IsReady followed by Exchange. It fails with an initialization
// error when settings are missing.
func (p *Provider) Load(ctx context.Context) (types.Session, error) {
	ready, err := p.IsReady(ctx)
	if err != nil {
		return types.Session{}, err
	}
	if !ready {
		return types.Session{}, apperr.Initialization(eris.New("endpoints are not configured; run configure"))
	}
	return p.Exchange(ctx)
}

type tokenResponse struct {
	Token *string `json:"token"`
}

// Exchange calls token_url with the session cookies and returns a Session
// carrying the token. Every failure is an initialization error.
func (p *Provider) Exchange(ctx context.Context) (types.Session, error) {
	v, missing, err := p.values(ctx)
	if err != nil {
		return types.Session{}, apperr.Initialization(err)
	}
	if len(missing) > 0 {
		return types.Session{}, apperr.Initialization(eris.Errorf("missing settings: %s", strings.Join(missing, ", ")))
	}

	token, err := p.fetchToken(ctx, v.TokenURL)
	if err != nil {
		return types.Session{}, apperr.Initialization(err)
	}

	p.log.Info("session ready", zap.String("token_url", v.TokenURL))
	return types.Session{
		ExtractionURL: v.GeminiURL,
		SearchURL:     v.OpenAIURL,
		TokenURL:      v.TokenURL,
		Token:         token,
	}, nil
}

func (p *Provider) fetchToken(ctx context.Context, tokenURL string) (string, error) {
	u, err := url.Parse(tokenURL)
	if err != nil {
		return "", eris.Wrap(err, "parsing token_url")
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return "", eris.Wrap(err, "creating cookie jar")
	}
	if len(p.cookies) > 0 {
		jar.SetCookies(u, p.cookies)
	}
	client := *p.client
	client.Jar = jar

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tokenURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "creating token request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "calling token_url")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.API(resp.StatusCode, "")
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", eris.Wrap(err, "decoding token response")
	}
	if tr.Token == nil || *tr.Token == "" {
		return "", eris.New("token missing from response")
	}
	return *tr.Token, nil
}

func (p *Provider) values(ctx context.Context) (Values, []string, error) {
	got := make(map[string]string, len(settings.RequiredKeys))
	var missing []string
	for _, key := range settings.RequiredKeys {
		val, ok, err := p.store.Get(ctx, key)
		if err != nil {
			return Values{}, nil, eris.Wrapf(err, "reading %s", key)
		}
		if !ok {
			missing = append(missing, key)
			continue
		}
		got[key] = val
	}
	return Values{
		TokenURL:  got[settings.KeyTokenURL],
		OpenAIURL: got[settings.KeyOpenAIURL],
		GeminiURL: got[settings.KeyGeminiURL],
	}, missing, nil
}
