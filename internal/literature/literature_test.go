// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package literature

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
)

func articleXML(title string) string {
	return fmt.Sprintf(`<?xml version="1.0" ?>
<PubmedArticleSet>
  <PubmedArticle>
    <MedlineCitation>
      <Article>
        <Journal><Title>Drug Safety</Title><JournalIssue><PubDate><Year>2021</Year><Month>Mar</Month></PubDate></JournalIssue></Journal>
        <ArticleTitle>%s</ArticleTitle>
        <Abstract><AbstractText>Case description.</AbstractText></Abstract>
        <AuthorList><Author><LastName>Doe</LastName><ForeName>Jane</ForeName></Author></AuthorList>
      </Article>
      <KeywordList><Keyword>rash</Keyword></KeywordList>
    </MedlineCitation>
  </PubmedArticle>
</PubmedArticleSet>`, title)
}

type eutils struct {
	mu      sync.Mutex
	idlist  string
	status  map[string]int
	bodies  map[string]string
	fetches []string
	times   []time.Time
	delay   time.Duration
}

func (e *eutils) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/esearch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pubmed", r.URL.Query().Get("db"))
		w.Write([]byte(`{"header":{},"esearchresult":{"count":"2","idlist":` + e.idlist + `}}`))
	})
	mux.HandleFunc("/efetch.fcgi", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "pubmed", q.Get("db"))
		assert.Equal(t, "xml", q.Get("retmode"))
		id := q.Get("id")

		e.mu.Lock()
		e.fetches = append(e.fetches, id)
		e.times = append(e.times, time.Now())
		e.mu.Unlock()
		time.Sleep(e.delay)

		if code, ok := e.status[id]; ok {
			w.WriteHeader(code)
			return
		}
		if body, ok := e.bodies[id]; ok {
			w.Write([]byte(body))
			return
		}
		w.Write([]byte(articleXML("Article " + id)))
	})
	return mux
}

func newTestRetriever(srv *httptest.Server) *Retriever {
	return New(Config{
		FetchURL:         srv.URL + "/efetch.fcgi",
		ArticleURL:       "https://pubmed.ncbi.nlm.nih.gov/",
		Pacing:           time.Millisecond,
		RateLimitBackoff: time.Millisecond,
		RateLimitRetries: 1,
	})
}

func TestRetrieveSkipsRateLimitedID(t *testing.T) {
	e := &eutils{idlist: `["111","222"]`, status: map[string]int{"222": http.StatusTooManyRequests}}
	srv := httptest.NewServer(e.handler(t))
	defer srv.Close()

	records, err := newTestRetriever(srv).Retrieve(context.Background(), srv.URL+"/esearch.fcgi?db=pubmed&term=x&retmax=5&retmode=json")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "111", records[0].ID)
	assert.Equal(t, "Article 111", records[0].Title)
	assert.Equal(t, "https://pubmed.ncbi.nlm.nih.gov/111/", records[0].URL)
	assert.Equal(t, "Doe, Jane", records[0].Authors)
	assert.Equal(t, "Drug Safety", records[0].Journal)
	assert.Equal(t, "2021 Mar", records[0].PublicationDate)

	assert.Equal(t, []string{"111", "222", "222"}, e.fetches, "429 is retried exactly once")
}

func TestFetchPreservesOrderAndIsolatesFailures(t *testing.T) {
	e := &eutils{
		status: map[string]int{"2": http.StatusInternalServerError},
		bodies: map[string]string{"4": "this is not xml"},
	}
	srv := httptest.NewServer(e.handler(t))
	defer srv.Close()

	records, err := newTestRetriever(srv).Fetch(context.Background(), []string{"5", "2", "3", "4", "1"})
	require.NoError(t, err)

	var ids []string
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"5", "3", "1"}, ids)
}

func TestFetchRecoversAfterOneRateLimit(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(articleXML("Recovered")))
	}))
	defer srv.Close()

	r := New(Config{FetchURL: srv.URL, Pacing: time.Millisecond, RateLimitBackoff: time.Millisecond, RateLimitRetries: 1})
	records, err := r.Fetch(context.Background(), []string{"9"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Recovered", records[0].Title)
	assert.Equal(t, 2, calls)
}

func TestFetchPacing(t *testing.T) {
	e := &eutils{}
	srv := httptest.NewServer(e.handler(t))
	defer srv.Close()

	r := New(Config{FetchURL: srv.URL + "/efetch.fcgi", Pacing: 40 * time.Millisecond, RateLimitBackoff: time.Millisecond})
	_, err := r.Fetch(context.Background(), []string{"1", "2", "3"})
	require.NoError(t, err)

	require.Len(t, e.times, 3)
	for i := 1; i < len(e.times); i++ {
		assert.GreaterOrEqual(t, e.times[i].Sub(e.times[i-1]), 30*time.Millisecond)
	}
}

func TestFetchPacingAfterSlowResponse(t *testing.T) {
	e := &eutils{delay: 60 * time.Millisecond}
	srv := httptest.NewServer(e.handler(t))
	defer srv.Close()

	r := New(Config{FetchURL: srv.URL + "/efetch.fcgi", Pacing: 40 * time.Millisecond, RateLimitBackoff: time.Millisecond})
	_, err := r.Fetch(context.Background(), []string{"1", "2"})
	require.NoError(t, err)

	// The gap follows the end of the slow response, not its start.
	require.Len(t, e.times, 2)
	assert.GreaterOrEqual(t, e.times[1].Sub(e.times[0]), 90*time.Millisecond)
}

func TestSearchEmptyIDList(t *testing.T) {
	e := &eutils{idlist: `[]`}
	srv := httptest.NewServer(e.handler(t))
	defer srv.Close()

	records, err := newTestRetriever(srv).Retrieve(context.Background(), srv.URL+"/esearch.fcgi?db=pubmed&term=x")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NotNil(t, records)
	assert.Empty(t, e.fetches)
}

func TestSearchFailures(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind apperr.Kind
	}{
		{
			name:     "non-2xx",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusServiceUnavailable) },
			wantKind: apperr.KindAPI,
		},
		{
			name:     "bad json",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`<eSearchResult/>`)) },
			wantKind: apperr.KindParse,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			_, err := newTestRetriever(srv).Search(context.Background(), srv.URL)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "literature search failed")
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
		})
	}
}

func TestFetchCancelled(t *testing.T) {
	e := &eutils{}
	srv := httptest.NewServer(e.handler(t))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestRetriever(srv).Fetch(ctx, []string{"1", "2"})
	assert.ErrorIs(t, err, context.Canceled)
}
