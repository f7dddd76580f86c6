// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract turns a clinical PDF into structured entities with one
// generative-model call and a fenced-JSON parse of the reply.
package extract

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
	"github.com/krishna-gramener/adverse-events/internal/gemini"
	"github.com/krishna-gramener/adverse-events/internal/jsonblock"
	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// Backend abstracts the model endpoint so tests can supply a mock.
type Backend interface {
	Generate(ctx context.Context, req gemini.Request) (string, error)
}

// ResultKind tags a parse Result.
type ResultKind int

const (
	// ResultOK carries entities.
	ResultOK ResultKind = iota
	// ResultSchemaMismatch is valid JSON of the wrong shape; Raw holds it.
	ResultSchemaMismatch
	// ResultParseFailure is a missing block or invalid JSON; Err holds the cause.
	ResultParseFailure
)

func (k ResultKind) String() string {
	switch k {
	case ResultOK:
		return "ok"
	case ResultSchemaMismatch:
		return "schema mismatch"
	case ResultParseFailure:
		return "parse failure"
	default:
		return fmt.Sprintf("ResultKind(%d)", int(k))
	}
}

// Result is the outcome of parsing one model reply.
type Result struct {
	Kind     ResultKind
	Entities types.ExtractedEntities
	Raw      string
	Detail   string
	Err      error
}

// Value returns the entities, or a parse error for the non-OK variants.
func (r Result) Value() (types.ExtractedEntities, error) {
	switch r.Kind {
	case ResultOK:
		return r.Entities, nil
	case ResultSchemaMismatch:
		return types.ExtractedEntities{}, apperr.Parse("schema mismatch", eris.New(r.Detail))
	default:
		if r.Err == nil {
			return types.ExtractedEntities{}, apperr.Parse("parse failure", nil)
		}
		return types.ExtractedEntities{}, r.Err
	}
}

// Extractor sends documents to the model backend.
type Extractor struct {
	backend Backend
	log     *zap.Logger
}

// New returns an Extractor. log may be nil.
func New(backend Backend, log *zap.Logger) *Extractor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Extractor{backend: backend, log: log}
}

// NewForSession returns an Extractor posting to the session's extraction
// endpoint with the plain bearer token.
func NewForSession(sess types.Session, client *gemini.Client, log *zap.Logger) *Extractor {
	c := *client
	c.URL = sess.ExtractionURL
	c.Token = sess.Token
	return New(&c, log)
}

// Extract validates doc, requests extraction and parses the reply.
func (e *Extractor) Extract(ctx context.Context, doc Document) (types.ExtractedEntities, error) {
	if err := ValidateDocument(doc); err != nil {
		return types.ExtractedEntities{}, err
	}
	text, err := e.Request(ctx, doc)
	if err != nil {
		return types.ExtractedEntities{}, err
	}
	return ParseEntities(text)
}

// ParseEntities parses a model reply into entities. Failures are wrapped as
// "entity extraction failed".
func ParseEntities(text string) (types.ExtractedEntities, error) {
	entities, err := Parse(text).Value()
	if err != nil {
		return types.ExtractedEntities{}, eris.Wrap(err, "entity extraction failed")
	}
	return entities, nil
}

// Request base64-encodes the whole document and returns the model's reply
// text. Failures are wrapped as "extraction API error".
func (e *Extractor) Request(ctx context.Context, doc Document) (string, error) {
	data, err := encode(doc)
	if err != nil {
		return "", err
	}

	req := gemini.Request{
		SystemInstruction: &gemini.Content{Parts: []gemini.Part{{Text: systemInstruction}}},
		Contents: []gemini.Content{{
			Role: "user",
			Parts: []gemini.Part{
				{Text: documentLabel},
				{InlineData: &gemini.InlineData{MIMEType: PDFMIMEType, Data: data}},
			},
		}},
	}

	e.log.Info("requesting entity extraction", zap.String("file", doc.Name), zap.Int("base64_bytes", len(data)))

	text, err := e.backend.Generate(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, "extraction API error")
	}
	return text, nil
}

func encode(doc Document) (string, error) {
	r, err := doc.Open()
	if err != nil {
		return "", eris.Wrap(err, "failed to read file")
	}
	defer r.Close()

	var sb strings.Builder
	enc := base64.NewEncoder(base64.StdEncoding, &sb)
	if _, err := io.Copy(enc, r); err != nil {
		return "", eris.Wrap(err, "failed to read file")
	}
	if err := enc.Close(); err != nil {
		return "", eris.Wrap(err, "failed to read file")
	}
	return sb.String(), nil
}

// entityFields maps JSON keys to the destination list on ExtractedEntities.
var entityFields = map[string]func(*types.ExtractedEntities) *[]string{
	"symptoms":                func(e *types.ExtractedEntities) *[]string { return &e.Symptoms },
	"diseases_or_medications": func(e *types.ExtractedEntities) *[]string { return &e.DiseasesOrMedications },
	"subjective_assessments":  func(e *types.ExtractedEntities) *[]string { return &e.SubjectiveAssessments },
	"drug_used":               func(e *types.ExtractedEntities) *[]string { return &e.DrugUsed },
}

// Parse extracts entities from a model reply. A string field becomes a
// one-item list, a missing or null field an empty list, and unknown keys are
// ignored. A non-object payload or a field of any other type is a schema
// mismatch.
func Parse(text string) Result {
	var raw any
	if err := jsonblock.Decode(text, &raw); err != nil {
		return Result{Kind: ResultParseFailure, Raw: text, Err: err}
	}
	block, _ := jsonblock.Find(text)

	obj, ok := raw.(map[string]any)
	if !ok {
		return Result{Kind: ResultSchemaMismatch, Raw: block, Detail: fmt.Sprintf("expected object, got %s", jsonKind(raw))}
	}

	out := types.ExtractedEntities{
		Symptoms:              []string{},
		DiseasesOrMedications: []string{},
		SubjectiveAssessments: []string{},
		DrugUsed:              []string{},
	}

	keys := make([]string, 0, len(entityFields))
	for k := range entityFields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		list, err := stringList(obj[key])
		if err != nil {
			return Result{Kind: ResultSchemaMismatch, Raw: block, Detail: fmt.Sprintf("%s: %v", key, err)}
		}
		*entityFields[key](&out) = list
	}

	return Result{Kind: ResultOK, Entities: out, Raw: block}
}

func stringList(v any) ([]string, error) {
	switch t := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{t}, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d: expected string, got %s", i, jsonKind(item))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected array of strings, got %s", jsonKind(v))
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
