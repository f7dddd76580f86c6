// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package causality asks the generative model for a per-symptom adverse
// event verdict given the entities, the retrieved literature and the
// guideline text.
package causality

import (
	"context"
	"encoding/json"
	"fmt"
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

// Synthesizer produces causality verdicts.
type Synthesizer struct {
	backend   Backend
	guideline string
	log       *zap.Logger
}

// New returns a Synthesizer that embeds guideline in every prompt.
func New(backend Backend, guideline string, log *zap.Logger) *Synthesizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Synthesizer{backend: backend, guideline: guideline, log: log}
}

// NewForSession returns a Synthesizer posting to the session's extraction
// endpoint with the application-scoped token.
func NewForSession(sess types.Session, client *gemini.Client, guideline string, log *zap.Logger) *Synthesizer {
	c := *client
	c.URL = sess.ExtractionURL
	c.Token = sess.AppToken()
	return New(&c, guideline, log)
}

// Assess returns one verdict per symptom as judged by the model. Failures
// are wrapped as "failed to generate causality assessment".
func (s *Synthesizer) Assess(ctx context.Context, entities types.ExtractedEntities, literature []types.LiteratureRecord) (types.CausalityVerdict, error) {
	prompt, err := renderPrompt(entities, literature, s.guideline)
	if err != nil {
		return nil, eris.Wrap(err, "failed to generate causality assessment")
	}

	s.log.Info("requesting causality assessment",
		zap.Int("symptoms", len(entities.Symptoms)),
		zap.Int("articles", len(literature)),
	)

	text, err := s.backend.Generate(ctx, gemini.Request{Contents: []gemini.Content{gemini.UserText(prompt)}})
	if err != nil {
		return nil, eris.Wrap(err, "failed to generate causality assessment")
	}

	verdict, err := Parse(text)
	if err != nil {
		return nil, eris.Wrap(err, "failed to generate causality assessment")
	}
	return verdict, nil
}

// Parse decodes the first fenced JSON block of text as a verdict array.
// The top-level value must be an array of objects. isAdverseEvent is
// lowercased; a boolean is accepted as yes/no.
func Parse(text string) (types.CausalityVerdict, error) {
	var raw any
	if err := jsonblock.Decode(text, &raw); err != nil {
		return nil, err
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, apperr.Parse("schema violation: expected array", nil)
	}

	verdict := make(types.CausalityVerdict, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, apperr.Parse(fmt.Sprintf("schema violation: entry %d is not an object", i), nil)
		}
		verdict = append(verdict, types.SymptomVerdict{
			SymptomName:    str(obj["symptomName"]),
			IsAdverseEvent: answer(obj["isAdverseEvent"]),
			Reason:         str(obj["reason"]),
		})
	}
	return verdict, nil
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

func answer(v any) types.AdverseEventAnswer {
	if b, ok := v.(bool); ok {
		if b {
			return types.AdverseEventYes
		}
		return types.AdverseEventNo
	}
	return types.AdverseEventAnswer(strings.ToLower(strings.TrimSpace(str(v))))
}
