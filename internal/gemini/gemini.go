// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gemini is a small REST client for a generateContent-shaped
// generative-model endpoint reached through a bearer-token proxy.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
)

// Request is the generateContent request body.
type Request struct {
	SystemInstruction *Content  `json:"system_instruction,omitempty"`
	Contents          []Content `json:"contents"`
}

// Content is one turn of the conversation.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is a text part or an inline binary part.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData carries base64-encoded file content.
type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

// UserText returns a single user turn holding text.
func UserText(text string) Content {
	return Content{Role: "user", Parts: []Part{{Text: text}}}
}

type response struct {
	Candidates []struct {
		Content Content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client posts requests to URL with "Authorization: Bearer <Token>".
type Client struct {
	URL       string
	Token     string
	UserAgent string
	HTTP      *http.Client
	Log       *zap.Logger
}

// Generate sends req and returns the text of the first part of the first
// candidate. A non-2xx status yields an apperr API error carrying the
// server's error.message when the body has one.
func (c *Client) Generate(ctx context.Context, req Request) (string, error) {
	log := c.Log
	if log == nil {
		log = zap.NewNop()
	}
	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", eris.Wrap(err, "marshaling request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return "", eris.Wrap(err, "creating request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	if c.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.UserAgent)
	}

	log.Debug("generate request", zap.Int("bytes", len(body)))

	resp, err := client.Do(httpReq)
	if err != nil {
		return "", eris.Wrap(err, "calling model endpoint")
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "reading response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(data, &e)
		log.Warn("model endpoint error", zap.Int("status", resp.StatusCode), zap.String("message", e.Error.Message))
		return "", apperr.API(resp.StatusCode, e.Error.Message)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return "", apperr.Parse("malformed JSON", err)
	}
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", apperr.Parse("empty model response", nil)
	}
	return r.Candidates[0].Content.Parts[0].Text, nil
}
