// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package guideline loads the reference guideline text passed to the
// causality stage. The text is opaque: it is read once and embedded as-is.
package guideline

import (
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/krishna-gramener/adverse-events/internal/apperr"
)

// maxBytes caps the guideline size. Larger sources are rejected rather than
// cut short.
var maxBytes int64 = 4 << 20

// Load returns the guideline text from source: an http(s) URL fetched with
// GET, or a file path. An empty source yields empty text.
func Load(ctx context.Context, source string, client *http.Client, log *zap.Logger) (string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	source = strings.TrimSpace(source)
	if source == "" {
		log.Warn("no guideline configured; causality runs without one")
		return "", nil
	}

	var (
		text string
		err  error
	)
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		text, err = fetch(ctx, source, client)
	} else {
		text, err = readFile(source)
	}
	if err != nil {
		return "", eris.Wrapf(err, "loading guideline %s", source)
	}

	log.Info("guideline loaded", zap.String("source", source), zap.Int("bytes", len(text)))
	return text, nil
}

func fetch(ctx context.Context, u string, client *http.Client) (string, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apperr.API(resp.StatusCode, "")
	}
	return readCapped(resp.Body)
}

func readFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return readCapped(f)
}

func readCapped(r io.Reader) (string, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > maxBytes {
		return "", eris.Errorf("guideline exceeds %d bytes", maxBytes)
	}
	return string(data), nil
}
