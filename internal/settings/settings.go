// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package settings persists the endpoint configuration that the credential
// form collects: token_url, openai_url and gemini_url. Values are plain
// strings keyed by name.
package settings

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/krishna-gramener/adverse-events/pkg/types"
)

// Well-known keys written by the credential form.
const (
	KeyTokenURL  = "token_url"
	KeyOpenAIURL = "openai_url"
	KeyGeminiURL = "gemini_url"
)

// RequiredKeys lists the keys that must all be present before a run.
var RequiredKeys = []string{KeyTokenURL, KeyOpenAIURL, KeyGeminiURL}

// Store is a string key-value store.
type Store interface {
	// Get returns the value for key and whether a non-empty value exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open returns the store selected by cfg.Driver. An empty driver selects
// the directory store.
func Open(cfg types.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "", types.StoreDir:
		return NewDirStore(cfg.Dir), nil
	case types.StoreSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		return nil, eris.Errorf("settings: unknown store driver %q", cfg.Driver)
	}
}
