// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain error", errors.New("boom"), KindUnknown},
		{"api", API(500, ""), KindAPI},
		{"wrapped with fmt", fmt.Errorf("stage: %w", Parse("no JSON block found", nil)), KindParse},
		{"wrapped with eris", eris.Wrap(FileType("text/plain"), "upload"), KindFileType},
		{"initialization", Initialization(errors.New("dial tcp")), KindInitialization},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestAPIMessageFallback(t *testing.T) {
	assert.Equal(t, "unexpected error: 503", API(503, "").Error())
	assert.Equal(t, "quota exceeded", API(429, "quota exceeded").Error())
	assert.Equal(t, 429, API(429, "quota exceeded").Status)
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := Parse("malformed JSON", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "malformed JSON: unexpected end of JSON input", err.Error())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "parse", KindParse.String())
	assert.Equal(t, "unknown", Kind(99).String())
}
