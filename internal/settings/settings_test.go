// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krishna-gramener/adverse-events/pkg/types"
)

func TestDirStoreGet(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(t *testing.T) string
		key    string
		want   string
		wantOK bool
	}{
		{
			name: "reads and trims whitespace",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyTokenURL, "  https://auth.example.com/token  \n")
				return dir
			},
			key:    KeyTokenURL,
			want:   "https://auth.example.com/token",
			wantOK: true,
		},
		{
			name: "nonexistent directory reads as absent",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "does-not-exist")
			},
			key: KeyGeminiURL,
		},
		{
			name: "whitespace-only file reads as absent",
			setup: func(t *testing.T) string {
				dir := t.TempDir()
				writeFile(t, dir, KeyOpenAIURL, "   \n\t  ")
				return dir
			},
			key: KeyOpenAIURL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewDirStore(tt.setup(t))
			got, ok, err := s.Get(context.Background(), tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirStoreSetCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "settings")
	s := NewDirStore(dir)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, KeyGeminiURL, "https://llm.example.com/gemini\n"))
	require.NoError(t, s.Set(ctx, KeyGeminiURL, "https://llm.example.com/gemini-v2"))

	got, ok, err := s.Get(ctx, KeyGeminiURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://llm.example.com/gemini-v2", got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestDirStoreRejectsBadKeys(t *testing.T) {
	s := NewDirStore(t.TempDir())
	for _, key := range []string{"", ".hidden", "../escape", `a\b`} {
		_, _, err := s.Get(context.Background(), key)
		assert.Error(t, err, key)
		assert.Error(t, s.Set(context.Background(), key, "v"), key)
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "settings.db")
	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	_, ok, err := s.Get(ctx, KeyTokenURL)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, KeyTokenURL, "https://a.example.com"))
	require.NoError(t, s.Set(ctx, KeyTokenURL, " https://b.example.com "))

	got, ok, err := s.Get(ctx, KeyTokenURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://b.example.com", got)
}

func TestSQLiteStorePersistsAcrossOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, KeyOpenAIURL, "https://llm.example.com/openai"))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()
	got, ok, err := s.Get(ctx, KeyOpenAIURL)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "https://llm.example.com/openai", got)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(types.StoreConfig{Dir: dir})
	require.NoError(t, err)
	assert.IsType(t, &DirStore{}, s)

	s, err = Open(types.StoreConfig{Driver: types.StoreSQLite, Path: filepath.Join(dir, "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	s.Close()

	_, err = Open(types.StoreConfig{Driver: "redis"})
	assert.Error(t, err)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
