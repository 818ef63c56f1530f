package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSettings(t *testing.T) *Settings {
	t.Helper()
	return NewSettings(filepath.Join(t.TempDir(), "settings.json"))
}

func TestSetIfAbsentKeepsFirstValue(t *testing.T) {
	s := newTestSettings(t)

	first, err := s.SetIfAbsent("key", "one")
	require.NoError(t, err)
	assert.Equal(t, "one", first)

	second, err := s.SetIfAbsent("key", "two")
	require.NoError(t, err)
	assert.Equal(t, "one", second, "existing value must win")

	got, err := s.Get("key")
	require.NoError(t, err)
	assert.Equal(t, "one", got)
}

func TestGetMissingKey(t *testing.T) {
	s := newTestSettings(t)

	got, err := s.Get("nope")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEnsureClientIDIdempotent(t *testing.T) {
	s := newTestSettings(t)

	first, err := s.EnsureClientID()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := s.EnsureClientID()
	require.NoError(t, err)
	assert.Equal(t, first, second, "client identity is generated at most once per installation")
}

func TestEnsureClientIDSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	first, err := NewSettings(path).EnsureClientID()
	require.NoError(t, err)

	second, err := NewSettings(path).EnsureClientID()
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateClientIDNotEmpty(t *testing.T) {
	assert.NotEmpty(t, generateClientID())
}
