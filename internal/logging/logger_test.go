package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevelDefaultsToInfo(t *testing.T) {
	assert.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	assert.Equal(t, zerolog.InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, zerolog.DebugLevel, ParseLevel(" DEBUG "))
	assert.Equal(t, zerolog.WarnLevel, ParseLevel("warn"))
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")

	log.Info().Msg("hidden")
	log.Warn().Str("box", "abc123").Msg("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "abc123")
}

func TestWithAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "debug").With("realtime")

	log.Debug().Msg("joined")
	assert.Contains(t, buf.String(), "realtime")
}

func TestWithFieldAddsValue(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info").WithField("box_id", "b-42")

	log.Info().Msg("loaded")
	assert.Contains(t, buf.String(), "b-42")
}

func TestNilLoggerIsSafe(t *testing.T) {
	var log *Logger
	assert.NotPanics(t, func() {
		log.Info().Msg("ignored")
		log.With("x").Error().Msg("ignored")
		log.WithField("k", "v").Warn().Msg("ignored")
	})
}

func TestNewFileCreatesLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "msjbox.log")
	log, closer, err := NewFile(path, "info")
	require.NoError(t, err)

	log.Info().Msg("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello")
}

func TestIsTerminalRejectsNonTTY(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, isTerminal(&buf))

	f, err := os.Create(filepath.Join(t.TempDir(), "out.log"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, isTerminal(f))
}
