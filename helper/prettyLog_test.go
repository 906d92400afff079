package helper

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrettyHandlerLevels(t *testing.T) {
	levels := []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError}

	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(&buf, slog.LevelDebug)

			logger.Log(t.Context(), level, "Built multi-layer graph", slog.Int("nodes", 3))

			out := buf.String()
			assert.Contains(t, out, level.String()+":", "Expected level prefix")
			assert.Contains(t, out, "Built multi-layer graph", "Expected message")
			assert.Contains(t, out, `"nodes":3`, "Expected attributes as JSON")
			assert.Equal(t, 1, strings.Count(out, "\n"), "Expected one line per record")
		})
	}
}

func TestPrettyHandlerFiltering(t *testing.T) {
	t.Run("Records below the level are dropped", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelWarn)

		logger.Info("Resolved internal citations")
		logger.Debug("Found hybrid neighbors")
		assert.Empty(t, buf.String(), "Expected info and debug to be filtered")

		logger.Warn("PageRank failed")
		assert.Contains(t, buf.String(), "PageRank failed")
	})
}

func TestPrettyHandlerAttributes(t *testing.T) {
	t.Run("Errors and stringers are rendered as text", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelInfo)
		id := uuid.MustParse("6f1c1a4e-8f43-4c1b-9a57-5b0d8f0f3c11")

		logger.Warn("Failed to commit citation resolution batch", slog.Any("error", errors.New("deadlock")), slog.Any("resource", id))

		out := buf.String()
		assert.Contains(t, out, `"error":"deadlock"`)
		assert.Contains(t, out, `"resource":"6f1c1a4e-8f43-4c1b-9a57-5b0d8f0f3c11"`)
	})

	t.Run("WithAttrs adds to every record", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(&buf, slog.LevelInfo).With(slog.String("engine", "citation"))

		logger.Info("Extracted citations", slog.Int("count", 2))
		logger.Info("Published event")

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		for _, line := range lines {
			assert.Contains(t, line, `"engine":"citation"`, "Expected logger attributes on every line")
		}
		assert.Contains(t, lines[0], `"count":2`)
		assert.NotContains(t, lines[1], "count", "Expected record attributes to stay on their record")
	})
}
