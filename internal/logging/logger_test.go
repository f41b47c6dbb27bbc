package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LevelInfo, FormatJSON)

	logger.WithFields(map[string]interface{}{
		"sweep":     "expire",
		"processed": 12,
	}).WithError(errors.New("boom")).Warn("sweep finished with failures")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

	assert.Equal(t, "warn", entry["level"])
	assert.Equal(t, "sweep finished with failures", entry["message"])
	assert.Equal(t, "expire", entry["sweep"])
	assert.Equal(t, float64(12), entry["processed"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "job-curator", entry["service"])
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LevelWarn, FormatJSON)

	logger.Debug("hidden")
	logger.Info("hidden")
	assert.Empty(t, buf.String())

	logger.Error("shown")
	assert.Contains(t, buf.String(), "shown")

	buf.Reset()
	logger.SetLevel(LevelDebug)
	logger.Debug("now visible")
	assert.Contains(t, buf.String(), "now visible")
}

func TestLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LevelInfo, FormatText)

	logger.WithField("runId", "abc").Info("refresh complete")

	out := buf.String()
	assert.Contains(t, out, "refresh complete")
	assert.Contains(t, out, "runId=abc")
	assert.False(t, strings.HasPrefix(out, "{"))
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, LevelInfo, FormatJSON).WithField("component", "lifecycle")

	ctx := WithLogger(context.Background(), logger)
	FromContext(ctx).Info("probing")

	assert.Contains(t, buf.String(), `"component":"lifecycle"`)
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLogLevelAndFormat(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, LevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LevelInfo, ParseLogLevel("verbose"))
	assert.Equal(t, FormatText, ParseLogFormat("console"))
	assert.Equal(t, FormatJSON, ParseLogFormat("xml"))
}
