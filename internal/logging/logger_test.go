package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "debug", Format: FormatJSON}, "draftagent", &buf).WithComponent("runner")

	log.Warn("stage fell back", map[string]interface{}{
		FieldStage: "analyze",
		FieldError: errors.New("boom"),
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "draftagent", line[FieldService])
	assert.Equal(t, "runner", line[FieldComponent])
	assert.Equal(t, "analyze", line[FieldStage])
	assert.Equal(t, "boom", line[FieldError])
	assert.Equal(t, "stage fell back", line["message"])
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter(Config{Level: "warn", Format: FormatJSON}, "", &buf)

	log.Info("hidden")
	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Error("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestNopLogger(t *testing.T) {
	log := NewNop()
	log.Error("nothing", map[string]interface{}{"k": "v"})
	log.WithComponent("x").WithFields(map[string]interface{}{"a": 1}).Info("still nothing")
}
