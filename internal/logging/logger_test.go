package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(New(Options{Level: "debug", Format: "json", Output: &buf}), "autofill")
	l.Debug().Str("section", "tddbhd").Msg("section done")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "autofill", line["component"])
	assert.Equal(t, "tddbhd", line["section"])
	assert.Equal(t, "debug", line["level"])
}

func TestNewFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := New(Options{Level: "loud", Output: &buf})
	l.Debug().Msg("hidden")
	assert.Zero(t, buf.Len())
	l.Info().Msg("shown")
	assert.NotZero(t, buf.Len())
}
