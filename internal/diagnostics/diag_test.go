package diagnostics

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingKeepsNewest(t *testing.T) {
	r := NewRing(2)
	r.Add(Diagnostic{Code: "A"})
	r.Add(Diagnostic{Code: "B"})
	r.Add(Diagnostic{Code: "C"})

	got := r.Snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, "B", got[0].Code)
	assert.Equal(t, "C", got[1].Code)
	assert.False(t, got[0].Time.IsZero())
}

func TestLogLevels(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	Log(l, Diagnostic{Severity: Warn, Code: CodeTargetRetry, Summary: "retrying", Evidence: map[string]any{"dpr": 0.5}})

	out := buf.String()
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"code":"TARGET.RETRY"`)
	assert.Contains(t, out, `"dpr":0.5`)
	assert.Contains(t, out, `"message":"retrying"`)
}
