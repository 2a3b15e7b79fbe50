package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
)

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, testSession(t)))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))

	assert.Equal(t, "sess-1", got["id"])
	assert.Equal(t, "full", got["mode"])
	assert.EqualValues(t, 40, got["total_tokens"])
	assert.EqualValues(t, 2000, got["duration_ms"])
	assert.InDelta(t, 0.75, got["total_cost"], 1e-9)
	assert.Len(t, got["rounds"], 2)

	final, ok := got["final_verdict"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "MUTATION", final["label"])
	assert.Contains(t, buf.String(), "\n  \"id\"")
}

func TestWriteJSON_NoVerdict(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, domain.NewSession("s", "F", "C", domain.ModeFull, testStart)))

	assert.NotContains(t, buf.String(), "final_verdict")
}

func TestWriteJSON_NilSession(t *testing.T) {
	err := WriteJSON(&bytes.Buffer{}, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyValue)
}
