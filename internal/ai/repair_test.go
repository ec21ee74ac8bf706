package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairJSONValidPassthrough(t *testing.T) {
	out, stats, err := RepairJSON(`{"message": "ok"}`)

	require.NoError(t, err)
	assert.Equal(t, `{"message": "ok"}`, out)
	assert.False(t, stats.WasRepaired)
}

func TestRepairJSONStripsCodeFences(t *testing.T) {
	out, stats, err := RepairJSON("```json\n{\"message\": \"ok\"}\n```")

	require.NoError(t, err)
	assert.JSONEq(t, `{"message": "ok"}`, out)
	assert.True(t, stats.WasRepaired)
	assert.Contains(t, stats.RepairStrategies, "code_fences")
}

func TestRepairJSONTrimsSurroundingProse(t *testing.T) {
	out, stats, err := RepairJSON(`Sure, here is the result: {"message": "ok"} Hope that helps!`)

	require.NoError(t, err)
	assert.JSONEq(t, `{"message": "ok"}`, out)
	assert.Contains(t, stats.RepairStrategies, "brace_trim")
}

func TestRepairJSONFixesTrailingComma(t *testing.T) {
	out, _, err := RepairJSON(`{"message": "ok", "changes": [],}`)

	require.NoError(t, err)
	assert.True(t, isValidJSON(out))
}
