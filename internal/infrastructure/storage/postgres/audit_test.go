package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiff(t *testing.T) {
	oldState := map[string]any{
		"name":      "Main Bar",
		"status":    "draft",
		"closed_by": nil,
	}
	newState := map[string]any{
		"name":      "Main Bar",
		"status":    "closed",
		"closed_by": "ops@lobbybar.example",
		"cogs":      412050,
	}

	changes := Diff(oldState, newState)

	// Unchanged fields are not reported.
	assert.NotContains(t, changes, "name")

	assert.Equal(t, map[string]any{"old": "draft", "new": "closed"}, changes["status"])
	assert.Equal(t, map[string]any{"old": nil, "new": "ops@lobbybar.example"}, changes["closed_by"])

	// Fields only present on one side show a nil counterpart.
	assert.Equal(t, map[string]any{"old": nil, "new": 412050}, changes["cogs"])

	removed := Diff(map[string]any{"note": "recount spirits"}, map[string]any{})
	assert.Equal(t, map[string]any{"old": "recount spirits", "new": nil}, removed["note"])
}

func TestDiff_NumericRepresentation(t *testing.T) {
	// Values compare by their printed form, so 5 and int64(5) are equal
	// and survive a JSON round trip without producing phantom changes.
	changes := Diff(map[string]any{"version": int64(5)}, map[string]any{"version": 5})
	assert.Empty(t, changes)
}
