package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_SoftDeleteRestore(t *testing.T) {
	result, err := RunWithGolden(t, loadScenario(t, "soft_delete_restore"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestSnapshot(t *testing.T) {
	r := NewResult()
	r.AddTrace(1, KindSelect, "SELECT * FROM events WHERE id = ?", []any{1})
	r.AddTrace(2, KindStatement, "INSERT INTO events (id) VALUES (2)", nil)

	want := "scenario: demo\n" +
		"[1] step 1 select: SELECT * FROM events WHERE id = ? [1]\n" +
		"[2] step 2 statement: INSERT INTO events (id) VALUES (2)\n"
	assert.Equal(t, want, string(Snapshot("demo", r.Trace)))
}

func TestSnapshot_Deterministic(t *testing.T) {
	s := loadScenario(t, "trashed_views")

	first, err := Run(t.Context(), s)
	require.NoError(t, err)
	second, err := Run(t.Context(), s)
	require.NoError(t, err)

	assert.Equal(t, Snapshot(s.Name, first.Trace), Snapshot(s.Name, second.Trace))
}
