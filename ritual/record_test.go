package ritual

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecord(t *testing.T) {
	v := Verdict{
		RunID:   "run-1",
		OK:      false,
		State:   State{RunID: "run-1", Head: "abc"},
		Failure: &Failure{Stage: "C", Reason: "no prverify report contains HEAD"},
		Stages: []StageRecord{
			{ID: "A", Name: "resolve-head", Status: StatusPassed, Duration: 1500 * time.Microsecond},
			{ID: "B", Name: "clean-tree", Status: StatusPassed},
			{ID: "C", Name: "locate-report", Status: StatusFailed},
			{ID: "D", Name: "create-bundle", Status: StatusSkipped},
		},
	}
	finished := time.Date(2026, 1, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*3600))

	rec := NewRecord(v, finished)

	assert.Equal(t, "abc", rec.Head)
	assert.Empty(t, rec.Bundle)
	assert.Equal(t, time.UTC, rec.FinishedAt.Location())
	assert.Equal(t, int64(1), rec.Stages[0].DurationMs)
	assert.Equal(t, StatusSkipped, rec.Stages[3].Status)
}

func TestWriteRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ritual.json")
	v := Verdict{
		RunID: "run-2",
		OK:    true,
		State: State{RunID: "run-2", Head: "abc", ReportPath: "r.md", BundlePath: "b.tar.gz"},
		Stages: []StageRecord{
			{ID: "A", Name: "resolve-head", Status: StatusPassed},
		},
	}

	require.NoError(t, WriteRecord(path, v))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "run-2", got["run_id"])
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "r.md", got["report"])
	assert.Equal(t, "b.tar.gz", got["bundle"])
	assert.NotContains(t, got, "failure")
	assert.Len(t, got["stages"], 1)
}
