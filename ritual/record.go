package ritual

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Record is the JSON document written by WriteRecord.
type Record struct {
	RunID      string        `json:"run_id"`
	OK         bool          `json:"ok"`
	Head       string        `json:"head,omitempty"`
	Report     string        `json:"report,omitempty"`
	Bundle     string        `json:"bundle,omitempty"`
	Failure    *Failure      `json:"failure,omitempty"`
	Stages     []RecordStage `json:"stages"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RecordStage is one stage entry of a Record.
type RecordStage struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Status     StageStatus `json:"status"`
	DurationMs int64       `json:"duration_ms"`
}

// NewRecord converts a verdict into its JSON record form.
func NewRecord(v Verdict, finishedAt time.Time) Record {
	rec := Record{
		RunID:      v.RunID,
		OK:         v.OK,
		Head:       v.State.Head,
		Report:     v.State.ReportPath,
		Bundle:     v.State.BundlePath,
		Failure:    v.Failure,
		Stages:     make([]RecordStage, 0, len(v.Stages)),
		FinishedAt: finishedAt.UTC(),
	}
	for _, s := range v.Stages {
		rec.Stages = append(rec.Stages, RecordStage{
			ID:         s.ID,
			Name:       s.Name,
			Status:     s.Status,
			DurationMs: s.Duration.Milliseconds(),
		})
	}
	return rec
}

// WriteRecord writes the verdict as indented JSON to path, creating parent
// directories as needed.
func WriteRecord(path string, v Verdict) error {
	data, err := json.MarshalIndent(NewRecord(v, time.Now()), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ritual record: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create record directory: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write ritual record: %w", err)
	}
	return nil
}
