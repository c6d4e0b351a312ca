// Package metrics records cleaning runs as Prometheus series and JSON run summaries.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// RunStatus is the outcome of a cleaning run.
type RunStatus string

const (
	StatusSucceeded RunStatus = "succeeded"
	StatusFailed    RunStatus = "failed"
)

// RunSummary captures high-level context and effect of one cleaning run.
type RunSummary struct {
	RunID     string        `json:"run_id"`
	Dataset   string        `json:"dataset"`
	Engine    string        `json:"engine"`
	Version   string        `json:"version"`
	Status    RunStatus     `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	RowsBefore    int `json:"rows_before"`
	RowsAfter     int `json:"rows_after"`
	ColumnsBefore int `json:"columns_before"`
	ColumnsAfter  int `json:"columns_after"`
	RowsDropped   int `json:"rows_dropped"`

	PreScore  float64 `json:"pre_score"`
	PostScore float64 `json:"post_score"`

	// Issues counts pre-clean issues by kind.
	Issues map[string]int `json:"issues"`

	// Actions counts change-log entries that affected at least one row, by action kind.
	Actions map[string]int `json:"actions"`

	Warnings int `json:"warnings"`
}

// MetricsStore abstracts run summary storage.
type MetricsStore interface {
	Save(run RunSummary) error
	SaveWithContext(ctx context.Context, run RunSummary) error
}

// JSONMetricsStore stores run summaries as indented JSON.
// With an empty FilePath the summary is printed to stdout.
type JSONMetricsStore struct {
	FilePath string
}

func (j *JSONMetricsStore) Save(run RunSummary) error {
	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return err
	}
	if j.FilePath != "" {
		return os.WriteFile(j.FilePath, data, 0644)
	}
	fmt.Println(string(data))
	return nil
}

func (j *JSONMetricsStore) SaveWithContext(ctx context.Context, run RunSummary) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return j.Save(run)
	}
}

// LoadRunSummary reads a summary written by JSONMetricsStore.
func LoadRunSummary(filePath string) (RunSummary, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return RunSummary{}, err
	}
	var run RunSummary
	if err := json.Unmarshal(data, &run); err != nil {
		return RunSummary{}, fmt.Errorf("failed to decode run summary: %w", err)
	}
	return run, nil
}
