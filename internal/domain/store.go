package domain

import (
	"context"
	"time"
)

// Run is one orchestrator invocation as recorded in the run store.
type Run struct {
	ID         string
	Mode       string
	InputPath  string
	OutputPath string
	RowCount   int
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string // "running", "completed", "failed"
	Error      string
}

// RunStore persists runs and their per-row results. Persistence here is a
// secondary sink; the output dataset file remains the source of truth for
// resume.
type RunStore interface {
	// CreateRun records a new run in the "running" state.
	CreateRun(ctx context.Context, run Run) error
	// FinishRun records the terminal state of a run.
	FinishRun(ctx context.Context, run Run) error
	// UpsertRow stores one completed output row for the run.
	UpsertRow(ctx context.Context, runID string, index int, row OutputRow) error
}
