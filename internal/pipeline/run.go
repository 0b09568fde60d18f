package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/soldscout/internal/dataset"
	"github.com/alanyoungcy/soldscout/internal/domain"
	"github.com/alanyoungcy/soldscout/internal/notify"
	"github.com/alanyoungcy/soldscout/internal/proxy"
	"github.com/alanyoungcy/soldscout/internal/scrape"
)

// Execution modes.
const (
	ModeSequential = "sequential"
	ModePool       = "pool"
)

// Notification event types.
const (
	EventRunCompleted = "run_completed"
	EventRunFailed    = "run_failed"
)

// Runner executes one full pass over the input dataset. Store, Archiver, and
// Notifier are optional; a nil value disables that sink.
type Runner struct {
	InputPath  string
	OutputPath string
	Mode       string
	Workers    int

	Proxies  *proxy.Pool
	Unit     *scrape.Unit
	Retry    *scrape.Controller
	Store    domain.RunStore
	Archiver domain.Archiver
	Notifier *notify.Notifier
	Logger   *slog.Logger
}

// Run reads the input, resumes from any existing output snapshot, processes
// every pending row, and enforces the end-of-run row count invariant. Fatal
// conditions (missing input, unwritable output, row count mismatch) return an
// error; per-row scrape failures do not.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.Logger.With(slog.String("component", "runner"))

	rows, err := dataset.ReadInput(r.InputPath, logger)
	if err != nil {
		return r.fail(ctx, domain.Run{}, err)
	}

	table := dataset.NewTable(r.OutputPath, len(rows))
	done, err := table.Seed(rows)
	if err != nil {
		return r.fail(ctx, domain.Run{}, err)
	}

	run := domain.Run{
		ID:         uuid.NewString(),
		Mode:       r.Mode,
		InputPath:  r.InputPath,
		OutputPath: r.OutputPath,
		RowCount:   len(rows),
		StartedAt:  time.Now().UTC(),
		Status:     "running",
	}
	if r.Store != nil {
		if storeErr := r.Store.CreateRun(ctx, run); storeErr != nil {
			logger.Warn("run store create failed", slog.String("error", storeErr.Error()))
		}
	}

	logger.Info("run started",
		slog.String("run_id", run.ID),
		slog.String("mode", r.Mode),
		slog.Int("rows", len(rows)),
		slog.Int("resumed", len(done)),
	)

	orch := NewOrchestrator(r.Unit, r.Retry, r.Proxies, table, r.Store, run.ID, done, r.Logger)

	switch r.Mode {
	case ModePool:
		err = r.runPool(ctx, orch, rows)
	default:
		err = r.runSequential(ctx, orch, rows)
	}
	if err != nil {
		return r.fail(ctx, run, err)
	}

	// Every input row must have produced exactly one output row.
	if table.Completed() != len(rows) {
		return r.fail(ctx, run, fmt.Errorf("pipeline: %d of %d rows in output: %w",
			table.Completed(), len(rows), domain.ErrRowCountMismatch))
	}

	run.Status = "completed"
	run.FinishedAt = time.Now().UTC()
	if r.Store != nil {
		if storeErr := r.Store.FinishRun(ctx, run); storeErr != nil {
			logger.Warn("run store finish failed", slog.String("error", storeErr.Error()))
		}
	}

	if r.Archiver != nil {
		if location, archErr := r.Archiver.ArchiveRun(ctx, run.ID, r.OutputPath); archErr != nil {
			logger.Warn("archive failed", slog.String("error", archErr.Error()))
		} else {
			logger.Info("output archived", slog.String("location", location))
		}
	}

	if r.Notifier != nil {
		msg := fmt.Sprintf("Processed %d rows (%d resumed).\nOutput: %s", len(rows), len(done), r.OutputPath)
		if notifyErr := r.Notifier.Notify(ctx, EventRunCompleted, "Scrape run completed", msg); notifyErr != nil {
			logger.Warn("completion notification failed", slog.String("error", notifyErr.Error()))
		}
	}

	logger.Info("run completed",
		slog.String("run_id", run.ID),
		slog.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
	)
	return nil
}

func (r *Runner) runSequential(ctx context.Context, orch *Orchestrator, rows []domain.InputRow) error {
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := orch.ProcessRow(ctx, i, row); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runPool(ctx context.Context, orch *Orchestrator, rows []domain.InputRow) error {
	// The queue holds the whole dataset so every row is enqueued before any
	// worker progress gates further submissions.
	pool := NewPool(ctx, r.Workers, len(rows), r.Logger)
	pool.Start()

	for i, row := range rows {
		i, row := i, row
		if err := pool.Submit(func(ctx context.Context) error {
			return orch.ProcessRow(ctx, i, row)
		}); err != nil {
			break
		}
	}
	return pool.Drain()
}

// fail records the terminal state and dispatches the failure notification
// before surfacing err.
func (r *Runner) fail(ctx context.Context, run domain.Run, err error) error {
	if run.ID != "" && r.Store != nil {
		run.Status = "failed"
		run.Error = err.Error()
		run.FinishedAt = time.Now().UTC()
		if storeErr := r.Store.FinishRun(ctx, run); storeErr != nil {
			r.Logger.Warn("run store finish failed", slog.String("error", storeErr.Error()))
		}
	}
	if r.Notifier != nil {
		msg := fmt.Sprintf("Run aborted: %v", err)
		if notifyErr := r.Notifier.Notify(ctx, EventRunFailed, "Scrape run failed", msg); notifyErr != nil {
			r.Logger.Warn("failure notification failed", slog.String("error", notifyErr.Error()))
		}
	}
	return err
}
