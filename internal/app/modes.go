package app

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/soldscout/internal/pipeline"
)

// SequentialMode processes rows one at a time in input order.
func (a *App) SequentialMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting sequential mode")
	return a.buildRunner(deps, pipeline.ModeSequential).Run(ctx)
}

// PoolMode processes rows through a bounded worker pool.
func (a *App) PoolMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting pool mode",
		slog.Int("workers", a.cfg.Pool.Workers),
	)
	return a.buildRunner(deps, pipeline.ModePool).Run(ctx)
}

func (a *App) buildRunner(deps *Dependencies, mode string) *pipeline.Runner {
	return &pipeline.Runner{
		InputPath:  a.cfg.Dataset.InputPath,
		OutputPath: a.cfg.Dataset.OutputPath,
		Mode:       mode,
		Workers:    a.cfg.Pool.Workers,
		Proxies:    deps.Proxies,
		Unit:       deps.Unit,
		Retry:      deps.Retry,
		Store:      deps.RunStore,
		Archiver:   deps.Archiver,
		Notifier:   deps.Notifier,
		Logger:     a.logger,
	}
}
