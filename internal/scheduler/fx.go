package scheduler

import (
	"context"

	"github.com/dairylink/creditledger/internal/config"
	"github.com/robfig/cron/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(StartSweep),
)

// StartSweep runs the settlement sweep on the configured cron expression
// for the lifetime of the application.
func StartSweep(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, sched *Scheduler) error {
	runner := cron.New()
	_, err := runner.AddFunc(cfg.SettlementCron, func() {
		if _, err := sched.RunOnce(context.Background()); err != nil {
			log.Error("settlement sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			runner.Start()
			log.Info("settlement sweep scheduled",
				zap.String("cron", cfg.SettlementCron),
			)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			stopCtx := runner.Stop()
			select {
			case <-stopCtx.Done():
			case <-ctx.Done():
			}
			return nil
		},
	})
	return nil
}
