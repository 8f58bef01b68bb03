package seed

import (
	"github.com/dairylink/creditledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("seed",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		// Demo data rides on the migrated postgres schema.
		if cfg.Environment == "production" || cfg.DBType != "postgres" {
			return nil
		}
		if err := EnsureDemoData(conn); err != nil {
			return err
		}
		log.Info("demo data ensured", zap.String("environment", cfg.Environment))
		return nil
	}),
)
