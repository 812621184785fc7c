package migration

import (
	"github.com/jwwtc/fleet-intelligence/internal/alert/domain"
	"github.com/jwwtc/fleet-intelligence/internal/config"
	fleetdomain "github.com/jwwtc/fleet-intelligence/internal/fleet/domain"
	"github.com/jwwtc/fleet-intelligence/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// sqlite and mysql are dev conveniences; the versioned SQL
			// only targets postgres.
			if err := conn.AutoMigrate(
				&fleetdomain.Category{},
				&fleetdomain.Store{},
				&fleetdomain.Vehicle{},
				&fleetdomain.Customer{},
				&fleetdomain.Transaction{},
				&fleetdomain.PerformanceMetric{},
				&domain.OperationalEvent{},
			); err != nil {
				return err
			}
		}

		if cfg.SeedDemoData {
			return seed.EnsureDemoData(conn)
		}
		return nil
	}),
)
