package migration

import (
	auditdomain "github.com/wellspringhq/foundation/internal/audit/domain"
	authdomain "github.com/wellspringhq/foundation/internal/auth/domain"
	"github.com/wellspringhq/foundation/internal/config"
	memberdomain "github.com/wellspringhq/foundation/internal/member/domain"
	reportingdomain "github.com/wellspringhq/foundation/internal/reporting/domain"
	"github.com/wellspringhq/foundation/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		// sqlite is the dev/test path; golang-migrate drives the server
		// dialects.
		if cfg.DBType == "sqlite" {
			if err := conn.AutoMigrate(
				&memberdomain.Member{},
				&reportingdomain.ReportingRelationship{},
				&authdomain.User{},
				&authdomain.Session{},
				&auditdomain.AuditLog{},
			); err != nil {
				return err
			}
		} else {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB, cfg.DBType); err != nil {
				return err
			}
		}

		if cfg.BootstrapAdmin.Enabled {
			return seed.EnsureAdmin(conn, cfg.BootstrapAdmin)
		}
		return nil
	}),
)
