package migration

import (
	accessdomain "github.com/memberline/memberline/internal/access/domain"
	apikeydomain "github.com/memberline/memberline/internal/apikey/domain"
	billingdomain "github.com/memberline/memberline/internal/billing/domain"
	branchdomain "github.com/memberline/memberline/internal/branch/domain"
	"github.com/memberline/memberline/internal/config"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	notificationdomain "github.com/memberline/memberline/internal/notification/domain"
	plandomain "github.com/memberline/memberline/internal/plan/domain"
	"github.com/memberline/memberline/internal/seed"
	staffdomain "github.com/memberline/memberline/internal/staff/domain"
	subscriptiondomain "github.com/memberline/memberline/internal/subscription/domain"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
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
			// Versioned migrations are written for postgres. Other dialects
			// are used for local development only.
			if err := conn.AutoMigrate(
				&tenantdomain.Tenant{},
				&branchdomain.Branch{},
				&staffdomain.Staff{},
				&apikeydomain.APIKey{},
				&plandomain.Plan{},
				&customerdomain.Customer{},
				&subscriptiondomain.Subscription{},
				&billingdomain.Payment{},
				&accessdomain.Card{},
				&accessdomain.AccessEvent{},
				&notificationdomain.NotificationLog{},
			); err != nil {
				return err
			}
		}

		if cfg.DefaultTenantID != 0 {
			return seed.EnsureMainTenantWithID(conn, cfg.DefaultTenantID)
		}
		return seed.EnsureMainTenant(conn)
	}),
)
