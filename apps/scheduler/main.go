// Command scheduler runs only the background jobs: expiry reminders,
// expiring lapsed subscriptions and pruning old access events.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/access"
	"github.com/memberline/memberline/internal/billing"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/config"
	"github.com/memberline/memberline/internal/customer"
	"github.com/memberline/memberline/internal/migration"
	"github.com/memberline/memberline/internal/notification"
	"github.com/memberline/memberline/internal/plan"
	"github.com/memberline/memberline/internal/providers"
	"github.com/memberline/memberline/internal/ratelimit"
	"github.com/memberline/memberline/internal/scheduler"
	"github.com/memberline/memberline/internal/subscription"
	"github.com/memberline/memberline/internal/tenant"
	"github.com/memberline/memberline/pkg/db"
	"github.com/memberline/memberline/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		providers.Module,

		// Domains the jobs read and write
		tenant.Module,
		plan.Module,
		customer.Module,
		subscription.Module,
		billing.Module,
		access.Module,
		notification.Module,

		scheduler.Module,
		migration.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
