// Command memberline runs the full stack in one process: HTTP API, kiosk
// endpoints and the background scheduler.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/access"
	"github.com/memberline/memberline/internal/apikey"
	"github.com/memberline/memberline/internal/authorization"
	"github.com/memberline/memberline/internal/billing"
	"github.com/memberline/memberline/internal/branch"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/config"
	"github.com/memberline/memberline/internal/customer"
	"github.com/memberline/memberline/internal/migration"
	"github.com/memberline/memberline/internal/notification"
	"github.com/memberline/memberline/internal/onboarding"
	"github.com/memberline/memberline/internal/plan"
	"github.com/memberline/memberline/internal/providers"
	"github.com/memberline/memberline/internal/ratelimit"
	"github.com/memberline/memberline/internal/scheduler"
	"github.com/memberline/memberline/internal/server"
	"github.com/memberline/memberline/internal/staff"
	"github.com/memberline/memberline/internal/subscription"
	"github.com/memberline/memberline/internal/tenant"
	"github.com/memberline/memberline/pkg/db"
	"github.com/memberline/memberline/pkg/log"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		ratelimit.Module,
		authorization.Module,
		providers.Module,

		// Functional domains
		tenant.Module,
		branch.Module,
		staff.Module,
		apikey.Module,
		plan.Module,
		customer.Module,
		subscription.Module,
		billing.Module,
		access.Module,
		notification.Module,
		onboarding.Module,

		server.Module,
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
