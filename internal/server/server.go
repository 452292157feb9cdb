// Package server exposes the HTTP API: tenant administration, membership
// management, the kiosk check-in surface and operational endpoints.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	accessdomain "github.com/memberline/memberline/internal/access/domain"
	apikeydomain "github.com/memberline/memberline/internal/apikey/domain"
	"github.com/memberline/memberline/internal/authorization"
	billingdomain "github.com/memberline/memberline/internal/billing/domain"
	branchdomain "github.com/memberline/memberline/internal/branch/domain"
	"github.com/memberline/memberline/internal/config"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	notificationdomain "github.com/memberline/memberline/internal/notification/domain"
	obsmetrics "github.com/memberline/memberline/internal/observability/metrics"
	onboardingdomain "github.com/memberline/memberline/internal/onboarding/domain"
	plandomain "github.com/memberline/memberline/internal/plan/domain"
	staffdomain "github.com/memberline/memberline/internal/staff/domain"
	subscriptiondomain "github.com/memberline/memberline/internal/subscription/domain"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	obsmetrics.Module,
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(registerRoutes),
	fx.Invoke(Run),
)

func NewEngine(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(log, httpMetrics)
}

// Run starts the HTTP listener and ties shutdown to the fx lifecycle.
func Run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	db              *gorm.DB
	genID           *snowflake.Node
	authzSvc        authorization.Service
	onboardingSvc   onboardingdomain.Service
	tenantSvc       tenantdomain.Service
	branchSvc       branchdomain.Service
	staffSvc        staffdomain.Service
	apiKeySvc       apikeydomain.Service
	planSvc         plandomain.Service
	customerSvc     customerdomain.Service
	subscriptionSvc subscriptiondomain.Service
	billingSvc      billingdomain.Service
	accessSvc       accessdomain.Service
	notificationSvc notificationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	DB              *gorm.DB
	GenID           *snowflake.Node
	AuthzSvc        authorization.Service
	OnboardingSvc   onboardingdomain.Service
	TenantSvc       tenantdomain.Service
	BranchSvc       branchdomain.Service
	StaffSvc        staffdomain.Service
	APIKeySvc       apikeydomain.Service
	PlanSvc         plandomain.Service
	CustomerSvc     customerdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	BillingSvc      billingdomain.Service
	AccessSvc       accessdomain.Service
	NotificationSvc notificationdomain.Service
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		db:              p.DB,
		genID:           p.GenID,
		authzSvc:        p.AuthzSvc,
		onboardingSvc:   p.OnboardingSvc,
		tenantSvc:       p.TenantSvc,
		branchSvc:       p.BranchSvc,
		staffSvc:        p.StaffSvc,
		apiKeySvc:       p.APIKeySvc,
		planSvc:         p.PlanSvc,
		customerSvc:     p.CustomerSvc,
		subscriptionSvc: p.SubscriptionSvc,
		billingSvc:      p.BillingSvc,
		accessSvc:       p.AccessSvc,
		notificationSvc: p.NotificationSvc,
	}
}

func registerRoutes(s *Server) {
	s.RegisterPublicRoutes()
	s.RegisterAPIRoutes()
	s.RegisterKioskRoutes()
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) RegisterPublicRoutes() {
	s.engine.POST("/api/signup", s.Signup)
}

func (s *Server) RegisterAPIRoutes() {
	api := s.engine.Group("/api", s.APIKeyRequired())

	// -------- Tenant --------
	api.GET("/tenant", s.GetTenant)
	api.PATCH("/tenant", s.authorizeAction(authorization.ObjectTenant, authorization.ActionUpdate), s.UpdateTenant)

	// -------- Branches --------
	api.GET("/branches", s.ListBranches)
	api.POST("/branches", s.authorizeAction(authorization.ObjectBranch, authorization.ActionCreate), s.CreateBranch)
	api.GET("/branches/:id", s.GetBranchByID)
	api.PATCH("/branches/:id", s.authorizeAction(authorization.ObjectBranch, authorization.ActionUpdate), s.UpdateBranch)

	// -------- Staff --------
	api.GET("/staff", s.ListStaff)
	api.POST("/staff", s.authorizeAction(authorization.ObjectStaff, authorization.ActionCreate), s.CreateStaff)
	api.GET("/staff/:id", s.GetStaffByID)
	api.PATCH("/staff/:id", s.authorizeAction(authorization.ObjectStaff, authorization.ActionUpdate), s.UpdateStaff)

	// -------- API Keys --------
	api.GET("/api-keys", s.ListAPIKeys)
	api.POST("/api-keys", s.CreateAPIKey)
	api.POST("/api-keys/:id/revoke", s.RevokeAPIKey)

	// -------- Plans --------
	api.GET("/plans", s.ListPlans)
	api.POST("/plans", s.authorizeAction(authorization.ObjectPlan, authorization.ActionCreate), s.CreatePlan)
	api.GET("/plans/:id", s.GetPlanByID)
	api.PATCH("/plans/:id", s.authorizeAction(authorization.ObjectPlan, authorization.ActionUpdate), s.UpdatePlan)

	// -------- Customers --------
	api.GET("/customers", s.ListCustomers)
	api.POST("/customers", s.authorizeAction(authorization.ObjectCustomer, authorization.ActionCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.GetCustomerByID)
	api.PATCH("/customers/:id", s.authorizeAction(authorization.ObjectCustomer, authorization.ActionUpdate), s.UpdateCustomer)
	api.DELETE("/customers/:id", s.authorizeAction(authorization.ObjectCustomer, authorization.ActionDelete), s.DeleteCustomer)

	// -------- Subscriptions --------
	api.POST("/subscriptions", s.authorizeAction(authorization.ObjectSubscription, authorization.ActionCreate), s.CreateSubscription)
	api.GET("/subscriptions/expiring", s.ListExpiringSubscriptions)
	api.GET("/subscriptions/:id", s.GetSubscriptionByID)
	api.GET("/customers/:id/subscriptions", s.ListCustomerSubscriptions)
	api.POST("/customers/:id/subscriptions/renew", s.authorizeAction(authorization.ObjectSubscription, authorization.ActionSubscriptionRenew), s.RenewSubscription)
	api.POST("/customers/:id/subscriptions/cancel", s.authorizeAction(authorization.ObjectSubscription, authorization.ActionSubscriptionCancel), s.CancelSubscription)
	api.GET("/customers/:id/member-state", s.GetMemberState)

	// -------- Payments --------
	api.GET("/payments/:id", s.GetPaymentByID)
	api.POST("/payments/:id/refund", s.authorizeAction(authorization.ObjectPayment, authorization.ActionUpdate), s.RefundPayment)
	api.GET("/customers/:id/payments", s.ListCustomerPayments)

	// -------- Cards --------
	api.POST("/cards/assignments", s.authorizeAction(authorization.ObjectCard, authorization.ActionCardAssign), s.BeginCardAssignment)
	api.DELETE("/cards/assignments/:token", s.authorizeAction(authorization.ObjectCard, authorization.ActionCardAssign), s.CancelCardAssignment)
	api.POST("/cards/:id/deactivate", s.authorizeAction(authorization.ObjectCard, authorization.ActionCardDeactivate), s.DeactivateCard)
	api.GET("/customers/:id/cards", s.ListCustomerCards)
	api.GET("/access-events", s.ListAccessEvents)

	// -------- Notifications --------
	api.GET("/customers/:id/notifications", s.ListCustomerNotifications)
	api.POST("/notifications/expiry-reminders", s.SendExpiryReminders)
}

// RegisterKioskRoutes mounts the check-in endpoint used by door terminals.
// Terminals authenticate with the same tenant API keys.
func (s *Server) RegisterKioskRoutes() {
	kiosk := s.engine.Group("/kiosk", s.APIKeyRequired())

	kiosk.POST("/checkin", s.CheckIn)
}
