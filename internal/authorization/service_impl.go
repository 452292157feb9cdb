package authorization

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectTenant       = "tenant"
	ObjectBranch       = "branch"
	ObjectStaff        = "staff"
	ObjectPlan         = "plan"
	ObjectCustomer     = "customer"
	ObjectSubscription = "subscription"
	ObjectPayment      = "payment"
	ObjectCard         = "card"
	ObjectReport       = "report"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"

	ActionSubscriptionCancel = "cancel"
	ActionSubscriptionRenew  = "renew"
	ActionCardAssign         = "assign"
	ActionCardDeactivate     = "deactivate"
)

var (
	ErrInvalidActor  = errors.New("invalid_actor")
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidObject = errors.New("invalid_object")
	ErrInvalidAction = errors.New("invalid_action")
	ErrForbidden     = errors.New("forbidden")
)

type Service interface {
	Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

// Authorize checks whether an actor ("system", "api_key:<id>" or "staff:<id>")
// may perform object.action within the tenant domain.
func (s *ServiceImpl) Authorize(ctx context.Context, actor string, tenantID string, object string, action string) error {
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return ErrInvalidActor
	}
	tenantID = strings.TrimSpace(tenantID)
	if tenantID == "" {
		return ErrInvalidTenant
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject, roleName, err := s.resolveActor(ctx, actor, tenantID)
	if err != nil {
		return err
	}

	domain := fmt.Sprintf("tenant:%s", tenantID)
	if err := s.ensureGrouping(subject, roleName, domain); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, domain, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("actor", actor),
			zap.String("tenant_id", tenantID),
			zap.String("object", object),
			zap.String("action", action),
		)
		return ErrForbidden
	}
	return nil
}

func (s *ServiceImpl) resolveActor(ctx context.Context, actor string, tenantID string) (string, string, error) {
	if actor == "system" {
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "api_key:") {
		// API keys act with the system role inside their tenant.
		raw := strings.TrimPrefix(actor, "api_key:")
		if id, err := snowflake.ParseString(raw); err != nil || id == 0 {
			return "", "", ErrInvalidActor
		}
		return actor, "role:system", nil
	}
	if strings.HasPrefix(actor, "staff:") {
		raw := strings.TrimPrefix(actor, "staff:")
		staffID, err := snowflake.ParseString(raw)
		if err != nil || staffID == 0 {
			return "", "", ErrInvalidActor
		}
		parsedTenantID, err := snowflake.ParseString(tenantID)
		if err != nil || parsedTenantID == 0 {
			return "", "", ErrInvalidTenant
		}
		role, err := s.roleForStaff(ctx, parsedTenantID, staffID)
		if err != nil {
			return "", "", err
		}
		return actor, fmt.Sprintf("role:%s", strings.ToLower(role)), nil
	}
	return "", "", ErrInvalidActor
}

func (s *ServiceImpl) roleForStaff(ctx context.Context, tenantID, staffID snowflake.ID) (string, error) {
	var row struct {
		Role string `gorm:"column:role"`
	}
	err := s.db.WithContext(ctx).Raw(
		`SELECT role
		 FROM staff
		 WHERE tenant_id = ? AND id = ? AND is_active = ?
		 LIMIT 1`,
		tenantID,
		staffID,
		true,
	).Scan(&row).Error
	if err != nil {
		return "", err
	}
	if row.Role == "" {
		return "", ErrForbidden
	}
	return row.Role, nil
}

func (s *ServiceImpl) ensureGrouping(subject, roleName, domain string) error {
	has, err := s.enforcer.HasGroupingPolicy(subject, roleName, domain)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName, domain)
	return err
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	type grant struct {
		role    string
		object  string
		actions []string
	}

	all := []string{ActionView, ActionCreate, ActionUpdate, ActionDelete}
	grants := []grant{
		{"role:system", ObjectTenant, all},
		{"role:system", ObjectBranch, all},
		{"role:system", ObjectStaff, all},
		{"role:system", ObjectPlan, all},
		{"role:system", ObjectCustomer, all},
		{"role:system", ObjectSubscription, append(all, ActionSubscriptionCancel, ActionSubscriptionRenew)},
		{"role:system", ObjectPayment, all},
		{"role:system", ObjectCard, append(all, ActionCardAssign, ActionCardDeactivate)},
		{"role:system", ObjectReport, []string{ActionView}},

		{"role:owner", ObjectTenant, []string{ActionView, ActionUpdate}},
		{"role:owner", ObjectBranch, all},
		{"role:owner", ObjectStaff, all},
		{"role:owner", ObjectPlan, all},
		{"role:owner", ObjectCustomer, all},
		{"role:owner", ObjectSubscription, append(all, ActionSubscriptionCancel, ActionSubscriptionRenew)},
		{"role:owner", ObjectPayment, all},
		{"role:owner", ObjectCard, append(all, ActionCardAssign, ActionCardDeactivate)},
		{"role:owner", ObjectReport, []string{ActionView}},

		{"role:manager", ObjectBranch, []string{ActionView}},
		{"role:manager", ObjectStaff, []string{ActionView}},
		{"role:manager", ObjectPlan, all},
		{"role:manager", ObjectCustomer, all},
		{"role:manager", ObjectSubscription, append(all, ActionSubscriptionCancel, ActionSubscriptionRenew)},
		{"role:manager", ObjectPayment, all},
		{"role:manager", ObjectCard, append(all, ActionCardAssign, ActionCardDeactivate)},
		{"role:manager", ObjectReport, []string{ActionView}},

		{"role:front_desk", ObjectCustomer, []string{ActionView, ActionCreate, ActionUpdate}},
		{"role:front_desk", ObjectSubscription, []string{ActionView, ActionCreate, ActionSubscriptionRenew}},
		{"role:front_desk", ObjectPayment, []string{ActionView, ActionCreate}},
		{"role:front_desk", ObjectCard, []string{ActionView, ActionCardAssign}},
	}

	for _, g := range grants {
		for _, action := range g.actions {
			if _, err := enforcer.AddPolicy(g.role, "*", g.object, action); err != nil {
				return err
			}
		}
	}
	return nil
}

// Module wires the casbin enforcer and authorization service.
var Module = fx.Module("authorization",
	fx.Provide(NewEnforcer),
	fx.Provide(NewService),
)
