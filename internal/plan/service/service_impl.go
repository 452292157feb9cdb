package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/plan/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("plan.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePlanRequest) (domain.Plan, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.Plan{}, domain.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Plan{}, domain.ErrInvalidName
	}
	if req.DurationDays <= 0 {
		return domain.Plan{}, domain.ErrInvalidDuration
	}
	if req.PriceCents < 0 {
		return domain.Plan{}, domain.ErrInvalidPrice
	}

	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return domain.Plan{}, domain.ErrInvalidCurrency
	}

	now := s.clock.Now()
	plan := domain.Plan{
		ID:           s.genID.Generate(),
		TenantID:     tenantID,
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		DurationDays: req.DurationDays,
		PriceCents:   req.PriceCents,
		Currency:     currency,
		IsActive:     true,
		Metadata:     datatypes.JSONMap{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &plan); err != nil {
		return domain.Plan{}, err
	}

	s.log.Info("plan created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("plan_id", plan.ID.String()),
		zap.Int("duration_days", plan.DurationDays),
	)
	return plan, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (domain.Plan, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return domain.Plan{}, domain.ErrInvalidTenant
	}
	planID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || planID == 0 {
		return domain.Plan{}, domain.ErrInvalidID
	}

	plan, err := s.repo.FindByID(ctx, s.db, tid, planID)
	if err != nil {
		return domain.Plan{}, err
	}
	if plan == nil {
		return domain.Plan{}, domain.ErrNotFound
	}
	return *plan, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdatePlanRequest) (domain.Plan, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tid == 0 {
		return domain.Plan{}, domain.ErrInvalidTenant
	}
	planID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || planID == 0 {
		return domain.Plan{}, domain.ErrInvalidID
	}

	plan, err := s.repo.FindByID(ctx, s.db, tid, planID)
	if err != nil {
		return domain.Plan{}, err
	}
	if plan == nil {
		return domain.Plan{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Plan{}, domain.ErrInvalidName
		}
		plan.Name = name
	}
	if req.Description != nil {
		plan.Description = strings.TrimSpace(*req.Description)
	}
	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			return domain.Plan{}, domain.ErrInvalidPrice
		}
		plan.PriceCents = *req.PriceCents
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}
	plan.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, plan); err != nil {
		return domain.Plan{}, err
	}
	return *plan, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPlansRequest) ([]domain.Plan, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.ListByTenant(ctx, s.db, tid, req.ActiveOnly)
}
