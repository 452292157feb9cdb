package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/staff/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
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
		log:   p.Log.Named("staff.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateStaffRequest) (domain.Staff, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.Staff{}, domain.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Staff{}, domain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.Staff{}, domain.ErrInvalidEmail
	}

	role := strings.TrimSpace(req.Role)
	if !domain.ValidRole(role) {
		return domain.Staff{}, domain.ErrInvalidRole
	}

	var branchID snowflake.ID
	if b := strings.TrimSpace(req.BranchID); b != "" {
		branchID, err = snowflake.ParseString(b)
		if err != nil {
			return domain.Staff{}, domain.ErrInvalidID
		}
	}

	existing, err := s.repo.FindByEmail(ctx, s.db, tenantID, email)
	if err != nil {
		return domain.Staff{}, err
	}
	if existing != nil {
		return domain.Staff{}, domain.ErrEmailTaken
	}

	now := s.clock.Now()
	staff := domain.Staff{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		BranchID:  branchID,
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &staff); err != nil {
		return domain.Staff{}, err
	}

	s.log.Info("staff created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("staff_id", staff.ID.String()),
		zap.String("role", staff.Role),
	)
	return staff, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (domain.Staff, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return domain.Staff{}, domain.ErrInvalidTenant
	}
	staffID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || staffID == 0 {
		return domain.Staff{}, domain.ErrInvalidID
	}

	staff, err := s.repo.FindByID(ctx, s.db, tid, staffID)
	if err != nil {
		return domain.Staff{}, err
	}
	if staff == nil {
		return domain.Staff{}, domain.ErrNotFound
	}
	return *staff, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateStaffRequest) (domain.Staff, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tid == 0 {
		return domain.Staff{}, domain.ErrInvalidTenant
	}
	staffID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || staffID == 0 {
		return domain.Staff{}, domain.ErrInvalidID
	}

	staff, err := s.repo.FindByID(ctx, s.db, tid, staffID)
	if err != nil {
		return domain.Staff{}, err
	}
	if staff == nil {
		return domain.Staff{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Staff{}, domain.ErrInvalidName
		}
		staff.Name = name
	}
	if req.Role != nil {
		role := strings.TrimSpace(*req.Role)
		if !domain.ValidRole(role) {
			return domain.Staff{}, domain.ErrInvalidRole
		}
		staff.Role = role
	}
	if req.BranchID != nil {
		branchID, err := snowflake.ParseString(strings.TrimSpace(*req.BranchID))
		if err != nil {
			return domain.Staff{}, domain.ErrInvalidID
		}
		staff.BranchID = branchID
	}
	if req.IsActive != nil {
		staff.IsActive = *req.IsActive
	}
	staff.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, staff); err != nil {
		return domain.Staff{}, err
	}
	return *staff, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]domain.Staff, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.ListByTenant(ctx, s.db, tid)
}
