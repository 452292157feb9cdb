package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/branch/domain"
	"github.com/memberline/memberline/internal/clock"
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
		log:   p.Log.Named("branch.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateBranchRequest) (domain.Branch, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.Branch{}, domain.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Branch{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	branch := domain.Branch{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		Name:      name,
		Address:   strings.TrimSpace(req.Address),
		IsActive:  true,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &branch); err != nil {
		return domain.Branch{}, err
	}

	s.log.Info("branch created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("branch_id", branch.ID.String()),
	)
	return branch, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (domain.Branch, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return domain.Branch{}, domain.ErrInvalidTenant
	}
	branchID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || branchID == 0 {
		return domain.Branch{}, domain.ErrInvalidID
	}

	branch, err := s.repo.FindByID(ctx, s.db, tid, branchID)
	if err != nil {
		return domain.Branch{}, err
	}
	if branch == nil {
		return domain.Branch{}, domain.ErrNotFound
	}
	return *branch, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateBranchRequest) (domain.Branch, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tid == 0 {
		return domain.Branch{}, domain.ErrInvalidTenant
	}
	branchID, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || branchID == 0 {
		return domain.Branch{}, domain.ErrInvalidID
	}

	branch, err := s.repo.FindByID(ctx, s.db, tid, branchID)
	if err != nil {
		return domain.Branch{}, err
	}
	if branch == nil {
		return domain.Branch{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Branch{}, domain.ErrInvalidName
		}
		branch.Name = name
	}
	if req.Address != nil {
		branch.Address = strings.TrimSpace(*req.Address)
	}
	if req.IsActive != nil {
		branch.IsActive = *req.IsActive
	}
	branch.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, branch); err != nil {
		return domain.Branch{}, err
	}
	return *branch, nil
}

func (s *Service) List(ctx context.Context, tenantID string) ([]domain.Branch, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.ListByTenant(ctx, s.db, tid)
}
