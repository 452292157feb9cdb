package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/customer/domain"
	"github.com/memberline/memberline/pkg/db/pagination"
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
		log:   p.Log.Named("customer.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.Customer{}, domain.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email != "" && !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	var branchID snowflake.ID
	if b := strings.TrimSpace(req.BranchID); b != "" {
		branchID, err = snowflake.ParseString(b)
		if err != nil {
			return domain.Customer{}, domain.ErrInvalidID
		}
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		TenantID:  tenantID,
		BranchID:  branchID,
		Name:      name,
		Email:     email,
		Phone:     strings.TrimSpace(req.Phone),
		IsActive:  true,
		Metadata:  datatypes.JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	s.log.Info("customer created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customer.ID.String()),
	)
	return customer, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (domain.Customer, error) {
	tid, cid, err := parseIDs(tenantID, id)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, tid, cid)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *customer, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	tid, cid, err := parseIDs(req.TenantID, req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, tid, cid)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		customer.Name = name
	}
	if req.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*req.Email))
		if email != "" && !strings.Contains(email, "@") {
			return domain.Customer{}, domain.ErrInvalidEmail
		}
		customer.Email = email
	}
	if req.Phone != nil {
		customer.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.BranchID != nil {
		branchID, err := snowflake.ParseString(strings.TrimSpace(*req.BranchID))
		if err != nil {
			return domain.Customer{}, domain.ErrInvalidID
		}
		customer.BranchID = branchID
	}
	if req.IsActive != nil {
		customer.IsActive = *req.IsActive
	}
	customer.UpdatedAt = s.clock.Now()

	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return domain.Customer{}, err
	}
	return *customer, nil
}

func (s *Service) Delete(ctx context.Context, tenantID, id string) error {
	tid, cid, err := parseIDs(tenantID, id)
	if err != nil {
		return err
	}

	customer, err := s.repo.FindByIDUnscoped(ctx, s.db, tid, cid)
	if err != nil {
		return err
	}
	if customer == nil {
		return domain.ErrNotFound
	}
	if customer.Deleted() {
		return nil
	}

	if err := s.repo.SoftDelete(ctx, s.db, tid, cid); err != nil {
		return err
	}

	s.log.Info("customer deleted",
		zap.String("tenant_id", tid.String()),
		zap.String("customer_id", cid.String()),
	)
	return nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomersRequest) (domain.ListCustomersResponse, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tid == 0 {
		return domain.ListCustomersResponse{}, domain.ErrInvalidTenant
	}

	filter := domain.ListFilter{
		TenantID:   tid,
		ActiveOnly: req.ActiveOnly,
		Search:     strings.TrimSpace(req.Search),
		Pagination: req.Pagination,
	}
	if b := strings.TrimSpace(req.BranchID); b != "" {
		branchID, err := snowflake.ParseString(b)
		if err != nil {
			return domain.ListCustomersResponse{}, domain.ErrInvalidID
		}
		filter.BranchID = branchID
	}

	customers, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListCustomersResponse{}, err
	}

	limit := req.Pagination.PageSize
	if limit <= 0 {
		limit = 50
	}
	customers, pageInfo := pagination.BuildCursorPageInfo(customers, limit, func(c domain.Customer) pagination.Cursor {
		return pagination.Cursor{ID: c.ID.Int64(), CreatedAt: c.CreatedAt}
	})

	return domain.ListCustomersResponse{Customers: customers, PageInfo: pageInfo}, nil
}

func parseIDs(tenantID, id string) (snowflake.ID, snowflake.ID, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return 0, 0, domain.ErrInvalidTenant
	}
	cid, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || cid == 0 {
		return 0, 0, domain.ErrInvalidID
	}
	return tid, cid, nil
}
