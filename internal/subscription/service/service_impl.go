package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/memberline/memberline/internal/billing/domain"
	"github.com/memberline/memberline/internal/clock"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	plandomain "github.com/memberline/memberline/internal/plan/domain"
	"github.com/memberline/memberline/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	GenID        *snowflake.Node
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	PlanRepo     plandomain.Repository
	PaymentRepo  billingdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	repo         domain.Repository
	customerRepo customerdomain.Repository
	planRepo     plandomain.Repository
	paymentRepo  billingdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("subscription.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		planRepo:     p.PlanRepo,
		paymentRepo:  p.PaymentRepo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateSubscriptionRequest) (domain.Subscription, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.Subscription{}, domain.ErrInvalidTenant
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.Subscription{}, domain.ErrInvalidID
	}
	planID, err := snowflake.ParseString(strings.TrimSpace(req.PlanID))
	if err != nil || planID == 0 {
		return domain.Subscription{}, domain.ErrInvalidID
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if customer == nil {
		return domain.Subscription{}, domain.ErrCustomerNotFound
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, tenantID, planID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if plan == nil {
		return domain.Subscription{}, domain.ErrPlanNotFound
	}
	if !plan.IsActive {
		return domain.Subscription{}, domain.ErrPlanInactive
	}

	now := s.clock.Now()
	start := req.StartDate
	if start.IsZero() {
		start = now
	}

	sub := domain.Subscription{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		CustomerID: customerID,
		PlanID:     planID,
		Status:     domain.StatusActive,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, plan.DurationDays),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &sub); err != nil {
			return err
		}
		return s.recordPayment(ctx, tx, &sub, plan, now)
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.Time("end_date", sub.EndDate),
	)
	return sub, nil
}

func (s *Service) Renew(ctx context.Context, req domain.RenewSubscriptionRequest) (domain.Subscription, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.Subscription{}, domain.ErrInvalidTenant
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.Subscription{}, domain.ErrInvalidID
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if customer == nil {
		return domain.Subscription{}, domain.ErrCustomerNotFound
	}

	history, err := s.repo.ListByCustomer(ctx, s.db, tenantID, customerID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if len(history) == 0 {
		return domain.Subscription{}, domain.ErrNoSubscription
	}
	current := domain.CurrentSubscription(history)

	planID := current.PlanID
	if p := strings.TrimSpace(req.PlanID); p != "" {
		planID, err = snowflake.ParseString(p)
		if err != nil || planID == 0 {
			return domain.Subscription{}, domain.ErrInvalidID
		}
	}

	plan, err := s.planRepo.FindByID(ctx, s.db, tenantID, planID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if plan == nil {
		return domain.Subscription{}, domain.ErrPlanNotFound
	}
	if !plan.IsActive {
		return domain.Subscription{}, domain.ErrPlanInactive
	}

	// Renewing before expiry extends from the current end date; renewing
	// after a lapse starts fresh from now.
	now := s.clock.Now()
	start := now
	if !current.Cancelled() && current.EndDate.After(now) {
		start = current.EndDate
	}

	sub := domain.Subscription{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		CustomerID: customerID,
		PlanID:     planID,
		Status:     domain.StatusActive,
		StartDate:  start,
		EndDate:    start.AddDate(0, 0, plan.DurationDays),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &sub); err != nil {
			return err
		}
		return s.recordPayment(ctx, tx, &sub, plan, now)
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription renewed",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("subscription_id", sub.ID.String()),
		zap.Time("end_date", sub.EndDate),
	)
	return sub, nil
}

func (s *Service) Cancel(ctx context.Context, tenantID, customerID string) (domain.Subscription, error) {
	tid, cid, err := parseIDs(tenantID, customerID)
	if err != nil {
		return domain.Subscription{}, err
	}

	history, err := s.repo.ListByCustomer(ctx, s.db, tid, cid)
	if err != nil {
		return domain.Subscription{}, err
	}
	if len(history) == 0 {
		return domain.Subscription{}, domain.ErrNoSubscription
	}

	current := domain.CurrentSubscription(history)
	if current.Cancelled() {
		return domain.Subscription{}, domain.ErrAlreadyCancelled
	}

	now := s.clock.Now()
	current.Status = domain.StatusCancelled
	current.CancelledAt = &now
	current.UpdatedAt = now

	if err := s.repo.Update(ctx, s.db, &current); err != nil {
		return domain.Subscription{}, err
	}

	s.log.Info("subscription cancelled",
		zap.String("tenant_id", tid.String()),
		zap.String("customer_id", cid.String()),
		zap.String("subscription_id", current.ID.String()),
	)
	return current, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (domain.Subscription, error) {
	tid, sid, err := parseIDs(tenantID, id)
	if err != nil {
		return domain.Subscription{}, err
	}

	sub, err := s.repo.FindByID(ctx, s.db, tid, sid)
	if err != nil {
		return domain.Subscription{}, err
	}
	if sub == nil {
		return domain.Subscription{}, domain.ErrNotFound
	}
	return *sub, nil
}

func (s *Service) ListByCustomer(ctx context.Context, tenantID, customerID string) ([]domain.Subscription, error) {
	tid, cid, err := parseIDs(tenantID, customerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByCustomer(ctx, s.db, tid, cid)
}

func (s *Service) GetMemberState(ctx context.Context, tenantID, customerID string) (domain.MemberStateResponse, error) {
	tid, cid, err := parseIDs(tenantID, customerID)
	if err != nil {
		return domain.MemberStateResponse{}, err
	}

	customer, err := s.customerRepo.FindByIDUnscoped(ctx, s.db, tid, cid)
	if err != nil {
		return domain.MemberStateResponse{}, err
	}
	if customer == nil {
		return domain.MemberStateResponse{}, domain.ErrCustomerNotFound
	}

	history, err := s.repo.ListByCustomer(ctx, s.db, tid, cid)
	if err != nil {
		return domain.MemberStateResponse{}, err
	}

	state := domain.ResolveMemberState(*customer, history, s.clock.Now())
	resp := domain.MemberStateResponse{
		CustomerID: cid.String(),
		State:      state,
	}
	if state != domain.StateDeleted && state != domain.StateNoSubscription {
		current := domain.CurrentSubscription(history)
		resp.Current = &current
	}
	return resp, nil
}

func (s *Service) ListExpiring(ctx context.Context, req domain.ListExpiringRequest) ([]domain.ExpiringMembership, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidTenant
	}
	if req.WithinDays <= 0 {
		return nil, domain.ErrInvalidWindow
	}

	now := s.clock.Now()
	until := now.AddDate(0, 0, req.WithinDays)

	rows, err := s.repo.ExpiringWithin(ctx, s.db, tid, now, until)
	if err != nil {
		return nil, err
	}
	return domain.DedupeLatestPerCustomer(rows), nil
}

func (s *Service) recordPayment(ctx context.Context, tx *gorm.DB, sub *domain.Subscription, plan *plandomain.Plan, now time.Time) error {
	if plan.PriceCents == 0 {
		return nil
	}
	payment := billingdomain.Payment{
		ID:             s.genID.Generate(),
		TenantID:       sub.TenantID,
		CustomerID:     sub.CustomerID,
		SubscriptionID: sub.ID,
		PlanID:         plan.ID,
		AmountCents:    plan.PriceCents,
		Currency:       plan.Currency,
		Method:         billingdomain.MethodCash,
		Status:         billingdomain.PaymentPaid,
		PaidAt:         now,
		Metadata:       datatypes.JSONMap{},
		CreatedAt:      now,
	}
	return s.paymentRepo.Insert(ctx, tx, &payment)
}

func parseIDs(tenantID, id string) (snowflake.ID, snowflake.ID, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return 0, 0, domain.ErrInvalidTenant
	}
	sid, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || sid == 0 {
		return 0, 0, domain.ErrInvalidID
	}
	return tid, sid, nil
}
