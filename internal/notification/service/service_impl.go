package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/config"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	"github.com/memberline/memberline/internal/notification/domain"
	plandomain "github.com/memberline/memberline/internal/plan/domain"
	"github.com/memberline/memberline/internal/providers/email"
	subscriptiondomain "github.com/memberline/memberline/internal/subscription/domain"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
	"github.com/memberline/memberline/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Clock        clock.Clock
	GenID        *snowflake.Node
	Repo         domain.Repository
	Email        email.Provider
	Notify       *config.NotifyConfigHolder
	Subs         subscriptiondomain.Service
	TenantRepo   tenantdomain.Repository
	PlanRepo     plandomain.Repository
	CustomerRepo customerdomain.Repository
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	repo         domain.Repository
	email        email.Provider
	notify       *config.NotifyConfigHolder
	subs         subscriptiondomain.Service
	tenantRepo   tenantdomain.Repository
	planRepo     plandomain.Repository
	customerRepo customerdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("notification.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		email:        p.Email,
		notify:       p.Notify,
		subs:         p.Subs,
		tenantRepo:   p.TenantRepo,
		planRepo:     p.PlanRepo,
		customerRepo: p.CustomerRepo,
	}
}

func (s *Service) SendExpiryReminders(ctx context.Context, tenantID string, windowDays int) (domain.ReminderRun, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return domain.ReminderRun{}, domain.ErrInvalidTenant
	}
	if windowDays <= 0 {
		windowDays = s.notify.Get().ReminderWindowDays
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tid)
	if err != nil {
		return domain.ReminderRun{}, err
	}
	if tenant == nil {
		return domain.ReminderRun{}, domain.ErrNotFound
	}

	expiring, err := s.subs.ListExpiring(ctx, subscriptiondomain.ListExpiringRequest{
		TenantID:   tenantID,
		WithinDays: windowDays,
	})
	if err != nil {
		return domain.ReminderRun{}, err
	}

	run := domain.ReminderRun{Scanned: len(expiring)}
	for _, row := range expiring {
		sent, err := s.sendReminder(ctx, tenant, row)
		if err != nil {
			s.log.Warn("expiry reminder failed",
				zap.String("customer_id", row.Customer.ID.String()),
				zap.Error(err),
			)
			run.Skipped++
			continue
		}
		if sent {
			run.Sent++
		} else {
			run.Skipped++
		}
	}

	s.log.Info("expiry reminder run finished",
		zap.String("tenant_id", tenantID),
		zap.Int("scanned", run.Scanned),
		zap.Int("sent", run.Sent),
		zap.Int("skipped", run.Skipped),
	)
	return run, nil
}

func (s *Service) sendReminder(ctx context.Context, tenant *tenantdomain.Tenant, row subscriptiondomain.ExpiringMembership) (bool, error) {
	if row.Customer.Email == "" {
		return false, nil
	}

	already, err := s.repo.Exists(ctx, s.db, row.Subscription.ID, domain.KindExpiryReminder)
	if err != nil {
		return false, err
	}
	if already {
		return false, nil
	}

	planName := "membership"
	if plan, err := s.planRepo.FindByID(ctx, s.db, tenant.ID, row.Subscription.PlanID); err == nil && plan != nil {
		planName = plan.Name
	}

	data := map[string]interface{}{
		"subject":       s.notify.Get().ReminderSubject,
		"customer_name": row.Customer.Name,
		"tenant_name":   tenant.Name,
		"plan_name":     planName,
		"end_date":      row.Subscription.EndDate.Format("January 2, 2006"),
	}
	if err := s.email.SendTemplate(ctx, []string{row.Customer.Email}, "expiry_reminder", data); err != nil {
		return false, err
	}

	entry := domain.NotificationLog{
		ID:             s.genID.Generate(),
		TenantID:       tenant.ID,
		CustomerID:     row.Customer.ID,
		SubscriptionID: row.Subscription.ID,
		Kind:           domain.KindExpiryReminder,
		Recipient:      row.Customer.Email,
		SentAt:         s.clock.Now(),
		CreatedAt:      s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		// A concurrent run won the race; the email went out once either way.
		if db.IsDuplicateKeyErr(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Service) SendWelcome(ctx context.Context, tenantID, customerID, subscriptionID string) error {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return domain.ErrInvalidTenant
	}
	sid, err := snowflake.ParseString(strings.TrimSpace(subscriptionID))
	if err != nil || sid == 0 {
		return domain.ErrInvalidID
	}

	state, err := s.subs.GetMemberState(ctx, tenantID, customerID)
	if err != nil {
		return err
	}
	if state.Current == nil || state.Current.ID != sid {
		return domain.ErrNotFound
	}

	already, err := s.repo.Exists(ctx, s.db, sid, domain.KindWelcome)
	if err != nil || already {
		return err
	}

	tenant, err := s.tenantRepo.FindByID(ctx, s.db, tid)
	if err != nil {
		return err
	}
	if tenant == nil {
		return domain.ErrNotFound
	}

	customer, err := s.customerFor(ctx, tid, state.Current.CustomerID)
	if err != nil || customer == nil || customer.Email == "" {
		return err
	}

	planName := "membership"
	if plan, err := s.planRepo.FindByID(ctx, s.db, tid, state.Current.PlanID); err == nil && plan != nil {
		planName = plan.Name
	}

	data := map[string]interface{}{
		"subject":       "Welcome to " + tenant.Name,
		"customer_name": customer.Name,
		"tenant_name":   tenant.Name,
		"plan_name":     planName,
		"end_date":      state.Current.EndDate.Format("January 2, 2006"),
	}
	if err := s.email.SendTemplate(ctx, []string{customer.Email}, "welcome", data); err != nil {
		return err
	}

	entry := domain.NotificationLog{
		ID:             s.genID.Generate(),
		TenantID:       tid,
		CustomerID:     customer.ID,
		SubscriptionID: sid,
		Kind:           domain.KindWelcome,
		Recipient:      customer.Email,
		SentAt:         s.clock.Now(),
		CreatedAt:      s.clock.Now(),
	}
	if err := s.repo.Insert(ctx, s.db, &entry); err != nil && !db.IsDuplicateKeyErr(err) {
		return err
	}
	return nil
}

func (s *Service) customerFor(ctx context.Context, tenantID, customerID snowflake.ID) (*customerdomain.Customer, error) {
	return s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
}

func (s *Service) ListByCustomer(ctx context.Context, tenantID, customerID string) ([]domain.NotificationLog, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidTenant
	}
	cid, err := snowflake.ParseString(strings.TrimSpace(customerID))
	if err != nil || cid == 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListByCustomer(ctx, s.db, tid, cid)
}
