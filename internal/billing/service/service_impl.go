package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/billing/domain"
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
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billing.service"),
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, tenantID, id string) (domain.Payment, error) {
	tid, pid, err := parseIDs(tenantID, id)
	if err != nil {
		return domain.Payment{}, err
	}

	payment, err := s.repo.FindByID(ctx, s.db, tid, pid)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	return *payment, nil
}

func (s *Service) ListByCustomer(ctx context.Context, tenantID, customerID string) ([]domain.Payment, error) {
	tid, cid, err := parseIDs(tenantID, customerID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByCustomer(ctx, s.db, tid, cid)
}

func (s *Service) Refund(ctx context.Context, req domain.RefundPaymentRequest) (domain.Payment, error) {
	tid, pid, err := parseIDs(req.TenantID, req.ID)
	if err != nil {
		return domain.Payment{}, err
	}

	payment, err := s.repo.FindByID(ctx, s.db, tid, pid)
	if err != nil {
		return domain.Payment{}, err
	}
	if payment == nil {
		return domain.Payment{}, domain.ErrNotFound
	}
	if payment.Status == domain.PaymentRefunded {
		return *payment, nil
	}

	payment.Status = domain.PaymentRefunded
	if payment.Metadata == nil {
		payment.Metadata = datatypes.JSONMap{}
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		payment.Metadata["refund_reason"] = reason
	}
	payment.Metadata["refunded_at"] = s.clock.Now().Format(time.RFC3339)

	if err := s.repo.Update(ctx, s.db, payment); err != nil {
		return domain.Payment{}, err
	}

	s.log.Info("payment refunded",
		zap.String("tenant_id", tid.String()),
		zap.String("payment_id", pid.String()),
	)
	return *payment, nil
}

func parseIDs(tenantID, id string) (snowflake.ID, snowflake.ID, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return 0, 0, domain.ErrInvalidTenant
	}
	pid, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || pid == 0 {
		return 0, 0, domain.ErrInvalidID
	}
	return tid, pid, nil
}
