package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
	"github.com/memberline/memberline/internal/access/domain"
	"github.com/memberline/memberline/internal/access/pending"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/config"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	"github.com/memberline/memberline/internal/ratelimit"
	subscriptiondomain "github.com/memberline/memberline/internal/subscription/domain"
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
	CustomerRepo customerdomain.Repository
	SubRepo      subscriptiondomain.Repository
	Pending      pending.Store
	Notify       *config.NotifyConfigHolder
	Limiter      *ratelimit.CheckinLimiter
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	clock        clock.Clock
	genID        *snowflake.Node
	repo         domain.Repository
	customerRepo customerdomain.Repository
	subRepo      subscriptiondomain.Repository
	pending      pending.Store
	notify       *config.NotifyConfigHolder
	limiter      *ratelimit.CheckinLimiter
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("access.service"),
		clock:        p.Clock,
		genID:        p.GenID,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		subRepo:      p.SubRepo,
		pending:      p.Pending,
		notify:       p.Notify,
		limiter:      p.Limiter,
	}
}

func (s *Service) BeginAssignment(ctx context.Context, req domain.BeginAssignmentRequest) (domain.PendingAssignment, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.PendingAssignment{}, domain.ErrInvalidTenant
	}
	customerID, err := snowflake.ParseString(strings.TrimSpace(req.CustomerID))
	if err != nil || customerID == 0 {
		return domain.PendingAssignment{}, domain.ErrInvalidID
	}

	customer, err := s.customerRepo.FindByID(ctx, s.db, tenantID, customerID)
	if err != nil {
		return domain.PendingAssignment{}, err
	}
	if customer == nil {
		return domain.PendingAssignment{}, domain.ErrCustomerNotFound
	}

	ttl := time.Duration(s.notify.Get().PendingCardTTLSecs) * time.Second
	assignment := pending.Assignment{
		CustomerID: customerID.String(),
		Token:      uuid.NewString(),
	}
	if err := s.pending.Open(ctx, tenantID.String(), assignment, ttl); err != nil {
		return domain.PendingAssignment{}, domain.ErrAssignmentsOffline
	}

	s.log.Info("card assignment window opened",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Duration("ttl", ttl),
	)
	return domain.PendingAssignment{
		Token:      assignment.Token,
		CustomerID: assignment.CustomerID,
		ExpiresAt:  s.clock.Now().Add(ttl),
	}, nil
}

// CancelAssignment closes an open window before a card is tapped. The
// token proves the caller opened it, so a later window for the same
// tenant cannot be torn down by a stale request.
func (s *Service) CancelAssignment(ctx context.Context, tenantID, token string) error {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return domain.ErrInvalidTenant
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.ErrInvalidID
	}

	ok, err := s.pending.Cancel(ctx, tid.String(), token)
	if err != nil {
		s.log.Warn("pending assignment cancel failed", zap.Error(err))
		return domain.ErrAssignmentsOffline
	}
	if !ok {
		return domain.ErrNotFound
	}

	s.log.Info("card assignment window cancelled",
		zap.String("tenant_id", tid.String()),
	)
	return nil
}

func (s *Service) CheckIn(ctx context.Context, req domain.CheckInRequest) (domain.CheckInResponse, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.CheckInResponse{}, domain.ErrInvalidTenant
	}
	cardUID := strings.TrimSpace(req.CardUID)
	if cardUID == "" {
		return domain.CheckInResponse{}, domain.ErrInvalidCardUID
	}
	terminalID := strings.TrimSpace(req.TerminalID)
	if terminalID == "" {
		terminalID = "unknown"
	}

	var branchID snowflake.ID
	if b := strings.TrimSpace(req.BranchID); b != "" {
		branchID, _ = snowflake.ParseString(b)
	}

	allowed, err := s.limiter.Allow(ctx, terminalID)
	if err != nil {
		s.log.Warn("checkin rate limiter unavailable", zap.Error(err))
		allowed = true
	}
	if !allowed {
		return s.deny(ctx, tenantID, branchID, 0, cardUID, terminalID, domain.ReasonRateLimited)
	}

	card, err := s.repo.FindCardByUID(ctx, s.db, cardUID)
	if err != nil {
		return domain.CheckInResponse{}, err
	}

	if card == nil {
		card, err = s.claimPending(ctx, tenantID, cardUID)
		if err != nil {
			return domain.CheckInResponse{}, err
		}
		if card == nil {
			return s.deny(ctx, tenantID, branchID, 0, cardUID, terminalID, domain.ReasonUnknownCard)
		}
	} else if card.TenantID != tenantID {
		return s.deny(ctx, tenantID, branchID, 0, cardUID, terminalID, domain.ReasonUnknownCard)
	}

	if card.Status != domain.CardActive {
		return s.deny(ctx, tenantID, branchID, card.CustomerID, cardUID, terminalID, domain.ReasonCardDeactivated)
	}

	customer, err := s.customerRepo.FindByIDUnscoped(ctx, s.db, tenantID, card.CustomerID)
	if err != nil {
		return domain.CheckInResponse{}, err
	}
	if customer == nil {
		return s.deny(ctx, tenantID, branchID, card.CustomerID, cardUID, terminalID, domain.ReasonMemberDeleted)
	}

	history, err := s.subRepo.ListByCustomer(ctx, s.db, tenantID, card.CustomerID)
	if err != nil {
		return domain.CheckInResponse{}, err
	}

	state := subscriptiondomain.ResolveMemberState(*customer, history, s.clock.Now())
	switch state {
	case subscriptiondomain.StateActive:
		resp, err := s.record(ctx, tenantID, branchID, card.CustomerID, cardUID, terminalID, domain.ResultGranted, "")
		if err != nil {
			return domain.CheckInResponse{}, err
		}
		resp.CustomerID = customer.ID.String()
		resp.CustomerName = customer.Name
		resp.MemberState = string(state)
		return resp, nil
	case subscriptiondomain.StateDeleted:
		return s.denyWithState(ctx, tenantID, branchID, card.CustomerID, cardUID, terminalID, domain.ReasonMemberDeleted, state)
	case subscriptiondomain.StateCancelled:
		return s.denyWithState(ctx, tenantID, branchID, card.CustomerID, cardUID, terminalID, domain.ReasonMemberCancelled, state)
	case subscriptiondomain.StateNoSubscription:
		return s.denyWithState(ctx, tenantID, branchID, card.CustomerID, cardUID, terminalID, domain.ReasonNoSubscription, state)
	default:
		return s.denyWithState(ctx, tenantID, branchID, card.CustomerID, cardUID, terminalID, domain.ReasonMemberExpired, state)
	}
}

// claimPending binds an unknown card to the customer an assignment window
// is open for. Returns nil when no window is open.
func (s *Service) claimPending(ctx context.Context, tenantID snowflake.ID, cardUID string) (*domain.Card, error) {
	assignment, ok, err := s.pending.Claim(ctx, tenantID.String())
	if err != nil {
		s.log.Warn("pending assignment claim failed", zap.Error(err))
		return nil, nil
	}
	if !ok {
		return nil, nil
	}

	customerID, err := snowflake.ParseString(assignment.CustomerID)
	if err != nil {
		return nil, nil
	}

	now := s.clock.Now()
	card := domain.Card{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		CustomerID: customerID,
		CardUID:    cardUID,
		Status:     domain.CardActive,
		AssignedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.InsertCard(ctx, s.db, &card); err != nil {
		return nil, err
	}

	s.log.Info("card assigned",
		zap.String("tenant_id", tenantID.String()),
		zap.String("customer_id", customerID.String()),
		zap.String("card_uid", cardUID),
	)
	return &card, nil
}

func (s *Service) DeactivateCard(ctx context.Context, tenantID, cardID string) (domain.Card, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return domain.Card{}, domain.ErrInvalidTenant
	}
	cid, err := snowflake.ParseString(strings.TrimSpace(cardID))
	if err != nil || cid == 0 {
		return domain.Card{}, domain.ErrInvalidID
	}

	card, err := s.repo.FindCardByID(ctx, s.db, tid, cid)
	if err != nil {
		return domain.Card{}, err
	}
	if card == nil {
		return domain.Card{}, domain.ErrNotFound
	}
	if card.Status == domain.CardDeactivated {
		return *card, nil
	}

	now := s.clock.Now()
	card.Status = domain.CardDeactivated
	card.DeactivatedAt = &now
	card.UpdatedAt = now

	if err := s.repo.UpdateCard(ctx, s.db, card); err != nil {
		return domain.Card{}, err
	}
	return *card, nil
}

func (s *Service) ListCardsByCustomer(ctx context.Context, tenantID, customerID string) ([]domain.Card, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidTenant
	}
	cid, err := snowflake.ParseString(strings.TrimSpace(customerID))
	if err != nil || cid == 0 {
		return nil, domain.ErrInvalidID
	}
	return s.repo.ListCardsByCustomer(ctx, s.db, tid, cid)
}

func (s *Service) ListEvents(ctx context.Context, req domain.ListEventsRequest) ([]domain.AccessEvent, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.ListEvents(ctx, s.db, tid, req.Since, req.Limit)
}

func (s *Service) deny(ctx context.Context, tenantID, branchID, customerID snowflake.ID, cardUID, terminalID, reason string) (domain.CheckInResponse, error) {
	return s.record(ctx, tenantID, branchID, customerID, cardUID, terminalID, domain.ResultDenied, reason)
}

func (s *Service) denyWithState(ctx context.Context, tenantID, branchID, customerID snowflake.ID, cardUID, terminalID, reason string, state subscriptiondomain.MemberState) (domain.CheckInResponse, error) {
	resp, err := s.deny(ctx, tenantID, branchID, customerID, cardUID, terminalID, reason)
	if err != nil {
		return domain.CheckInResponse{}, err
	}
	resp.CustomerID = customerID.String()
	resp.MemberState = string(state)
	return resp, nil
}

func (s *Service) record(ctx context.Context, tenantID, branchID, customerID snowflake.ID, cardUID, terminalID, result, reason string) (domain.CheckInResponse, error) {
	event := domain.AccessEvent{
		ID:         s.genID.Generate(),
		TenantID:   tenantID,
		BranchID:   branchID,
		CustomerID: customerID,
		CardUID:    cardUID,
		TerminalID: terminalID,
		Result:     result,
		Reason:     reason,
		OccurredAt: s.clock.Now(),
		CreatedAt:  s.clock.Now(),
	}
	if err := s.repo.InsertEvent(ctx, s.db, &event); err != nil {
		return domain.CheckInResponse{}, err
	}
	return domain.CheckInResponse{Result: result, Reason: reason}, nil
}
