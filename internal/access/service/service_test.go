package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/memberline/memberline/internal/access/domain"
	"github.com/memberline/memberline/internal/access/pending"
	accessrepo "github.com/memberline/memberline/internal/access/repository"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/config"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	customerrepo "github.com/memberline/memberline/internal/customer/repository"
	subscriptiondomain "github.com/memberline/memberline/internal/subscription/domain"
	subscriptionrepo "github.com/memberline/memberline/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var baseNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	genID    *snowflake.Node
	pending  pending.Store
	tenantID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&subscriptiondomain.Subscription{},
		&domain.Card{},
		&domain.AccessEvent{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	fake := clock.NewFakeClock(baseNow)
	store := pending.New(nil, fake)

	holder, err := config.NewNotifyConfigHolder()
	require.NoError(t, err)

	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        fake,
		GenID:        node,
		Repo:         accessrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
		SubRepo:      subscriptionrepo.Provide(),
		Pending:      store,
		Notify:       holder,
		Limiter:      nil,
	})

	return &fixture{
		svc:      svc,
		db:       db,
		clock:    fake,
		genID:    node,
		pending:  store,
		tenantID: node.Generate(),
	}
}

func (f *fixture) customer(t *testing.T) customerdomain.Customer {
	c := customerdomain.Customer{
		ID:        f.genID.Generate(),
		TenantID:  f.tenantID,
		Name:      "Casey",
		IsActive:  true,
		CreatedAt: baseNow,
		UpdatedAt: baseNow,
	}
	require.NoError(t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) activeSubscription(t *testing.T, customerID snowflake.ID) {
	sub := subscriptiondomain.Subscription{
		ID:         f.genID.Generate(),
		TenantID:   f.tenantID,
		CustomerID: customerID,
		PlanID:     f.genID.Generate(),
		Status:     subscriptiondomain.StatusActive,
		StartDate:  baseNow.AddDate(0, 0, -10),
		EndDate:    baseNow.AddDate(0, 0, 20),
		CreatedAt:  baseNow.AddDate(0, 0, -10),
		UpdatedAt:  baseNow.AddDate(0, 0, -10),
	}
	require.NoError(t, f.db.Create(&sub).Error)
}

func (f *fixture) card(t *testing.T, customerID snowflake.ID, uid string) domain.Card {
	card := domain.Card{
		ID:         f.genID.Generate(),
		TenantID:   f.tenantID,
		CustomerID: customerID,
		CardUID:    uid,
		Status:     domain.CardActive,
		AssignedAt: baseNow,
		CreatedAt:  baseNow,
		UpdatedAt:  baseNow,
	}
	require.NoError(t, f.db.Create(&card).Error)
	return card
}

func (f *fixture) lastEvent(t *testing.T) domain.AccessEvent {
	var event domain.AccessEvent
	require.NoError(t, f.db.Order("id desc").Take(&event).Error)
	return event
}

func TestCheckInGrantsActiveMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t)
	f.activeSubscription(t, customer.ID)
	f.card(t, customer.ID, "CARD-001")

	resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
		TenantID:   f.tenantID.String(),
		TerminalID: "door-1",
		CardUID:    "CARD-001",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultGranted, resp.Result)
	assert.Equal(t, customer.Name, resp.CustomerName)
	assert.Equal(t, string(subscriptiondomain.StateActive), resp.MemberState)

	event := f.lastEvent(t)
	assert.Equal(t, domain.ResultGranted, event.Result)
	assert.Equal(t, "door-1", event.TerminalID)
	assert.Equal(t, customer.ID, event.CustomerID)
}

func TestCheckInDenials(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown card", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
			TenantID:   f.tenantID.String(),
			TerminalID: "door-1",
			CardUID:    "NOPE",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ResultDenied, resp.Result)
		assert.Equal(t, domain.ReasonUnknownCard, resp.Reason)
		assert.Equal(t, domain.ReasonUnknownCard, f.lastEvent(t).Reason)
	})

	t.Run("deactivated card", func(t *testing.T) {
		f := newFixture(t)
		customer := f.customer(t)
		f.activeSubscription(t, customer.ID)
		card := f.card(t, customer.ID, "CARD-002")

		_, err := f.svc.DeactivateCard(ctx, f.tenantID.String(), card.ID.String())
		require.NoError(t, err)

		resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
			TenantID:   f.tenantID.String(),
			TerminalID: "door-1",
			CardUID:    "CARD-002",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ResultDenied, resp.Result)
		assert.Equal(t, domain.ReasonCardDeactivated, resp.Reason)
	})

	t.Run("expired member", func(t *testing.T) {
		f := newFixture(t)
		customer := f.customer(t)
		sub := subscriptiondomain.Subscription{
			ID:         f.genID.Generate(),
			TenantID:   f.tenantID,
			CustomerID: customer.ID,
			PlanID:     f.genID.Generate(),
			Status:     subscriptiondomain.StatusActive,
			StartDate:  baseNow.AddDate(0, 0, -40),
			EndDate:    baseNow.AddDate(0, 0, -5),
			CreatedAt:  baseNow.AddDate(0, 0, -40),
		}
		require.NoError(t, f.db.Create(&sub).Error)
		f.card(t, customer.ID, "CARD-003")

		resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
			TenantID:   f.tenantID.String(),
			TerminalID: "door-1",
			CardUID:    "CARD-003",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ResultDenied, resp.Result)
		assert.Equal(t, domain.ReasonMemberExpired, resp.Reason)
		assert.Equal(t, string(subscriptiondomain.StateExpired), resp.MemberState)
	})

	t.Run("no subscription", func(t *testing.T) {
		f := newFixture(t)
		customer := f.customer(t)
		f.card(t, customer.ID, "CARD-004")

		resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
			TenantID:   f.tenantID.String(),
			TerminalID: "door-1",
			CardUID:    "CARD-004",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ResultDenied, resp.Result)
		assert.Equal(t, domain.ReasonNoSubscription, resp.Reason)
	})

	t.Run("deleted member", func(t *testing.T) {
		f := newFixture(t)
		customer := f.customer(t)
		f.activeSubscription(t, customer.ID)
		f.card(t, customer.ID, "CARD-005")
		require.NoError(t, f.db.Delete(&customerdomain.Customer{}, "id = ?", customer.ID).Error)

		resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
			TenantID:   f.tenantID.String(),
			TerminalID: "door-1",
			CardUID:    "CARD-005",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.ResultDenied, resp.Result)
		assert.Equal(t, domain.ReasonMemberDeleted, resp.Reason)
	})
}

func TestPendingAssignmentFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t)
	f.activeSubscription(t, customer.ID)

	pa, err := f.svc.BeginAssignment(ctx, domain.BeginAssignmentRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, customer.ID.String(), pa.CustomerID)
	assert.NotEmpty(t, pa.Token)

	// First tap of an unknown card inside the window binds it.
	resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
		TenantID:   f.tenantID.String(),
		TerminalID: "front-desk",
		CardUID:    "NEW-CARD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultGranted, resp.Result)
	assert.Equal(t, customer.ID.String(), resp.CustomerID)

	cards, err := f.svc.ListCardsByCustomer(ctx, f.tenantID.String(), customer.ID.String())
	require.NoError(t, err)
	require.Len(t, cards, 1)
	assert.Equal(t, "NEW-CARD", cards[0].CardUID)
	assert.Equal(t, domain.CardActive, cards[0].Status)

	// The window is single use.
	resp, err = f.svc.CheckIn(ctx, domain.CheckInRequest{
		TenantID:   f.tenantID.String(),
		TerminalID: "front-desk",
		CardUID:    "ANOTHER-CARD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultDenied, resp.Result)
	assert.Equal(t, domain.ReasonUnknownCard, resp.Reason)
}

func TestPendingAssignmentExpires(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t)
	f.activeSubscription(t, customer.ID)

	pa, err := f.svc.BeginAssignment(ctx, domain.BeginAssignmentRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, pa.ExpiresAt, f.clock.Now().Add(2*time.Minute))

	// A tap after the TTL no longer binds the card.
	f.clock.Advance(2*time.Minute + time.Second)
	resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
		TenantID:   f.tenantID.String(),
		TerminalID: "front-desk",
		CardUID:    "LATE-CARD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultDenied, resp.Result)
	assert.Equal(t, domain.ReasonUnknownCard, resp.Reason)

	cards, err := f.svc.ListCardsByCustomer(ctx, f.tenantID.String(), customer.ID.String())
	require.NoError(t, err)
	assert.Empty(t, cards)
}

func TestCancelAssignment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t)
	f.activeSubscription(t, customer.ID)

	pa, err := f.svc.BeginAssignment(ctx, domain.BeginAssignmentRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)

	// A stale token leaves the window open.
	err = f.svc.CancelAssignment(ctx, f.tenantID.String(), "not-the-token")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.svc.CancelAssignment(ctx, f.tenantID.String(), pa.Token))

	// Cancelling twice reports that nothing was open.
	err = f.svc.CancelAssignment(ctx, f.tenantID.String(), pa.Token)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	resp, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
		TenantID:   f.tenantID.String(),
		TerminalID: "front-desk",
		CardUID:    "ORPHAN-CARD",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ResultDenied, resp.Result)
	assert.Equal(t, domain.ReasonUnknownCard, resp.Reason)
}

func TestBeginAssignmentUnknownCustomer(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.BeginAssignment(context.Background(), domain.BeginAssignmentRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: f.genID.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)
}

func TestListEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	customer := f.customer(t)
	f.activeSubscription(t, customer.ID)
	f.card(t, customer.ID, "CARD-010")

	for i := 0; i < 3; i++ {
		_, err := f.svc.CheckIn(ctx, domain.CheckInRequest{
			TenantID:   f.tenantID.String(),
			TerminalID: "door-1",
			CardUID:    "CARD-010",
		})
		require.NoError(t, err)
		f.clock.Advance(time.Minute)
	}

	events, err := f.svc.ListEvents(ctx, domain.ListEventsRequest{
		TenantID: f.tenantID.String(),
		Limit:    2,
	})
	require.NoError(t, err)
	assert.Len(t, events, 2)

	events, err = f.svc.ListEvents(ctx, domain.ListEventsRequest{
		TenantID: f.tenantID.String(),
		Since:    baseNow.Add(90 * time.Second),
	})
	require.NoError(t, err)
	assert.Len(t, events, 1)
}
