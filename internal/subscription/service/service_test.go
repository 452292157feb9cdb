package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	billingdomain "github.com/memberline/memberline/internal/billing/domain"
	billingrepo "github.com/memberline/memberline/internal/billing/repository"
	"github.com/memberline/memberline/internal/clock"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	customerrepo "github.com/memberline/memberline/internal/customer/repository"
	plandomain "github.com/memberline/memberline/internal/plan/domain"
	planrepo "github.com/memberline/memberline/internal/plan/repository"
	"github.com/memberline/memberline/internal/subscription/domain"
	subscriptionrepo "github.com/memberline/memberline/internal/subscription/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&customerdomain.Customer{},
		&plandomain.Plan{},
		&domain.Subscription{},
		&billingdomain.Payment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	genID    *snowflake.Node
	tenantID snowflake.ID
}

func newFixture(t *testing.T, now time.Time) *fixture {
	db := setupTestDB(t)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	fake := clock.NewFakeClock(now)
	svc := New(Params{
		DB:           db,
		Log:          zap.NewNop(),
		Clock:        fake,
		GenID:        node,
		Repo:         subscriptionrepo.Provide(),
		CustomerRepo: customerrepo.Provide(),
		PlanRepo:     planrepo.Provide(),
		PaymentRepo:  billingrepo.Provide(),
	})

	return &fixture{
		svc:      svc,
		db:       db,
		clock:    fake,
		genID:    node,
		tenantID: node.Generate(),
	}
}

func (f *fixture) customer(t *testing.T) customerdomain.Customer {
	c := customerdomain.Customer{
		ID:        f.genID.Generate(),
		TenantID:  f.tenantID,
		Name:      "Jordan",
		Email:     "jordan@example.com",
		IsActive:  true,
		CreatedAt: f.clock.Now(),
		UpdatedAt: f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) plan(t *testing.T, durationDays int, priceCents int64) plandomain.Plan {
	p := plandomain.Plan{
		ID:           f.genID.Generate(),
		TenantID:     f.tenantID,
		Name:         "Monthly",
		DurationDays: durationDays,
		PriceCents:   priceCents,
		Currency:     "USD",
		IsActive:     true,
		CreatedAt:    f.clock.Now(),
		UpdatedAt:    f.clock.Now(),
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

// seedSubscription inserts a raw history row, bypassing the service, the
// way imported or legacy data would arrive.
func (f *fixture) seedSubscription(t *testing.T, customerID, planID snowflake.ID, created, end time.Time, status string, cancelledAt *time.Time) domain.Subscription {
	sub := domain.Subscription{
		ID:          f.genID.Generate(),
		TenantID:    f.tenantID,
		CustomerID:  customerID,
		PlanID:      planID,
		Status:      status,
		StartDate:   created,
		EndDate:     end,
		CancelledAt: cancelledAt,
		CreatedAt:   created,
		UpdatedAt:   created,
	}
	require.NoError(t, f.db.Create(&sub).Error)
	return sub
}

var baseNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func TestCreateSubscription(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	customer := f.customer(t)
	plan := f.plan(t, 30, 4900)

	sub, err := f.svc.Create(ctx, domain.CreateSubscriptionRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, sub.Status)
	assert.Equal(t, baseNow, sub.StartDate)
	assert.Equal(t, baseNow.AddDate(0, 0, 30), sub.EndDate)

	var payments []billingdomain.Payment
	require.NoError(t, f.db.Where("subscription_id = ?", sub.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	assert.Equal(t, int64(4900), payments[0].AmountCents)
	assert.Equal(t, billingdomain.PaymentPaid, payments[0].Status)
}

func TestCreateSubscriptionRejectsInactivePlan(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	customer := f.customer(t)
	plan := f.plan(t, 30, 4900)
	require.NoError(t, f.db.Model(&plan).Update("is_active", false).Error)

	_, err := f.svc.Create(ctx, domain.CreateSubscriptionRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
	})
	assert.ErrorIs(t, err, domain.ErrPlanInactive)
}

func TestRenewBeforeExpiryExtendsFromEndDate(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	customer := f.customer(t)
	plan := f.plan(t, 30, 4900)

	first, err := f.svc.Create(ctx, domain.CreateSubscriptionRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
	})
	require.NoError(t, err)

	f.clock.Advance(10 * 24 * time.Hour)

	renewed, err := f.svc.Renew(ctx, domain.RenewSubscriptionRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, first.EndDate, renewed.StartDate)
	assert.Equal(t, first.EndDate.AddDate(0, 0, 30), renewed.EndDate)
	assert.NotEqual(t, first.ID, renewed.ID)

	// Both rows remain; history is append-only.
	var count int64
	require.NoError(t, f.db.Model(&domain.Subscription{}).
		Where("customer_id = ?", customer.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestRenewAfterLapseStartsFresh(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	customer := f.customer(t)
	plan := f.plan(t, 30, 4900)

	_, err := f.svc.Create(ctx, domain.CreateSubscriptionRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
	})
	require.NoError(t, err)

	f.clock.Advance(45 * 24 * time.Hour)
	now := f.clock.Now()

	renewed, err := f.svc.Renew(ctx, domain.RenewSubscriptionRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, now, renewed.StartDate)
	assert.Equal(t, now.AddDate(0, 0, 30), renewed.EndDate)
}

func TestCancelMarksCurrentSubscription(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	customer := f.customer(t)
	plan := f.plan(t, 30, 4900)

	_, err := f.svc.Create(ctx, domain.CreateSubscriptionRequest{
		TenantID:   f.tenantID.String(),
		CustomerID: customer.ID.String(),
		PlanID:     plan.ID.String(),
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, f.tenantID.String(), customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = f.svc.Cancel(ctx, f.tenantID.String(), customer.ID.String())
	assert.ErrorIs(t, err, domain.ErrAlreadyCancelled)

	state, err := f.svc.GetMemberState(ctx, f.tenantID.String(), customer.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, state.State)
}

func TestGetMemberState(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	plan := f.plan(t, 30, 4900)

	t.Run("no subscription", func(t *testing.T) {
		customer := f.customer(t)
		state, err := f.svc.GetMemberState(ctx, f.tenantID.String(), customer.ID.String())
		require.NoError(t, err)
		assert.Equal(t, domain.StateNoSubscription, state.State)
		assert.Nil(t, state.Current)
	})

	t.Run("deleted customer", func(t *testing.T) {
		customer := f.customer(t)
		f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -10), baseNow.AddDate(0, 0, 20), domain.StatusActive, nil)
		require.NoError(t, f.db.Delete(&customerdomain.Customer{}, "id = ?", customer.ID).Error)

		state, err := f.svc.GetMemberState(ctx, f.tenantID.String(), customer.ID.String())
		require.NoError(t, err)
		assert.Equal(t, domain.StateDeleted, state.State)
	})

	t.Run("stale active past end date resolves expired", func(t *testing.T) {
		customer := f.customer(t)
		f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -40), baseNow.AddDate(0, 0, -5), domain.StatusActive, nil)

		state, err := f.svc.GetMemberState(ctx, f.tenantID.String(), customer.ID.String())
		require.NoError(t, err)
		assert.Equal(t, domain.StateExpired, state.State)
	})
}

func TestListExpiring(t *testing.T) {
	ctx := context.Background()

	t.Run("boundary end date exactly now plus N is included", func(t *testing.T) {
		f := newFixture(t, baseNow)
		customer := f.customer(t)
		plan := f.plan(t, 30, 0)
		f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -23), baseNow.AddDate(0, 0, 7), domain.StatusActive, nil)

		rows, err := f.svc.ListExpiring(ctx, domain.ListExpiringRequest{TenantID: f.tenantID.String(), WithinDays: 7})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, customer.ID, rows[0].Customer.ID)
	})

	t.Run("already expired rows are excluded", func(t *testing.T) {
		f := newFixture(t, baseNow)
		customer := f.customer(t)
		plan := f.plan(t, 30, 0)
		f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -32), baseNow.AddDate(0, 0, -2), domain.StatusActive, nil)

		rows, err := f.svc.ListExpiring(ctx, domain.ListExpiringRequest{TenantID: f.tenantID.String(), WithinDays: 7})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("cancelled rows are excluded even inside the window", func(t *testing.T) {
		f := newFixture(t, baseNow)
		customer := f.customer(t)
		plan := f.plan(t, 30, 0)
		cancelledAt := baseNow.AddDate(0, 0, -1)
		f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -25), baseNow.AddDate(0, 0, 5), domain.StatusActive, &cancelledAt)

		rows, err := f.svc.ListExpiring(ctx, domain.ListExpiringRequest{TenantID: f.tenantID.String(), WithinDays: 7})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("deleted and inactive customers are excluded", func(t *testing.T) {
		f := newFixture(t, baseNow)
		plan := f.plan(t, 30, 0)

		deleted := f.customer(t)
		f.seedSubscription(t, deleted.ID, plan.ID, baseNow.AddDate(0, 0, -25), baseNow.AddDate(0, 0, 5), domain.StatusActive, nil)
		require.NoError(t, f.db.Delete(&customerdomain.Customer{}, "id = ?", deleted.ID).Error)

		inactive := f.customer(t)
		f.seedSubscription(t, inactive.ID, plan.ID, baseNow.AddDate(0, 0, -25), baseNow.AddDate(0, 0, 5), domain.StatusActive, nil)
		require.NoError(t, f.db.Model(&customerdomain.Customer{}).
			Where("id = ?", inactive.ID).Update("is_active", false).Error)

		rows, err := f.svc.ListExpiring(ctx, domain.ListExpiringRequest{TenantID: f.tenantID.String(), WithinDays: 7})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("customer with overlapping history appears once with latest row", func(t *testing.T) {
		// History: row A created Jan 1 ending Jan 10 (expired), row B
		// created Feb 1 ending Mar 1. Queried Feb 20 with N=14, the
		// customer shows up once, with B's end date.
		now := time.Date(2024, 2, 20, 0, 0, 0, 0, time.UTC)
		f := newFixture(t, now)
		customer := f.customer(t)
		plan := f.plan(t, 30, 0)

		f.seedSubscription(t, customer.ID, plan.ID,
			time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
			domain.StatusExpired, nil)
		b := f.seedSubscription(t, customer.ID, plan.ID,
			time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			domain.StatusActive, nil)

		rows, err := f.svc.ListExpiring(ctx, domain.ListExpiringRequest{TenantID: f.tenantID.String(), WithinDays: 14})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, b.ID, rows[0].Subscription.ID)
		assert.Equal(t, b.EndDate, rows[0].Subscription.EndDate)
	})

	t.Run("two stored-active rows in window dedupe to latest created", func(t *testing.T) {
		f := newFixture(t, baseNow)
		customer := f.customer(t)
		plan := f.plan(t, 30, 0)

		f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -28), baseNow.AddDate(0, 0, 2), domain.StatusActive, nil)
		latest := f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -24), baseNow.AddDate(0, 0, 6), domain.StatusActive, nil)

		rows, err := f.svc.ListExpiring(ctx, domain.ListExpiringRequest{TenantID: f.tenantID.String(), WithinDays: 7})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, latest.ID, rows[0].Subscription.ID)
	})

	t.Run("results ordered by end date ascending", func(t *testing.T) {
		f := newFixture(t, baseNow)
		plan := f.plan(t, 30, 0)

		late := f.customer(t)
		f.seedSubscription(t, late.ID, plan.ID, baseNow.AddDate(0, 0, -24), baseNow.AddDate(0, 0, 6), domain.StatusActive, nil)
		soon := f.customer(t)
		f.seedSubscription(t, soon.ID, plan.ID, baseNow.AddDate(0, 0, -28), baseNow.AddDate(0, 0, 2), domain.StatusActive, nil)

		rows, err := f.svc.ListExpiring(ctx, domain.ListExpiringRequest{TenantID: f.tenantID.String(), WithinDays: 7})
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, soon.ID, rows[0].Customer.ID)
		assert.Equal(t, late.ID, rows[1].Customer.ID)
	})

	t.Run("other tenants are not visible", func(t *testing.T) {
		f := newFixture(t, baseNow)
		customer := f.customer(t)
		plan := f.plan(t, 30, 0)
		f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -25), baseNow.AddDate(0, 0, 5), domain.StatusActive, nil)

		otherTenant := f.genID.Generate()
		rows, err := f.svc.ListExpiring(ctx, domain.ListExpiringRequest{TenantID: otherTenant.String(), WithinDays: 7})
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestMarkExpired(t *testing.T) {
	f := newFixture(t, baseNow)
	ctx := context.Background()
	customer := f.customer(t)
	plan := f.plan(t, 30, 0)

	stale := f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -40), baseNow.AddDate(0, 0, -5), domain.StatusActive, nil)
	live := f.seedSubscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -10), baseNow.AddDate(0, 0, 20), domain.StatusActive, nil)

	repo := subscriptionrepo.Provide()
	n, err := repo.MarkExpired(ctx, f.db, f.tenantID, baseNow, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	var got domain.Subscription
	require.NoError(t, f.db.Take(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, domain.StatusExpired, got.Status)

	got = domain.Subscription{}
	require.NoError(t, f.db.Take(&got, "id = ?", live.ID).Error)
	assert.Equal(t, domain.StatusActive, got.Status)
}
