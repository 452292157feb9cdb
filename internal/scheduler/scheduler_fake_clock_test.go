package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accessdomain "github.com/memberline/memberline/internal/access/domain"
	accessrepo "github.com/memberline/memberline/internal/access/repository"
	billingdomain "github.com/memberline/memberline/internal/billing/domain"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/config"
	customerdomain "github.com/memberline/memberline/internal/customer/domain"
	customerrepo "github.com/memberline/memberline/internal/customer/repository"
	notificationdomain "github.com/memberline/memberline/internal/notification/domain"
	notificationrepo "github.com/memberline/memberline/internal/notification/repository"
	notificationservice "github.com/memberline/memberline/internal/notification/service"
	obsmetrics "github.com/memberline/memberline/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	plandomain "github.com/memberline/memberline/internal/plan/domain"
	planrepo "github.com/memberline/memberline/internal/plan/repository"
	subscriptiondomain "github.com/memberline/memberline/internal/subscription/domain"
	subscriptionrepo "github.com/memberline/memberline/internal/subscription/repository"
	subscriptionservice "github.com/memberline/memberline/internal/subscription/service"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
	tenantrepo "github.com/memberline/memberline/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var baseNow = time.Date(2024, 6, 1, 3, 0, 0, 0, time.UTC)

// captureProvider records outbound email instead of sending it.
type captureProvider struct {
	mu    sync.Mutex
	sends []captureSend
}

type captureSend struct {
	to       string
	template string
}

func (p *captureProvider) Send(ctx context.Context, to []string, subject, htmlBody string) error {
	return nil
}

func (p *captureProvider) SendTemplate(ctx context.Context, to []string, templateName string, data interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sends = append(p.sends, captureSend{to: to[0], template: templateName})
	return nil
}

func (p *captureProvider) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sends)
}

type fixture struct {
	sched    *Scheduler
	db       *gorm.DB
	clock    *clock.FakeClock
	genID    *snowflake.Node
	emails   *captureProvider
	tenantID snowflake.ID
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func newFixture(t *testing.T, cfg Config) *fixture {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	t.Cleanup(restore)
	obsmetrics.ResetSchedulerMetricsForTest()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&tenantdomain.Tenant{},
		&customerdomain.Customer{},
		&plandomain.Plan{},
		&subscriptiondomain.Subscription{},
		&billingdomain.Payment{},
		&accessdomain.AccessEvent{},
		&notificationdomain.NotificationLog{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	fake := clock.NewFakeClock(baseNow)
	emails := &captureProvider{}
	log := zap.NewNop()

	holder, err := config.NewNotifyConfigHolder()
	require.NoError(t, err)

	subRepo := subscriptionrepo.Provide()
	custRepo := customerrepo.Provide()
	plRepo := planrepo.Provide()
	tenRepo := tenantrepo.Provide()

	subSvc := subscriptionservice.New(subscriptionservice.Params{
		DB:           db,
		Log:          log,
		Clock:        fake,
		GenID:        node,
		Repo:         subRepo,
		CustomerRepo: custRepo,
		PlanRepo:     plRepo,
		PaymentRepo:  billingRepoStub{},
	})

	notifSvc := notificationservice.New(notificationservice.Params{
		DB:           db,
		Log:          log,
		Clock:        fake,
		GenID:        node,
		Repo:         notificationrepo.Provide(),
		Email:        emails,
		Notify:       holder,
		Subs:         subSvc,
		TenantRepo:   tenRepo,
		PlanRepo:     plRepo,
		CustomerRepo: custRepo,
	})

	sched, err := New(Params{
		DB:              db,
		Log:             log,
		Clock:           fake,
		TenantRepo:      tenRepo,
		SubRepo:         subRepo,
		AccessRepo:      accessrepo.Provide(),
		NotificationSvc: notifSvc,
		Locker:          nil,
		Config:          cfg,
	})
	require.NoError(t, err)

	tenant := tenantdomain.Tenant{
		ID:        node.Generate(),
		Name:      "Iron Works Gym",
		Slug:      "iron-works-gym",
		Metadata:  datatypes.JSONMap{},
		CreatedAt: baseNow,
		UpdatedAt: baseNow,
	}
	require.NoError(t, db.Create(&tenant).Error)

	return &fixture{
		sched:    sched,
		db:       db,
		clock:    fake,
		genID:    node,
		emails:   emails,
		tenantID: tenant.ID,
	}
}

// billingRepoStub satisfies the payment repository without persisting.
type billingRepoStub struct{}

func (billingRepoStub) Insert(ctx context.Context, db *gorm.DB, payment *billingdomain.Payment) error {
	return nil
}
func (billingRepoStub) FindByID(ctx context.Context, db *gorm.DB, tenantID, id snowflake.ID) (*billingdomain.Payment, error) {
	return nil, nil
}
func (billingRepoStub) Update(ctx context.Context, db *gorm.DB, payment *billingdomain.Payment) error {
	return nil
}
func (billingRepoStub) ListByCustomer(ctx context.Context, db *gorm.DB, tenantID, customerID snowflake.ID) ([]billingdomain.Payment, error) {
	return nil, nil
}

func (f *fixture) customer(t *testing.T, email string) customerdomain.Customer {
	c := customerdomain.Customer{
		ID:        f.genID.Generate(),
		TenantID:  f.tenantID,
		Name:      "Riley",
		Email:     email,
		IsActive:  true,
		CreatedAt: baseNow,
		UpdatedAt: baseNow,
	}
	require.NoError(t, f.db.Create(&c).Error)
	return c
}

func (f *fixture) plan(t *testing.T) plandomain.Plan {
	p := plandomain.Plan{
		ID:           f.genID.Generate(),
		TenantID:     f.tenantID,
		Name:         "Monthly",
		DurationDays: 30,
		Currency:     "USD",
		IsActive:     true,
		CreatedAt:    baseNow,
		UpdatedAt:    baseNow,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func (f *fixture) subscription(t *testing.T, customerID, planID snowflake.ID, created, end time.Time, status string) subscriptiondomain.Subscription {
	sub := subscriptiondomain.Subscription{
		ID:         f.genID.Generate(),
		TenantID:   f.tenantID,
		CustomerID: customerID,
		PlanID:     planID,
		Status:     status,
		StartDate:  created,
		EndDate:    end,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
	require.NoError(t, f.db.Create(&sub).Error)
	return sub
}

func TestExpiryRemindersJobSendsOncePerSubscription(t *testing.T) {
	f := newFixture(t, Config{ReminderWindowDays: 7})
	ctx := context.Background()
	plan := f.plan(t)
	customer := f.customer(t, "riley@example.com")
	f.subscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -25), baseNow.AddDate(0, 0, 5), subscriptiondomain.StatusActive)

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.emails.count())

	// A second run must not email again.
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.emails.count())

	var logs []notificationdomain.NotificationLog
	require.NoError(t, f.db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, notificationdomain.KindExpiryReminder, logs[0].Kind)
	assert.Equal(t, "riley@example.com", logs[0].Recipient)
}

func TestExpiryRemindersJobSkipsCustomersWithoutEmail(t *testing.T) {
	f := newFixture(t, Config{ReminderWindowDays: 7})
	plan := f.plan(t)
	customer := f.customer(t, "")
	f.subscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -25), baseNow.AddDate(0, 0, 5), subscriptiondomain.StatusActive)

	require.NoError(t, f.sched.RunOnce(context.Background()))
	assert.Equal(t, 0, f.emails.count())
}

func TestRenewalGetsItsOwnReminder(t *testing.T) {
	f := newFixture(t, Config{ReminderWindowDays: 7})
	ctx := context.Background()
	plan := f.plan(t)
	customer := f.customer(t, "riley@example.com")
	f.subscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -25), baseNow.AddDate(0, 0, 5), subscriptiondomain.StatusActive)

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.emails.count())

	// The member renews; a month later the new term nears its end and
	// deserves a fresh reminder.
	f.subscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, 2), baseNow.AddDate(0, 0, 35), subscriptiondomain.StatusActive)
	f.clock.Advance(30 * 24 * time.Hour)

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 2, f.emails.count())
}

func TestMarkExpiredJob(t *testing.T) {
	f := newFixture(t, Config{})
	ctx := context.Background()
	plan := f.plan(t)
	customer := f.customer(t, "riley@example.com")

	lapsed := f.subscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -40), baseNow.AddDate(0, 0, -2), subscriptiondomain.StatusActive)
	live := f.subscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -10), baseNow.AddDate(0, 0, 20), subscriptiondomain.StatusActive)

	require.NoError(t, f.sched.RunOnce(ctx))

	var got subscriptiondomain.Subscription
	require.NoError(t, f.db.Take(&got, "id = ?", lapsed.ID).Error)
	assert.Equal(t, subscriptiondomain.StatusExpired, got.Status)

	got = subscriptiondomain.Subscription{}
	require.NoError(t, f.db.Take(&got, "id = ?", live.ID).Error)
	assert.Equal(t, subscriptiondomain.StatusActive, got.Status)
}

func TestMarkExpiredThenReminderAfterAdvance(t *testing.T) {
	f := newFixture(t, Config{ReminderWindowDays: 7})
	ctx := context.Background()
	plan := f.plan(t)
	customer := f.customer(t, "riley@example.com")
	sub := f.subscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -10), baseNow.AddDate(0, 0, 20), subscriptiondomain.StatusActive)

	// Too far out: nothing happens.
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 0, f.emails.count())

	// Enter the reminder window.
	f.clock.Advance(15 * 24 * time.Hour)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.emails.count())

	// Past the end date: the row gets flipped and no further reminders.
	f.clock.Advance(10 * 24 * time.Hour)
	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 1, f.emails.count())

	var got subscriptiondomain.Subscription
	require.NoError(t, f.db.Take(&got, "id = ?", sub.ID).Error)
	assert.Equal(t, subscriptiondomain.StatusExpired, got.Status)
}

func TestSweepAccessEventsJob(t *testing.T) {
	f := newFixture(t, Config{EventRetentionDays: 30, SweepBatch: 1})
	ctx := context.Background()

	old := accessdomain.AccessEvent{
		ID:         f.genID.Generate(),
		TenantID:   f.tenantID,
		CardUID:    "CARD-A",
		TerminalID: "door-1",
		Result:     accessdomain.ResultGranted,
		OccurredAt: baseNow.AddDate(0, 0, -45),
		CreatedAt:  baseNow.AddDate(0, 0, -45),
	}
	older := old
	older.ID = f.genID.Generate()
	older.OccurredAt = baseNow.AddDate(0, 0, -60)
	recent := old
	recent.ID = f.genID.Generate()
	recent.OccurredAt = baseNow.AddDate(0, 0, -5)
	require.NoError(t, f.db.Create(&old).Error)
	require.NoError(t, f.db.Create(&older).Error)
	require.NoError(t, f.db.Create(&recent).Error)

	require.NoError(t, f.sched.RunOnce(ctx))

	var remaining []accessdomain.AccessEvent
	require.NoError(t, f.db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, recent.ID, remaining[0].ID)
}

func TestDisabledJobsDoNotRun(t *testing.T) {
	f := newFixture(t, Config{EnabledJobs: []string{"sweep_access_events"}, ReminderWindowDays: 7})
	ctx := context.Background()
	plan := f.plan(t)
	customer := f.customer(t, "riley@example.com")
	f.subscription(t, customer.ID, plan.ID, baseNow.AddDate(0, 0, -25), baseNow.AddDate(0, 0, 5), subscriptiondomain.StatusActive)

	require.NoError(t, f.sched.RunOnce(ctx))
	assert.Equal(t, 0, f.emails.count())
}
