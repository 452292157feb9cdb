package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/memberline/memberline/internal/billing/domain"
	billingrepo "github.com/memberline/memberline/internal/billing/repository"
	"github.com/memberline/memberline/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var baseNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	clock    *clock.FakeClock
	genID    *snowflake.Node
	tenantID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&domain.Payment{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	fake := clock.NewFakeClock(baseNow)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
		Repo:  billingrepo.Provide(),
	})

	return &fixture{
		svc:      svc,
		db:       db,
		clock:    fake,
		genID:    node,
		tenantID: node.Generate(),
	}
}

func (f *fixture) payment(t *testing.T) domain.Payment {
	p := domain.Payment{
		ID:             f.genID.Generate(),
		TenantID:       f.tenantID,
		CustomerID:     f.genID.Generate(),
		SubscriptionID: f.genID.Generate(),
		PlanID:         f.genID.Generate(),
		AmountCents:    4900,
		Currency:       "USD",
		Method:         domain.MethodCard,
		Status:         domain.PaymentPaid,
		PaidAt:         baseNow,
		Metadata:       datatypes.JSONMap{},
		CreatedAt:      baseNow,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return p
}

func TestRefundStampsClockTime(t *testing.T) {
	f := newFixture(t)
	p := f.payment(t)

	refunded, err := f.svc.Refund(context.Background(), domain.RefundPaymentRequest{
		TenantID: f.tenantID.String(),
		ID:       p.ID.String(),
		Reason:   "duplicate charge",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentRefunded, refunded.Status)
	assert.Equal(t, "duplicate charge", refunded.Metadata["refund_reason"])
	assert.Equal(t, baseNow.Format(time.RFC3339), refunded.Metadata["refunded_at"])
}

func TestRefundIsIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.payment(t)
	ctx := context.Background()

	first, err := f.svc.Refund(ctx, domain.RefundPaymentRequest{
		TenantID: f.tenantID.String(),
		ID:       p.ID.String(),
	})
	require.NoError(t, err)

	// A later retry does not move the refund timestamp.
	f.clock.Advance(time.Hour)
	second, err := f.svc.Refund(ctx, domain.RefundPaymentRequest{
		TenantID: f.tenantID.String(),
		ID:       p.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, first.Metadata["refunded_at"], second.Metadata["refunded_at"])
}

func TestRefundUnknownPayment(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Refund(context.Background(), domain.RefundPaymentRequest{
		TenantID: f.tenantID.String(),
		ID:       f.genID.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
