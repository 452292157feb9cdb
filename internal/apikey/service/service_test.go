package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/memberline/memberline/internal/apikey/domain"
	apikeyrepo "github.com/memberline/memberline/internal/apikey/repository"
	"github.com/memberline/memberline/internal/clock"
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
	tenantID snowflake.ID
}

func newFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	if err := db.AutoMigrate(&domain.APIKey{}); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	fake := clock.NewFakeClock(baseNow)
	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		Clock: fake,
		GenID: node,
		Repo:  apikeyrepo.Provide(),
	})

	return &fixture{
		svc:      svc,
		db:       db,
		clock:    fake,
		tenantID: node.Generate(),
	}
}

func TestCreateAndResolve(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateKeyRequest{
		TenantID: f.tenantID.String(),
		Name:     "default",
	})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(created.Plaintext, "mk_"))
	assert.True(t, strings.HasPrefix(created.Plaintext, created.Key.Prefix))
	assert.Equal(t, baseNow, created.Key.CreatedAt)

	resolved, err := f.svc.Resolve(ctx, created.Plaintext)
	require.NoError(t, err)
	assert.Equal(t, created.Key.ID, resolved.ID)
	assert.Equal(t, f.tenantID, resolved.TenantID)

	_, err = f.svc.Resolve(ctx, "mk_not_a_real_key")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)
}

func TestRevokeStampsClockTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.Create(ctx, domain.CreateKeyRequest{
		TenantID: f.tenantID.String(),
		Name:     "default",
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	require.NoError(t, f.svc.Revoke(ctx, f.tenantID.String(), created.Key.ID.String()))

	var stored domain.APIKey
	require.NoError(t, f.db.First(&stored, "id = ?", created.Key.ID).Error)
	require.NotNil(t, stored.RevokedAt)
	assert.True(t, stored.RevokedAt.Equal(baseNow.Add(time.Hour)))

	_, err = f.svc.Resolve(ctx, created.Plaintext)
	assert.ErrorIs(t, err, domain.ErrRevoked)

	// Revoking again is a no-op.
	require.NoError(t, f.svc.Revoke(ctx, f.tenantID.String(), created.Key.ID.String()))
}
