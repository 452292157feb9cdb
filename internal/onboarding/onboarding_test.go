package onboarding

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	apikeydomain "github.com/memberline/memberline/internal/apikey/domain"
	apikeyrepo "github.com/memberline/memberline/internal/apikey/repository"
	branchdomain "github.com/memberline/memberline/internal/branch/domain"
	branchrepo "github.com/memberline/memberline/internal/branch/repository"
	"github.com/memberline/memberline/internal/clock"
	"github.com/memberline/memberline/internal/onboarding/domain"
	staffdomain "github.com/memberline/memberline/internal/staff/domain"
	staffrepo "github.com/memberline/memberline/internal/staff/repository"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
	tenantrepo "github.com/memberline/memberline/internal/tenant/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var baseNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	svc domain.Service
	db  *gorm.DB
}

func newFixture(t *testing.T) *fixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to connect database: %v", err)
	}
	err = db.AutoMigrate(
		&tenantdomain.Tenant{},
		&branchdomain.Branch{},
		&staffdomain.Staff{},
		&apikeydomain.APIKey{},
	)
	if err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}

	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	svc := NewService(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Clock:      clock.NewFakeClock(baseNow),
		GenID:      node,
		TenantRepo: tenantrepo.Provide(),
		BranchRepo: branchrepo.Provide(),
		StaffRepo:  staffrepo.Provide(),
		KeyRepo:    apikeyrepo.Provide(),
	})

	return &fixture{svc: svc, db: db}
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}

func TestOnboardProvisionsTenant(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Onboard(context.Background(), domain.Request{
		BusinessName: "Iron Works Gym",
		OwnerName:    "Dana",
		OwnerEmail:   "Dana@IronWorks.test",
	})
	require.NoError(t, err)

	assert.Equal(t, "Iron Works Gym", res.Tenant.Name)
	assert.Equal(t, "iron-works-gym", res.Tenant.Slug)
	assert.Equal(t, baseNow, res.Tenant.CreatedAt)
	assert.Equal(t, "Main", res.Branch.Name)
	assert.Equal(t, res.Tenant.ID, res.Branch.TenantID)
	assert.Equal(t, staffdomain.RoleOwner, res.Owner.Role)
	assert.Equal(t, "dana@ironworks.test", res.Owner.Email)
	assert.True(t, strings.HasPrefix(res.APIKey, "mk_"))

	assert.EqualValues(t, 1, f.count(t, &tenantdomain.Tenant{}))
	assert.EqualValues(t, 1, f.count(t, &branchdomain.Branch{}))
	assert.EqualValues(t, 1, f.count(t, &staffdomain.Staff{}))
	assert.EqualValues(t, 1, f.count(t, &apikeydomain.APIKey{}))
}

func TestOnboardRollsBackOnFailure(t *testing.T) {
	f := newFixture(t)

	// Break the last insert of the flow.
	require.NoError(t, f.db.Migrator().DropTable(&apikeydomain.APIKey{}))

	_, err := f.svc.Onboard(context.Background(), domain.Request{
		BusinessName: "Iron Works Gym",
		OwnerName:    "Dana",
		OwnerEmail:   "dana@ironworks.test",
	})
	require.Error(t, err)

	assert.EqualValues(t, 0, f.count(t, &tenantdomain.Tenant{}))
	assert.EqualValues(t, 0, f.count(t, &branchdomain.Branch{}))
	assert.EqualValues(t, 0, f.count(t, &staffdomain.Staff{}))

	// The slug is free again for a retry.
	require.NoError(t, f.db.AutoMigrate(&apikeydomain.APIKey{}))
	res, err := f.svc.Onboard(context.Background(), domain.Request{
		BusinessName: "Iron Works Gym",
		OwnerName:    "Dana",
		OwnerEmail:   "dana@ironworks.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "iron-works-gym", res.Tenant.Slug)
}

func TestOnboardSlugCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Onboard(ctx, domain.Request{
		BusinessName: "Iron Works Gym",
		OwnerName:    "Dana",
		OwnerEmail:   "dana@ironworks.test",
	})
	require.NoError(t, err)
	require.Equal(t, "iron-works-gym", first.Tenant.Slug)

	second, err := f.svc.Onboard(ctx, domain.Request{
		BusinessName: "Iron Works Gym",
		OwnerName:    "Sam",
		OwnerEmail:   "sam@ironworks.test",
	})
	require.NoError(t, err)
	assert.Equal(t, "iron-works-gym-2", second.Tenant.Slug)
}

func TestOnboardInvalidRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []domain.Request{
		{},
		{BusinessName: "Iron Works Gym", OwnerName: "Dana"},
		{BusinessName: "Iron Works Gym", OwnerEmail: "dana@ironworks.test"},
		{BusinessName: "Iron Works Gym", OwnerName: "Dana", OwnerEmail: "not-an-email"},
	}
	for _, req := range cases {
		_, err := f.svc.Onboard(ctx, req)
		assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	}
	assert.EqualValues(t, 0, f.count(t, &tenantdomain.Tenant{}))
}

func TestOnboardCustomBranchName(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Onboard(context.Background(), domain.Request{
		BusinessName: "Iron Works Gym",
		OwnerName:    "Dana",
		OwnerEmail:   "dana@ironworks.test",
		BranchName:   "Downtown",
	})
	require.NoError(t, err)
	assert.Equal(t, "Downtown", res.Branch.Name)
}
