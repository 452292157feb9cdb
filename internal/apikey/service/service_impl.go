package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/memberline/memberline/internal/apikey/domain"
	"github.com/memberline/memberline/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// keyPrefix marks plaintext keys so they are recognisable in logs and
// support tickets without exposing the secret.
const keyPrefix = "mk_"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("apikey.service"),
		clock: p.Clock,
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateKeyRequest) (domain.CreatedKey, error) {
	tenantID, err := snowflake.ParseString(strings.TrimSpace(req.TenantID))
	if err != nil || tenantID == 0 {
		return domain.CreatedKey{}, domain.ErrInvalidTenant
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.CreatedKey{}, domain.ErrInvalidName
	}

	key, plaintext, err := BuildKey(s.genID, tenantID, name, s.clock.Now())
	if err != nil {
		return domain.CreatedKey{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &key); err != nil {
		return domain.CreatedKey{}, err
	}

	s.log.Info("api key created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("key_id", key.ID.String()),
		zap.String("prefix", key.Prefix),
	)
	return domain.CreatedKey{Key: key, Plaintext: plaintext}, nil
}

func (s *Service) Resolve(ctx context.Context, plaintext string) (domain.APIKey, error) {
	plaintext = strings.TrimSpace(plaintext)
	if !strings.HasPrefix(plaintext, keyPrefix) {
		return domain.APIKey{}, domain.ErrInvalidKey
	}

	key, err := s.repo.FindByHash(ctx, s.db, HashKey(plaintext))
	if err != nil {
		return domain.APIKey{}, err
	}
	if key == nil {
		return domain.APIKey{}, domain.ErrInvalidKey
	}
	if key.Revoked() {
		return domain.APIKey{}, domain.ErrRevoked
	}

	if err := s.repo.TouchLastUsed(ctx, s.db, key.ID); err != nil {
		s.log.Warn("touch last_used_at failed", zap.Error(err))
	}
	return *key, nil
}

func (s *Service) Revoke(ctx context.Context, tenantID, id string) error {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return domain.ErrInvalidTenant
	}
	keyID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || keyID == 0 {
		return domain.ErrInvalidID
	}

	key, err := s.repo.FindByID(ctx, s.db, tid, keyID)
	if err != nil {
		return err
	}
	if key == nil {
		return domain.ErrNotFound
	}
	if key.Revoked() {
		return nil
	}

	now := s.clock.Now()
	key.RevokedAt = &now
	return s.repo.Update(ctx, s.db, key)
}

func (s *Service) List(ctx context.Context, tenantID string) ([]domain.APIKey, error) {
	tid, err := snowflake.ParseString(strings.TrimSpace(tenantID))
	if err != nil || tid == 0 {
		return nil, domain.ErrInvalidTenant
	}
	return s.repo.ListByTenant(ctx, s.db, tid)
}

// BuildKey mints an API key row together with its one-time plaintext.
// Callers that provision keys inside their own transaction insert the
// returned row themselves.
func BuildKey(genID *snowflake.Node, tenantID snowflake.ID, name string, now time.Time) (domain.APIKey, string, error) {
	plaintext, err := generateKey()
	if err != nil {
		return domain.APIKey{}, "", err
	}
	return domain.APIKey{
		ID:        genID.Generate(),
		TenantID:  tenantID,
		Name:      name,
		KeyHash:   HashKey(plaintext),
		Prefix:    plaintext[:len(keyPrefix)+6],
		CreatedAt: now,
	}, plaintext, nil
}

// HashKey returns the hex sha256 of a plaintext key.
func HashKey(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

func generateKey() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return keyPrefix + hex.EncodeToString(buf), nil
}
