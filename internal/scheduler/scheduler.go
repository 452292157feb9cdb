// Package scheduler runs the recurring maintenance jobs: expiry reminder
// email, flipping lapsed subscriptions to EXPIRED, and pruning old access
// events. Jobs are guarded by redis locks so overlapping instances do not
// double-process.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	accessdomain "github.com/memberline/memberline/internal/access/domain"
	"github.com/memberline/memberline/internal/clock"
	notificationdomain "github.com/memberline/memberline/internal/notification/domain"
	obsmetrics "github.com/memberline/memberline/internal/observability/metrics"
	"github.com/memberline/memberline/internal/ratelimit"
	subscriptiondomain "github.com/memberline/memberline/internal/subscription/domain"
	tenantdomain "github.com/memberline/memberline/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidConfig = errors.New("scheduler: invalid configuration")

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	Clock           clock.Clock
	TenantRepo      tenantdomain.Repository
	SubRepo         subscriptiondomain.Repository
	AccessRepo      accessdomain.Repository
	NotificationSvc notificationdomain.Service
	Locker          *ratelimit.Locker
	Config          Config `optional:"true"`
}

type Scheduler struct {
	db              *gorm.DB
	log             *zap.Logger
	cfg             Config
	clock           clock.Clock
	tenantRepo      tenantdomain.Repository
	subRepo         subscriptiondomain.Repository
	accessRepo      accessdomain.Repository
	notificationSvc notificationdomain.Service
	locker          *ratelimit.Locker
}

func New(p Params) (*Scheduler, error) {
	if p.DB == nil || p.Log == nil || p.Clock == nil || p.TenantRepo == nil ||
		p.SubRepo == nil || p.AccessRepo == nil || p.NotificationSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		db:              p.DB,
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		clock:           p.Clock,
		tenantRepo:      p.TenantRepo,
		subRepo:         p.SubRepo,
		accessRepo:      p.AccessRepo,
		notificationSvc: p.NotificationSvc,
		locker:          p.Locker,
	}, nil
}

func (s *Scheduler) runJob(parent context.Context, name string, fn func(ctx context.Context) error) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	lockKey := "scheduler:job:" + name
	token, acquired, err := s.locker.TryLock(ctx, lockKey, s.cfg.JobTimeout)
	if err != nil {
		s.log.Debug("job lock unavailable, running unguarded",
			zap.String("job", name), zap.Error(err))
	} else if !acquired {
		s.log.Debug("job already held elsewhere", zap.String("job", name))
		return nil
	} else {
		defer func() {
			if err := s.locker.Release(context.Background(), lockKey, token); err != nil {
				s.log.Warn("job lock release failed", zap.String("job", name), zap.Error(err))
			}
		}()
	}

	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err = fn(ctx)
	schedMetrics.ObserveJobDuration(name, time.Since(start))
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		schedMetrics.IncJobTimeout(name)
		s.log.Warn("job timed out",
			zap.String("job", name),
			zap.Duration("timeout", s.cfg.JobTimeout),
			zap.Error(err),
		)
		return nil
	}

	schedMetrics.IncJobError(name, err)
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{"mark_expired", s.MarkExpiredJob},
		{"expiry_reminders", s.ExpiryRemindersJob},
		{"sweep_access_events", s.SweepAccessEventsJob},
	}

	for _, job := range jobs {
		if !s.isJobEnabled(job.Name) {
			continue
		}
		run := job.Run
		err = errors.Join(err, s.runJob(parent, job.Name, run))
	}
	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := s.clock.Now().Add(s.cfg.RunInterval)
	schedMetrics := obsmetrics.Scheduler()

	for {
		runLag := time.Since(nextRun)
		if runLag > 0 {
			schedMetrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
