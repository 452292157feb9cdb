package scheduler

import (
	"context"
	"errors"

	obsmetrics "github.com/memberline/memberline/internal/observability/metrics"
	"go.uber.org/zap"
)

// MarkExpiredJob flips stored-ACTIVE subscriptions whose end date has
// passed to EXPIRED, tenant by tenant, in batches.
func (s *Scheduler) MarkExpiredJob(ctx context.Context) error {
	now := s.clock.Now()
	schedMetrics := obsmetrics.Scheduler()
	var jobErr error

	tenants, err := s.tenantRepo.List(ctx, s.db)
	if err != nil {
		return err
	}

	for _, tenant := range tenants {
		for {
			if ctx.Err() != nil {
				return errors.Join(jobErr, ctx.Err())
			}

			n, err := s.subRepo.MarkExpired(ctx, s.db, tenant.ID, now, s.cfg.MarkExpiredBatch)
			if err != nil {
				jobErr = errors.Join(jobErr, err)
				break
			}
			if n == 0 {
				break
			}
			schedMetrics.AddBatchProcessed("mark_expired", int(n))
			s.log.Info("subscriptions marked expired",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Int64("count", n),
			)
		}
	}
	return jobErr
}

// ExpiryRemindersJob emails members whose current subscription lapses
// within the reminder window. The notification log keeps re-runs from
// emailing anyone twice.
func (s *Scheduler) ExpiryRemindersJob(ctx context.Context) error {
	schedMetrics := obsmetrics.Scheduler()
	var jobErr error

	tenants, err := s.tenantRepo.List(ctx, s.db)
	if err != nil {
		return err
	}

	for _, tenant := range tenants {
		if ctx.Err() != nil {
			return errors.Join(jobErr, ctx.Err())
		}

		run, err := s.notificationSvc.SendExpiryReminders(ctx, tenant.ID.String(), s.cfg.ReminderWindowDays)
		if err != nil {
			jobErr = errors.Join(jobErr, err)
			continue
		}
		schedMetrics.AddBatchProcessed("expiry_reminders", run.Sent)
		if run.Sent > 0 {
			s.log.Info("expiry reminders sent",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Int("sent", run.Sent),
				zap.Int("skipped", run.Skipped),
			)
		}
	}
	return jobErr
}

// SweepAccessEventsJob prunes access events older than the retention
// window in batches.
func (s *Scheduler) SweepAccessEventsJob(ctx context.Context) error {
	cutoff := s.clock.Now().AddDate(0, 0, -s.cfg.EventRetentionDays)
	schedMetrics := obsmetrics.Scheduler()
	var total int64

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		n, err := s.accessRepo.DeleteEventsBefore(ctx, s.db, cutoff, s.cfg.SweepBatch)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		total += n
		schedMetrics.AddBatchProcessed("sweep_access_events", int(n))
	}

	if total > 0 {
		s.log.Info("access events pruned", zap.Int64("count", total))
	}
	return nil
}
