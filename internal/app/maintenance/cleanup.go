package maintenance

import (
	"context"
	"errors"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/charlesng35/dbpanel/pkg/logger"
	"github.com/charlesng35/dbpanel/pkg/metrics"
)

const (
	defaultAuditRetentionDays = 90
	defaultAuditSchedule      = "@daily"

	auditJob = "audit_retention"
)

// AuditPruner deletes audit rows older than a retention window.
type AuditPruner interface {
	CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error)
}

// Cleaner schedules background maintenance. Today that is audit log retention.
type Cleaner struct {
	audit     AuditPruner
	cron      *cron.Cron
	log       *zap.Logger
	retention int
	schedule  string
	started   bool
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithAuditSchedule overrides the cron expression for audit retention enforcement.
func WithAuditSchedule(schedule string) Option {
	return func(cleaner *Cleaner) {
		if schedule != "" {
			cleaner.schedule = schedule
		}
	}
}

// NewCleaner constructs a Cleaner. A nil pruner disables the audit job.
func NewCleaner(audit AuditPruner, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		audit:     audit,
		retention: defaultAuditRetentionDays,
		schedule:  defaultAuditSchedule,
		log:       logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}
	return cleaner
}

// Start registers the cleanup jobs and launches the scheduler. It is a no-op when
// nothing is configured.
func (c *Cleaner) Start() error {
	if c.audit == nil || c.started {
		return nil
	}

	if _, err := c.cron.AddFunc(c.schedule, func() {
		_ = c.pruneAudit(context.Background())
	}); err != nil {
		return err
	}

	c.cron.Start()
	c.started = true
	c.log.Info("maintenance scheduled",
		zap.String("job", auditJob),
		zap.String("schedule", c.schedule),
		zap.Int("retention_days", c.retention),
	)
	return nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes every configured cleanup immediately.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error
	if c.audit != nil {
		errs = multierr.Append(errs, c.pruneAudit(ctx))
	}
	return errs
}

func (c *Cleaner) pruneAudit(ctx context.Context) error {
	if c.audit == nil {
		return errors.New("maintenance: audit pruner is not configured")
	}

	removed, err := c.audit.CleanupOlderThan(ctx, c.retention)
	if err != nil {
		metrics.MaintenanceRuns.WithLabelValues(auditJob, "failure").Inc()
		c.log.Warn("audit cleanup failed", zap.Error(err))
		return err
	}

	metrics.MaintenanceRuns.WithLabelValues(auditJob, "success").Inc()
	if removed > 0 {
		c.log.Info("audit logs pruned", zap.Int64("removed", removed))
	}
	return nil
}
