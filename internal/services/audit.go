package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/internal/infrastructure/buffer"
	"github.com/dealerdesk/backend/repository"
)

// ConnectionHealth abstracts the connection monitor functionality.
type ConnectionHealth interface {
	IsOnline() bool
}

// AuditConfig controls spool draining and retention.
type AuditConfig struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
	Retention  time.Duration
}

// AuditLogger records timeline events best-effort: a write that cannot reach
// primary storage lands in the on-disk spool and is retried on a schedule.
// Recording never fails the mutation that produced the event.
type AuditLogger struct {
	events  repository.EventRepository
	spool   *buffer.Store
	monitor ConnectionHealth
	logger  *zap.Logger
	cron    *cron.Cron
	cfg     AuditConfig
}

func NewAuditLogger(
	events repository.EventRepository,
	spool *buffer.Store,
	monitor ConnectionHealth,
	logger *zap.Logger,
	cfg AuditConfig,
) *AuditLogger {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &AuditLogger{
		events:  events,
		spool:   spool,
		monitor: monitor,
		logger:  logger,
		cfg:     cfg,
		cron:    cron.New(cron.WithSeconds()),
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = a.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Interval)
		defer cancel()
		if err := a.Drain(ctx); err != nil {
			a.logger.Error("audit spool drain failed", zap.Error(err))
		}
	})

	return a
}

// Start launches the drain scheduler.
func (a *AuditLogger) Start() {
	if a == nil || a.cron == nil {
		return
	}
	a.cron.Start()
	a.logger.Info("audit logger started")
}

// Stop gracefully stops the scheduler.
func (a *AuditLogger) Stop(ctx context.Context) {
	if a == nil || a.cron == nil {
		return
	}
	stopCtx := a.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	a.logger.Info("audit logger stopped")
}

// Record appends an event, spooling it when primary storage is unreachable.
// Errors are logged and swallowed.
func (a *AuditLogger) Record(ctx context.Context, event domain.Event) {
	if a == nil || a.events == nil {
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	if a.monitor == nil || a.monitor.IsOnline() {
		if err := a.events.Append(ctx, event); err == nil {
			return
		} else {
			a.logger.Warn("audit append failed, spooling",
				zap.String("entity_type", string(event.EntityType)),
				zap.String("event_type", event.Type),
				zap.Error(err))
		}
	}

	if a.spool == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		a.logger.Warn("audit event not serializable", zap.Error(err))
		return
	}
	if err := a.spool.Enqueue(buffer.Item{Data: payload}); err != nil {
		a.logger.Warn("audit spool enqueue failed", zap.Error(err))
	}
}

// Drain replays spooled events against primary storage.
func (a *AuditLogger) Drain(ctx context.Context) error {
	if a == nil || a.spool == nil {
		return nil
	}
	if a.monitor != nil && !a.monitor.IsOnline() {
		a.logger.Debug("skipping audit drain (offline)")
		return nil
	}

	if err := a.spool.Cleanup(time.Now().Add(-a.cfg.Retention)); err != nil {
		a.logger.Warn("audit spool cleanup failed", zap.Error(err))
	}

	items, err := a.spool.GetBatch(a.cfg.BatchSize)
	if err != nil {
		return err
	}

	for _, item := range items {
		if err := a.replay(ctx, item); err != nil {
			a.logger.Error("failed to replay audit event",
				zap.String("item_id", item.ID),
				zap.Error(err))

			item.Retries++
			if item.Retries >= a.cfg.MaxRetries {
				a.logger.Warn("dropping audit event (max retries reached)", zap.String("item_id", item.ID))
				_ = a.spool.Remove(item)
				continue
			}

			if err := a.spool.Remove(item); err != nil {
				a.logger.Warn("failed to remove audit item", zap.Error(err))
			}
			if err := a.spool.Requeue(item); err != nil {
				a.logger.Error("failed to requeue audit item", zap.Error(err))
			}
			continue
		}

		if err := a.spool.Remove(item); err != nil {
			a.logger.Warn("failed to purge replayed audit item", zap.Error(err))
		}
	}
	return nil
}

// Size returns the number of spooled events.
func (a *AuditLogger) Size() int {
	if a == nil || a.spool == nil {
		return 0
	}
	size, err := a.spool.Size()
	if err != nil {
		return 0
	}
	return size
}

func (a *AuditLogger) replay(ctx context.Context, item buffer.Item) error {
	if ctx == nil {
		ctx = context.Background()
	}
	var event domain.Event
	if err := json.Unmarshal(item.Data, &event); err != nil {
		return err
	}
	return a.events.Append(ctx, event)
}
