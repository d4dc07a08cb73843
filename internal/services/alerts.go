package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/repository"
	"github.com/dealerdesk/backend/usecase/identity"
)

// AlertsConfig carries the polling cadence and the business cutoffs behind
// each counter.
type AlertsConfig struct {
	Interval           time.Duration
	Coalesce           time.Duration
	StaleLeadDays      int
	ReservedStaleDays  int
	EndingWindowMonths int
	CreditScanLimit    int
	DueDay             int
}

// AlertAggregator recomputes the topbar alert counters for the current viewer.
// It polls on an interval, recomputes immediately on Invalidate, and coalesces
// bursts of remote-change notifications into a single recount.
type AlertAggregator struct {
	leads    repository.LeadRepository
	tasks    repository.TaskRepository
	credits  repository.CreditRepository
	vehicles repository.VehicleRepository
	resolver *identity.Resolver
	logger   *zap.Logger
	cfg      AlertsConfig

	cron     *cron.Cron
	kickCh   chan struct{}
	notifyCh chan struct{}
	now      func() time.Time

	mu        sync.Mutex
	counts    domain.AlertCounts
	updatedAt time.Time
	listeners []func(domain.AlertCounts)
}

func NewAlertAggregator(
	leads repository.LeadRepository,
	tasks repository.TaskRepository,
	credits repository.CreditRepository,
	vehicles repository.VehicleRepository,
	resolver *identity.Resolver,
	logger *zap.Logger,
	cfg AlertsConfig,
) *AlertAggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Second
	}
	if cfg.Coalesce <= 0 {
		cfg.Coalesce = 350 * time.Millisecond
	}
	if cfg.StaleLeadDays <= 0 {
		cfg.StaleLeadDays = 3
	}
	if cfg.ReservedStaleDays <= 0 {
		cfg.ReservedStaleDays = 7
	}
	if cfg.EndingWindowMonths <= 0 {
		cfg.EndingWindowMonths = 2
	}
	if cfg.CreditScanLimit <= 0 {
		cfg.CreditScanLimit = 500
	}
	if cfg.DueDay <= 0 {
		cfg.DueDay = domain.DefaultDueDay
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &AlertAggregator{
		leads:    leads,
		tasks:    tasks,
		credits:  credits,
		vehicles: vehicles,
		resolver: resolver,
		logger:   logger,
		cfg:      cfg,
		cron:     cron.New(cron.WithSeconds()),
		kickCh:   make(chan struct{}, 1),
		notifyCh: make(chan struct{}, 1),
		now:      time.Now,
	}

	schedule := fmt.Sprintf("@every %ds", int(cfg.Interval.Seconds()))
	_, _ = a.cron.AddFunc(schedule, a.Invalidate)

	resolver.RegisterFlusher(a)
	resolver.OnResolved(func(domain.Identity) { a.Invalidate() })
	return a
}

// Start launches the poll scheduler and the coalescing loop. ctx bounds the
// loop's lifetime.
func (a *AlertAggregator) Start(ctx context.Context) {
	a.cron.Start()
	go a.run(ctx)
	a.logger.Info("alert aggregator started", zap.Duration("interval", a.cfg.Interval))
}

// Stop gracefully stops the scheduler.
func (a *AlertAggregator) Stop(ctx context.Context) {
	stopCtx := a.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	a.logger.Info("alert aggregator stopped")
}

// Invalidate requests an immediate recount. Safe from any goroutine; extra
// requests while one is pending collapse.
func (a *AlertAggregator) Invalidate() {
	select {
	case a.kickCh <- struct{}{}:
	default:
	}
}

// Notify signals that remote data changed. Bursts within the coalesce window
// produce exactly one recount.
func (a *AlertAggregator) Notify() {
	select {
	case a.notifyCh <- struct{}{}:
	default:
	}
}

// Counts returns the last computed counters and when they were computed.
func (a *AlertAggregator) Counts() (domain.AlertCounts, time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counts, a.updatedAt
}

// OnUpdate registers a callback invoked after every recount.
func (a *AlertAggregator) OnUpdate(fn func(domain.AlertCounts)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Reset zeroes the counters. Registered with the identity resolver so
// sign-out wipes viewer-scoped counts; satisfies cache.Flusher.
func (a *AlertAggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.counts = domain.AlertCounts{}
	a.updatedAt = time.Time{}
}

func (a *AlertAggregator) run(ctx context.Context) {
	coalesce := time.NewTimer(a.cfg.Coalesce)
	if !coalesce.Stop() {
		<-coalesce.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			coalesce.Stop()
			return
		case <-a.kickCh:
			a.recount(ctx)
		case <-a.notifyCh:
			if !pending {
				coalesce.Reset(a.cfg.Coalesce)
				pending = true
			}
		case <-coalesce.C:
			pending = false
			a.recount(ctx)
		}
	}
}

func (a *AlertAggregator) recount(ctx context.Context) {
	ident := a.resolver.Current()
	if ident.IsZero() || ident.DealershipID == "" {
		a.Reset()
		return
	}

	// Sellers only count their own leads and vehicles.
	scope := ""
	if !ident.Role.Privileged() {
		scope = ident.UserID
	}

	now := a.now()
	staleSince := now.AddDate(0, 0, -a.cfg.StaleLeadDays)
	reservedBefore := now.AddDate(0, 0, -a.cfg.ReservedStaleDays)

	var counts domain.AlertCounts
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := a.vehicles.CountPending(gctx, ident.DealershipID, scope)
		counts.VehiclesPending = n
		return err
	})
	g.Go(func() error {
		n, err := a.vehicles.CountReservedStale(gctx, ident.DealershipID, scope, reservedBefore)
		counts.VehiclesReservedOld = n
		return err
	})
	g.Go(func() error {
		n, err := a.leads.CountOverdue(gctx, ident.DealershipID, scope, now)
		counts.LeadsOverdue = n
		return err
	})
	g.Go(func() error {
		n, err := a.leads.CountStale(gctx, ident.DealershipID, scope, staleSince)
		counts.LeadsStale = n
		return err
	})
	g.Go(func() error {
		n, err := a.tasks.CountOverdue(gctx, ident.DealershipID, now)
		counts.TasksOverdue = n
		return err
	})
	g.Go(func() error {
		n, err := a.tasks.CountDueToday(gctx, ident.DealershipID, now)
		counts.TasksDueToday = n
		return err
	})
	g.Go(func() error {
		n, err := a.countEndingCredits(gctx, ident.DealershipID, now)
		counts.CreditsEndingSoon = n
		return err
	})

	if err := g.Wait(); err != nil {
		// Keep the previous counters on a partial failure.
		a.logger.Warn("alert recount failed", zap.Error(err))
		return
	}

	a.mu.Lock()
	a.counts = counts
	a.updatedAt = now
	listeners := a.listeners
	a.mu.Unlock()

	for _, fn := range listeners {
		fn(counts)
	}
}

// countEndingCredits scans active plans and counts those whose last
// installment falls between today and today+window months.
func (a *AlertAggregator) countEndingCredits(ctx context.Context, dealershipID string, now time.Time) (int, error) {
	credits, err := a.credits.ListActive(ctx, dealershipID, a.cfg.CreditScanLimit)
	if err != nil {
		return 0, err
	}

	limit := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).
		AddDate(0, a.cfg.EndingWindowMonths, 0)

	count := 0
	for i := range credits {
		c := &credits[i]
		s := domain.ComputeScheduleWithDueDay(c.StartDate, c.InstallmentCount, c.Status, now, a.cfg.DueDay)
		if s == nil {
			continue
		}
		if s.DaysToEnd >= 0 && !s.LastDue.After(limit) {
			count++
		}
	}
	return count, nil
}
