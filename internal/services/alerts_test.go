package services

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dealerdesk/backend/domain"
	"github.com/dealerdesk/backend/repository"
	"github.com/dealerdesk/backend/usecase/identity"
)

type stubLeads struct {
	repository.LeadRepository
	overdue, stale int
}

func (s stubLeads) CountOverdue(ctx context.Context, dealershipID, assignedTo string, now time.Time) (int, error) {
	return s.overdue, nil
}

func (s stubLeads) CountStale(ctx context.Context, dealershipID, assignedTo string, since time.Time) (int, error) {
	return s.stale, nil
}

type stubTasks struct {
	repository.TaskRepository
	overdue, dueToday int
}

func (s stubTasks) CountOverdue(ctx context.Context, dealershipID string, now time.Time) (int, error) {
	return s.overdue, nil
}

func (s stubTasks) CountDueToday(ctx context.Context, dealershipID string, now time.Time) (int, error) {
	return s.dueToday, nil
}

type stubVehicles struct {
	repository.VehicleRepository
	pending, reserved int
}

func (s stubVehicles) CountPending(ctx context.Context, dealershipID, createdBy string) (int, error) {
	return s.pending, nil
}

func (s stubVehicles) CountReservedStale(ctx context.Context, dealershipID, createdBy string, before time.Time) (int, error) {
	return s.reserved, nil
}

type stubCredits struct {
	repository.CreditRepository
	scans   *atomic.Int32
	credits []domain.Credit
}

func (s stubCredits) ListActive(ctx context.Context, dealershipID string, limit int) ([]domain.Credit, error) {
	if s.scans != nil {
		s.scans.Add(1)
	}
	return s.credits, nil
}

type stubProfiles struct {
	profile *domain.Profile
}

func (s stubProfiles) GetByUserID(ctx context.Context, userID string) (*domain.Profile, error) {
	if s.profile == nil || s.profile.UserID != userID {
		return nil, domain.ErrProfileNotFound
	}
	return s.profile, nil
}

func (s stubProfiles) Upsert(ctx context.Context, profile *domain.Profile) error { return nil }

type stubSessions struct{}

func (stubSessions) Get(ctx context.Context, id string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}
func (stubSessions) Save(ctx context.Context, session *domain.Session) error     { return nil }
func (stubSessions) Delete(ctx context.Context, id string) error                 { return nil }
func (stubSessions) Extend(ctx context.Context, id string, ttlSeconds int) error { return nil }

func signedInResolver(t *testing.T, role domain.Role) *identity.Resolver {
	t.Helper()
	r := identity.NewResolver(context.Background(), identity.Config{TTL: time.Minute}, stubProfiles{
		profile: &domain.Profile{UserID: "u-1", Role: role, DealershipID: "d-1", FullName: "Ana Torres"},
	}, stubSessions{})
	_, err := r.Resolve(context.Background(), "u-1")
	require.NoError(t, err)
	return r
}

func activeCredit(start time.Time, installments int) domain.Credit {
	return domain.Credit{
		Status:           domain.CreditActive,
		InstallmentCount: installments,
		StartDate:        start,
	}
}

func newTestAggregator(t *testing.T, scans *atomic.Int32, credits []domain.Credit) *AlertAggregator {
	t.Helper()
	return NewAlertAggregator(
		stubLeads{overdue: 2, stale: 1},
		stubTasks{overdue: 3, dueToday: 4},
		stubCredits{scans: scans, credits: credits},
		stubVehicles{pending: 5, reserved: 1},
		signedInResolver(t, domain.RoleAdmin),
		nil,
		AlertsConfig{Interval: time.Hour, Coalesce: 40 * time.Millisecond},
	)
}

func TestRecountAggregatesCounters(t *testing.T) {
	now := time.Now()
	a := newTestAggregator(t, nil, []domain.Credit{
		// Ends within the window.
		activeCredit(now.AddDate(0, -10, 0), 11),
		// Ends far outside the window.
		activeCredit(now, 24),
	})
	a.recount(context.Background())

	counts, updatedAt := a.Counts()
	assert.Equal(t, 5, counts.VehiclesPending)
	assert.Equal(t, 1, counts.VehiclesReservedOld)
	assert.Equal(t, 2, counts.LeadsOverdue)
	assert.Equal(t, 1, counts.LeadsStale)
	assert.Equal(t, 3, counts.TasksOverdue)
	assert.Equal(t, 4, counts.TasksDueToday)
	assert.Equal(t, 1, counts.CreditsEndingSoon)
	assert.False(t, updatedAt.IsZero())

	assert.Equal(t, 5+2+3+1, counts.Total())
}

func TestRecountWithoutIdentityZeroesCounters(t *testing.T) {
	a := NewAlertAggregator(
		stubLeads{}, stubTasks{}, stubCredits{}, stubVehicles{},
		identity.NewResolver(context.Background(), identity.Config{}, stubProfiles{}, stubSessions{}),
		nil,
		AlertsConfig{},
	)
	a.recount(context.Background())

	counts, _ := a.Counts()
	assert.Zero(t, counts.Total())
}

func TestNotifyBurstCoalescesIntoOneRecount(t *testing.T) {
	var scans atomic.Int32
	a := newTestAggregator(t, &scans, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.run(ctx)

	for i := 0; i < 10; i++ {
		a.Notify()
		time.Sleep(2 * time.Millisecond)
	}

	require.Eventually(t, func() bool {
		return scans.Load() == 1
	}, time.Second, 5*time.Millisecond, "a burst of notifications must recount exactly once")

	// A quiet period followed by another burst recounts again.
	time.Sleep(60 * time.Millisecond)
	a.Notify()
	require.Eventually(t, func() bool {
		return scans.Load() == 2
	}, time.Second, 5*time.Millisecond)
}

func TestInvalidateRecountsImmediately(t *testing.T) {
	var scans atomic.Int32
	a := newTestAggregator(t, &scans, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go a.run(ctx)

	a.Invalidate()
	require.Eventually(t, func() bool {
		return scans.Load() == 1
	}, time.Second, 5*time.Millisecond)
}

func TestResetZeroesCounters(t *testing.T) {
	a := newTestAggregator(t, nil, nil)
	a.recount(context.Background())

	counts, _ := a.Counts()
	require.NotZero(t, counts.Total())

	a.Reset()
	counts, updatedAt := a.Counts()
	assert.Zero(t, counts.Total())
	assert.True(t, updatedAt.IsZero())
}
