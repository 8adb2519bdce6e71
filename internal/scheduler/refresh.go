// Package scheduler runs periodic background refreshes.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bremen-jose-oliveira/mylibrary/internal/entities"
	"github.com/bremen-jose-oliveira/mylibrary/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultTickTimeout bounds one refresh round.
const DefaultTickTimeout = 2 * time.Minute

// NotificationSource is the part of the notification store the scheduler
// drives.
type NotificationSource interface {
	Refresh(ctx context.Context)
	UnreadCount() int
	LastRefreshError() error
}

// FriendRequestSource is the part of the friend store the scheduler drives.
type FriendRequestSource interface {
	RefreshPending(ctx context.Context)
	Pending() []entities.Friendship
}

// TickResult summarises one refresh round.
type TickResult struct {
	Skipped         bool
	Unread          int
	PendingRequests int
	Err             error
}

// RefreshScheduler periodically refreshes notifications and incoming friend
// requests so a long-running client notices new activity.
type RefreshScheduler struct {
	notifications NotificationSource
	friends       FriendRequestSource
	authenticated func(ctx context.Context) bool
	log           logrus.FieldLogger
	unread        prometheus.Gauge
	pending       prometheus.Gauge
	onTick        func(TickResult)

	cron      *cron.Cron
	entryID   cron.EntryID
	mu        sync.RWMutex
	isRunning bool
	isSyncing bool
	cancel    context.CancelFunc
}

type Option func(*RefreshScheduler)

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *RefreshScheduler) { s.log = l }
}

// WithAuthCheck skips ticks while fn reports no session.
func WithAuthCheck(fn func(ctx context.Context) bool) Option {
	return func(s *RefreshScheduler) { s.authenticated = fn }
}

// WithRegisterer exports unread and pending counts as gauges.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *RefreshScheduler) {
		s.unread = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mylibrary",
			Subsystem: "notifications",
			Name:      "unread",
			Help:      "Unread notifications seen at the last refresh.",
		})
		s.pending = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mylibrary",
			Subsystem: "friends",
			Name:      "pending_requests",
			Help:      "Incoming friend requests seen at the last refresh.",
		})
		reg.MustRegister(s.unread, s.pending)
	}
}

// OnTick registers a callback run after every completed tick.
func OnTick(fn func(TickResult)) Option {
	return func(s *RefreshScheduler) { s.onTick = fn }
}

func NewRefreshScheduler(notifications NotificationSource, friends FriendRequestSource, opts ...Option) *RefreshScheduler {
	s := &RefreshScheduler{
		notifications: notifications,
		friends:       friends,
		cron:          cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor))),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logging.OrDiscard(s.log).WithField("component", "scheduler")
	return s
}

// ValidateSchedule checks a five-field cron expression or @descriptor.
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Start schedules refreshes until Stop is called or ctx is cancelled.
func (s *RefreshScheduler) Start(ctx context.Context, schedule string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	entryID, err := s.cron.AddFunc(schedule, func() { s.tick(runCtx) })
	if err != nil {
		cancel()
		return fmt.Errorf("failed to schedule refresh job: %w", err)
	}
	s.entryID = entryID
	s.cancel = cancel

	s.cron.Start()
	s.isRunning = true

	s.log.WithFields(logrus.Fields{
		"schedule": schedule,
		"next_run": s.cron.Entry(entryID).Next,
	}).Info("refresh scheduler started")

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop cancels a running tick, waits for it to return and stops the
// scheduler.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel, entryID := s.cancel, s.entryID
	s.cancel = nil
	s.mu.Unlock()

	// The tick takes s.mu on exit, so wait without holding it.
	cancel()
	done := s.cron.Stop()
	<-done.Done()
	s.cron.Remove(entryID)

	s.log.Info("refresh scheduler stopped")
}

// RunNow performs one refresh synchronously.
func (s *RefreshScheduler) RunNow(ctx context.Context) TickResult {
	return s.tick(ctx)
}

func (s *RefreshScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun returns when the next tick fires, or nil when stopped.
func (s *RefreshScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.isRunning {
		return nil
	}
	next := s.cron.Entry(s.entryID).Next
	return &next
}

func (s *RefreshScheduler) tick(ctx context.Context) TickResult {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		s.log.Debug("refresh skipped, previous tick still running")
		return TickResult{Skipped: true}
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(ctx, DefaultTickTimeout)
	defer cancel()

	if s.authenticated != nil && !s.authenticated(ctx) {
		s.log.Debug("refresh skipped, not logged in")
		return s.finish(TickResult{Skipped: true})
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.notifications.Refresh(ctx)
	}()
	go func() {
		defer wg.Done()
		s.friends.RefreshPending(ctx)
	}()
	wg.Wait()

	result := TickResult{
		Unread:          s.notifications.UnreadCount(),
		PendingRequests: len(s.friends.Pending()),
		Err:             s.notifications.LastRefreshError(),
	}

	log := s.log.WithFields(logrus.Fields{
		"unread":  result.Unread,
		"pending": result.PendingRequests,
	})
	if result.Err != nil {
		log.WithError(result.Err).Warn("refresh finished with errors")
	} else {
		log.Info("refresh finished")
	}

	if s.unread != nil {
		s.unread.Set(float64(result.Unread))
		s.pending.Set(float64(result.PendingRequests))
	}
	return s.finish(result)
}

func (s *RefreshScheduler) finish(result TickResult) TickResult {
	if s.onTick != nil {
		s.onTick(result)
	}
	return result
}
