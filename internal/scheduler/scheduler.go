package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"rfp-relay-go/internal/pipeline"
)

const stopTimeout = 30 * time.Second

// Runner performs one inbox reconciliation pass
type Runner interface {
	Run(ctx context.Context) (*pipeline.Report, error)
}

// Status is a snapshot of the scheduler state
type Status struct {
	Running         bool             `json:"running"`
	IntervalMinutes int              `json:"interval_minutes"`
	NextRun         *time.Time       `json:"next_run,omitempty"`
	LastRun         *time.Time       `json:"last_run,omitempty"`
	LastError       string           `json:"last_error,omitempty"`
	LastReport      *pipeline.Report `json:"last_report,omitempty"`
}

// Scheduler runs the inbox check periodically
type Scheduler struct {
	interval int
	schedule string
	runner   Runner

	mu        sync.RWMutex
	cron      *cron.Cron
	entryID   cron.EntryID
	ctx       context.Context
	cancel    context.CancelFunc
	isRunning bool

	wg         sync.WaitGroup
	lastRun    time.Time
	lastErr    error
	lastReport *pipeline.Report
}

// NewScheduler creates a scheduler firing every intervalMinutes
func NewScheduler(intervalMinutes int, runner Runner) *Scheduler {
	if intervalMinutes <= 0 {
		intervalMinutes = 5
	}
	return &Scheduler{
		interval: intervalMinutes,
		schedule: fmt.Sprintf("@every %dm", intervalMinutes),
		runner:   runner,
	}
}

// Start starts the scheduler. It can be started again after Stop.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	entryID, err := c.AddFunc(s.schedule, s.tick)
	if err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.cron = c
	s.entryID = entryID
	s.cron.Start()
	s.isRunning = true

	logrus.Infof("Scheduler started with interval: %d minutes", s.interval)
	return nil
}

// Stop stops the scheduler and cancels a pass in progress.
// The lock is released before waiting so the pass can record its result.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.cancel()
	done := s.cron.Stop()
	s.isRunning = false
	s.mu.Unlock()

	select {
	case <-done.Done():
		logrus.Info("Scheduler stopped gracefully")
	case <-time.After(stopTimeout):
		logrus.Warn("Scheduler stop timeout, forcing shutdown")
	}
	return nil
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func (s *Scheduler) tick() {
	s.mu.RLock()
	if !s.isRunning {
		s.mu.RUnlock()
		return
	}
	ctx := s.ctx
	s.mu.RUnlock()

	if _, err := s.run(ctx); err != nil {
		logrus.Errorf("Scheduled inbox check failed: %v", err)
	}
}

// RunOnce runs an inbox check immediately, independent of the schedule
func (s *Scheduler) RunOnce(ctx context.Context) (*pipeline.Report, error) {
	logrus.Info("Running inbox check once")
	return s.run(ctx)
}

func (s *Scheduler) run(ctx context.Context) (*pipeline.Report, error) {
	s.wg.Add(1)
	defer s.wg.Done()

	started := time.Now()
	report, err := s.runner.Run(ctx)

	s.mu.Lock()
	s.lastRun = started
	s.lastErr = err
	if report != nil {
		s.lastReport = report
	}
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	logrus.Infof("Inbox check completed in %v", time.Since(started))
	return report, nil
}

// Status returns the current scheduler state
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Running:         s.isRunning,
		IntervalMinutes: s.interval,
		LastReport:      s.lastReport,
	}
	if s.isRunning {
		if next := s.cron.Entry(s.entryID).Next; !next.IsZero() {
			st.NextRun = &next
		}
	}
	if !s.lastRun.IsZero() {
		last := s.lastRun
		st.LastRun = &last
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Wait blocks until in-flight passes have returned
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// cronLogger routes cron's own logging to logrus
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).Debug(msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logrus.WithFields(fields(keysAndValues)).WithError(err).Error(msg)
}

func fields(kv []interface{}) logrus.Fields {
	f := logrus.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		f[fmt.Sprint(kv[i])] = kv[i+1]
	}
	return f
}
