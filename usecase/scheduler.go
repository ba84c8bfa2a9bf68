package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"publish-scheduler/domain/model"
	"publish-scheduler/domain/repository"
	"publish-scheduler/infrastructure/logger"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type cycleRunner interface {
	RunCycle(ctx context.Context) (*model.CycleReport, error)
}

// Scheduler runs dispatch cycles on a fixed interval. Cycles never overlap.
type Scheduler struct {
	runner     cycleRunner
	interval   time.Duration
	runOnStart bool
	lock       repository.ILeaderLock

	cycleMu sync.Mutex

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewScheduler(runner cycleRunner, interval time.Duration, runOnStart bool) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{runner: runner, interval: interval, runOnStart: runOnStart}
}

// WithLeaderLock makes the scheduler run cycles only while it holds lock.
func (s *Scheduler) WithLeaderLock(lock repository.ILeaderLock) *Scheduler {
	s.lock = lock
	return s
}

// Start launches the loop. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true

	logger.GetLogger().WithField("interval", s.interval.String()).Info("Scheduler started")
	go s.loop(loopCtx, s.done)
}

func (s *Scheduler) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	if s.runOnStart {
		s.tick(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.TriggerOnce(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Error("Scheduled cycle failed")
	}
}

// Stop ends the loop and waits for an in-flight cycle to finish. It is safe
// to call more than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done

	if s.lock != nil {
		ctx, cancelRelease := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancelRelease()
		if err := s.lock.Release(ctx); err != nil {
			logger.GetLogger().WithField("error", err).Warn("Failed to release leader lock")
		}
	}
	logger.GetLogger().Info("Scheduler stopped")
}

// TriggerOnce runs a single cycle now, waiting for any in-flight cycle first.
// The cycle itself is not cancelled by ctx.
func (s *Scheduler) TriggerOnce(ctx context.Context) (report *model.CycleReport, err error) {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	cycleID := uuid.NewString()
	lg := logger.GetLogger().WithField("cycle_id", cycleID)
	defer func() {
		if r := recover(); r != nil {
			sentry.CurrentHub().Recover(r)
			lg.WithField("panic", r).Error("Cycle panicked")
			err = fmt.Errorf("cycle %s panicked: %v", cycleID, r)
		}
	}()

	cycleCtx := context.WithoutCancel(ctx)
	if s.lock != nil {
		leader, lockErr := s.lock.Acquire(cycleCtx)
		if lockErr != nil {
			return nil, fmt.Errorf("acquire leader lock: %w", lockErr)
		}
		if !leader {
			lg.Debug("Not the leader, skipping cycle")
			return &model.CycleReport{CycleID: cycleID, StartedAt: time.Now().UTC()}, nil
		}
	}

	report, err = s.runner.RunCycle(cycleCtx)
	if report != nil {
		report.CycleID = cycleID
		report.Leader = true
		lg.WithFields(logrus.Fields{
			"due":       report.Due,
			"published": report.Published,
			"failed":    report.Failed,
			"retried":   report.Retried,
			"skipped":   report.Skipped,
			"released":  report.Released,
		}).Info("Cycle finished")
	}
	return report, err
}
