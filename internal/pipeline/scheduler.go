package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmoreira/transferwire/internal/logging"
)

// Scheduler runs cycles on a fixed interval. A cycle that overruns its
// slot causes the next tick to be skipped rather than overlap, and the
// immediate kickoff cycle is held to the same rule.
type Scheduler struct {
	cron   *cron.Cron
	orch   *Orchestrator
	logger *logging.Logger

	// running is held for the full duration of a cycle. Any tick that
	// cannot take it is skipped.
	running sync.Mutex
	wg      sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

func NewScheduler(interval time.Duration, orch *Orchestrator, logger *logging.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", interval)
	}

	s := &Scheduler{
		orch:   orch,
		logger: logger,
	}

	s.cron = cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), s.runOnce)
	if err != nil {
		return nil, fmt.Errorf("failed to schedule poll job: %w", err)
	}

	return s, nil
}

// Start runs one cycle immediately, then continues on the configured
// interval until Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runOnce()
	}()
	s.cron.Start()
}

// Stop halts the tick schedule and cancels any in-flight cycle. It
// returns only after every running cycle, the kickoff included, has
// finished.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	stopCtx := s.cron.Stop()
	<-stopCtx.Done()
	s.wg.Wait()
}

// RunOnce triggers a single cycle outside the schedule.
func (s *Scheduler) RunOnce() {
	s.runOnce()
}

func (s *Scheduler) runOnce() {
	if !s.running.TryLock() {
		return
	}
	defer s.running.Unlock()

	if s.ctx != nil && s.ctx.Err() != nil {
		return
	}
	ctx := s.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	s.orch.RunCycle(ctx)
}
