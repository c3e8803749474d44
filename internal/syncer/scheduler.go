package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dmitrijs2005/repairdesk/internal/common"
	"github.com/dmitrijs2005/repairdesk/internal/logging"
)

// PushFunc is one push cycle; (*Pusher).Push satisfies it.
type PushFunc func(ctx context.Context) (Report, error)

// Scheduler runs a push shortly after start and then on a fixed interval.
// Errors are logged; the next tick retries.
type Scheduler struct {
	push     PushFunc
	delay    time.Duration
	interval time.Duration
	log      logging.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(push PushFunc, delay, interval time.Duration, log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.Nop()
	}
	return &Scheduler{push: push, delay: delay, interval: interval, log: log}
}

// Start launches the background loop. Calling Start on a running scheduler
// does nothing.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
}

func (s *Scheduler) loop(ctx context.Context) {
	first := time.NewTimer(s.delay)
	defer first.Stop()

	select {
	case <-ctx.Done():
		return
	case <-first.C:
		s.runOnce(ctx)
	}

	if s.interval <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	_, err := s.push(ctx)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrPushInProgress):
		s.log.Debug(ctx, "scheduled push skipped: previous cycle still running")
	default:
		s.log.Warn(ctx, "scheduled push failed", "error", err)
	}
}

// Stop ends the loop and waits up to timeout for an in-flight cycle. It
// reports whether the loop finished in time.
func (s *Scheduler) Stop(timeout time.Duration) bool {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()
	if cancel == nil {
		return true
	}
	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
