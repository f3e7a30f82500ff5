package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/seerrsync/seerrsync/pkg/errors"
	"github.com/seerrsync/seerrsync/pkg/logging"
)

// RunFunc performs one sync run.
type RunFunc func(ctx context.Context) (*Result, error)

// Scheduler executes sync runs on a fixed interval and on demand.
// At most one run is active at any time. A trigger while a run is
// active is rejected rather than queued.
type Scheduler struct {
	interval time.Duration
	run      RunFunc

	mu     sync.Mutex
	active bool

	// LastResult and LastError reflect the most recently finished run.
	lastResult *Result
	lastError  error
}

// NewScheduler creates a Scheduler. Interval must be positive for Start
// to loop; TriggerNow works regardless.
func NewScheduler(interval time.Duration, run RunFunc) *Scheduler {
	return &Scheduler{
		interval: interval,
		run:      run,
	}
}

// Interval returns the current run interval.
func (s *Scheduler) Interval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval
}

// SetInterval changes the pause between runs. It takes effect after the
// next run or tick.
func (s *Scheduler) SetInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interval = d
}

// Running reports whether a run is currently active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Last returns the result and error of the most recently finished run.
func (s *Scheduler) Last() (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.lastError
}

// TriggerNow starts a run immediately. It returns ErrSyncInProgress
// when another run is already active.
func (s *Scheduler) TriggerNow(ctx context.Context) (*Result, error) {
	if !s.acquire() {
		return nil, errors.ErrSyncInProgress
	}
	return s.finish(s.run(ctx))
}

// TriggerAsync starts a run in the background. It returns
// ErrSyncInProgress immediately when another run is already active.
func (s *Scheduler) TriggerAsync(ctx context.Context) error {
	if !s.acquire() {
		return errors.ErrSyncInProgress
	}
	go func() {
		if _, err := s.finish(s.run(context.WithoutCancel(ctx))); err != nil {
			logging.FromContext(ctx).Error().Err(err).Msg("triggered sync failed")
		}
	}()
	return nil
}

// Start runs immediately and then on every interval tick until ctx is
// canceled. Cancellation during the idle wait returns promptly; an
// in-progress run always finishes first so mutations against the
// request service are never cut off halfway.
func (s *Scheduler) Start(ctx context.Context) error {
	log := logging.FromContext(ctx)
	log.Info().Dur("interval", s.Interval()).Msg("scheduler started")

	timer := time.NewTimer(0)
	defer timer.Stop()

	for runs := 0; ; {
		select {
		case <-ctx.Done():
			log.Info().Int("runs", runs).Msg("scheduler stopped")
			return ctx.Err()
		case <-timer.C:
		}

		if s.acquire() {
			runs++
			// The run outlives ctx cancellation on purpose.
			result, err := s.finish(s.run(context.WithoutCancel(ctx)))
			if err != nil {
				log.Error().Err(err).Int("run", runs).Msg("scheduled sync failed")
			} else {
				log.Info().Int("run", runs).Msg(result.Summary())
			}
		}

		interval := s.Interval()
		log.Debug().Time("next_run", time.Now().Add(interval)).Msg("waiting for next run")
		timer.Reset(interval)
	}
}

// acquire marks a run active, failing when one already is.
func (s *Scheduler) acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return false
	}
	s.active = true
	return true
}

// finish records the run outcome and releases the active slot.
func (s *Scheduler) finish(result *Result, err error) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = false
	s.lastResult, s.lastError = result, err
	return result, err
}
