// Package poller watches a single job until it reaches a terminal status
// or the session's wall-clock budget runs out. Polling is read-only: a
// session never mutates the job, it only observes it.
package poller

import (
	"context"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/aimariscal90-maker/ink-v1/model"
	"github.com/aimariscal90-maker/ink-v1/pkg/logger"
	"github.com/aimariscal90-maker/ink-v1/progress"
)

// StatusSource reads the current status of a job. Implementations must be
// side-effect free; the session may call it any number of times.
type StatusSource interface {
	GetStatus(ctx context.Context, jobID string) (*model.Snapshot, error)
}

// Config tunes one poll session. A fresh session always starts over at
// InitialDelay; accumulated backoff never carries across sessions.
type Config struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Budget       time.Duration
}

// DefaultConfig polls every 2s at first, stretching to at most 10s between
// polls, and gives up observing (without failing the job) after 10 minutes.
func DefaultConfig() Config {
	return Config{
		InitialDelay: 2 * time.Second,
		MaxDelay:     10 * time.Second,
		Multiplier:   1.2,
		Budget:       10 * time.Minute,
	}
}

// State classifies where a poll session ended up.
type State string

const (
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	// StateTimedOut means the budget ran out while the job was still
	// in flight. Not an error: the server-side job keeps running.
	StateTimedOut State = "timed_out"
)

// Outcome is the terminal result of one poll session.
type Outcome struct {
	State    State
	Snapshot *model.Snapshot // latest observed snapshot, nil if none arrived
	Attempts int
	Elapsed  time.Duration
}

// Session is one bounded attempt to observe a job to completion. It holds
// the backoff and elapsed-time state for exactly one Wait call; create a
// new session to poll again after a timeout.
type Session struct {
	src   StatusSource
	cfg   Config
	clock backoff.Clock
	sleep func(context.Context, time.Duration) error

	// OnSnapshot, when set, sees every snapshot in reporting order before
	// the next poll is issued.
	OnSnapshot func(*model.Snapshot)
}

func NewSession(src StatusSource, cfg Config) *Session {
	if cfg.InitialDelay <= 0 {
		cfg = DefaultConfig()
	}
	return &Session{
		src:   src,
		cfg:   cfg,
		clock: backoff.SystemClock,
		sleep: sleepContext,
	}
}

// Wait polls the job until it completes, fails, or the budget is spent.
// Transport and network errors abort the session immediately and are
// returned as-is; terminal job states come back as an Outcome. At most one
// status request is in flight at any time.
func (s *Session) Wait(ctx context.Context, jobID string) (*Outcome, error) {
	ctx = logger.WithJob(ctx, jobID)
	bo := s.newBackOff()

	var last *model.Snapshot
	attempts := 0

	for {
		delay := bo.NextBackOff()
		if delay == backoff.Stop {
			logger.Info(ctx, "poll budget spent, job still in flight", "attempts", attempts)
			return &Outcome{
				State:    StateTimedOut,
				Snapshot: last,
				Attempts: attempts,
				Elapsed:  bo.GetElapsedTime(),
			}, nil
		}

		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}

		snap, err := s.src.GetStatus(ctx, jobID)
		if err != nil {
			return nil, err
		}

		attempts++
		last = snap
		if s.OnSnapshot != nil {
			s.OnSnapshot(snap)
		}

		if view := progress.Interpret(snap); view != nil {
			logger.Info(ctx, "job progress", "attempt", attempts, "label", view.Label, "percent", view.Percent)
		} else {
			logger.Debug(ctx, "job status", "attempt", attempts, "status", snap.Status)
		}

		switch snap.Status {
		case model.StatusCompleted:
			return &Outcome{State: StateCompleted, Snapshot: snap, Attempts: attempts, Elapsed: bo.GetElapsedTime()}, nil
		case model.StatusFailed:
			return &Outcome{State: StateFailed, Snapshot: snap, Attempts: attempts, Elapsed: bo.GetElapsedTime()}, nil
		}
		// uploaded, queued and processing keep the session running
	}
}

func (s *Session) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.cfg.InitialDelay
	bo.MaxInterval = s.cfg.MaxDelay
	bo.Multiplier = s.cfg.Multiplier
	bo.RandomizationFactor = 0 // delays must be deterministic and never shrink
	bo.MaxElapsedTime = s.cfg.Budget
	bo.Clock = s.clock
	bo.Reset()
	return bo
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
