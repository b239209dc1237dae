package video

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrPollTimeout = errors.New("video: generation did not finish before the polling deadline")

// StatusChecker is the single-poll half of the provider client.
type StatusChecker interface {
	CheckVideoStatus(ctx context.Context, jobID string) (*Job, error)
}

// Poller repeatedly checks a job until it is terminal. The wait between polls
// doubles from Interval up to MaxInterval; Timeout bounds the whole wait.
type Poller struct {
	Checker     StatusChecker
	Interval    time.Duration
	MaxInterval time.Duration
	Timeout     time.Duration
}

func NewPoller(checker StatusChecker, interval, maxInterval, timeout time.Duration) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if maxInterval < interval {
		maxInterval = interval
	}
	if timeout <= 0 {
		timeout = 300 * time.Second
	}
	return &Poller{Checker: checker, Interval: interval, MaxInterval: maxInterval, Timeout: timeout}
}

// Wait returns the terminal snapshot of jobID. Provider errors abort the wait
// without retry.
func (p *Poller) Wait(ctx context.Context, jobID string) (*Job, error) {
	ctx, cancel := context.WithTimeout(ctx, p.Timeout)
	defer cancel()

	current := &Job{JobID: jobID, Status: StatusPending}
	delay := p.Interval
	for {
		snap, err := p.Checker.CheckVideoStatus(ctx, jobID)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return current, ErrPollTimeout
			}
			return current, fmt.Errorf("poll video %s: %w", jobID, err)
		}
		if err := current.Advance(snap); err != nil {
			return current, err
		}
		if current.Status.Terminal() {
			return current, nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return current, ErrPollTimeout
			}
			return current, ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > p.MaxInterval {
			delay = p.MaxInterval
		}
	}
}
