// Package payments authorizes and captures seat payments.
package payments

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var ErrInvalidAmount = errors.New("payment amount must be positive")

// Gateway holds funds, then captures or releases them.
type Gateway interface {
	Authorize(ctx context.Context, amount int64, currency, customer string) (string, error)
	Capture(ctx context.Context, ref string) error
	Cancel(ctx context.Context, ref string) error
}

// Simulated waits for Delay and then approves every payment.
type Simulated struct {
	Delay time.Duration
	seq   atomic.Int64
}

func NewSimulated(delay time.Duration) *Simulated {
	return &Simulated{Delay: delay}
}

func (s *Simulated) Authorize(ctx context.Context, amount int64, currency, customer string) (string, error) {
	if amount < 0 {
		return "", ErrInvalidAmount
	}
	if s.Delay > 0 {
		t := time.NewTimer(s.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-t.C:
		}
	}
	return fmt.Sprintf("sim_%d", s.seq.Add(1)), nil
}

func (s *Simulated) Capture(ctx context.Context, ref string) error { return ctx.Err() }

func (s *Simulated) Cancel(ctx context.Context, ref string) error { return nil }
