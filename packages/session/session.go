// Package session provides the asynchronous executor that drives transfer
// handles to completion.
//
// A Session accepts fully configured handles and runs each on its own
// goroutine, handing back a Future that resolves exactly once when the
// transfer finishes. Sessions can optionally rate-limit outbound transfers
// and record latency metrics for everything they run.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/httpfetch/packages/metrics"
	"github.com/abdul-hamid-achik/httpfetch/packages/transfer"
)

// Session executes transfer handles asynchronously. The zero value is not
// usable; create sessions with New.
type Session struct {
	limiter  *rate.Limiter
	recorder *metrics.Recorder
}

// Option configures a Session.
type Option func(*Session)

// WithRateLimit caps how many transfers per second the session starts.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(s *Session) {
		s.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRecorder attaches a metrics recorder observing every transfer the
// session runs.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Session) {
		s.recorder = r
	}
}

// New creates a session.
func New(opts ...Option) *Session {
	s := &Session{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit starts the handle's transfer and returns a future resolving when
// it completes. The future resolves once, on success or failure; it never
// resolves per callback invocation.
func (s *Session) Submit(ctx context.Context, h *transfer.Handle) *Future {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future{
		done:   make(chan struct{}),
		handle: h,
		cancel: cancel,
	}

	go func() {
		defer close(f.done)
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				f.err = &transfer.Failure{Err: fmt.Errorf("rate limiter: %w", err)}
				return
			}
		}
		start := time.Now()
		err := h.Perform(ctx)
		if s.recorder != nil {
			s.recorder.Observe(h.ID(), time.Since(start), err)
		}
		f.err = err
	}()

	return f
}

// Future is the single-resolution completion of one submitted transfer.
type Future struct {
	done   chan struct{}
	handle *transfer.Handle
	err    error

	cancelOnce sync.Once
	cancel     context.CancelFunc
}

// Done is closed when the transfer has finished or been cancelled.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until resolution and returns the completed handle. The
// handle's callbacks have all fired by the time Wait returns.
func (f *Future) Wait(ctx context.Context) (*transfer.Handle, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.handle, nil
}

// Cancel abandons the transfer. The handle's callbacks are detached before
// the context is cancelled, so no callback fires once Cancel returns.
func (f *Future) Cancel() {
	f.cancelOnce.Do(func() {
		f.handle.Detach()
		f.cancel()
	})
}
