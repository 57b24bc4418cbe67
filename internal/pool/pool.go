// Package pool runs UI-affinity actions on a small set of long-lived worker
// slots, each locked to its own OS thread. The windowing and automation APIs
// mandate that all interaction with a given window happen from one thread,
// so test bodies are marshaled onto a slot and awaited with a timeout
// instead of spawning a thread per test.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrSessionBusy is returned when a second action is submitted for a session
// that already has one in flight. Window access within a session must be
// serialized; two concurrent submits would be undefined behavior at the
// automation boundary.
var ErrSessionBusy = errors.New("pool: session already has an action in flight")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pool: closed")

// SubmitTimeoutError reports a bounded wait that elapsed, either while
// queuing for an idle slot or while the action ran.
type SubmitTimeoutError struct {
	Stage   string // "acquire" or "run"
	Key     string
	Budget  time.Duration
	Elapsed time.Duration
}

func (e *SubmitTimeoutError) Error() string {
	return fmt.Sprintf("pool: %s timed out for session %s after %s (budget %s)",
		e.Stage, e.Key, e.Elapsed.Round(time.Millisecond), e.Budget)
}

// Pool owns a fixed-size table of worker slots. The table is the only shared
// mutable state and is guarded by one mutex. A slot that times out is marked
// faulted and discarded — never returned to the idle set — and a fresh slot
// is created lazily on next demand.
type Pool struct {
	size           int
	acquireTimeout time.Duration

	mu       sync.Mutex
	idle     []*slot
	live     int // idle + busy, excludes faulted
	nextID   int
	inflight map[string]struct{}
	closed   bool

	released chan struct{}
}

// New creates a pool of at most size slots. Slots are created on demand, not
// up front. acquireTimeout bounds how long Submit waits for an idle slot.
func New(size int, acquireTimeout time.Duration) *Pool {
	if size < 1 {
		size = 1
	}
	if acquireTimeout <= 0 {
		acquireTimeout = 5 * time.Second
	}
	return &Pool{
		size:           size,
		acquireTimeout: acquireTimeout,
		inflight:       make(map[string]struct{}),
		released:       make(chan struct{}, size),
	}
}

// Submit runs action on a worker slot and waits for completion or timeout.
// key identifies the session the action touches; a second Submit with the
// same key while one is in flight fails with ErrSessionBusy. If the action
// panics, the panic is re-raised here as a *PanicError. If the timeout
// elapses first, the slot is abandoned as faulted and a *SubmitTimeoutError
// is returned; the hung action keeps its thread and is never rejoined.
func (p *Pool) Submit(ctx context.Context, key string, timeout time.Duration, action func() error) error {
	if timeout <= 0 {
		return fmt.Errorf("pool: submit timeout must be positive, got %s", timeout)
	}

	if err := p.reserve(key); err != nil {
		return err
	}
	defer p.unreserve(key)

	s, err := p.acquire(ctx, key)
	if err != nil {
		return err
	}

	result := make(chan error, 1)
	start := time.Now()
	s.actions <- dispatch{action: action, result: result}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case err := <-result:
		p.release(s)
		return err
	case <-timer.C:
		p.fault(s)
		return &SubmitTimeoutError{Stage: "run", Key: key, Budget: timeout, Elapsed: time.Since(start)}
	case <-ctx.Done():
		p.fault(s)
		return ctx.Err()
	}
}

// Close stops all idle slots. Busy slots stop when their action completes.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, s := range p.idle {
		s.stop()
	}
	p.live -= len(p.idle)
	p.idle = nil
}

// Live reports the number of non-faulted slots, for tests and diagnostics.
func (p *Pool) Live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.live
}

// Idle reports the number of idle slots.
func (p *Pool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle)
}

func (p *Pool) reserve(key string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if _, busy := p.inflight[key]; busy {
		return ErrSessionBusy
	}
	p.inflight[key] = struct{}{}
	return nil
}

func (p *Pool) unreserve(key string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inflight, key)
}

// acquire pops an idle slot, lazily creating one while under the size cap,
// and otherwise blocks — with its own short timeout to bound queuing delay —
// until a slot is released or faulted out.
func (p *Pool) acquire(ctx context.Context, key string) (*slot, error) {
	start := time.Now()
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrClosed
		}
		if n := len(p.idle); n > 0 {
			s := p.idle[n-1]
			p.idle = p.idle[:n-1]
			s.state = slotBusy
			p.mu.Unlock()
			return s, nil
		}
		if p.live < p.size {
			p.nextID++
			s := newSlot(p.nextID)
			s.state = slotBusy
			p.live++
			p.mu.Unlock()
			return s, nil
		}
		p.mu.Unlock()

		select {
		case <-p.released:
		case <-timer.C:
			return nil, &SubmitTimeoutError{Stage: "acquire", Key: key, Budget: p.acquireTimeout, Elapsed: time.Since(start)}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Pool) release(s *slot) {
	p.mu.Lock()
	if p.closed {
		p.live--
		p.mu.Unlock()
		s.stop()
		return
	}
	s.state = slotIdle
	p.idle = append(p.idle, s)
	p.mu.Unlock()
	p.signal()
}

// fault discards a slot whose action timed out or was cancelled. The slot's
// input channel is closed so its goroutine exits once the hung action
// eventually returns; until then the OS thread stays consumed.
func (p *Pool) fault(s *slot) {
	p.mu.Lock()
	s.state = slotFaulted
	p.live--
	p.mu.Unlock()
	s.stop()
	p.signal()
}

func (p *Pool) signal() {
	select {
	case p.released <- struct{}{}:
	default:
	}
}
