package pool

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// slotState is the lifecycle of one worker slot. faulted is terminal: a slot
// that timed out may still be running a hung action on its thread, so it is
// discarded rather than trusted to come back.
type slotState int

const (
	slotIdle slotState = iota
	slotBusy
	slotFaulted
)

// PanicError carries a panic raised inside a dispatched action back to the
// caller, preserving the worker's stack.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("action panicked on worker thread: %v\n%s", e.Value, e.Stack)
}

// slot is one reusable worker. Its goroutine locks itself to an OS thread on
// start, so every action dispatched to the same slot observes the same
// thread — the Go rendering of a single-apartment affinity context. State
// accumulated by a prior action on that thread is a known risk; the pool
// promises slot replacement on fault, not pristine threads.
type slot struct {
	id      int
	actions chan dispatch
	state   slotState
}

type dispatch struct {
	action func() error
	result chan<- error
}

func newSlot(id int) *slot {
	s := &slot{
		id:      id,
		actions: make(chan dispatch),
		state:   slotIdle,
	}
	go s.run()
	return s
}

func (s *slot) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	for d := range s.actions {
		d.result <- runGuarded(d.action)
	}
}

// runGuarded executes the action, converting a panic into a PanicError so it
// can be re-raised on the caller's side instead of killing the worker.
func runGuarded(action func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return action()
}

// stop closes the slot's input channel, letting its goroutine exit once any
// in-flight action returns.
func (s *slot) stop() {
	close(s.actions)
}
