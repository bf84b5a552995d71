// Package identity coordinates at-most-once materialization of shared
// configuration objects within a single load operation. It provides a
// write-once promise and a key-to-promise registry with atomic
// register-if-absent semantics.
package identity

import "sync"

// Promise is a write-once result cell. The owner settles it exactly once
// with Fulfill or Fail; any number of waiters block in Wait until then.
// Settling an already settled promise is a no-op, so an owner that both
// records a failure and later panics cannot corrupt the cell.
type Promise struct {
	once sync.Once
	done chan struct{}
	val  any
	err  error
}

// NewPromise creates an unsettled promise.
func NewPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Fulfill settles the promise with a value.
func (p *Promise) Fulfill(val any) {
	p.once.Do(func() {
		p.val = val
		close(p.done)
	})
}

// Fail settles the promise with the owner's failure. Waiters receive this
// exact error value, not a wrapper around it.
func (p *Promise) Fail(err error) {
	p.once.Do(func() {
		p.err = err
		close(p.done)
	})
}

// Wait blocks until the promise settles and returns the recorded outcome.
// There is no timeout: a waiter is committed until the owner finishes.
func (p *Promise) Wait() (any, error) {
	<-p.done
	return p.val, p.err
}

// Settled reports whether the promise has already been fulfilled or failed,
// without blocking.
func (p *Promise) Settled() bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
