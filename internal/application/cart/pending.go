package cart

import (
	"context"

	"github.com/bookstore/storefront/internal/domain/cart"
)

// Pending is a cart command whose optimistic change is already applied and
// whose remote call may still be running.
type Pending struct {
	op   cart.Operation
	done chan struct{}
	err  error
}

func newPending(op cart.Operation) *Pending {
	return &Pending{op: op, done: make(chan struct{})}
}

// resolved returns a Pending that needed no remote call
func resolved(op cart.Operation) *Pending {
	p := newPending(op)
	p.resolve(nil)
	return p
}

func (p *Pending) resolve(err error) {
	p.err = err
	close(p.done)
}

// Operation returns the command this Pending belongs to
func (p *Pending) Operation() cart.Operation {
	return p.op
}

// Done is closed once the remote call has resolved
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the remote call resolves and returns its error
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// WaitContext is Wait bounded by ctx. Giving up does not cancel the remote
// call or its rollback.
func (p *Pending) WaitContext(ctx context.Context) error {
	select {
	case <-p.done:
		return p.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
