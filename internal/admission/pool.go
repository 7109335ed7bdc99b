package admission

import "context"

// Pool is a channel-backed semaphore of fixed capacity.
type Pool struct {
	sem chan struct{}
}

// NewPool creates a Pool that allows at most max concurrent holders.
func NewPool(max int) *Pool {
	return &Pool{sem: make(chan struct{}, max)}
}

// Acquire blocks until a slot is free or ctx is done. On success it returns
// a release function that must be called exactly once.
func (p *Pool) Acquire(ctx context.Context) (release func(), ok bool) {
	select {
	case p.sem <- struct{}{}:
		return func() { <-p.sem }, true
	case <-ctx.Done():
		return nil, false
	}
}
