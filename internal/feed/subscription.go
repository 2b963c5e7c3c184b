package feed

import (
	"context"
	"sync"
)

// Pump serializes delivery for one subscription and enforces the Close
// guarantee. Store implementations run their watch loop on Context() and
// push through Deliver/Fail.
type Pump struct {
	mu     sync.Mutex
	closed bool
	failed bool
	h      Handler
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPump creates a pump whose context is derived from parent.
func NewPump(parent context.Context, h Handler) *Pump {
	ctx, cancel := context.WithCancel(parent)
	return &Pump{h: h, ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Context is cancelled when the subscription is closed.
func (p *Pump) Context() context.Context { return p.ctx }

// Deliver hands a snapshot to the handler unless the subscription has been
// closed or has failed. It returns false once nothing more will be delivered.
func (p *Pump) Deliver(msgs []Message) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.failed {
		return false
	}
	if p.h.OnSnapshot != nil {
		p.h.OnSnapshot(msgs)
	}
	return true
}

// Fail reports err to the handler once and stops further delivery.
func (p *Pump) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.failed {
		return
	}
	p.failed = true
	if p.h.OnError != nil {
		p.h.OnError(err)
	}
}

// Go runs the watch loop and marks the pump finished when it returns.
func (p *Pump) Go(loop func(ctx context.Context)) {
	go func() {
		defer close(p.done)
		loop(p.ctx)
	}()
}

// Close implements Subscription.
func (p *Pump) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
}

// Done is closed when the watch loop started with Go has returned.
func (p *Pump) Done() <-chan struct{} { return p.done }
