package middleware

import (
	"context"
	"sync"

	"github.com/rise-and-shine/cmdbus/command"
)

// Locking makes nested dispatches sequential. A command dispatched with the context of a
// command that is still running through a Locking middleware is queued instead of
// executed. Its dispatch returns a nil result immediately, and it runs after the outer
// command finishes, in the order it was queued. If the outer command or any queued command
// fails, the rest of the queue is dropped and the error is returned to the outer caller.
//
// Queued commands run with the context the outer command entered Locking with, so the
// middleware after Locking sets up a fresh deadline, transaction and span for each of them.
//
// Commands dispatched with unrelated contexts, e.g. from other goroutines, are not affected.
type Locking struct{}

func NewLocking() *Locking {
	return &Locking{}
}

type lockingKey struct{}

type pending struct {
	cmd  any
	next command.Next
}

type lockQueue struct {
	ctx   context.Context //nolint:containedctx // queued work runs with the outer command's context
	mu    sync.Mutex
	items []pending
}

func (q *lockQueue) push(p pending) {
	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()
}

func (q *lockQueue) pop() (pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return pending{}, false
	}
	p := q.items[0]
	q.items = q.items[1:]
	return p, true
}

func (q *lockQueue) clear() {
	q.mu.Lock()
	q.items = nil
	q.mu.Unlock()
}

func (*Locking) Execute(ctx context.Context, cmd any, next command.Next) (any, error) {
	if q, ok := ctx.Value(lockingKey{}).(*lockQueue); ok {
		q.push(pending{cmd: cmd, next: next})
		return nil, nil //nolint:nilnil // queued commands have no result yet
	}

	q := &lockQueue{}
	ctx = context.WithValue(ctx, lockingKey{}, q)
	q.ctx = ctx

	result, err := next(ctx, cmd)
	if err != nil {
		q.clear()
		return nil, err
	}

	for p, ok := q.pop(); ok; p, ok = q.pop() {
		if _, err := p.next(q.ctx, p.cmd); err != nil {
			q.clear()
			return nil, err
		}
	}

	return result, nil
}
