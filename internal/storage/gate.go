package storage

import "context"

// Gate is the one-shot result of a migration. It resolves exactly once and
// any number of goroutines may wait on it.
type Gate struct {
	done chan struct{}
	err  error
}

var resolved = func() *Gate {
	g := &Gate{done: make(chan struct{})}
	close(g.done)
	return g
}()

// Resolved returns a gate that never blocks and never fails.
func Resolved() *Gate {
	return resolved
}

// Start runs fn in its own goroutine and returns a gate that resolves with
// its error once it returns.
func Start(fn func() error) *Gate {
	g := &Gate{done: make(chan struct{})}
	go func() {
		defer close(g.done)
		g.err = fn()
	}()
	return g
}

// Wait blocks until the gate resolves or ctx is done. Giving up on ctx does
// not stop the underlying work.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.done:
		return g.err
	default:
	}
	select {
	case <-g.done:
		return g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once the gate has resolved.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}
