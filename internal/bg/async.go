package bg

import "golang.org/x/sync/errgroup"

// Bounded is a Runner that executes each task in its own goroutine, with at
// most limit tasks in flight.
//
// This is the production mode. Tasks report their outcome through their own
// result slot, so the group never carries an error.
type Bounded struct {
	group errgroup.Group
}

// NewBounded returns a Bounded runner. A limit below 1 means unbounded.
func NewBounded(limit int) *Bounded {
	b := &Bounded{}
	if limit > 0 {
		b.group.SetLimit(limit)
	}
	return b
}

// Go runs fn in a new goroutine, blocking while limit tasks are running.
func (b *Bounded) Go(fn func()) {
	b.group.Go(func() error {
		fn()
		return nil
	})
}

// Wait blocks until all tasks have returned.
func (b *Bounded) Wait() {
	_ = b.group.Wait()
}

// BoundedFactory is the Factory for Bounded runners.
func BoundedFactory(limit int) Runner {
	return NewBounded(limit)
}
