package bg

// Sync is a Runner that executes tasks synchronously in the calling goroutine.
//
// This is the debug mode: each Go call blocks until the task completes,
// so tasks run one at a time in scheduling order.
type Sync struct{}

// Go executes fn immediately in the current goroutine.
func (Sync) Go(fn func()) {
	fn()
}

// Wait returns immediately; every task has already run.
func (Sync) Wait() {}

// SyncFactory is the Factory for Sync runners. The limit is ignored.
func SyncFactory(int) Runner {
	return Sync{}
}
