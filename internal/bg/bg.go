// Package bg provides an abstraction for running fetch tasks in the background.
//
// This package lets the discovery engine control its own concurrency
// behavior, switching between bounded asynchronous execution (production)
// and synchronous execution (debugging, deterministic tests) without
// changing the code that schedules tasks.
package bg

// Runner executes tasks, either synchronously or asynchronously.
//
// A Runner is single-use: schedule tasks with Go, then call Wait once to
// block until every scheduled task has returned.
type Runner interface {
	// Go schedules fn. It may block while the runner is at its concurrency limit.
	Go(fn func())
	// Wait blocks until every task scheduled with Go has returned.
	Wait()
}

// Factory builds a fresh Runner allowing at most limit tasks in flight.
type Factory func(limit int) Runner
