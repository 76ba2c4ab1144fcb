// Package worker runs task bodies. A Runner pulls one task at a time
// from the shared work queue, builds its body through a Factory of
// name-to-builder bindings, and reports progress and outcomes as events
// on the shared topic. Cancellation is cooperative: the runner observes
// Cancel requests for its in-flight task, stops the body through its
// context and acknowledges with a Canceled event.
//
// The poison sentinel on the work queue makes exactly one blocked runner
// exit its loop, which is how orderly shutdown works without draining
// the queue.
package worker
