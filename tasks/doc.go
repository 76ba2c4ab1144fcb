// Package tasks provides the durable task registry and the manager
// facade the resource layer calls.
//
// A Task record lives in the shared store keyed by id; pending work
// additionally sits on the shared queue. The Manager is the single
// writer of persisted state: callers mutate through its methods, and
// everything else arrives as events on the shared topic that the
// manager's listener applies idempotently. Terminal states (DONE, ERROR,
// CANCELLED without requeue) never change again.
//
// Shutdown uses a poison sentinel: a distinguished record pushed onto
// the work queue that wakes exactly one blocked worker and tells it to
// exit, without draining the queue first.
package tasks
