// Package queue provides the durable task queue that managers push
// serialized task records onto and workers poll from. Delivery is
// at-least-once and each element goes to exactly one poller.
//
// Two backends are provided: NATSQueue over a JetStream work-queue
// stream, where pending elements survive client restarts, and
// MemoryQueue for tests and single-process use.
package queue
