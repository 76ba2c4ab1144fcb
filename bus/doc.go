// Package bus provides the message channel layer between task managers and
// workers.
//
// One Bus wraps a single broker connection. Publish channels are opened
// explicitly per logical queue and kept in a table; publishing on a queue
// without an open channel fails with an UNKNOWN_CHANNEL error rather than
// being silently dropped. Consumer channels carry a sequential consumer
// number, a bounded in-flight buffer, and dead-letter forwarding for
// messages a consumer cannot keep up with.
//
// Two backends are provided: NATSBus for production over a NATS broker,
// and MemoryBus for tests and single-process use.
package bus
