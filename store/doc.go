// Package store provides the durable key-value map that task records live
// in. Keys are task ids; values are serialized task records.
//
// Two backends are provided: NATSStore over a JetStream KV bucket, where
// records survive client restarts, and MemoryStore for tests and
// single-process use.
package store
