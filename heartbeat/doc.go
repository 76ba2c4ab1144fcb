// Package heartbeat provides worker liveness tracking. Each worker runs
// a Sender publishing periodic heartbeats on a shared topic; the manager
// process runs a Monitor that tracks last-seen times and reports workers
// whose heartbeats stop, so stuck tasks can be investigated or
// cancelled.
package heartbeat
