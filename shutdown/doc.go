// Package shutdown coordinates graceful process termination. Components
// register handlers at phases; at shutdown, phases run lowest first and
// handlers within a phase run concurrently. The manager process uses
// three phases: stop task intake, drain workers through the poison
// sentinel, then close the bus, queue and store.
package shutdown
