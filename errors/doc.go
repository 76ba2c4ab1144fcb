// Package errors provides a structured error taxonomy for the task layer.
// It distinguishes the failure classes that callers must treat differently:
// transient bus/store disruptions, programming-contract violations and
// rejected administrative operations, fatal startup failures, and internal
// faults.
//
// # Error Categories
//
// Errors are classified into four categories:
//
//   - Transient: temporary failures where retry may succeed (broker hiccup, I/O)
//   - Permanent: failures where retry will not help (unknown task, not permitted)
//   - Fatal: failures the process cannot recover from (initial connection, config)
//   - Internal: unexpected errors indicating bugs or corrupted data
//
// # Usage
//
// Create a new error:
//
//	err := errors.UnknownChannel("tasks")
//
// Wrap an existing error with context:
//
//	wrapped := errors.Wrap(err, "publishing cancel request")
//
// Check the code of an error chain:
//
//	if errors.Is(err, errors.ErrCodeNotPermitted) {
//	    // reject, do not crash
//	}
//
// # JSON Serialization
//
// Errors serialize to JSON so a worker-side failure can cross the event
// bus and be rebuilt on the manager side:
//
//	data, _ := json.Marshal(taskErr)
//	var back errors.Error
//	json.Unmarshal(data, &back)
package errors
