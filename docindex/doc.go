// Package docindex provides the full-text document index and the task
// bodies built on it: scanning a directory into the index, indexing
// inline documents and query-string search.
package docindex
