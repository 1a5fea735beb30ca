// Package query answers questions over the mailbox index with
// retrieval-augmented generation.
package query
