// Package analytics derives per-job durations and per-backend statistics from job records.
//
// Every function here is a pure computation over a snapshot of records: nothing is cached,
// nothing is mutated and malformed input degrades to partial results instead of errors.
// Callers may run the estimators concurrently over the same slice.
package analytics
