package storage

// Package storage persists finished run summaries.
//
// It currently supports:
//   - Append-only run history (one record per completed measurement)
//   - Recent-run queries for the history listing
