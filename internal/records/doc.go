// Package records persists call records and their processing lifecycle in
// SQLite. It owns the status state machine, tag normalization, and the
// optimistic-concurrency rules for updates.
package records
