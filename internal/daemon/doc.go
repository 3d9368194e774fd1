// Package daemon runs the long-lived callbox process: it holds the
// single-instance lock and serves the HTTP API over the record store and
// processing pipeline.
package daemon
