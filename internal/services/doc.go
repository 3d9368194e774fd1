// Package services holds shared plumbing for external-service clients: error
// classification markers, context annotation helpers, and the bounded retry
// combinator used around network calls.
package services
