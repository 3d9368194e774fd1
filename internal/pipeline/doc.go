// Package pipeline orchestrates call processing: upload validation,
// duplicate detection, audio normalization, transcription, and transcript
// analysis, with every status transition persisted to the record store.
package pipeline
