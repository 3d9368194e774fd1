package services

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers for error classification. Wrap tags errors with one of
// these so callers can route failures with errors.Is instead of string
// matching.
var (
	// ErrValidation covers bad client input rejected before any record or
	// external call exists.
	ErrValidation = errors.New("validation error")
	// ErrDuplicate marks an upload whose bytes match an existing record.
	ErrDuplicate = errors.New("duplicate upload")
	// ErrNormalization marks unreadable or corrupt audio input.
	ErrNormalization = errors.New("normalization error")
	// ErrTranscription marks an exhausted or rejected speech-to-text call.
	ErrTranscription = errors.New("transcription error")
	// ErrAnalysis marks a failed or unparseable text-analysis response.
	ErrAnalysis = errors.New("analysis error")
	// ErrNotFound marks lookups for unknown record identifiers.
	ErrNotFound = errors.New("not found")
	// ErrStorage marks durable read/write failures, including lost-update
	// conflicts.
	ErrStorage = errors.New("storage error")
	// ErrTransient marks retryable external-service failures.
	ErrTransient = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
