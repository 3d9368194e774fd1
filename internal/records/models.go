package records

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a call record.
type Status string

const (
	StatusUploaded         Status = "uploaded"
	StatusNormalizing      Status = "normalizing"
	StatusTranscribing     Status = "transcribing"
	StatusAnalyzing        Status = "analyzing"
	StatusCompleted        Status = "completed"
	StatusCompletedPartial Status = "completed_partial"
	StatusFailed           Status = "failed"
)

var allStatuses = []Status{
	StatusUploaded,
	StatusNormalizing,
	StatusTranscribing,
	StatusAnalyzing,
	StatusCompleted,
	StatusCompletedPartial,
	StatusFailed,
}

var statusRank = func() map[Status]int {
	ranks := make(map[Status]int, len(allStatuses))
	for i, status := range allStatuses {
		ranks[status] = i
	}
	return ranks
}()

var processingStatuses = map[Status]struct{}{
	StatusNormalizing:  {},
	StatusTranscribing: {},
	StatusAnalyzing:    {},
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusRank[normalized]
	return normalized, ok
}

// IsTerminal reports whether a status ends the pipeline for a record.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusCompletedPartial, StatusFailed:
		return true
	default:
		return false
	}
}

// IsProcessing reports whether a status reflects an in-flight pipeline stage.
func (s Status) IsProcessing() bool {
	_, ok := processingStatuses[s]
	return ok
}

// CanTransition reports whether a record may move from s to next. Statuses
// only move forward through the lifecycle; any non-terminal status may jump
// directly to failed.
func (s Status) CanTransition(next Status) bool {
	fromRank, fromOK := statusRank[s]
	toRank, toOK := statusRank[next]
	if !fromOK || !toOK {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	return toRank > fromRank
}

// Record is one uploaded audio file and its derived artifacts.
type Record struct {
	ID              string
	Filename        string
	UploadTimestamp time.Time
	AudioPath       string
	// Transcript is nil until the transcription stage completes. An empty
	// non-nil transcript is a valid result (silence).
	Transcript  *string
	Summary     string
	Tags        []string
	Status      Status
	ErrorDetail string
	Checksum    string
	// Revision guards concurrent updates: Store.Update only applies when the
	// stored revision matches, then increments it.
	Revision  int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TranscriptText returns the transcript or empty string when unset.
func (r *Record) TranscriptText() string {
	if r.Transcript == nil {
		return ""
	}
	return *r.Transcript
}

// SetTranscript records the transcription result.
func (r *Record) SetTranscript(text string) {
	r.Transcript = &text
}

// SetFailed marks the record failed with a human-readable reason.
func (r *Record) SetFailed(detail string) {
	r.Status = StatusFailed
	r.ErrorDetail = detail
}
