package api

import (
	"time"

	"callbox/internal/records"
)

// FromRecord converts a stored record into its API representation.
func FromRecord(record *records.Record) CallRecord {
	view := CallRecord{
		ID:              record.ID,
		Filename:        record.Filename,
		UploadTimestamp: formatTime(record.UploadTimestamp),
		Transcript:      record.Transcript,
		Summary:         record.Summary,
		Tags:            record.Tags,
		Status:          string(record.Status),
		ErrorDetail:     record.ErrorDetail,
		CreatedAt:       formatTime(record.CreatedAt),
		UpdatedAt:       formatTime(record.UpdatedAt),
	}
	if view.Tags == nil {
		view.Tags = []string{}
	}
	return view
}

// FromRecords converts a record slice, preserving order.
func FromRecords(items []*records.Record) []CallRecord {
	out := make([]CallRecord, 0, len(items))
	for _, record := range items {
		out = append(out, FromRecord(record))
	}
	return out
}

func formatTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.UTC().Format(dateTimeFormat)
}
