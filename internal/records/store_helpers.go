package records

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

const recordColumns = `id, filename, upload_timestamp, audio_path, transcript, summary,
    tags_json, status, error_detail, checksum, revision, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		record          Record
		uploadTimestamp string
		audioPath       sql.NullString
		transcript      sql.NullString
		summary         sql.NullString
		tagsJSON        string
		status          string
		errorDetail     sql.NullString
		checksum        sql.NullString
		createdAt       string
		updatedAt       string
	)

	err := row.Scan(
		&record.ID,
		&record.Filename,
		&uploadTimestamp,
		&audioPath,
		&transcript,
		&summary,
		&tagsJSON,
		&status,
		&errorDetail,
		&checksum,
		&record.Revision,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.UploadTimestamp, err = parseTimeString(uploadTimestamp)
	if err != nil {
		return nil, fmt.Errorf("parse upload timestamp: %w", err)
	}
	record.CreatedAt, err = parseTimeString(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	record.UpdatedAt, err = parseTimeString(updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}

	record.AudioPath = audioPath.String
	record.Summary = summary.String
	record.ErrorDetail = errorDetail.String
	record.Checksum = checksum.String
	record.Status = Status(status)
	if transcript.Valid {
		value := transcript.String
		record.Transcript = &value
	}

	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &record.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}

	return &record, nil
}

func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(data), nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableStringPtr(value *string) any {
	if value == nil {
		return nil
	}
	return *value
}

func parseTimeString(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported time format %q", value)
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}

func sortStrings(values []string) {
	sort.Strings(values)
}
