package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"callbox/internal/config"
	"callbox/internal/services"
)

// SortOrder controls list ordering over upload timestamps.
type SortOrder string

const (
	SortNewest SortOrder = "newest"
	SortOldest SortOrder = "oldest"
)

// ParseSortOrder converts a string into a known SortOrder. Empty input maps
// to SortNewest.
func ParseSortOrder(value string) (SortOrder, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(SortNewest):
		return SortNewest, true
	case string(SortOldest):
		return SortOldest, true
	default:
		return "", false
	}
}

// ListOptions filters and orders List results.
type ListOptions struct {
	// Tag filters records to those carrying a case-insensitive exact match.
	Tag  string
	Sort SortOrder
}

// Store manages call record persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the call record database and applies
// migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.StorePath()
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new record. The caller supplies the id; timestamps and the
// initial revision are set here.
func (s *Store) Create(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("record is nil")
	}
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("record id is required")
	}

	now := time.Now().UTC()
	if record.UploadTimestamp.IsZero() {
		record.UploadTimestamp = now
	}
	record.CreatedAt = now
	record.UpdatedAt = now
	record.Revision = 1
	if record.Status == "" {
		record.Status = StatusUploaded
	}

	tagsJSON, err := marshalTags(record.Tags)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO call_records (
            id, filename, upload_timestamp, audio_path, transcript, summary,
            tags_json, status, error_detail, checksum, revision, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.Filename,
		record.UploadTimestamp.Format(time.RFC3339Nano),
		nullableString(record.AudioPath),
		nullableStringPtr(record.Transcript),
		nullableString(record.Summary),
		tagsJSON,
		record.Status,
		nullableString(record.ErrorDetail),
		nullableString(record.Checksum),
		record.Revision,
		record.CreatedAt.Format(time.RFC3339Nano),
		record.UpdatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "create", record.ID, err)
	}
	return nil
}

// GetByID fetches a record by identifier.
func (s *Store) GetByID(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM call_records WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, services.Wrap(services.ErrNotFound, "store", "get", id, nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "get", id, err)
	}
	return record, nil
}

// FindByChecksum returns the first record matching an upload checksum, or nil
// when none exists.
func (s *Store) FindByChecksum(ctx context.Context, checksum string) (*Record, error) {
	if strings.TrimSpace(checksum) == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM call_records WHERE checksum = ? ORDER BY created_at LIMIT 1`,
		checksum,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "find by checksum", "", err)
	}
	return record, nil
}

// Update persists changes to an existing record. The update only applies when
// the caller's revision matches the stored row, protecting against lost
// updates; on success the record's revision is incremented.
func (s *Store) Update(ctx context.Context, record *Record) error {
	if record == nil {
		return errors.New("record is nil")
	}

	tagsJSON, err := marshalTags(record.Tags)
	if err != nil {
		return err
	}

	record.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE call_records
         SET filename = ?, audio_path = ?, transcript = ?, summary = ?,
             tags_json = ?, status = ?, error_detail = ?, checksum = ?,
             revision = revision + 1, updated_at = ?
         WHERE id = ? AND revision = ?`,
		record.Filename,
		nullableString(record.AudioPath),
		nullableStringPtr(record.Transcript),
		nullableString(record.Summary),
		tagsJSON,
		record.Status,
		nullableString(record.ErrorDetail),
		nullableString(record.Checksum),
		record.UpdatedAt.Format(time.RFC3339Nano),
		record.ID,
		record.Revision,
	)
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "update", record.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return services.Wrap(services.ErrStorage, "store", "update", record.ID, err)
	}
	if affected == 0 {
		if _, getErr := s.GetByID(ctx, record.ID); getErr != nil {
			return getErr
		}
		return services.Wrap(services.ErrStorage, "store", "update", fmt.Sprintf("%s: revision conflict", record.ID), nil)
	}
	record.Revision++
	return nil
}

// List returns records matching the options. Newest sorts by upload timestamp
// descending, oldest ascending; ties break on id so repeated calls return a
// stable order.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM call_records`
	var args []any

	if tag := NormalizeTag(opts.Tag); tag != "" {
		// Stored tags are already normalized, so a quoted JSON substring
		// match is an exact, case-insensitive tag match.
		query += ` WHERE tags_json LIKE ? ESCAPE '\'`
		args = append(args, `%"`+escapeLike(tag)+`"%`)
	}

	switch opts.Sort {
	case SortOldest:
		query += ` ORDER BY upload_timestamp ASC, id ASC`
	default:
		query += ` ORDER BY upload_timestamp DESC, id DESC`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "list", "", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, services.Wrap(services.ErrStorage, "store", "list", "scan", err)
		}
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "list", "iterate", err)
	}
	return out, nil
}

// FailInterrupted marks every record stranded in a processing status as
// failed with the given detail. Processing statuses only exist while a
// pipeline run is in flight, so after a restart they can only mean the
// previous process died mid-stage. Returns how many records were recovered.
func (s *Store) FailInterrupted(ctx context.Context, detail string) (int, error) {
	all, err := s.List(ctx, ListOptions{})
	if err != nil {
		return 0, err
	}

	recovered := 0
	for _, record := range all {
		if !record.Status.IsProcessing() {
			continue
		}
		record.SetFailed(detail)
		if err := s.Update(ctx, record); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

// DistinctTags returns the sorted union of all tags across records.
func (s *Store) DistinctTags(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT tags_json FROM call_records WHERE tags_json != '[]'`)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "distinct tags", "", err)
	}
	defer rows.Close()

	seen := map[string]struct{}{}
	for rows.Next() {
		var tagsJSON string
		if err := rows.Scan(&tagsJSON); err != nil {
			return nil, services.Wrap(services.ErrStorage, "store", "distinct tags", "scan", err)
		}
		var tags []string
		if err := json.Unmarshal([]byte(tagsJSON), &tags); err != nil {
			continue
		}
		for _, tag := range tags {
			seen[tag] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "distinct tags", "iterate", err)
	}

	out := make([]string, 0, len(seen))
	for tag := range seen {
		out = append(out, tag)
	}
	sortStrings(out)
	return out, nil
}

// CountByStatus returns record counts keyed by status. Every known status is
// present, zero-valued when no record carries it.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM call_records GROUP BY status`)
	if err != nil {
		return nil, services.Wrap(services.ErrStorage, "store", "count by status", "", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(allStatuses))
	for _, status := range AllStatuses() {
		counts[status] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, services.Wrap(services.ErrStorage, "store", "count by status", "scan", err)
		}
		counts[Status(status)] = count
	}
	return counts, rows.Err()
}
