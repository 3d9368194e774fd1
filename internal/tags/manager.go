// Package tags manages manual tag curation on stored call records.
package tags

import (
	"context"
	"log/slog"

	"callbox/internal/logging"
	"callbox/internal/records"
	"callbox/internal/services"
)

// Manager applies tag additions and removals to call records. Tags are
// normalized to a case-folded form before they touch storage, so lookups and
// duplicates are case-insensitive.
type Manager struct {
	store  *records.Store
	logger *slog.Logger
}

// NewManager builds a tag manager over the record store.
func NewManager(store *records.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Manager{
		store:  store,
		logger: logging.NewComponentLogger(logger, "tags"),
	}
}

// Add attaches a tag to the record and returns the updated record. Adding a
// tag the record already carries is a no-op.
func (m *Manager) Add(ctx context.Context, id, tag string) (*records.Record, error) {
	normalized := records.NormalizeTag(tag)
	if normalized == "" {
		return nil, services.Wrap(services.ErrValidation, "tags", "add", "tag must not be empty", nil)
	}

	record, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if records.HasTag(record.Tags, normalized) {
		return record, nil
	}

	record.Tags = records.MergeTags(record.Tags, normalized)
	if err := m.store.Update(ctx, record); err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "tag added",
		logging.String(logging.FieldCallID, id),
		logging.String("tag", normalized))
	return record, nil
}

// Remove detaches a tag from the record and returns the updated record.
// Removing a tag the record does not carry is a no-op.
func (m *Manager) Remove(ctx context.Context, id, tag string) (*records.Record, error) {
	normalized := records.NormalizeTag(tag)
	if normalized == "" {
		return nil, services.Wrap(services.ErrValidation, "tags", "remove", "tag must not be empty", nil)
	}

	record, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	remaining, removed := records.RemoveTag(record.Tags, normalized)
	if !removed {
		return record, nil
	}

	record.Tags = remaining
	if err := m.store.Update(ctx, record); err != nil {
		return nil, err
	}
	m.logger.InfoContext(ctx, "tag removed",
		logging.String(logging.FieldCallID, id),
		logging.String("tag", normalized))
	return record, nil
}

// ListAll returns every distinct tag in use, sorted.
func (m *Manager) ListAll(ctx context.Context) ([]string, error) {
	return m.store.DistinctTags(ctx)
}
