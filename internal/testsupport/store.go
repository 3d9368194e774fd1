package testsupport

import (
	"context"
	"testing"

	"callbox/internal/config"
	"callbox/internal/records"
)

// MustOpenStore opens a records.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *records.Store {
	t.Helper()

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("records.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewCall creates a call record for tests using the provided store.
func NewCall(t testing.TB, store *records.Store, id string, status records.Status, tags ...string) *records.Record {
	t.Helper()

	record := &records.Record{
		ID:       id,
		Filename: id + ".mp3",
		Status:   status,
		Tags:     tags,
	}
	if err := store.Create(context.Background(), record); err != nil {
		t.Fatalf("store.Create: %v", err)
	}
	return record
}
