package tags

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"callbox/internal/config"
	"callbox/internal/records"
	"callbox/internal/services"
)

func newTestManager(t *testing.T) (*Manager, *records.Store) {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return NewManager(store, nil), store
}

func seedRecord(t *testing.T, store *records.Store, id string, tags ...string) {
	t.Helper()
	record := &records.Record{ID: id, Filename: id + ".mp3", Status: records.StatusCompleted, Tags: tags}
	if err := store.Create(context.Background(), record); err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

func TestAddTag(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	seedRecord(t, store, "call-1", "inquiry")

	record, err := manager.Add(ctx, "call-1", "  Complaint ")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	want := []string{"inquiry", "complaint"}
	if !reflect.DeepEqual(record.Tags, want) {
		t.Errorf("tags = %v, want %v", record.Tags, want)
	}

	stored, err := store.GetByID(ctx, "call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(stored.Tags, want) {
		t.Errorf("stored tags = %v, want %v", stored.Tags, want)
	}
}

func TestAddDuplicateTagIsIdempotent(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	seedRecord(t, store, "call-1", "complaint")

	record, err := manager.Add(ctx, "call-1", "COMPLAINT")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !reflect.DeepEqual(record.Tags, []string{"complaint"}) {
		t.Errorf("tags = %v", record.Tags)
	}
	if record.Revision != 1 {
		t.Errorf("duplicate add should not write, revision = %d", record.Revision)
	}
}

func TestAddEmptyTag(t *testing.T) {
	manager, store := newTestManager(t)
	seedRecord(t, store, "call-1")

	_, err := manager.Add(context.Background(), "call-1", "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddToUnknownRecord(t *testing.T) {
	manager, _ := newTestManager(t)

	_, err := manager.Add(context.Background(), "missing", "inquiry")
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestRemoveTag(t *testing.T) {
	manager, store := newTestManager(t)
	ctx := context.Background()
	seedRecord(t, store, "call-1", "inquiry", "complaint")

	record, err := manager.Remove(ctx, "call-1", "INQUIRY")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !reflect.DeepEqual(record.Tags, []string{"complaint"}) {
		t.Errorf("tags = %v", record.Tags)
	}

	stored, err := store.GetByID(ctx, "call-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(stored.Tags, []string{"complaint"}) {
		t.Errorf("stored tags = %v", stored.Tags)
	}
}

func TestRemoveMissingTagIsNoOp(t *testing.T) {
	manager, store := newTestManager(t)
	seedRecord(t, store, "call-1", "inquiry")

	record, err := manager.Remove(context.Background(), "call-1", "voicemail")
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !reflect.DeepEqual(record.Tags, []string{"inquiry"}) {
		t.Errorf("tags = %v", record.Tags)
	}
	if record.Revision != 1 {
		t.Errorf("no-op remove should not write, revision = %d", record.Revision)
	}
}

func TestListAll(t *testing.T) {
	manager, store := newTestManager(t)
	seedRecord(t, store, "call-1", "inquiry", "complaint")
	seedRecord(t, store, "call-2", "inquiry")

	tags, err := manager.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	want := []string{"complaint", "inquiry"}
	if !reflect.DeepEqual(tags, want) {
		t.Errorf("tags = %v, want %v", tags, want)
	}
}
