package services

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapTagsMarker(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(ErrTranscription, "transcribe", "post", "service rejected audio", cause)

	if !errors.Is(err, ErrTranscription) {
		t.Fatalf("expected ErrTranscription marker, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	want := "transcription error: transcribe: post: service rejected audio: boom"
	if err.Error() != want {
		t.Fatalf("unexpected message: got %q, want %q", err.Error(), want)
	}
}

func TestWrapNilMarkerFallsBackToTransient(t *testing.T) {
	err := Wrap(nil, "analyze", "", "", nil)
	if !errors.Is(err, ErrTransient) {
		t.Fatalf("expected ErrTransient fallback, got %v", err)
	}
}

func TestWrapEmptyDetail(t *testing.T) {
	err := Wrap(ErrStorage, "", "", "", nil)
	if err.Error() != fmt.Sprintf("%s: service failure", ErrStorage) {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
