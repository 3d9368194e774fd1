package testsupport

import (
	"context"
	"os"
	"path/filepath"

	"callbox/internal/normalizer"
	"callbox/internal/services/chat"
)

// StubNormalizer writes a placeholder MP3 artifact instead of running ffmpeg.
type StubNormalizer struct {
	AudioDir string
	Err      error
	LastID   string
}

func (s *StubNormalizer) Normalize(ctx context.Context, id, source string) (normalizer.Result, error) {
	s.LastID = id
	if s.Err != nil {
		return normalizer.Result{}, s.Err
	}
	if err := os.MkdirAll(s.AudioDir, 0o755); err != nil {
		return normalizer.Result{}, err
	}
	path := filepath.Join(s.AudioDir, id+".mp3")
	if err := os.WriteFile(path, []byte("normalized audio"), 0o644); err != nil {
		return normalizer.Result{}, err
	}
	return normalizer.Result{Path: path, DurationSeconds: 1}, nil
}

// StubTranscriber returns a canned transcript.
type StubTranscriber struct {
	Text string
	Err  error
}

func (s *StubTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if s.Err != nil {
		return "", s.Err
	}
	return s.Text, nil
}

// StubAnalyzer returns a canned analysis.
type StubAnalyzer struct {
	Analysis chat.Analysis
	Err      error
	Called   bool
}

func (s *StubAnalyzer) Analyze(ctx context.Context, transcript string) (chat.Analysis, error) {
	s.Called = true
	if s.Err != nil {
		return chat.Analysis{}, s.Err
	}
	return s.Analysis, nil
}
