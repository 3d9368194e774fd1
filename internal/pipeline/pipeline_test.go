package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"callbox/internal/config"
	"callbox/internal/normalizer"
	"callbox/internal/records"
	"callbox/internal/services"
	"callbox/internal/services/chat"
)

type fakeNormalizer struct {
	err      error
	lastID   string
	audioDir string
}

func (f *fakeNormalizer) Normalize(ctx context.Context, id, source string) (normalizer.Result, error) {
	f.lastID = id
	if f.err != nil {
		return normalizer.Result{}, f.err
	}
	path := filepath.Join(f.audioDir, id+".mp3")
	if err := os.WriteFile(path, []byte("normalized"), 0o644); err != nil {
		return normalizer.Result{}, err
	}
	return normalizer.Result{Path: path, DurationSeconds: 4.2}, nil
}

type fakeTranscriber struct {
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return f.text, f.err
}

type fakeAnalyzer struct {
	analysis chat.Analysis
	err      error
	called   bool
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, transcript string) (chat.Analysis, error) {
	f.called = true
	if f.err != nil {
		return chat.Analysis{}, f.err
	}
	return f.analysis, nil
}

type fixture struct {
	cfg         *config.Config
	store       *records.Store
	normalizer  *fakeNormalizer
	transcriber *fakeTranscriber
	analyzer    *fakeAnalyzer
	orch        *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dir := t.TempDir()
	cfg := &config.Config{}
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Upload.MaxSizeMiB = 1
	cfg.Upload.AllowedExtensions = []string{".wav", ".mp3", ".mpeg"}

	store, err := records.Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	f := &fixture{
		cfg:         cfg,
		store:       store,
		normalizer:  &fakeNormalizer{audioDir: cfg.AudioDir()},
		transcriber: &fakeTranscriber{text: "hello from the caller"},
		analyzer: &fakeAnalyzer{analysis: chat.Analysis{
			Summary: "Caller said hello.",
			Tags:    []string{"inquiry"},
		}},
	}
	f.orch = New(cfg, store, f.normalizer, f.transcriber, f.analyzer, nil)
	return f
}

func (f *fixture) ingest(t *testing.T, filename, content string) (*records.Record, error) {
	t.Helper()
	return f.orch.Ingest(context.Background(), filename, strings.NewReader(content))
}

// useRealNormalizer swaps the stub for the ffmpeg-backed normalizer with a
// recording command runner, so ingest exercises the spool file end to end.
// Transcode invocations write their destination; other invocations return a
// probe-style duration.
func (f *fixture) useRealNormalizer(t *testing.T) *[][]string {
	t.Helper()
	f.cfg.FFmpeg.Binary = "ffmpeg"
	f.cfg.FFmpeg.ProbeBinary = "ffprobe"
	f.cfg.FFmpeg.BitrateKbps = 96

	var commands [][]string
	norm := normalizer.New(f.cfg)
	norm.WithCommandRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		commands = append(commands, append([]string{name}, args...))
		if name == "ffmpeg" && len(args) > 0 && args[len(args)-1] != "-" {
			if err := os.WriteFile(args[len(args)-1], []byte("transcoded"), 0o644); err != nil {
				return nil, err
			}
		}
		return []byte("3.2\n"), nil
	})
	f.orch = New(f.cfg, f.store, norm, f.transcriber, f.analyzer, nil)
	return &commands
}

// sourceArg returns the value following ffmpeg's -i flag.
func sourceArg(cmd []string) string {
	for i, arg := range cmd {
		if arg == "-i" && i+1 < len(cmd) {
			return cmd[i+1]
		}
	}
	return ""
}

func TestIngestStoresMP3UploadWithoutReencode(t *testing.T) {
	f := newFixture(t)
	commands := f.useRealNormalizer(t)

	record, err := f.ingest(t, "voicemail.mp3", "mpeg audio frames")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if record.Status != records.StatusCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}

	var sawDecodeCheck bool
	for _, cmd := range *commands {
		line := strings.Join(cmd, " ")
		if strings.Contains(line, "libmp3lame") {
			t.Fatalf("mp3 upload was re-encoded: %s", line)
		}
		if cmd[0] == "ffmpeg" && strings.Contains(line, "-f null") {
			sawDecodeCheck = true
			if src := sourceArg(cmd); !strings.HasSuffix(src, ".mp3") {
				t.Errorf("decode check read %q, want an .mp3 spool file", src)
			}
		}
	}
	if !sawDecodeCheck {
		t.Error("decode check never ran")
	}

	data, readErr := os.ReadFile(record.AudioPath)
	if readErr != nil {
		t.Fatalf("read artifact: %v", readErr)
	}
	if string(data) != "mpeg audio frames" {
		t.Errorf("artifact = %q, want the upload bytes stored as-is", data)
	}
}

func TestIngestTranscodesWavUpload(t *testing.T) {
	f := newFixture(t)
	commands := f.useRealNormalizer(t)

	record, err := f.ingest(t, "memo.wav", "riff wav bytes")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if record.Status != records.StatusCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}

	var sawTranscode bool
	for _, cmd := range *commands {
		if strings.Contains(strings.Join(cmd, " "), "libmp3lame") {
			sawTranscode = true
			if src := sourceArg(cmd); !strings.HasSuffix(src, ".wav") {
				t.Errorf("transcode read %q, want the .wav spool file", src)
			}
		}
	}
	if !sawTranscode {
		t.Error("wav upload was not transcoded")
	}
}

func TestIngestCompletesHappyPath(t *testing.T) {
	f := newFixture(t)

	record, err := f.ingest(t, "sales_call.wav", "wav audio bytes")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if record.Status != records.StatusCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}
	if record.Filename != "sales_call.mp3" {
		t.Errorf("filename = %q, want sales_call.mp3", record.Filename)
	}
	if record.Summary != "Caller said hello." {
		t.Errorf("summary = %q", record.Summary)
	}
	if len(record.Tags) != 1 || record.Tags[0] != "inquiry" {
		t.Errorf("tags = %v", record.Tags)
	}
	if record.TranscriptText() != "hello from the caller" {
		t.Errorf("transcript = %q", record.TranscriptText())
	}
	if record.Checksum == "" {
		t.Error("checksum not recorded")
	}

	stored, err := f.store.GetByID(context.Background(), record.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != records.StatusCompleted {
		t.Errorf("stored status = %s", stored.Status)
	}
	if stored.AudioPath == "" {
		t.Error("audio path not persisted")
	}
	if f.normalizer.lastID != record.ID {
		t.Errorf("normalizer keyed by %q, want %q", f.normalizer.lastID, record.ID)
	}
}

func TestIngestRejectsUnsupportedExtension(t *testing.T) {
	f := newFixture(t)

	_, err := f.ingest(t, "notes.txt", "not audio")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	all, listErr := f.store.List(context.Background(), records.ListOptions{})
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(all) != 0 {
		t.Error("rejected upload must not create a record")
	}
}

func TestIngestRejectsEmptyFile(t *testing.T) {
	f := newFixture(t)

	_, err := f.ingest(t, "silence.wav", "")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIngestRejectsOversizedFile(t *testing.T) {
	f := newFixture(t)

	huge := strings.Repeat("x", (1<<20)+1)
	_, err := f.ingest(t, "big.wav", huge)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIngestRejectsDuplicate(t *testing.T) {
	f := newFixture(t)

	first, err := f.ingest(t, "call.wav", "identical bytes")
	if err != nil {
		t.Fatalf("first ingest: %v", err)
	}

	_, err = f.ingest(t, "renamed.wav", "identical bytes")
	if !errors.Is(err, services.ErrDuplicate) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if !strings.Contains(err.Error(), first.Filename) {
		t.Errorf("duplicate error should name the original upload: %v", err)
	}

	all, listErr := f.store.List(context.Background(), records.ListOptions{})
	if listErr != nil {
		t.Fatalf("list: %v", listErr)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 record, got %d", len(all))
	}
}

func TestIngestNormalizationFailure(t *testing.T) {
	f := newFixture(t)
	f.normalizer.err = services.Wrap(services.ErrNormalization, "normalize", "transcode", "", errors.New("bad header"))

	record, err := f.ingest(t, "broken.wav", "corrupt bytes")
	if !errors.Is(err, services.ErrNormalization) {
		t.Fatalf("expected normalization error, got %v", err)
	}
	if record == nil {
		t.Fatal("failed ingest should still return the record")
	}

	stored, getErr := f.store.GetByID(context.Background(), record.ID)
	if getErr != nil {
		t.Fatalf("get: %v", getErr)
	}
	if stored.Status != records.StatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if stored.ErrorDetail == "" {
		t.Error("error detail not persisted")
	}
	if f.analyzer.called {
		t.Error("analysis must not run after normalization failure")
	}
}

func TestIngestTranscriptionFailure(t *testing.T) {
	f := newFixture(t)
	f.transcriber.err = services.Wrap(services.ErrTranscription, "transcribe", "post", "", errors.New("service down"))

	record, err := f.ingest(t, "call.wav", "audio")
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected transcription error, got %v", err)
	}

	stored, getErr := f.store.GetByID(context.Background(), record.ID)
	if getErr != nil {
		t.Fatalf("get: %v", getErr)
	}
	if stored.Status != records.StatusFailed {
		t.Errorf("status = %s, want failed", stored.Status)
	}
	if stored.Transcript != nil {
		t.Error("failed transcription must leave the transcript unset")
	}
}

func TestIngestAnalysisFailureDegrades(t *testing.T) {
	f := newFixture(t)
	f.analyzer.err = services.Wrap(services.ErrAnalysis, "analyze", "parse payload", "", errors.New("not json"))

	record, err := f.ingest(t, "call.wav", "audio")
	if err != nil {
		t.Fatalf("analysis failure should not fail the ingest: %v", err)
	}
	if record.Status != records.StatusCompletedPartial {
		t.Errorf("status = %s, want completed_partial", record.Status)
	}
	if record.TranscriptText() != "hello from the caller" {
		t.Error("transcript must survive analysis failure")
	}
	if record.Summary != "" {
		t.Errorf("summary should stay empty, got %q", record.Summary)
	}

	stored, getErr := f.store.GetByID(context.Background(), record.ID)
	if getErr != nil {
		t.Fatalf("get: %v", getErr)
	}
	if stored.Status != records.StatusCompletedPartial {
		t.Errorf("stored status = %s", stored.Status)
	}
	if stored.ErrorDetail != "" {
		t.Errorf("error detail = %q, must stay empty unless the record failed", stored.ErrorDetail)
	}
}

func TestIngestEmptyTranscriptCompletes(t *testing.T) {
	f := newFixture(t)
	f.transcriber.text = ""
	f.analyzer.analysis = chat.Analysis{Summary: "No transcript available."}

	record, err := f.ingest(t, "quiet.wav", "audio")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if record.Status != records.StatusCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}
	if record.Transcript == nil || *record.Transcript != "" {
		t.Error("empty transcript should persist as set")
	}
}

func TestIngestSurvivesCanceledRequestContext(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	record, err := f.orch.Ingest(ctx, "call.wav", strings.NewReader("audio"))
	if err != nil {
		t.Fatalf("ingest with canceled context: %v", err)
	}
	if record.Status != records.StatusCompleted {
		t.Errorf("status = %s, want completed", record.Status)
	}
}
