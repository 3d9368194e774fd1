package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"callbox/internal/config"
	"callbox/internal/logging"
	"callbox/internal/normalizer"
	"callbox/internal/records"
	"callbox/internal/services"
	"callbox/internal/services/chat"
)

// AudioNormalizer converts an upload into the canonical MP3 artifact.
type AudioNormalizer interface {
	Normalize(ctx context.Context, id, source string) (normalizer.Result, error)
}

// Transcriber produces a plain-text transcript for an audio file.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Analyzer summarizes and tags a transcript.
type Analyzer interface {
	Analyze(ctx context.Context, transcript string) (chat.Analysis, error)
}

// Orchestrator drives an upload through validation, normalization,
// transcription, and analysis, persisting every status transition.
type Orchestrator struct {
	cfg         *config.Config
	store       *records.Store
	normalizer  AudioNormalizer
	transcriber Transcriber
	analyzer    Analyzer
	logger      *slog.Logger
}

// New builds an orchestrator over the given stage services.
func New(cfg *config.Config, store *records.Store, norm AudioNormalizer, transcriber Transcriber, analyzer Analyzer, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Orchestrator{
		cfg:         cfg,
		store:       store,
		normalizer:  norm,
		transcriber: transcriber,
		analyzer:    analyzer,
		logger:      logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Ingest validates and processes one uploaded file, returning the terminal
// record. Validation and duplicate failures happen before any record exists.
// Once a record is created the pipeline detaches from the caller's context,
// so a dropped connection cannot leave a record stuck in a processing state;
// the record always reaches completed, completed_partial, or failed.
func (o *Orchestrator) Ingest(ctx context.Context, filename string, upload io.Reader) (*records.Record, error) {
	// Processing continues even if the uploader disconnects.
	ctx = context.WithoutCancel(ctx)

	if err := o.validateFilename(filename); err != nil {
		return nil, err
	}

	spoolPath, checksum, size, err := o.spoolUpload(upload, strings.ToLower(filepath.Ext(filename)))
	if spoolPath != "" {
		defer os.Remove(spoolPath)
	}
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return nil, services.Wrap(services.ErrValidation, "ingest", "validate", "uploaded file is empty", nil)
	}

	if existing, err := o.store.FindByChecksum(ctx, checksum); err != nil {
		return nil, err
	} else if existing != nil {
		detail := fmt.Sprintf("duplicate of %q uploaded at %s",
			existing.Filename, existing.UploadTimestamp.Format(time.RFC3339))
		return nil, services.Wrap(services.ErrDuplicate, "ingest", "validate", detail, nil)
	}

	record := &records.Record{
		ID:       uuid.New().String(),
		Filename: canonicalFilename(filename),
		Status:   records.StatusUploaded,
		Checksum: checksum,
	}
	if err := o.store.Create(ctx, record); err != nil {
		return nil, err
	}

	ctx = services.WithCallID(ctx, record.ID)
	logging.WithContext(ctx, o.logger).InfoContext(ctx, "upload accepted",
		logging.String("filename", record.Filename),
		logging.Int64("size_bytes", size))

	return o.process(ctx, record, spoolPath)
}

// process runs the stage chain. Normalization and transcription failures are
// terminal; analysis failures degrade the record to completed_partial.
func (o *Orchestrator) process(ctx context.Context, record *records.Record, spoolPath string) (*records.Record, error) {
	log := logging.WithContext(ctx, o.logger)

	if err := o.transition(ctx, record, records.StatusNormalizing); err != nil {
		return record, err
	}
	result, err := o.normalizer.Normalize(ctx, record.ID, spoolPath)
	if err != nil {
		return o.fail(ctx, record, err)
	}
	record.AudioPath = result.Path
	if result.DurationSeconds > 0 {
		log.InfoContext(ctx, "audio normalized",
			logging.Float64("duration_seconds", result.DurationSeconds))
	}

	if err := o.transition(ctx, record, records.StatusTranscribing); err != nil {
		return record, err
	}
	transcript, err := o.transcriber.Transcribe(ctx, record.AudioPath)
	if err != nil {
		return o.fail(ctx, record, err)
	}
	record.SetTranscript(transcript)

	if err := o.transition(ctx, record, records.StatusAnalyzing); err != nil {
		return record, err
	}
	analysis, err := o.analyzer.Analyze(ctx, transcript)
	if err != nil {
		// error_detail is reserved for failed records and stays empty here.
		log.WarnContext(ctx, "analysis failed, keeping transcript",
			logging.String(logging.FieldAlert, "analysis_degraded"),
			logging.Error(err))
		record.Status = records.StatusCompletedPartial
		if updateErr := o.store.Update(ctx, record); updateErr != nil {
			return record, updateErr
		}
		return record, nil
	}

	record.Summary = analysis.Summary
	record.Tags = records.MergeTags(record.Tags, analysis.Tags...)
	record.Status = records.StatusCompleted
	if err := o.store.Update(ctx, record); err != nil {
		return record, err
	}
	log.InfoContext(ctx, "call processed",
		logging.String(logging.FieldEventType, "pipeline_complete"),
		logging.Int("tags", len(record.Tags)))
	return record, nil
}

// transition persists a forward status change before the stage runs, so the
// store always shows which stage is in flight.
func (o *Orchestrator) transition(ctx context.Context, record *records.Record, next records.Status) error {
	if !record.Status.CanTransition(next) {
		return services.Wrap(services.ErrStorage, "pipeline", "transition",
			fmt.Sprintf("%s: illegal transition %s -> %s", record.ID, record.Status, next), nil)
	}
	record.Status = next
	if err := o.store.Update(ctx, record); err != nil {
		return err
	}
	logging.WithContext(ctx, o.logger).InfoContext(ctx, "stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.String(logging.FieldStage, string(next)))
	return nil
}

// fail marks the record failed with the stage error and persists it. The
// original stage error is returned so callers can map it to a response.
func (o *Orchestrator) fail(ctx context.Context, record *records.Record, stageErr error) (*records.Record, error) {
	log := logging.WithContext(ctx, o.logger)
	log.ErrorContext(ctx, "stage failed",
		logging.String(logging.FieldEventType, "stage_failure"),
		logging.String(logging.FieldStage, string(record.Status)),
		logging.Error(stageErr))
	record.SetFailed(stageErr.Error())
	if err := o.store.Update(ctx, record); err != nil {
		log.ErrorContext(ctx, "persist failure state", logging.Error(err))
	}
	return record, stageErr
}

func (o *Orchestrator) validateFilename(filename string) error {
	base := strings.TrimSpace(filepath.Base(filename))
	if base == "" || base == "." {
		return services.Wrap(services.ErrValidation, "ingest", "validate", "filename required", nil)
	}
	ext := strings.ToLower(filepath.Ext(base))
	for _, allowed := range o.cfg.Upload.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return services.Wrap(services.ErrValidation, "ingest", "validate",
		fmt.Sprintf("unsupported file type %q, allowed: %s", ext, strings.Join(o.cfg.Upload.AllowedExtensions, ", ")), nil)
}

// spoolUpload copies the upload into a temp file under the data directory,
// hashing as it goes and enforcing the size cap. The spool file keeps the
// upload's extension; the normalizer branches on it to decide between the
// decode-check-and-copy path and a transcode.
func (o *Orchestrator) spoolUpload(upload io.Reader, ext string) (string, string, int64, error) {
	if err := o.cfg.EnsureDirectories(); err != nil {
		return "", "", 0, services.Wrap(services.ErrStorage, "ingest", "spool", "ensure directories", err)
	}
	tmp, err := os.CreateTemp(o.cfg.Paths.DataDir, "upload-*"+ext)
	if err != nil {
		return "", "", 0, services.Wrap(services.ErrStorage, "ingest", "spool", "create temp file", err)
	}
	defer tmp.Close()

	maxBytes := int64(o.cfg.Upload.MaxSizeMiB) << 20
	hasher := sha256.New()
	size, err := io.Copy(tmp, io.TeeReader(io.LimitReader(upload, maxBytes+1), hasher))
	if err != nil {
		return tmp.Name(), "", 0, services.Wrap(services.ErrStorage, "ingest", "spool", "write upload", err)
	}
	if maxBytes > 0 && size > maxBytes {
		return tmp.Name(), "", 0, services.Wrap(services.ErrValidation, "ingest", "validate",
			fmt.Sprintf("file exceeds the %d MiB limit", o.cfg.Upload.MaxSizeMiB), nil)
	}
	return tmp.Name(), hex.EncodeToString(hasher.Sum(nil)), size, nil
}

// canonicalFilename rewrites the display name to the stored MP3 extension
// while keeping the original stem.
func canonicalFilename(filename string) string {
	base := filepath.Base(filename)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return stem + ".mp3"
}
