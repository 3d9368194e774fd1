package normalizer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"callbox/internal/config"
	"callbox/internal/fileutil"
	"callbox/internal/services"
)

// Result describes a normalized audio artifact.
type Result struct {
	// Path is the final MP3 location under the audio directory.
	Path string
	// DurationSeconds is the probed length of the normalized audio. Zero when
	// probing fails; probing is best effort.
	DurationSeconds float64
}

// commandRunner executes an external tool and returns its stdout.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Normalizer converts validated uploads into the canonical MP3 format using
// ffmpeg and verifies inputs that already claim to be MP3.
type Normalizer struct {
	ffmpegBinary  string
	ffprobeBinary string
	bitrateKbps   int
	timeout       time.Duration
	audioDir      string
	runner        commandRunner
}

// New builds a Normalizer from configuration.
func New(cfg *config.Config) *Normalizer {
	return &Normalizer{
		ffmpegBinary:  cfg.FFmpeg.Binary,
		ffprobeBinary: cfg.FFmpeg.ProbeBinary,
		bitrateKbps:   cfg.FFmpeg.BitrateKbps,
		timeout:       time.Duration(cfg.FFmpeg.TimeoutSeconds) * time.Second,
		audioDir:      cfg.AudioDir(),
	}
}

// WithCommandRunner sets a custom command runner (for testing).
func (n *Normalizer) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) ([]byte, error)) {
	n.runner = runner
}

// Normalize converts the upload at source into <audioDir>/<id>.mp3. Inputs
// that already carry MPEG audio (.mp3, .mpeg) are decode-checked and copied
// byte for byte; everything else is transcoded. The returned path is only
// populated on success and the artifact never appears at its final location
// half written.
func (n *Normalizer) Normalize(ctx context.Context, id, source string) (Result, error) {
	var result Result

	if strings.TrimSpace(id) == "" {
		return result, services.Wrap(services.ErrNormalization, "normalize", "prepare", "record id required", nil)
	}
	if _, err := os.Stat(source); err != nil {
		return result, services.Wrap(services.ErrNormalization, "normalize", "prepare", "read source", err)
	}
	if err := os.MkdirAll(n.audioDir, 0o755); err != nil {
		return result, services.Wrap(services.ErrNormalization, "normalize", "prepare", "ensure audio dir", err)
	}

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	finalPath := filepath.Join(n.audioDir, id+".mp3")
	tmpPath := finalPath + ".tmp"
	defer os.Remove(tmpPath)

	switch strings.ToLower(filepath.Ext(source)) {
	case ".mp3", ".mpeg":
		if err := n.verifyDecodable(ctx, source); err != nil {
			return result, err
		}
		if err := fileutil.CopyFile(source, tmpPath); err != nil {
			return result, services.Wrap(services.ErrNormalization, "normalize", "copy", id, err)
		}
	default:
		if err := n.transcode(ctx, source, tmpPath); err != nil {
			return result, err
		}
	}

	if err := fileutil.MoveFileAtomic(tmpPath, finalPath); err != nil {
		return result, services.Wrap(services.ErrNormalization, "normalize", "finalize", id, err)
	}

	result.Path = finalPath
	result.DurationSeconds = n.probeDuration(ctx, finalPath)
	return result, nil
}

// transcode converts any ffmpeg-readable input into MP3 at the configured
// bitrate.
func (n *Normalizer) transcode(ctx context.Context, source, dest string) error {
	bitrate := n.bitrateKbps
	if bitrate <= 0 {
		bitrate = 96
	}
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", source,
		"-vn",
		"-codec:a", "libmp3lame",
		"-b:a", fmt.Sprintf("%dk", bitrate),
		"-f", "mp3",
		dest,
	}
	if _, err := n.run(ctx, n.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrNormalization, "normalize", "transcode", "", err)
	}
	return nil
}

// verifyDecodable decodes the whole file to the null muxer so corrupt MP3
// uploads fail here instead of during transcription.
func (n *Normalizer) verifyDecodable(ctx context.Context, source string) error {
	args := []string{
		"-hide_banner",
		"-nostdin",
		"-v", "error",
		"-i", source,
		"-f", "null",
		"-",
	}
	if _, err := n.run(ctx, n.ffmpegBinary, args...); err != nil {
		return services.Wrap(services.ErrNormalization, "normalize", "verify", "audio stream is not decodable", err)
	}
	return nil
}

// probeDuration reads the container duration via ffprobe. Failures are
// swallowed; duration is informational.
func (n *Normalizer) probeDuration(ctx context.Context, path string) float64 {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	output, err := n.run(ctx, n.ffprobeBinary, args...)
	if err != nil {
		return 0
	}
	duration, err := strconv.ParseFloat(strings.TrimSpace(string(output)), 64)
	if err != nil || duration < 0 {
		return 0
	}
	return duration
}

// run executes a command, using the custom runner if set.
func (n *Normalizer) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if n.runner != nil {
		return n.runner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
