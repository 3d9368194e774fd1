// Package normalizer converts uploaded call audio into the canonical MP3
// format via ffmpeg and probes the result for duration metadata.
package normalizer
