package whisper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"callbox/internal/config"
	"callbox/internal/services"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "whisper-1"
	defaultHTTPTimeout = 120 * time.Second
)

// Client wraps an OpenAI-compatible speech-to-text transcription endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	language   string
	policy     services.RetryPolicy
	httpClient *http.Client
}

// Option customizes the transcription client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default API base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithRetryPolicy overrides the default retry schedule.
func WithRetryPolicy(policy services.RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient constructs a transcription client from configuration.
func NewClient(cfg config.STT, opts ...Option) *Client {
	client := &Client{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		baseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:    strings.TrimSpace(cfg.Model),
		language: strings.TrimSpace(cfg.Language),
		policy:   services.DefaultRetryPolicy(),
	}
	if cfg.MaxAttempts > 0 {
		client.policy.MaxAttempts = cfg.MaxAttempts
	}
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client.httpClient = &http.Client{Timeout: timeout}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.model == "" {
		client.model = defaultModel
	}
	return client
}

// Transcribe uploads the audio file and returns its plain-text transcript.
// An empty transcript is a valid result for silent audio. Network failures,
// rate limits, and server errors are retried; other API rejections fail
// immediately.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "prepare", "api key required", nil)
	}
	if _, err := os.Stat(audioPath); err != nil {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "prepare", "read audio", err)
	}

	var transcript string
	err := services.Retry(ctx, c.policy, isTransient, func() error {
		text, err := c.transcribeOnce(ctx, audioPath)
		if err != nil {
			return err
		}
		transcript = text
		return nil
	})
	if err != nil {
		return "", services.Wrap(services.ErrTranscription, "transcribe", "post", "", err)
	}
	return strings.TrimSpace(transcript), nil
}

func (c *Client) transcribeOnce(ctx context.Context, audioPath string) (string, error) {
	body, contentType, err := c.buildRequestBody(audioPath)
	if err != nil {
		return "", backoff.Permanent(err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/audio/transcriptions")
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build url: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(payload))}
	}
	return string(payload), nil
}

// buildRequestBody assembles the multipart form: the audio file plus model,
// response_format, and optional language fields.
func (c *Client) buildRequestBody(audioPath string) (io.Reader, string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("copy audio: %w", err)
	}
	if err := writer.WriteField("model", c.model); err != nil {
		return nil, "", fmt.Errorf("write model field: %w", err)
	}
	if err := writer.WriteField("response_format", "text"); err != nil {
		return nil, "", fmt.Errorf("write format field: %w", err)
	}
	if c.language != "" {
		if err := writer.WriteField("language", c.language); err != nil {
			return nil, "", fmt.Errorf("write language field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize form: %w", err)
	}
	return &buf, writer.FormDataContentType(), nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("http %d", e.code)
	}
	return fmt.Sprintf("http %d: %s", e.code, e.body)
}

// isTransient reports whether a failed attempt is worth retrying. Server
// errors and rate limits are; every other HTTP rejection is permanent.
// Anything that is not a status error is treated as a network failure and
// retried.
func isTransient(err error) bool {
	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return statusErr.code >= http.StatusInternalServerError || statusErr.code == http.StatusTooManyRequests
	}
	return true
}
