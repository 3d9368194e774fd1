package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"callbox/internal/config"
	"callbox/internal/records"
	"callbox/internal/services"
)

const (
	defaultBaseURL     = "https://api.openai.com/v1"
	defaultModel       = "gpt-4o-mini"
	jsonResponseType   = "json_object"
	defaultHTTPTimeout = 60 * time.Second
)

// Analysis captures the structured result produced from a transcript.
type Analysis struct {
	Summary string   `json:"summary"`
	Tags    []string `json:"tags"`
	Raw     string   `json:"-"`
}

// Client wraps an OpenAI-compatible chat completion endpoint for transcript
// analysis.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Option customizes the analysis client.
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

// NewClient constructs an analysis client from configuration.
func NewClient(cfg config.LLM, opts ...Option) *Client {
	client := &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		model:   strings.TrimSpace(cfg.Model),
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

// Analyze summarizes and tags a call transcript. An empty transcript short
// circuits to an empty analysis without calling the API. Any malformed or
// unparseable model output is reported as an analysis failure so callers can
// degrade instead of aborting the call record.
func (c *Client) Analyze(ctx context.Context, transcript string) (Analysis, error) {
	var empty Analysis
	if strings.TrimSpace(transcript) == "" {
		return Analysis{Summary: "No transcript available."}, nil
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "prepare", "api key required", nil)
	}

	requestBody := chatCompletionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: AnalysisPrompt},
			{Role: "user", Content: transcript},
		},
		Temperature: 0,
		ResponseFormat: map[string]string{
			"type": jsonResponseType,
		},
	}
	encoded, err := json.Marshal(requestBody)
	if err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "encode request", "", err)
	}

	endpoint, err := url.JoinPath(c.baseURL, "/chat/completions")
	if err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "build url", "", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "build request", "", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "request", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "read body", "", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "request",
			fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "decode response", "", err)
	}
	if completion.Error != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "request",
			"api error: "+strings.TrimSpace(completion.Error.Message), nil)
	}
	if len(completion.Choices) == 0 {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "decode response", "empty choices", nil)
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	if content == "" {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "decode response", "empty content", nil)
	}
	return parseAnalysis(content)
}

// parseAnalysis decodes the model output, tolerating markdown code fences
// around the JSON object.
func parseAnalysis(content string) (Analysis, error) {
	var empty Analysis

	cleaned := stripCodeFence(content)
	var parsed Analysis
	parsed.Raw = content
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "parse payload", "", err)
	}

	parsed.Summary = strings.TrimSpace(parsed.Summary)
	if parsed.Summary == "" {
		return empty, services.Wrap(services.ErrAnalysis, "analyze", "parse payload", "missing summary", nil)
	}
	parsed.Tags = records.NormalizeTags(parsed.Tags)
	return parsed, nil
}

// stripCodeFence removes a surrounding ```json ... ``` fence if present.
func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

type chatCompletionRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}
