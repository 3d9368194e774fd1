package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to a running daemon over its HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// StatusError reports a non-success API response with the server's message.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: http %d", e.Code)
	}
	return fmt.Sprintf("api: %s (http %d)", e.Message, e.Code)
}

// NewClient builds a client for the daemon listening at bind, an
// address:port pair or full URL.
func NewClient(bind string) *Client {
	base := strings.TrimSpace(bind)
	if base != "" && !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Status fetches daemon runtime information.
func (c *Client) Status(ctx context.Context) (DaemonStatus, error) {
	var status DaemonStatus
	err := c.getJSON(ctx, "/api/status", nil, &status)
	return status, err
}

// List fetches call records, optionally filtered by tag and ordered by sort
// ("newest" or "oldest").
func (c *Client) List(ctx context.Context, tag, sort string) (CallListResponse, error) {
	query := url.Values{}
	if strings.TrimSpace(tag) != "" {
		query.Set("tag", tag)
	}
	if strings.TrimSpace(sort) != "" {
		query.Set("sort", sort)
	}
	var resp CallListResponse
	err := c.getJSON(ctx, "/api/calls", query, &resp)
	return resp, err
}

// Get fetches one call record by id.
func (c *Client) Get(ctx context.Context, id string) (CallRecord, error) {
	var resp CallResponse
	err := c.getJSON(ctx, "/api/calls/"+url.PathEscape(id), nil, &resp)
	return resp.Call, err
}

// Tags fetches the distinct tags in use.
func (c *Client) Tags(ctx context.Context) ([]string, error) {
	var tags []string
	err := c.getJSON(ctx, "/api/calls/tags", nil, &tags)
	return tags, err
}

// Upload submits an audio file for processing and returns the accepted
// record id.
func (c *Client) Upload(ctx context.Context, path string) (UploadResponse, error) {
	var resp UploadResponse

	file, err := os.Open(path)
	if err != nil {
		return resp, fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		return resp, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return resp, fmt.Errorf("read upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return resp, fmt.Errorf("finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/calls/upload", &buf)
	if err != nil {
		return resp, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	err = c.do(req, &resp)
	return resp, err
}

// AddTag attaches a tag to a record and returns the updated record.
func (c *Client) AddTag(ctx context.Context, id, tag string) (CallRecord, error) {
	var resp CallResponse

	encoded, err := json.Marshal(TagRequest{Tag: tag})
	if err != nil {
		return resp.Call, fmt.Errorf("encode tag request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/calls/"+url.PathEscape(id)+"/tags", bytes.NewReader(encoded))
	if err != nil {
		return resp.Call, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	err = c.do(req, &resp)
	return resp.Call, err
}

// RemoveTag detaches a tag from a record and returns the updated record.
func (c *Client) RemoveTag(ctx context.Context, id, tag string) (CallRecord, error) {
	var resp CallResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete,
		c.baseURL+"/api/calls/"+url.PathEscape(id)+"/tags/"+url.PathEscape(tag), nil)
	if err != nil {
		return resp.Call, fmt.Errorf("build request: %w", err)
	}

	err = c.do(req, &resp)
	return resp.Call, err
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return &StatusError{Code: resp.StatusCode, Message: apiErr.Error}
		}
		return &StatusError{Code: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
