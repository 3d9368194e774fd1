package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"callbox/internal/api"
)

func runCommand(t *testing.T, server *httptest.Server, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--bind", strings.TrimPrefix(server.URL, "http://")))
	err := cmd.Execute()
	return out.String(), err
}

func TestListCommandRendersTable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/calls" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(api.CallListResponse{
			Calls: []api.CallRecord{
				{ID: "call-1", Filename: "a.mp3", Status: "completed", Tags: []string{"inquiry"}},
			},
			Total: 1,
		})
	}))
	defer server.Close()

	out, err := runCommand(t, server, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "call-1") || !strings.Contains(out, "inquiry") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "1 call(s)") {
		t.Errorf("missing total line:\n%s", out)
	}
}

func TestListCommandEmpty(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.CallListResponse{})
	}))
	defer server.Close()

	out, err := runCommand(t, server, "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No calls stored.") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestShowCommandNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(api.ErrorResponse{Error: "call not found"})
	}))
	defer server.Close()

	_, err := runCommand(t, server, "show", "missing-id")
	if err == nil || !strings.Contains(err.Error(), "call not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a long summary that keeps going", 10); got != "a long ..." {
		t.Errorf("truncate = %q", got)
	}
}

func TestFormatTags(t *testing.T) {
	if got := formatTags(nil); got != "-" {
		t.Errorf("formatTags(nil) = %q", got)
	}
	if got := formatTags([]string{"a", "b"}); got != "a, b" {
		t.Errorf("formatTags = %q", got)
	}
}
