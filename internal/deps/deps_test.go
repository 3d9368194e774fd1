package deps

import (
	"testing"

	"callbox/internal/config"
)

func TestCheckBinaries(t *testing.T) {
	results := CheckBinaries([]Requirement{
		{Name: "shell", Command: "sh", Description: "posix shell"},
		{Name: "ghost", Command: "definitely-not-a-real-binary-xyz"},
		{Name: "blank", Command: "   "},
	})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].Available {
		t.Errorf("sh should be available: %+v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Errorf("missing binary should carry detail: %+v", results[1])
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Errorf("blank command: %+v", results[2])
	}
}

func TestRequirements(t *testing.T) {
	cfg := config.Default()
	reqs := Requirements(&cfg)
	if len(reqs) != 2 {
		t.Fatalf("expected ffmpeg and ffprobe, got %d", len(reqs))
	}
	if reqs[0].Command != cfg.FFmpeg.Binary {
		t.Errorf("ffmpeg command = %q", reqs[0].Command)
	}
	if !reqs[1].Optional {
		t.Error("ffprobe should be optional")
	}
}
