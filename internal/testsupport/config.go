package testsupport

import (
	"path/filepath"
	"testing"

	"callbox/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.APIBind = "127.0.0.1:0"
	cfg.STT.APIKey = "test"
	cfg.LLM.APIKey = "test"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithMaxUploadMiB overrides the upload size cap on the test config.
func WithMaxUploadMiB(mib int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Upload.MaxSizeMiB = mib
	}
}

// WithAllowedExtensions overrides the accepted upload extensions.
func WithAllowedExtensions(exts ...string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Upload.AllowedExtensions = exts
	}
}
